package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/tatianab/transit-ace/internal/models"
)

const progressWidth = 30

func (m model) viewPlay() string {
	snap := m.snap
	if snap.Current == nil {
		return dimStyle.Render("Loading...")
	}
	sc := snap.Current
	logWidth := m.viewport.Width

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s %s\n\n", titleStyle.Render(snap.Story.Title), progressBar(snap.ProgressFraction()), snap.ProgressLabel())
	b.WriteString(selectedStyle.Render(sc.Title) + "\n")
	b.WriteString(sophiaStyle.Width(logWidth).Render(sc.Description) + "\n\n")
	for i, opt := range sc.Options {
		line := fmt.Sprintf("%d. %s", i+1, opt.Text)
		switch {
		case snap.LastOption != nil && snap.LastOption.ID == opt.ID:
			line = selectedStyle.Render(line)
		case snap.OptionApplied:
			line = dimStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	body := lipgloss.JoinVertical(lipgloss.Left, b.String(), m.viewport.View())
	view := lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderState())

	help := "1-9 to choose, r to restart, m for the menu, q to quit."
	if snap.OptionApplied {
		help = "enter for the next scenario, r to restart, m for the menu, q to quit."
	}
	footer := helpStyle.Render(help)
	if m.notice != "" {
		footer = errorStyle.Render(m.notice) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, view, "\n"+footer)
}

func progressBar(fraction float64) string {
	filled := int(fraction * progressWidth)
	filled = min(max(filled, 0), progressWidth)
	return selectedStyle.Render(strings.Repeat("█", filled)) + dimStyle.Render(strings.Repeat("░", progressWidth-filled))
}

func (m model) renderState() string {
	snap := m.snap

	stats := titleStyle.Render("STATS") + "\n"
	stats += fmt.Sprintf("Budget: €%.2f\nMorale: %d\nInfractions: %d\n\n", snap.Stats.Budget, snap.Stats.Morale, snap.Stats.LegalInfractions)

	inventory := titleStyle.Render("INVENTORY") + "\n"
	if len(snap.Inventory) == 0 {
		inventory += "(empty)"
	} else {
		for _, item := range snap.Inventory {
			inventory += "- " + item.Name + "\n"
		}
	}

	stateWidth := max(m.width-m.viewport.Width-4, 20)
	return stateStyle.Width(stateWidth).Render(stats + inventory)
}

func (m model) renderChat() string {
	width := m.viewport.Width
	var b strings.Builder
	for _, e := range m.chat {
		if e.Sender == models.SenderPlayer {
			b.WriteString(playerStyle.Width(width).Render("> "+e.Text) + "\n\n")
			continue
		}
		b.WriteString(sophiaStyle.Width(width).Render("Sophia: "+e.Text) + "\n\n")
	}
	return b.String()
}

func (m model) viewReport() string {
	snap := m.snap
	if snap.Report == nil {
		return dimStyle.Render("Grading...")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(snap.Story.Title) + "\n\n")
	b.WriteString(gradeStyle.Render(snap.Report.Grade) + "\n\n")
	b.WriteString(sophiaStyle.Width(m.textWidth()).Render(snap.Report.Summary) + "\n\n")
	fmt.Fprintf(&b, "Budget left: €%.2f of €%.2f\n", snap.Stats.Budget, snap.Story.InitialBudget)
	fmt.Fprintf(&b, "Morale: %d of %d\n", snap.Stats.Morale, snap.Story.InitialMorale)
	fmt.Fprintf(&b, "Infractions: %d\n", snap.Stats.LegalInfractions)
	if len(snap.Inventory) > 0 {
		names := make([]string, len(snap.Inventory))
		for i, item := range snap.Inventory {
			names[i] = item.Name
		}
		fmt.Fprintf(&b, "Collected: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\n" + helpStyle.Render("enter for the menu, q to quit."))
	return b.String()
}

func (m model) viewStories() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Saved stories") + "\n\n")
	switch {
	case m.loading:
		b.WriteString(dimStyle.Render("Loading...") + "\n")
	case len(m.stories) == 0:
		b.WriteString(dimStyle.Render("No stories yet.") + "\n")
	default:
		for i, s := range m.stories {
			label := fmt.Sprintf("%s  %s", s.Title, dimStyle.Render(s.CreatedAt.Local().Format("2006-01-02 15:04")))
			b.WriteString(cursorLine(i == m.cursor, label) + "\n")
		}
	}
	help := "enter to replay, d to delete, c to delete all, esc for the menu."
	if m.confirmClear {
		help = "Press c again to delete every story."
	}
	b.WriteString("\n" + helpStyle.Render(help))
	return b.String()
}
