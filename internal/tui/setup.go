package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/transit-ace/internal/game"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
	"go.uber.org/zap"
)

var simulationTypes = []string{"Default Paris trip", "Custom scenario"}

func (m model) startWizard() (tea.Model, tea.Cmd) {
	m.screen = screenSetup
	m.wizard = game.Wizard{}
	m.cursor = 0
	for i, l := range models.Languages() {
		if l == m.lang {
			m.cursor = i
		}
	}
	m.enteringPlot = false
	m.generated = models.GeneratedStory{}
	m.genErr = nil
	return m, nil
}

func (m model) fire(ev game.SetupEvent) model {
	if _, err := m.wizard.Fire(ev); err != nil {
		m.logger.Warn("ignored setup event", zap.Error(err))
	}
	m.cursor = 0
	return m
}

func (m model) updateSetup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.wizard.Step() {
	case game.StepLanguage:
		return m.updateLanguageStep(msg)
	case game.StepName:
		return m.updateNameStep(msg)
	case game.StepSimulationType:
		if m.enteringPlot {
			return m.updatePlotStep(msg)
		}
		return m.updateTypeStep(msg)
	case game.StepGenerating:
		if msg.Type == tea.KeyEsc && m.cancelGen != nil {
			m.cancelGen()
		}
		return m, nil
	case game.StepSuccess:
		switch msg.String() {
		case "enter", "y":
			m = m.fire(game.EventConfirm)
			m.loading = true
			return m, m.startGenerated(m.generated)
		}
		return m, nil
	case game.StepFailure:
		switch msg.String() {
		case "r":
			m = m.fire(game.EventRetry)
			return m.runGeneration()
		case "d", "enter":
			m = m.fire(game.EventUseDefault)
			m.loading = true
			return m, m.startDefault(m.lang)
		case "esc":
			return m.toMenu("")
		}
		return m, nil
	}
	return m, nil
}

func (m model) updateLanguageStep(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	langs := models.Languages()
	switch msg.String() {
	case "esc":
		return m.toMenu("")
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(langs)-1 {
			m.cursor++
		}
	case "enter":
		m.lang = langs[m.cursor]
		m.deps.Session.SetLanguage(m.lang)
		m = m.fire(game.EventLanguageChosen)
		m.nameInput.SetValue(m.playerName)
		m.nameInput.Focus()
		return m, m.saveSetting(store.SettingLanguage, string(m.lang))
	}
	return m, nil
}

func (m model) updateNameStep(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.nameInput.Blur()
		m = m.fire(game.EventBack)
		return m, nil
	case tea.KeyEnter:
		name := strings.TrimSpace(m.nameInput.Value())
		if name == "" {
			return m, nil
		}
		m.playerName = name
		m.nameInput.Blur()
		m = m.fire(game.EventNameEntered)
		return m, m.saveSetting(store.SettingPlayerName, name)
	}
	var cmd tea.Cmd
	m.nameInput, cmd = m.nameInput.Update(msg)
	return m, cmd
}

func (m model) updateTypeStep(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m = m.fire(game.EventBack)
		m.nameInput.Focus()
		return m, nil
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(simulationTypes)-1 {
			m.cursor++
		}
	case "enter":
		if m.cursor == 0 {
			m = m.fire(game.EventDefaultChosen)
			m.loading = true
			return m, m.startDefault(m.lang)
		}
		if m.deps.Generator == nil {
			m.notice = "Custom scenarios need an LLM API key."
			return m, nil
		}
		m.enteringPlot = true
		m.plotInput.Reset()
		m.plotInput.Focus()
	}
	return m, nil
}

func (m model) updatePlotStep(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.enteringPlot = false
		m.plotInput.Blur()
		return m, nil
	case tea.KeyEnter:
		if strings.TrimSpace(m.plotInput.Value()) == "" {
			return m, nil
		}
		m.enteringPlot = false
		m.plotInput.Blur()
		m = m.fire(game.EventCustomChosen)
		return m.runGeneration()
	}
	var cmd tea.Cmd
	m.plotInput, cmd = m.plotInput.Update(msg)
	return m, cmd
}

func (m model) runGeneration() (tea.Model, tea.Cmd) {
	ctx, cancel := context.WithCancel(m.ctx)
	m.cancelGen = cancel
	m.genErr = nil
	m.notice = ""
	return m, tea.Batch(m.spinner.Tick, m.generate(ctx, m.lang, strings.TrimSpace(m.plotInput.Value())))
}

func (m model) handleGenerated(msg generatedMsg) (tea.Model, tea.Cmd) {
	if m.cancelGen != nil {
		m.cancelGen()
		m.cancelGen = nil
	}
	if m.screen != screenSetup || m.wizard.Step() != game.StepGenerating {
		return m, nil
	}
	if msg.err != nil {
		m.genErr = msg.err
		if errors.Is(msg.err, context.Canceled) {
			m.logger.Info("generation cancelled")
		} else {
			m.logger.Warn("generation failed", zap.Error(msg.err))
		}
		m = m.fire(game.EventGenerationFailed)
		return m, nil
	}
	m.generated = msg.story
	m = m.fire(game.EventGenerated)
	return m, nil
}

func (m model) viewSetup() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("New game") + "\n\n")

	switch m.wizard.Step() {
	case game.StepLanguage:
		b.WriteString("Choose your language:\n\n")
		for i, l := range models.Languages() {
			b.WriteString(cursorLine(i == m.cursor, l.Name()) + "\n")
		}
		b.WriteString("\n" + helpStyle.Render("enter to choose, esc for the menu."))

	case game.StepName:
		b.WriteString("What should Sophia call you?\n\n")
		b.WriteString(m.nameInput.View() + "\n\n")
		b.WriteString(helpStyle.Render("enter to continue, esc to go back."))

	case game.StepSimulationType:
		if m.enteringPlot {
			b.WriteString("Describe the trip you want to play:\n\n")
			b.WriteString(m.plotInput.View() + "\n\n")
			b.WriteString(helpStyle.Render("enter to generate, esc to go back."))
			break
		}
		b.WriteString("Which simulation?\n\n")
		for i, label := range simulationTypes {
			if i == 1 && m.deps.Generator == nil {
				label += dimStyle.Render(" (unavailable)")
			}
			b.WriteString(cursorLine(i == m.cursor, label) + "\n")
		}
		if m.notice != "" {
			b.WriteString("\n" + errorStyle.Render(m.notice) + "\n")
		}
		b.WriteString("\n" + helpStyle.Render("enter to choose, esc to go back."))

	case game.StepGenerating:
		fmt.Fprintf(&b, "%s Generating your scenario... this can take a minute.\n\n", m.spinner.View())
		b.WriteString(helpStyle.Render("esc to cancel."))

	case game.StepSuccess:
		story := m.generated.Story
		b.WriteString(selectedStyle.Render(story.Title) + "\n\n")
		b.WriteString(sophiaStyle.Width(m.textWidth()).Render(story.Description) + "\n\n")
		fmt.Fprintf(&b, "%d scenarios, budget €%.2f, morale %d\n\n", len(m.generated.Scenarios), story.InitialBudget, story.InitialMorale)
		b.WriteString(helpStyle.Render("enter to start."))

	case game.StepFailure:
		b.WriteString(errorStyle.Render("Generation failed: "+errText(m.genErr)) + "\n\n")
		b.WriteString(helpStyle.Render("r to retry, d to play the default trip, esc for the menu."))

	case game.StepComplete:
		b.WriteString(dimStyle.Render("Boarding..."))
	}
	return b.String()
}

func (m model) textWidth() int {
	if m.width == 0 {
		return 76
	}
	return m.width - 4
}
