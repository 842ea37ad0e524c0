// Package tui is the terminal front end: the main menu, the setup wizard,
// play screens and the saved-story browser.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/transit-ace/internal/engine"
	"github.com/tatianab/transit-ace/internal/game"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
	"go.uber.org/zap"
)

// Deps are the services the UI drives.
type Deps struct {
	Store   store.Store
	Session *game.Session
	// Generator is nil when no LLM is configured; only the default script
	// is offered then.
	Generator engine.Generator
	Logger    *zap.Logger
}

type screen int

const (
	screenMenu screen = iota
	screenSetup
	screenPlay
	screenReport
	screenStories
	screenError
)

type menuAction int

const (
	actionContinue menuAction = iota
	actionNewGame
	actionStories
	actionQuit
)

var menuLabels = map[menuAction]string{
	actionContinue: "Continue",
	actionNewGame:  "New game",
	actionStories:  "Saved stories",
	actionQuit:     "Quit",
}

type model struct {
	deps   Deps
	ctx    context.Context
	logger *zap.Logger

	screen  screen
	width   int
	height  int
	notice  string
	err     error
	loading bool

	menu       []menuAction
	cursor     int
	hasSession bool

	wizard       game.Wizard
	lang         models.Language
	playerName   string
	nameInput    textinput.Model
	plotInput    textinput.Model
	enteringPlot bool
	spinner      spinner.Model
	cancelGen    context.CancelFunc
	generated    models.GeneratedStory
	genErr       error

	snap     game.Snapshot
	chat     []models.ChatEntry
	viewport viewport.Model
	// saving counts save commands still running; quitting waits for them.
	saving   int
	quitting bool

	stories      []models.StoryLine
	confirmClear bool
}

func newModel(ctx context.Context, deps Deps) model {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	name := textinput.New()
	name.Placeholder = "Your name..."
	name.CharLimit = 40
	name.Width = 40

	plot := textinput.New()
	plot.Placeholder = "A night bus adventure, a lost suitcase at Gare du Nord..."
	plot.CharLimit = 256
	plot.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := model{
		deps:      deps,
		ctx:       ctx,
		logger:    deps.Logger.Named("tui"),
		screen:    screenMenu,
		lang:      models.LanguageEnglish,
		nameInput: name,
		plotInput: plot,
		spinner:   sp,
		viewport:  viewport.New(80, 20),
		loading:   true,
	}
	m.menu = m.menuActions()
	return m
}

func (m model) Init() tea.Cmd {
	return m.loadMenu()
}

func (m model) menuActions() []menuAction {
	actions := []menuAction{actionNewGame, actionStories, actionQuit}
	if m.hasSession {
		actions = append([]menuAction{actionContinue}, actions...)
	}
	return actions
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = int(float64(msg.Width) * 0.70)
		m.viewport.Height = max(msg.Height-12, 5)
		m.viewport.SetContent(m.renderChat())
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancelGen != nil {
				m.cancelGen()
			}
			return m, tea.Quit
		}
		switch m.screen {
		case screenMenu:
			return m.updateMenu(msg)
		case screenSetup:
			return m.updateSetup(msg)
		case screenPlay:
			return m.updatePlay(msg)
		case screenReport:
			return m.updateReport(msg)
		case screenStories:
			return m.updateStories(msg)
		case screenError:
			return m.toMenu("")
		}

	case menuLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.hasSession = msg.hasSession
		m.lang = msg.lang
		m.playerName = msg.name
		m.deps.Session.SetLanguage(m.lang)
		m.menu = m.menuActions()
		m.cursor = 0
		return m, nil

	case settingSavedMsg:
		if msg.err != nil {
			m.logger.Warn("failed to save setting", zap.Error(msg.err))
		}
		return m, nil

	case resumedMsg:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		if !msg.ok {
			m.hasSession = false
			m.menu = m.menuActions()
			m.cursor = 0
			m.notice = "The saved game could not be restored."
			return m, nil
		}
		m.chat = msg.chat
		return m.toPlay()

	case generatedMsg:
		return m.handleGenerated(msg)

	case spinner.TickMsg:
		if m.screen == screenSetup && m.wizard.Step() == game.StepGenerating {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case storyStartedMsg:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.chat = nil
		return m.toPlay()

	case persistedMsg:
		m.saving = max(m.saving-1, 0)
		if m.quitting && m.saving == 0 {
			return m, tea.Quit
		}
		if msg.err != nil {
			m.logger.Error("failed to save progress", zap.Error(msg.err))
			m.notice = "Progress could not be saved: " + msg.err.Error()
		}
		if msg.chat != nil {
			m.chat = msg.chat
			m.viewport.SetContent(m.renderChat())
			m.viewport.GotoBottom()
		}
		return m, nil

	case storiesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.stories = msg.stories
		m.cursor = min(m.cursor, max(len(m.stories)-1, 0))
		return m, nil
	}

	return m.updateInputs(msg)
}

// updateInputs forwards non-key messages such as cursor blinks to the
// focused text input.
func (m model) updateInputs(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.screen != screenSetup {
		return m, nil
	}
	var cmd tea.Cmd
	switch {
	case m.wizard.Step() == game.StepName:
		m.nameInput, cmd = m.nameInput.Update(msg)
	case m.enteringPlot:
		m.plotInput, cmd = m.plotInput.Update(msg)
	}
	return m, cmd
}

func (m model) fail(err error) (tea.Model, tea.Cmd) {
	m.logger.Error("operation failed", zap.Error(err))
	m.err = err
	m.screen = screenError
	m.loading = false
	return m, nil
}

func (m model) toMenu(notice string) (tea.Model, tea.Cmd) {
	m.screen = screenMenu
	m.notice = notice
	m.err = nil
	m.cursor = 0
	m.loading = true
	return m, m.loadMenu()
}

func (m model) toPlay() (tea.Model, tea.Cmd) {
	m.screen = screenPlay
	m.notice = ""
	m.snap = m.deps.Session.Snapshot()
	m.viewport.SetContent(m.renderChat())
	m.viewport.GotoBottom()
	if m.snap.State == game.StateComplete {
		m.screen = screenReport
	}
	return m, nil
}

func (m model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	switch msg.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.menu)-1 {
			m.cursor++
		}
	case "q", "esc":
		return m, tea.Quit
	case "enter":
		m.notice = ""
		switch m.menu[m.cursor] {
		case actionContinue:
			m.loading = true
			return m, m.resume()
		case actionNewGame:
			return m.startWizard()
		case actionStories:
			m.screen = screenStories
			m.cursor = 0
			m.confirmClear = false
			m.loading = true
			return m, m.loadStories()
		case actionQuit:
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m model) updatePlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	snap := m.deps.Session.Snapshot()
	m.snap = snap
	switch key := msg.String(); key {
	case "q":
		return m.quit()
	case "esc", "m":
		return m.toMenu("")
	case "r":
		m.deps.Session.Reset()
		m.deps.Session.Advance()
		m.snap = m.deps.Session.Snapshot()
		m.notice = "Story restarted."
		m.saving++
		return m, m.persist()
	case "enter", "n", " ":
		if snap.State != game.StateInProgress || !snap.OptionApplied {
			return m, nil
		}
		more := m.deps.Session.Advance()
		m.snap = m.deps.Session.Snapshot()
		m.notice = ""
		if !more {
			m.screen = screenReport
		}
		m.saving++
		return m, m.persist()
	case "up", "down", "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	default:
		if snap.Current == nil || snap.OptionApplied || len(key) != 1 || key[0] < '1' || key[0] > '9' {
			return m, nil
		}
		idx := int(key[0] - '1')
		if idx >= len(snap.Current.Options) {
			return m, nil
		}
		opt, err := m.deps.Session.ApplyOption(snap.Current.Options[idx].ID)
		if err != nil {
			m.notice = err.Error()
			return m, nil
		}
		m.snap = m.deps.Session.Snapshot()
		m.saving++
		return m, m.recordChoice(opt)
	}
}

// quit exits once every pending save has finished.
func (m model) quit() (tea.Model, tea.Cmd) {
	if m.saving > 0 {
		m.quitting = true
		m.notice = "Saving..."
		return m, nil
	}
	return m, tea.Quit
}

func (m model) updateReport(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m.quit()
	case "enter", "esc", "m":
		m.deps.Session.ClearSession()
		return m.toMenu("")
	}
	return m, nil
}

func (m model) updateStories(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	key := msg.String()
	if key != "c" {
		m.confirmClear = false
	}
	switch key {
	case "esc", "q":
		return m.toMenu("")
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.stories)-1 {
			m.cursor++
		}
	case "enter":
		if len(m.stories) == 0 {
			return m, nil
		}
		m.loading = true
		return m, m.replay(m.stories[m.cursor])
	case "d":
		if len(m.stories) == 0 {
			return m, nil
		}
		m.loading = true
		return m, m.deleteStory(m.stories[m.cursor].ID)
	case "c":
		if !m.confirmClear {
			m.confirmClear = true
			return m, nil
		}
		m.confirmClear = false
		m.loading = true
		m.cursor = 0
		return m, m.clearStories()
	}
	return m, nil
}

func (m model) View() string {
	var s string
	switch m.screen {
	case screenMenu:
		s = m.viewMenu()
	case screenSetup:
		s = m.viewSetup()
	case screenPlay:
		s = m.viewPlay()
	case screenReport:
		s = m.viewReport()
	case screenStories:
		s = m.viewStories()
	case screenError:
		s = fmt.Sprintf("\n  %s\n\n%s", errorStyle.Render("Error: "+errText(m.err)), helpStyle.Render("Press any key to return to the menu."))
	}
	return "\n" + s + "\n"
}

func (m model) viewMenu() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Paris Transit Ace") + "\n\n")
	if m.playerName != "" {
		fmt.Fprintf(&b, "Bonjour, %s!\n\n", m.playerName)
	}
	if m.loading {
		b.WriteString(dimStyle.Render("Loading...") + "\n")
		return b.String()
	}
	for i, a := range m.menu {
		b.WriteString(cursorLine(i == m.cursor, menuLabels[a]) + "\n")
	}
	if m.notice != "" {
		b.WriteString("\n" + errorStyle.Render(m.notice) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render("↑/↓ to move, enter to select, q to quit."))
	return b.String()
}

func cursorLine(selected bool, label string) string {
	if selected {
		return selectedStyle.Render("> " + label)
	}
	return "  " + label
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	var genErr *engine.GenerationError
	if errors.As(err, &genErr) {
		if errors.Is(genErr, engine.ErrUnavailable) {
			return "the story generator could not be reached. " + genErr.Error()
		}
		return "the story generator returned an unusable story. " + genErr.Error()
	}
	return err.Error()
}

// Run starts the UI and blocks until the player quits.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(newModel(ctx, deps), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
