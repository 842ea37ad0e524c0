package tui

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/transit-ace/internal/engine"
	"github.com/tatianab/transit-ace/internal/game"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
	"github.com/tatianab/transit-ace/internal/store/sqlite"
	"github.com/tatianab/transit-ace/internal/store/storetest"
	"go.uber.org/zap"
)

type stubGenerator struct {
	story models.GeneratedStory
	err   error
}

func (g stubGenerator) Generate(context.Context, string, models.Language, string) (models.GeneratedStory, error) {
	return g.story, g.err
}

type harness struct {
	t *testing.T
	m model
}

func openStore(t *testing.T) store.Store {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "tui.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newHarness(t *testing.T, st store.Store, gen engine.Generator) *harness {
	t.Helper()
	deps := Deps{
		Store:     st,
		Session:   game.NewSession(game.Ledger{}, game.Grader{}, zap.NewNop()),
		Generator: gen,
	}
	h := &harness{t: t, m: newModel(context.Background(), deps)}
	h.drain(h.m.Init())
	return h
}

func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(model)
	h.drain(cmd)
}

func (h *harness) key(s string) {
	h.t.Helper()
	switch s {
	case "enter":
		h.send(tea.KeyMsg{Type: tea.KeyEnter})
	case "esc":
		h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "down":
		h.send(tea.KeyMsg{Type: tea.KeyDown})
	default:
		h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
	}
}

func (h *harness) drain(cmd tea.Cmd) {
	h.t.Helper()
	for _, msg := range run(cmd) {
		h.send(msg)
	}
}

// run executes cmd and keeps the messages this package produces. Timer
// driven messages from spinners and cursors are dropped.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		switch msg := msg.(type) {
		case tea.BatchMsg:
			var out []tea.Msg
			for _, c := range msg {
				out = append(out, run(c)...)
			}
			return out
		case menuLoadedMsg, resumedMsg, generatedMsg, storyStartedMsg, persistedMsg, storiesLoadedMsg, settingSavedMsg:
			return []tea.Msg{msg}
		}
	case <-time.After(2 * time.Second):
	}
	return nil
}

// startDefaultGame walks the wizard through to the built-in script.
func (h *harness) startDefaultGame(name string) {
	h.t.Helper()
	require.Equal(h.t, screenMenu, h.m.screen)
	require.Equal(h.t, actionNewGame, h.m.menu[h.m.cursor])
	h.key("enter")
	require.Equal(h.t, game.StepLanguage, h.m.wizard.Step())
	h.key("enter")
	require.Equal(h.t, game.StepName, h.m.wizard.Step())
	h.key(name)
	h.key("enter")
	require.Equal(h.t, game.StepSimulationType, h.m.wizard.Step())
	h.key("enter")
}

func TestNewGameWithDefaultScript(t *testing.T) {
	st := openStore(t)
	h := newHarness(t, st, nil)
	assert.Equal(t, []menuAction{actionNewGame, actionStories, actionQuit}, h.m.menu)

	h.startDefaultGame("Ada")
	require.Equal(t, screenPlay, h.m.screen)
	require.NotNil(t, h.m.snap.Current)
	assert.Equal(t, "cdg-arrival", h.m.snap.Current.ID)
	assert.Equal(t, game.StateInProgress, h.m.snap.State)

	ctx := context.Background()
	name, err := st.GetSetting(ctx, store.SettingPlayerName)
	require.NoError(t, err)
	assert.Equal(t, "Ada", name)
	lang, err := st.GetSetting(ctx, store.SettingLanguage)
	require.NoError(t, err)
	assert.Equal(t, "en", lang)

	h.key("1")
	assert.True(t, h.m.snap.OptionApplied)
	assert.InDelta(t, 50-11.8, h.m.snap.Stats.Budget, 1e-9)
	require.Len(t, h.m.chat, 2)
	assert.Equal(t, models.SenderPlayer, h.m.chat[0].Sender)
	assert.Equal(t, models.SenderSophia, h.m.chat[1].Sender)

	// A second choice for the same scenario is ignored.
	h.key("2")
	assert.InDelta(t, 50-11.8, h.m.snap.Stats.Budget, 1e-9)

	h.key("enter")
	assert.Equal(t, "ticket-machine", h.m.snap.Current.ID)

	saved, err := st.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, saved.CursorIndex)
	assert.False(t, saved.OptionApplied)
}

func TestContinueResumesSavedGame(t *testing.T) {
	st := openStore(t)
	h := newHarness(t, st, nil)
	h.startDefaultGame("Ada")
	h.key("1")
	h.key("enter")
	h.key("1")

	h = newHarness(t, st, nil)
	require.Equal(t, actionContinue, h.m.menu[0])
	assert.Equal(t, "Ada", h.m.playerName)
	h.key("enter")

	require.Equal(t, screenPlay, h.m.screen)
	assert.Equal(t, "ticket-machine", h.m.snap.Current.ID)
	assert.True(t, h.m.snap.OptionApplied)
	require.Len(t, h.m.snap.Inventory, 1)
	assert.Equal(t, "Navigo Easy", h.m.snap.Inventory[0].Name)
	assert.Len(t, h.m.chat, 4)
}

func TestPlayingToTheEndShowsReport(t *testing.T) {
	st := openStore(t)
	h := newHarness(t, st, nil)
	h.startDefaultGame("Ada")
	for h.m.screen == screenPlay {
		h.key("1")
		h.key("enter")
	}

	require.Equal(t, screenReport, h.m.screen)
	require.NotNil(t, h.m.snap.Report)
	assert.Contains(t, h.m.View(), h.m.snap.Report.Grade)

	has, err := st.HasSession(context.Background())
	require.NoError(t, err)
	assert.False(t, has)

	h.key("enter")
	assert.Equal(t, screenMenu, h.m.screen)
	assert.Equal(t, game.StateUninitialized, h.m.deps.Session.Snapshot().State)
}

func TestCustomScenario(t *testing.T) {
	story, scenarios := storetest.Story("Night bus")
	gen := stubGenerator{story: models.GeneratedStory{Story: story, Scenarios: scenarios}}
	st := openStore(t)
	h := newHarness(t, st, gen)

	h.key("enter")
	h.key("enter")
	h.key("Ada")
	h.key("enter")
	h.key("down")
	h.key("enter")
	require.True(t, h.m.enteringPlot)
	h.key("Noctilien to Orly")
	h.key("enter")

	require.Equal(t, game.StepSuccess, h.m.wizard.Step())
	assert.Contains(t, h.m.View(), "Night bus")
	h.key("enter")

	require.Equal(t, screenPlay, h.m.screen)
	assert.Equal(t, "Night bus", h.m.snap.Story.Title)
	stories, err := st.ListStories(context.Background())
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, h.m.snap.Story.ID, stories[0].ID)
}

func TestFailedGenerationFallsBackToDefault(t *testing.T) {
	gen := stubGenerator{err: &engine.GenerationError{Kind: engine.ErrUnavailable, Attempts: 3, Err: errors.New("connection refused")}}
	h := newHarness(t, openStore(t), gen)

	h.key("enter")
	h.key("enter")
	h.key("Ada")
	h.key("enter")
	h.key("down")
	h.key("enter")
	h.key("somewhere")
	h.key("enter")

	require.Equal(t, game.StepFailure, h.m.wizard.Step())
	assert.Contains(t, h.m.View(), "could not be reached")

	h.key("d")
	require.Equal(t, screenPlay, h.m.screen)
	assert.Equal(t, "cdg-arrival", h.m.snap.Current.ID)
}

func TestCustomScenarioNeedsGenerator(t *testing.T) {
	h := newHarness(t, openStore(t), nil)
	h.key("enter")
	h.key("enter")
	h.key("Ada")
	h.key("enter")
	h.key("down")
	h.key("enter")

	assert.False(t, h.m.enteringPlot)
	assert.Equal(t, game.StepSimulationType, h.m.wizard.Step())
	assert.Contains(t, h.m.View(), "API key")
}

func TestSavedStories(t *testing.T) {
	st := openStore(t)
	ctx := context.Background()
	for _, title := range []string{"Line 1", "Line 14"} {
		story, scenarios := storetest.Story(title)
		_, err := st.SaveStory(ctx, story, scenarios)
		require.NoError(t, err)
	}
	h := newHarness(t, st, nil)

	h.key("down")
	require.Equal(t, actionStories, h.m.menu[h.m.cursor])
	h.key("enter")
	require.Equal(t, screenStories, h.m.screen)
	require.Len(t, h.m.stories, 2)

	h.key("d")
	require.Len(t, h.m.stories, 1)

	h.key("c")
	assert.True(t, h.m.confirmClear)
	require.Len(t, h.m.stories, 1)
	h.key("c")
	assert.Empty(t, h.m.stories)

	h.key("esc")
	assert.Equal(t, screenMenu, h.m.screen)
}

func TestReplaySavedStory(t *testing.T) {
	st := openStore(t)
	story, scenarios := storetest.Story("Line 4")
	_, err := st.SaveStory(context.Background(), story, scenarios)
	require.NoError(t, err)
	h := newHarness(t, st, nil)

	h.key("down")
	h.key("enter")
	h.key("enter")

	require.Equal(t, screenPlay, h.m.screen)
	assert.Equal(t, "Line 4", h.m.snap.Story.Title)
	assert.Equal(t, scenarios[0].ID, h.m.snap.Current.ID)
}

func TestQuitWaitsForPendingSave(t *testing.T) {
	st := openStore(t)
	h := newHarness(t, st, nil)
	h.startDefaultGame("Ada")

	next, save := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("1")})
	h.m = next.(model)
	require.NotNil(t, save)

	next, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	h.m = next.(model)
	assert.Nil(t, cmd)
	assert.True(t, h.m.quitting)

	msgs := run(save)
	require.Len(t, msgs, 1)
	next, cmd = h.m.Update(msgs[0])
	h.m = next.(model)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	saved, err := st.LoadSession(context.Background())
	require.NoError(t, err)
	assert.True(t, saved.OptionApplied)
}

func TestQuitWithoutPendingSave(t *testing.T) {
	h := newHarness(t, openStore(t), nil)
	h.startDefaultGame("Ada")

	_, cmd := h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
