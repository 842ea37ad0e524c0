package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/tatianab/transit-ace/internal/catalog"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
)

// Number of chat entries shown while playing.
const chatLimit = 100

type menuLoadedMsg struct {
	hasSession bool
	lang       models.Language
	name       string
	err        error
}

type resumedMsg struct {
	ok   bool
	chat []models.ChatEntry
	err  error
}

type generatedMsg struct {
	story models.GeneratedStory
	err   error
}

type storyStartedMsg struct {
	err error
}

type persistedMsg struct {
	chat []models.ChatEntry
	err  error
}

type storiesLoadedMsg struct {
	stories []models.StoryLine
	err     error
}

type settingSavedMsg struct {
	err error
}

func (m model) loadMenu() tea.Cmd {
	return func() tea.Msg {
		has, err := m.deps.Store.HasSession(m.ctx)
		if err != nil {
			return menuLoadedMsg{err: err}
		}
		msg := menuLoadedMsg{hasSession: has, lang: models.LanguageEnglish}
		lang, err := m.deps.Store.GetSetting(m.ctx, store.SettingLanguage)
		switch {
		case err == nil:
			msg.lang = models.ParseLanguage(lang)
		case !errors.Is(err, store.ErrNotFound):
			return menuLoadedMsg{err: err}
		}
		name, err := m.deps.Store.GetSetting(m.ctx, store.SettingPlayerName)
		switch {
		case err == nil:
			msg.name = name
		case !errors.Is(err, store.ErrNotFound):
			return menuLoadedMsg{err: err}
		}
		return msg
	}
}

func (m model) saveSetting(key, value string) tea.Cmd {
	return func() tea.Msg {
		return settingSavedMsg{err: m.deps.Store.SetSetting(m.ctx, key, value)}
	}
}

func (m model) resume() tea.Cmd {
	return func() tea.Msg {
		ok, err := m.deps.Session.Resume(m.ctx, m.deps.Store)
		if err != nil || !ok {
			return resumedMsg{ok: ok, err: err}
		}
		chat, err := m.deps.Store.ListChat(m.ctx, chatLimit)
		return resumedMsg{ok: true, chat: chat, err: err}
	}
}

func (m model) generate(ctx context.Context, lang models.Language, plot string) tea.Cmd {
	return func() tea.Msg {
		gs, err := m.deps.Generator.Generate(ctx, catalog.Rules(), lang, plot)
		return generatedMsg{story: gs, err: err}
	}
}

// startGenerated saves a new story and begins playing it.
func (m model) startGenerated(gs models.GeneratedStory) tea.Cmd {
	return func() tea.Msg {
		id, err := m.deps.Store.SaveStory(m.ctx, gs.Story, gs.Scenarios)
		if err != nil {
			return storyStartedMsg{err: fmt.Errorf("save story: %w", err)}
		}
		story := gs.Story
		story.ID = id
		if story.CreatedAt.IsZero() {
			story.CreatedAt = time.Now()
		}
		return storyStartedMsg{err: m.begin(story, gs.Scenarios)}
	}
}

// startDefault begins the built-in script for the chosen language.
func (m model) startDefault(lang models.Language) tea.Cmd {
	return func() tea.Msg {
		gs, err := catalog.Default(lang)
		if err != nil {
			return storyStartedMsg{err: err}
		}
		return m.startGenerated(gs)()
	}
}

// replay starts a saved story from the beginning.
func (m model) replay(story models.StoryLine) tea.Cmd {
	return func() tea.Msg {
		scenarios, err := m.deps.Store.ListScenarios(m.ctx, story.ID)
		if err != nil {
			return storyStartedMsg{err: fmt.Errorf("load scenarios: %w", err)}
		}
		return storyStartedMsg{err: m.begin(story, scenarios)}
	}
}

func (m model) begin(story models.StoryLine, scenarios []models.Scenario) error {
	if err := m.deps.Store.ClearChat(m.ctx); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	if err := m.deps.Session.Start(story, scenarios); err != nil {
		return err
	}
	m.deps.Session.Advance()
	return m.deps.Session.Persist(m.ctx, m.deps.Store)
}

// recordChoice appends the player's choice and Sophia's reply to the chat
// log, then saves progress.
func (m model) recordChoice(opt models.ScenarioOption) tea.Cmd {
	return func() tea.Msg {
		now := time.Now()
		entries := []models.ChatEntry{{Sender: models.SenderPlayer, Text: opt.Text, CreatedAt: now}}
		if opt.Commentary != "" {
			entries = append(entries, models.ChatEntry{Sender: models.SenderSophia, Text: opt.Commentary, CreatedAt: now})
		}
		for _, e := range entries {
			if _, err := m.deps.Store.AppendChat(m.ctx, e); err != nil {
				return persistedMsg{err: fmt.Errorf("append chat: %w", err)}
			}
		}
		if err := m.deps.Session.Persist(m.ctx, m.deps.Store); err != nil {
			return persistedMsg{err: err}
		}
		chat, err := m.deps.Store.ListChat(m.ctx, chatLimit)
		return persistedMsg{chat: chat, err: err}
	}
}

func (m model) persist() tea.Cmd {
	return func() tea.Msg {
		return persistedMsg{err: m.deps.Session.Persist(m.ctx, m.deps.Store)}
	}
}

func (m model) loadStories() tea.Cmd {
	return func() tea.Msg {
		stories, err := m.deps.Store.ListStories(m.ctx)
		return storiesLoadedMsg{stories: stories, err: err}
	}
}

func (m model) deleteStory(id int64) tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Store.DeleteStory(m.ctx, id); err != nil {
			return storiesLoadedMsg{err: err}
		}
		return m.loadStories()()
	}
}

func (m model) clearStories() tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Store.ClearStories(m.ctx); err != nil {
			return storiesLoadedMsg{err: err}
		}
		return m.loadStories()()
	}
}
