// Package storetest holds the behaviour every store.Store implementation must
// share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
)

// Story returns a small two-scenario story for tests.
func Story(title string) (models.StoryLine, []models.Scenario) {
	story := models.StoryLine{
		Title:         title,
		Description:   "A day on line 1",
		CreatedAt:     time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC),
		InitialBudget: 50.25,
		InitialMorale: 70,
	}
	scenarios := []models.Scenario{
		{
			ID:              "ticket",
			Title:           "Buying a ticket",
			Description:     "The machine only takes cards.",
			CorrectOptionID: "card",
			NextScenarioID:  "gate",
			Theme:           "station",
			Options: []models.ScenarioOption{
				{ID: "card", Text: "Pay by card", BudgetImpact: -2.15, Commentary: "Smart."},
				{
					ID: "jump", Text: "Skip it", MoraleImpact: 3, LegalInfraction: 1,
					Items: []models.InventoryItem{{Name: "Guilt", Description: "Heavy", Image: "guilt.png"}},
				},
			},
		},
		{
			ID:    "gate",
			Title: "The gate",
			Theme: "metro",
			Options: []models.ScenarioOption{
				{ID: "push", Text: "Push through", MoraleImpact: -4},
			},
		},
	}
	return story, scenarios
}

// Run exercises open against the full store contract. open must return a
// fresh, empty store.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("StoryRoundTrip", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		story, scenarios := Story("Rush hour")

		id, err := s.SaveStory(ctx, story, scenarios)
		require.NoError(t, err)
		require.NotZero(t, id)

		got, err := s.GetStory(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, story.Title, got.Title)
		assert.Equal(t, story.Description, got.Description)
		assert.Equal(t, story.InitialBudget, got.InitialBudget)
		assert.Equal(t, story.InitialMorale, got.InitialMorale)
		assert.True(t, story.CreatedAt.Equal(got.CreatedAt))

		gotScenarios, err := s.ListScenarios(ctx, id)
		require.NoError(t, err)
		require.Len(t, gotScenarios, 2)
		assert.Equal(t, scenarios[0].ID, gotScenarios[0].ID)
		assert.Equal(t, scenarios[1].ID, gotScenarios[1].ID)
		assert.Equal(t, scenarios[0].Options, gotScenarios[0].Options)
		assert.Equal(t, "card", gotScenarios[0].CorrectOptionID)
		assert.Equal(t, "gate", gotScenarios[0].NextScenarioID)
		assert.Equal(t, "station", gotScenarios[0].Theme)
	})

	t.Run("GetMissingStory", func(t *testing.T) {
		s := open(t)
		_, err := s.GetStory(context.Background(), 404)
		assert.ErrorIs(t, err, store.ErrNotFound)

		scenarios, err := s.ListScenarios(context.Background(), 404)
		require.NoError(t, err)
		assert.Empty(t, scenarios)
	})

	t.Run("ListStoriesNewestFirst", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		older, sc := Story("Older")
		newer, _ := Story("Newer")
		newer.CreatedAt = older.CreatedAt.Add(time.Hour)

		_, err := s.SaveStory(ctx, older, sc)
		require.NoError(t, err)
		_, err = s.SaveStory(ctx, newer, sc)
		require.NoError(t, err)

		stories, err := s.ListStories(ctx)
		require.NoError(t, err)
		require.Len(t, stories, 2)
		assert.Equal(t, "Newer", stories[0].Title)
		assert.Equal(t, "Older", stories[1].Title)
	})

	t.Run("SessionLifecycle", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()

		has, err := s.HasSession(ctx)
		require.NoError(t, err)
		assert.False(t, has)
		_, err = s.LoadSession(ctx)
		assert.ErrorIs(t, err, store.ErrNotFound)

		story, sc := Story("Saved")
		id, err := s.SaveStory(ctx, story, sc)
		require.NoError(t, err)

		saved := models.SavedSession{
			StoryID:       id,
			CursorIndex:   1,
			Stats:         models.UserStats{Budget: 48.1 - 0.35, Morale: -3, LegalInfractions: 2},
			Inventory:     []models.InventoryItem{{Name: "Navigo"}},
			OptionApplied: true,
			SavedAt:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		}
		require.NoError(t, s.SaveSession(ctx, saved))

		has, err = s.HasSession(ctx)
		require.NoError(t, err)
		assert.True(t, has)

		got, err := s.LoadSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, saved.StoryID, got.StoryID)
		assert.Equal(t, saved.CursorIndex, got.CursorIndex)
		assert.Equal(t, saved.Stats, got.Stats)
		assert.Equal(t, saved.Inventory, got.Inventory)
		assert.True(t, got.OptionApplied)
		assert.True(t, saved.SavedAt.Equal(got.SavedAt))

		saved.CursorIndex = 0
		saved.OptionApplied = false
		require.NoError(t, s.SaveSession(ctx, saved))
		got, err = s.LoadSession(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, got.CursorIndex)
		assert.False(t, got.OptionApplied)

		require.NoError(t, s.DeleteSession(ctx))
		_, err = s.LoadSession(ctx)
		assert.ErrorIs(t, err, store.ErrNotFound)
		require.NoError(t, s.DeleteSession(ctx))
	})

	t.Run("DeleteStoryDropsItsSession", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		story, sc := Story("Doomed")
		id, err := s.SaveStory(ctx, story, sc)
		require.NoError(t, err)
		require.NoError(t, s.SaveSession(ctx, models.SavedSession{StoryID: id, CursorIndex: 0, SavedAt: time.Now()}))

		require.NoError(t, s.DeleteStory(ctx, id))

		_, err = s.GetStory(ctx, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
		scenarios, err := s.ListScenarios(ctx, id)
		require.NoError(t, err)
		assert.Empty(t, scenarios)
		has, err := s.HasSession(ctx)
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("ClearStories", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		story, sc := Story("One")
		first, err := s.SaveStory(ctx, story, sc)
		require.NoError(t, err)
		_, err = s.SaveStory(ctx, story, sc)
		require.NoError(t, err)

		require.NoError(t, s.ClearStories(ctx))
		stories, err := s.ListStories(ctx)
		require.NoError(t, err)
		assert.Empty(t, stories)

		next, err := s.SaveStory(ctx, story, sc)
		require.NoError(t, err)
		assert.NotEqual(t, first, next)
	})

	t.Run("Settings", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		_, err := s.GetSetting(ctx, store.SettingLanguage)
		assert.ErrorIs(t, err, store.ErrNotFound)

		require.NoError(t, s.SetSetting(ctx, store.SettingLanguage, "fr"))
		require.NoError(t, s.SetSetting(ctx, store.SettingPlayerName, "Amélie"))
		require.NoError(t, s.SetSetting(ctx, store.SettingLanguage, "en"))

		lang, err := s.GetSetting(ctx, store.SettingLanguage)
		require.NoError(t, err)
		assert.Equal(t, "en", lang)
		name, err := s.GetSetting(ctx, store.SettingPlayerName)
		require.NoError(t, err)
		assert.Equal(t, "Amélie", name)
	})

	t.Run("ChatLog", func(t *testing.T) {
		s := open(t)
		ctx := context.Background()
		for i, text := range []string{"Bonjour", "Which line?", "Take the 4"} {
			sender := models.SenderSophia
			if i == 1 {
				sender = models.SenderPlayer
			}
			id, err := s.AppendChat(ctx, models.ChatEntry{Sender: sender, Text: text})
			require.NoError(t, err)
			assert.NotZero(t, id)
		}

		all, err := s.ListChat(ctx, 0)
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "Bonjour", all[0].Text)
		assert.Equal(t, models.SenderPlayer, all[1].Sender)

		last, err := s.ListChat(ctx, 2)
		require.NoError(t, err)
		require.Len(t, last, 2)
		assert.Equal(t, "Which line?", last[0].Text)
		assert.Equal(t, "Take the 4", last[1].Text)

		require.NoError(t, s.ClearChat(ctx))
		all, err = s.ListChat(ctx, 0)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}
