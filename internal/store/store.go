// Package store defines the persistence contract for stories, the saved
// session, settings and the chat log.
package store

import (
	"context"
	"errors"

	"github.com/tatianab/transit-ace/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Setting keys.
const (
	SettingLanguage   = "language"
	SettingPlayerName = "player_name"
)

// Gateway stores stories with their scenario catalogs and the single
// resumable session. Every write is atomic: readers never observe a partly
// written story or session.
type Gateway interface {
	SaveSession(ctx context.Context, saved models.SavedSession) error
	// LoadSession returns ErrNotFound when no game is saved.
	LoadSession(ctx context.Context) (models.SavedSession, error)
	DeleteSession(ctx context.Context) error
	HasSession(ctx context.Context) (bool, error)

	// ListStories returns stories newest first.
	ListStories(ctx context.Context) ([]models.StoryLine, error)
	// GetStory returns ErrNotFound for unknown IDs.
	GetStory(ctx context.Context, id int64) (models.StoryLine, error)
	// ListScenarios returns the catalog of a story in play order.
	ListScenarios(ctx context.Context, storyID int64) ([]models.Scenario, error)
	// SaveStory inserts the story and its catalog and returns the new ID.
	SaveStory(ctx context.Context, story models.StoryLine, scenarios []models.Scenario) (int64, error)
	// DeleteStory removes the story, its catalog and a saved session that
	// points at it.
	DeleteStory(ctx context.Context, id int64) error
	ClearStories(ctx context.Context) error
}

// Settings is a key-value store for player preferences.
type Settings interface {
	// GetSetting returns ErrNotFound for unset keys.
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// ChatLog is the append-only conversation history.
type ChatLog interface {
	AppendChat(ctx context.Context, entry models.ChatEntry) (int64, error)
	// ListChat returns the last limit entries oldest first; limit <= 0 means all.
	ListChat(ctx context.Context, limit int) ([]models.ChatEntry, error)
	ClearChat(ctx context.Context) error
}

// Store is everything the application persists.
type Store interface {
	Gateway
	Settings
	ChatLog
	Close() error
}
