// Package sqlite implements store.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

var _ store.Store = (*Store)(nil)

// Store provides SQLite-backed persistence.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type storyRow struct {
	ID            int64   `db:"id"`
	Title         string  `db:"title"`
	Description   string  `db:"description"`
	CreatedAt     int64   `db:"created_at"`
	InitialBudget float64 `db:"initial_budget"`
	InitialMorale int     `db:"initial_morale"`
}

type scenarioRow struct {
	StoryID         int64  `db:"story_id"`
	Position        int    `db:"position"`
	ScenarioID      string `db:"scenario_id"`
	Title           string `db:"title"`
	Description     string `db:"description"`
	OptionsJSON     string `db:"options_json"`
	CorrectOptionID string `db:"correct_option_id"`
	NextScenarioID  string `db:"next_scenario_id"`
	Theme           string `db:"theme"`
}

type sessionRow struct {
	StoryID          int64   `db:"story_id"`
	CursorIndex      int     `db:"cursor_index"`
	Budget           float64 `db:"budget"`
	Morale           int     `db:"morale"`
	LegalInfractions int     `db:"legal_infractions"`
	OptionApplied    bool    `db:"option_applied"`
	InventoryJSON    string  `db:"inventory_json"`
	SavedAt          int64   `db:"saved_at"`
}

type chatRow struct {
	ID        int64  `db:"id"`
	Sender    string `db:"sender"`
	Text      string `db:"text"`
	CreatedAt int64  `db:"created_at"`
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection serializes every read and write.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := ensureForeignKeysEnabled(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, logger: logger.Named("SQLiteStore")}, nil
}

func ensureForeignKeysEnabled(db *sqlx.DB) error {
	var enabled int
	if err := db.Get(&enabled, "PRAGMA foreign_keys"); err != nil {
		return fmt.Errorf("check sqlite foreign key pragma: %w", err)
	}
	if enabled != 1 {
		return fmt.Errorf("sqlite foreign keys are disabled")
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// withTx runs fn in a transaction, rolling back when it fails.
func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return fmt.Errorf("%w: rollback: %v", err, rollbackErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveSession replaces the saved session in a single statement.
func (s *Store) SaveSession(ctx context.Context, saved models.SavedSession) error {
	inventory, err := json.Marshal(nonNilItems(saved.Inventory))
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	row := sessionRow{
		StoryID:          saved.StoryID,
		CursorIndex:      saved.CursorIndex,
		Budget:           saved.Stats.Budget,
		Morale:           saved.Stats.Morale,
		LegalInfractions: saved.Stats.LegalInfractions,
		OptionApplied:    saved.OptionApplied,
		InventoryJSON:    string(inventory),
		SavedAt:          toMillis(saved.SavedAt),
	}
	_, err = s.db.NamedExecContext(ctx, `
        INSERT OR REPLACE INTO saved_session
            (slot, story_id, cursor_index, budget, morale, legal_infractions, option_applied, inventory_json, saved_at)
        VALUES
            (1, :story_id, :cursor_index, :budget, :morale, :legal_infractions, :option_applied, :inventory_json, :saved_at)
    `, row)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) LoadSession(ctx context.Context) (models.SavedSession, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, `
        SELECT story_id, cursor_index, budget, morale, legal_infractions, option_applied, inventory_json, saved_at
        FROM saved_session WHERE slot = 1
    `)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SavedSession{}, store.ErrNotFound
	}
	if err != nil {
		return models.SavedSession{}, fmt.Errorf("load session: %w", err)
	}
	var inventory []models.InventoryItem
	if err := json.Unmarshal([]byte(row.InventoryJSON), &inventory); err != nil {
		return models.SavedSession{}, fmt.Errorf("decode inventory: %w", err)
	}
	return models.SavedSession{
		StoryID:     row.StoryID,
		CursorIndex: row.CursorIndex,
		Stats: models.UserStats{
			Budget:           row.Budget,
			Morale:           row.Morale,
			LegalInfractions: row.LegalInfractions,
		},
		Inventory:     inventory,
		OptionApplied: row.OptionApplied,
		SavedAt:       fromMillis(row.SavedAt),
	}, nil
}

func (s *Store) DeleteSession(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM saved_session`); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) HasSession(ctx context.Context) (bool, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM saved_session`); err != nil {
		return false, fmt.Errorf("count sessions: %w", err)
	}
	return n > 0, nil
}

func (s *Store) ListStories(ctx context.Context) ([]models.StoryLine, error) {
	var rows []storyRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT id, title, description, created_at, initial_budget, initial_morale
        FROM stories ORDER BY created_at DESC, id DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	stories := make([]models.StoryLine, 0, len(rows))
	for _, row := range rows {
		stories = append(stories, row.model())
	}
	return stories, nil
}

func (s *Store) GetStory(ctx context.Context, id int64) (models.StoryLine, error) {
	var row storyRow
	err := s.db.GetContext(ctx, &row, `
        SELECT id, title, description, created_at, initial_budget, initial_morale
        FROM stories WHERE id = ?
    `, id)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StoryLine{}, store.ErrNotFound
	}
	if err != nil {
		return models.StoryLine{}, fmt.Errorf("get story %d: %w", id, err)
	}
	return row.model(), nil
}

func (s *Store) ListScenarios(ctx context.Context, storyID int64) ([]models.Scenario, error) {
	var rows []scenarioRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT story_id, position, scenario_id, title, description, options_json, correct_option_id, next_scenario_id, theme
        FROM scenarios WHERE story_id = ? ORDER BY position
    `, storyID)
	if err != nil {
		return nil, fmt.Errorf("list scenarios of story %d: %w", storyID, err)
	}
	scenarios := make([]models.Scenario, 0, len(rows))
	for _, row := range rows {
		var options []models.ScenarioOption
		if err := json.Unmarshal([]byte(row.OptionsJSON), &options); err != nil {
			return nil, fmt.Errorf("decode options of scenario %q: %w", row.ScenarioID, err)
		}
		scenarios = append(scenarios, models.Scenario{
			ID:              row.ScenarioID,
			Title:           row.Title,
			Description:     row.Description,
			Options:         options,
			CorrectOptionID: row.CorrectOptionID,
			NextScenarioID:  row.NextScenarioID,
			Theme:           row.Theme,
		})
	}
	return scenarios, nil
}

// SaveStory writes the story and every scenario in one transaction.
func (s *Store) SaveStory(ctx context.Context, story models.StoryLine, scenarios []models.Scenario) (int64, error) {
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}
	var id int64
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
            INSERT INTO stories (title, description, created_at, initial_budget, initial_morale)
            VALUES (?, ?, ?, ?, ?)
        `, story.Title, story.Description, toMillis(story.CreatedAt), story.InitialBudget, story.InitialMorale)
		if err != nil {
			return fmt.Errorf("insert story: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("story id: %w", err)
		}
		for i, sc := range scenarios {
			options, err := json.Marshal(sc.Options)
			if err != nil {
				return fmt.Errorf("encode options of scenario %q: %w", sc.ID, err)
			}
			row := scenarioRow{
				StoryID:         id,
				Position:        i,
				ScenarioID:      sc.ID,
				Title:           sc.Title,
				Description:     sc.Description,
				OptionsJSON:     string(options),
				CorrectOptionID: sc.CorrectOptionID,
				NextScenarioID:  sc.NextScenarioID,
				Theme:           sc.Theme,
			}
			if _, err := tx.NamedExecContext(ctx, `
                INSERT INTO scenarios
                    (story_id, position, scenario_id, title, description, options_json, correct_option_id, next_scenario_id, theme)
                VALUES
                    (:story_id, :position, :scenario_id, :title, :description, :options_json, :correct_option_id, :next_scenario_id, :theme)
            `, row); err != nil {
				return fmt.Errorf("insert scenario %q: %w", sc.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.logger.Debug("story saved", zap.Int64("storyID", id), zap.Int("scenarios", len(scenarios)))
	return id, nil
}

// DeleteStory relies on ON DELETE CASCADE for scenarios and the saved session.
func (s *Store) DeleteStory(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete story %d: %w", id, err)
	}
	return nil
}

func (s *Store) ClearStories(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM stories`); err != nil {
		return fmt.Errorf("clear stories: %w", err)
	}
	return nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO settings (key, value) VALUES (?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value
    `, key, value)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) AppendChat(ctx context.Context, entry models.ChatEntry) (int64, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx, `
        INSERT INTO chat_messages (sender, text, created_at) VALUES (?, ?, ?)
    `, entry.Sender, entry.Text, toMillis(entry.CreatedAt))
	if err != nil {
		return 0, fmt.Errorf("append chat: %w", err)
	}
	return res.LastInsertId()
}

func (s *Store) ListChat(ctx context.Context, limit int) ([]models.ChatEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	var rows []chatRow
	err := s.db.SelectContext(ctx, &rows, `
        SELECT id, sender, text, created_at FROM (
            SELECT id, sender, text, created_at FROM chat_messages ORDER BY id DESC LIMIT ?
        ) ORDER BY id ASC
    `, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat: %w", err)
	}
	entries := make([]models.ChatEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, models.ChatEntry{
			ID:        row.ID,
			Sender:    row.Sender,
			Text:      row.Text,
			CreatedAt: fromMillis(row.CreatedAt),
		})
	}
	return entries, nil
}

func (s *Store) ClearChat(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages`); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	return nil
}

func (r storyRow) model() models.StoryLine {
	return models.StoryLine{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		CreatedAt:     fromMillis(r.CreatedAt),
		InitialBudget: r.InitialBudget,
		InitialMorale: r.InitialMorale,
	}
}

func nonNilItems(items []models.InventoryItem) []models.InventoryItem {
	if items == nil {
		return []models.InventoryItem{}
	}
	return items
}
