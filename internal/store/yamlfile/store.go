// Package yamlfile implements store.Store as a directory of YAML files:
//
//	<dir>/meta.yaml
//	<dir>/session.yaml
//	<dir>/settings.yaml
//	<dir>/chat.yaml
//	<dir>/stories/<id>/story.yaml
//	<dir>/stories/<id>/scenarios.yaml
package yamlfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var _ store.Store = (*Store)(nil)

const (
	metaFile      = "meta.yaml"
	sessionFile   = "session.yaml"
	settingsFile  = "settings.yaml"
	chatFile      = "chat.yaml"
	storiesDir    = "stories"
	storyFile     = "story.yaml"
	scenariosFile = "scenarios.yaml"
)

// Store keeps everything under one directory. All access goes through a
// single lock and files are replaced by rename, so readers never see a
// partial write.
type Store struct {
	dir    string
	logger *zap.Logger
	mu     sync.RWMutex
}

type meta struct {
	NextStoryID int64 `yaml:"next_story_id"`
	NextChatID  int64 `yaml:"next_chat_id"`
}

// Open prepares dir for use, creating it if needed.
func Open(dir string, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage directory is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Join(dir, storiesDir), 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Store{dir: dir, logger: logger.Named("YAMLStore")}, nil
}

// Close is a no-op; there is nothing to release.
func (s *Store) Close() error {
	return nil
}

func (s *Store) path(parts ...string) string {
	return filepath.Join(append([]string{s.dir}, parts...)...)
}

func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	return writeFileAtomic(path, data)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// readYAML returns store.ErrNotFound when the file does not exist.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return store.ErrNotFound
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func (s *Store) loadMeta() (meta, error) {
	m := meta{NextStoryID: 1, NextChatID: 1}
	if err := readYAML(s.path(metaFile), &m); err != nil && !errors.Is(err, store.ErrNotFound) {
		return meta{}, fmt.Errorf("read meta: %w", err)
	}
	return m, nil
}

func (s *Store) SaveSession(ctx context.Context, saved models.SavedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := os.Stat(s.path(storiesDir, storyDirName(saved.StoryID), storyFile)); err != nil {
		return fmt.Errorf("save session: story %d: %w", saved.StoryID, store.ErrNotFound)
	}
	if err := writeYAML(s.path(sessionFile), saved); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Store) LoadSession(ctx context.Context) (models.SavedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var saved models.SavedSession
	if err := readYAML(s.path(sessionFile), &saved); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.SavedSession{}, err
		}
		return models.SavedSession{}, fmt.Errorf("load session: %w", err)
	}
	return saved, nil
}

func (s *Store) DeleteSession(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteSessionLocked()
}

func (s *Store) deleteSessionLocked() error {
	if err := os.Remove(s.path(sessionFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *Store) HasSession(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := os.Stat(s.path(sessionFile))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat session: %w", err)
	}
	return true, nil
}

func storyDirName(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Store) readStory(id int64) (models.StoryLine, error) {
	var story models.StoryLine
	if err := readYAML(s.path(storiesDir, storyDirName(id), storyFile), &story); err != nil {
		return models.StoryLine{}, err
	}
	story.ID = id
	return story, nil
}

func (s *Store) ListStories(ctx context.Context) ([]models.StoryLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.path(storiesDir))
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	stories := []models.StoryLine{}
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		story, err := s.readStory(id)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read story %d: %w", id, err)
		}
		stories = append(stories, story)
	}
	sort.Slice(stories, func(i, j int) bool {
		if !stories[i].CreatedAt.Equal(stories[j].CreatedAt) {
			return stories[i].CreatedAt.After(stories[j].CreatedAt)
		}
		return stories[i].ID > stories[j].ID
	})
	return stories, nil
}

func (s *Store) GetStory(ctx context.Context, id int64) (models.StoryLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	story, err := s.readStory(id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return models.StoryLine{}, fmt.Errorf("get story %d: %w", id, err)
	}
	return story, err
}

func (s *Store) ListScenarios(ctx context.Context, storyID int64) ([]models.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var scenarios []models.Scenario
	err := readYAML(s.path(storiesDir, storyDirName(storyID), scenariosFile), &scenarios)
	if errors.Is(err, store.ErrNotFound) {
		return []models.Scenario{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list scenarios of story %d: %w", storyID, err)
	}
	return scenarios, nil
}

// SaveStory writes the story into a hidden staging directory and renames it
// into place once complete.
func (s *Store) SaveStory(ctx context.Context, story models.StoryLine, scenarios []models.Scenario) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadMeta()
	if err != nil {
		return 0, err
	}
	id := m.NextStoryID
	// A directory left by a save whose meta write failed keeps its id.
	for {
		if _, err := os.Stat(s.path(storiesDir, storyDirName(id))); errors.Is(err, fs.ErrNotExist) {
			break
		} else if err != nil {
			return 0, fmt.Errorf("check story directory: %w", err)
		}
		id++
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now()
	}
	story.CreatedAt = story.CreatedAt.UTC().Truncate(time.Millisecond)

	staging, err := os.MkdirTemp(s.path(storiesDir), ".staging-*")
	if err != nil {
		return 0, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := writeYAML(filepath.Join(staging, storyFile), story); err != nil {
		return 0, fmt.Errorf("write story: %w", err)
	}
	if scenarios == nil {
		scenarios = []models.Scenario{}
	}
	if err := writeYAML(filepath.Join(staging, scenariosFile), scenarios); err != nil {
		return 0, fmt.Errorf("write scenarios: %w", err)
	}

	m.NextStoryID = id + 1
	if err := writeYAML(s.path(metaFile), m); err != nil {
		return 0, fmt.Errorf("write meta: %w", err)
	}
	if err := os.Rename(staging, s.path(storiesDir, storyDirName(id))); err != nil {
		return 0, fmt.Errorf("publish story: %w", err)
	}
	s.logger.Debug("story saved", zap.Int64("storyID", id), zap.Int("scenarios", len(scenarios)))
	return id, nil
}

func (s *Store) DeleteStory(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var saved models.SavedSession
	err := readYAML(s.path(sessionFile), &saved)
	switch {
	case err == nil && saved.StoryID == id:
		if err := s.deleteSessionLocked(); err != nil {
			return err
		}
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("read session: %w", err)
	}
	if err := os.RemoveAll(s.path(storiesDir, storyDirName(id))); err != nil {
		return fmt.Errorf("delete story %d: %w", id, err)
	}
	return nil
}

func (s *Store) ClearStories(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteSessionLocked(); err != nil {
		return err
	}
	if err := os.RemoveAll(s.path(storiesDir)); err != nil {
		return fmt.Errorf("clear stories: %w", err)
	}
	if err := os.MkdirAll(s.path(storiesDir), 0755); err != nil {
		return fmt.Errorf("clear stories: %w", err)
	}
	return nil
}

func (s *Store) readSettings() (map[string]string, error) {
	settings := map[string]string{}
	if err := readYAML(s.path(settingsFile), &settings); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	return settings, nil
}

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	settings, err := s.readSettings()
	if err != nil {
		return "", err
	}
	value, ok := settings[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return value, nil
}

func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	settings, err := s.readSettings()
	if err != nil {
		return err
	}
	settings[key] = value
	if err := writeYAML(s.path(settingsFile), settings); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

func (s *Store) readChat() ([]models.ChatEntry, error) {
	var entries []models.ChatEntry
	if err := readYAML(s.path(chatFile), &entries); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("read chat: %w", err)
	}
	return entries, nil
}

func (s *Store) AppendChat(ctx context.Context, entry models.ChatEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadMeta()
	if err != nil {
		return 0, err
	}
	entries, err := s.readChat()
	if err != nil {
		return 0, err
	}
	entry.ID = m.NextChatID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	entry.CreatedAt = entry.CreatedAt.UTC().Truncate(time.Millisecond)
	entries = append(entries, entry)
	if err := writeYAML(s.path(chatFile), entries); err != nil {
		return 0, fmt.Errorf("write chat: %w", err)
	}
	m.NextChatID++
	if err := writeYAML(s.path(metaFile), m); err != nil {
		return 0, fmt.Errorf("write meta: %w", err)
	}
	return entry.ID, nil
}

func (s *Store) ListChat(ctx context.Context, limit int) ([]models.ChatEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries, err := s.readChat()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]models.ChatEntry{}, entries...), nil
}

func (s *Store) ClearChat(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(chatFile)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear chat: %w", err)
	}
	return nil
}
