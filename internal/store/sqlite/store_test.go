package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
	"github.com/tatianab/transit-ace/internal/store/storetest"
	"go.uber.org/zap"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "transit-ace.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("", nil); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store {
		return openTempStore(t)
	})
}

func TestSaveSessionRequiresExistingStory(t *testing.T) {
	s := openTempStore(t)
	err := s.SaveSession(context.Background(), models.SavedSession{StoryID: 99})
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transit-ace.db")
	s, err := Open(path, nil)
	require.NoError(t, err)
	story, sc := storetest.Story("Persistent")
	id, err := s.SaveStory(context.Background(), story, sc)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, nil)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.GetStory(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Persistent", got.Title)
}

func TestSaveStoryIsAtomic(t *testing.T) {
	s := openTempStore(t)
	story, sc := storetest.Story("Duplicated")
	sc[1].ID = sc[0].ID

	_, err := s.SaveStory(context.Background(), story, sc)
	require.Error(t, err)

	stories, err := s.ListStories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stories)
}
