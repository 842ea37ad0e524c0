package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tatianab/transit-ace/internal/models"
	"github.com/tatianab/transit-ace/internal/store"
	"go.uber.org/zap"
)

// SessionStore is the part of store.Gateway a Session saves to and resumes
// from.
type SessionStore interface {
	SaveSession(ctx context.Context, saved models.SavedSession) error
	LoadSession(ctx context.Context) (models.SavedSession, error)
	DeleteSession(ctx context.Context) error
	GetStory(ctx context.Context, id int64) (models.StoryLine, error)
	ListScenarios(ctx context.Context, storyID int64) ([]models.Scenario, error)
}

// Session owns the live stats and cursor of one playthrough. It has a single
// writer; Snapshot may be called from any goroutine without blocking it.
type Session struct {
	ledger Ledger
	grader Grader
	logger *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	play play

	// persistMu orders Persist calls: each one reads the state and writes
	// it before the next starts, so the newest state is written last.
	persistMu sync.Mutex

	snap    atomic.Pointer[Snapshot]
	subsMu  sync.Mutex
	subs    map[int]func(Snapshot)
	nextSub int
}

// NewSession creates an uninitialized session.
func NewSession(ledger Ledger, grader Grader, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		ledger: ledger,
		grader: grader,
		logger: logger.Named("session"),
		now:    time.Now,
		subs:   make(map[int]func(Snapshot)),
	}
	s.snap.Store(s.play.snapshot())
	return s
}

// Snapshot returns the latest published state.
func (s *Session) Snapshot() Snapshot {
	return *s.snap.Load()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned func removes the subscription.
func (s *Session) Subscribe(fn func(Snapshot)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// commit publishes the current play state and notifies subscribers. It must
// be called with mu held and releases it.
func (s *Session) commit() {
	snap := s.play.snapshot()
	s.snap.Store(snap)
	s.mu.Unlock()

	s.subsMu.Lock()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		fn(*snap)
	}
}

// Start loads a story and its catalog. The session stays uninitialized until
// the first Advance.
func (s *Session) Start(story models.StoryLine, scenarios []models.Scenario) error {
	if len(scenarios) == 0 {
		return ErrEmptyCatalog
	}
	s.mu.Lock()
	s.play = newPlay(story, scenarios)
	s.logger.Info("session started",
		zap.Int64("storyID", story.ID),
		zap.String("title", story.Title),
		zap.Int("scenarios", len(scenarios)))
	s.commit()
	return nil
}

// Advance moves to the next scenario. It returns false once the catalog is
// exhausted, at which point the session is complete and graded.
func (s *Session) Advance() bool {
	s.mu.Lock()
	wasComplete := s.play.state == StateComplete
	ok := s.play.advance(s.grader)
	if !ok && !wasComplete && s.play.report != nil {
		s.logger.Info("session complete",
			zap.String("grade", s.play.report.Grade),
			zap.Float64("budget", s.play.stats.Budget),
			zap.Int("morale", s.play.stats.Morale),
			zap.Int("legalInfractions", s.play.stats.LegalInfractions))
	}
	s.commit()
	return ok
}

// ApplyOption applies the consequences of the chosen option to the stats. It
// does not advance. A second call for the same scenario visit is rejected
// with ErrOptionAlreadyApplied and leaves the stats unchanged.
func (s *Session) ApplyOption(optionID string) (models.ScenarioOption, error) {
	s.mu.Lock()
	opt, err := s.play.apply(s.ledger, optionID)
	if err != nil {
		s.mu.Unlock()
		return models.ScenarioOption{}, err
	}
	s.logger.Debug("option applied",
		zap.Int("cursor", s.play.cursor),
		zap.String("optionID", opt.ID),
		zap.Float64("budget", s.play.stats.Budget),
		zap.Int("morale", s.play.stats.Morale))
	s.commit()
	return opt, nil
}

// ProgressFraction is (cursor+1)/total, 0 without a catalog.
func (s *Session) ProgressFraction() float64 {
	return s.Snapshot().ProgressFraction()
}

// ProgressLabel renders textual progress such as "3/8".
func (s *Session) ProgressLabel() string {
	return s.Snapshot().ProgressLabel()
}

// Report returns the final report once the session is complete.
func (s *Session) Report() (models.GameReport, bool) {
	snap := s.Snapshot()
	if snap.Report == nil {
		return models.GameReport{}, false
	}
	return *snap.Report, true
}

// Reset restarts the current story from its seed values.
func (s *Session) Reset() {
	s.mu.Lock()
	s.play.reset()
	s.commit()
}

// SetLanguage selects the language of report summaries.
func (s *Session) SetLanguage(lang models.Language) {
	s.mu.Lock()
	s.grader.Language = lang
	s.mu.Unlock()
}

// ClearSession drops the story and catalog as well.
func (s *Session) ClearSession() {
	s.mu.Lock()
	s.play = play{cursor: -1}
	s.commit()
}

// Persist writes the resumable snapshot through st. A completed session
// removes any saved snapshot instead.
func (s *Session) Persist(ctx context.Context, st SessionStore) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	p := s.play
	s.mu.Unlock()

	if p.story == nil {
		return ErrNotStarted
	}
	if !p.story.Persisted() {
		return ErrStoryNotPersisted
	}
	if p.state == StateComplete {
		if err := st.DeleteSession(ctx); err != nil {
			return fmt.Errorf("delete finished session: %w", err)
		}
		return nil
	}

	saved := models.SavedSession{
		StoryID:       p.story.ID,
		CursorIndex:   p.cursor,
		Stats:         p.stats,
		Inventory:     append([]models.InventoryItem(nil), p.inventory...),
		OptionApplied: p.applied,
		SavedAt:       s.now().UTC(),
	}
	if err := st.SaveSession(ctx, saved); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	s.logger.Debug("session persisted", zap.Int64("storyID", saved.StoryID), zap.Int("cursor", saved.CursorIndex))
	return nil
}

// Resume restores the last saved snapshot. It reports false, leaving the
// session untouched, when there is no usable saved game.
func (s *Session) Resume(ctx context.Context, st SessionStore) (bool, error) {
	saved, err := st.LoadSession(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load session: %w", err)
	}

	story, err := st.GetStory(ctx, saved.StoryID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("saved session references a missing story", zap.Int64("storyID", saved.StoryID))
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load story %d: %w", saved.StoryID, err)
	}
	scenarios, err := st.ListScenarios(ctx, saved.StoryID)
	if err != nil {
		return false, fmt.Errorf("load scenarios for story %d: %w", saved.StoryID, err)
	}
	if len(scenarios) == 0 || saved.CursorIndex < -1 || saved.CursorIndex >= len(scenarios) || saved.Stats.LegalInfractions < 0 {
		s.logger.Warn("saved session is inconsistent with its story",
			zap.Int64("storyID", saved.StoryID),
			zap.Int("cursor", saved.CursorIndex),
			zap.Int("scenarios", len(scenarios)))
		return false, nil
	}

	p := newPlay(story, scenarios)
	for i := 0; i <= saved.CursorIndex; i++ {
		if !p.advance(s.grader) {
			return false, nil
		}
	}
	p.stats = saved.Stats
	p.inventory = append([]models.InventoryItem(nil), saved.Inventory...)
	p.applied = saved.OptionApplied && p.current != nil

	s.mu.Lock()
	s.play = p
	s.logger.Info("session resumed",
		zap.Int64("storyID", story.ID),
		zap.Int("cursor", saved.CursorIndex))
	s.commit()
	return true, nil
}
