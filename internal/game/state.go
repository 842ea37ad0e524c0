package game

import (
	"fmt"

	"github.com/tatianab/transit-ace/internal/models"
)

// State is the lifecycle position of a Session.
type State int

const (
	StateUninitialized State = iota
	StateInProgress
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInProgress:
		return "in_progress"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// play is the unsynchronized state machine behind a Session.
type play struct {
	story      *models.StoryLine
	catalog    []models.Scenario
	cursor     int
	current    *models.Scenario
	stats      models.UserStats
	inventory  []models.InventoryItem
	applied    bool
	lastOption *models.ScenarioOption
	state      State
	report     *models.GameReport
}

func newPlay(story models.StoryLine, scenarios []models.Scenario) play {
	return play{
		story:   &story,
		catalog: append([]models.Scenario(nil), scenarios...),
		cursor:  -1,
		stats:   story.SeedStats(),
	}
}

// advance moves the cursor forward. Running past the last scenario completes
// the game and grades it.
func (p *play) advance(grader Grader) bool {
	if p.story == nil || p.state == StateComplete {
		return false
	}
	next := p.cursor + 1
	if next >= len(p.catalog) {
		report := grader.ComputeStats(p.stats, *p.story)
		p.report = &report
		p.state = StateComplete
		return false
	}
	sc := p.catalog[next]
	sc.Index = next
	p.cursor = next
	p.current = &sc
	p.applied = false
	p.lastOption = nil
	p.state = StateInProgress
	return true
}

func (p *play) apply(ledger Ledger, optionID string) (models.ScenarioOption, error) {
	if p.state != StateInProgress || p.current == nil {
		return models.ScenarioOption{}, ErrNotInProgress
	}
	if p.applied {
		return models.ScenarioOption{}, ErrOptionAlreadyApplied
	}
	opt, ok := p.current.Option(optionID)
	if !ok {
		return models.ScenarioOption{}, fmt.Errorf("%w: %q in scenario %q", ErrUnknownOption, optionID, p.current.ID)
	}
	p.stats = ledger.Apply(p.stats, opt.BudgetImpact, opt.MoraleImpact, opt.LegalInfraction)
	p.inventory = append(p.inventory, opt.Items...)
	p.applied = true
	p.lastOption = &opt
	return opt, nil
}

// reset replays the same story from the beginning.
func (p *play) reset() {
	if p.story == nil {
		return
	}
	*p = play{
		story:   p.story,
		catalog: p.catalog,
		cursor:  -1,
		stats:   p.story.SeedStats(),
	}
}

func (p *play) snapshot() *Snapshot {
	snap := &Snapshot{
		State:         p.state,
		Cursor:        p.cursor,
		Total:         len(p.catalog),
		Stats:         p.stats,
		Inventory:     append([]models.InventoryItem(nil), p.inventory...),
		OptionApplied: p.applied,
	}
	if p.story == nil {
		snap.Cursor = -1
	} else {
		snap.Story = *p.story
		snap.HasStory = true
	}
	if p.current != nil {
		sc := *p.current
		sc.Options = make([]models.ScenarioOption, len(p.current.Options))
		for i, opt := range p.current.Options {
			sc.Options[i] = cloneOption(opt)
		}
		snap.Current = &sc
	}
	if p.lastOption != nil {
		opt := cloneOption(*p.lastOption)
		snap.LastOption = &opt
	}
	if p.report != nil {
		r := *p.report
		snap.Report = &r
	}
	return snap
}

func cloneOption(opt models.ScenarioOption) models.ScenarioOption {
	opt.Items = append([]models.InventoryItem(nil), opt.Items...)
	return opt
}

// Snapshot is an immutable view of a Session at one point in time.
type Snapshot struct {
	State         State
	Story         models.StoryLine
	HasStory      bool
	Current       *models.Scenario
	Cursor        int
	Total         int
	Stats         models.UserStats
	Inventory     []models.InventoryItem
	OptionApplied bool
	LastOption    *models.ScenarioOption
	Report        *models.GameReport
}

// ProgressFraction is (cursor+1)/total, or 0 without a catalog.
func (s Snapshot) ProgressFraction() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Cursor+1) / float64(s.Total)
}

// ProgressLabel renders "{index}/{total}" from the current scenario's stamped
// index.
func (s Snapshot) ProgressLabel() string {
	idx := 0
	if s.Current != nil {
		idx = s.Current.Index
	}
	return fmt.Sprintf("%d/%d", idx, s.Total)
}
