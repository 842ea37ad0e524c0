package models

import "time"

// StoryLine is the narrative envelope of one playthrough.
type StoryLine struct {
	ID            int64     `yaml:"-" json:"id"` // 0 until persisted
	Title         string    `yaml:"title" json:"title"`
	Description   string    `yaml:"description" json:"description"`
	CreatedAt     time.Time `yaml:"created_at,omitempty" json:"created_at"`
	InitialBudget float64   `yaml:"initial_budget" json:"initial_budget"` // euros
	InitialMorale int       `yaml:"initial_morale" json:"initial_morale"` // 0-100 by convention
}

// Persisted reports whether the story has been assigned an ID by a store.
func (s StoryLine) Persisted() bool {
	return s.ID != 0
}

// Scenario is a single decision point.
type Scenario struct {
	ID              string           `yaml:"id" json:"id"`
	Title           string           `yaml:"title" json:"title"`
	Description     string           `yaml:"description" json:"description"`
	Options         []ScenarioOption `yaml:"options" json:"options"`
	CorrectOptionID string           `yaml:"correct_option_id,omitempty" json:"correct_option_id,omitempty"`
	NextScenarioID  string           `yaml:"next_scenario_id,omitempty" json:"next_scenario_id,omitempty"` // informational, never followed
	Index           int              `yaml:"-" json:"-"`                                                   // stamped at runtime
	Theme           string           `yaml:"theme,omitempty" json:"theme,omitempty"`                       // art selection only
}

// Option returns the option with the given ID.
func (s Scenario) Option(id string) (ScenarioOption, bool) {
	for _, o := range s.Options {
		if o.ID == id {
			return o, true
		}
	}
	return ScenarioOption{}, false
}

// ScenarioOption is one player-facing choice and its consequences.
type ScenarioOption struct {
	ID              string          `yaml:"id" json:"id"`
	Text            string          `yaml:"text" json:"text"`
	BudgetImpact    float64         `yaml:"budget_impact,omitempty" json:"budget_impact,omitempty"`
	MoraleImpact    int             `yaml:"morale_impact,omitempty" json:"morale_impact,omitempty"`
	Commentary      string          `yaml:"commentary,omitempty" json:"commentary,omitempty"`
	Items           []InventoryItem `yaml:"items,omitempty" json:"items,omitempty"`
	LegalInfraction int             `yaml:"legal_infraction,omitempty" json:"legal_infraction,omitempty"`
}

// InventoryItem is granted to the player by an option.
type InventoryItem struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Image       string `yaml:"image,omitempty" json:"image,omitempty"`
}

// UserStats is the mutable triple tracked through a session.
type UserStats struct {
	Budget           float64 `yaml:"budget" json:"budget"`
	Morale           int     `yaml:"morale" json:"morale"`
	LegalInfractions int     `yaml:"legal_infractions" json:"legal_infractions"`
}

// SeedStats returns the stats a session starts with for the story.
func (s StoryLine) SeedStats() UserStats {
	return UserStats{Budget: s.InitialBudget, Morale: s.InitialMorale}
}

// GameReport is the terminal grade of a playthrough.
type GameReport struct {
	Grade   string `yaml:"grade" json:"grade"`
	Summary string `yaml:"summary" json:"summary"`
}

// SavedSession is the resumable snapshot written through a store.
type SavedSession struct {
	StoryID       int64           `yaml:"story_id"`
	CursorIndex   int             `yaml:"cursor_index"`
	Stats         UserStats       `yaml:"stats"`
	Inventory     []InventoryItem `yaml:"inventory,omitempty"`
	OptionApplied bool            `yaml:"option_applied"`
	SavedAt       time.Time       `yaml:"saved_at"`
}

// Chat senders.
const (
	SenderPlayer = "player"
	SenderSophia = "sophia"
)

// ChatEntry is one line of the conversation log.
type ChatEntry struct {
	ID        int64     `yaml:"id"`
	Sender    string    `yaml:"sender"`
	Text      string    `yaml:"text"`
	CreatedAt time.Time `yaml:"created_at"`
}

// GeneratedStory is a story together with its ordered scenario catalog.
type GeneratedStory struct {
	Story     StoryLine  `yaml:"story"`
	Scenarios []Scenario `yaml:"scenarios"`
}
