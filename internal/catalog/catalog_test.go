package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tatianab/transit-ace/internal/models"
)

func TestDefaultScripts(t *testing.T) {
	en, err := Default(models.LanguageEnglish)
	require.NoError(t, err)
	fr, err := Default(models.LanguageFrench)
	require.NoError(t, err)

	assert.Equal(t, "First Day in Paris", en.Story.Title)
	assert.Equal(t, "Premier jour à Paris", fr.Story.Title)
	assert.Equal(t, 50.0, en.Story.InitialBudget)
	assert.Equal(t, 70, en.Story.InitialMorale)

	// Both scripts describe the same game.
	require.Equal(t, len(en.Scenarios), len(fr.Scenarios))
	for i := range en.Scenarios {
		assert.Equal(t, en.Scenarios[i].ID, fr.Scenarios[i].ID)
		assert.Equal(t, en.Scenarios[i].CorrectOptionID, fr.Scenarios[i].CorrectOptionID)
		require.Equal(t, len(en.Scenarios[i].Options), len(fr.Scenarios[i].Options))
		for j, opt := range en.Scenarios[i].Options {
			other := fr.Scenarios[i].Options[j]
			assert.Equal(t, opt.BudgetImpact, other.BudgetImpact, "budget impact of %s", opt.ID)
			assert.Equal(t, opt.MoraleImpact, other.MoraleImpact, "morale impact of %s", opt.ID)
			assert.Equal(t, opt.LegalInfraction, other.LegalInfraction, "infraction of %s", opt.ID)
		}
	}
}

func TestDefaultFallsBackToEnglish(t *testing.T) {
	gs, err := Default(models.Language("de"))
	require.NoError(t, err)
	assert.Equal(t, "First Day in Paris", gs.Story.Title)
}

func TestRulesEmbedded(t *testing.T) {
	assert.Contains(t, Rules(), "ticket t+")
}

func TestParseFillsMissingIDs(t *testing.T) {
	gs, err := Parse([]byte(`
story:
  title: " Night bus "
  initial_budget: 20
  initial_morale: 40
scenarios:
  - title: Noctilien
    options:
      - text: Wait
      - text: Walk
`))
	require.NoError(t, err)
	assert.Equal(t, "Night bus", gs.Story.Title)
	require.Len(t, gs.Scenarios, 1)
	assert.NotEmpty(t, gs.Scenarios[0].ID)
	assert.Equal(t, "a", gs.Scenarios[0].Options[0].ID)
	assert.Equal(t, "b", gs.Scenarios[0].Options[1].ID)
}

func TestValidateSkipsTakenLetters(t *testing.T) {
	gs := models.GeneratedStory{
		Story: models.StoryLine{Title: "T"},
		Scenarios: []models.Scenario{{
			ID:              "s1",
			CorrectOptionID: "a",
			Options:         []models.ScenarioOption{{Text: "Wait"}, {ID: "a", Text: "Walk"}, {Text: "Run"}, {ID: "c"}},
		}},
	}
	require.NoError(t, Validate(&gs))

	var ids []string
	for _, opt := range gs.Scenarios[0].Options {
		ids = append(ids, opt.ID)
	}
	assert.Equal(t, []string{"b", "a", "d", "c"}, ids)
}

func TestValidateRejects(t *testing.T) {
	valid := func() models.GeneratedStory {
		return models.GeneratedStory{
			Story: models.StoryLine{Title: "T"},
			Scenarios: []models.Scenario{{
				ID:      "s1",
				Options: []models.ScenarioOption{{ID: "o1"}, {ID: "o2"}},
			}},
		}
	}

	tests := map[string]func(gs *models.GeneratedStory){
		"no title":            func(gs *models.GeneratedStory) { gs.Story.Title = "  " },
		"no scenarios":        func(gs *models.GeneratedStory) { gs.Scenarios = nil },
		"no options":          func(gs *models.GeneratedStory) { gs.Scenarios[0].Options = nil },
		"duplicate scenario":  func(gs *models.GeneratedStory) { gs.Scenarios = append(gs.Scenarios, gs.Scenarios[0]) },
		"duplicate option":    func(gs *models.GeneratedStory) { gs.Scenarios[0].Options[1].ID = "o1" },
		"negative infraction": func(gs *models.GeneratedStory) { gs.Scenarios[0].Options[0].LegalInfraction = -1 },
		"unknown correct":     func(gs *models.GeneratedStory) { gs.Scenarios[0].CorrectOptionID = "o9" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			gs := valid()
			mutate(&gs)
			assert.ErrorIs(t, Validate(&gs), ErrInvalid)
		})
	}

	gs := valid()
	assert.NoError(t, Validate(&gs))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte("story: [unterminated"))
	assert.ErrorIs(t, err, ErrInvalid)
}
