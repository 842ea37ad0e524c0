// Package catalog provides the built-in scenario scripts and validates any
// scenario catalog before it is played.
package catalog

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tatianab/transit-ace/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed scripts/*.yaml
var scripts embed.FS

//go:embed rules.md
var rules string

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid scenario catalog")

// Rules returns the transit rules data given to the scenario generator.
func Rules() string {
	return rules
}

// Default returns the fixed script for lang, falling back to English.
func Default(lang models.Language) (models.GeneratedStory, error) {
	if lang != models.LanguageFrench {
		lang = models.LanguageEnglish
	}
	data, err := scripts.ReadFile("scripts/" + string(lang) + ".yaml")
	if err != nil {
		return models.GeneratedStory{}, fmt.Errorf("read %s script: %w", lang, err)
	}
	gs, err := Parse(data)
	if err != nil {
		return models.GeneratedStory{}, fmt.Errorf("%s script: %w", lang, err)
	}
	return gs, nil
}

// Parse decodes a {story, scenarios} YAML document and validates it.
func Parse(data []byte) (models.GeneratedStory, error) {
	var gs models.GeneratedStory
	if err := yaml.Unmarshal(data, &gs); err != nil {
		return models.GeneratedStory{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := Validate(&gs); err != nil {
		return models.GeneratedStory{}, err
	}
	return gs, nil
}

// Validate normalizes gs in place and checks it can be played: missing
// scenario IDs get a UUID, missing option IDs their position letter.
func Validate(gs *models.GeneratedStory) error {
	gs.Story.Title = strings.TrimSpace(gs.Story.Title)
	if gs.Story.Title == "" {
		return fmt.Errorf("%w: story has no title", ErrInvalid)
	}
	if len(gs.Scenarios) == 0 {
		return fmt.Errorf("%w: no scenarios", ErrInvalid)
	}

	seen := make(map[string]bool, len(gs.Scenarios))
	for i := range gs.Scenarios {
		sc := &gs.Scenarios[i]
		sc.ID = strings.TrimSpace(sc.ID)
		if sc.ID == "" {
			sc.ID = uuid.NewString()
		}
		if seen[sc.ID] {
			return fmt.Errorf("%w: duplicate scenario id %q", ErrInvalid, sc.ID)
		}
		seen[sc.ID] = true
		if len(sc.Options) == 0 {
			return fmt.Errorf("%w: scenario %q has no options", ErrInvalid, sc.ID)
		}

		optionIDs := make(map[string]bool, len(sc.Options))
		for j := range sc.Options {
			opt := &sc.Options[j]
			opt.ID = strings.TrimSpace(opt.ID)
			if opt.ID == "" {
				continue
			}
			if optionIDs[opt.ID] {
				return fmt.Errorf("%w: scenario %q has duplicate option id %q", ErrInvalid, sc.ID, opt.ID)
			}
			optionIDs[opt.ID] = true
		}
		// Blank ids take the first letter not already used explicitly.
		next := 0
		for j := range sc.Options {
			opt := &sc.Options[j]
			if opt.ID == "" {
				for optionIDs[optionLetter(next)] {
					next++
				}
				opt.ID = optionLetter(next)
				optionIDs[opt.ID] = true
			}
			if opt.LegalInfraction < 0 {
				return fmt.Errorf("%w: option %q of scenario %q has a negative infraction increment", ErrInvalid, opt.ID, sc.ID)
			}
		}
		if sc.CorrectOptionID != "" && !optionIDs[sc.CorrectOptionID] {
			return fmt.Errorf("%w: scenario %q names unknown correct option %q", ErrInvalid, sc.ID, sc.CorrectOptionID)
		}
	}
	return nil
}

func optionLetter(i int) string {
	if i < 26 {
		return string(rune('a' + i))
	}
	return fmt.Sprintf("opt-%d", i+1)
}
