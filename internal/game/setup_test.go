package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fire(t *testing.T, w *Wizard, events ...SetupEvent) SetupStep {
	t.Helper()
	var step SetupStep
	for _, ev := range events {
		var err error
		step, err = w.Fire(ev)
		require.NoError(t, err)
	}
	return step
}

func TestWizardDefaultPath(t *testing.T) {
	var w Wizard
	assert.Equal(t, StepLanguage, w.Step())
	assert.Equal(t, StepComplete, fire(t, &w, EventLanguageChosen, EventNameEntered, EventDefaultChosen))
}

func TestWizardCustomPath(t *testing.T) {
	var w Wizard
	assert.Equal(t, StepGenerating, fire(t, &w, EventLanguageChosen, EventNameEntered, EventCustomChosen))
	assert.Equal(t, StepFailure, fire(t, &w, EventGenerationFailed))
	assert.Equal(t, StepGenerating, fire(t, &w, EventRetry))
	assert.Equal(t, StepSuccess, fire(t, &w, EventGenerated))
	assert.Equal(t, StepComplete, fire(t, &w, EventConfirm))
}

func TestWizardFailureFallsBackToDefault(t *testing.T) {
	var w Wizard
	fire(t, &w, EventLanguageChosen, EventNameEntered, EventCustomChosen, EventGenerationFailed)
	assert.True(t, w.Can(EventUseDefault))
	assert.Equal(t, StepComplete, fire(t, &w, EventUseDefault))
}

func TestWizardBack(t *testing.T) {
	var w Wizard
	fire(t, &w, EventLanguageChosen, EventNameEntered)
	assert.Equal(t, StepLanguage, fire(t, &w, EventBack, EventBack))
}

func TestWizardRejectsInvalidTransitions(t *testing.T) {
	var w Wizard
	step, err := w.Fire(EventGenerated)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StepLanguage, step)

	fire(t, &w, EventLanguageChosen, EventNameEntered, EventCustomChosen)
	assert.False(t, w.Can(EventBack), "generation cannot be abandoned half way")
	_, err = w.Fire(EventConfirm)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, StepGenerating, w.Step())

	fire(t, &w, EventGenerated, EventConfirm)
	assert.False(t, w.Can(EventRetry))
}

func TestSetupStepString(t *testing.T) {
	assert.Equal(t, "simulation_type", StepSimulationType.String())
	assert.Equal(t, "step(42)", SetupStep(42).String())
	assert.Equal(t, "complete", StateComplete.String())
}
