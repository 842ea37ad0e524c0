package game

import "fmt"

// SetupStep is a screen of the new-game wizard.
type SetupStep int

const (
	StepLanguage SetupStep = iota
	StepName
	StepSimulationType
	StepGenerating
	StepSuccess
	StepFailure
	StepComplete
)

var stepNames = [...]string{
	StepLanguage:       "language",
	StepName:           "name",
	StepSimulationType: "simulation_type",
	StepGenerating:     "generating",
	StepSuccess:        "success",
	StepFailure:        "failure",
	StepComplete:       "complete",
}

func (s SetupStep) String() string {
	if s < 0 || int(s) >= len(stepNames) {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

// SetupEvent drives the wizard from one step to the next.
type SetupEvent int

const (
	EventLanguageChosen SetupEvent = iota
	EventNameEntered
	EventDefaultChosen
	EventCustomChosen
	EventGenerated
	EventGenerationFailed
	EventConfirm
	EventRetry
	EventUseDefault
	EventBack
)

var setupTransitions = map[SetupStep]map[SetupEvent]SetupStep{
	StepLanguage: {
		EventLanguageChosen: StepName,
	},
	StepName: {
		EventNameEntered: StepSimulationType,
		EventBack:        StepLanguage,
	},
	StepSimulationType: {
		EventDefaultChosen: StepComplete,
		EventCustomChosen:  StepGenerating,
		EventBack:          StepName,
	},
	StepGenerating: {
		EventGenerated:        StepSuccess,
		EventGenerationFailed: StepFailure,
	},
	StepSuccess: {
		EventConfirm: StepComplete,
	},
	StepFailure: {
		EventRetry:      StepGenerating,
		EventUseDefault: StepComplete,
	},
}

// Wizard is the linear setup state machine. The zero value starts at
// StepLanguage.
type Wizard struct {
	step SetupStep
}

// Step returns the current step.
func (w *Wizard) Step() SetupStep {
	return w.step
}

// Fire applies ev. Events that are not valid from the current step return
// ErrInvalidTransition and leave the wizard where it was.
func (w *Wizard) Fire(ev SetupEvent) (SetupStep, error) {
	next, ok := setupTransitions[w.step][ev]
	if !ok {
		return w.step, fmt.Errorf("%w: event %d from %s", ErrInvalidTransition, ev, w.step)
	}
	w.step = next
	return next, nil
}

// Can reports whether ev is valid from the current step.
func (w *Wizard) Can(ev SetupEvent) bool {
	_, ok := setupTransitions[w.step][ev]
	return ok
}
