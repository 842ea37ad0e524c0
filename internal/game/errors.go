package game

import "errors"

var (
	ErrEmptyCatalog         = errors.New("scenario catalog is empty")
	ErrNotStarted           = errors.New("session has not been started")
	ErrNotInProgress        = errors.New("session is not in progress")
	ErrOptionAlreadyApplied = errors.New("an option was already applied to this scenario")
	ErrUnknownOption        = errors.New("option does not belong to the current scenario")
	ErrStoryNotPersisted    = errors.New("story has not been saved")
	ErrInvalidTransition    = errors.New("invalid setup transition")
)
