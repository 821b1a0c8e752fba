package tasker

import (
	"errors"
)

var (
	ErrTaskNotFoundInRegistry = errors.New("task not found in registry")
	ErrTaskAlreadyRegistered  = errors.New("task already registered")
	ErrTaskPanicked           = errors.New("task panicked")
	ErrInvalidWorkerCount     = errors.New("invalid worker count")
)
