package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrSpecNotFound    = errors.New("spec not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidStatus   = errors.New("invalid status")
	ErrSkippedStage    = errors.New("cannot skip 'planned' stage, use force to override")
	ErrInvalidProject  = errors.New("invalid project")
)

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrProjectNotFound) || errors.Is(err, ErrSpecNotFound)
}
