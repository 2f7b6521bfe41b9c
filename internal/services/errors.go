package services

import (
	"errors"
	"fmt"

	"github.com/equifund/backend/internal/eligibility"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotOwner   = errors.New("owner access required")
)

// BlockedError reports the first eligibility reason that disables an action.
type BlockedError struct {
	Reason eligibility.Reason
}

func (e *BlockedError) Error() string {
	return string(e.Reason)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// blocked maps an eligibility reason onto the matching service error.
func blocked(reason eligibility.Reason) error {
	if reason == eligibility.ReasonNotOwner {
		return ErrNotOwner
	}
	return &BlockedError{Reason: reason}
}
