package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMissingParameter  = errors.New("missing parameter")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrInvalidSchedule   = errors.New("invalid schedule")
	ErrInvalidState      = errors.New("invalid state")
	ErrEmptyContent      = errors.New("content is empty")
	ErrMissingConfig     = errors.New("missing configuration")
	ErrConflict          = errors.New("item was modified concurrently")
	ErrStoreUnavailable  = errors.New("store unavailable")
	ErrRunInProgress     = errors.New("another publish run is in progress")
)

// storeError wraps a persistence failure so callers can match
// ErrStoreUnavailable while still seeing the driver error.
func storeError(action string, err error) error {
	return fmt.Errorf("failed to %s: %w: %w", action, ErrStoreUnavailable, err)
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// IsValidationError reports whether err is caused by bad caller input.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidTransition,
		ErrMissingParameter,
		ErrInvalidParameter,
		ErrInvalidSchedule,
		ErrInvalidState,
		ErrEmptyContent,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
