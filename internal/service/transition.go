package service

import (
	"fmt"
	"strings"

	"github.com/leadloom/leadloom/internal/models"
)

// TransitionError describes a rejected status change.
type TransitionError struct {
	From    models.ContentStatus
	To      models.ContentStatus
	Allowed []models.ContentStatus
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	if len(allowed) == 0 {
		return fmt.Sprintf("invalid status transition from %s to %s: %s is terminal", e.From, e.To, e.From)
	}
	return fmt.Sprintf("invalid status transition from %s to %s, allowed: %s",
		e.From, e.To, strings.Join(allowed, ", "))
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ValidateTransition checks the edge from -> to against the workflow table.
func ValidateTransition(from, to models.ContentStatus) error {
	if from.CanTransitionTo(to) {
		return nil
	}
	return &TransitionError{
		From:    from,
		To:      to,
		Allowed: from.NextStatuses(),
	}
}
