package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadloom/leadloom/internal/models"
)

func TestValidateTransition(t *testing.T) {
	legal := map[models.ContentStatus][]models.ContentStatus{
		models.StatusIdea:      {models.StatusDraft},
		models.StatusDraft:     {models.StatusReview, models.StatusIdea},
		models.StatusReview:    {models.StatusApproved, models.StatusDraft},
		models.StatusApproved:  {models.StatusScheduled, models.StatusReview},
		models.StatusScheduled: {models.StatusPosted, models.StatusApproved},
	}

	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			err := ValidateTransition(from, to)
			if contains(legal[from], to) {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.ErrorIs(t, err, ErrInvalidTransition)

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, from, te.From)
			assert.Equal(t, to, te.To)
			assert.Equal(t, from.NextStatuses(), te.Allowed)
		}
	}
}

func TestTransitionErrorMessage(t *testing.T) {
	err := ValidateTransition(models.StatusIdea, models.StatusPosted)
	assert.EqualError(t, err, "invalid status transition from IDEA to POSTED, allowed: DRAFT")

	err = ValidateTransition(models.StatusPosted, models.StatusDraft)
	assert.EqualError(t, err, "invalid status transition from POSTED to DRAFT: POSTED is terminal")
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(ValidateTransition(models.StatusIdea, models.StatusPosted)))
	assert.True(t, IsValidationError(ErrEmptyContent))
	assert.False(t, IsValidationError(ErrNotFound))
	assert.False(t, IsValidationError(storeError("load item", errors.New("boom"))))
	assert.ErrorIs(t, storeError("load item", errors.New("boom")), ErrStoreUnavailable)
}

func contains(list []models.ContentStatus, s models.ContentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
