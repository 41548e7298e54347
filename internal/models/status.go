package models

import (
	"fmt"
	"strings"
)

// ContentStatus is the workflow state of a content item.
type ContentStatus string

const (
	StatusIdea      ContentStatus = "IDEA"
	StatusDraft     ContentStatus = "DRAFT"
	StatusReview    ContentStatus = "REVIEW"
	StatusApproved  ContentStatus = "APPROVED"
	StatusScheduled ContentStatus = "SCHEDULED"
	StatusPosted    ContentStatus = "POSTED"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []ContentStatus{
	StatusIdea,
	StatusDraft,
	StatusReview,
	StatusApproved,
	StatusScheduled,
	StatusPosted,
}

// transitions is the adjacency table of legal moves. POSTED has no entry.
var transitions = map[ContentStatus][]ContentStatus{
	StatusIdea:      {StatusDraft},
	StatusDraft:     {StatusReview, StatusIdea},
	StatusReview:    {StatusApproved, StatusDraft},
	StatusApproved:  {StatusScheduled, StatusReview},
	StatusScheduled: {StatusPosted, StatusApproved},
}

// ParseContentStatus converts user input into a ContentStatus. Matching is
// case-insensitive; unknown values are rejected.
func ParseContentStatus(s string) (ContentStatus, error) {
	status := ContentStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("unknown content status %q", s)
	}
	return status, nil
}

func (s ContentStatus) Valid() bool {
	for _, status := range AllStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (s ContentStatus) String() string {
	return string(s)
}

// NextStatuses returns a copy of the statuses reachable from s.
func (s ContentStatus) NextStatuses() []ContentStatus {
	next := transitions[s]
	out := make([]ContentStatus, len(next))
	copy(out, next)
	return out
}

// CanTransitionTo reports whether the edge s -> to is in the adjacency table.
func (s ContentStatus) CanTransitionTo(to ContentStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether s has no outgoing edges.
func (s ContentStatus) Terminal() bool {
	return len(transitions[s]) == 0
}
