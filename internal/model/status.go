package model

import "fmt"

// Status is the lifecycle state of a TodoItem.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusBlocked    Status = "blocked"
)

// AllStatuses lists every status in display order.
var AllStatuses = []Status{
	StatusPending,
	StatusInProgress,
	StatusCompleted,
	StatusFailed,
	StatusBlocked,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusBlocked:
		return true
	}
	return false
}

// RequiresUnblocked reports whether moving an item into s needs every
// dependency target to be completed first.
func (s Status) RequiresUnblocked() bool {
	return s == StatusInProgress || s == StatusCompleted
}

// ParseStatus converts user input into a Status.
// Accepts the hyphenated spelling "in-progress" as well.
func ParseStatus(v string) (Status, error) {
	if v == "in-progress" {
		return StatusInProgress, nil
	}
	s := Status(v)
	if !s.Valid() {
		return "", NewError(CodeInvalidArgument, fmt.Sprintf("unknown status %q", v))
	}
	return s, nil
}
