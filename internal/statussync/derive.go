// Package statussync propagates item status up the parent chain.
//
// A parent's status is a function of its direct children only. When a child
// changes, the Synchronizer recomputes the parent inside the same unit of
// work, persists and records any change, and continues upward until a root
// or a fixed point.
package statussync

import "github.com/roach88/tasktree/internal/model"

// Derive computes a parent status from its direct children's statuses.
//
//	any failed              -> failed
//	else any blocked        -> blocked
//	else all completed      -> completed
//	else any in_progress or completed -> in_progress
//	else                    -> pending
//
// ok is false when there are no children; the parent then keeps its own
// status. An unknown status is an INVARIANT_VIOLATION.
func Derive(children []model.Status) (status model.Status, ok bool, err error) {
	if len(children) == 0 {
		return "", false, nil
	}

	var failed, blocked, started bool
	completed := 0
	for _, s := range children {
		switch s {
		case model.StatusFailed:
			failed = true
		case model.StatusBlocked:
			blocked = true
		case model.StatusCompleted:
			completed++
			started = true
		case model.StatusInProgress:
			started = true
		case model.StatusPending:
		default:
			return "", false, model.Errorf(model.CodeInvariantViolation, "derive: unknown child status %q", s)
		}
	}

	switch {
	case failed:
		return model.StatusFailed, true, nil
	case blocked:
		return model.StatusBlocked, true, nil
	case completed == len(children):
		return model.StatusCompleted, true, nil
	case started:
		return model.StatusInProgress, true, nil
	default:
		return model.StatusPending, true, nil
	}
}
