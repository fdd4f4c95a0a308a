package statussync

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/roach88/tasktree/internal/depgraph"
	"github.com/roach88/tasktree/internal/history"
	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// MaxDepth bounds the upward walk. A longer chain means the parent forest is
// corrupt.
const MaxDepth = 1024

// Synchronizer recomputes ancestor status after a child changes.
//
// A parent whose children would make it in_progress or completed while one of
// its own dependency targets is incomplete is set to blocked instead. When an
// item completes, its dependents are resynchronized so such parents are
// released.
type Synchronizer struct {
	recorder *history.Recorder
	graph    *depgraph.Graph
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a Synchronizer that records changes through recorder and reads
// dependency edges through graph.
func New(recorder *history.Recorder, graph *depgraph.Graph, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{recorder: recorder, graph: graph, logger: logger, now: recorder.Now}
}

// OnItemStatusChanged is called after item's new status has been persisted in
// tx. It resynchronizes item's ancestors and, when item is completed, its
// dependents. Returns the items that changed.
func (s *Synchronizer) OnItemStatusChanged(ctx context.Context, tx *store.Tx, item model.TodoItem) ([]model.TodoItem, error) {
	changed := []model.TodoItem{}
	if item.ParentID != nil {
		up, err := s.walk(ctx, tx, *item.ParentID, item.Key)
		if err != nil {
			return nil, err
		}
		changed = append(changed, up...)
	}
	if item.Status == model.StatusCompleted {
		released, err := s.release(ctx, tx, item)
		if err != nil {
			return nil, err
		}
		changed = append(changed, released...)
	}
	return changed, nil
}

// Resync recomputes the items in ids and their ancestors. Used when
// dependency edges disappear, which may release a blocked parent. Items
// without children are left alone.
func (s *Synchronizer) Resync(ctx context.Context, tx *store.Tx, ids []int64, trigger string) ([]model.TodoItem, error) {
	changed := []model.TodoItem{}
	for _, id := range ids {
		c, err := s.walk(ctx, tx, id, trigger)
		if err != nil {
			return nil, err
		}
		changed = append(changed, c...)
	}
	return changed, nil
}

// release resynchronizes every dependent of item.
func (s *Synchronizer) release(ctx context.Context, tx *store.Tx, item model.TodoItem) ([]model.TodoItem, error) {
	dependents, err := s.graph.Dependents(ctx, tx, item)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(dependents))
	for i, d := range dependents {
		ids[i] = d.ID
	}
	return s.Resync(ctx, tx, ids, item.Ref().String())
}

// SyncFrom resynchronizes parentID and its ancestors. trigger names the item
// whose change caused the walk and is recorded in each entry's details. Used
// after deletes and moves, where the triggering item may no longer be a child.
func (s *Synchronizer) SyncFrom(ctx context.Context, tx *store.Tx, parentID int64, trigger string) ([]model.TodoItem, error) {
	return s.walk(ctx, tx, parentID, trigger)
}

func (s *Synchronizer) walk(ctx context.Context, tx *store.Tx, parentID int64, trigger string) ([]model.TodoItem, error) {
	changed := []model.TodoItem{}
	next := &parentID
	for depth := 1; next != nil; depth++ {
		if depth > MaxDepth {
			return nil, model.Errorf(model.CodeInvariantViolation,
				"status sync exceeded %d levels starting from %q; parent chain is corrupt", MaxDepth, trigger)
		}

		parent, err := tx.GetItemByID(ctx, *next)
		if err != nil {
			return nil, err
		}
		children, err := tx.Children(ctx, parent.ListID, &parent.ID)
		if err != nil {
			return nil, err
		}
		statuses := make([]model.Status, len(children))
		for i, c := range children {
			statuses[i] = c.Status
		}

		derived, ok, err := Derive(statuses)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		if derived.RequiresUnblocked() {
			blocked, err := s.graph.IsBlocked(ctx, tx, parent)
			if err != nil {
				return nil, err
			}
			if blocked {
				derived = model.StatusBlocked
			}
		}
		if derived == parent.Status {
			break
		}

		updated, err := tx.UpdateItemStatus(ctx, parent, derived, s.now())
		if err != nil {
			return nil, err
		}
		if _, err := s.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     parent.ListKey,
			ItemKey:     parent.Key,
			Action:      model.ActionStatusSynced,
			OldValue:    string(parent.Status),
			NewValue:    string(derived),
		}, model.Details{"trigger": trigger}); err != nil {
			return nil, err
		}

		s.logger.Debug().
			Str("list", parent.ListKey).
			Str("item", parent.Key).
			Str("from", string(parent.Status)).
			Str("to", string(derived)).
			Str("trigger", trigger).
			Msg("status synced")

		changed = append(changed, updated)
		if derived == model.StatusCompleted {
			released, err := s.release(ctx, tx, updated)
			if err != nil {
				return nil, err
			}
			changed = append(changed, released...)
		}
		trigger = parent.Key
		next = updated.ParentID
	}
	return changed, nil
}
