package engine

import (
	"context"

	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// Dependencies lists the direct edges of one item in both directions.
type Dependencies struct {
	Item       model.ItemRef    `json:"item"`
	Targets    []model.TodoItem `json:"depends_on"`
	Dependents []model.TodoItem `json:"required_by"`
}

// AddItemDependency records that dependent cannot start or finish until
// target is completed. The items may be in different lists.
func (e *Engine) AddItemDependency(ctx context.Context, dependent, target model.ItemRef) (model.Dependency, error) {
	var dep model.Dependency
	err := e.run(ctx, "add_dependency", func(ctx context.Context, tx *store.Tx) error {
		from, err := loadItem(ctx, tx, dependent.ListKey, dependent.ItemKey)
		if err != nil {
			return err
		}
		to, err := loadItem(ctx, tx, target.ListKey, target.ItemKey)
		if err != nil {
			return err
		}
		dep, err = e.graph.Add(ctx, tx, from, to)
		if err != nil {
			return err
		}
		_, err = e.recorder.Record(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     dependent.ListKey,
			ItemKey:     dependent.ItemKey,
			Action:      model.ActionDependencyAdded,
			NewValue:    target.String(),
		})
		return err
	})
	return dep, err
}

// RemoveItemDependency deletes the edge dependent -> target. Removing an
// absent edge succeeds and records nothing; removed reports whether an edge
// was deleted. Both items must exist. A parent that was blocked only by this
// edge is resynchronized.
func (e *Engine) RemoveItemDependency(ctx context.Context, dependent, target model.ItemRef) (bool, error) {
	var removed bool
	err := e.run(ctx, "remove_dependency", func(ctx context.Context, tx *store.Tx) error {
		from, err := loadItem(ctx, tx, dependent.ListKey, dependent.ItemKey)
		if err != nil {
			return err
		}
		to, err := loadItem(ctx, tx, target.ListKey, target.ItemKey)
		if err != nil {
			return err
		}
		removed, err = e.graph.Remove(ctx, tx, from, to)
		if err != nil || !removed {
			return err
		}
		if _, err := e.recorder.Record(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     dependent.ListKey,
			ItemKey:     dependent.ItemKey,
			Action:      model.ActionDependencyRemoved,
			OldValue:    target.String(),
		}); err != nil {
			return err
		}
		_, err = e.sync.Resync(ctx, tx, []int64{from.ID}, target.String())
		return err
	})
	return removed, err
}

// ListBlocking returns the incomplete items that ref depends on.
func (e *Engine) ListBlocking(ctx context.Context, ref model.ItemRef) ([]model.TodoItem, error) {
	var blocking []model.TodoItem
	err := e.view(ctx, "list_blocking", func(ctx context.Context, tx *store.Tx) error {
		it, err := loadItem(ctx, tx, ref.ListKey, ref.ItemKey)
		if err != nil {
			return err
		}
		blocking, err = e.graph.Blocking(ctx, tx, it)
		return err
	})
	return blocking, err
}

// IsBlocked reports whether any item that ref depends on is incomplete.
func (e *Engine) IsBlocked(ctx context.Context, ref model.ItemRef) (bool, error) {
	var blocked bool
	err := e.view(ctx, "is_blocked", func(ctx context.Context, tx *store.Tx) error {
		it, err := loadItem(ctx, tx, ref.ListKey, ref.ItemKey)
		if err != nil {
			return err
		}
		blocked, err = e.graph.IsBlocked(ctx, tx, it)
		return err
	})
	return blocked, err
}

// ListDependencies returns ref's direct edges in both directions.
func (e *Engine) ListDependencies(ctx context.Context, ref model.ItemRef) (Dependencies, error) {
	var deps Dependencies
	err := e.view(ctx, "list_dependencies", func(ctx context.Context, tx *store.Tx) error {
		it, err := loadItem(ctx, tx, ref.ListKey, ref.ItemKey)
		if err != nil {
			return err
		}
		targets, err := e.graph.Targets(ctx, tx, it)
		if err != nil {
			return err
		}
		dependents, err := e.graph.Dependents(ctx, tx, it)
		if err != nil {
			return err
		}
		deps = Dependencies{Item: it.Ref(), Targets: targets, Dependents: dependents}
		return nil
	})
	return deps, err
}
