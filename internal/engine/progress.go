package engine

import (
	"context"

	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// Progress counts a list's items by status.
func (e *Engine) Progress(ctx context.Context, listKey string) (model.Progress, error) {
	var p model.Progress
	err := e.view(ctx, "progress", func(ctx context.Context, tx *store.Tx) error {
		l, err := tx.GetList(ctx, listKey)
		if err != nil {
			return err
		}
		items, err := tx.ListItems(ctx, l.ID)
		if err != nil {
			return err
		}
		p = summarize(listKey, items)
		return nil
	})
	return p, err
}

// NextPending returns the first item, in depth-first position order, that is
// pending, not blocked by a dependency, and whose children are all completed.
// Fails with NOT_FOUND when no item qualifies.
func (e *Engine) NextPending(ctx context.Context, listKey string) (model.TodoItem, error) {
	var next model.TodoItem
	err := e.view(ctx, "next_pending", func(ctx context.Context, tx *store.Tx) error {
		l, err := tx.GetList(ctx, listKey)
		if err != nil {
			return err
		}
		all, err := tx.ListItems(ctx, l.ID)
		if err != nil {
			return err
		}

		openChildren := make(map[int64]bool)
		for _, it := range all {
			if it.ParentID != nil && it.Status != model.StatusCompleted {
				openChildren[*it.ParentID] = true
			}
		}

		for _, it := range depthFirst(all) {
			if it.Status != model.StatusPending || openChildren[it.ID] {
				continue
			}
			blocked, err := e.graph.IsBlocked(ctx, tx, it)
			if err != nil {
				return err
			}
			if !blocked {
				next = it
				return nil
			}
		}
		return model.Errorf(model.CodeNotFound, "no actionable pending item in list %q", listKey)
	})
	return next, err
}

func summarize(listKey string, items []model.TodoItem) model.Progress {
	p := model.Progress{
		ListKey:  listKey,
		Total:    len(items),
		ByStatus: make(map[model.Status]int, len(model.AllStatuses)),
	}
	for _, s := range model.AllStatuses {
		p.ByStatus[s] = 0
	}
	for _, it := range items {
		p.ByStatus[it.Status]++
	}
	if p.Total > 0 {
		p.Percent = p.ByStatus[model.StatusCompleted] * 100 / p.Total
	}
	return p
}
