package engine

import (
	"context"

	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// History returns one page of audit entries ordered by timestamp, then
// sequence. History outlives deleted lists and items, so querying a key that
// no longer exists is not an error.
func (e *Engine) History(ctx context.Context, q model.HistoryQuery) (model.HistoryPage, error) {
	q, err := q.Normalize()
	if err != nil {
		return model.HistoryPage{}, err
	}

	page := model.HistoryPage{Limit: q.Limit, Offset: q.Offset}
	err = e.view(ctx, "history", func(ctx context.Context, tx *store.Tx) error {
		var err error
		page.Entries, page.Total, err = tx.QueryHistory(ctx, q)
		return err
	})
	if err != nil {
		return model.HistoryPage{}, err
	}
	return page, nil
}
