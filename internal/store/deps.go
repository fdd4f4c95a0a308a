package store

import (
	"context"
	"time"

	"github.com/roach88/tasktree/internal/model"
)

// InsertDependency records that dependentID depends on targetID.
// Returns DUPLICATE_KEY if the edge exists.
func (t *Tx) InsertDependency(ctx context.Context, dependentID, targetID int64, at time.Time) error {
	_, err := t.exec(ctx, "insert dependency", `
		INSERT INTO item_dependencies (dependent_id, target_id, created_at)
		VALUES (?, ?, ?)
	`, dependentID, targetID, at.UnixNano())
	return err
}

// HasDependency reports whether the edge dependentID -> targetID exists.
func (t *Tx) HasDependency(ctx context.Context, dependentID, targetID int64) (bool, error) {
	row, err := t.queryRow(ctx, `
		SELECT COUNT(*) FROM item_dependencies WHERE dependent_id = ? AND target_id = ?
	`, dependentID, targetID)
	if err != nil {
		return false, err
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return false, classify("check dependency", err)
	}
	return count > 0, nil
}

// DeleteDependency removes one edge and reports whether it existed.
func (t *Tx) DeleteDependency(ctx context.Context, dependentID, targetID int64) (bool, error) {
	res, err := t.exec(ctx, "delete dependency", `
		DELETE FROM item_dependencies WHERE dependent_id = ? AND target_id = ?
	`, dependentID, targetID)
	if err != nil {
		return false, err
	}
	n, err := rowsAffected("delete dependency", res)
	return n > 0, err
}

// DependencyTargetIDs returns the ids of the items that itemID depends on.
// Ordered by id for deterministic traversal.
func (t *Tx) DependencyTargetIDs(ctx context.Context, itemID int64) ([]int64, error) {
	rows, err := t.query(ctx, "list dependency targets", `
		SELECT target_id FROM item_dependencies WHERE dependent_id = ? ORDER BY target_id ASC
	`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, classify("scan dependency target", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate dependency targets", err)
	}
	return ids, nil
}

// DependencyTargets returns the items that itemID depends on, ordered by list
// key then position.
func (t *Tx) DependencyTargets(ctx context.Context, itemID int64) ([]model.TodoItem, error) {
	return t.queryItems(ctx, "list dependency targets",
		itemSelect+`
		JOIN item_dependencies d ON d.target_id = i.id
		WHERE d.dependent_id = ?
		ORDER BY l.key COLLATE BINARY ASC, i.position ASC, i.id ASC`,
		itemID)
}

// Dependents returns the items that depend on itemID, ordered by list key then position.
func (t *Tx) Dependents(ctx context.Context, itemID int64) ([]model.TodoItem, error) {
	return t.queryItems(ctx, "list dependents",
		itemSelect+`
		JOIN item_dependencies d ON d.dependent_id = i.id
		WHERE d.target_id = ?
		ORDER BY l.key COLLATE BINARY ASC, i.position ASC, i.id ASC`,
		itemID)
}

// GetDependency returns the edge dependent -> target. Returns NOT_FOUND if absent.
func (t *Tx) GetDependency(ctx context.Context, dependent, target model.TodoItem) (model.Dependency, error) {
	row, err := t.queryRow(ctx, `
		SELECT created_at FROM item_dependencies WHERE dependent_id = ? AND target_id = ?
	`, dependent.ID, target.ID)
	if err != nil {
		return model.Dependency{}, err
	}
	var created int64
	if err := row.Scan(&created); err != nil {
		if IsNotFoundError(err) {
			return model.Dependency{}, model.Errorf(model.CodeNotFound,
				"dependency %s -> %s not found", dependent.Ref(), target.Ref())
		}
		return model.Dependency{}, classify("get dependency", err)
	}
	return model.Dependency{
		Dependent: dependent.Ref(),
		Target:    target.Ref(),
		CreatedAt: fromNanos(created),
	}, nil
}

// ExternalDependencies returns edges whose target is an item of listID and
// whose dependent lives in a different list.
func (t *Tx) ExternalDependencies(ctx context.Context, listID int64) ([]model.Dependency, error) {
	rows, err := t.query(ctx, "list external dependencies", `
		SELECT dl.key, di.key, tl.key, ti.key, d.created_at
		FROM item_dependencies d
		JOIN items ti ON ti.id = d.target_id
		JOIN lists tl ON tl.id = ti.list_id
		JOIN items di ON di.id = d.dependent_id
		JOIN lists dl ON dl.id = di.list_id
		WHERE ti.list_id = ? AND di.list_id <> ?
		ORDER BY dl.key COLLATE BINARY ASC, di.key COLLATE BINARY ASC, ti.key COLLATE BINARY ASC
	`, listID, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deps := []model.Dependency{}
	for rows.Next() {
		var (
			d       model.Dependency
			created int64
		)
		if err := rows.Scan(&d.Dependent.ListKey, &d.Dependent.ItemKey, &d.Target.ListKey, &d.Target.ItemKey, &created); err != nil {
			return nil, classify("scan external dependency", err)
		}
		d.CreatedAt = fromNanos(created)
		deps = append(deps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate external dependencies", err)
	}
	return deps, nil
}

// DeleteDependenciesTouching removes every edge where either end is one of ids.
func (t *Tx) DeleteDependenciesTouching(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks, args := placeholders(ids)
	args = append(args, args...)
	res, err := t.exec(ctx, "delete dependencies", `
		DELETE FROM item_dependencies
		WHERE dependent_id IN (`+marks+`) OR target_id IN (`+marks+`)
	`, args...)
	if err != nil {
		return 0, err
	}
	return rowsAffected("delete dependencies", res)
}
