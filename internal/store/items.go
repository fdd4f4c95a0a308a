package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/tasktree/internal/model"
)

// itemSelect reads items together with their list key and parent key so the
// returned values carry their full textual address.
const itemSelect = `
	SELECT i.id, i.list_id, l.key, i.key, i.title, i.status, i.position,
	       i.parent_id, COALESCE(p.key, ''), i.version, i.created_at, i.updated_at, i.completed_at
	FROM items i
	JOIN lists l ON l.id = i.list_id
	LEFT JOIN items p ON p.id = i.parent_id`

// InsertItem creates an item row. ListID, Key, Title, Status, Position, and
// ParentID must be set. Returns DUPLICATE_KEY if the key is taken in the list.
func (t *Tx) InsertItem(ctx context.Context, it model.TodoItem) (model.TodoItem, error) {
	res, err := t.exec(ctx, "insert item", `
		INSERT INTO items (list_id, key, title, status, position, parent_id, version, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?, ?)
	`,
		it.ListID,
		it.Key,
		it.Title,
		string(it.Status),
		it.Position,
		nullID(it.ParentID),
		it.CreatedAt.UnixNano(),
		it.UpdatedAt.UnixNano(),
		completedAt(it.Status, it.UpdatedAt),
	)
	if err != nil {
		return model.TodoItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TodoItem{}, classify("insert item: last insert id", err)
	}
	return t.GetItemByID(ctx, id)
}

// GetItem returns the item with the given key in a list. Returns NOT_FOUND if absent.
func (t *Tx) GetItem(ctx context.Context, listID int64, key string) (model.TodoItem, error) {
	row, err := t.queryRow(ctx, itemSelect+` WHERE i.list_id = ? AND i.key = ?`, listID, key)
	if err != nil {
		return model.TodoItem{}, err
	}
	it, err := scanItem(row)
	if IsNotFoundError(err) {
		return model.TodoItem{}, model.Errorf(model.CodeNotFound, "item %q not found", key)
	}
	if err != nil {
		return model.TodoItem{}, classify("get item", err)
	}
	return it, nil
}

// GetItemByID returns an item by store identity. Returns NOT_FOUND if absent.
func (t *Tx) GetItemByID(ctx context.Context, id int64) (model.TodoItem, error) {
	row, err := t.queryRow(ctx, itemSelect+` WHERE i.id = ?`, id)
	if err != nil {
		return model.TodoItem{}, err
	}
	it, err := scanItem(row)
	if IsNotFoundError(err) {
		return model.TodoItem{}, model.Errorf(model.CodeNotFound, "item %d not found", id)
	}
	if err != nil {
		return model.TodoItem{}, classify("get item", err)
	}
	return it, nil
}

// ListItems returns every item of a list ordered by position within each
// parent group. Callers that need tree order walk Children.
func (t *Tx) ListItems(ctx context.Context, listID int64) ([]model.TodoItem, error) {
	return t.queryItems(ctx, "list items",
		itemSelect+` WHERE i.list_id = ? ORDER BY COALESCE(i.parent_id, 0) ASC, i.position ASC, i.id ASC`,
		listID)
}

// Children returns the direct children of parentID (nil selects root items)
// ordered by position.
func (t *Tx) Children(ctx context.Context, listID int64, parentID *int64) ([]model.TodoItem, error) {
	return t.queryItems(ctx, "list children",
		itemSelect+` WHERE i.list_id = ? AND i.parent_id IS ? ORDER BY i.position ASC, i.id ASC`,
		listID, nullID(parentID))
}

// Descendants returns every item below id in the parent forest, excluding id itself.
func (t *Tx) Descendants(ctx context.Context, id int64) ([]model.TodoItem, error) {
	return t.queryItems(ctx, "list descendants", `
		WITH RECURSIVE subtree(id) AS (
			SELECT id FROM items WHERE parent_id = ?
			UNION ALL
			SELECT c.id FROM items c JOIN subtree s ON c.parent_id = s.id
		)`+itemSelect+` WHERE i.id IN (SELECT id FROM subtree) ORDER BY i.id ASC`,
		id)
}

// MaxPosition returns the highest sibling position under parentID, or 0 if none.
func (t *Tx) MaxPosition(ctx context.Context, listID int64, parentID *int64) (int, error) {
	row, err := t.queryRow(ctx, `
		SELECT COALESCE(MAX(position), 0) FROM items WHERE list_id = ? AND parent_id IS ?
	`, listID, nullID(parentID))
	if err != nil {
		return 0, err
	}
	var max int
	if err := row.Scan(&max); err != nil {
		return 0, classify("max position", err)
	}
	return max, nil
}

// ShiftPositions adds delta to the position of every sibling under parentID
// whose position lies in [from, to].
func (t *Tx) ShiftPositions(ctx context.Context, listID int64, parentID *int64, from, to, delta int, at time.Time) error {
	_, err := t.exec(ctx, "shift positions", `
		UPDATE items
		SET position = position + ?, version = version + 1, updated_at = ?
		WHERE list_id = ? AND parent_id IS ? AND position BETWEEN ? AND ?
	`, delta, at.UnixNano(), listID, nullID(parentID), from, to)
	return err
}

// UpdateItemStatus persists a new status for an item read earlier in the same
// unit of work. The write is conditioned on the version that was read; if
// another writer changed the row first the update fails with
// CONCURRENT_MODIFICATION.
func (t *Tx) UpdateItemStatus(ctx context.Context, it model.TodoItem, status model.Status, at time.Time) (model.TodoItem, error) {
	res, err := t.exec(ctx, "update item status", `
		UPDATE items
		SET status = ?, completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, string(status), completedAt(status, at), at.UnixNano(), it.ID, it.Version)
	if err != nil {
		return model.TodoItem{}, err
	}
	if err := expectOneRow("update item status", res, it); err != nil {
		return model.TodoItem{}, err
	}
	return t.GetItemByID(ctx, it.ID)
}

// UpdateItemPlacement moves an item to a new parent and position, conditioned
// on the version that was read.
func (t *Tx) UpdateItemPlacement(ctx context.Context, it model.TodoItem, parentID *int64, position int, at time.Time) (model.TodoItem, error) {
	res, err := t.exec(ctx, "update item placement", `
		UPDATE items
		SET parent_id = ?, position = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`, nullID(parentID), position, at.UnixNano(), it.ID, it.Version)
	if err != nil {
		return model.TodoItem{}, err
	}
	if err := expectOneRow("update item placement", res, it); err != nil {
		return model.TodoItem{}, err
	}
	return t.GetItemByID(ctx, it.ID)
}

// DeleteItems removes the given item rows in one statement.
// Dependency edges touching them must already be gone.
func (t *Tx) DeleteItems(ctx context.Context, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks, args := placeholders(ids)
	res, err := t.exec(ctx, "delete items", `DELETE FROM items WHERE id IN (`+marks+`)`, args...)
	if err != nil {
		return 0, err
	}
	return rowsAffected("delete items", res)
}

// DeleteItemsForList removes every item of a list.
func (t *Tx) DeleteItemsForList(ctx context.Context, listID int64) (int64, error) {
	res, err := t.exec(ctx, "delete list items", `DELETE FROM items WHERE list_id = ?`, listID)
	if err != nil {
		return 0, err
	}
	return rowsAffected("delete list items", res)
}

func (t *Tx) queryItems(ctx context.Context, op, query string, args ...any) ([]model.TodoItem, error) {
	rows, err := t.query(ctx, op, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.TodoItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, classify(op+": scan", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op+": iterate", err)
	}
	return items, nil
}

func scanItem(row rowScanner) (model.TodoItem, error) {
	var (
		it               model.TodoItem
		status           string
		parentID         sql.NullInt64
		created, updated int64
		completed        sql.NullInt64
	)
	if err := row.Scan(
		&it.ID, &it.ListID, &it.ListKey, &it.Key, &it.Title, &status, &it.Position,
		&parentID, &it.ParentKey, &it.Version, &created, &updated, &completed,
	); err != nil {
		return model.TodoItem{}, err
	}
	it.Status = model.Status(status)
	if !it.Status.Valid() {
		return model.TodoItem{}, model.Errorf(model.CodeInvariantViolation, "item %d has unknown status %q", it.ID, status)
	}
	if parentID.Valid {
		p := parentID.Int64
		it.ParentID = &p
	}
	it.CreatedAt = fromNanos(created)
	it.UpdatedAt = fromNanos(updated)
	it.CompletedAt = nullNanos(completed)
	return it, nil
}

func expectOneRow(op string, res sql.Result, it model.TodoItem) error {
	n, err := rowsAffected(op, res)
	if err != nil {
		return err
	}
	if n != 1 {
		return model.Errorf(model.CodeConcurrentModification,
			"item %s changed since it was read (version %d)", it.Ref(), it.Version)
	}
	return nil
}

func nullID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func completedAt(status model.Status, at time.Time) sql.NullInt64 {
	if status != model.StatusCompleted {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: at.UnixNano(), Valid: true}
}
