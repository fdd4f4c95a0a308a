package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/roach88/tasktree/internal/model"
)

const listColumns = `id, key, title, list_type, created_at, updated_at`

// InsertList creates a list row and returns it with its store identity.
// Returns DUPLICATE_KEY if the key is taken.
func (t *Tx) InsertList(ctx context.Context, l model.TodoList) (model.TodoList, error) {
	res, err := t.exec(ctx, "insert list", `
		INSERT INTO lists (key, title, list_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, l.Key, l.Title, string(l.Type), l.CreatedAt.UnixNano(), l.UpdatedAt.UnixNano())
	if err != nil {
		return model.TodoList{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.TodoList{}, classify("insert list: last insert id", err)
	}
	l.ID = id
	return l, nil
}

// GetList returns the list with the given key. Returns NOT_FOUND if absent.
func (t *Tx) GetList(ctx context.Context, key string) (model.TodoList, error) {
	row, err := t.queryRow(ctx, `SELECT `+listColumns+` FROM lists WHERE key = ?`, key)
	if err != nil {
		return model.TodoList{}, err
	}
	l, err := scanList(row)
	if IsNotFoundError(err) {
		return model.TodoList{}, model.Errorf(model.CodeNotFound, "list %q not found", key)
	}
	if err != nil {
		return model.TodoList{}, classify("get list", err)
	}
	return l, nil
}

// ListLists returns every list ordered by key.
func (t *Tx) ListLists(ctx context.Context) ([]model.TodoList, error) {
	rows, err := t.query(ctx, "list lists", `SELECT `+listColumns+` FROM lists ORDER BY key COLLATE BINARY ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lists := []model.TodoList{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, classify("scan list", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate lists", err)
	}
	return lists, nil
}

// TouchList bumps a list's updated_at.
func (t *Tx) TouchList(ctx context.Context, listID int64, at time.Time) error {
	_, err := t.exec(ctx, "touch list", `UPDATE lists SET updated_at = ? WHERE id = ?`, at.UnixNano(), listID)
	return err
}

// DeleteList removes the list row. Items, edges, and relations must already be gone.
func (t *Tx) DeleteList(ctx context.Context, listID int64) error {
	res, err := t.exec(ctx, "delete list", `DELETE FROM lists WHERE id = ?`, listID)
	if err != nil {
		return err
	}
	n, err := rowsAffected("delete list", res)
	if err != nil {
		return err
	}
	if n == 0 {
		return model.Errorf(model.CodeConcurrentModification, "list %d disappeared during delete", listID)
	}
	return nil
}

// InsertRelation records a directed relation between two lists.
// Returns DUPLICATE_KEY if the same relation exists.
func (t *Tx) InsertRelation(ctx context.Context, fromID, toID int64, kind model.RelationKind, at time.Time) error {
	_, err := t.exec(ctx, "insert relation", `
		INSERT INTO list_relations (from_list_id, to_list_id, kind, created_at)
		VALUES (?, ?, ?, ?)
	`, fromID, toID, string(kind), at.UnixNano())
	return err
}

// DeleteRelation removes one relation and reports whether it existed.
func (t *Tx) DeleteRelation(ctx context.Context, fromID, toID int64, kind model.RelationKind) (bool, error) {
	res, err := t.exec(ctx, "delete relation", `
		DELETE FROM list_relations WHERE from_list_id = ? AND to_list_id = ? AND kind = ?
	`, fromID, toID, string(kind))
	if err != nil {
		return false, err
	}
	n, err := rowsAffected("delete relation", res)
	return n > 0, err
}

// ListRelations returns every relation in which the list takes part, in either direction.
func (t *Tx) ListRelations(ctx context.Context, listID int64) ([]model.ListRelation, error) {
	rows, err := t.query(ctx, "list relations", `
		SELECT f.key, d.key, r.kind, r.created_at
		FROM list_relations r
		JOIN lists f ON f.id = r.from_list_id
		JOIN lists d ON d.id = r.to_list_id
		WHERE r.from_list_id = ? OR r.to_list_id = ?
		ORDER BY f.key COLLATE BINARY ASC, d.key COLLATE BINARY ASC, r.kind ASC
	`, listID, listID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	relations := []model.ListRelation{}
	for rows.Next() {
		var (
			r       model.ListRelation
			kind    string
			created int64
		)
		if err := rows.Scan(&r.FromKey, &r.ToKey, &kind, &created); err != nil {
			return nil, classify("scan relation", err)
		}
		r.Kind = model.RelationKind(kind)
		r.CreatedAt = fromNanos(created)
		relations = append(relations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate relations", err)
	}
	return relations, nil
}

// DeleteRelationsForList removes every relation touching the list.
func (t *Tx) DeleteRelationsForList(ctx context.Context, listID int64) (int64, error) {
	res, err := t.exec(ctx, "delete list relations", `
		DELETE FROM list_relations WHERE from_list_id = ? OR to_list_id = ?
	`, listID, listID)
	if err != nil {
		return 0, err
	}
	return rowsAffected("delete list relations", res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanList(row rowScanner) (model.TodoList, error) {
	var (
		l                model.TodoList
		listType         string
		created, updated int64
	)
	if err := row.Scan(&l.ID, &l.Key, &l.Title, &listType, &created, &updated); err != nil {
		return model.TodoList{}, err
	}
	l.Type = model.ListType(listType)
	l.CreatedAt = fromNanos(created)
	l.UpdatedAt = fromNanos(updated)
	return l, nil
}

func fromNanos(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

func nullNanos(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromNanos(v.Int64)
	return &t
}
