package store

import (
	"context"
	"strings"

	"github.com/roach88/tasktree/internal/model"
)

// InsertHistory appends one history entry and returns it with its sequence number.
// The entry's ID, Timestamp, and Actor must already be set.
func (t *Tx) InsertHistory(ctx context.Context, e model.HistoryEntry) (model.HistoryEntry, error) {
	res, err := t.exec(ctx, "insert history", `
		INSERT INTO history
		(id, subject_kind, list_key, item_key, action, old_value, new_value, details, timestamp, actor)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		string(e.SubjectKind),
		e.ListKey,
		e.ItemKey,
		string(e.Action),
		e.OldValue,
		e.NewValue,
		e.Details,
		e.Timestamp.UnixNano(),
		e.Actor,
	)
	if err != nil {
		return model.HistoryEntry{}, err
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return model.HistoryEntry{}, classify("insert history: last insert id", err)
	}
	e.Seq = seq
	return e, nil
}

// QueryHistory returns one page of entries matching q plus the total match count.
// q must already be normalized. Results are ordered by timestamp, then seq.
func (t *Tx) QueryHistory(ctx context.Context, q model.HistoryQuery) ([]model.HistoryEntry, int, error) {
	var (
		where []string
		args  []any
	)
	if q.ListKey != "" {
		where = append(where, "list_key = ?")
		args = append(args, q.ListKey)
	}
	if q.ItemKey != "" {
		where = append(where, "item_key = ?")
		args = append(args, q.ItemKey)
	}
	if q.Subject != "" {
		where = append(where, "subject_kind = ?")
		args = append(args, string(q.Subject))
	}
	if q.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(q.Action))
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	row, err := t.queryRow(ctx, `SELECT COUNT(*) FROM history`+clause, args...)
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := row.Scan(&total); err != nil {
		return nil, 0, classify("count history", err)
	}

	pageArgs := append(append([]any{}, args...), q.Limit, q.Offset)
	rows, err := t.query(ctx, "query history", `
		SELECT seq, id, subject_kind, list_key, item_key, action, old_value, new_value, details, timestamp, actor
		FROM history`+clause+`
		ORDER BY timestamp ASC, seq ASC
		LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.HistoryEntry{}
	for rows.Next() {
		var (
			e           model.HistoryEntry
			kind, act   string
			timestampNs int64
		)
		if err := rows.Scan(&e.Seq, &e.ID, &kind, &e.ListKey, &e.ItemKey, &act,
			&e.OldValue, &e.NewValue, &e.Details, &timestampNs, &e.Actor); err != nil {
			return nil, 0, classify("scan history", err)
		}
		e.SubjectKind = model.SubjectKind(kind)
		e.Action = model.Action(act)
		e.Timestamp = fromNanos(timestampNs)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, classify("iterate history", err)
	}
	return entries, total, nil
}
