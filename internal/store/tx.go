package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/roach88/tasktree/internal/model"
)

// Tx is the live handle of one unit of work.
//
// A Tx is only valid inside the function passed to WithUnitOfWork. Every
// method returns detached values; once the unit of work ends, further calls
// fail with INVARIANT_VIOLATION instead of touching a finished transaction.
type Tx struct {
	tx   *sql.Tx
	done atomic.Bool
}

// WithUnitOfWork runs fn inside a single transaction.
//
// The transaction commits when fn returns nil and the before-commit hook (if
// any) succeeds. It rolls back fully when fn returns an error, the hook fails,
// or fn panics; a panic is re-raised after the rollback.
//
// Busy/locked failures at BEGIN or COMMIT surface as CONCURRENT_MODIFICATION.
// The gateway never retries; retry policy belongs to the caller.
func (s *Store) WithUnitOfWork(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin unit of work", err)
	}

	tx := &Tx{tx: sqlTx}
	committed := false
	defer func() {
		tx.done.Store(true)
		if !committed {
			_ = sqlTx.Rollback() // No-op if already rolled back
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if s.beforeCommit != nil {
		if err := s.beforeCommit(ctx); err != nil {
			return err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return classify("commit unit of work", err)
	}
	committed = true
	return nil
}

// WithReadUnitOfWork runs fn inside a read-only transaction on the read
// pool. The transaction takes no write lock, so it does not wait for or block
// writers; fn sees the state as of its first read. Any write attempted
// through tx fails. The before-commit hook does not run.
func (s *Store) WithReadUnitOfWork(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	sqlTx, err := s.reader.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return classify("begin read unit of work", err)
	}

	tx := &Tx{tx: sqlTx}
	defer func() {
		tx.done.Store(true)
		_ = sqlTx.Rollback()
	}()

	return fn(ctx, tx)
}

func (t *Tx) check() error {
	if t.done.Load() {
		return model.NewError(model.CodeInvariantViolation, "transaction handle used after its unit of work ended")
	}
	return nil
}

func (t *Tx) exec(ctx context.Context, op, query string, args ...any) (sql.Result, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	return res, nil
}

func (t *Tx) query(ctx context.Context, op, query string, args ...any) (*sql.Rows, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	rows, err := t.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(op, err)
	}
	return rows, nil
}

func (t *Tx) queryRow(ctx context.Context, query string, args ...any) (*sql.Row, error) {
	if err := t.check(); err != nil {
		return nil, err
	}
	return t.tx.QueryRowContext(ctx, query, args...), nil
}

// placeholders returns "?, ?, ..." with n markers and the ids as driver args.
func placeholders(ids []int64) (string, []any) {
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args[i] = id
	}
	return strings.Join(marks, ", "), args
}

// rowsAffected reads the affected-row count of an exec result.
func rowsAffected(op string, res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}
