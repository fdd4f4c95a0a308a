package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/tasktree/internal/model"
)

var testTime = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// createTestStore opens a fresh database in a temp directory.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// inTx runs fn in a committed unit of work and fails the test on error.
func inTx(t *testing.T, s *Store, fn func(ctx context.Context, tx *Tx) error) {
	t.Helper()
	require.NoError(t, s.WithUnitOfWork(context.Background(), fn))
}

func createTestList(t *testing.T, tx *Tx, key string) model.TodoList {
	t.Helper()
	l, err := tx.InsertList(context.Background(), model.TodoList{
		Key:       key,
		Title:     "List " + key,
		Type:      model.ListTypeSequential,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	})
	require.NoError(t, err)
	return l
}

func createTestItem(t *testing.T, tx *Tx, list model.TodoList, key string, parent *model.TodoItem) model.TodoItem {
	t.Helper()
	ctx := context.Background()
	var parentID *int64
	if parent != nil {
		parentID = &parent.ID
	}
	max, err := tx.MaxPosition(ctx, list.ID, parentID)
	require.NoError(t, err)
	it, err := tx.InsertItem(ctx, model.TodoItem{
		ListID:    list.ID,
		Key:       key,
		Title:     "Item " + key,
		Status:    model.StatusPending,
		Position:  max + 1,
		ParentID:  parentID,
		CreatedAt: testTime,
		UpdatedAt: testTime,
	})
	require.NoError(t, err)
	return it
}

func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("failed to get table info for %q: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dfltValue any
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			t.Fatalf("failed to scan column info: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func keysOf(items []model.TodoItem) []string {
	keys := make([]string, len(items))
	for i, it := range items {
		keys[i] = it.Key
	}
	return keys
}
