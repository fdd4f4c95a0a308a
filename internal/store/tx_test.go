package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasktree/internal/model"
)

func TestWithUnitOfWork_CommitsOnSuccess(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		createTestList(t, tx, "l")
		return nil
	})

	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		l, err := tx.GetList(ctx, "l")
		require.NoError(t, err)
		assert.Equal(t, "List l", l.Title)
		return nil
	})
}

func TestWithUnitOfWork_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithUnitOfWork(ctx, func(ctx context.Context, tx *Tx) error {
		l := createTestList(t, tx, "l")
		createTestItem(t, tx, l, "a", nil)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWithUnitOfWork_RollsBackOnPanic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = s.WithUnitOfWork(ctx, func(ctx context.Context, tx *Tx) error {
			createTestList(t, tx, "l")
			panic("midway")
		})
	})

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWithUnitOfWork_BeforeCommitFailureRollsBack(t *testing.T) {
	hookErr := errors.New("injected")
	s := createTestStore(t, WithBeforeCommit(func(ctx context.Context) error { return hookErr }))
	ctx := context.Background()
	before, err := s.Snapshot(ctx)
	require.NoError(t, err)

	err = s.WithUnitOfWork(ctx, func(ctx context.Context, tx *Tx) error {
		createTestList(t, tx, "l")
		return nil
	})
	assert.ErrorIs(t, err, hookErr)

	after, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTx_UnusableAfterUnitOfWork(t *testing.T) {
	s := createTestStore(t)
	var leaked *Tx
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		leaked = tx
		return nil
	})

	_, err := leaked.GetList(context.Background(), "l")
	assert.True(t, model.IsCode(err, model.CodeInvariantViolation))
}

func TestWithUnitOfWork_BusyIsConcurrentModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	a, err := Open(path, WithBusyTimeout(1))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path, WithBusyTimeout(1))
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	err = a.WithUnitOfWork(ctx, func(ctx context.Context, tx *Tx) error {
		createTestList(t, tx, "l")
		return b.WithUnitOfWork(ctx, func(ctx context.Context, tx *Tx) error {
			return nil
		})
	})
	assert.True(t, model.IsCode(err, model.CodeConcurrentModification), "got %v", err)
}

func TestWithReadUnitOfWork_DoesNotWaitForWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	a, err := Open(path, WithBusyTimeout(1))
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path, WithBusyTimeout(1))
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	inTx(t, a, func(ctx context.Context, tx *Tx) error {
		createTestList(t, tx, "committed")
		return nil
	})

	err = a.WithUnitOfWork(ctx, func(ctx context.Context, tx *Tx) error {
		createTestList(t, tx, "pending")
		// b reads while a holds the write lock and sees only committed rows.
		return b.WithReadUnitOfWork(ctx, func(ctx context.Context, rtx *Tx) error {
			lists, err := rtx.ListLists(ctx)
			if err != nil {
				return err
			}
			assert.Len(t, lists, 1)
			assert.Equal(t, "committed", lists[0].Key)
			return nil
		})
	})
	require.NoError(t, err)
}

func TestWithReadUnitOfWork_RejectsWrites(t *testing.T) {
	s := createTestStore(t)
	err := s.WithReadUnitOfWork(context.Background(), func(ctx context.Context, tx *Tx) error {
		_, err := tx.InsertList(ctx, model.TodoList{Key: "x", Title: "x", Type: model.ListTypeSequential, CreatedAt: testTime, UpdatedAt: testTime})
		return err
	})
	require.Error(t, err)

	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		lists, err := tx.ListLists(ctx)
		require.NoError(t, err)
		assert.Empty(t, lists)
		return nil
	})
}

func TestLists_CRUD(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		createTestList(t, tx, "b")
		createTestList(t, tx, "a")

		_, err := tx.InsertList(ctx, model.TodoList{Key: "a", Title: "dup", Type: model.ListTypeParallel, CreatedAt: testTime, UpdatedAt: testTime})
		assert.True(t, model.IsCode(err, model.CodeDuplicateKey))

		lists, err := tx.ListLists(ctx)
		require.NoError(t, err)
		require.Len(t, lists, 2)
		assert.Equal(t, "a", lists[0].Key)
		assert.Equal(t, "b", lists[1].Key)
		assert.Equal(t, testTime, lists[0].CreatedAt)

		_, err = tx.GetList(ctx, "missing")
		assert.True(t, model.IsCode(err, model.CodeNotFound))

		require.NoError(t, tx.DeleteList(ctx, lists[0].ID))
		err = tx.DeleteList(ctx, lists[0].ID)
		assert.True(t, model.IsCode(err, model.CodeConcurrentModification))
		return nil
	})
}

func TestRelations(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		p := createTestList(t, tx, "proj")
		a := createTestList(t, tx, "a")
		b := createTestList(t, tx, "b")

		require.NoError(t, tx.InsertRelation(ctx, p.ID, a.ID, model.RelationProject, testTime))
		require.NoError(t, tx.InsertRelation(ctx, p.ID, b.ID, model.RelationProject, testTime))
		err := tx.InsertRelation(ctx, p.ID, a.ID, model.RelationProject, testTime)
		assert.True(t, model.IsCode(err, model.CodeDuplicateKey))

		rels, err := tx.ListRelations(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, rels, 2)
		assert.Equal(t, "a", rels[0].ToKey)

		rels, err = tx.ListRelations(ctx, b.ID)
		require.NoError(t, err)
		require.Len(t, rels, 1)
		assert.Equal(t, "proj", rels[0].FromKey)

		removed, err := tx.DeleteRelation(ctx, p.ID, a.ID, model.RelationProject)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = tx.DeleteRelation(ctx, p.ID, a.ID, model.RelationProject)
		require.NoError(t, err)
		assert.False(t, removed)

		n, err := tx.DeleteRelationsForList(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	})
}

func TestItems_TreeQueries(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		l := createTestList(t, tx, "l")
		root := createTestItem(t, tx, l, "root", nil)
		a := createTestItem(t, tx, l, "a", &root)
		createTestItem(t, tx, l, "b", &root)
		createTestItem(t, tx, l, "a1", &a)
		createTestItem(t, tx, l, "other", nil)

		assert.Equal(t, "root", a.ParentKey)
		assert.Equal(t, "l", a.ListKey)
		assert.Equal(t, int64(1), a.Version)

		roots, err := tx.Children(ctx, l.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"root", "other"}, keysOf(roots))

		kids, err := tx.Children(ctx, l.ID, &root.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, keysOf(kids))
		assert.Equal(t, 1, kids[0].Position)
		assert.Equal(t, 2, kids[1].Position)

		desc, err := tx.Descendants(ctx, root.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"a", "b", "a1"}, keysOf(desc))

		_, err = tx.InsertItem(ctx, model.TodoItem{ListID: l.ID, Key: "a", Title: "dup", Status: model.StatusPending, Position: 9, CreatedAt: testTime, UpdatedAt: testTime})
		assert.True(t, model.IsCode(err, model.CodeDuplicateKey))

		_, err = tx.GetItem(ctx, l.ID, "nope")
		assert.True(t, model.IsCode(err, model.CodeNotFound))
		return nil
	})
}

func TestItems_DeleteForList(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		l := createTestList(t, tx, "l")
		keep := createTestList(t, tx, "keep")
		root := createTestItem(t, tx, l, "root", nil)
		a := createTestItem(t, tx, l, "a", &root)
		createTestItem(t, tx, l, "a1", &a)
		createTestItem(t, tx, keep, "k", nil)

		n, err := tx.DeleteItemsForList(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		left, err := tx.ListItems(ctx, l.ID)
		require.NoError(t, err)
		assert.Empty(t, left)

		other, err := tx.ListItems(ctx, keep.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"k"}, keysOf(other))
		return nil
	})
}

func TestItems_OptimisticVersion(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		l := createTestList(t, tx, "l")
		a := createTestItem(t, tx, l, "a", nil)

		updated, err := tx.UpdateItemStatus(ctx, a, model.StatusCompleted, testTime)
		require.NoError(t, err)
		assert.Equal(t, model.StatusCompleted, updated.Status)
		assert.Equal(t, int64(2), updated.Version)
		require.NotNil(t, updated.CompletedAt)

		// a is stale now.
		_, err = tx.UpdateItemStatus(ctx, a, model.StatusFailed, testTime)
		assert.True(t, model.IsCode(err, model.CodeConcurrentModification))

		reopened, err := tx.UpdateItemStatus(ctx, updated, model.StatusPending, testTime)
		require.NoError(t, err)
		assert.Nil(t, reopened.CompletedAt)
		return nil
	})
}

func TestItems_ShiftAndPlacement(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		l := createTestList(t, tx, "l")
		createTestItem(t, tx, l, "a", nil)
		createTestItem(t, tx, l, "b", nil)
		c := createTestItem(t, tx, l, "c", nil)

		// Move c to the front.
		require.NoError(t, tx.ShiftPositions(ctx, l.ID, nil, 1, 2, 1, testTime))
		_, err := tx.UpdateItemPlacement(ctx, c, nil, 1, testTime)
		require.NoError(t, err)

		roots, err := tx.Children(ctx, l.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "a", "b"}, keysOf(roots))

		max, err := tx.MaxPosition(ctx, l.ID, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, max)
		return nil
	})
}

func TestDependencies(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		l1 := createTestList(t, tx, "l1")
		l2 := createTestList(t, tx, "l2")
		a := createTestItem(t, tx, l1, "a", nil)
		b := createTestItem(t, tx, l1, "b", nil)
		x := createTestItem(t, tx, l2, "x", nil)

		require.NoError(t, tx.InsertDependency(ctx, a.ID, b.ID, testTime))
		require.NoError(t, tx.InsertDependency(ctx, x.ID, b.ID, testTime))
		err := tx.InsertDependency(ctx, a.ID, b.ID, testTime)
		assert.True(t, model.IsCode(err, model.CodeDuplicateKey))

		ok, err := tx.HasDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		targets, err := tx.DependencyTargets(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, keysOf(targets))

		ids, err := tx.DependencyTargetIDs(ctx, x.ID)
		require.NoError(t, err)
		assert.Equal(t, []int64{b.ID}, ids)

		dependents, err := tx.Dependents(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "x"}, keysOf(dependents))

		dep, err := tx.GetDependency(ctx, x, b)
		require.NoError(t, err)
		assert.Equal(t, "l2:x", dep.Dependent.String())
		assert.Equal(t, "l1:b", dep.Target.String())

		_, err = tx.GetDependency(ctx, b, a)
		assert.True(t, model.IsCode(err, model.CodeNotFound))

		external, err := tx.ExternalDependencies(ctx, l1.ID)
		require.NoError(t, err)
		require.Len(t, external, 1)
		assert.Equal(t, "l2:x", external[0].Dependent.String())

		removed, err := tx.DeleteDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = tx.DeleteDependency(ctx, a.ID, b.ID)
		require.NoError(t, err)
		assert.False(t, removed)

		n, err := tx.DeleteDependenciesTouching(ctx, []int64{b.ID})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		return nil
	})
}

func TestHistory_InsertAndQuery(t *testing.T) {
	s := createTestStore(t)
	inTx(t, s, func(ctx context.Context, tx *Tx) error {
		entries := []model.HistoryEntry{
			{ID: "h1", SubjectKind: model.SubjectList, ListKey: "l", Action: model.ActionListCreated, Timestamp: testTime, Actor: "u"},
			{ID: "h2", SubjectKind: model.SubjectItem, ListKey: "l", ItemKey: "a", Action: model.ActionItemAdded, Timestamp: testTime, Actor: "u"},
			{ID: "h3", SubjectKind: model.SubjectItem, ListKey: "l", ItemKey: "a", Action: model.ActionStatusChanged, OldValue: "pending", NewValue: "completed", Timestamp: testTime, Actor: "u"},
		}
		for i, e := range entries {
			got, err := tx.InsertHistory(ctx, e)
			require.NoError(t, err)
			assert.Equal(t, int64(i+1), got.Seq)
		}

		q, err := model.HistoryQuery{ListKey: "l", ItemKey: "a"}.Normalize()
		require.NoError(t, err)
		page, total, err := tx.QueryHistory(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page, 2)
		assert.Equal(t, "h2", page[0].ID)
		assert.Equal(t, "h3", page[1].ID)
		assert.Equal(t, "completed", page[1].NewValue)
		assert.Equal(t, testTime, page[1].Timestamp)

		q, err = model.HistoryQuery{Action: model.ActionListCreated}.Normalize()
		require.NoError(t, err)
		page, total, err = tx.QueryHistory(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "h1", page[0].ID)

		q, err = model.HistoryQuery{ListKey: "l", Subject: model.SubjectList}.Normalize()
		require.NoError(t, err)
		page, total, err = tx.QueryHistory(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, "h1", page[0].ID)

		q, err = model.HistoryQuery{ListKey: "l", Subject: model.SubjectItem}.Normalize()
		require.NoError(t, err)
		_, total, err = tx.QueryHistory(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 2, total)

		q, err = model.HistoryQuery{Limit: 1, Offset: 2}.Normalize()
		require.NoError(t, err)
		page, total, err = tx.QueryHistory(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, page, 1)
		assert.Equal(t, "h3", page[0].ID)
		return nil
	})
}
