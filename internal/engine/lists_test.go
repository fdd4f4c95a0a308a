package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasktree/internal/history"
	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/testutil"
)

func TestCreateList(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	l, err := env.engine.CreateList(ctx, "proj", "  Project  ", model.ListTypeHierarchical)
	require.NoError(t, err)
	assert.Equal(t, "proj", l.Key)
	assert.Equal(t, "Project", l.Title)
	assert.Equal(t, model.ListTypeHierarchical, l.Type)
	assert.Equal(t, testutil.Epoch, l.CreatedAt)

	_, err = env.engine.CreateList(ctx, "proj", "again", "")
	assert.True(t, model.IsCode(err, model.CodeDuplicateKey), "got %v", err)

	_, err = env.engine.CreateList(ctx, "bad key", "", "")
	assert.True(t, model.IsCode(err, model.CodeInvalidArgument), "got %v", err)

	entries := env.history(t, model.HistoryQuery{ListKey: "proj"})
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionListCreated, entries[0].Action)
	assert.Equal(t, "Project", entries[0].NewValue)
	assert.Equal(t, `{"type":"hierarchical"}`, entries[0].Details)
	assert.Equal(t, "tester", entries[0].Actor)
}

func TestCreateList_ActorFromContext(t *testing.T) {
	env := newTestEngine(t)
	ctx := history.WithActor(context.Background(), "alice")

	_, err := env.engine.CreateList(ctx, "proj", "", "")
	require.NoError(t, err)

	entries := env.history(t, model.HistoryQuery{ListKey: "proj"})
	require.Len(t, entries, 1)
	assert.Equal(t, "alice", entries[0].Actor)
}

func TestGetAndListLists(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	env.list(t, "zeta")
	env.list(t, "alpha")

	l, err := env.engine.GetList(ctx, "zeta")
	require.NoError(t, err)
	assert.Equal(t, "zeta", l.Title)

	_, err = env.engine.GetList(ctx, "nope")
	assert.True(t, IsNotFound(err))

	lists, err := env.engine.ListLists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "alpha", lists[0].Key)
	assert.Equal(t, "zeta", lists[1].Key)
}

func TestRelateLists(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	env.list(t, "proj")
	env.list(t, "sub")

	rel, err := env.engine.RelateLists(ctx, "proj", "sub", "")
	require.NoError(t, err)
	assert.Equal(t, model.RelationProject, rel.Kind)

	_, err = env.engine.RelateLists(ctx, "proj", "sub", "")
	assert.True(t, model.IsCode(err, model.CodeDuplicateKey), "got %v", err)

	_, err = env.engine.RelateLists(ctx, "proj", "proj", "")
	assert.True(t, model.IsCode(err, model.CodeInvalidArgument), "got %v", err)

	_, err = env.engine.RelateLists(ctx, "proj", "missing", "")
	assert.True(t, IsNotFound(err))

	rels, err := env.engine.ListRelations(ctx, "sub")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "proj", rels[0].FromKey)

	removed, err := env.engine.UnrelateLists(ctx, "proj", "sub", "")
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = env.engine.UnrelateLists(ctx, "proj", "sub", "")
	require.NoError(t, err)
	assert.False(t, removed)

	assert.Len(t, env.history(t, model.HistoryQuery{ListKey: "proj", Action: model.ActionListRelated}), 1)
	assert.Len(t, env.history(t, model.HistoryQuery{ListKey: "proj", Action: model.ActionListUnrelated}), 1)
}

func TestDeleteList_Cascades(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	env.list(t, "proj")
	env.list(t, "other")
	env.item(t, "proj", "root", "")
	env.item(t, "proj", "a", "root")
	env.item(t, "proj", "b", "root")
	env.item(t, "other", "x", "")
	_, err := env.engine.AddItemDependency(ctx, ref("proj", "a"), ref("proj", "b"))
	require.NoError(t, err)
	// Outbound edges from the deleted list do not block deletion.
	_, err = env.engine.AddItemDependency(ctx, ref("proj", "b"), ref("other", "x"))
	require.NoError(t, err)
	_, err = env.engine.RelateLists(ctx, "other", "proj", "")
	require.NoError(t, err)

	require.NoError(t, env.engine.DeleteList(ctx, "proj"))

	_, err = env.engine.GetList(ctx, "proj")
	assert.True(t, IsNotFound(err))

	deps, err := env.engine.ListDependencies(ctx, ref("other", "x"))
	require.NoError(t, err)
	assert.Empty(t, deps.Dependents)

	rels, err := env.engine.ListRelations(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, rels)

	// History survives and records the deletion.
	entries := env.history(t, model.HistoryQuery{ListKey: "proj", Action: model.ActionListDeleted})
	require.Len(t, entries, 1)
	assert.Equal(t, `{"dependencies":2,"items":3,"relations":1}`, entries[0].Details)
	assert.NotEmpty(t, env.history(t, model.HistoryQuery{ListKey: "proj", ItemKey: "a"}))
}

func TestDeleteList_RejectsExternalReference(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	env.list(t, "proj")
	env.list(t, "other")
	env.item(t, "proj", "a", "")
	env.item(t, "other", "x", "")
	_, err := env.engine.AddItemDependency(ctx, ref("other", "x"), ref("proj", "a"))
	require.NoError(t, err)

	before := env.snapshot(t)
	err = env.engine.DeleteList(ctx, "proj")
	require.True(t, model.IsCode(err, model.CodeExternalReference), "got %v", err)
	assert.Contains(t, err.Error(), "other:x -> proj:a")
	assert.Equal(t, before, env.snapshot(t))

	_, err = env.engine.RemoveItemDependency(ctx, ref("other", "x"), ref("proj", "a"))
	require.NoError(t, err)
	assert.NoError(t, env.engine.DeleteList(ctx, "proj"))
}
