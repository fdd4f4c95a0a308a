package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasktree/internal/model"
)

func TestEndToEnd_ProjectRootCompletes(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	_, err := env.engine.CreateList(ctx, "proj", "Project", "")
	require.NoError(t, err)
	env.item(t, "proj", "root", "")
	env.item(t, "proj", "a", "root")
	env.item(t, "proj", "b", "root")

	env.setStatus(t, "proj", "a", model.StatusCompleted)
	assert.Equal(t, model.StatusInProgress, env.status(t, "proj", "root"))
	env.setStatus(t, "proj", "b", model.StatusCompleted)

	root, err := env.engine.GetItem(ctx, "proj", "root")
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, root.Status)
	assert.NotNil(t, root.CompletedAt)

	synced := env.history(t, model.HistoryQuery{ListKey: "proj", ItemKey: "root", Action: model.ActionStatusSynced})
	require.Len(t, synced, 2)
	assert.Equal(t, "pending", synced[0].OldValue)
	assert.Equal(t, "in_progress", synced[0].NewValue)
	assert.Equal(t, "in_progress", synced[1].OldValue)
	assert.Equal(t, "completed", synced[1].NewValue)

	all := env.history(t, model.HistoryQuery{ListKey: "proj"})
	actions := make([]model.Action, len(all))
	for i, e := range all {
		actions[i] = e.Action
	}
	assert.Equal(t, []model.Action{
		model.ActionListCreated,
		model.ActionItemAdded,
		model.ActionItemAdded,
		model.ActionItemAdded,
		model.ActionStatusChanged,
		model.ActionStatusSynced,
		model.ActionStatusChanged,
		model.ActionStatusSynced,
	}, actions)
}
