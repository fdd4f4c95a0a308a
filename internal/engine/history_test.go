package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasktree/internal/model"
)

func TestHistory_Paging(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()
	env.list(t, "l")
	for _, k := range []string{"a", "b", "c"} {
		env.item(t, "l", k, "")
	}

	page, err := env.engine.History(ctx, model.HistoryQuery{ListKey: "l", Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.Limit)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, model.ActionListCreated, page.Entries[0].Action)
	assert.Equal(t, "a", page.Entries[1].ItemKey)

	page, err = env.engine.History(ctx, model.HistoryQuery{ListKey: "l", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "b", page.Entries[0].ItemKey)
	assert.Equal(t, "c", page.Entries[1].ItemKey)

	page, err = env.engine.History(ctx, model.HistoryQuery{ListKey: "l", ItemKey: "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, model.DefaultHistoryLimit, page.Limit)

	for i := 1; i < len(page.Entries); i++ {
		assert.True(t, page.Entries[i-1].Seq < page.Entries[i].Seq)
	}
}

func TestHistory_InvalidQuery(t *testing.T) {
	env := newTestEngine(t)
	ctx := context.Background()

	_, err := env.engine.History(ctx, model.HistoryQuery{ItemKey: "a"})
	assert.True(t, model.IsCode(err, model.CodeInvalidArgument))
	_, err = env.engine.History(ctx, model.HistoryQuery{Action: "renamed"})
	assert.True(t, model.IsCode(err, model.CodeInvalidArgument))
	_, err = env.engine.History(ctx, model.HistoryQuery{Offset: -1})
	assert.True(t, model.IsCode(err, model.CodeInvalidArgument))
}

func TestHistory_MissingSubjectIsEmpty(t *testing.T) {
	env := newTestEngine(t)
	page, err := env.engine.History(context.Background(), model.HistoryQuery{ListKey: "never"})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Entries)
}
