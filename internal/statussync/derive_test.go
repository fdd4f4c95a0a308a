package statussync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasktree/internal/model"
)

func TestDerive(t *testing.T) {
	const (
		P = model.StatusPending
		I = model.StatusInProgress
		C = model.StatusCompleted
		F = model.StatusFailed
		B = model.StatusBlocked
	)

	tests := []struct {
		name     string
		children []model.Status
		want     model.Status
	}{
		{"all completed", []model.Status{C, C}, C},
		{"completed and failed", []model.Status{C, F}, F},
		{"pending and in progress", []model.Status{P, I}, I},
		{"blocked and completed", []model.Status{B, C}, B},
		{"failed beats blocked", []model.Status{B, F, I}, F},
		{"all pending", []model.Status{P, P, P}, P},
		{"completed and pending", []model.Status{C, P}, I},
		{"single in progress", []model.Status{I}, I},
		{"single completed", []model.Status{C}, C},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := Derive(tt.children)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerive_NoChildren(t *testing.T) {
	got, ok, err := Derive(nil)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestDerive_UnknownStatus(t *testing.T) {
	_, _, err := Derive([]model.Status{model.StatusPending, "archived"})
	assert.True(t, model.IsCode(err, model.CodeInvariantViolation))
}
