// Package depgraph maintains the directed "depends on" edges between items.
//
// An edge dependent -> target means dependent cannot start or finish until
// target is completed. Edges may cross lists. The graph is kept acyclic:
// Add refuses any edge that would close a loop.
//
// Graph holds no state of its own. Every query reads through the caller's
// transaction, so it always sees the unit of work's current snapshot.
package depgraph

import (
	"context"
	"strings"
	"time"

	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// Graph answers dependency and blocking queries over the store.
type Graph struct {
	now func() time.Time
}

// New creates a Graph. now stamps new edges.
func New(now func() time.Time) *Graph {
	return &Graph{now: now}
}

// Add inserts the edge dependent -> target.
//
// Fails with CYCLE_DETECTED for a self-loop or when target already reaches
// dependent, and with DUPLICATE_DEPENDENCY when the edge exists. Nothing is
// written on failure.
func (g *Graph) Add(ctx context.Context, tx *store.Tx, dependent, target model.TodoItem) (model.Dependency, error) {
	if dependent.ID == target.ID {
		return model.Dependency{}, model.Errorf(model.CodeCycleDetected,
			"item %s cannot depend on itself", dependent.Ref())
	}

	exists, err := tx.HasDependency(ctx, dependent.ID, target.ID)
	if err != nil {
		return model.Dependency{}, err
	}
	if exists {
		return model.Dependency{}, model.Errorf(model.CodeDuplicateDependency,
			"%s already depends on %s", dependent.Ref(), target.Ref())
	}

	path, err := g.WouldCycle(ctx, tx, dependent, target)
	if err != nil {
		return model.Dependency{}, err
	}
	if path != nil {
		return model.Dependency{}, model.Errorf(model.CodeCycleDetected,
			"dependency %s -> %s would create a cycle: %s", dependent.Ref(), target.Ref(), formatPath(path))
	}

	at := g.now()
	if err := tx.InsertDependency(ctx, dependent.ID, target.ID, at); err != nil {
		return model.Dependency{}, err
	}
	return model.Dependency{Dependent: dependent.Ref(), Target: target.Ref(), CreatedAt: at}, nil
}

// Remove deletes the edge dependent -> target. Removing an absent edge is
// not an error; removed reports whether anything was deleted.
func (g *Graph) Remove(ctx context.Context, tx *store.Tx, dependent, target model.TodoItem) (bool, error) {
	return tx.DeleteDependency(ctx, dependent.ID, target.ID)
}

// WouldCycle reports whether adding dependent -> target would close a loop.
//
// It searches depth-first from target along existing edges. If dependent is
// reachable, the returned path starts and ends at dependent:
// [dependent, target, ..., dependent]. A nil path means the edge is safe.
func (g *Graph) WouldCycle(ctx context.Context, tx *store.Tx, dependent, target model.TodoItem) ([]model.ItemRef, error) {
	if dependent.ID == target.ID {
		return []model.ItemRef{dependent.Ref(), dependent.Ref()}, nil
	}

	// via[n] is the node we reached n from; the search root maps to itself.
	via := map[int64]int64{target.ID: target.ID}
	stack := []int64{target.ID}
	found := false
	for len(stack) > 0 && !found {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		next, err := tx.DependencyTargetIDs(ctx, n)
		if err != nil {
			return nil, err
		}
		for _, m := range next {
			if _, seen := via[m]; seen {
				continue
			}
			via[m] = n
			if m == dependent.ID {
				found = true
				break
			}
			stack = append(stack, m)
		}
	}
	if !found {
		return nil, nil
	}

	// Walk back from dependent to target, then reverse.
	ids := []int64{dependent.ID}
	for n := dependent.ID; n != target.ID; {
		n = via[n]
		ids = append(ids, n)
	}
	ids = append(ids, dependent.ID)
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}

	path := make([]model.ItemRef, len(ids))
	for i, id := range ids {
		switch id {
		case dependent.ID:
			path[i] = dependent.Ref()
		case target.ID:
			path[i] = target.Ref()
		default:
			it, err := tx.GetItemByID(ctx, id)
			if err != nil {
				return nil, err
			}
			path[i] = it.Ref()
		}
	}
	return path, nil
}

// IsBlocked reports whether any direct target of item is not completed.
// Blocking is one hop: a target's own dependencies are already reflected in
// the target's status.
func (g *Graph) IsBlocked(ctx context.Context, tx *store.Tx, item model.TodoItem) (bool, error) {
	blocking, err := g.Blocking(ctx, tx, item)
	if err != nil {
		return false, err
	}
	return len(blocking) > 0, nil
}

// Blocking returns the direct targets of item that are not completed,
// ordered by list key then position.
func (g *Graph) Blocking(ctx context.Context, tx *store.Tx, item model.TodoItem) ([]model.TodoItem, error) {
	targets, err := tx.DependencyTargets(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	blocking := []model.TodoItem{}
	for _, t := range targets {
		if t.Status != model.StatusCompleted {
			blocking = append(blocking, t)
		}
	}
	return blocking, nil
}

// Targets returns every item that item depends on.
func (g *Graph) Targets(ctx context.Context, tx *store.Tx, item model.TodoItem) ([]model.TodoItem, error) {
	return tx.DependencyTargets(ctx, item.ID)
}

// Dependents returns every item that depends on item.
func (g *Graph) Dependents(ctx context.Context, tx *store.Tx, item model.TodoItem) ([]model.TodoItem, error) {
	return tx.Dependents(ctx, item.ID)
}

func formatPath(path []model.ItemRef) string {
	parts := make([]string, len(path))
	for i, ref := range path {
		parts[i] = ref.String()
	}
	return strings.Join(parts, " -> ")
}
