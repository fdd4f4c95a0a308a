package engine

import (
	"context"
	"strconv"
	"strings"

	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// NewItem describes an item to add.
type NewItem struct {
	Key   string
	Title string

	// ParentKey names a parent in the same list. The "list:item" form is
	// accepted; naming another list fails with INVALID_PARENT.
	ParentKey string

	// Position is the 1-based slot among siblings. Nil appends. Values past
	// the end append; later siblings shift down.
	Position *int
}

// AddItem adds an item to a list as pending and resynchronizes its parent chain.
func (e *Engine) AddItem(ctx context.Context, listKey string, in NewItem) (model.TodoItem, error) {
	if err := model.ValidateKey("item", in.Key); err != nil {
		return model.TodoItem{}, err
	}
	if in.Position != nil && *in.Position < 1 {
		return model.TodoItem{}, model.Errorf(model.CodeInvalidArgument, "position must be at least 1, got %d", *in.Position)
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = in.Key
	}

	var added model.TodoItem
	err := e.run(ctx, "add_item", func(ctx context.Context, tx *store.Tx) error {
		l, err := tx.GetList(ctx, listKey)
		if err != nil {
			return err
		}
		parent, err := e.resolveParent(ctx, tx, l, in.ParentKey)
		if err != nil {
			return err
		}
		var parentID *int64
		if parent != nil {
			parentID = &parent.ID
		}

		last, err := tx.MaxPosition(ctx, l.ID, parentID)
		if err != nil {
			return err
		}
		pos := last + 1
		if in.Position != nil && *in.Position <= last {
			pos = *in.Position
		}

		now := e.now()
		if pos <= last {
			if err := tx.ShiftPositions(ctx, l.ID, parentID, pos, last, 1, now); err != nil {
				return err
			}
		}
		it, err := tx.InsertItem(ctx, model.TodoItem{
			ListID:    l.ID,
			Key:       in.Key,
			Title:     title,
			Status:    model.StatusPending,
			Position:  pos,
			ParentID:  parentID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if model.IsCode(err, model.CodeDuplicateKey) {
			return model.Errorf(model.CodeDuplicateKey, "item %q already exists in list %q", in.Key, listKey)
		}
		if err != nil {
			return err
		}

		details := model.Details{"title": title, "position": pos}
		if parent != nil {
			details["parent"] = parent.Key
		}
		if _, err := e.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     listKey,
			ItemKey:     in.Key,
			Action:      model.ActionItemAdded,
			NewValue:    string(it.Status),
		}, details); err != nil {
			return err
		}
		if _, err := e.sync.OnItemStatusChanged(ctx, tx, it); err != nil {
			return err
		}
		if err := tx.TouchList(ctx, l.ID, now); err != nil {
			return err
		}
		added = it
		return nil
	})
	return added, err
}

// GetItem returns an item by list and item key.
func (e *Engine) GetItem(ctx context.Context, listKey, itemKey string) (model.TodoItem, error) {
	var it model.TodoItem
	err := e.view(ctx, "get_item", func(ctx context.Context, tx *store.Tx) error {
		var err error
		it, err = loadItem(ctx, tx, listKey, itemKey)
		return err
	})
	return it, err
}

// ListItems returns a list's items depth-first, siblings in position order.
func (e *Engine) ListItems(ctx context.Context, listKey string) ([]model.TodoItem, error) {
	var items []model.TodoItem
	err := e.view(ctx, "list_items", func(ctx context.Context, tx *store.Tx) error {
		l, err := tx.GetList(ctx, listKey)
		if err != nil {
			return err
		}
		all, err := tx.ListItems(ctx, l.ID)
		if err != nil {
			return err
		}
		items = depthFirst(all)
		return nil
	})
	return items, err
}

// UpdateItemStatus sets an item's status.
//
// Moving to in_progress or completed fails with DEPENDENCY_NOT_SATISFIED
// while any dependency target is incomplete. Setting the current status is a
// no-op that records nothing. Otherwise the change is recorded and the
// parent chain is resynchronized.
func (e *Engine) UpdateItemStatus(ctx context.Context, listKey, itemKey string, status model.Status) (model.TodoItem, error) {
	if !status.Valid() {
		return model.TodoItem{}, model.Errorf(model.CodeInvalidArgument, "unknown status %q", status)
	}

	var result model.TodoItem
	err := e.run(ctx, "update_item_status", func(ctx context.Context, tx *store.Tx) error {
		it, err := loadItem(ctx, tx, listKey, itemKey)
		if err != nil {
			return err
		}
		if it.Status == status {
			result = it
			return nil
		}
		if status.RequiresUnblocked() {
			blocking, err := e.graph.Blocking(ctx, tx, it)
			if err != nil {
				return err
			}
			if len(blocking) > 0 {
				return model.Errorf(model.CodeDependencyNotSatisfied,
					"%s cannot become %s: waiting on %s", it.Ref(), status, refList(blocking))
			}
		}

		updated, err := tx.UpdateItemStatus(ctx, it, status, e.now())
		if err != nil {
			return err
		}
		if _, err := e.recorder.Record(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     listKey,
			ItemKey:     itemKey,
			Action:      model.ActionStatusChanged,
			OldValue:    string(it.Status),
			NewValue:    string(status),
		}); err != nil {
			return err
		}
		if _, err := e.sync.OnItemStatusChanged(ctx, tx, updated); err != nil {
			return err
		}
		result = updated
		return nil
	})
	return result, err
}

// DeleteItem removes an item and all of its descendants.
//
// Dependency edges touching any removed item are deleted first, remaining
// siblings close the gap, and the former parent's chain is resynchronized.
// Returns the keys of every removed item, the target first.
func (e *Engine) DeleteItem(ctx context.Context, listKey, itemKey string) ([]string, error) {
	var removed []string
	err := e.run(ctx, "delete_item", func(ctx context.Context, tx *store.Tx) error {
		it, err := loadItem(ctx, tx, listKey, itemKey)
		if err != nil {
			return err
		}
		descendants, err := tx.Descendants(ctx, it.ID)
		if err != nil {
			return err
		}

		ids := []int64{it.ID}
		keys := []string{it.Key}
		for _, d := range descendants {
			ids = append(ids, d.ID)
			keys = append(keys, d.Key)
		}

		released, err := e.survivingDependents(ctx, tx, append([]model.TodoItem{it}, descendants...), ids)
		if err != nil {
			return err
		}
		edges, err := tx.DeleteDependenciesTouching(ctx, ids)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteItems(ctx, ids); err != nil {
			return err
		}

		now := e.now()
		last, err := tx.MaxPosition(ctx, it.ListID, it.ParentID)
		if err != nil {
			return err
		}
		if it.Position < last {
			if err := tx.ShiftPositions(ctx, it.ListID, it.ParentID, it.Position+1, last, -1, now); err != nil {
				return err
			}
		}

		if _, err := e.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     listKey,
			ItemKey:     itemKey,
			Action:      model.ActionItemDeleted,
			OldValue:    string(it.Status),
		}, model.Details{
			"descendants":  keys[1:],
			"dependencies": edges,
		}); err != nil {
			return err
		}

		if it.ParentID != nil {
			if _, err := e.sync.SyncFrom(ctx, tx, *it.ParentID, it.Key); err != nil {
				return err
			}
		}
		if _, err := e.sync.Resync(ctx, tx, released, it.Ref().String()); err != nil {
			return err
		}
		if err := tx.TouchList(ctx, it.ListID, now); err != nil {
			return err
		}
		removed = keys
		return nil
	})
	return removed, err
}

// ReorderItem moves an item to a new 1-based position among its siblings.
// The position is clamped to [1, number of siblings]. Reordering to the
// current position is a no-op that records nothing.
func (e *Engine) ReorderItem(ctx context.Context, listKey, itemKey string, position int) (model.TodoItem, error) {
	var result model.TodoItem
	err := e.run(ctx, "reorder_item", func(ctx context.Context, tx *store.Tx) error {
		it, err := loadItem(ctx, tx, listKey, itemKey)
		if err != nil {
			return err
		}
		last, err := tx.MaxPosition(ctx, it.ListID, it.ParentID)
		if err != nil {
			return err
		}
		target := min(max(position, 1), last)
		if target == it.Position {
			result = it
			return nil
		}

		now := e.now()
		if target < it.Position {
			err = tx.ShiftPositions(ctx, it.ListID, it.ParentID, target, it.Position-1, 1, now)
		} else {
			err = tx.ShiftPositions(ctx, it.ListID, it.ParentID, it.Position+1, target, -1, now)
		}
		if err != nil {
			return err
		}
		updated, err := tx.UpdateItemPlacement(ctx, it, it.ParentID, target, now)
		if err != nil {
			return err
		}
		if _, err := e.recorder.Record(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     listKey,
			ItemKey:     itemKey,
			Action:      model.ActionItemReordered,
			OldValue:    strconv.Itoa(it.Position),
			NewValue:    strconv.Itoa(target),
		}); err != nil {
			return err
		}
		result = updated
		return nil
	})
	return result, err
}

// MoveItem re-parents an item within its list. An empty newParentKey makes
// it a root item. The item is appended after its new siblings.
//
// Fails with INVALID_PARENT if the new parent is the item itself or one of its
// descendants. Both the old and the new parent chains are resynchronized.
// Moving to the current parent is a no-op that records nothing.
func (e *Engine) MoveItem(ctx context.Context, listKey, itemKey, newParentKey string) (model.TodoItem, error) {
	var result model.TodoItem
	err := e.run(ctx, "move_item", func(ctx context.Context, tx *store.Tx) error {
		l, err := tx.GetList(ctx, listKey)
		if err != nil {
			return err
		}
		it, err := tx.GetItem(ctx, l.ID, itemKey)
		if err != nil {
			return err
		}
		parent, err := e.resolveParent(ctx, tx, l, newParentKey)
		if err != nil {
			return err
		}

		var newParentID *int64
		if parent != nil {
			if parent.ID == it.ID {
				return model.Errorf(model.CodeInvalidParent, "item %s cannot be its own parent", it.Ref())
			}
			descendants, err := tx.Descendants(ctx, it.ID)
			if err != nil {
				return err
			}
			for _, d := range descendants {
				if d.ID == parent.ID {
					return model.Errorf(model.CodeInvalidParent,
						"cannot move %s under its descendant %s", it.Ref(), parent.Ref())
				}
			}
			newParentID = &parent.ID
		}
		if sameParent(it.ParentID, newParentID) {
			result = it
			return nil
		}

		now := e.now()
		oldMax, err := tx.MaxPosition(ctx, l.ID, it.ParentID)
		if err != nil {
			return err
		}
		if it.Position < oldMax {
			if err := tx.ShiftPositions(ctx, l.ID, it.ParentID, it.Position+1, oldMax, -1, now); err != nil {
				return err
			}
		}
		newMax, err := tx.MaxPosition(ctx, l.ID, newParentID)
		if err != nil {
			return err
		}
		moved, err := tx.UpdateItemPlacement(ctx, it, newParentID, newMax+1, now)
		if err != nil {
			return err
		}

		if _, err := e.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectItem,
			ListKey:     listKey,
			ItemKey:     itemKey,
			Action:      model.ActionItemMoved,
			OldValue:    it.ParentKey,
			NewValue:    moved.ParentKey,
		}, model.Details{"position": moved.Position}); err != nil {
			return err
		}

		if it.ParentID != nil {
			if _, err := e.sync.SyncFrom(ctx, tx, *it.ParentID, it.Key); err != nil {
				return err
			}
		}
		if _, err := e.sync.OnItemStatusChanged(ctx, tx, moved); err != nil {
			return err
		}
		result = moved
		return nil
	})
	return result, err
}

// survivingDependents returns the IDs of items outside removedIDs that
// depend on one of removed.
func (e *Engine) survivingDependents(ctx context.Context, tx *store.Tx, removed []model.TodoItem, removedIDs []int64) ([]int64, error) {
	gone := make(map[int64]bool, len(removedIDs))
	for _, id := range removedIDs {
		gone[id] = true
	}
	var ids []int64
	seen := make(map[int64]bool)
	for _, it := range removed {
		dependents, err := e.graph.Dependents(ctx, tx, it)
		if err != nil {
			return nil, err
		}
		for _, d := range dependents {
			if gone[d.ID] || seen[d.ID] {
				continue
			}
			seen[d.ID] = true
			ids = append(ids, d.ID)
		}
	}
	return ids, nil
}

// resolveParent looks up a parent reference for an item in l. An empty key
// means no parent.
func (e *Engine) resolveParent(ctx context.Context, tx *store.Tx, l model.TodoList, key string) (*model.TodoItem, error) {
	if key == "" {
		return nil, nil
	}
	if strings.Contains(key, ":") {
		ref, err := model.ParseItemRef(key)
		if err != nil {
			return nil, err
		}
		if ref.ListKey != l.Key {
			return nil, model.Errorf(model.CodeInvalidParent,
				"parent %s belongs to list %q, not %q", ref, ref.ListKey, l.Key)
		}
		key = ref.ItemKey
	}
	p, err := tx.GetItem(ctx, l.ID, key)
	if model.IsCode(err, model.CodeNotFound) {
		return nil, model.Errorf(model.CodeNotFound, "parent item %q not found in list %q", key, l.Key)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func loadItem(ctx context.Context, tx *store.Tx, listKey, itemKey string) (model.TodoItem, error) {
	l, err := tx.GetList(ctx, listKey)
	if err != nil {
		return model.TodoItem{}, err
	}
	it, err := tx.GetItem(ctx, l.ID, itemKey)
	if model.IsCode(err, model.CodeNotFound) {
		return model.TodoItem{}, model.Errorf(model.CodeNotFound, "item %q not found in list %q", itemKey, listKey)
	}
	return it, err
}

// depthFirst orders items parent before children, siblings by position.
// items must be sorted by position within each parent group.
func depthFirst(items []model.TodoItem) []model.TodoItem {
	children := make(map[int64][]model.TodoItem)
	var roots []model.TodoItem
	for _, it := range items {
		if it.ParentID == nil {
			roots = append(roots, it)
			continue
		}
		children[*it.ParentID] = append(children[*it.ParentID], it)
	}

	out := make([]model.TodoItem, 0, len(items))
	var visit func(it model.TodoItem)
	visit = func(it model.TodoItem) {
		out = append(out, it)
		for _, c := range children[it.ID] {
			visit(c)
		}
	}
	for _, r := range roots {
		visit(r)
	}
	return out
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func refList(items []model.TodoItem) string {
	refs := make([]string, len(items))
	for i, it := range items {
		refs[i] = it.Ref().String()
	}
	return strings.Join(refs, ", ")
}
