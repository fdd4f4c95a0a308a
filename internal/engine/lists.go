package engine

import (
	"context"
	"strings"

	"github.com/roach88/tasktree/internal/model"
	"github.com/roach88/tasktree/internal/store"
)

// CreateList creates a list. An empty listType defaults to sequential.
// Fails with DUPLICATE_KEY if the key exists.
func (e *Engine) CreateList(ctx context.Context, key, title string, listType model.ListType) (model.TodoList, error) {
	if err := model.ValidateKey("list", key); err != nil {
		return model.TodoList{}, err
	}
	if listType == "" {
		listType = model.ListTypeSequential
	}
	if !listType.Valid() {
		return model.TodoList{}, model.Errorf(model.CodeInvalidArgument, "invalid list type %q", listType)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = key
	}

	var created model.TodoList
	err := e.run(ctx, "create_list", func(ctx context.Context, tx *store.Tx) error {
		now := e.now()
		l, err := tx.InsertList(ctx, model.TodoList{
			Key:       key,
			Title:     title,
			Type:      listType,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if model.IsCode(err, model.CodeDuplicateKey) {
			return model.Errorf(model.CodeDuplicateKey, "list %q already exists", key)
		}
		if err != nil {
			return err
		}
		if _, err := e.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectList,
			ListKey:     key,
			Action:      model.ActionListCreated,
			NewValue:    title,
		}, model.Details{"type": string(listType)}); err != nil {
			return err
		}
		created = l
		return nil
	})
	return created, err
}

// GetList returns a list by key.
func (e *Engine) GetList(ctx context.Context, key string) (model.TodoList, error) {
	var l model.TodoList
	err := e.view(ctx, "get_list", func(ctx context.Context, tx *store.Tx) error {
		var err error
		l, err = tx.GetList(ctx, key)
		return err
	})
	return l, err
}

// ListLists returns every list ordered by key.
func (e *Engine) ListLists(ctx context.Context) ([]model.TodoList, error) {
	var lists []model.TodoList
	err := e.view(ctx, "list_lists", func(ctx context.Context, tx *store.Tx) error {
		var err error
		lists, err = tx.ListLists(ctx)
		return err
	})
	return lists, err
}

// DeleteList removes a list with its items, their dependency edges, and the
// list's relations. History is kept.
//
// Fails with EXTERNAL_REFERENCE, deleting nothing, if an item in another list
// depends on one of this list's items.
func (e *Engine) DeleteList(ctx context.Context, key string) error {
	return e.run(ctx, "delete_list", func(ctx context.Context, tx *store.Tx) error {
		l, err := tx.GetList(ctx, key)
		if err != nil {
			return err
		}

		external, err := tx.ExternalDependencies(ctx, l.ID)
		if err != nil {
			return err
		}
		if len(external) > 0 {
			refs := make([]string, len(external))
			for i, d := range external {
				refs[i] = d.Dependent.String() + " -> " + d.Target.String()
			}
			return model.Errorf(model.CodeExternalReference,
				"list %q is still referenced by other lists: %s", key, strings.Join(refs, ", "))
		}

		items, err := tx.ListItems(ctx, l.ID)
		if err != nil {
			return err
		}
		ids := make([]int64, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}

		edges, err := tx.DeleteDependenciesTouching(ctx, ids)
		if err != nil {
			return err
		}
		relations, err := tx.DeleteRelationsForList(ctx, l.ID)
		if err != nil {
			return err
		}
		if _, err := tx.DeleteItemsForList(ctx, l.ID); err != nil {
			return err
		}
		if err := tx.DeleteList(ctx, l.ID); err != nil {
			return err
		}

		_, err = e.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectList,
			ListKey:     key,
			Action:      model.ActionListDeleted,
			OldValue:    l.Title,
		}, model.Details{
			"items":        len(items),
			"dependencies": edges,
			"relations":    relations,
		})
		return err
	})
}

// RelateLists records a directed relation from one list to another.
// An empty kind defaults to "project".
func (e *Engine) RelateLists(ctx context.Context, fromKey, toKey string, kind model.RelationKind) (model.ListRelation, error) {
	kind, err := relationKind(fromKey, toKey, kind)
	if err != nil {
		return model.ListRelation{}, err
	}

	var rel model.ListRelation
	err = e.run(ctx, "relate_lists", func(ctx context.Context, tx *store.Tx) error {
		from, err := tx.GetList(ctx, fromKey)
		if err != nil {
			return err
		}
		to, err := tx.GetList(ctx, toKey)
		if err != nil {
			return err
		}

		now := e.now()
		err = tx.InsertRelation(ctx, from.ID, to.ID, kind, now)
		if model.IsCode(err, model.CodeDuplicateKey) {
			return model.Errorf(model.CodeDuplicateKey, "relation %s -[%s]-> %s already exists", fromKey, kind, toKey)
		}
		if err != nil {
			return err
		}
		if _, err := e.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectList,
			ListKey:     fromKey,
			Action:      model.ActionListRelated,
			NewValue:    toKey,
		}, model.Details{"kind": string(kind)}); err != nil {
			return err
		}
		rel = model.ListRelation{FromKey: fromKey, ToKey: toKey, Kind: kind, CreatedAt: now}
		return nil
	})
	return rel, err
}

// UnrelateLists removes a relation. Removing an absent relation is a no-op
// and records nothing; removed reports whether a relation was deleted.
func (e *Engine) UnrelateLists(ctx context.Context, fromKey, toKey string, kind model.RelationKind) (bool, error) {
	kind, err := relationKind(fromKey, toKey, kind)
	if err != nil {
		return false, err
	}

	var removed bool
	err = e.run(ctx, "unrelate_lists", func(ctx context.Context, tx *store.Tx) error {
		from, err := tx.GetList(ctx, fromKey)
		if err != nil {
			return err
		}
		to, err := tx.GetList(ctx, toKey)
		if err != nil {
			return err
		}
		removed, err = tx.DeleteRelation(ctx, from.ID, to.ID, kind)
		if err != nil || !removed {
			return err
		}
		_, err = e.recorder.RecordDetails(ctx, tx, model.HistoryEntry{
			SubjectKind: model.SubjectList,
			ListKey:     fromKey,
			Action:      model.ActionListUnrelated,
			OldValue:    toKey,
		}, model.Details{"kind": string(kind)})
		return err
	})
	return removed, err
}

// ListRelations returns every relation in which the list takes part.
func (e *Engine) ListRelations(ctx context.Context, key string) ([]model.ListRelation, error) {
	var rels []model.ListRelation
	err := e.view(ctx, "list_relations", func(ctx context.Context, tx *store.Tx) error {
		l, err := tx.GetList(ctx, key)
		if err != nil {
			return err
		}
		rels, err = tx.ListRelations(ctx, l.ID)
		return err
	})
	return rels, err
}

func relationKind(fromKey, toKey string, kind model.RelationKind) (model.RelationKind, error) {
	if kind == "" {
		kind = model.RelationProject
	}
	if !kind.Valid() {
		return "", model.Errorf(model.CodeInvalidArgument, "invalid relation kind %q", kind)
	}
	if fromKey == toKey {
		return "", model.Errorf(model.CodeInvalidArgument, "list %q cannot be related to itself", fromKey)
	}
	return kind, nil
}
