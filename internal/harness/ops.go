package harness

import (
	"context"
	"fmt"
	"sort"

	"github.com/roach88/tasktree/internal/engine"
	"github.com/roach88/tasktree/internal/model"
)

// opFunc runs one engine operation. A returned *argError aborts the run;
// any other error is the step's outcome.
type opFunc func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error)

// operations maps scenario op names to engine calls.
var operations = map[string]opFunc{
	"create_list": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		return eng.CreateList(ctx, a.str("key"), a.str("title"), model.ListType(a.str("type")))
	},
	"delete_list": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		return nil, eng.DeleteList(ctx, a.str("key"))
	},
	"relate_lists": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		return eng.RelateLists(ctx, a.str("from"), a.str("to"), model.RelationKind(a.str("kind")))
	},
	"unrelate_lists": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		removed, err := eng.UnrelateLists(ctx, a.str("from"), a.str("to"), model.RelationKind(a.str("kind")))
		return map[string]any{"removed": removed}, err
	},
	"add_item": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		pos, err := a.optInt("position")
		if err != nil {
			return nil, err
		}
		return eng.AddItem(ctx, a.str("list"), engine.NewItem{
			Key:       a.str("key"),
			Title:     a.str("title"),
			ParentKey: a.str("parent"),
			Position:  pos,
		})
	},
	"get_item": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		return eng.GetItem(ctx, a.str("list"), a.str("key"))
	},
	"update_status": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		status, err := model.ParseStatus(a.str("status"))
		if err != nil {
			return nil, err
		}
		return eng.UpdateItemStatus(ctx, a.str("list"), a.str("key"), status)
	},
	"delete_item": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		keys, err := eng.DeleteItem(ctx, a.str("list"), a.str("key"))
		return map[string]any{"deleted": keys}, err
	},
	"reorder_item": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		pos, err := a.integer("position")
		if err != nil {
			return nil, err
		}
		return eng.ReorderItem(ctx, a.str("list"), a.str("key"), pos)
	},
	"move_item": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		return eng.MoveItem(ctx, a.str("list"), a.str("key"), a.str("parent"))
	},
	"add_dependency": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		dependent, target, err := a.refs()
		if err != nil {
			return nil, err
		}
		return eng.AddItemDependency(ctx, dependent, target)
	},
	"remove_dependency": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		dependent, target, err := a.refs()
		if err != nil {
			return nil, err
		}
		removed, err := eng.RemoveItemDependency(ctx, dependent, target)
		return map[string]any{"removed": removed}, err
	},
	"is_blocked": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		ref, err := model.ParseItemRef(a.str("ref"))
		if err != nil {
			return nil, err
		}
		blocked, err := eng.IsBlocked(ctx, ref)
		return map[string]any{"blocked": blocked}, err
	},
	"list_blocking": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		ref, err := model.ParseItemRef(a.str("ref"))
		if err != nil {
			return nil, err
		}
		items, err := eng.ListBlocking(ctx, ref)
		refs := make([]string, len(items))
		for i, it := range items {
			refs[i] = it.Ref().String()
		}
		return map[string]any{"blocking": refs}, err
	},
	"progress": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		return eng.Progress(ctx, a.str("list"))
	},
	"next_pending": func(ctx context.Context, eng *engine.Engine, a stepArgs) (any, error) {
		return eng.NextPending(ctx, a.str("list"))
	},
}

// Operations returns the supported op names, sorted.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// argError reports malformed step arguments. It fails the run rather than
// becoming a step outcome.
type argError struct {
	msg string
}

func (e *argError) Error() string { return e.msg }

// stepArgs reads typed values from YAML-decoded step arguments.
type stepArgs map[string]any

// str returns a string argument, or "" when absent. Non-string scalars are
// formatted so keys like 1 or true still work.
func (a stepArgs) str(name string) string {
	v, ok := a[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (a stepArgs) integer(name string) (int, error) {
	v, ok := a[name]
	if !ok {
		return 0, &argError{msg: fmt.Sprintf("argument %q is required", name)}
	}
	n, ok := v.(int)
	if !ok {
		return 0, &argError{msg: fmt.Sprintf("argument %q must be an integer, got %T", name, v)}
	}
	return n, nil
}

func (a stepArgs) optInt(name string) (*int, error) {
	if _, ok := a[name]; !ok {
		return nil, nil
	}
	n, err := a.integer(name)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (a stepArgs) refs() (model.ItemRef, model.ItemRef, error) {
	dependent, err := model.ParseItemRef(a.str("dependent"))
	if err != nil {
		return model.ItemRef{}, model.ItemRef{}, err
	}
	target, err := model.ParseItemRef(a.str("target"))
	if err != nil {
		return model.ItemRef{}, model.ItemRef{}, err
	}
	return dependent, target, nil
}
