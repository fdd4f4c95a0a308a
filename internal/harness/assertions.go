package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/roach88/tasktree/internal/engine"
	"github.com/roach88/tasktree/internal/model"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion failed: %s: expected %s, actual %s", e.Type, e.Expected, e.Actual)
}

// EvaluateAssertions evaluates all assertions against the result and returns
// one message per failure.
func EvaluateAssertions(ctx context.Context, eng *engine.Engine, result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, a)
		case AssertHistoryContains:
			err = assertHistoryContains(result.History, a)
		case AssertHistoryCount:
			err = assertHistoryCount(result.History, a)
		case AssertHistoryOrder:
			err = assertHistoryOrder(result.History, a)
		case AssertItemState:
			err = assertItemState(result.Lists, a)
		case AssertListProgress:
			err = assertListProgress(ctx, eng, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertTraceContains checks that op ran with args matching a.Args (subset).
func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Op != a.Op {
			continue
		}
		if len(a.Args) == 0 || subsetDiff(a.Args, mustGeneric(ev.Args)) == "" {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("op %s with args %v", a.Op, a.Args),
		Actual:   "not found in trace",
	}
}

func historyMatches(e model.HistoryEntry, a Assertion) bool {
	if a.Action != "" && string(e.Action) != a.Action {
		return false
	}
	if a.List != "" && e.ListKey != a.List {
		return false
	}
	if a.Item != "" && e.ItemKey != a.Item {
		return false
	}
	return true
}

func describeFilter(a Assertion) string {
	parts := []string{}
	if a.Action != "" {
		parts = append(parts, "action="+a.Action)
	}
	if a.List != "" {
		parts = append(parts, "list="+a.List)
	}
	if a.Item != "" {
		parts = append(parts, "item="+a.Item)
	}
	if len(parts) == 0 {
		return "(any)"
	}
	return strings.Join(parts, " ")
}

func assertHistoryContains(entries []model.HistoryEntry, a Assertion) error {
	for _, e := range entries {
		if historyMatches(e, a) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertHistoryContains,
		Expected: "history entry " + describeFilter(a),
		Actual:   "not found",
	}
}

func assertHistoryCount(entries []model.HistoryEntry, a Assertion) error {
	count := 0
	for _, e := range entries {
		if historyMatches(e, a) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertHistoryCount,
			Expected: fmt.Sprintf("%d entries %s", a.Count, describeFilter(a)),
			Actual:   fmt.Sprintf("%d entries", count),
		}
	}
	return nil
}

// assertHistoryOrder checks that the first occurrence of each action comes
// after the first occurrence of the previous one. Other entries may appear
// in between.
func assertHistoryOrder(entries []model.HistoryEntry, a Assertion) error {
	positions := make(map[string]int)
	for i, e := range entries {
		act := string(e.Action)
		if _, seen := positions[act]; !seen {
			positions[act] = i + 1
		}
	}

	for _, act := range a.Actions {
		if positions[act] == 0 {
			return &AssertionError{
				Type:     AssertHistoryOrder,
				Expected: fmt.Sprintf("all actions present: %v", a.Actions),
				Actual:   "missing action: " + act,
			}
		}
	}
	for i := 1; i < len(a.Actions); i++ {
		prev, curr := a.Actions[i-1], a.Actions[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertHistoryOrder,
				Expected: fmt.Sprintf("actions in order: %v", a.Actions),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
			}
		}
	}
	return nil
}

func assertItemState(lists []ListState, a Assertion) error {
	for _, ls := range lists {
		if ls.List.Key != a.List {
			continue
		}
		for _, it := range ls.Items {
			if it.Key != a.Item {
				continue
			}
			if diff := subsetDiff(a.Expect, mustGeneric(it)); diff != "" {
				return &AssertionError{Type: AssertItemState, Expected: "item " + a.List + ":" + a.Item, Actual: diff}
			}
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertItemState,
		Expected: "item " + a.List + ":" + a.Item,
		Actual:   "item not found",
	}
}

func assertListProgress(ctx context.Context, eng *engine.Engine, a Assertion) error {
	p, err := eng.Progress(ctx, a.List)
	if err != nil {
		return &AssertionError{Type: AssertListProgress, Expected: "progress of " + a.List, Actual: err.Error()}
	}
	if diff := subsetDiff(a.Expect, mustGeneric(p)); diff != "" {
		return &AssertionError{Type: AssertListProgress, Expected: "progress of " + a.List, Actual: diff}
	}
	return nil
}

// toGeneric converts v into the shape encoding/json produces for it, with
// numbers kept as json.Number so YAML integers compare exactly.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return out, nil
}

func mustGeneric(v any) any {
	g, err := toGeneric(v)
	if err != nil {
		return nil
	}
	return g
}

// subsetDiff reports the first field of expected that actual lacks or
// disagrees with, or "" when every expected field matches.
func subsetDiff(expected map[string]any, actual any) string {
	exp, err := toGeneric(expected)
	if err != nil {
		return err.Error()
	}
	return diffValue("", exp, actual)
}

func diffValue(path string, expected, actual any) string {
	expMap, ok := expected.(map[string]any)
	if !ok {
		if !reflect.DeepEqual(expected, actual) {
			return fmt.Sprintf("%s: expected %v, got %v", pathOrRoot(path), expected, actual)
		}
		return ""
	}

	actMap, ok := actual.(map[string]any)
	if !ok {
		return fmt.Sprintf("%s: expected an object, got %v", pathOrRoot(path), actual)
	}
	keys := make([]string, 0, len(expMap))
	for k := range expMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sub := k
		if path != "" {
			sub = path + "." + k
		}
		act, exists := actMap[k]
		if !exists {
			return fmt.Sprintf("%s: missing", sub)
		}
		if d := diffValue(sub, expMap[k], act); d != "" {
			return d
		}
	}
	return ""
}

func pathOrRoot(path string) string {
	if path == "" {
		return "result"
	}
	return path
}
