package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/roach88/tasktree/internal/model"
)

func printList(w io.Writer, l model.TodoList) {
	fmt.Fprintf(w, "%s  %s (%s)\n", l.Key, l.Title, l.Type)
}

func printItem(w io.Writer, it model.TodoItem) {
	fmt.Fprintf(w, "%s [%s] #%d %s", it.Ref(), it.Status, it.Position, it.Title)
	if it.ParentKey != "" {
		fmt.Fprintf(w, " (parent %s)", it.ParentKey)
	}
	fmt.Fprintln(w)
}

// printTree prints items in depth-first order, indented by depth.
func printTree(w io.Writer, items []model.TodoItem) {
	if len(items) == 0 {
		fmt.Fprintln(w, "(no items)")
		return
	}
	depth := make(map[string]int, len(items))
	for _, it := range items {
		d := 0
		if it.ParentKey != "" {
			d = depth[it.ParentKey] + 1
		}
		depth[it.Key] = d
		fmt.Fprintf(w, "%s%d. [%s] %s  %s\n", strings.Repeat("  ", d), it.Position, it.Status, it.Key, it.Title)
	}
}

func printRelation(w io.Writer, r model.ListRelation) {
	fmt.Fprintf(w, "%s -> %s (%s)\n", r.FromKey, r.ToKey, r.Kind)
}

func printProgress(w io.Writer, p model.Progress) {
	fmt.Fprintf(w, "%s: %d%% complete (%d items)\n", p.ListKey, p.Percent, p.Total)
	for _, s := range model.AllStatuses {
		fmt.Fprintf(w, "  %-12s %d\n", s, p.ByStatus[s])
	}
}

func printRefs(w io.Writer, label string, items []model.TodoItem) {
	if len(items) == 0 {
		fmt.Fprintf(w, "%s: none\n", label)
		return
	}
	fmt.Fprintf(w, "%s:\n", label)
	for _, it := range items {
		fmt.Fprintf(w, "  %s [%s]\n", it.Ref(), it.Status)
	}
}

func printHistory(w io.Writer, page model.HistoryPage) {
	for _, e := range page.Entries {
		subject := e.ListKey
		if e.SubjectKind == model.SubjectItem {
			subject += ":" + e.ItemKey
		}
		fmt.Fprintf(w, "%s  %-18s %s  by %s", e.Timestamp.Format(time.RFC3339), e.Action, subject, e.Actor)
		if e.OldValue != "" || e.NewValue != "" {
			fmt.Fprintf(w, "  %q -> %q", e.OldValue, e.NewValue)
		}
		if e.Details != "" {
			fmt.Fprintf(w, "  %s", e.Details)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "(%d of %d entries, offset %d)\n", len(page.Entries), page.Total, page.Offset)
}
