package model

import "time"

// SubjectKind identifies what a history entry describes.
type SubjectKind string

const (
	SubjectList SubjectKind = "list"
	SubjectItem SubjectKind = "item"
)

// Valid reports whether k is a known subject kind.
func (k SubjectKind) Valid() bool {
	return k == SubjectList || k == SubjectItem
}

// Action names the mutation a history entry records.
type Action string

const (
	ActionListCreated       Action = "list_created"
	ActionListDeleted       Action = "list_deleted"
	ActionListRelated       Action = "list_related"
	ActionListUnrelated     Action = "list_unrelated"
	ActionItemAdded         Action = "item_added"
	ActionItemDeleted       Action = "item_deleted"
	ActionStatusChanged     Action = "status_changed"
	ActionStatusSynced      Action = "status_synced"
	ActionItemReordered     Action = "item_reordered"
	ActionItemMoved         Action = "item_moved"
	ActionDependencyAdded   Action = "dependency_added"
	ActionDependencyRemoved Action = "dependency_removed"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionListCreated, ActionListDeleted, ActionListRelated, ActionListUnrelated,
		ActionItemAdded, ActionItemDeleted, ActionStatusChanged, ActionStatusSynced,
		ActionItemReordered, ActionItemMoved, ActionDependencyAdded, ActionDependencyRemoved:
		return true
	}
	return false
}

// HistoryEntry is an immutable audit record.
//
// Entries are keyed by list and item key text rather than store identity,
// so they outlive the lists and items they describe.
type HistoryEntry struct {
	ID          string      `json:"id"`
	Seq         int64       `json:"seq"`
	SubjectKind SubjectKind `json:"subject_kind"`
	ListKey     string      `json:"list"`
	ItemKey     string      `json:"item,omitempty"`
	Action      Action      `json:"action"`
	OldValue    string      `json:"old_value,omitempty"`
	NewValue    string      `json:"new_value,omitempty"`
	Details     string      `json:"details,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	Actor       string      `json:"actor"`
}

// Default and maximum page sizes for history queries.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 1000
)

// HistoryQuery filters history entries.
//
// ListKey alone selects the list and all of its items. ListKey plus ItemKey
// selects a single item. An empty ListKey selects everything. Subject narrows
// the result to list-level or item-level entries, so ListKey with
// Subject=SubjectList returns only the list's own entries.
type HistoryQuery struct {
	ListKey string
	ItemKey string
	Subject SubjectKind
	Action  Action
	Limit   int
	Offset  int
}

// Normalize applies paging defaults and validates the query.
func (q HistoryQuery) Normalize() (HistoryQuery, error) {
	if q.ItemKey != "" && q.ListKey == "" {
		return q, NewError(CodeInvalidArgument, "history item filter requires a list")
	}
	if q.Subject != "" && !q.Subject.Valid() {
		return q, Errorf(CodeInvalidArgument, "unknown history subject %q", q.Subject)
	}
	if q.Subject == SubjectList && q.ItemKey != "" {
		return q, NewError(CodeInvalidArgument, "history item filter cannot select list entries")
	}
	if q.Action != "" && !q.Action.Valid() {
		return q, Errorf(CodeInvalidArgument, "unknown history action %q", q.Action)
	}
	if q.Offset < 0 {
		return q, NewError(CodeInvalidArgument, "history offset must not be negative")
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultHistoryLimit
	case q.Limit > MaxHistoryLimit:
		q.Limit = MaxHistoryLimit
	}
	return q, nil
}

// HistoryPage is one page of history results.
type HistoryPage struct {
	Entries []HistoryEntry `json:"entries"`
	Total   int            `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}
