package model

import (
	"fmt"
	"strings"
	"time"
)

// ListType tags how a list is meant to be worked.
// Well-known values are provided, but any non-empty tag up to 50 characters is accepted.
type ListType string

const (
	ListTypeSequential   ListType = "sequential"
	ListTypeParallel     ListType = "parallel"
	ListTypeHierarchical ListType = "hierarchical"
)

// Valid reports whether the list type is a non-empty string of at most 50 characters.
func (t ListType) Valid() bool {
	return len(t) > 0 && len(t) <= 50
}

// RelationKind names a directed relation between two lists.
type RelationKind string

// RelationProject links a parent project list to one of its sub-project lists.
const RelationProject RelationKind = "project"

// Valid reports whether the relation kind is usable.
func (k RelationKind) Valid() bool {
	return len(k) > 0 && len(k) <= 50
}

// TodoList is an ordered collection of items.
type TodoList struct {
	ID        int64     `json:"-"`
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	Type      ListType  `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRelation is a directed, typed edge between two lists.
// It is independent of item parent/child edges.
type ListRelation struct {
	FromKey   string       `json:"from"`
	ToKey     string       `json:"to"`
	Kind      RelationKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// TodoItem is a single entry in a list.
type TodoItem struct {
	ID          int64      `json:"-"`
	ListID      int64      `json:"-"`
	ListKey     string     `json:"list"`
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	Status      Status     `json:"status"`
	Position    int        `json:"position"`
	ParentID    *int64     `json:"-"`
	ParentKey   string     `json:"parent,omitempty"`
	Version     int64      `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Ref returns the textual address of the item.
func (i TodoItem) Ref() ItemRef {
	return ItemRef{ListKey: i.ListKey, ItemKey: i.Key}
}

// IsRoot reports whether the item has no parent.
func (i TodoItem) IsRoot() bool {
	return i.ParentID == nil
}

// ItemRef addresses an item in any list.
type ItemRef struct {
	ListKey string `json:"list"`
	ItemKey string `json:"item"`
}

// String renders the ref as "list:item".
func (r ItemRef) String() string {
	return r.ListKey + ":" + r.ItemKey
}

// ParseItemRef parses the "list:item" form.
func ParseItemRef(s string) (ItemRef, error) {
	list, item, ok := strings.Cut(s, ":")
	if !ok || list == "" || item == "" {
		return ItemRef{}, NewError(CodeInvalidArgument, fmt.Sprintf("invalid item reference %q: want list:item", s))
	}
	return ItemRef{ListKey: list, ItemKey: item}, nil
}

// Dependency is a directed "blocks" edge: Dependent cannot start or finish
// until Target is completed. Edges may cross lists.
type Dependency struct {
	Dependent ItemRef   `json:"dependent"`
	Target    ItemRef   `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}

// Progress summarizes the statuses of a list's items.
type Progress struct {
	ListKey  string         `json:"list"`
	Total    int            `json:"total"`
	ByStatus map[Status]int `json:"by_status"`
	Percent  int            `json:"percent_complete"`
}

// maxKeyLen bounds list and item keys.
const maxKeyLen = 200

// ValidateKey checks that a list or item key is usable.
// Keys are non-empty, bounded, and may not contain ':' (reserved for ItemRef)
// or whitespace.
func ValidateKey(kind, key string) error {
	if key == "" {
		return NewError(CodeInvalidArgument, kind+" key must not be empty")
	}
	if len(key) > maxKeyLen {
		return NewError(CodeInvalidArgument, fmt.Sprintf("%s key exceeds %d characters", kind, maxKeyLen))
	}
	if strings.ContainsAny(key, ": \t\r\n") {
		return NewError(CodeInvalidArgument, fmt.Sprintf("%s key %q must not contain ':' or whitespace", kind, key))
	}
	return nil
}
