// Package model defines the tasktree data model shared by every layer.
//
// The types here are plain values. Nothing in this package holds a database
// connection or a transaction, so any value returned by the store or the
// engine is a detached snapshot that stays valid after its unit of work ends.
//
// # Identity
//
//   - TodoList is identified by its Key (unique across the store).
//   - TodoItem is identified by (ListKey, Key); Key is unique within a list.
//   - ItemRef is the textual address of an item in any list ("list:item").
//
// The integer ID fields are store identities. They are stable for the life
// of a row but are never part of the public addressing scheme.
//
// # Errors
//
// Every failure the engine reports carries an ErrorCode (see errors.go).
// Callers branch on codes with IsCode or errors.Is against the Err* sentinels.
package model
