// Package engine is the public API of tasktree.
//
// Every exported operation runs in exactly one unit of work:
//
//  1. open the unit of work on the store
//  2. validate by reading through the live transaction
//  3. mutate rows
//  4. run dependency checks and status synchronization on the same transaction
//  5. append history entries
//  6. commit, or roll everything back on the first error
//
// Only detached values leave an operation. The engine keeps no entity state
// between calls; each call re-reads what it needs, so separate processes can
// share one database file.
package engine
