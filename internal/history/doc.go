// Package history appends audit entries inside a caller's unit of work.
//
// The Recorder never opens, commits, or rolls back a transaction. It is handed
// the live *store.Tx of the operation that triggered the entry, so the entry
// and the mutation it describes commit or vanish together.
package history
