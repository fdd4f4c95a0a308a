// Package store is the persistence gateway for tasktree.
//
// All access to the SQLite database goes through a unit of work:
//
//	err := st.WithUnitOfWork(ctx, func(ctx context.Context, tx *store.Tx) error {
//		list, err := tx.GetList(ctx, "proj")
//		...
//	})
//
// The unit of work commits when fn returns nil and rolls back on an error or
// panic. Every Tx method returns plain values copied out of the result set, so
// nothing handed to the caller is tied to the transaction. A Tx used after its
// unit of work has ended fails with INVARIANT_VIOLATION.
//
// # Database Configuration
//
//   - WAL mode: readers do not block the writer
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout: wait for locks before failing (default 5000ms)
//   - foreign_keys=ON: enforce referential integrity
//   - _txlock=immediate: every unit of work takes the write lock at BEGIN, so
//     concurrent writers serialize or fail with CONCURRENT_MODIFICATION
//
// The history table is append-only; triggers reject UPDATE and DELETE.
package store
