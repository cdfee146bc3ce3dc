// Package store keeps a SQLite ledger of every scored result.
//
// The ledger sits next to the results tables in the dataset directory. Each
// live run or batch ingestion is one row in runs; each emitted result row
// is one row in results, keyed by (run_id, seq) so recording the same run
// twice is a no-op.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Runs are ordered by their seq column, never by wall-clock time.
package store
