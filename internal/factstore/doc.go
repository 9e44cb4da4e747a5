// Package factstore implements the in-memory fact store: the attribute
// schema, the append-only fact log, and the current-facts projection.
//
// # Write model
//
// Every fact write is an append. InsertFact appends a live row, DeleteFact
// appends a tombstone for the same triple. Rows are never removed. The only
// in-place rewrite is the retraction cascade of DeleteAttribute, which flips
// the live flag of that attribute's existing rows.
//
// # Ordering
//
// Each appended row is stamped with a Seq from the store's monotonic Clock.
// "Last write wins" for cardinality-one attributes means highest Seq wins,
// never wall time.
//
// # Concurrency
//
// All mutations run under a single write lock, so concurrent callers are
// serialized and Seq order equals lock acquisition order. Reads take the read
// lock and return copies; callers may keep and modify returned slices.
//
// # Current facts
//
// CurrentFacts rebuilds the projection from scratch on every call by scanning
// the whole log. No incremental index is maintained.
package factstore
