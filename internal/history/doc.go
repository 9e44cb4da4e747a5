// Package history records an audit trail of fact insertions and deletions.
//
// The change log is independent of the fact store: records are appended after
// a successful mutation and are never validated against, or consulted by, the
// store. Attribute operations are not recorded.
//
// A ChangeRecord carries the action, the fact triple and a wall-clock
// timestamp with second precision. The textual timestamp form is
// "YY/MM/DD HH:MM:SS" (see FormatTimestamp).
//
// Backends implement Log. MemoryLog is provided for tests and the
// conformance harness; durable implementations live in xmlstore,
// sqlitestore and pgstore.
package history
