// Package sqlitestore persists the fact store, change log and user list in a
// single SQLite database.
//
// The database runs in WAL mode with one connection. Schema changes are
// tracked with PRAGMA user_version and applied by Open.
//
// Tables:
//   - attributes: schema, ordered by position
//   - facts: the fact log, ordered by seq
//   - changes: the change history, ordered by seq
//   - users: credentials and roles
//
// Reads return empty slices rather than nil.
package sqlitestore
