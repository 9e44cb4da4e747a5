// Package fact defines the data model shared by the fact store, the change
// history log and every persistence adapter.
//
// # Records
//
//   - Attribute: a schema entry, a unique name plus a Cardinality
//   - Fact: one row of the append-only log, an (entity, attribute, value)
//     triple tagged live or tombstoned and stamped with a logical Seq
//   - Triple: the equality key used by tombstones and the element type of
//     the current-facts projection
//
// A tombstone never references a prior row by identity. It retracts every
// earlier assertion whose triple is equal to its own.
//
// # Errors
//
// Operations report failures as *Error values carrying an ErrorCode so that
// callers can branch on the kind (IsNotFound, IsAlreadyExists, ...) without
// string matching.
package fact
