package factstore

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/factlog/internal/fact"
)

// Store owns the attribute schema and the fact log.
//
// Thread-safety model:
//   - mutations (Insert*, Update*, Delete*) hold the write lock
//   - reads hold the read lock and return copies
//
// INVARIANTS:
//   - attribute names in schema are unique
//   - fact Seq values are strictly increasing in log order
//   - rows are never removed from facts
type Store struct {
	mu     sync.RWMutex
	schema []fact.Attribute
	facts  []fact.Fact
	clock  *Clock
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for mutation diagnostics.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Store over already-parsed schema and facts, typically
// produced by a persistence adapter's Restore.
//
// The slices are copied. Duplicate attribute names are rejected with
// ALREADY_EXISTS and invalid cardinalities with INVALID_CARDINALITY. If the
// facts do not carry strictly increasing positive Seq values (for example
// when restored from a format without sequence numbers), they are renumbered
// 1..n by log position. The clock resumes after the highest Seq.
func New(schema []fact.Attribute, facts []fact.Fact, opts ...Option) (*Store, error) {
	s := &Store{
		schema: make([]fact.Attribute, 0, len(schema)),
		facts:  make([]fact.Fact, len(facts)),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	seen := make(map[string]bool, len(schema))
	for _, attr := range schema {
		if !attr.Cardinality.Valid() {
			return nil, fmt.Errorf("new fact store: attribute %q: %w", attr.Name, fact.NewInvalidCardinalityError(attr.Cardinality.String()))
		}
		if seen[attr.Name] {
			return nil, fmt.Errorf("new fact store: %w", fact.NewAlreadyExistsError(attr.Name))
		}
		seen[attr.Name] = true
		s.schema = append(s.schema, attr)
	}

	copy(s.facts, facts)
	if !seqOrdered(s.facts) {
		for i := range s.facts {
			s.facts[i].Seq = int64(i + 1)
		}
	}

	var last int64
	if n := len(s.facts); n > 0 {
		last = s.facts[n-1].Seq
	}
	s.clock = NewClockAt(last)

	return s, nil
}

// seqOrdered reports whether every fact has a positive Seq greater than its
// predecessor's.
func seqOrdered(facts []fact.Fact) bool {
	var prev int64
	for _, f := range facts {
		if f.Seq <= prev {
			return false
		}
		prev = f.Seq
	}
	return true
}

// Schema returns the attributes in schema order.
func (s *Store) Schema() []fact.Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fact.Attribute, len(s.schema))
	copy(out, s.schema)
	return out
}

// AllFacts returns the full log, live rows and tombstones, in append order.
func (s *Store) AllFacts() []fact.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]fact.Fact, len(s.facts))
	copy(out, s.facts)
	return out
}

// EntityFacts returns every log row for entity in append order.
func (s *Store) EntityFacts(entity string) []fact.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []fact.Fact{}
	for _, f := range s.facts {
		if f.Entity == entity {
			out = append(out, f)
		}
	}
	return out
}

// Seq returns the Seq of the most recently appended fact (0 for an empty log).
func (s *Store) Seq() int64 {
	return s.clock.Current()
}

// Attribute returns the schema entry named name.
// Returns a NOT_FOUND error if absent.
func (s *Store) Attribute(name string) (fact.Attribute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexOfLocked(name)
	if i < 0 {
		return fact.Attribute{}, fact.NewNotFoundError(name)
	}
	return s.schema[i], nil
}

// InsertAttribute appends a new attribute to the schema.
// Returns ALREADY_EXISTS if name is taken, INVALID_ARGUMENT for a blank name
// and INVALID_CARDINALITY for an unknown cardinality.
func (s *Store) InsertAttribute(name string, cardinality fact.Cardinality) error {
	if strings.TrimSpace(name) == "" {
		return fact.NewInvalidArgumentError("attribute name must not be empty")
	}
	if !cardinality.Valid() {
		return fact.NewInvalidCardinalityError(cardinality.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfLocked(name) >= 0 {
		return fact.NewAlreadyExistsError(name)
	}
	s.schema = append(s.schema, fact.Attribute{Name: name, Cardinality: cardinality})
	s.logger.Debug("attribute inserted", "attribute", name, "cardinality", cardinality.String())
	return nil
}

// UpdateAttribute replaces the cardinality of an existing attribute in place,
// preserving its schema position. Returns NOT_FOUND if absent.
func (s *Store) UpdateAttribute(name string, cardinality fact.Cardinality) error {
	if !cardinality.Valid() {
		return fact.NewInvalidCardinalityError(cardinality.String())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(name)
	if i < 0 {
		return fact.NewNotFoundError(name)
	}
	s.schema[i].Cardinality = cardinality
	s.logger.Debug("attribute updated", "attribute", name, "cardinality", cardinality.String())
	return nil
}

// DeleteAttribute removes an attribute from the schema and retracts every
// existing log row for it by clearing its live flag in place. No rows are
// appended. Returns NOT_FOUND if absent.
func (s *Store) DeleteAttribute(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOfLocked(name)
	if i < 0 {
		return fact.NewNotFoundError(name)
	}
	s.schema = append(s.schema[:i], s.schema[i+1:]...)

	retracted := 0
	for j := range s.facts {
		if s.facts[j].Attribute == name && s.facts[j].Live {
			s.facts[j].Live = false
			retracted++
		}
	}
	s.logger.Debug("attribute deleted", "attribute", name, "retracted", retracted)
	return nil
}

// InsertFact appends a live fact and returns it.
// Returns ATTRIBUTE_NOT_IN_SCHEMA if attribute is not in the schema.
func (s *Store) InsertFact(entity, attribute, value string) (fact.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOfLocked(attribute) < 0 {
		return fact.Fact{}, fact.NewAttributeNotInSchemaError(entity, attribute)
	}
	f := s.appendLocked(entity, attribute, value, true)
	s.logger.Debug("fact inserted", "entity", entity, "attribute", attribute, "seq", f.Seq)
	return f, nil
}

// DeleteFact appends a tombstone for the triple and returns it.
//
// There is no existence check: tombstoning a triple that was never live, or
// tombstoning twice, is legal and only adds redundant rows.
func (s *Store) DeleteFact(entity, attribute, value string) fact.Fact {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.appendLocked(entity, attribute, value, false)
	s.logger.Debug("fact tombstoned", "entity", entity, "attribute", attribute, "seq", f.Seq)
	return f
}

// retractEntity clears the live flag of every log row for entity, the
// entity-scoped counterpart of the DeleteAttribute cascade. Returns the number
// of rows retracted. Not exposed by any public operation.
func (s *Store) retractEntity(entity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	retracted := 0
	for j := range s.facts {
		if s.facts[j].Entity == entity && s.facts[j].Live {
			s.facts[j].Live = false
			retracted++
		}
	}
	return retracted
}

// appendLocked stamps and appends a row. Caller must hold the write lock.
func (s *Store) appendLocked(entity, attribute, value string, live bool) fact.Fact {
	f := fact.Fact{
		Entity:    entity,
		Attribute: attribute,
		Value:     value,
		Live:      live,
		Seq:       s.clock.Next(),
	}
	s.facts = append(s.facts, f)
	return f
}

// indexOfLocked returns the schema position of name, or -1.
// Caller must hold the lock.
func (s *Store) indexOfLocked(name string) int {
	for i, attr := range s.schema {
		if attr.Name == name {
			return i
		}
	}
	return -1
}
