// Package service couples the in-memory fact store with a persistence
// backend and the change history.
//
// Every mutation runs as one unit under the service mutex:
//
//	mutate store -> Save full snapshot -> Register history record
//
// If Save fails the in-memory store is rebuilt from the snapshot taken before
// the mutation, so a failed call leaves no trace in memory or on disk.
// Only fact insertions and deletions are recorded in the history.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/factstore"
	"github.com/roach88/factlog/internal/history"
)

// Persister loads and stores the full schema and fact log.
type Persister interface {
	Restore(ctx context.Context) ([]fact.Attribute, []fact.Fact, error)
	Save(ctx context.Context, schema []fact.Attribute, facts []fact.Fact) error
}

// Service is the application entry point for schema and fact operations.
type Service struct {
	mu       sync.Mutex
	store    *factstore.Store
	persist  Persister
	history  history.Log
	recorder *history.Recorder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder sets the change record builder. Default: UUIDv7 IDs and
// time.Now.
func WithRecorder(r *history.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// Open restores the persisted state and returns a ready Service.
func Open(ctx context.Context, p Persister, log history.Log, opts ...Option) (*Service, error) {
	s := &Service{
		persist:  p,
		history:  log,
		recorder: history.NewRecorder(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	schema, facts, err := p.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("open service: %w", err)
	}
	store, err := factstore.New(schema, facts, factstore.WithLogger(s.logger))
	if err != nil {
		return nil, fmt.Errorf("open service: %w", err)
	}
	s.store = store
	s.logger.Info("fact store loaded", "attributes", len(schema), "facts", len(facts))
	return s, nil
}

// Schema returns the attributes in schema order.
func (s *Service) Schema() []fact.Attribute {
	return s.current().Schema()
}

// Attribute returns one schema entry. NOT_FOUND if absent.
func (s *Service) Attribute(name string) (fact.Attribute, error) {
	return s.current().Attribute(name)
}

// CurrentFacts returns the triples currently in effect.
func (s *Service) CurrentFacts() []fact.Triple {
	return s.current().CurrentFacts()
}

// Filter returns current triples restricted by filter.
func (s *Service) Filter(filter fact.Filter) []fact.Triple {
	return s.current().Filter(filter)
}

// FactLog returns raw log rows, all of them when entity is empty.
func (s *Service) FactLog(entity string) []fact.Fact {
	store := s.current()
	if entity == "" {
		return store.AllFacts()
	}
	return store.EntityFacts(entity)
}

// History returns the recorded changes for entity, oldest first.
func (s *Service) History(ctx context.Context, entity string) ([]history.ChangeRecord, error) {
	recs, err := s.history.Retrieve(ctx, entity)
	if err != nil {
		return nil, fmt.Errorf("history %s: %w", entity, err)
	}
	return recs, nil
}

// AddAttribute adds an attribute to the schema and persists.
func (s *Service) AddAttribute(ctx context.Context, name string, cardinality fact.Cardinality) error {
	return s.mutate(ctx, "add attribute", func(store *factstore.Store) error {
		return store.InsertAttribute(name, cardinality)
	})
}

// UpdateAttribute changes an attribute's cardinality and persists.
func (s *Service) UpdateAttribute(ctx context.Context, name string, cardinality fact.Cardinality) error {
	return s.mutate(ctx, "update attribute", func(store *factstore.Store) error {
		return store.UpdateAttribute(name, cardinality)
	})
}

// DeleteAttribute removes an attribute, retracts its facts and persists.
func (s *Service) DeleteAttribute(ctx context.Context, name string) error {
	return s.mutate(ctx, "delete attribute", func(store *factstore.Store) error {
		return store.DeleteAttribute(name)
	})
}

// AddFact asserts a fact, persists and records an insertion.
func (s *Service) AddFact(ctx context.Context, entity, attribute, value string) (fact.Fact, error) {
	var added fact.Fact
	err := s.mutate(ctx, "add fact", func(store *factstore.Store) error {
		f, err := store.InsertFact(entity, attribute, value)
		added = f
		return err
	}, func() history.ChangeRecord {
		return s.recorder.Insertion(entity, attribute, value)
	})
	return added, err
}

// DeleteFact tombstones a fact, persists and records a deletion.
func (s *Service) DeleteFact(ctx context.Context, entity, attribute, value string) (fact.Fact, error) {
	var tomb fact.Fact
	err := s.mutate(ctx, "delete fact", func(store *factstore.Store) error {
		tomb = store.DeleteFact(entity, attribute, value)
		return nil
	}, func() history.ChangeRecord {
		return s.recorder.Deletion(entity, attribute, value)
	})
	return tomb, err
}

// current returns the live store pointer. The pointer changes only when a
// failed save rolls the store back.
func (s *Service) current() *factstore.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// mutate applies fn, persists the result and registers at most one history
// record. Errors from fn leave the store untouched; a Save error rolls the
// store back to the pre-mutation snapshot. A history error is returned after
// the mutation has been persisted.
func (s *Service) mutate(ctx context.Context, op string, fn func(*factstore.Store) error, record ...func() history.ChangeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	schema, facts := s.store.Schema(), s.store.AllFacts()

	if err := fn(s.store); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.persist.Save(ctx, s.store.Schema(), s.store.AllFacts()); err != nil {
		restored, rerr := factstore.New(schema, facts, factstore.WithLogger(s.logger))
		if rerr != nil {
			return fmt.Errorf("%s: rollback after save failure: %w", op, rerr)
		}
		s.store = restored
		s.logger.Error("save failed, mutation rolled back", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	for _, build := range record {
		rec := build()
		if err := s.history.Register(ctx, rec); err != nil {
			s.logger.Error("history register failed", "op", op, "entity", rec.Entity, "error", err)
			return fmt.Errorf("%s: record history: %w", op, err)
		}
	}

	s.logger.Debug("mutation applied", "op", op, "seq", s.store.Seq())
	return nil
}
