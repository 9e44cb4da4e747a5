package service

import (
	"context"
	"fmt"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/factstore"
	"github.com/roach88/factlog/internal/history"
	"github.com/roach88/factlog/internal/users"
)

// Backend groups the three stores of one storage backend. Users may be nil
// for backends that do not carry credentials.
type Backend struct {
	Persister Persister
	History   history.Log
	Users     users.Registry
}

// MigrateStats counts what Migrate copied.
type MigrateStats struct {
	Attributes int `json:"attributes"`
	Facts      int `json:"facts"`
	Changes    int `json:"changes"`
	Users      int `json:"users"`
}

// Migrate copies schema, facts, history and users from one backend to
// another.
//
// Facts pass through a fact store so sources without sequence numbers are
// numbered by log position. The target history must be empty; re-running a
// migration would otherwise duplicate records. Target schema and facts are
// replaced; users are upserted.
//
// Everything is read from the source before the target is written. History
// is copied one record at a time without rollback: if a register fails,
// the target keeps the records copied so far (stats.Changes counts them) and
// must be cleared before Migrate will accept it again.
func Migrate(ctx context.Context, from, to Backend) (MigrateStats, error) {
	var stats MigrateStats

	existing, err := to.History.RetrieveAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("migrate: read target history: %w", err)
	}
	if len(existing) > 0 {
		return stats, fmt.Errorf("migrate: %w",
			fact.NewInvalidArgumentError(fmt.Sprintf("target history already holds %d records", len(existing))))
	}

	schema, facts, err := from.Persister.Restore(ctx)
	if err != nil {
		return stats, fmt.Errorf("migrate: restore source: %w", err)
	}
	changes, err := from.History.RetrieveAll(ctx)
	if err != nil {
		return stats, fmt.Errorf("migrate: read source history: %w", err)
	}
	store, err := factstore.New(schema, facts)
	if err != nil {
		return stats, fmt.Errorf("migrate: %w", err)
	}
	if err := to.Persister.Save(ctx, store.Schema(), store.AllFacts()); err != nil {
		return stats, fmt.Errorf("migrate: save target: %w", err)
	}
	stats.Attributes = len(schema)
	stats.Facts = len(facts)

	for i, rec := range changes {
		if err := to.History.Register(ctx, rec); err != nil {
			return stats, fmt.Errorf("migrate: register change %d of %d, target history is partial: %w",
				i+1, len(changes), err)
		}
		stats.Changes++
	}

	if from.Users == nil || to.Users == nil {
		return stats, nil
	}
	creds, err := from.Users.Credentials(ctx)
	if err != nil {
		return stats, fmt.Errorf("migrate: read source users: %w", err)
	}
	for _, cred := range creds {
		if err := to.Users.PutUser(ctx, cred); err != nil {
			return stats, fmt.Errorf("migrate: put user %q: %w", cred.Username, err)
		}
		stats.Users++
	}
	return stats, nil
}
