package sqlitestore

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
)

var _ history.Log = (*Store)(nil)

// Register appends a change record.
func (s *Store) Register(ctx context.Context, rec history.ChangeRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO changes (id, action, entity, attribute, value, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		string(rec.Action),
		rec.Entity,
		rec.Attribute,
		rec.Value,
		rec.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fact.NewPersistenceError("register change", err)
	}
	return nil
}

// Retrieve returns the change records for entity, oldest first.
func (s *Store) Retrieve(ctx context.Context, entity string) ([]history.ChangeRecord, error) {
	return s.readChanges(ctx, `
		SELECT id, action, entity, attribute, value, occurred_at
		FROM changes
		WHERE entity = ?
		ORDER BY seq ASC
	`, entity)
}

// RetrieveAll returns every change record, oldest first.
func (s *Store) RetrieveAll(ctx context.Context) ([]history.ChangeRecord, error) {
	return s.readChanges(ctx, `
		SELECT id, action, entity, attribute, value, occurred_at
		FROM changes
		ORDER BY seq ASC
	`)
}

func (s *Store) readChanges(ctx context.Context, query string, args ...any) ([]history.ChangeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fact.NewPersistenceError("query changes", err)
	}
	defer rows.Close()

	records := []history.ChangeRecord{}
	for rows.Next() {
		var (
			rec        history.ChangeRecord
			action     string
			occurredAt string
		)
		if err := rows.Scan(&rec.ID, &action, &rec.Entity, &rec.Attribute, &rec.Value, &occurredAt); err != nil {
			return nil, fact.NewPersistenceError("scan change", err)
		}
		if rec.Action, err = history.ParseAction(action); err != nil {
			return nil, fmt.Errorf("change %s: %w", rec.ID, err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339, occurredAt); err != nil {
			return nil, fmt.Errorf("change %s: parse occurred_at: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fact.NewPersistenceError("iterate changes", err)
	}
	return records, nil
}
