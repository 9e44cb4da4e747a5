package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
)

// Register appends a change record.
func (c *Client) Register(ctx context.Context, rec history.ChangeRecord) error {
	_, err := c.pool.Exec(ctx, `
INSERT INTO changes (id, action, entity, attribute, value, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, rec.ID, string(rec.Action), rec.Entity, rec.Attribute, rec.Value, rec.Timestamp)
	if err != nil {
		return fact.NewPersistenceError("register change", err)
	}
	return nil
}

// Retrieve returns the change records for entity, oldest first.
func (c *Client) Retrieve(ctx context.Context, entity string) ([]history.ChangeRecord, error) {
	return c.readChanges(ctx, `
SELECT id, action, entity, attribute, value, occurred_at
FROM changes
WHERE entity = $1
ORDER BY seq ASC
`, entity)
}

// RetrieveAll returns every change record, oldest first.
func (c *Client) RetrieveAll(ctx context.Context) ([]history.ChangeRecord, error) {
	return c.readChanges(ctx, `
SELECT id, action, entity, attribute, value, occurred_at
FROM changes
ORDER BY seq ASC
`)
}

func (c *Client) readChanges(ctx context.Context, query string, args ...any) ([]history.ChangeRecord, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fact.NewPersistenceError("query changes", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.ChangeRecord, error) {
		var (
			rec    history.ChangeRecord
			action string
		)
		if err := row.Scan(&rec.ID, &action, &rec.Entity, &rec.Attribute, &rec.Value, &rec.Timestamp); err != nil {
			return rec, err
		}
		rec.Action, err = history.ParseAction(action)
		return rec, err
	})
	if err != nil {
		return nil, fact.NewPersistenceError("read changes", err)
	}
	if records == nil {
		records = []history.ChangeRecord{}
	}
	return records, nil
}
