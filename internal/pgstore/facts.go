package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/factlog/internal/fact"
)

// Restore loads the schema in position order and the fact log in seq order.
func (c *Client) Restore(ctx context.Context) ([]fact.Attribute, []fact.Fact, error) {
	rows, err := c.pool.Query(ctx, `SELECT name, cardinality FROM attributes ORDER BY position ASC`)
	if err != nil {
		return nil, nil, fact.NewPersistenceError("restore: query attributes", err)
	}
	schema, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (fact.Attribute, error) {
		var name, cardinality string
		if err := row.Scan(&name, &cardinality); err != nil {
			return fact.Attribute{}, err
		}
		return fact.NewAttribute(name, cardinality)
	})
	if err != nil {
		return nil, nil, fact.NewPersistenceError("restore: read attributes", err)
	}

	rows, err = c.pool.Query(ctx, `SELECT seq, entity, attribute, value, live FROM facts ORDER BY seq ASC`)
	if err != nil {
		return nil, nil, fact.NewPersistenceError("restore: query facts", err)
	}
	facts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (fact.Fact, error) {
		var f fact.Fact
		err := row.Scan(&f.Seq, &f.Entity, &f.Attribute, &f.Value, &f.Live)
		return f, err
	})
	if err != nil {
		return nil, nil, fact.NewPersistenceError("restore: read facts", err)
	}

	if schema == nil {
		schema = []fact.Attribute{}
	}
	if facts == nil {
		facts = []fact.Fact{}
	}
	c.logger.Debug("data restored", "attributes", len(schema), "facts", len(facts))
	return schema, facts, nil
}

// Save replaces the stored schema and fact log in one transaction.
// Facts are bulk-loaded with COPY.
func (c *Client) Save(ctx context.Context, schema []fact.Attribute, facts []fact.Fact) error {
	if err := c.save(ctx, schema, facts); err != nil {
		return fact.NewPersistenceError("save", err)
	}
	c.logger.Debug("data saved", "attributes", len(schema), "facts", len(facts))
	return nil
}

func (c *Client) save(ctx context.Context, schema []fact.Attribute, facts []fact.Fact) error {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE attributes, facts`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"attributes"},
		[]string{"name", "position", "cardinality"},
		pgx.CopyFromSlice(len(schema), func(i int) ([]any, error) {
			return []any{schema[i].Name, int32(i), schema[i].Cardinality.String()}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy attributes: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"facts"},
		[]string{"seq", "entity", "attribute", "value", "live"},
		pgx.CopyFromSlice(len(facts), func(i int) ([]any, error) {
			f := facts[i]
			return []any{f.Seq, f.Entity, f.Attribute, f.Value, f.Live}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy facts: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
