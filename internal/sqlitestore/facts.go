package sqlitestore

import (
	"context"
	"fmt"

	"github.com/roach88/factlog/internal/fact"
)

// Restore loads the schema in position order and the fact log in seq order.
func (s *Store) Restore(ctx context.Context) ([]fact.Attribute, []fact.Fact, error) {
	schema, err := s.readAttributes(ctx)
	if err != nil {
		return nil, nil, fact.NewPersistenceError("restore", err)
	}
	facts, err := s.readFacts(ctx)
	if err != nil {
		return nil, nil, fact.NewPersistenceError("restore", err)
	}
	s.logger.Debug("data restored", "attributes", len(schema), "facts", len(facts))
	return schema, facts, nil
}

func (s *Store) readAttributes(ctx context.Context) ([]fact.Attribute, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, cardinality
		FROM attributes
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	schema := []fact.Attribute{}
	for rows.Next() {
		var name, cardinality string
		if err := rows.Scan(&name, &cardinality); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attr, err := fact.NewAttribute(name, cardinality)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		schema = append(schema, attr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}
	return schema, nil
}

func (s *Store) readFacts(ctx context.Context) ([]fact.Fact, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, entity, attribute, value, live
		FROM facts
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query facts: %w", err)
	}
	defer rows.Close()

	facts := []fact.Fact{}
	for rows.Next() {
		var f fact.Fact
		if err := rows.Scan(&f.Seq, &f.Entity, &f.Attribute, &f.Value, &f.Live); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		facts = append(facts, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate facts: %w", err)
	}
	return facts, nil
}

// Save replaces the stored schema and fact log in one transaction.
//
// Facts are expected to carry the unique Seq values stamped by the fact
// store; rows are keyed by Seq.
func (s *Store) Save(ctx context.Context, schema []fact.Attribute, facts []fact.Fact) error {
	if err := s.save(ctx, schema, facts); err != nil {
		return fact.NewPersistenceError("save", err)
	}
	s.logger.Debug("data saved", "attributes", len(schema), "facts", len(facts))
	return nil
}

func (s *Store) save(ctx context.Context, schema []fact.Attribute, facts []fact.Fact) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM attributes`); err != nil {
		return fmt.Errorf("clear attributes: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM facts`); err != nil {
		return fmt.Errorf("clear facts: %w", err)
	}

	attrStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attributes (name, position, cardinality) VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare attribute insert: %w", err)
	}
	defer attrStmt.Close()
	for i, a := range schema {
		if _, err := attrStmt.ExecContext(ctx, a.Name, i, a.Cardinality.String()); err != nil {
			return fmt.Errorf("insert attribute %q: %w", a.Name, err)
		}
	}

	factStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO facts (seq, entity, attribute, value, live) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare fact insert: %w", err)
	}
	defer factStmt.Close()
	for _, f := range facts {
		if _, err := factStmt.ExecContext(ctx, f.Seq, f.Entity, f.Attribute, f.Value, f.Live); err != nil {
			return fmt.Errorf("insert fact seq %d: %w", f.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
