package sqlitestore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/users"
)

var _ users.Registry = (*Store)(nil)

// Lookup returns the user matching username and password, or nil.
func (s *Store) Lookup(ctx context.Context, username, password string) (*users.User, error) {
	var cred users.Credential
	err := s.db.QueryRowContext(ctx, `
		SELECT username, password, role FROM users WHERE username = ?
	`, username).Scan(&cred.Username, &cred.Password, &cred.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fact.NewPersistenceError("lookup user", err)
	}
	return users.FindCredential([]users.Credential{cred}, username, password), nil
}

// PutUser inserts or replaces a user.
func (s *Store) PutUser(ctx context.Context, cred users.Credential) error {
	if err := users.ValidateCredential(cred); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role) VALUES (?, ?, ?)
		ON CONFLICT(username) DO UPDATE SET password = excluded.password, role = excluded.role
	`, cred.Username, cred.Password, cred.Role)
	if err != nil {
		return fact.NewPersistenceError("put user", err)
	}
	return nil
}

// Credentials lists users ordered by username.
func (s *Store) Credentials(ctx context.Context) ([]users.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role FROM users ORDER BY username ASC
	`)
	if err != nil {
		return nil, fact.NewPersistenceError("query users", err)
	}
	defer rows.Close()

	creds := []users.Credential{}
	for rows.Next() {
		var c users.Credential
		if err := rows.Scan(&c.Username, &c.Password, &c.Role); err != nil {
			return nil, fact.NewPersistenceError("scan user", err)
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fact.NewPersistenceError("iterate users", err)
	}
	return creds, nil
}
