package pgstore

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/users"
)

// Lookup returns the user matching username and password, or nil.
func (c *Client) Lookup(ctx context.Context, username, password string) (*users.User, error) {
	var cred users.Credential
	err := c.pool.QueryRow(ctx, `SELECT username, password, role FROM users WHERE username = $1`, username).
		Scan(&cred.Username, &cred.Password, &cred.Role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fact.NewPersistenceError("lookup user", err)
	}
	return users.FindCredential([]users.Credential{cred}, username, password), nil
}

// PutUser inserts or replaces a user.
func (c *Client) PutUser(ctx context.Context, cred users.Credential) error {
	if err := users.ValidateCredential(cred); err != nil {
		return err
	}
	_, err := c.pool.Exec(ctx, `
INSERT INTO users (username, password, role) VALUES ($1, $2, $3)
ON CONFLICT (username) DO UPDATE SET password = EXCLUDED.password, role = EXCLUDED.role
`, cred.Username, cred.Password, cred.Role)
	if err != nil {
		return fact.NewPersistenceError("put user", err)
	}
	return nil
}

// Credentials lists users ordered by username.
func (c *Client) Credentials(ctx context.Context) ([]users.Credential, error) {
	rows, err := c.pool.Query(ctx, `SELECT username, password, role FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, fact.NewPersistenceError("query users", err)
	}
	creds, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (users.Credential, error) {
		var cred users.Credential
		err := row.Scan(&cred.Username, &cred.Password, &cred.Role)
		return cred, err
	})
	if err != nil {
		return nil, fact.NewPersistenceError("read users", err)
	}
	if creds == nil {
		creds = []users.Credential{}
	}
	return creds, nil
}
