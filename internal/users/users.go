// Package users resolves credentials to roles and gates mutations on the
// admin role.
package users

import (
	"context"
	"crypto/subtle"

	"github.com/roach88/factlog/internal/fact"
)

// RoleAdmin is the role required for schema and fact mutations.
const RoleAdmin = "admin"

// User is an authenticated principal.
type User struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether u holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Directory looks up users by credentials.
//
// Lookup returns nil, nil when no user matches. A backing store that cannot
// be read is a PERSISTENCE_UNAVAILABLE error.
type Directory interface {
	Lookup(ctx context.Context, username, password string) (*User, error)
}

// Registry is a Directory whose credentials can be listed and written.
//
// PutUser inserts or replaces the credential with the same username.
type Registry interface {
	Directory
	PutUser(ctx context.Context, cred Credential) error
	Credentials(ctx context.Context) ([]Credential, error)
}

// Credential is a stored username, password and role.
type Credential struct {
	Username string
	Password string
	Role     string
}

// Match reports whether username and password equal the stored pair.
// Comparison is constant-time per field.
func (c Credential) Match(username, password string) bool {
	u := subtle.ConstantTimeCompare([]byte(c.Username), []byte(username))
	p := subtle.ConstantTimeCompare([]byte(c.Password), []byte(password))
	return u&p == 1
}

// FindCredential returns the user of the first credential matching username
// and password, or nil.
func FindCredential(creds []Credential, username, password string) *User {
	for _, c := range creds {
		if c.Match(username, password) {
			return &User{Username: c.Username, Role: c.Role}
		}
	}
	return nil
}

// Upsert returns creds with cred replacing the entry of the same username, or
// appended if there is none. The input slice is not modified.
func Upsert(creds []Credential, cred Credential) []Credential {
	out := make([]Credential, 0, len(creds)+1)
	replaced := false
	for _, c := range creds {
		if c.Username == cred.Username {
			out = append(out, cred)
			replaced = true
			continue
		}
		out = append(out, c)
	}
	if !replaced {
		out = append(out, cred)
	}
	return out
}

// ValidateCredential checks that a credential can be stored.
func ValidateCredential(cred Credential) error {
	if cred.Username == "" {
		return fact.NewInvalidArgumentError("username must not be empty")
	}
	if cred.Role == "" {
		return fact.NewInvalidArgumentError("role must not be empty")
	}
	return nil
}

// RequireAdmin authenticates username/password against dir and returns the
// user if it holds the admin role.
//
// Unknown credentials and non-admin users are both FORBIDDEN.
func RequireAdmin(ctx context.Context, dir Directory, username, password string) (*User, error) {
	u, err := dir.Lookup(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fact.NewForbiddenError(username, "")
	}
	if !u.IsAdmin() {
		return nil, fact.NewForbiddenError(u.Username, u.Role)
	}
	return u, nil
}
