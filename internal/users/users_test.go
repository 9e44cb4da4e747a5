package users

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/fact"
)

// credentialDirectory is a Directory over a fixed credential list.
type credentialDirectory []Credential

func (d credentialDirectory) Lookup(ctx context.Context, username, password string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return FindCredential(d, username, password), nil
}

var testDirectory = credentialDirectory{
	{Username: "ada", Password: "s3cret", Role: RoleAdmin},
	{Username: "bob", Password: "hunter2", Role: "viewer"},
}

func TestCredential_Match(t *testing.T) {
	c := Credential{Username: "ada", Password: "s3cret"}

	assert.True(t, c.Match("ada", "s3cret"))
	assert.False(t, c.Match("ada", "s3cre"))
	assert.False(t, c.Match("Ada", "s3cret"))
	assert.False(t, c.Match("", ""))
}

func TestFindCredential(t *testing.T) {
	ctx := context.Background()

	u, err := testDirectory.Lookup(ctx, "bob", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, &User{Username: "bob", Role: "viewer"}, u)

	u, err = testDirectory.Lookup(ctx, "bob", "wrong")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUser_IsAdmin(t *testing.T) {
	var nobody *User
	assert.False(t, nobody.IsAdmin())
	assert.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	assert.False(t, (&User{Role: "viewer"}).IsAdmin())
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()

	u, err := RequireAdmin(ctx, testDirectory, "ada", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "ada", u.Username)

	_, err = RequireAdmin(ctx, testDirectory, "bob", "hunter2")
	assert.True(t, fact.IsForbidden(err), "non-admin is forbidden")

	_, err = RequireAdmin(ctx, testDirectory, "eve", "guess")
	assert.True(t, fact.IsForbidden(err), "unknown user is forbidden")
}

type brokenDirectory struct{}

func (brokenDirectory) Lookup(context.Context, string, string) (*User, error) {
	return nil, fact.NewPersistenceError("users file unreadable", errors.New("boom"))
}

func TestRequireAdmin_PropagatesDirectoryError(t *testing.T) {
	_, err := RequireAdmin(context.Background(), brokenDirectory{}, "ada", "s3cret")
	assert.True(t, fact.IsPersistenceUnavailable(err))
}

func TestUpsert(t *testing.T) {
	creds := []Credential{{Username: "ada", Password: "a", Role: RoleAdmin}}

	added := Upsert(creds, Credential{Username: "bob", Password: "b", Role: "viewer"})
	assert.Len(t, added, 2)
	assert.Len(t, creds, 1, "input not modified")

	replaced := Upsert(added, Credential{Username: "ada", Password: "new", Role: "viewer"})
	assert.Equal(t, []Credential{
		{Username: "ada", Password: "new", Role: "viewer"},
		{Username: "bob", Password: "b", Role: "viewer"},
	}, replaced)
}

func TestValidateCredential(t *testing.T) {
	assert.NoError(t, ValidateCredential(Credential{Username: "ada", Role: RoleAdmin}))
	assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(ValidateCredential(Credential{Role: RoleAdmin})))
	assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(ValidateCredential(Credential{Username: "ada"})))
}
