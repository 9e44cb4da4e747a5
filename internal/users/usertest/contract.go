// Package usertest holds behavioral checks shared by users.Registry backends.
package usertest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/users"
)

// RunRegistryContract exercises a users.Registry produced by newRegistry.
// Each subtest gets a fresh, empty registry.
func RunRegistryContract(t *testing.T, newRegistry func(t *testing.T) users.Registry) {
	t.Helper()

	t.Run("put then lookup", func(t *testing.T) {
		reg := newRegistry(t)
		ctx := context.Background()
		require.NoError(t, reg.PutUser(ctx, users.Credential{Username: "ada", Password: "s3cret", Role: users.RoleAdmin}))
		require.NoError(t, reg.PutUser(ctx, users.Credential{Username: "bob", Password: "hunter2", Role: "viewer"}))

		u, err := reg.Lookup(ctx, "ada", "s3cret")
		require.NoError(t, err)
		assert.Equal(t, &users.User{Username: "ada", Role: users.RoleAdmin}, u)

		u, err = reg.Lookup(ctx, "ada", "hunter2")
		require.NoError(t, err)
		assert.Nil(t, u)
	})

	t.Run("put replaces by username", func(t *testing.T) {
		reg := newRegistry(t)
		ctx := context.Background()
		require.NoError(t, reg.PutUser(ctx, users.Credential{Username: "ada", Password: "old", Role: "viewer"}))
		require.NoError(t, reg.PutUser(ctx, users.Credential{Username: "ada", Password: "new", Role: users.RoleAdmin}))

		creds, err := reg.Credentials(ctx)
		require.NoError(t, err)
		assert.Equal(t, []users.Credential{{Username: "ada", Password: "new", Role: users.RoleAdmin}}, creds)
	})

	t.Run("put rejects blank username", func(t *testing.T) {
		reg := newRegistry(t)
		err := reg.PutUser(context.Background(), users.Credential{Role: users.RoleAdmin})
		assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(err))
	})
}
