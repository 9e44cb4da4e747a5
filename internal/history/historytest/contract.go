// Package historytest holds behavioral checks shared by every history.Log
// backend.
package historytest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/history"
)

// Records returns a small fixed change sequence spanning two entities.
// Timestamps are whole seconds in time.Local so every backend can round-trip
// them.
func Records() []history.ChangeRecord {
	base := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.Local)
	return []history.ChangeRecord{
		{ID: "c-1", Action: history.ActionInsertion, Entity: "e1", Attribute: "name", Value: "Alice", Timestamp: base},
		{ID: "c-2", Action: history.ActionInsertion, Entity: "e2", Attribute: "name", Value: "Bob", Timestamp: base.Add(time.Second)},
		{ID: "c-3", Action: history.ActionInsertion, Entity: "e1", Attribute: "phone", Value: "555-1", Timestamp: base.Add(2 * time.Second)},
		{ID: "c-4", Action: history.ActionDeletion, Entity: "e1", Attribute: "phone", Value: "555-1", Timestamp: base.Add(3 * time.Second)},
	}
}

// RunLogContract exercises a history.Log produced by newLog. Each subtest gets
// a fresh, empty log. Set withIDs false for backends that do not persist IDs.
func RunLogContract(t *testing.T, newLog func(t *testing.T) history.Log, withIDs bool) {
	t.Helper()

	normalize := func(recs []history.ChangeRecord) []history.ChangeRecord {
		out := make([]history.ChangeRecord, len(recs))
		for i, r := range recs {
			if !withIDs {
				r.ID = ""
			}
			r.Timestamp = r.Timestamp.Local()
			out[i] = r
		}
		return out
	}

	t.Run("empty log retrieves nothing", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()

		got, err := log.Retrieve(ctx, "e1")
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)

		all, err := log.RetrieveAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})

	t.Run("retrieve filters by exact entity in order", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		recs := Records()
		for _, rec := range recs {
			require.NoError(t, log.Register(ctx, rec))
		}

		got, err := log.Retrieve(ctx, "e1")
		require.NoError(t, err)
		want := normalize([]history.ChangeRecord{recs[0], recs[2], recs[3]})
		assert.Equal(t, want, normalize(got))

		none, err := log.Retrieve(ctx, "e")
		require.NoError(t, err)
		assert.Empty(t, none, "entity match is exact, not prefix")
	})

	t.Run("retrieve all keeps append order", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		recs := Records()
		for _, rec := range recs {
			require.NoError(t, log.Register(ctx, rec))
		}

		all, err := log.RetrieveAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, normalize(recs), normalize(all))
	})

	t.Run("register does not validate against facts", func(t *testing.T) {
		log := newLog(t)
		ctx := context.Background()
		rec := history.ChangeRecord{
			ID:        "c-9",
			Action:    history.ActionDeletion,
			Entity:    "ghost",
			Attribute: "unknown",
			Value:     "",
			Timestamp: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local),
		}
		require.NoError(t, log.Register(ctx, rec))

		got, err := log.Retrieve(ctx, "ghost")
		require.NoError(t, err)
		assert.Equal(t, normalize([]history.ChangeRecord{rec}), normalize(got))
	})
}
