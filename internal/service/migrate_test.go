package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
	"github.com/roach88/factlog/internal/history/historytest"
	"github.com/roach88/factlog/internal/users"
)

// memoryRegistry is an in-memory users.Registry.
type memoryRegistry struct {
	creds []users.Credential
}

func (m *memoryRegistry) Lookup(ctx context.Context, username, password string) (*users.User, error) {
	return users.FindCredential(m.creds, username, password), nil
}

func (m *memoryRegistry) PutUser(ctx context.Context, cred users.Credential) error {
	m.creds = users.Upsert(m.creds, cred)
	return nil
}

func (m *memoryRegistry) Credentials(ctx context.Context) ([]users.Credential, error) {
	return append([]users.Credential{}, m.creds...), nil
}

func TestMigrate_CopiesEverything(t *testing.T) {
	ctx := context.Background()
	srcLog := history.NewMemoryLog()
	for _, rec := range historytest.Records() {
		require.NoError(t, srcLog.Register(ctx, rec))
	}
	src := Backend{
		Persister: &memoryPersister{
			schema: []fact.Attribute{{Name: "name", Cardinality: fact.One}},
			facts: []fact.Fact{
				{Entity: "e1", Attribute: "name", Value: "Alice", Live: true},
				{Entity: "e1", Attribute: "name", Value: "Alice", Live: false},
			},
		},
		History: srcLog,
		Users:   &memoryRegistry{creds: []users.Credential{{Username: "ada", Password: "pw", Role: users.RoleAdmin}}},
	}
	dstPersister := &memoryPersister{}
	dstUsers := &memoryRegistry{}
	dst := Backend{Persister: dstPersister, History: history.NewMemoryLog(), Users: dstUsers}

	stats, err := Migrate(ctx, src, dst)
	require.NoError(t, err)

	assert.Equal(t, MigrateStats{Attributes: 1, Facts: 2, Changes: 4, Users: 1}, stats)
	assert.Equal(t, int64(1), dstPersister.facts[0].Seq, "unsequenced facts numbered on the way")
	assert.Equal(t, int64(2), dstPersister.facts[1].Seq)
	all, err := dst.History.RetrieveAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, historytest.Records(), all)
	assert.Len(t, dstUsers.creds, 1)
}

func TestMigrate_RefusesNonEmptyTargetHistory(t *testing.T) {
	ctx := context.Background()
	dstLog := history.NewMemoryLog()
	require.NoError(t, dstLog.Register(ctx, historytest.Records()[0]))

	_, err := Migrate(ctx,
		Backend{Persister: &memoryPersister{}, History: history.NewMemoryLog()},
		Backend{Persister: &memoryPersister{}, History: dstLog},
	)
	require.Error(t, err)
	assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(err))
}

func TestMigrate_NilUsersSkipped(t *testing.T) {
	stats, err := Migrate(context.Background(),
		Backend{Persister: &memoryPersister{}, History: history.NewMemoryLog()},
		Backend{Persister: &memoryPersister{}, History: history.NewMemoryLog(), Users: &memoryRegistry{}},
	)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Users)
}

// cutoffLog is a history.Log whose Register fails after limit records.
type cutoffLog struct {
	*history.MemoryLog
	limit int
	n     int
}

func (f *cutoffLog) Register(ctx context.Context, rec history.ChangeRecord) error {
	if f.n >= f.limit {
		return fact.NewPersistenceError("register change", errors.New("disk full"))
	}
	f.n++
	return f.MemoryLog.Register(ctx, rec)
}

func TestMigrate_PartialHistoryOnRegisterFailure(t *testing.T) {
	ctx := context.Background()
	srcLog := history.NewMemoryLog()
	for _, rec := range historytest.Records() {
		require.NoError(t, srcLog.Register(ctx, rec))
	}
	dstLog := &cutoffLog{MemoryLog: history.NewMemoryLog(), limit: 1}
	dst := Backend{Persister: &memoryPersister{}, History: dstLog}

	stats, err := Migrate(ctx, Backend{Persister: &memoryPersister{}, History: srcLog}, dst)
	require.Error(t, err)
	assert.True(t, fact.IsPersistenceUnavailable(err))
	assert.Contains(t, err.Error(), "target history is partial")
	assert.Equal(t, 1, stats.Changes)

	// The partial target is refused until it is cleared.
	_, err = Migrate(ctx, Backend{Persister: &memoryPersister{}, History: srcLog}, dst)
	require.Error(t, err)
	assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(err))
}

// failingReadLog is a history.Log that cannot be read.
type failingReadLog struct {
	*history.MemoryLog
}

func (failingReadLog) RetrieveAll(ctx context.Context) ([]history.ChangeRecord, error) {
	return nil, fact.NewPersistenceError("read history", errors.New("unreadable"))
}

func TestMigrate_SourceHistoryReadFailureLeavesTargetUntouched(t *testing.T) {
	ctx := context.Background()
	src := Backend{
		Persister: &memoryPersister{schema: []fact.Attribute{{Name: "name", Cardinality: fact.One}}},
		History:   failingReadLog{history.NewMemoryLog()},
	}
	dstPersister := &memoryPersister{}

	_, err := Migrate(ctx, src, Backend{Persister: dstPersister, History: history.NewMemoryLog()})
	require.Error(t, err)
	assert.Equal(t, 0, dstPersister.saves)
}
