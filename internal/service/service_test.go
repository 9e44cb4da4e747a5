package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
	"github.com/roach88/factlog/internal/testutil"
)

// memoryPersister is an in-memory Persister that can be told to fail.
type memoryPersister struct {
	mu      sync.Mutex
	schema  []fact.Attribute
	facts   []fact.Fact
	saves   int
	failErr error
}

func (m *memoryPersister) Restore(ctx context.Context) ([]fact.Attribute, []fact.Fact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fact.Attribute{}, m.schema...), append([]fact.Fact{}, m.facts...), nil
}

func (m *memoryPersister) Save(ctx context.Context, schema []fact.Attribute, facts []fact.Fact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.schema = append([]fact.Attribute{}, schema...)
	m.facts = append([]fact.Fact{}, facts...)
	m.saves++
	return nil
}

type failingLog struct {
	history.MemoryLog
}

func (f *failingLog) Register(context.Context, history.ChangeRecord) error {
	return fact.NewPersistenceError("history unavailable", errors.New("disk full"))
}

var fixedNow = time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)

func newTestService(t *testing.T, p *memoryPersister, log history.Log) *Service {
	t.Helper()
	rec := history.NewRecorder(
		history.WithIDGenerator(testutil.NewFixedIDs("c-1", "c-2", "c-3", "c-4", "c-5")),
		history.WithNow(func() time.Time { return fixedNow }),
	)
	s, err := Open(context.Background(), p, log, WithRecorder(rec))
	require.NoError(t, err)
	return s
}

func TestService_EndToEnd(t *testing.T) {
	p := &memoryPersister{}
	log := history.NewMemoryLog()
	s := newTestService(t, p, log)
	ctx := context.Background()

	require.NoError(t, s.AddAttribute(ctx, "name", fact.One))
	require.NoError(t, s.AddAttribute(ctx, "phone", fact.Many))
	_, err := s.AddFact(ctx, "e1", "name", "Alice")
	require.NoError(t, err)
	_, err = s.AddFact(ctx, "e1", "phone", "555-1")
	require.NoError(t, err)
	_, err = s.AddFact(ctx, "e1", "phone", "555-2")
	require.NoError(t, err)
	tomb, err := s.DeleteFact(ctx, "e1", "phone", "555-1")
	require.NoError(t, err)
	assert.False(t, tomb.Live)

	assert.Equal(t, []fact.Triple{
		{Entity: "e1", Attribute: "name", Value: "Alice"},
		{Entity: "e1", Attribute: "phone", Value: "555-2"},
	}, s.CurrentFacts())

	assert.Equal(t, 6, p.saves, "every mutation persists")
	assert.Len(t, p.facts, 4)

	recs, err := s.History(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, recs, 4, "attribute operations are not recorded")
	assert.Equal(t, history.ChangeRecord{
		ID: "c-4", Action: history.ActionDeletion, Entity: "e1", Attribute: "phone", Value: "555-1", Timestamp: fixedNow,
	}, recs[3])
}

func TestService_ReopenRestoresState(t *testing.T) {
	p := &memoryPersister{}
	log := history.NewMemoryLog()
	ctx := context.Background()

	s1 := newTestService(t, p, log)
	require.NoError(t, s1.AddAttribute(ctx, "name", fact.One))
	_, err := s1.AddFact(ctx, "e1", "name", "Alice")
	require.NoError(t, err)

	s2 := newTestService(t, p, log)
	assert.Equal(t, s1.Schema(), s2.Schema())
	assert.Equal(t, s1.CurrentFacts(), s2.CurrentFacts())

	f, err := s2.AddFact(ctx, "e1", "name", "Alicia")
	require.NoError(t, err)
	assert.Equal(t, int64(2), f.Seq, "clock resumes after restored log")
}

func TestService_ValidationErrorsDoNotPersist(t *testing.T) {
	p := &memoryPersister{}
	s := newTestService(t, p, history.NewMemoryLog())
	ctx := context.Background()

	_, err := s.AddFact(ctx, "e1", "email", "a@example.com")
	assert.True(t, fact.IsAttributeNotInSchema(err))

	err = s.UpdateAttribute(ctx, "email", fact.One)
	assert.True(t, fact.IsNotFound(err))

	assert.Equal(t, 0, p.saves)
}

func TestService_SaveFailureRollsBack(t *testing.T) {
	p := &memoryPersister{}
	log := history.NewMemoryLog()
	s := newTestService(t, p, log)
	ctx := context.Background()
	require.NoError(t, s.AddAttribute(ctx, "name", fact.One))

	p.failErr = fact.NewPersistenceError("disk gone", errors.New("EIO"))
	_, err := s.AddFact(ctx, "e1", "name", "Alice")
	require.Error(t, err)
	assert.True(t, fact.IsPersistenceUnavailable(err))

	assert.Empty(t, s.CurrentFacts(), "in-memory state rolled back")
	assert.Empty(t, s.FactLog(""))
	recs, err := log.RetrieveAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs, "no history for a failed mutation")

	p.failErr = nil
	f, err := s.AddFact(ctx, "e1", "name", "Alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.Seq)
}

func TestService_HistoryFailureSurfaces(t *testing.T) {
	p := &memoryPersister{}
	s := newTestService(t, p, &failingLog{})
	ctx := context.Background()
	require.NoError(t, s.AddAttribute(ctx, "name", fact.One))

	_, err := s.AddFact(ctx, "e1", "name", "Alice")
	require.Error(t, err)
	assert.True(t, fact.IsPersistenceUnavailable(err))
	assert.Len(t, p.facts, 1, "fact already persisted")
}

func TestService_DeleteAttributeCascade(t *testing.T) {
	p := &memoryPersister{}
	s := newTestService(t, p, history.NewMemoryLog())
	ctx := context.Background()
	require.NoError(t, s.AddAttribute(ctx, "phone", fact.Many))
	_, err := s.AddFact(ctx, "e1", "phone", "555-1")
	require.NoError(t, err)

	require.NoError(t, s.DeleteAttribute(ctx, "phone"))

	assert.Empty(t, s.Schema())
	assert.Empty(t, s.CurrentFacts())
	require.Len(t, p.facts, 1)
	assert.False(t, p.facts[0].Live)
}

func TestService_FactLog(t *testing.T) {
	s := newTestService(t, &memoryPersister{}, history.NewMemoryLog())
	ctx := context.Background()
	require.NoError(t, s.AddAttribute(ctx, "name", fact.One))
	_, err := s.AddFact(ctx, "e1", "name", "Alice")
	require.NoError(t, err)
	_, err = s.AddFact(ctx, "e2", "name", "Bob")
	require.NoError(t, err)

	assert.Len(t, s.FactLog(""), 2)
	assert.Len(t, s.FactLog("e2"), 1)
}

func TestService_ConcurrentMutations(t *testing.T) {
	p := &memoryPersister{}
	s, err := Open(context.Background(), p, history.NewMemoryLog())
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, s.AddAttribute(ctx, "tag", fact.Many))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := s.AddFact(ctx, "e1", "tag", string(rune('a'+i)))
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, p.facts, 100, "last save holds every fact")
	assert.Len(t, s.CurrentFacts(), 100)
}
