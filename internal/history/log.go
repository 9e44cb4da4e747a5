package history

import (
	"context"
	"sync"
)

// Log is a durable, append-only change log.
//
// Register appends a record; it does not validate the record against any
// fact store. Retrieve returns the records for one entity, oldest first.
// A missing or unreadable backing store is treated as an empty log by the
// read methods.
type Log interface {
	Register(ctx context.Context, rec ChangeRecord) error
	Retrieve(ctx context.Context, entity string) ([]ChangeRecord, error)
	RetrieveAll(ctx context.Context) ([]ChangeRecord, error)
}

// MemoryLog is an in-process Log. Safe for concurrent use.
type MemoryLog struct {
	mu      sync.RWMutex
	records []ChangeRecord
}

// NewMemoryLog creates an empty MemoryLog.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Register appends rec.
func (m *MemoryLog) Register(ctx context.Context, rec ChangeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Retrieve returns the records whose entity equals entity exactly.
func (m *MemoryLog) Retrieve(ctx context.Context, entity string) ([]ChangeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []ChangeRecord{}
	for _, rec := range m.records {
		if rec.Entity == entity {
			out = append(out, rec)
		}
	}
	return out, nil
}

// RetrieveAll returns every record in append order.
func (m *MemoryLog) RetrieveAll(ctx context.Context) ([]ChangeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ChangeRecord, len(m.records))
	copy(out, m.records)
	return out, nil
}
