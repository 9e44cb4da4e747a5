package history

import (
	"time"

	"github.com/google/uuid"
)

// IDGenerator produces change record identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 record IDs.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Recorder builds ChangeRecords stamped with an ID and the current time.
// Timestamps are truncated to whole seconds, the precision of the textual form.
type Recorder struct {
	ids IDGenerator
	now func() time.Time
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithIDGenerator sets the ID source. Default: UUIDv7Generator.
func WithIDGenerator(gen IDGenerator) RecorderOption {
	return func(r *Recorder) {
		if gen != nil {
			r.ids = gen
		}
	}
}

// WithNow sets the wall-clock source. Default: time.Now.
func WithNow(now func() time.Time) RecorderOption {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRecorder creates a Recorder.
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{
		ids: UUIDv7Generator{},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Insertion builds a record for an asserted fact.
func (r *Recorder) Insertion(entity, attribute, value string) ChangeRecord {
	return r.record(ActionInsertion, entity, attribute, value)
}

// Deletion builds a record for a tombstoned fact.
func (r *Recorder) Deletion(entity, attribute, value string) ChangeRecord {
	return r.record(ActionDeletion, entity, attribute, value)
}

func (r *Recorder) record(action Action, entity, attribute, value string) ChangeRecord {
	return ChangeRecord{
		ID:        r.ids.Generate(),
		Action:    action,
		Entity:    entity,
		Attribute: attribute,
		Value:     value,
		Timestamp: r.now().Truncate(time.Second),
	}
}
