package history

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/factlog/internal/fact"
)

// Action is the kind of fact mutation a ChangeRecord describes.
type Action string

const (
	// ActionInsertion records a fact assertion.
	ActionInsertion Action = "insertion"

	// ActionDeletion records a fact tombstone.
	ActionDeletion Action = "deletion"
)

// ParseAction converts the persisted action name into an Action.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionInsertion:
		return ActionInsertion, nil
	case ActionDeletion:
		return ActionDeletion, nil
	default:
		return "", fact.NewInvalidArgumentError(fmt.Sprintf("unknown change action %q", s))
	}
}

// TimestampLayout is the textual timestamp form, YY/MM/DD HH:MM:SS.
const TimestampLayout = "06/01/02 15:04:05"

// FormatTimestamp renders t in TimestampLayout in t's own location.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// ParseTimestamp parses a TimestampLayout string as local time.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// ChangeRecord is one entry of the change log.
//
// ID is empty for records restored from formats that do not carry one.
type ChangeRecord struct {
	ID        string    `json:"id,omitempty"`
	Action    Action    `json:"action"`
	Entity    string    `json:"entity"`
	Attribute string    `json:"attribute"`
	Value     string    `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Triple returns the fact triple the record refers to.
func (r ChangeRecord) Triple() fact.Triple {
	return fact.Triple{Entity: r.Entity, Attribute: r.Attribute, Value: r.Value}
}
