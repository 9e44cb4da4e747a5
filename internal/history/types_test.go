package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/fact"
)

func TestParseAction(t *testing.T) {
	tests := []struct {
		in   string
		want Action
	}{
		{"insertion", ActionInsertion},
		{"deletion", ActionDeletion},
		{" Insertion ", ActionInsertion},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAction_Unknown(t *testing.T) {
	_, err := ParseAction("update")
	require.Error(t, err)
	assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(err))
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 7, 9, 0, time.UTC)
	assert.Equal(t, "24/03/05 14:07:09", FormatTimestamp(ts))
}

func TestParseTimestamp_RoundTrip(t *testing.T) {
	parsed, err := ParseTimestamp("24/03/05 14:07:09")
	require.NoError(t, err)

	assert.Equal(t, 2024, parsed.Year())
	assert.Equal(t, time.March, parsed.Month())
	assert.Equal(t, 5, parsed.Day())
	assert.Equal(t, "24/03/05 14:07:09", FormatTimestamp(parsed))
}

func TestParseTimestamp_Invalid(t *testing.T) {
	_, err := ParseTimestamp("2024-03-05T14:07:09Z")
	assert.Error(t, err)
}

func TestChangeRecord_Triple(t *testing.T) {
	rec := ChangeRecord{Action: ActionInsertion, Entity: "e1", Attribute: "name", Value: "Alice"}
	assert.Equal(t, fact.Triple{Entity: "e1", Attribute: "name", Value: "Alice"}, rec.Triple())
}
