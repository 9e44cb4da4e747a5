package xmlstore

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
	"github.com/roach88/factlog/internal/history/historytest"
)

func TestHistoryFile_Contract(t *testing.T) {
	historytest.RunLogContract(t, func(t *testing.T) history.Log {
		return NewHistoryFile(HistoryPath(t.TempDir()))
	}, true)
}

func TestHistoryFile_ReadsLegacyDocument(t *testing.T) {
	path := HistoryPath(t.TempDir())
	writeFile(t, path, `<modifications>
  <modification action="insertion">
    <entity>e1</entity><attribute>name</attribute><value>Alice</value>
    <date_time>24/03/05 14:07:09</date_time>
  </modification>
  <modification action="deletion">
    <entity>e2</entity><attribute>name</attribute><value>Bob</value>
    <date_time>24/03/05 14:08:00</date_time>
  </modification>
</modifications>`)

	got, err := NewHistoryFile(path).Retrieve(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].ID)
	assert.Equal(t, history.ActionInsertion, got[0].Action)
	assert.Equal(t, "Alice", got[0].Value)
	assert.Equal(t, "24/03/05 14:07:09", history.FormatTimestamp(got[0].Timestamp))
}

func TestHistoryFile_SkipsBadEntries(t *testing.T) {
	path := HistoryPath(t.TempDir())
	writeFile(t, path, `<modifications>
  <modification action="rename"><entity>e1</entity><attribute>a</attribute><value>v</value><date_time>24/03/05 14:07:09</date_time></modification>
  <modification action="insertion"><entity>e1</entity><attribute>a</attribute><value>v</value><date_time>yesterday</date_time></modification>
  <modification action="insertion"><entity>e1</entity><attribute>a</attribute><value>w</value><date_time>24/03/05 14:07:09</date_time></modification>
</modifications>`)

	got, err := NewHistoryFile(path).Retrieve(context.Background(), "e1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "w", got[0].Value)
}

func TestHistoryFile_MalformedDocument(t *testing.T) {
	path := HistoryPath(t.TempDir())
	const broken = "<modifications><modification>"
	writeFile(t, path, broken)
	h := NewHistoryFile(path)
	ctx := context.Background()

	got, err := h.Retrieve(ctx, "e1")
	require.NoError(t, err, "unreadable history is recoverable absence")
	assert.Empty(t, got)

	err = h.Register(ctx, historytest.Records()[0])
	require.Error(t, err)
	assert.True(t, fact.IsPersistenceUnavailable(err))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, broken, string(content), "malformed document must not be overwritten")
}

func TestHistoryFile_RegisterRejectsUnstorableText(t *testing.T) {
	path := HistoryPath(t.TempDir())
	h := NewHistoryFile(path)
	ctx := context.Background()
	recorder := history.NewRecorder()

	require.NoError(t, h.Register(ctx, recorder.Insertion("e1", "name", "Alice")))

	for _, rec := range []history.ChangeRecord{
		recorder.Insertion("e1", "name", "a\x01b"),
		recorder.Deletion("e1", "name", "bad\xffutf8"),
		recorder.Insertion("e\x1f", "name", "Alice"),
	} {
		err := h.Register(ctx, rec)
		require.Error(t, err)
		assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(err))
	}

	recs, err := h.RetrieveAll(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Alice", recs[0].Value)
}
