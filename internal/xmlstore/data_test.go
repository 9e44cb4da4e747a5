package xmlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/factlog/internal/fact"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestDataFile_RestoreMissing(t *testing.T) {
	d := NewDataFile(filepath.Join(t.TempDir(), DataFileName))

	schema, facts, err := d.Restore(context.Background())
	require.NoError(t, err)
	assert.Empty(t, schema)
	assert.Empty(t, facts)
}

func TestDataFile_RestoreExistingDocument(t *testing.T) {
	path := DataPath(t.TempDir())
	writeFile(t, path, `<data>
  <schema>
    <attribute name="name"><cardinality>one</cardinality></attribute>
    <attribute name="phone"><cardinality>many</cardinality></attribute>
  </schema>
  <facts>
    <fact current="yes"><entity>e1</entity><attribute>name</attribute><value>Alice</value></fact>
    <fact current="no"><entity>e1</entity><attribute>phone</attribute><value>555-1</value></fact>
  </facts>
</data>`)

	schema, facts, err := NewDataFile(path).Restore(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []fact.Attribute{
		{Name: "name", Cardinality: fact.One},
		{Name: "phone", Cardinality: fact.Many},
	}, schema)
	assert.Equal(t, []fact.Fact{
		{Entity: "e1", Attribute: "name", Value: "Alice", Live: true},
		{Entity: "e1", Attribute: "phone", Value: "555-1", Live: false},
	}, facts)
}

func TestDataFile_RestoreMalformed(t *testing.T) {
	path := DataPath(t.TempDir())
	writeFile(t, path, "<data><schema>")

	_, _, err := NewDataFile(path).Restore(context.Background())
	require.Error(t, err)
	assert.True(t, fact.IsPersistenceUnavailable(err))
}

func TestDataFile_RestoreBadCardinality(t *testing.T) {
	path := DataPath(t.TempDir())
	writeFile(t, path, `<data><schema><attribute name="x"><cardinality>few</cardinality></attribute></schema><facts/></data>`)

	_, _, err := NewDataFile(path).Restore(context.Background())
	require.Error(t, err)
	assert.True(t, fact.IsPersistenceUnavailable(err))
	assert.Contains(t, err.Error(), "INVALID_CARDINALITY")
}

func TestDataFile_SaveLayout(t *testing.T) {
	path := DataPath(t.TempDir())
	d := NewDataFile(path)

	err := d.Save(context.Background(),
		[]fact.Attribute{{Name: "name", Cardinality: fact.One}},
		[]fact.Fact{{Entity: "e1", Attribute: "name", Value: "Alice", Live: true, Seq: 1}},
	)
	require.NoError(t, err)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	want := `<?xml version="1.0" encoding="UTF-8"?>
<data>
  <schema>
    <attribute name="name">
      <cardinality>one</cardinality>
    </attribute>
  </schema>
  <facts>
    <fact current="yes">
      <entity>e1</entity>
      <attribute>name</attribute>
      <value>Alice</value>
    </fact>
  </facts>
</data>
`
	assert.Equal(t, want, string(got))
}

func TestDataFile_SaveRestoreRoundTrip(t *testing.T) {
	d := NewDataFile(filepath.Join(t.TempDir(), "nested", DataFileName))
	ctx := context.Background()
	schema := []fact.Attribute{{Name: "name", Cardinality: fact.One}, {Name: "note", Cardinality: fact.Many}}
	facts := []fact.Fact{
		{Entity: "e1", Attribute: "name", Value: "A & B <co>", Live: true, Seq: 1},
		{Entity: "e1", Attribute: "note", Value: "", Live: true, Seq: 2},
		{Entity: "e1", Attribute: "note", Value: "", Live: false, Seq: 3},
	}

	require.NoError(t, d.Save(ctx, schema, facts))
	gotSchema, gotFacts, err := d.Restore(ctx)
	require.NoError(t, err)

	assert.Equal(t, schema, gotSchema)
	require.Len(t, gotFacts, 3)
	for i := range facts {
		want := facts[i]
		want.Seq = 0
		assert.Equal(t, want, gotFacts[i])
	}
}

func TestDataFile_SaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	d := NewDataFile(DataPath(dir))

	require.NoError(t, d.Save(context.Background(), nil, nil))
	require.NoError(t, d.Save(context.Background(), nil, nil))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, DataFileName, entries[0].Name())
}

func TestDataFile_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewDataFile(DataPath(t.TempDir())).Save(ctx, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataFile_SaveRejectsUnstorableText(t *testing.T) {
	schema := []fact.Attribute{{Name: "name", Cardinality: fact.One}}
	tests := []struct {
		name   string
		schema []fact.Attribute
		fact   fact.Fact
	}{
		{"control character in value", schema, fact.Fact{Entity: "e1", Attribute: "name", Value: "a\x01b", Live: true}},
		{"invalid utf-8 in value", schema, fact.Fact{Entity: "e1", Attribute: "name", Value: "bad\xffutf8", Live: true}},
		{"control character in entity", schema, fact.Fact{Entity: "e\x00", Attribute: "name", Value: "Alice", Live: true}},
		{"non-character in value", schema, fact.Fact{Entity: "e1", Attribute: "name", Value: "x\uFFFEy", Live: true}},
		{"control character in attribute name", []fact.Attribute{{Name: "na\x02me", Cardinality: fact.One}}, fact.Fact{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := DataPath(t.TempDir())
			d := NewDataFile(path)
			ctx := context.Background()
			good := []fact.Fact{{Entity: "e1", Attribute: "name", Value: "Alice", Live: true}}
			require.NoError(t, d.Save(ctx, schema, good))
			before, err := os.ReadFile(path)
			require.NoError(t, err)

			facts := good
			if tt.fact.Entity != "" {
				facts = append(append([]fact.Fact{}, good...), tt.fact)
			}
			err = d.Save(ctx, tt.schema, facts)
			require.Error(t, err)
			assert.Equal(t, fact.ErrCodeInvalidArgument, fact.CodeOf(err))

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, string(before), string(after), "rejected save must leave the document untouched")
		})
	}
}

func TestDataFile_SaveKeepsWhitespaceControls(t *testing.T) {
	d := NewDataFile(DataPath(t.TempDir()))
	ctx := context.Background()
	schema := []fact.Attribute{{Name: "note", Cardinality: fact.Many}}
	facts := []fact.Fact{
		{Entity: "e1", Attribute: "note", Value: "a\tb", Live: true},
		{Entity: "e1", Attribute: "note", Value: "a\r\nb", Live: true},
		{Entity: "e1", Attribute: "note", Value: "日本語 ✓", Live: true},
	}

	require.NoError(t, d.Save(ctx, schema, facts))
	_, got, err := d.Restore(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range facts {
		assert.Equal(t, facts[i].Value, got[i].Value)
	}
}
