package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_Contacts(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/contacts.yaml")
	require.NoError(t, err)

	assert.Equal(t, "contacts", s.Name)
	require.Len(t, s.Schema, 2)
	assert.Equal(t, AttributeDecl{Name: "phone", Cardinality: "many"}, s.Schema[1])
	require.Len(t, s.Steps, 4)
	assert.Equal(t, Step{Op: OpDeleteFact, Entity: "e1", Attribute: "phone", Value: "555-1"}, s.Steps[3])
	require.Len(t, s.Assertions, 4)
	assert.Equal(t, AssertCurrentFacts, s.Assertions[0].Type)
	assert.Len(t, s.Assertions[0].Facts, 2)
}

func TestLoadScenario_ResolvesSchemaDir(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/schema_errors.yaml")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "schema"), s.SchemaDir)
	assert.Equal(t, "ALREADY_EXISTS", s.Steps[0].ExpectError)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_UnknownField(t *testing.T) {
	path := writeScenario(t, t.TempDir(), `
name: typo
description: "misspelled key"
steps:
  - op: add_fact
    entity: e1
    attribute: name
assertion:
  - type: log_count
`)
	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestLoadScenario_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nsteps: [{op: delete_attribute, attribute: a}]\nassertions: [{type: log_count}]\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nsteps: [{op: delete_attribute, attribute: a}]\nassertions: [{type: log_count}]\n",
			wantErr: "description is required",
		},
		{
			name:    "no steps",
			content: "name: n\ndescription: d\nassertions: [{type: log_count}]\n",
			wantErr: "steps list is required",
		},
		{
			name:    "no assertions",
			content: "name: n\ndescription: d\nsteps: [{op: delete_attribute, attribute: a}]\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "unknown op",
			content: "name: n\ndescription: d\nsteps: [{op: upsert_fact}]\nassertions: [{type: log_count}]\n",
			wantErr: `unknown op "upsert_fact"`,
		},
		{
			name:    "fact step without entity",
			content: "name: n\ndescription: d\nsteps: [{op: add_fact, attribute: a}]\nassertions: [{type: log_count}]\n",
			wantErr: "requires entity and attribute",
		},
		{
			name:    "attribute step without cardinality",
			content: "name: n\ndescription: d\nsteps: [{op: add_attribute, attribute: a}]\nassertions: [{type: log_count}]\n",
			wantErr: "requires cardinality",
		},
		{
			name:    "bad inline cardinality",
			content: "name: n\ndescription: d\nschema: [{name: a, cardinality: some}]\nsteps: [{op: delete_attribute, attribute: a}]\nassertions: [{type: log_count}]\n",
			wantErr: "schema[0]",
		},
		{
			name:    "unknown assertion",
			content: "name: n\ndescription: d\nsteps: [{op: delete_attribute, attribute: a}]\nassertions: [{type: trace_order}]\n",
			wantErr: `unknown type "trace_order"`,
		},
		{
			name:    "contains without fact",
			content: "name: n\ndescription: d\nsteps: [{op: delete_attribute, attribute: a}]\nassertions: [{type: current_contains}]\n",
			wantErr: "requires fact",
		},
		{
			name:    "history without entity",
			content: "name: n\ndescription: d\nsteps: [{op: delete_attribute, attribute: a}]\nassertions: [{type: history}]\n",
			wantErr: "history requires entity",
		},
		{
			name:    "missing schema dir",
			content: "name: n\ndescription: d\nschema_dir: nowhere\nsteps: [{op: delete_attribute, attribute: a}]\nassertions: [{type: log_count}]\n",
			wantErr: "schema_dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeScenario(t, t.TempDir(), tt.content)
			_, err := LoadScenario(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
