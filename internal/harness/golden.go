package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
)

// Snapshot is the golden form of a scenario run: its trace, the final
// current view and the change history. Timestamps are rendered in UTC so
// snapshots do not depend on the local zone.
type Snapshot struct {
	ScenarioName string
	Trace        []TraceEvent
	Current      []fact.Triple
	History      []history.ChangeRecord
}

// NewSnapshot builds the snapshot of result under name.
func NewSnapshot(name string, result *Result) Snapshot {
	return Snapshot{
		ScenarioName: name,
		Trace:        result.Trace,
		Current:      result.Current,
		History:      result.History,
	}
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON
// serialization.
func (s Snapshot) toCanonicalMap() map[string]any {
	traceList := make([]any, len(s.Trace))
	for i, event := range s.Trace {
		eventMap := map[string]any{
			"step": event.Step,
			"op":   event.Op,
		}
		if event.Entity != "" {
			eventMap["entity"] = event.Entity
		}
		if event.Attribute != "" {
			eventMap["attribute"] = event.Attribute
		}
		if event.Value != "" {
			eventMap["value"] = event.Value
		}
		if event.Cardinality != "" {
			eventMap["cardinality"] = event.Cardinality
		}
		if event.Seq != 0 {
			eventMap["seq"] = event.Seq
		}
		if event.Error != "" {
			eventMap["error"] = event.Error
		}
		traceList[i] = eventMap
	}

	historyList := make([]any, len(s.History))
	for i, rec := range s.History {
		recMap := map[string]any{
			"action":    string(rec.Action),
			"entity":    rec.Entity,
			"attribute": rec.Attribute,
			"value":     rec.Value,
			"timestamp": history.FormatTimestamp(rec.Timestamp.UTC()),
		}
		if rec.ID != "" {
			recMap["id"] = rec.ID
		}
		historyList[i] = recMap
	}

	current := make([]any, len(s.Current))
	for i, t := range s.Current {
		current[i] = t
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"trace":         traceList,
		"current":       current,
		"history":       historyList,
	}
}

// Marshal renders the snapshot as canonical JSON.
func (s Snapshot) Marshal() ([]byte, error) {
	return fact.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the given result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}

// GoldenPath returns the golden file for a scenario file outside of go test:
// <dir>/golden/<base>.golden.
func GoldenPath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// UpdateGolden writes the snapshot of result to path.
func UpdateGolden(path, scenarioName string, result *Result) error {
	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// CompareGolden reports whether the snapshot of result matches the file at
// path byte for byte.
func CompareGolden(path, scenarioName string, result *Result) (bool, error) {
	golden, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}
	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return false, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return bytes.Equal(golden, data), nil
}
