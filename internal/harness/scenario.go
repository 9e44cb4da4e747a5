package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/factlog/internal/fact"
)

// Scenario defines a conformance test scenario.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// SchemaDir is a directory of CUE attribute declarations applied before
	// the steps. Relative paths are resolved against the scenario file.
	SchemaDir string `yaml:"schema_dir,omitempty"`

	// Schema lists attributes added after SchemaDir and before the steps.
	Schema []AttributeDecl `yaml:"schema,omitempty"`

	// Steps are executed in order and traced.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// AttributeDecl is an inline schema entry.
type AttributeDecl struct {
	Name        string `yaml:"name"`
	Cardinality string `yaml:"cardinality"`
}

// Step is one operation against the service.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	Entity      string `yaml:"entity,omitempty"`
	Attribute   string `yaml:"attribute,omitempty"`
	Value       string `yaml:"value,omitempty"`
	Cardinality string `yaml:"cardinality,omitempty"`

	// ExpectError is the error code the step must fail with, e.g. NOT_FOUND.
	// Empty means the step must succeed.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// Step operations.
const (
	OpAddAttribute    = "add_attribute"
	OpUpdateAttribute = "update_attribute"
	OpDeleteAttribute = "delete_attribute"
	OpAddFact         = "add_fact"
	OpDeleteFact      = "delete_fact"
)

// TripleDecl is a fact triple in assertion form.
type TripleDecl struct {
	Entity    string `yaml:"entity"`
	Attribute string `yaml:"attribute"`
	Value     string `yaml:"value"`
}

// Triple converts the declaration to the model type.
func (d TripleDecl) Triple() fact.Triple {
	return fact.Triple{Entity: d.Entity, Attribute: d.Attribute, Value: d.Value}
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Facts is the exact current view (current_facts).
	Facts []TripleDecl `yaml:"facts,omitempty"`

	// Fact is the triple looked up by current_contains and current_absent.
	Fact *TripleDecl `yaml:"fact,omitempty"`

	// Entity scopes log_count and selects the history for history.
	Entity string `yaml:"entity,omitempty"`

	// Count is the expected raw log length (log_count).
	Count int `yaml:"count,omitempty"`

	// Actions are the expected change actions, oldest first (history).
	Actions []string `yaml:"actions,omitempty"`
}

// Assertion type constants.
const (
	AssertCurrentFacts    = "current_facts"
	AssertCurrentContains = "current_contains"
	AssertCurrentAbsent   = "current_absent"
	AssertLogCount        = "log_count"
	AssertHistory         = "history"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative schema_dir is resolved against the scenario file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.SchemaDir != "" && !filepath.IsAbs(scenario.SchemaDir) {
		scenario.SchemaDir = filepath.Join(filepath.Dir(path), scenario.SchemaDir)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.SchemaDir != "" {
		info, err := os.Stat(s.SchemaDir)
		if err != nil {
			return fmt.Errorf("schema_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("schema_dir is not a directory: %s", s.SchemaDir)
		}
	}

	for i, attr := range s.Schema {
		if attr.Name == "" {
			return fmt.Errorf("schema[%d]: name is required", i)
		}
		if _, err := fact.ParseCardinality(attr.Cardinality); err != nil {
			return fmt.Errorf("schema[%d]: %w", i, err)
		}
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateStep checks the fields an operation needs. Cardinality values are
// not checked here so a scenario can expect INVALID_CARDINALITY.
func validateStep(index int, step *Step) error {
	switch step.Op {
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	case OpAddAttribute, OpUpdateAttribute:
		if step.Cardinality == "" {
			return fmt.Errorf("steps[%d]: %s requires cardinality", index, step.Op)
		}
	case OpDeleteAttribute:
		// A blank attribute is left to the store so scenarios can assert on it.
	case OpAddFact, OpDeleteFact:
		if step.Entity == "" || step.Attribute == "" {
			return fmt.Errorf("steps[%d]: %s requires entity and attribute", index, step.Op)
		}
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertCurrentFacts:
		// An empty list asserts an empty view.
	case AssertCurrentContains, AssertCurrentAbsent:
		if a.Fact == nil {
			return fmt.Errorf("assertions[%d]: %s requires fact", index, a.Type)
		}
	case AssertLogCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertHistory:
		if a.Entity == "" {
			return fmt.Errorf("assertions[%d]: history requires entity", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
	return nil
}
