// Package harness provides conformance testing for the fact store.
//
// A scenario declares a schema, a sequence of schema and fact operations and
// assertions on the resulting state. The harness executes the steps through
// the same service layer the CLI uses, backed by an isolated in-memory SQLite
// database, and records a trace of every step.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	schema_dir: ../schema        # optional CUE declarations
//	schema:                      # optional inline attributes
//	  - name: phone
//	    cardinality: many
//	steps:
//	  - op: add_fact
//	    entity: e1
//	    attribute: phone
//	    value: "555-1"
//	  - op: update_attribute
//	    attribute: nickname
//	    cardinality: one
//	    expect_error: NOT_FOUND
//	assertions:
//	  - type: current_facts
//	    facts:
//	      - { entity: e1, attribute: phone, value: "555-1" }
//	  - type: history
//	    entity: e1
//	    actions: [insertion]
//
// # Step Operations
//
//   - add_attribute, update_attribute: attribute and cardinality
//   - delete_attribute: attribute
//   - add_fact, delete_fact: entity, attribute and value
//
// # Assertion Types
//
//   - current_facts: the current triples equal the list, in order
//   - current_contains: a triple is current
//   - current_absent: a triple is not current
//   - log_count: the raw log (optionally for one entity) has N rows
//   - history: the change actions recorded for an entity, in order
//
// # Deterministic Testing
//
// Change records are stamped by testutil.StepClock and identified by
// testutil.SequentialIDs, so identical scenarios produce identical traces
// and the trace can be compared against a golden snapshot.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/contacts.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, msg := range result.Errors {
//	    log.Println(msg)
//	}
package harness
