package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
	"github.com/roach88/factlog/internal/schemaspec"
	"github.com/roach88/factlog/internal/service"
	"github.com/roach88/factlog/internal/sqlitestore"
	"github.com/roach88/factlog/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios against a service with a deterministic clock and IDs.
type Harness struct {
	store  *sqlitestore.Store
	svc    *service.Service
	clock  *testutil.StepClock
	ids    *testutil.SequentialIDs
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and service
// 2. Apply schema_dir declarations, then inline schema
// 3. Execute steps, checking expected errors
// 4. Capture the final state and evaluate assertions
//
// Step and assertion failures are reported in Result.Errors. The returned
// error is reserved for scenarios that cannot be executed at all.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := sqlitestore.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewStepClock(testutil.DefaultEpoch, time.Second),
		ids:    testutil.NewSequentialIDs("change"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	recorder := history.NewRecorder(
		history.WithIDGenerator(h.ids),
		history.WithNow(h.clock.Now),
	)
	h.svc, err = service.Open(ctx, st, st,
		service.WithLogger(h.logger),
		service.WithRecorder(recorder),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}

	if err := h.applySchema(ctx, scenario); err != nil {
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("failed to execute steps: %w", err)
		}
	}

	if err := h.captureState(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to capture state: %w", err)
	}

	actx := &AssertionContext{
		Service: h.svc,
		Ctx:     ctx,
	}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// applySchema adds the declared attributes. Setup is not traced and must
// succeed.
func (h *Harness) applySchema(ctx context.Context, scenario *Scenario) error {
	if scenario.SchemaDir != "" {
		loaded, err := schemaspec.LoadDir(scenario.SchemaDir)
		if err != nil {
			return err
		}
		for _, attr := range loaded.Attributes {
			if err := h.svc.AddAttribute(ctx, attr.Name, attr.Cardinality); err != nil {
				return err
			}
		}
	}

	for i, decl := range scenario.Schema {
		card, err := fact.ParseCardinality(decl.Cardinality)
		if err != nil {
			return fmt.Errorf("schema[%d]: %w", i, err)
		}
		if err := h.svc.AddAttribute(ctx, decl.Name, card); err != nil {
			return fmt.Errorf("schema[%d]: %w", i, err)
		}
	}

	h.logger.Debug("scenario schema applied", "attributes", len(h.svc.Schema()))
	return nil
}

// executeStep runs one step, traces it and checks its expected error.
// Errors without a fact.ErrorCode abort the scenario.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	event := TraceEvent{
		Step:        index + 1,
		Op:          step.Op,
		Entity:      step.Entity,
		Attribute:   step.Attribute,
		Value:       step.Value,
		Cardinality: step.Cardinality,
	}

	var err error
	switch step.Op {
	case OpAddAttribute, OpUpdateAttribute:
		var card fact.Cardinality
		card, err = fact.ParseCardinality(step.Cardinality)
		if err != nil {
			break
		}
		if step.Op == OpAddAttribute {
			err = h.svc.AddAttribute(ctx, step.Attribute, card)
		} else {
			err = h.svc.UpdateAttribute(ctx, step.Attribute, card)
		}
	case OpDeleteAttribute:
		err = h.svc.DeleteAttribute(ctx, step.Attribute)
	case OpAddFact:
		var added fact.Fact
		added, err = h.svc.AddFact(ctx, step.Entity, step.Attribute, step.Value)
		event.Seq = added.Seq
	case OpDeleteFact:
		var tomb fact.Fact
		tomb, err = h.svc.DeleteFact(ctx, step.Entity, step.Attribute, step.Value)
		event.Seq = tomb.Seq
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, step.Op)
	}

	if err != nil {
		code := fact.CodeOf(err)
		if code == "" {
			return fmt.Errorf("steps[%d] %s: %w", index, step.Op, err)
		}
		event.Error = string(code)
		event.Seq = 0
	}
	result.AddTrace(event)

	switch {
	case step.ExpectError != "" && event.Error != step.ExpectError:
		got := event.Error
		if got == "" {
			got = "none"
		}
		result.AddError(fmt.Sprintf("steps[%d] %s: expected error %s, got %s", index, step.Op, step.ExpectError, got))
	case step.ExpectError == "" && err != nil:
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %v", index, step.Op, err))
	}

	h.logger.Debug("step executed", "step", index+1, "op", step.Op, "error", event.Error)
	return nil
}

// captureState copies the final views into result.
func (h *Harness) captureState(ctx context.Context, result *Result) error {
	result.Current = h.svc.CurrentFacts()
	result.Log = h.svc.FactLog("")

	records, err := h.store.RetrieveAll(ctx)
	if err != nil {
		return err
	}
	result.History = records
	return nil
}
