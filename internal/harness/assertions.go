package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/factlog/internal/fact"
	"github.com/roach88/factlog/internal/history"
	"github.com/roach88/factlog/internal/service"
)

// AssertionContext provides what assertions need beyond the Result.
type AssertionContext struct {
	Service *service.Service
	Ctx     context.Context
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string
	Actual   string
	Current  []fact.Triple // Current view for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nCurrent facts:\n")
	for i, t := range e.Current {
		fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatTriple(t))
	}

	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertCurrentFacts:
			err = assertCurrentFacts(result, a)
		case AssertCurrentContains:
			err = assertCurrentContains(result, a, true)
		case AssertCurrentAbsent:
			err = assertCurrentContains(result, a, false)
		case AssertLogCount:
			err = assertLogCount(result, a)
		case AssertHistory:
			err = assertHistory(result, a, actx)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

// assertCurrentFacts requires the current view to equal the list, in order.
func assertCurrentFacts(result *Result, a Assertion) error {
	expected := make([]fact.Triple, len(a.Facts))
	for i, d := range a.Facts {
		expected[i] = d.Triple()
	}

	if equalTriples(expected, result.Current) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCurrentFacts,
		Expected: formatTriples(expected),
		Actual:   formatTriples(result.Current),
		Current:  result.Current,
	}
}

// assertCurrentContains checks that a.Fact is (or, with want false, is not)
// in the current view.
func assertCurrentContains(result *Result, a Assertion, want bool) error {
	target := a.Fact.Triple()
	found := false
	for _, t := range result.Current {
		if t == target {
			found = true
			break
		}
	}
	if found == want {
		return nil
	}

	if want {
		return &AssertionError{
			Type:     AssertCurrentContains,
			Expected: formatTriple(target) + " to be current",
			Actual:   "not found",
			Current:  result.Current,
		}
	}
	return &AssertionError{
		Type:     AssertCurrentAbsent,
		Expected: formatTriple(target) + " to be absent",
		Actual:   "found",
		Current:  result.Current,
	}
}

// assertLogCount counts raw log rows, tombstones included.
func assertLogCount(result *Result, a Assertion) error {
	count := 0
	for _, f := range result.Log {
		if a.Entity == "" || f.Entity == a.Entity {
			count++
		}
	}
	if count == a.Count {
		return nil
	}

	scope := "log rows"
	if a.Entity != "" {
		scope = fmt.Sprintf("log rows for %s", a.Entity)
	}
	return &AssertionError{
		Type:     AssertLogCount,
		Expected: fmt.Sprintf("%d %s", a.Count, scope),
		Actual:   fmt.Sprintf("%d %s", count, scope),
		Current:  result.Current,
	}
}

// assertHistory compares the recorded actions for an entity. The records
// are read back through the service so the entity filter is exercised.
func assertHistory(result *Result, a Assertion, actx *AssertionContext) error {
	records, err := actx.Service.History(actx.Ctx, a.Entity)
	if err != nil {
		return fmt.Errorf("history query failed: %w", err)
	}

	actual := make([]string, len(records))
	for i, rec := range records {
		actual[i] = string(rec.Action)
	}
	if equalStrings(a.Actions, actual) {
		return nil
	}
	return &AssertionError{
		Type:     AssertHistory,
		Expected: fmt.Sprintf("%s: %v", a.Entity, a.Actions),
		Actual:   fmt.Sprintf("%s: %v (%s)", a.Entity, actual, formatRecords(records)),
		Current:  result.Current,
	}
}

func equalTriples(a, b []fact.Triple) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatTriple(t fact.Triple) string {
	return fmt.Sprintf("(%s, %s, %s)", t.Entity, t.Attribute, t.Value)
}

func formatTriples(ts []fact.Triple) string {
	if len(ts) == 0 {
		return "[]"
	}
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = formatTriple(t)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func formatRecords(recs []history.ChangeRecord) string {
	parts := make([]string, len(recs))
	for i, r := range recs {
		parts[i] = fmt.Sprintf("%s %s", r.Action, formatTriple(r.Triple()))
	}
	return strings.Join(parts, "; ")
}
