package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/ruleflow/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string           // Assertion type for categorization
	Expected string           // Human-readable expected outcome
	Actual   string           // Human-readable actual outcome
	Events   []ir.EventRecord // Full history for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nHistory:\n")
	for _, ev := range e.Events {
		fmt.Fprintf(&buf, "  [t=%d d=%d preds=%v] %v", ev.Time, ev.CausalDistance, ev.Predecessors, ev.Spaces)
		if len(ev.Rules) > 0 {
			fmt.Fprintf(&buf, " via %s", strings.Join(ev.Rules, ", "))
		}
		if ev.Inert {
			buf.WriteString(" (inert)")
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// assertFinalSpaces checks the last event's spaces, order included.
func assertFinalSpaces(result *Result, a Assertion) error {
	got := result.Snapshot.FinalSpaces()
	if len(got) == 0 && len(a.Spaces) == 0 {
		return nil
	}
	if !reflect.DeepEqual(got, a.Spaces) {
		return &AssertionError{
			Type:     AssertFinalSpaces,
			Expected: fmt.Sprintf("%q", a.Spaces),
			Actual:   fmt.Sprintf("%q", got),
			Events:   result.Snapshot.Events,
		}
	}
	return nil
}

func assertInert(result *Result, a Assertion) error {
	if result.Inert != *a.Value {
		return &AssertionError{
			Type:     AssertInert,
			Expected: fmt.Sprintf("inert=%t", *a.Value),
			Actual:   fmt.Sprintf("inert=%t after %d steps", result.Inert, result.Steps),
			Events:   result.Snapshot.Events,
		}
	}
	return nil
}

// assertEventCount counts events including the initial one.
func assertEventCount(result *Result, a Assertion) error {
	n := len(result.Snapshot.Events)
	if n != a.Count {
		return &AssertionError{
			Type:     AssertEventCount,
			Expected: fmt.Sprintf("%d events", a.Count),
			Actual:   fmt.Sprintf("%d events", n),
			Events:   result.Snapshot.Events,
		}
	}
	return nil
}

func assertCausalPredecessors(result *Result, a Assertion) error {
	ev, ok := result.Event(*a.Time)
	if !ok {
		return missingEvent(result, a)
	}
	got := ev.Predecessors
	if len(got) == 0 && len(a.Predecessors) == 0 {
		return nil
	}
	if !reflect.DeepEqual(got, a.Predecessors) {
		return &AssertionError{
			Type:     AssertCausalPredecessors,
			Expected: fmt.Sprintf("predecessors of t=%d: %v", *a.Time, a.Predecessors),
			Actual:   fmt.Sprintf("%v", got),
			Events:   result.Snapshot.Events,
		}
	}
	return nil
}

func assertCausalDistance(result *Result, a Assertion) error {
	ev, ok := result.Event(*a.Time)
	if !ok {
		return missingEvent(result, a)
	}
	if ev.CausalDistance != *a.Distance {
		return &AssertionError{
			Type:     AssertCausalDistance,
			Expected: fmt.Sprintf("causal distance of t=%d: %d", *a.Time, *a.Distance),
			Actual:   fmt.Sprintf("%d", ev.CausalDistance),
			Events:   result.Snapshot.Events,
		}
	}
	return nil
}

func missingEvent(result *Result, a Assertion) error {
	return &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("an event at t=%d", *a.Time),
		Actual:   fmt.Sprintf("last event is t=%d", len(result.Snapshot.Events)-1),
		Events:   result.Snapshot.Events,
	}
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertFinalSpaces:
			err = assertFinalSpaces(result, assertion)
		case AssertInert:
			if assertion.Value == nil {
				err = fmt.Errorf("assertion[%d]: inert requires value", i)
			} else {
				err = assertInert(result, assertion)
			}
		case AssertEventCount:
			err = assertEventCount(result, assertion)
		case AssertCausalPredecessors:
			if assertion.Time == nil {
				err = fmt.Errorf("assertion[%d]: causal_predecessors requires time", i)
			} else {
				err = assertCausalPredecessors(result, assertion)
			}
		case AssertCausalDistance:
			if assertion.Time == nil || assertion.Distance == nil {
				err = fmt.Errorf("assertion[%d]: causal_distance requires time and distance", i)
			} else {
				err = assertCausalDistance(result, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}
