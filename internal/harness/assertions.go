package harness

import (
	"context"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/registry"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			switch event.Type {
			case EventInvocation:
				fmt.Fprintf(&buf, "  [%d] %s %v\n", event.Seq, event.Action, event.Args)
			case EventCompletion:
				fmt.Fprintf(&buf, "  [%d]   -> %s\n", event.Seq, event.OutputCase)
			case EventNotification:
				fmt.Fprintf(&buf, "  [%d]   ~> %s #%d\n", event.Seq, event.Kind, event.LogSeq)
			}
		}
	}

	return buf.String()
}

// assertTraceContains checks if the trace contains an invocation matching
// the specified action and args (subset match).
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			if matchArgs(event.Args, assertion.Args) {
				return nil
			}
		}
	}

	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("action %s with args %v", assertion.Action, assertion.Args),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if actions appear in the specified order.
// Actions don't need to be consecutive (intervening actions are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	pos := 0
	for _, event := range trace {
		if pos < len(assertion.Actions) && event.Type == EventInvocation && event.Action == assertion.Actions[pos] {
			pos++
		}
	}

	if pos < len(assertion.Actions) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("actions in order: %v", assertion.Actions),
			Actual:   fmt.Sprintf("matched %d of %d, missing %s", pos, len(assertion.Actions), assertion.Actions[pos]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks if the action appears exactly the specified number of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Type == EventInvocation && event.Action == assertion.Action {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Action),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertNotifications checks the exact sequence of emitted notification
// kinds.
func assertNotifications(result *Result, assertion Assertion) error {
	got := result.Notifications()
	if !reflect.DeepEqual(got, append([]string{}, assertion.Kinds...)) {
		return &AssertionError{
			Type:     AssertNotifications,
			Expected: fmt.Sprintf("%v", assertion.Kinds),
			Actual:   fmt.Sprintf("%v", got),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFinalState reads a product through the registry and checks the
// expected fields (subset semantics). Available fields: exists, id,
// quantity, hash, hash_text, owner, event_count, event_types.
func assertFinalState(ctx context.Context, reg *registry.Registry, assertion Assertion) error {
	id := ir.ProductID(assertion.Product)
	actual, err := productState(ctx, reg, id)
	if err != nil {
		return err
	}

	for key, expectedValue := range assertion.Expect {
		actualValue, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("field %q to exist for product %s", key, id),
				Actual:   fmt.Sprintf("field %q not present in %v", key, actual),
			}
		}
		if !valuesEqual(actualValue, expectedValue) {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("product %s field %q = %v", id, key, expectedValue),
				Actual:   fmt.Sprintf("product %s field %q = %v", id, key, actualValue),
			}
		}
	}
	return nil
}

func productState(ctx context.Context, reg *registry.Registry, id ir.ProductID) (map[string]any, error) {
	ok, err := reg.Exists(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("final_state: %w", err)
	}
	if !ok {
		return map[string]any{"exists": false}, nil
	}

	rec, err := reg.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("final_state: %w", err)
	}
	events, err := reg.ListEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("final_state: %w", err)
	}

	state := recordResult(rec)
	state["exists"] = true
	state["event_count"] = int64(len(events))
	types := make([]any, len(events))
	for i, ev := range events {
		types[i] = ev.EventType
	}
	state["event_types"] = types
	return state, nil
}

// matchArgs checks if actual contains all expected keys with equal values.
// Extra keys in actual are ignored.
func matchArgs(actual, expected map[string]any) bool {
	if len(expected) == 0 {
		return true
	}
	if actual == nil {
		return false
	}
	for key, expectedVal := range expected {
		actualVal, exists := actual[key]
		if !exists || !valuesEqual(actualVal, expectedVal) {
			return false
		}
	}
	return true
}

// valuesEqual compares two values after normalizing integer widths, so a
// YAML int matches a stored int64.
func valuesEqual(actual, expected any) bool {
	return reflect.DeepEqual(normalize(actual), normalize(expected))
}

func normalize(v any) any {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case uint64:
		if val <= math.MaxInt64 {
			return int64(val)
		}
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	default:
		return v
	}
}

// AssertionContext provides registry access for final_state assertions.
type AssertionContext struct {
	Registry *registry.Registry
	Ctx      context.Context
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertNotifications:
			err = assertNotifications(result, assertion)
		case AssertFinalState:
			if actx == nil || actx.Registry == nil {
				err = fmt.Errorf("assertion[%d]: final_state requires registry context", i)
			} else {
				err = assertFinalState(actx.Ctx, actx.Registry, assertion)
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
