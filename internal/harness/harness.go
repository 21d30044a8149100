package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/prodreg/internal/ir"
	"github.com/roach88/prodreg/internal/registry"
	"github.com/roach88/prodreg/internal/store"
	"github.com/roach88/prodreg/internal/testutil"
)

// Harness executes scenario steps against a live registry.
type Harness struct {
	registry *registry.Registry
	logger   *slog.Logger

	// lastSeq is the last notification already copied into the trace.
	lastSeq int64
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store with a deterministic
// clock, so identical scenarios produce identical traces. A returned error
// means the scenario could not be executed; failed expectations are
// reported in Result.Errors instead.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(store.MemoryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := registry.New(st,
		registry.WithClock(testutil.NewDeterministicClock()),
		registry.WithIDGenerator(testutil.NewSequentialIDGenerator("step")),
		registry.WithLogger(logger),
	)
	defer reg.Close()

	h := &Harness{registry: reg, logger: logger}
	ctx := context.Background()

	result := NewResult()
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, fmt.Errorf("failed to execute flow: %w", err)
	}

	actx := &AssertionContext{Registry: reg, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// executeFlow runs all flow steps and validates expect clauses.
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		result.AddInvocationTrace(step.Invoke, step.Args)

		outputCase, out, err := h.invoke(ctx, step)
		if err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}
		result.AddCompletionTrace(outputCase, out)

		if err := h.drainNotifications(ctx, result); err != nil {
			return fmt.Errorf("flow step %d (%s): %w", i, step.Invoke, err)
		}

		expected := CaseSuccess
		if step.Expect != nil {
			expected = step.Expect.Case
		}
		if outputCase != expected {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected case %s, got %s", i, step.Invoke, expected, outputCase))
			continue
		}
		if step.Expect != nil && len(step.Expect.Result) > 0 && !matchArgs(out, step.Expect.Result) {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected result %v, got %v", i, step.Invoke, step.Expect.Result, out))
		}

		h.logger.Info("flow step completed", "step", i, "action", step.Invoke, "output_case", outputCase)
	}
	return nil
}

// invoke performs one registry call. Domain errors become the output case;
// any other error aborts the scenario.
func (h *Harness) invoke(ctx context.Context, step FlowStep) (string, map[string]any, error) {
	a := stepArgs(step.Args)
	var (
		out map[string]any
		err error
	)

	switch step.Invoke {
	case ActionRegisterProduct:
		id, quantity, hash, caller := a.productID("id"), a.number("quantity"), a.hash("hash"), a.identity("caller")
		if a.err != nil {
			return "", nil, a.err
		}
		var reg ir.ProductRegistered
		reg, err = h.registry.RegisterProduct(ctx, id, quantity, hash, caller)
		if err == nil {
			out = recordResult(ir.ProductRecord(reg))
		}

	case ActionRegisterEvent:
		id, typ, data, caller := a.productID("id"), a.text("event_type"), a.text("event_data"), a.identity("caller")
		if a.err != nil {
			return "", nil, a.err
		}
		var ev ir.ProductEventNotice
		ev, err = h.registry.RegisterEvent(ctx, id, typ, data, caller)
		if err == nil {
			out = map[string]any{
				"product_id": int64(ev.ProductID),
				"seq":        ev.Seq,
				"event_type": ev.EventType,
				"event_data": ev.EventData,
				"timestamp":  formatTime(ev.Timestamp),
			}
		}

	case ActionGetProduct:
		id := a.productID("id")
		if a.err != nil {
			return "", nil, a.err
		}
		var rec ir.ProductRecord
		rec, err = h.registry.GetProduct(ctx, id)
		if err == nil {
			out = recordResult(rec)
		}

	case ActionExists:
		id := a.productID("id")
		if a.err != nil {
			return "", nil, a.err
		}
		var ok bool
		ok, err = h.registry.Exists(ctx, id)
		if err == nil {
			out = map[string]any{"exists": ok}
		}

	case ActionHistory:
		id := a.productID("id")
		if a.err != nil {
			return "", nil, a.err
		}
		var events []ir.ProductEvent
		events, err = h.registry.ListEvents(ctx, id)
		if err == nil {
			list := make([]any, len(events))
			for i, ev := range events {
				list[i] = map[string]any{
					"seq":        ev.Seq,
					"event_type": ev.EventType,
					"event_data": ev.EventData,
					"timestamp":  formatTime(ev.Timestamp),
				}
			}
			out = map[string]any{"events": list}
		}

	default:
		return "", nil, fmt.Errorf("unknown action %q", step.Invoke)
	}

	if err != nil {
		code := ir.CodeOf(err)
		if code == "" {
			return "", nil, err
		}
		return string(code), nil, nil
	}
	return CaseSuccess, out, nil
}

// drainNotifications copies notifications committed since the last step
// into the trace.
func (h *Harness) drainNotifications(ctx context.Context, result *Result) error {
	for n, err := range h.registry.Notifications(ctx, h.lastSeq) {
		if err != nil {
			return err
		}
		result.AddNotificationTrace(string(n.Kind), n.Seq, uint64(n.ProductID))
		h.lastSeq = n.Seq
	}
	return nil
}

func recordResult(rec ir.ProductRecord) map[string]any {
	out := map[string]any{
		"id":       int64(rec.ID),
		"quantity": int64(rec.Quantity),
		"hash":     rec.Hash.String(),
		"owner":    string(rec.Owner),
	}
	if text, err := ir.DecodeBytes32String(rec.Hash); err == nil {
		out["hash_text"] = text
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// argReader reads typed values out of YAML-decoded args, keeping the first
// error.
type argReader struct {
	args map[string]any
	err  error
}

func stepArgs(args map[string]any) *argReader {
	return &argReader{args: args}
}

func (a *argReader) fail(format string, args ...any) {
	if a.err == nil {
		a.err = fmt.Errorf(format, args...)
	}
}

func (a *argReader) number(key string) uint64 {
	v, ok := a.args[key]
	if !ok {
		a.fail("missing arg %q", key)
		return 0
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n)
		}
	case int64:
		if n >= 0 {
			return uint64(n)
		}
	case uint64:
		return n
	}
	a.fail("arg %q must be a non-negative integer, got %v", key, v)
	return 0
}

func (a *argReader) productID(key string) ir.ProductID {
	return ir.ProductID(a.number(key))
}

func (a *argReader) text(key string) string {
	v, ok := a.args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		a.fail("arg %q must be a string, got %T", key, v)
	}
	return s
}

func (a *argReader) identity(key string) ir.Identity {
	return ir.Identity(a.text(key))
}

// hash accepts 0x-prefixed hex or text of up to 31 bytes. A missing hash
// is the zero hash.
func (a *argReader) hash(key string) ir.Hash {
	s := a.text(key)
	if s == "" {
		return ir.Hash{}
	}
	var (
		h   ir.Hash
		err error
	)
	if strings.HasPrefix(s, "0x") && len(s) == 66 {
		h, err = ir.ParseHash(s)
	} else {
		h, err = ir.EncodeBytes32String(s)
	}
	if err != nil {
		a.fail("arg %q: %v", key, err)
	}
	return h
}
