package harness

// Trace event types.
const (
	EventInvocation   = "invocation"
	EventCompletion   = "completion"
	EventNotification = "notification"
)

// TraceEvent is one entry in a scenario trace: a call, its outcome, or a
// notification the call emitted.
type TraceEvent struct {
	Type       string         `json:"type"`
	Seq        int64          `json:"seq"`
	Action     string         `json:"action,omitempty"`
	Args       map[string]any `json:"args,omitempty"`
	OutputCase string         `json:"output_case,omitempty"`
	Result     map[string]any `json:"result,omitempty"`
	Kind       string         `json:"kind,omitempty"`
	LogSeq     int64          `json:"log_seq,omitempty"`
	ProductID  uint64         `json:"product_id,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains invocations, completions and notifications in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) nextSeq() int64 {
	return int64(len(r.Trace) + 1)
}

// AddInvocationTrace adds an invocation to the trace.
func (r *Result) AddInvocationTrace(action string, args map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:   EventInvocation,
		Seq:    r.nextSeq(),
		Action: action,
		Args:   args,
	})
}

// AddCompletionTrace adds a completion to the trace.
func (r *Result) AddCompletionTrace(outputCase string, result map[string]any) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:       EventCompletion,
		Seq:        r.nextSeq(),
		OutputCase: outputCase,
		Result:     result,
	})
}

// AddNotificationTrace adds an emitted notification to the trace.
func (r *Result) AddNotificationTrace(kind string, logSeq int64, productID uint64) {
	r.Trace = append(r.Trace, TraceEvent{
		Type:      EventNotification,
		Seq:       r.nextSeq(),
		Kind:      kind,
		LogSeq:    logSeq,
		ProductID: productID,
	})
}

// Notifications returns the kinds of all notification events in order.
func (r *Result) Notifications() []string {
	kinds := []string{}
	for _, ev := range r.Trace {
		if ev.Type == EventNotification {
			kinds = append(kinds, ev.Kind)
		}
	}
	return kinds
}
