package harness

import "github.com/roach88/tasktree/internal/model"

// OutcomeOK is the outcome of a step that returned no error.
const OutcomeOK = "ok"

// TraceEvent records one executed step.
type TraceEvent struct {
	Seq     int            `json:"seq"`
	Op      string         `json:"op"`
	Args    map[string]any `json:"args,omitempty"`
	Outcome string         `json:"outcome"` // OutcomeOK or an error code
	Message string         `json:"message,omitempty"`
	Result  any            `json:"result,omitempty"`
}

// ListState is a list and its items in depth-first order after a run.
type ListState struct {
	List  model.TodoList   `json:"list"`
	Items []model.TodoItem `json:"items"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace holds setup and flow steps in execution order.
	Trace []TraceEvent `json:"trace"`

	// Errors describes every failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// History is the complete audit log after the run, oldest first.
	History []model.HistoryEntry `json:"history"`

	// Lists is the final state of every list, ordered by key.
	Lists []ListState `json:"lists"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Errors:  []string{},
		History: []model.HistoryEntry{},
		Lists:   []ListState{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace and returns it.
func (r *Result) AddTrace(op string, args map[string]any, outcome, message string, result any) TraceEvent {
	ev := TraceEvent{
		Seq:     len(r.Trace) + 1,
		Op:      op,
		Args:    args,
		Outcome: outcome,
		Message: message,
		Result:  result,
	}
	r.Trace = append(r.Trace, ev)
	return ev
}
