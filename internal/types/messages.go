package types

import "context"

type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventCaseStarted   EventType = "case_started"
	EventCaseSucceeded EventType = "case_succeeded"
	EventCaseFailed    EventType = "case_failed"
	EventRunFinished   EventType = "run_finished"
)

// Event is emitted by the batch driver at every state transition.
type Event struct {
	Type    EventType
	RunID   string
	Case    int // 1-based case index, 0 for run-level events
	Total   int
	Seed    string
	Result  *CaseResult
	Summary *BatchRunSummary
	Err     error // set on a failed run_finished

	TraceContext string // exported run span, set on run_started
}

// Observer receives driver events. Implementations must not block for long;
// the driver calls them inline between cases.
type Observer interface {
	Notify(ctx context.Context, event Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, event Event)

func (f ObserverFunc) Notify(ctx context.Context, event Event) { f(ctx, event) }

// TestCaseMessage is published once per materialized case.
type TestCaseMessage struct {
	RunID     string `json:"run_id"`
	CaseIndex int    `json:"case_index"`
	Seed      string `json:"seed"`
	Path      string `json:"path"`
	Attempts  int    `json:"attempts"`
}

// BatchRunMessage is published when a run finishes.
type BatchRunMessage struct {
	RunID           string `json:"run_id"`
	OutputDir       string `json:"output_dir"`
	Total           int    `json:"total"`
	SuccessfulCases int    `json:"successful_cases"`
	FailedCases     int    `json:"failed_cases"`
	Error           string `json:"error,omitempty"`
}
