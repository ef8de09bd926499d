package core

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Step is one event of a reported execution.
type Step struct {
	// Event is the explorer-local id of the event.
	Event int `json:"event"`

	// Transition is the id of the transition the event fires.
	Transition string `json:"transition"`

	// Causes lists the ids of the events this one directly depends on.
	Causes []int `json:"causes,omitempty"`
}

// Trace is an execution of the program in an order that respects causality.
type Trace struct {
	RunID   string `json:"run_id"`
	Program string `json:"program"`
	Steps   []Step `json:"steps"`
}

// Len returns the number of steps.
func (t Trace) Len() int {
	return len(t.Steps)
}

// TransitionIDs returns the transition of every step in order.
func (t Trace) TransitionIDs() []string {
	ids := make([]string, len(t.Steps))
	for i, s := range t.Steps {
		ids[i] = s.Transition
	}
	return ids
}

// String renders the trace as "a -> b -> c".
func (t Trace) String() string {
	return strings.Join(t.TransitionIDs(), " -> ")
}

// Reporter receives the findings of a run as they are produced.
type Reporter interface {
	// ReportMaximal is called once per explored maximal configuration.
	ReportMaximal(ctx context.Context, trace Trace) error

	// ReportDefect is called for every defect with the trace leading to it.
	ReportDefect(ctx context.Context, trace Trace, cause error) error
}

// ReportKind distinguishes stored reports.
type ReportKind string

const (
	ReportMaximal ReportKind = "maximal"
	ReportDefect  ReportKind = "defect"
)

// Report is the persisted form of one finding.
type Report struct {
	ID        string     `json:"id"`
	RunID     string     `json:"run_id"`
	Kind      ReportKind `json:"kind"`
	Trace     Trace      `json:"trace"`
	Cause     string     `json:"cause,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewReport creates a report with a fresh id.
func NewReport(kind ReportKind, trace Trace, cause error) Report {
	r := Report{
		ID:        uuid.NewString(),
		RunID:     trace.RunID,
		Kind:      kind,
		Trace:     trace,
		Timestamp: time.Now(),
	}
	if cause != nil {
		r.Cause = cause.Error()
	}
	return r
}

// ReportStore persists reports grouped by run.
type ReportStore interface {
	// Save stores a report, replacing any report with the same id in the run.
	Save(r Report) error

	// Get returns a report or ErrNotFound.
	Get(runID, reportID string) (Report, error)

	// List returns the reports of a run ordered by timestamp.
	List(runID string) ([]Report, error)

	// Delete removes a report. Deleting an unknown report is not an error.
	Delete(runID, reportID string) error
}

// Defect is a bug found in the program under test.
type Defect struct {
	Trace Trace `json:"trace"`
	Cause error `json:"-"`
}

// MarshalJSON renders the cause as its message.
func (d Defect) MarshalJSON() ([]byte, error) {
	out := struct {
		Trace Trace  `json:"trace"`
		Cause string `json:"cause,omitempty"`
	}{Trace: d.Trace}
	if d.Cause != nil {
		out.Cause = d.Cause.Error()
	}
	return json.Marshal(out)
}

// Result summarises a verification run.
type Result struct {
	RunID                 string        `json:"run_id"`
	Program               string        `json:"program"`
	MaximalConfigurations int           `json:"maximal_configurations"`
	Defects               []Defect      `json:"defects,omitempty"`
	EventsCreated         int           `json:"events_created"`
	EventsRetired         int           `json:"events_retired"`
	Steps                 int           `json:"steps"`
	Incomplete            bool          `json:"incomplete"`
	IncompleteReason      string        `json:"incomplete_reason,omitempty"`
	Duration              time.Duration `json:"duration"`
}

// HasDefects reports whether the run found any defect.
func (r *Result) HasDefects() bool {
	return len(r.Defects) > 0
}

// Checker verifies programs.
type Checker interface {
	Check(ctx context.Context, p Program) (*Result, error)
}
