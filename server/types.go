package server

import (
	"time"

	"github.com/hupe1980/unfold/core"
)

// RunStatus is the lifecycle state of a submitted run.
type RunStatus string

const (
	StatusRunning RunStatus = "running"
	StatusDone    RunStatus = "done"
	StatusFailed  RunStatus = "failed"
)

// RunView is the JSON representation of a run.
type RunView struct {
	ID         string       `json:"id"`
	Program    string       `json:"program"`
	Status     RunStatus    `json:"status"`
	Result     *core.Result `json:"result,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine readable error code.
	Code string `json:"code,omitempty"`
}

// ReportsResponse lists the findings of a run.
type ReportsResponse struct {
	RunID   string        `json:"run_id"`
	Reports []core.Report `json:"reports"`
}

// RunsResponse lists runs.
type RunsResponse struct {
	Runs []RunView `json:"runs"`
}
