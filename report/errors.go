package report

import (
	"errors"
	"fmt"

	"github.com/hupe1980/unfold/core"
)

// ErrInvalidKey is returned when a report lacks a run id or report id.
var ErrInvalidKey = errors.New("report requires run id and id")

func validateKey(runID, reportID string) error {
	if runID == "" || reportID == "" {
		return fmt.Errorf("%w (run=%q id=%q)", ErrInvalidKey, runID, reportID)
	}
	return nil
}

func notFound(runID, reportID string) error {
	return fmt.Errorf("report %s/%s: %w", runID, reportID, core.ErrNotFound)
}

// ValidateKey checks the identifiers of a report before it is stored.
// Store implementations outside this package use it to share the rule.
func ValidateKey(r core.Report) error {
	return validateKey(r.RunID, r.ID)
}

// NotFound builds the error stores return for unknown reports.
func NotFound(runID, reportID string) error {
	return notFound(runID, reportID)
}

// Sort orders reports by timestamp with the id as tie breaker.
func Sort(reports []core.Report) {
	sortReports(reports)
}
