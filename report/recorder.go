package report

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/unfold/core"
)

// Recorder is a core.Reporter that persists every finding to a store.
type Recorder struct {
	store core.ReportStore

	mu      sync.Mutex
	maximal int
	defects int
}

// NewRecorder returns a Recorder writing to store.
func NewRecorder(store core.ReportStore) *Recorder {
	return &Recorder{store: store}
}

// ReportMaximal saves a maximal-configuration report.
func (r *Recorder) ReportMaximal(ctx context.Context, trace core.Trace) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.store.Save(core.NewReport(core.ReportMaximal, trace, nil)); err != nil {
		return fmt.Errorf("save maximal report: %w", err)
	}

	r.mu.Lock()
	r.maximal++
	r.mu.Unlock()

	return nil
}

// ReportDefect saves a defect report.
func (r *Recorder) ReportDefect(ctx context.Context, trace core.Trace, cause error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.store.Save(core.NewReport(core.ReportDefect, trace, cause)); err != nil {
		return fmt.Errorf("save defect report: %w", err)
	}

	r.mu.Lock()
	r.defects++
	r.mu.Unlock()

	return nil
}

// Counts returns the number of maximal and defect reports recorded so far.
func (r *Recorder) Counts() (maximal, defects int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maximal, r.defects
}

// Store returns the underlying store.
func (r *Recorder) Store() core.ReportStore {
	return r.store
}
