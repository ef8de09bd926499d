package report

import (
	"slices"
	"sync"

	"github.com/hupe1980/unfold/core"
)

// InMemoryStore is an in-process core.ReportStore guarded by an RWMutex.
// Reports are copied on save and on retrieval so callers can never mutate
// stored traces.
//
// Layout: runID -> reportID -> report
type InMemoryStore struct {
	mu      sync.RWMutex
	reports map[string]map[string]core.Report
}

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{reports: make(map[string]map[string]core.Report)}
}

// Save stores (or overwrites) a report.
func (s *InMemoryStore) Save(r core.Report) error {
	if err := validateKey(r.RunID, r.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.RunID]; !exists {
		s.reports[r.RunID] = make(map[string]core.Report)
	}

	s.reports[r.RunID][r.ID] = clone(r)

	return nil
}

// Get returns a copy of the report or core.ErrNotFound.
func (s *InMemoryStore) Get(runID, reportID string) (core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.reports[runID]
	if !ok {
		return core.Report{}, notFound(runID, reportID)
	}

	r, ok := run[reportID]
	if !ok {
		return core.Report{}, notFound(runID, reportID)
	}

	return clone(r), nil
}

// List returns the reports of a run ordered by timestamp, then id.
func (s *InMemoryStore) List(runID string) ([]core.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run := s.reports[runID]
	out := make([]core.Report, 0, len(run))

	for _, r := range run {
		out = append(out, clone(r))
	}

	sortReports(out)

	return out, nil
}

// Delete removes a report. Unknown reports are ignored.
func (s *InMemoryStore) Delete(runID, reportID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.reports[runID]
	if !ok {
		return nil
	}

	delete(run, reportID)

	if len(run) == 0 {
		delete(s.reports, runID)
	}

	return nil
}

// Runs returns the ids of all runs with at least one report, sorted.
func (s *InMemoryStore) Runs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.reports))
	for id := range s.reports {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

func clone(r core.Report) core.Report {
	cp := r
	if r.Trace.Steps == nil {
		return cp
	}

	cp.Trace.Steps = make([]core.Step, len(r.Trace.Steps))

	for i, st := range r.Trace.Steps {
		st.Causes = slices.Clone(st.Causes)
		cp.Trace.Steps[i] = st
	}

	return cp
}

// sortReports orders reports by timestamp with the id as tie breaker.
func sortReports(reports []core.Report) {
	slices.SortFunc(reports, func(a, b core.Report) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
