package badger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/report"
)

func newReport(runID, id string, at time.Time) core.Report {
	return core.Report{
		ID:    id,
		RunID: runID,
		Kind:  core.ReportDefect,
		Trace: core.Trace{
			RunID:   runID,
			Program: "demo",
			Steps: []core.Step{
				{Event: 1, Transition: "p1#0", Causes: []int{0}},
				{Event: 2, Transition: "p2#0", Causes: []int{0}},
			},
		},
		Cause:     "defect: assertion failed",
		Timestamp: at.UTC(),
	}
}

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	s := openMem(t)
	r := newReport("run-1", "a", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	require.NoError(t, s.Save(r))

	got, err := s.Get("run-1", "a")
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestStore_NotFound(t *testing.T) {
	s := openMem(t)

	_, err := s.Get("run-1", "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestStore_InvalidKeys(t *testing.T) {
	s := openMem(t)

	assert.ErrorIs(t, s.Save(core.Report{ID: "x"}), report.ErrInvalidKey)
	assert.ErrorIs(t, s.Save(core.Report{ID: "x", RunID: "a/b"}), report.ErrInvalidKey)
}

func TestStore_ListIsScopedAndOrdered(t *testing.T) {
	s := openMem(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(newReport("run-1", "late", base.Add(time.Minute))))
	require.NoError(t, s.Save(newReport("run-1", "early", base)))
	require.NoError(t, s.Save(newReport("run-10", "other", base)))

	list, err := s.List("run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "late", list[1].ID)

	empty, err := s.List("nothing")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_Delete(t *testing.T) {
	s := openMem(t)
	base := time.Now()

	require.NoError(t, s.Save(newReport("run-1", "a", base)))
	require.NoError(t, s.Save(newReport("run-1", "b", base)))

	require.NoError(t, s.Delete("run-1", "a"))
	require.NoError(t, s.Delete("run-1", "unknown"))

	_, err := s.Get("run-1", "a")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.DeleteRun("run-1"))
	list, err := s.List("run-1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	r := newReport("run-1", "a", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	s, err := Open(dir, func(o *Options) { o.GCInterval = 0 })
	require.NoError(t, err)
	require.NoError(t, s.Save(r))
	require.NoError(t, s.Close())

	s2, err := Open(dir)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get("run-1", "a")
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestStore_RequiresPath(t *testing.T) {
	_, err := New()
	assert.Error(t, err)
}

func TestStore_WithRecorder(t *testing.T) {
	s := openMem(t)
	rec := report.NewRecorder(s)
	tr := newReport("run-2", "x", time.Now()).Trace

	require.NoError(t, rec.ReportDefect(t.Context(), tr, core.ErrDeadlock))

	list, err := s.List("run-2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.ReportDefect, list[0].Kind)
	assert.Equal(t, tr, list[0].Trace)
}

func TestStore_ConcurrentSaves(t *testing.T) {
	s := openMem(t)
	base := time.Now()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Save(newReport("run", string(rune('a'+i)), base)))
		}()
	}
	wg.Wait()

	list, err := s.List("run")
	require.NoError(t, err)
	assert.Len(t, list, 20)
}
