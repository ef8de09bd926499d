package report

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unfold/core"
)

var _ core.ReportStore = (*InMemoryStore)(nil)
var _ core.Reporter = (*Recorder)(nil)

func sampleTrace(runID string) core.Trace {
	return core.Trace{
		RunID:   runID,
		Program: "demo",
		Steps: []core.Step{
			{Event: 1, Transition: "p1#0", Causes: []int{0}},
			{Event: 2, Transition: "p2#0", Causes: []int{1}},
		},
	}
}

func TestInMemoryStore_SaveGet(t *testing.T) {
	s := NewInMemoryStore()
	r := core.NewReport(core.ReportMaximal, sampleTrace("run-1"), nil)

	require.NoError(t, s.Save(r))

	got, err := s.Get("run-1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, r, got)

	// Mutating the returned copy must not leak into the store.
	got.Trace.Steps[0].Causes[0] = 42
	again, err := s.Get("run-1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Trace.Steps[0].Causes[0])
}

func TestInMemoryStore_SaveCopiesInput(t *testing.T) {
	s := NewInMemoryStore()
	r := core.NewReport(core.ReportMaximal, sampleTrace("run-1"), nil)
	require.NoError(t, s.Save(r))

	r.Trace.Steps[1].Transition = "mutated"

	got, err := s.Get("run-1", r.ID)
	require.NoError(t, err)
	assert.Equal(t, "p2#0", got.Trace.Steps[1].Transition)
}

func TestInMemoryStore_NotFound(t *testing.T) {
	s := NewInMemoryStore()

	_, err := s.Get("missing", "x")
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, s.Save(core.NewReport(core.ReportMaximal, sampleTrace("run-1"), nil)))
	_, err = s.Get("run-1", "x")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestInMemoryStore_InvalidKey(t *testing.T) {
	s := NewInMemoryStore()
	err := s.Save(core.Report{ID: "a"})
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestInMemoryStore_ListOrdersByTimestamp(t *testing.T) {
	s := NewInMemoryStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"c", "a", "b"} {
		r := core.Report{ID: id, RunID: "run", Kind: core.ReportMaximal, Timestamp: base.Add(time.Duration(2-i) * time.Second)}
		require.NoError(t, s.Save(r))
	}

	list, err := s.List("run")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "c", list[2].ID)

	empty, err := s.List("other")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestInMemoryStore_Delete(t *testing.T) {
	s := NewInMemoryStore()
	r := core.NewReport(core.ReportDefect, sampleTrace("run-1"), core.ErrAssertionFailed)
	require.NoError(t, s.Save(r))
	assert.Equal(t, []string{"run-1"}, s.Runs())

	require.NoError(t, s.Delete("run-1", r.ID))
	require.NoError(t, s.Delete("run-1", r.ID))
	require.NoError(t, s.Delete("nope", "nope"))

	_, err := s.Get("run-1", r.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Empty(t, s.Runs())
}

func TestRecorder(t *testing.T) {
	s := NewInMemoryStore()
	rec := NewRecorder(s)
	ctx := context.Background()

	require.NoError(t, rec.ReportMaximal(ctx, sampleTrace("run-1")))
	require.NoError(t, rec.ReportDefect(ctx, sampleTrace("run-1"), core.ErrDeadlock))

	maximal, defects := rec.Counts()
	assert.Equal(t, 1, maximal)
	assert.Equal(t, 1, defects)

	list, err := s.List("run-1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	kinds := map[core.ReportKind]core.Report{}
	for _, r := range list {
		kinds[r.Kind] = r
	}
	assert.Equal(t, core.ErrDeadlock.Error(), kinds[core.ReportDefect].Cause)
	assert.Empty(t, kinds[core.ReportMaximal].Cause)
	assert.Same(t, s, rec.Store())
}

type failingStore struct{ InMemoryStore }

func (*failingStore) Save(core.Report) error { return errors.New("disk full") }

func TestRecorder_Errors(t *testing.T) {
	rec := NewRecorder(&failingStore{})
	err := rec.ReportMaximal(context.Background(), sampleTrace("r"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, rec.ReportDefect(ctx, sampleTrace("r"), core.ErrDeadlock), context.Canceled)

	maximal, defects := rec.Counts()
	assert.Zero(t, maximal)
	assert.Zero(t, defects)
}
