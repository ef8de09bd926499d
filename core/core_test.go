package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransition struct {
	id   string
	deps map[string]bool
}

func (t stubTransition) ID() string { return t.id }
func (t stubTransition) DependsOn(o Transition) bool {
	return t.deps[o.ID()]
}

func TestDependent_NilIsIndependent(t *testing.T) {
	a := stubTransition{id: "a", deps: map[string]bool{"b": true}}
	b := stubTransition{id: "b", deps: map[string]bool{"a": true}}

	assert.True(t, Dependent(a, b))
	assert.False(t, Dependent(nil, a))
	assert.False(t, Dependent(a, nil))
	assert.Equal(t, []string{"a", "b"}, TransitionIDs([]Transition{a, b}))
}

func TestErrors_DefectTaxonomy(t *testing.T) {
	assert.True(t, IsDefect(ErrAssertionFailed))
	assert.True(t, IsDefect(ErrDeadlock))
	assert.True(t, IsDefect(fmt.Errorf("p1#2: %w", ErrIllegalOperation)))
	assert.False(t, IsDefect(ErrInvariant))
	assert.False(t, IsDefect(errors.New("boom")))
}

func TestInvariantError(t *testing.T) {
	err := error(&InvariantError{
		Op:            "choose",
		Detail:        "no enabled alternative",
		Configuration: []int{0, 1},
		Done:          []int{2},
		Alternative:   []int{3},
	})

	assert.ErrorIs(t, err, ErrInvariant)
	var ie *InvariantError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "choose", ie.Op)
	assert.Contains(t, err.Error(), "C=[0 1]")
	assert.Contains(t, err.Error(), "A=[3]")
}

func TestStepLimiter(t *testing.T) {
	l := NewStepLimiter(2)
	require.NoError(t, l.Increment())
	require.NoError(t, l.Increment())
	assert.Equal(t, 0, l.Remaining())

	err := l.Increment()
	assert.ErrorIs(t, err, ErrBudgetExhausted)
	assert.Equal(t, 2, l.Count())
}

func TestStepLimiter_Unlimited(t *testing.T) {
	l := NewStepLimiter(0)
	for i := 0; i < 100; i++ {
		require.NoError(t, l.Increment())
	}
	assert.Equal(t, -1, l.Remaining())
	assert.Equal(t, 100, l.Count())
}

func TestNewReport(t *testing.T) {
	trace := Trace{RunID: "run-1", Program: "p", Steps: []Step{{Event: 1, Transition: "p1#0"}, {Event: 2, Transition: "p2#0", Causes: []int{1}}}}

	r := NewReport(ReportDefect, trace, ErrDeadlock)
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, ReportDefect, r.Kind)
	assert.Equal(t, "defect: deadlock", r.Cause)
	assert.Equal(t, "p1#0 -> p2#0", trace.String())

	ok := NewReport(ReportMaximal, trace, nil)
	assert.Empty(t, ok.Cause)
	assert.NotEqual(t, r.ID, ok.ID)
}

func TestRunIDContext(t *testing.T) {
	_, ok := RunIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := RunIDFromContext(WithRunID(context.Background(), "run-7"))
	assert.True(t, ok)
	assert.Equal(t, "run-7", id)
}

func TestDefect_MarshalJSON(t *testing.T) {
	d := Defect{Trace: Trace{Program: "p", Steps: []Step{{Event: 1, Transition: "p1#0"}}}, Cause: ErrAssertionFailed}

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.JSONEq(t, `{"trace":{"run_id":"","program":"p","steps":[{"event":1,"transition":"p1#0"}]},"cause":"defect: assertion failed"}`, string(data))

	data, err = json.Marshal(Defect{})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "cause")
}
