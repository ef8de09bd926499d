package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unfold/internal/testutil"
)

// randomThreads builds two or three threads of one to three steps, each step
// touching one or two of the shared resources x, y and z.
func randomThreads(r *rand.Rand) [][]testutil.Transition {
	resources := []string{"x", "y", "z"}
	threads := make([][]testutil.Transition, 2+r.IntN(2))
	for i := range threads {
		steps := make([]testutil.Transition, 1+r.IntN(3))
		for j := range steps {
			touched := []string{resources[r.IntN(len(resources))]}
			if r.IntN(4) == 0 {
				touched = append(touched, resources[r.IntN(len(resources))])
			}
			steps[j] = testutil.T(fmt.Sprintf("t%d.%d", i, j), touched...)
		}
		threads[i] = steps
	}
	return threads
}

// interleavingClasses enumerates every interleaving of threads and returns
// the distinct orders of their dependent steps.
func interleavingClasses(threads [][]testutil.Transition) map[string]bool {
	dependent := dependence(threads)
	classes := map[string]bool{}

	pcs := make([]int, len(threads))
	var seq []string
	var walk func()
	walk = func() {
		progressed := false
		for i, th := range threads {
			if pcs[i] == len(th) {
				continue
			}
			progressed = true
			seq = append(seq, th[pcs[i]].Name)
			pcs[i]++
			walk()
			pcs[i]--
			seq = seq[:len(seq)-1]
		}
		if !progressed {
			classes[orderKey(seq, dependent)] = true
		}
	}
	walk()
	return classes
}

// dependence relates steps of one thread and steps sharing a resource.
func dependence(threads [][]testutil.Transition) func(a, b string) bool {
	thread := map[string]int{}
	byName := map[string]testutil.Transition{}
	for i, th := range threads {
		for _, t := range th {
			thread[t.Name] = i
			byName[t.Name] = t
		}
	}
	return func(a, b string) bool {
		return thread[a] == thread[b] || byName[a].DependsOn(byName[b])
	}
}

// orderKey identifies the Mazurkiewicz class of seq by the order of its
// dependent pairs.
func orderKey(seq []string, dependent func(a, b string) bool) string {
	var pairs []string
	for i := range seq {
		for j := i + 1; j < len(seq); j++ {
			if dependent(seq[i], seq[j]) {
				pairs = append(pairs, seq[i]+"<"+seq[j])
			}
		}
	}
	slices.Sort(pairs)
	return strings.Join(pairs, " ")
}

func TestCheck_MatchesInterleavingClasses(t *testing.T) {
	for seed := uint64(1); seed <= 60; seed++ {
		threads := randomThreads(rand.New(rand.NewPCG(seed, seed*7919)))
		want := interleavingClasses(threads)
		dependent := dependence(threads)

		for _, strategy := range strategies {
			t.Run(fmt.Sprintf("seed %d/%s", seed, strategy), func(t *testing.T) {
				s := testutil.NewScriptedSession()
				for _, th := range threads {
					s.Thread(th...)
				}
				rep := &recordingReporter{}

				res, err := newTestEngine(strategy, rep).Check(context.Background(), s)
				require.NoError(t, err, "%v", threads)
				require.False(t, res.Incomplete, res.IncompleteReason)
				assert.False(t, res.HasDefects())

				got := map[string]bool{}
				for _, tr := range rep.maximal {
					key := orderKey(tr.TransitionIDs(), dependent)
					assert.False(t, got[key], "class reached twice: %s", tr)
					got[key] = true
				}
				assert.Equal(t, len(want), res.MaximalConfigurations, "%v", threads)
				assert.Equal(t, want, got, "%v", threads)
			})
		}
	}
}
