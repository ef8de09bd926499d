package engine

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hupe1980/unfold/core"
)

var (
	eventsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "events_created_total",
		Help:      "Events added to the unfolding",
	})

	eventsRetiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "events_retired_total",
		Help:      "Events moved from the possibly useful set to the retired set",
	})

	maximalConfigurationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "maximal_configurations_total",
		Help:      "Maximal configurations explored",
	})

	defectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "defects_total",
		Help:      "Defects found, by kind",
	}, []string{"kind"})

	alternativesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "alternatives_total",
		Help:      "Alternative searches, by outcome",
	}, []string{"strategy", "outcome"})

	exploreStepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "explore_steps_total",
		Help:      "Explore frames entered",
	})

	transitionsExecutedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "transitions_executed_total",
		Help:      "Events executed through the session",
	})

	transitionsReplayedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "transitions_replayed_total",
		Help:      "Transitions replayed to rebuild configuration states",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "runs_total",
		Help:      "Verification runs, by status",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "unfold",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "Duration of verification runs",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
	})
)

func defectKind(err error) string {
	switch {
	case errors.Is(err, core.ErrAssertionFailed):
		return "assertion"
	case errors.Is(err, core.ErrDeadlock):
		return "deadlock"
	case errors.Is(err, core.ErrIllegalOperation):
		return "illegal_operation"
	default:
		return "other"
	}
}

func recordRun(res *core.Result, err error) {
	status := "complete"
	switch {
	case err != nil:
		status = "error"
	case res != nil && res.Incomplete:
		status = "incomplete"
	}
	runsTotal.WithLabelValues(status).Inc()
	if res != nil {
		runDuration.Observe(res.Duration.Seconds())
		eventsCreatedTotal.Add(float64(res.EventsCreated))
		eventsRetiredTotal.Add(float64(res.EventsRetired))
	}
}
