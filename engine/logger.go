package engine

import (
	"time"

	"github.com/hupe1980/unfold/logging"
)

// loggerAdapter wraps a logging.Logger and exposes convenience methods. It
// guarantees a non-nil logger by substituting a NoOpLogger when constructed
// with nil, and uses the explorer helpers of UnfoldLogger when available.
type loggerAdapter struct {
	logger logging.Logger
	unfold *logging.UnfoldLogger
}

func newLoggerAdapter(l logging.Logger, runID, program string) *loggerAdapter {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	a := &loggerAdapter{logger: l}
	if ul, ok := l.(*logging.UnfoldLogger); ok {
		a.unfold = ul.WithComponent("engine").WithRun(runID, program)
		a.logger = a.unfold
	}
	return a
}

func (l *loggerAdapter) LogDebug(msg string, args ...any) { l.logger.Debug(msg, args...) }
func (l *loggerAdapter) LogInfo(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *loggerAdapter) LogWarn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *loggerAdapter) LogError(msg string, args ...any) { l.logger.Error(msg, args...) }

func (l *loggerAdapter) LogExecution(transition string, event int, dur time.Duration, err error) {
	if l.unfold != nil {
		l.unfold.LogExecution(transition, event, dur, err)
		return
	}
	if err != nil {
		l.logger.Warn("Transition failed", "transition", transition, "event", event, "error", err)
		return
	}
	l.logger.Debug("Transition executed", "transition", transition, "event", event)
}

func (l *loggerAdapter) LogDefect(trace string, steps int, err error) {
	if l.unfold != nil {
		l.unfold.LogDefect(trace, steps, err)
		return
	}
	l.logger.Error("Defect found", "trace", trace, "trace_length", steps, "error", err)
}

func (l *loggerAdapter) LogRun(maximal, defects, steps int, dur time.Duration, incomplete bool, err error) {
	if l.unfold != nil {
		l.unfold.LogRun(maximal, defects, steps, dur, incomplete, err)
		return
	}
	l.logger.Info("Verification completed", "maximal_configurations", maximal, "defects", defects,
		"steps", steps, "duration", dur, "incomplete", incomplete, "error", err)
}
