package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hupe1980/unfold"
	"github.com/hupe1980/unfold/config"
	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/logging"
	"github.com/hupe1980/unfold/report"
	"github.com/hupe1980/unfold/report/badger"
	"github.com/hupe1980/unfold/telemetry"
)

// environment holds the process-wide services shared by the commands.
type environment struct {
	cfg     config.File
	logger  *logging.UnfoldLogger
	store   core.ReportStore
	closers []func()
}

// setup builds logger, tracing, report store and, when configured, the
// metrics endpoint. close releases them in reverse order.
func setup(ctx context.Context, cfg config.File, stderr io.Writer) (*environment, error) {
	lc, err := cfg.LoggerConfig(stderr)
	if err != nil {
		return nil, err
	}

	env := &environment{cfg: cfg, logger: logging.NewLogger(lc)}

	_, shutdown, err := telemetry.Setup(ctx, cfg.TelemetryConfig(version, stderr))
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(sctx); err != nil {
			env.logger.Warn("flushing traces failed", "error", err)
		}
	})

	if err := env.openStore(); err != nil {
		env.close()
		return nil, err
	}

	if cfg.Metrics.Addr != "" {
		if err := env.serveMetrics(cfg.Metrics.Addr); err != nil {
			env.close()
			return nil, err
		}
	}

	return env, nil
}

func (env *environment) close() {
	for i := len(env.closers) - 1; i >= 0; i-- {
		env.closers[i]()
	}
	env.closers = nil
}

func (env *environment) unfold() *unfold.Unfold {
	return unfold.New(func(o *unfold.Options) {
		o.EngineConfig = env.cfg.EngineConfig()
		o.MaxConcurrentRuns = env.cfg.Runner.MaxConcurrentRuns
		o.FailFast = env.cfg.Runner.FailFast
		o.ReportStore = env.store
		o.Logger = env.logger
	})
}

func (env *environment) openStore() error {
	if env.cfg.Reports.Dir == "" {
		env.store = report.NewInMemoryStore()
		return nil
	}

	s, err := badger.Open(env.cfg.Reports.Dir, func(o *badger.Options) {
		o.Logger = env.logger.WithComponent("badger")
	})
	if err != nil {
		return err
	}

	env.store = s
	env.closers = append(env.closers, func() {
		if err := s.Close(); err != nil {
			env.logger.Warn("closing report store failed", "error", err)
		}
	})

	return nil
}

func (env *environment) serveMetrics(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			env.logger.Error("metrics server failed", "error", err)
		}
	}()

	env.logger.Info("serving metrics", "addr", ln.Addr().String())

	env.closers = append(env.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	return nil
}
