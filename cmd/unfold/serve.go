package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/unfold/config"
	"github.com/hupe1980/unfold/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		rateLimit  float64
		burst      int
		reportDB   string
		logLevel   string
		logFormat  string
		tracing    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the verification HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			changed := cmd.Flags().Changed
			if changed("addr") {
				cfg.Server.Addr = addr
			}
			if changed("rate-limit") {
				cfg.Server.RateLimit = rateLimit
			}
			if changed("burst") {
				cfg.Server.Burst = burst
			}
			if changed("report-db") {
				cfg.Reports.Dir = reportDB
			}
			if changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			if changed("log-format") {
				cfg.Logging.Format = logFormat
			}
			if changed("trace-exporter") {
				cfg.Tracing.Exporter = tracing
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cmd, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&configPath, "config", "c", "", "configuration file (YAML)")
	fl.StringVar(&addr, "addr", "localhost:8080", "listen address")
	fl.Float64Var(&rateLimit, "rate-limit", 10, "run submissions per second (0 = unlimited)")
	fl.IntVar(&burst, "burst", 20, "submissions allowed above the rate limit")
	fl.StringVar(&reportDB, "report-db", "", "persist reports in a Badger database in this directory")
	fl.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fl.StringVar(&logFormat, "log-format", "text", "log format: text or json")
	fl.StringVar(&tracing, "trace-exporter", "none", "OpenTelemetry span exporter: none or stdout")

	return cmd
}

func runServe(ctx context.Context, cmd *cobra.Command, cfg config.File) error {
	env, err := setup(ctx, cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer env.close()

	srv := server.New(env.unfold(), func(o *server.Options) {
		o.RateLimit = cfg.Server.RateLimit
		o.Burst = cfg.Server.Burst
		o.RetainRuns = cfg.Server.RetainRuns
		o.Tracing = cfg.Tracing.Exporter != "none"
		o.Logger = env.logger.WithComponent("server")
	})

	return srv.Serve(ctx, cfg.Server.Addr)
}
