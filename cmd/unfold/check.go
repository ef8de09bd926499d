package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/hupe1980/unfold/config"
	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/program"
)

var errDefectsFound = errors.New("defects found")

type checkFlags struct {
	configPath        string
	maxSteps          int
	timeout           time.Duration
	alternatives      string
	stopOnFirstDefect bool
	checkInvariants   bool
	concurrency       int
	logLevel          string
	logFormat         string
	metricsAddr       string
	reportDB          string
	jsonOutput        bool
	traceExporter     string
	watch             bool
	debounce          time.Duration
}

type checkOptions struct {
	json     bool
	watch    bool
	debounce time.Duration
}

func newCheckCmd() *cobra.Command {
	f := &checkFlags{}

	cmd := &cobra.Command{
		Use:   "check <program.yaml>...",
		Short: "Verify one or more model programs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.resolve(cmd)
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, args, checkOptions{
				json:     f.jsonOutput,
				watch:    f.watch,
				debounce: f.debounce,
			})
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.configPath, "config", "c", "", "configuration file (YAML)")
	fl.IntVar(&f.maxSteps, "max-steps", 0, "maximum explore steps per program (0 = unbounded)")
	fl.DurationVar(&f.timeout, "timeout", 0, "time limit per program (0 = unbounded)")
	fl.StringVar(&f.alternatives, "alternatives", "comb", "alternative search strategy: comb or exhaustive")
	fl.BoolVar(&f.stopOnFirstDefect, "stop-on-first-defect", false, "stop a program's run at its first defect")
	fl.BoolVar(&f.checkInvariants, "check-invariants", false, "validate explorer invariants (slow)")
	fl.IntVar(&f.concurrency, "concurrency", 4, "programs verified in parallel")
	fl.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fl.StringVar(&f.logFormat, "log-format", "text", "log format: text or json")
	fl.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	fl.StringVar(&f.reportDB, "report-db", "", "persist reports in a Badger database in this directory")
	fl.BoolVar(&f.jsonOutput, "json", false, "print results as JSON")
	fl.StringVar(&f.traceExporter, "trace-exporter", "none", "OpenTelemetry span exporter: none or stdout")
	fl.BoolVarP(&f.watch, "watch", "w", false, "re-check whenever a program file changes")
	fl.DurationVar(&f.debounce, "debounce", 200*time.Millisecond, "quiet period before a re-check in watch mode")

	return cmd
}

// resolve loads the config file and applies explicitly set flags on top.
func (f *checkFlags) resolve(cmd *cobra.Command) (config.File, error) {
	cfg := config.Default()

	if f.configPath != "" {
		loaded, err := config.Load(f.configPath)
		if err != nil {
			return config.File{}, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed

	if changed("max-steps") {
		cfg.Engine.MaxSteps = f.maxSteps
	}
	if changed("timeout") {
		cfg.Engine.TimeLimit = f.timeout
	}
	if changed("alternatives") {
		cfg.Engine.Alternatives = f.alternatives
	}
	if changed("stop-on-first-defect") {
		cfg.Engine.StopOnFirstDefect = f.stopOnFirstDefect
	}
	if changed("check-invariants") {
		cfg.Engine.CheckInvariants = f.checkInvariants
	}
	if changed("concurrency") {
		cfg.Runner.MaxConcurrentRuns = f.concurrency
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = f.metricsAddr
	}
	if changed("report-db") {
		cfg.Reports.Dir = f.reportDB
	}
	if changed("trace-exporter") {
		cfg.Tracing.Exporter = f.traceExporter
	}

	if err := cfg.Validate(); err != nil {
		return config.File{}, err
	}

	return cfg, nil
}

func runCheck(ctx context.Context, stdout, stderr io.Writer, cfg config.File, paths []string, opts checkOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	env, err := setup(ctx, cfg, stderr)
	if err != nil {
		return err
	}
	defer env.close()

	u := env.unfold()

	check := func() error {
		programs := make([]core.Program, 0, len(paths))
		for _, path := range paths {
			p, err := program.Load(path)
			if err != nil {
				return err
			}
			programs = append(programs, p)
		}

		results, checkErr := u.CheckAll(ctx, programs...)

		if err := printResults(stdout, results, opts.json); err != nil {
			return err
		}

		if checkErr != nil {
			return checkErr
		}

		for _, res := range results {
			if res != nil && res.HasDefects() {
				return errDefectsFound
			}
		}

		return nil
	}

	err = check()
	if !opts.watch {
		return err
	}

	logFailure := func(err error) {
		if err != nil && !errors.Is(err, errDefectsFound) {
			env.logger.Error("check failed", "error", err)
		}
	}
	logFailure(err)

	w, err := newWatcher(paths, opts.debounce)
	if err != nil {
		return err
	}
	defer w.close()

	env.logger.Info("watching programs for changes", "files", len(paths))

	return w.run(ctx, func() {
		fmt.Fprintln(stdout, "--- change detected, re-checking ---")
		logFailure(check())
	})
}

func printResults(w io.Writer, results []*core.Result, jsonOutput bool) error {
	if jsonOutput {
		out := make([]*core.Result, 0, len(results))
		for _, res := range results {
			if res != nil {
				out = append(out, res)
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	color := isTerminal(w)

	for _, res := range results {
		if res == nil {
			continue
		}

		status := paint(color, colorGreen, "ok")
		switch {
		case res.HasDefects():
			status = paint(color, colorRed, "DEFECT")
		case res.Incomplete:
			status = paint(color, colorYellow, "incomplete")
		}

		fmt.Fprintf(w, "%s: %s (maximal=%d defects=%d events=%d steps=%d time=%s)\n",
			res.Program, status, res.MaximalConfigurations, len(res.Defects),
			res.EventsCreated, res.Steps, res.Duration.Round(time.Microsecond))

		if res.Incomplete {
			fmt.Fprintf(w, "  incomplete: %s\n", res.IncompleteReason)
		}

		for _, d := range res.Defects {
			fmt.Fprintf(w, "  %s\n    trace: %s\n", errString(d.Cause), d.Trace)
		}
	}

	return nil
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
