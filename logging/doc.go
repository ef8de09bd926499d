// Package logging provides a minimal logging interface and adapters for unfold.
//
// The Logger interface defines the standard logging methods (Debug, Info, Warn,
// Error) that the engine, the runner and the CLI use for observability. This
// package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - UnfoldLogger with run/program context and explorer specific helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	checker := engine.New(func(o *engine.Options) { o.Logger = logger })
//
// Arguments after the message are slog style key/value pairs.
package logging
