// Package report stores the findings of verification runs.
//
// InMemoryStore keeps reports in process and is the default for tests and
// the CLI. Recorder adapts any core.ReportStore to the core.Reporter
// interface the engine reports through. The badger subpackage provides a
// persistent store.
package report
