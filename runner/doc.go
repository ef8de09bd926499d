// Package runner coordinates verification runs.
//
// A Runner wraps a core.Checker and adds what a single Check call lacks:
// asynchronous runs with ids, cancellation by id, a bound on concurrent runs
// and batch verification of many programs.
//
//	r := runner.New(engine.New())
//	runID, results, errs, err := r.Run(ctx, prog)
//	...
//	_ = r.Cancel(runID)
//
// CheckAll verifies a batch with bounded concurrency and returns the results
// in input order.
package runner
