// Package server exposes unfold over HTTP.
//
// Routes:
//
//	GET    /healthz                liveness check
//	GET    /metrics                Prometheus metrics
//	POST   /v1/runs                submit a YAML (or JSON) program; ?wait=true blocks
//	GET    /v1/runs                list known runs
//	GET    /v1/runs/:id            status and result of a run
//	DELETE /v1/runs/:id            cancel a running run
//	GET    /v1/runs/:id/reports    stored findings of a run
//
// Submissions are rate limited with a token bucket. Finished runs are kept
// up to a configurable count, oldest first out.
package server
