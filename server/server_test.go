package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/unfold"
	"github.com/hupe1980/unfold/core"
)

const buggy = `
name: buggy
variables: {x: 0}
processes:
  - name: p1
    steps:
      - {op: write, var: x, value: 1}
  - name: p2
    steps:
      - {op: assert, var: x, value: 0}
`

const racyJSON = `{"name":"racy","variables":{"x":0},"processes":[
  {"name":"p1","steps":[{"op":"write","var":"x","value":1}]},
  {"name":"p2","steps":[{"op":"write","var":"x","value":2}]}]}`

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T, fns ...func(o *Options)) *Server {
	t.Helper()
	s := New(unfold.New(), fns...)
	t.Cleanup(s.Wait)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/v1/runs?wait=true", buggy)

	rec := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "unfold_engine_")
}

func TestSubmitWait(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/runs?wait=true", buggy)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	view := decode[RunView](t, rec)
	assert.Equal(t, StatusDone, view.Status)
	assert.Equal(t, "buggy", view.Program)
	require.NotNil(t, view.Result)
	require.Len(t, view.Result.Defects, 1)
	assert.Equal(t, []string{"p1#0", "p2#0"}, view.Result.Defects[0].Trace.TransitionIDs())
	assert.NotNil(t, view.FinishedAt)

	reports := decode[ReportsResponse](t, do(t, s, http.MethodGet, "/v1/runs/"+view.ID+"/reports", ""))
	assert.Equal(t, view.ID, reports.RunID)

	var defects int
	for _, r := range reports.Reports {
		if r.Kind == core.ReportDefect {
			defects++
			assert.Equal(t, "defect: assertion failed", r.Cause)
		}
	}
	assert.Equal(t, 1, defects)
}

func TestSubmitAsyncJSON(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/runs", racyJSON)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	view := decode[RunView](t, rec)
	assert.Equal(t, "/v1/runs/"+view.ID, rec.Header().Get("Location"))

	require.Eventually(t, func() bool {
		var got RunView
		rec := do(t, s, http.MethodGet, "/v1/runs/"+view.ID, "")
		return json.Unmarshal(rec.Body.Bytes(), &got) == nil && got.Status == StatusDone
	}, 5*time.Second, 10*time.Millisecond)

	got := decode[RunView](t, do(t, s, http.MethodGet, "/v1/runs/"+view.ID, ""))
	require.NotNil(t, got.Result)
	assert.Equal(t, 2, got.Result.MaximalConfigurations)

	list := decode[RunsResponse](t, do(t, s, http.MethodGet, "/v1/runs", ""))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, view.ID, list.Runs[0].ID)

	// Finished runs cannot be cancelled.
	assert.Equal(t, http.StatusConflict, do(t, s, http.MethodDelete, "/v1/runs/"+view.ID, "").Code)
}

func TestSubmitInvalid(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/runs", "name: broken\nprocesses: []\n")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_program", decode[ErrorResponse](t, rec).Code)

	small := newTestServer(t, func(o *Options) { o.MaxProgramBytes = 8 })
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(t, small, http.MethodPost, "/v1/runs", buggy).Code)
}

func TestUnknownRun(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/runs/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/v1/runs/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/runs/nope/reports", "").Code)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RateLimit = 0.001; o.Burst = 1 })

	assert.Equal(t, http.StatusOK, do(t, s, http.MethodPost, "/v1/runs?wait=true", buggy).Code)

	rec := do(t, s, http.MethodPost, "/v1/runs?wait=true", buggy)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "rate_limited", decode[ErrorResponse](t, rec).Code)

	// Reads are not limited.
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/runs", "").Code)
}

func TestRetention(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.RetainRuns = 2 })

	var ids []string
	for range 3 {
		view := decode[RunView](t, do(t, s, http.MethodPost, "/v1/runs?wait=true", racyJSON))
		ids = append(ids, view.ID)
	}

	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/runs/"+ids[0], "").Code)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/v1/runs/"+ids[2], "").Code)
	assert.Len(t, decode[RunsResponse](t, do(t, s, http.MethodGet, "/v1/runs", "")).Runs, 2)
}

func TestServeListener(t *testing.T) {
	s := newTestServer(t, func(o *Options) { o.Tracing = true })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ServeListener(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
