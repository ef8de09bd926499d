package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	"github.com/hupe1980/unfold"
	"github.com/hupe1980/unfold/core"
	"github.com/hupe1980/unfold/logging"
)

// Options configures a Server.
type Options struct {
	// RateLimit is the sustained number of submissions per second. Zero
	// disables limiting.
	RateLimit float64

	// Burst is the number of submissions allowed above RateLimit.
	Burst int

	// RetainRuns bounds how many finished runs are remembered.
	RetainRuns int

	// MaxProgramBytes bounds the size of a submitted program.
	MaxProgramBytes int64

	// ServiceName names the server in spans.
	ServiceName string

	// Tracing wraps every request in an OpenTelemetry span.
	Tracing bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// run is the server-side record of a submission.
type run struct {
	view RunView
	done chan struct{}
}

// Server serves the HTTP API. It is safe for concurrent use.
type Server struct {
	unfold  *unfold.Unfold
	router  *gin.Engine
	limiter *rate.Limiter
	logger  logging.Logger

	retain   int
	maxBytes int64

	mu       sync.RWMutex
	runs     map[string]*run
	finished []string

	wg sync.WaitGroup
}

// New creates a server verifying programs with u.
func New(u *unfold.Unfold, optFns ...func(o *Options)) *Server {
	opts := Options{
		RateLimit:       10,
		Burst:           20,
		RetainRuns:      1000,
		MaxProgramBytes: 1 << 20,
		ServiceName:     "unfold",
		Logger:          logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.RetainRuns <= 0 {
		opts.RetainRuns = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), max(opts.Burst, 1))
	}

	s := &Server{
		unfold:   u,
		limiter:  limiter,
		logger:   opts.Logger,
		retain:   opts.RetainRuns,
		maxBytes: opts.MaxProgramBytes,
		runs:     make(map[string]*run),
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.requestLogger())
	if opts.Tracing {
		s.router.Use(otelgin.Middleware(opts.ServiceName))
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/v1")
	v1.POST("/runs", s.rateLimit(), s.handleSubmit)
	v1.GET("/runs", s.handleList)
	v1.GET("/runs/:id", s.handleGet)
	v1.DELETE("/runs/:id", s.handleCancel)
	v1.GET("/runs/:id/reports", s.handleReports)
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is done, then cancels running checks and
// shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	s.logger.Info("server listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.cancelAll()
	s.Wait()

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Wait blocks until every submitted run has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) cancelAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.runs))
	for id, r := range s.runs {
		if r.view.Status == StatusRunning {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range ids {
		_ = s.unfold.Cancel(id)
	}
}

// submit starts p and tracks it until it finishes.
func (s *Server) submit(p core.Program) (*run, error) {
	runID, results, errs, err := s.unfold.Start(context.Background(), p)
	if err != nil {
		return nil, err
	}

	r := &run{
		view: RunView{ID: runID, Program: p.Name(), Status: StatusRunning, StartedAt: time.Now().UTC()},
		done: make(chan struct{}),
	}

	s.mu.Lock()
	s.runs[runID] = r
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		res, ok := <-results
		runErr := <-errs
		s.complete(r, res, ok, runErr)
	}()

	return r, nil
}

func (s *Server) complete(r *run, res *core.Result, ok bool, err error) {
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	r.view.FinishedAt = &now
	switch {
	case err != nil:
		r.view.Status = StatusFailed
		r.view.Error = err.Error()
	case !ok || res == nil:
		r.view.Status = StatusFailed
		r.view.Error = "run ended without result"
	default:
		r.view.Status = StatusDone
		r.view.Result = res
	}
	close(r.done)

	s.finished = append(s.finished, r.view.ID)
	for len(s.finished) > s.retain {
		delete(s.runs, s.finished[0])
		s.finished = s.finished[1:]
	}

	s.logger.Info("run finished", "run_id", r.view.ID, "program", r.view.Program, "status", r.view.Status)
}

func (s *Server) lookup(id string) (RunView, *run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return RunView{}, nil, false
	}
	return r.view, r, true
}

func (s *Server) list() []RunView {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]RunView, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.view)
	}

	slices.SortFunc(out, func(a, b RunView) int {
		if c := a.StartedAt.Compare(b.StartedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	return out
}
