package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/unfold/program"
	"github.com/hupe1980/unfold/runner"
)

// handleSubmit accepts a program description and starts a run.
func (s *Server) handleSubmit(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: err.Error(), Code: "too_large"})
			return
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "bad_body"})
		return
	}

	// YAML is a superset of JSON, so one parser serves both content types.
	p, err := program.Parse(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error(), Code: "invalid_program"})
		return
	}

	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))

	r, err := s.submit(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "start_failed"})
		return
	}

	s.logger.Info("run submitted", "run_id", r.view.ID, "program", p.Name(), "wait", wait)

	if !wait {
		view, _, _ := s.lookup(r.view.ID)
		c.Header("Location", "/v1/runs/"+r.view.ID)
		c.JSON(http.StatusAccepted, view)
		return
	}

	select {
	case <-r.done:
	case <-c.Request.Context().Done():
		// The client went away; the run keeps going and stays queryable.
		return
	}

	s.mu.RLock()
	view := r.view
	s.mu.RUnlock()

	c.JSON(http.StatusOK, view)
}

func (s *Server) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, RunsResponse{Runs: s.list()})
}

func (s *Server) handleGet(c *gin.Context) {
	view, _, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found", Code: "not_found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) handleCancel(c *gin.Context) {
	id := c.Param("id")

	view, _, ok := s.lookup(id)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found", Code: "not_found"})
		return
	}

	if err := s.unfold.Cancel(id); err != nil {
		if errors.Is(err, runner.ErrRunNotFound) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "run already finished", Code: "finished"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, view)
}

func (s *Server) handleReports(c *gin.Context) {
	id := c.Param("id")

	if _, _, ok := s.lookup(id); !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "run not found", Code: "not_found"})
		return
	}

	reports, err := s.unfold.Reports(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, ReportsResponse{RunID: id, Reports: reports})
}

// rateLimit rejects submissions beyond the token bucket.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded", Code: "rate_limited"})
			return
		}
		c.Next()
	}
}

// requestLogger logs every request through the configured logger.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
