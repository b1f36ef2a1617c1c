// Package server exposes the pipeline, recording sessions, solution
// generation and batch demo over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"screencast-insights-go/internal/capture"
	"screencast-insights-go/internal/dataset"
	"screencast-insights-go/internal/logger"
	"screencast-insights-go/internal/processor"
	"screencast-insights-go/internal/provider"
	"screencast-insights-go/internal/session"
	"screencast-insights-go/internal/solution"
	"screencast-insights-go/internal/types"
)

const (
	DefaultMaxBodyBytes = 512 << 20
	DefaultDemoLimit    = 5
)

// Pipeline is satisfied by *processor.Processor.
type Pipeline interface {
	Process(ctx context.Context, raw []byte, onProgress func(float64)) (types.ProcessedMetadata, error)
	ExportForExternalAgent(ctx context.Context, raw []byte, onProgress func(float64)) (types.AgentExport, error)
}

// Sessions is satisfied by *session.Manager.
type Sessions interface {
	Start(ctx context.Context) (types.RecordingSession, error)
	Stop(ctx context.Context, onProgress func(float64)) (types.ProcessedMetadata, error)
	Cancel(ctx context.Context, onProgress func(float64)) (*types.ProcessedMetadata, error)
	Current() types.RecordingSession
}

// Deps are the collaborators a Service routes to. Provider and Sessions may
// be nil; the routes that need them answer 503.
type Deps struct {
	Pipeline     Pipeline
	Sessions     Sessions
	Provider     provider.Provider
	ManifestPath string
	MaxBodyBytes int64
}

type Service struct {
	deps   Deps
	solver *solution.Generator
	router chi.Router
	log    *logger.Logger
}

func New(d Deps) *Service {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = DefaultMaxBodyBytes
	}
	s := &Service{deps: d, router: chi.NewRouter(), log: logger.Component("server")}
	if d.Provider != nil {
		s.solver = solution.NewGenerator(d.Provider)
	}
	s.setupRoutes()
	return s
}

func (s *Service) Handler() http.Handler { return s.router }

func (s *Service) setupRoutes() {
	r := s.router
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	r.Post("/process", s.handleProcess)
	r.Post("/export", s.handleExport)
	r.Post("/solution", s.handleSolution)
	r.Get("/providers/test", s.handleProviderTest)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/start", s.handleSessionStart)
		r.Post("/stop", s.handleSessionStop)
		r.Post("/cancel", s.handleSessionCancel)
		r.Get("/current", s.handleSessionCurrent)
	})
	r.Get("/demo", s.handleDemo)
}

func (s *Service) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithRequest(r).
			WithField("status", ww.Status()).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			Info("request served")
	})
}

func (s *Service) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.deps.MaxBodyBytes))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return nil, false
	}
	if len(raw) == 0 {
		s.writeError(w, r, http.StatusBadRequest, errors.New("empty request body"))
		return nil, false
	}
	return raw, true
}

func (s *Service) handleProcess(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	md, err := s.deps.Pipeline.Process(r.Context(), raw, nil)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, md)
}

func (s *Service) handleExport(w http.ResponseWriter, r *http.Request) {
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	out, err := s.deps.Pipeline.ExportForExternalAgent(r.Context(), raw, nil)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, out)
}

func (s *Service) handleSolution(w http.ResponseWriter, r *http.Request) {
	if s.solver == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, provider.ErrNotConfigured)
		return
	}
	raw, ok := s.readBody(w, r)
	if !ok {
		return
	}
	var md types.ProcessedMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	sol, err := s.solver.Generate(r.Context(), md)
	if err != nil {
		s.writeError(w, r, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sol)
}

type providerStatus struct {
	OK       bool   `json:"ok"`
	Provider string `json:"provider,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (s *Service) handleProviderTest(w http.ResponseWriter, r *http.Request) {
	p := s.deps.Provider
	if p == nil {
		s.writeJSON(w, r, http.StatusServiceUnavailable, providerStatus{Error: provider.ErrNotConfigured.Error()})
		return
	}
	if err := p.TestConnection(r.Context()); err != nil {
		s.writeJSON(w, r, http.StatusBadGateway, providerStatus{Provider: string(p.Name()), Error: err.Error()})
		return
	}
	s.writeJSON(w, r, http.StatusOK, providerStatus{OK: true, Provider: string(p.Name())})
}

func (s *Service) sessions(w http.ResponseWriter, r *http.Request) (Sessions, bool) {
	if s.deps.Sessions == nil {
		s.writeError(w, r, http.StatusServiceUnavailable, errors.New("recording is not available on this host"))
		return nil, false
	}
	return s.deps.Sessions, true
}

func (s *Service) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	m, ok := s.sessions(w, r)
	if !ok {
		return
	}
	sess, err := m.Start(r.Context())
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, sess)
}

func (s *Service) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	m, ok := s.sessions(w, r)
	if !ok {
		return
	}
	md, err := m.Stop(r.Context(), nil)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, md)
}

func (s *Service) handleSessionCancel(w http.ResponseWriter, r *http.Request) {
	m, ok := s.sessions(w, r)
	if !ok {
		return
	}
	md, err := m.Cancel(r.Context(), nil)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if md == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeJSON(w, r, http.StatusOK, md)
}

func (s *Service) handleSessionCurrent(w http.ResponseWriter, r *http.Request) {
	m, ok := s.sessions(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, r, http.StatusOK, m.Current())
}

// handleDemo processes the first rows of the configured manifest.
func (s *Service) handleDemo(w http.ResponseWriter, r *http.Request) {
	limit := DefaultDemoLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, r, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}
	recs, err := dataset.Load(s.deps.ManifestPath)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, dataset.Run(r.Context(), recs, s.deps.Pipeline, limit))
}

// statusFor maps pipeline and session errors to HTTP statuses.
func statusFor(err error) int {
	var stage *processor.StageError
	var capErr *capture.CaptureError
	switch {
	case errors.Is(err, session.ErrBusy), errors.Is(err, session.ErrNotRecording):
		return http.StatusConflict
	case errors.As(err, &stage):
		return http.StatusUnprocessableEntity
	case errors.As(err, &capErr):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Service) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	entry := s.log.WithRequest(r).WithField("status", status).WithField("error", err.Error())
	if status >= http.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Warn("request rejected")
	}
	s.writeJSON(w, r, status, errorBody{Error: err.Error()})
}

func (s *Service) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.log.WithRequest(r).WithField("error", err.Error()).Error("failed to write response")
	}
}
