package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"podflow/internal/config"
	"podflow/internal/logging"
	"podflow/internal/metrics"
	"podflow/internal/services"
	"podflow/internal/stage"
	"podflow/internal/workflow"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 200
	maxRequestBytes     = 1 << 16
)

// Trigger starts a batch of workflow runs.
type Trigger interface {
	RunActive(ctx context.Context, sel workflow.Selector) (workflow.BatchResult, error)
}

// HealthSource reports collaborator readiness.
type HealthSource interface {
	Health(ctx context.Context) []stage.Health
}

// Server is the HTTP surface over runs.
type Server struct {
	runs    *RunService
	trigger Trigger
	health  HealthSource
	token   string
	bind    string
	logger  *slog.Logger
	router  *mux.Router

	mu      sync.Mutex
	baseCtx context.Context
	wg      sync.WaitGroup
}

// NewServer builds the server and its routes.
func NewServer(cfg *config.Config, runs *RunService, trigger Trigger, health HealthSource, logger *slog.Logger) *Server {
	s := &Server{
		runs:    runs,
		trigger: trigger,
		health:  health,
		logger:  logging.NewComponentLogger(logger, "api"),
		baseCtx: context.Background(),
	}
	if cfg != nil {
		s.token = strings.TrimSpace(cfg.Paths.APIToken)
		s.bind = cfg.Paths.APIBind
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.observe)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.Use(s.authorize)
	v1.HandleFunc("/runs", s.handleStartRun).Methods(http.MethodPost)
	v1.HandleFunc("/runs", s.handleListRuns).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}", s.handleGetRun).Methods(http.MethodGet)
	v1.HandleFunc("/workflows", s.handleListWorkflows).Methods(http.MethodGet)
	return r
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on the configured bind address until ctx is done, then shuts
// down and waits for background runs to finish.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "api", "listen", s.bind, err)
	}
	return s.ServeListener(ctx, listener)
}

// ServeListener is Serve over an existing listener.
func (s *Server) ServeListener(ctx context.Context, listener net.Listener) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	s.logger.Info("api listening",
		logging.String(logging.FieldEventType, "api_listening"),
		logging.String("addr", listener.Addr().String()),
	)

	select {
	case err := <-errCh:
		s.wg.Wait()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.wg.Wait()
	return err
}

// Wait blocks until every run started through the API has finished.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	if s.trigger == nil {
		writeError(w, http.StatusServiceUnavailable, services.Wrap(services.ErrConfiguration, "api", "start run", "runner unavailable", nil))
		return
	}
	var req RunRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, services.Wrap(services.ErrValidation, "api", "decode run request", "invalid JSON body", err))
			return
		}
	}
	if req.WorkflowID < 0 {
		writeError(w, http.StatusBadRequest, services.Wrap(services.ErrValidation, "api", "start run", "workflowId must not be negative", nil))
		return
	}

	s.mu.Lock()
	base := s.baseCtx
	s.mu.Unlock()
	sel := workflow.Selector{WorkflowID: req.WorkflowID, TopicOverride: req.Topic}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		batch, err := s.trigger.RunActive(base, sel)
		if err != nil {
			logging.ErrorWithContext(s.logger, "api run batch failed", "api_run_failed",
				logging.Int64("workflow_id", sel.WorkflowID),
				logging.Error(err),
			)
			return
		}
		s.logger.Info("api run batch finished",
			logging.String(logging.FieldEventType, "api_run_complete"),
			logging.Int("runs", len(batch.Runs)),
			logging.Bool("aborted", batch.Aborted()),
		)
	}()
	writeJSON(w, http.StatusAccepted, RunAccepted{Accepted: true, WorkflowID: req.WorkflowID})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, services.Wrap(services.ErrValidation, "api", "list runs", "limit must be a positive integer", nil))
			return
		}
		limit = min(n, maxRunListLimit)
	}
	runs, err := s.runs.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []RunSummary{}
	}
	writeJSON(w, http.StatusOK, RunListResponse{Runs: runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	detail, err := s.runs.Describe(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if detail == nil {
		writeError(w, http.StatusNotFound, services.Wrap(services.ErrNotFound, "api", "get run", fmt.Sprintf("run %s not found", id), nil))
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	workflows, err := s.runs.Workflows(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if workflows == nil {
		workflows = []Workflow{}
	}
	writeJSON(w, http.StatusOK, WorkflowListResponse{Workflows: workflows})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var results []stage.Health
	if s.health != nil {
		results = s.health.Health(r.Context())
	}
	resp := FromHealth(results)
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(strings.TrimSpace(got)), []byte(s.token)) != 1 {
			writeError(w, http.StatusUnauthorized, errors.New("missing or invalid bearer token"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, route, rec.status, elapsed)
		s.logger.Debug("api request",
			logging.String("method", r.Method),
			logging.String("route", route),
			logging.Int("status", rec.status),
			logging.Duration("request_duration", elapsed),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}
	if kind := services.Kind(err); kind != "unknown" {
		resp.Kind = kind
	}
	writeJSON(w, status, resp)
}
