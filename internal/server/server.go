// Package server exposes the orchestrator over HTTP: run creation,
// trace and insight retrieval, and the graph visualization pages.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"arc/internal/orchestrator"
	"arc/internal/schema"
	"arc/internal/store"
)

// Info is the non-sensitive configuration summary surfaced by the root
// and debug endpoints.
type Info struct {
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	RequireProvider bool   `json:"require_provider"`
	RetrievalChunks int    `json:"retrieval_chunks"`
	FilesDir        string `json:"files_dir"`
}

// Server wires the orchestrator and store into a chi router.
type Server struct {
	Router *chi.Mux
	Port   int

	orch   *orchestrator.Orchestrator
	store  *store.Store
	info   Info
	logger *zap.Logger
}

// New builds the HTTP server.
func New(port int, orch *orchestrator.Orchestrator, st *store.Store, info Info, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		Router: chi.NewRouter(),
		Port:   port,
		orch:   orch,
		store:  st,
		info:   info,
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.Router
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Post("/run", s.handleRun)
	r.Get("/trace/{runID}", s.handleTrace)
	r.Get("/insight/{runID}", s.handleInsight)
	r.Get("/debug/config", s.handleDebugConfig)

	// Specific graph routes must precede the parameterized one.
	r.Get("/graph/live/{runID}/stream", s.handleLiveStream)
	r.Get("/graph/live/{runID}", s.handleLiveGraph)
	r.Get("/graph/live", s.redirectLatest("/graph/live/"))
	r.Get("/graph/{runID}", s.handleGraph)
	r.Get("/graph", s.redirectLatest("/graph/"))
}

// Start blocks serving HTTP.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":      "Agentic Research Collaborator",
		"status":   "ok",
		"provider": s.info.Provider,
		"model":    s.info.Model,
		"endpoints": map[string]string{
			"POST /run":                    "Start a run with {topic, max_turns, consensus_threshold}",
			"GET /trace/{run_id}":          "Fetch conversation trace",
			"GET /insight/{run_id}":        "Fetch final insight report",
			"GET /graph/{run_id}":          "View conversation flow graph for a run",
			"GET /graph":                   "View graph for the most recent run",
			"GET /graph/live/{run_id}":     "Live updating graph for an ongoing run",
			"GET /health":                  "Basic health check",
			"GET /debug/config":            "Non-sensitive configuration summary",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleRun starts a run synchronously and returns its id. Run
// failures surface as 503 so callers can retry; malformed requests are
// 400. Low confidence is not an error.
func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req schema.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runID, err := s.orch.Start(r.Context(), orchestrator.RunOptions{
		Topic:              req.Topic,
		MaxTurns:           req.MaxTurns,
		ConsensusThreshold: req.ConsensusThreshold,
		EnableRetrieval:    req.EnableRetrieval,
		FilesDir:           req.FilesDir,
		RetrievalK:         req.RetrievalK,
	})
	if err != nil {
		s.logger.Error("run failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("run failed: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, schema.RunResponse{RunID: runID})
}

func (s *Server) handleTrace(w http.ResponseWriter, r *http.Request) {
	trace, err := s.orch.LoadTrace(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func (s *Server) handleInsight(w http.ResponseWriter, r *http.Request) {
	report, err := s.orch.LoadReport(chi.URLParam(r, "runID"))
	if err != nil {
		s.writeLoadError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleDebugConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.info)
}

// redirectLatest sends the caller to the page for the most recent run.
func (s *Server) redirectLatest(prefix string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID, err := s.store.LatestRunID()
		if err != nil {
			s.writeLoadError(w, err)
			return
		}
		http.Redirect(w, r, prefix+runID, http.StatusFound)
	}
}

func (s *Server) writeLoadError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Run not found")
		return
	}
	s.logger.Error("load failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
