package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/liamcoop/variations/form"
	"github.com/liamcoop/variations/internal/config"
	"github.com/liamcoop/variations/internal/logger"
	"github.com/liamcoop/variations/variations"
	_ "github.com/lib/pq"
)

// maxBodyBytes bounds a definition upload
const maxBodyBytes = 1 << 20

type Server struct {
	cfg    config.Config
	db     *sql.DB // nil when history is kept in memory
	engine *variations.Engine
	store  variations.GenerationStore
	router *chi.Mux
}

// NewServer wires the engine and a history store behind the HTTP API.
// db is only used for health checks and may be nil.
func NewServer(cfg config.Config, db *sql.DB, engine *variations.Engine, store variations.GenerationStore) *Server {
	s := &Server{
		cfg:    cfg,
		db:     db,
		engine: engine,
		store:  store,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/api/v1/health", s.handleHealth)
	r.Get("/api/v1/relations", s.handleListRelations)

	r.Post("/api/v1/generate", s.handleGenerate)

	r.Route("/api/v1/generations", func(r chi.Router) {
		r.Get("/", s.handleListGenerations)
		r.Get("/{generationId}", s.handleGetGeneration)
		r.Delete("/{generationId}", s.handleDeleteGeneration)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) historyBackend() string {
	if s.db != nil {
		return "postgres"
	}
	return "memory"
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status:  "unhealthy",
				History: s.historyBackend(),
				Error:   err.Error(),
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		History:  s.historyBackend(),
		Counters: logger.Counters(),
	})
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	relations := variations.Relations()
	names := make([]string, 0, len(relations))
	for _, rel := range relations {
		names = append(names, rel.String())
	}
	respondJSON(w, http.StatusOK, RelationsResponse{Relations: names})
}

// Generation handler
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	def, err := form.Decode(http.MaxBytesReader(w, r.Body, maxBodyBytes), form.FormatJSON)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	req, err := def.ToRequest(s.cfg.MaxInputs)
	if err != nil {
		logger.Rejected()
		respondError(w, http.StatusBadRequest, "invalid definition", err)
		return
	}

	startTime := time.Now()

	res, err := s.engine.Generate(req)
	if err != nil {
		if variations.IsPrecondition(err) {
			logger.Rejected()
			respondError(w, http.StatusBadRequest, "invalid definition", err)
			return
		}
		logger.Error("generation failed", "indicator", req.IndicatorName, "case", req.Case, "error", err)
		respondError(w, http.StatusInternalServerError, "generation failed", err)
		return
	}

	generationTime := time.Since(startTime)
	logger.Generated()

	// History is best effort; the caller still gets the output
	if err := s.store.Add(r.Context(), variations.GenerationFromResult(res)); err != nil {
		logger.Error("failed to record generation", "id", res.ID, "error", err)
	}

	logger.Info("generation completed",
		"id", res.ID,
		"indicator", res.IndicatorName,
		"case", res.Case,
		"total", res.Total,
		"kept", res.Kept,
		"duration", generationTime,
	)

	respondJSON(w, http.StatusOK, GenerateResponse{
		Result:         res,
		GenerationTime: generationTime.String(),
	})
}

// List generations handler
func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer", err)
			return
		}
		limit = n
	}

	generations, err := s.store.ListRecent(r.Context(), limit)
	if err != nil {
		logger.Error("failed to list generations", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list generations", err)
		return
	}
	if generations == nil {
		generations = []*variations.Generation{}
	}

	respondJSON(w, http.StatusOK, GenerationsListResponse{Generations: generations})
}

// Get generation handler
func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "generationId")

	g, err := s.store.Get(r.Context(), id)
	if errors.Is(err, variations.ErrGenerationNotFound) {
		respondError(w, http.StatusNotFound, "generation not found", nil)
		return
	}
	if err != nil {
		logger.Error("failed to get generation", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get generation", err)
		return
	}

	respondJSON(w, http.StatusOK, g)
}

// Delete generation handler
func (s *Server) handleDeleteGeneration(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "generationId")

	err := s.store.Delete(r.Context(), id)
	if errors.Is(err, variations.ErrGenerationNotFound) {
		respondError(w, http.StatusNotFound, "generation not found", nil)
		return
	}
	if err != nil {
		logger.Error("failed to delete generation", "id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to delete generation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	switch {
	case status >= 500:
		logger.ErrorHttp5xx()
	case status >= 400:
		logger.WarnHttp4xx()
	}

	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

// openHistory picks the Postgres store when a database URL is configured
func openHistory(ctx context.Context, cfg config.Config) (*sql.DB, variations.GenerationStore, error) {
	if cfg.DatabaseURL == "" {
		return nil, variations.NewInMemoryGenerationStore(cfg.HistoryLimit), nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, variations.NewPostgresGenerationStore(db), nil
}

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		logger.Fatal("failed to load configuration", "error", err)
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("invalid LOG_LEVEL", "error", err)
	}
	logger.SetLevel(level)

	engine, err := variations.NewEngineWithLogger(logger.Logger)
	if err != nil {
		logger.Fatal("failed to create engine", "error", err)
	}

	db, store, err := openHistory(context.Background(), cfg)
	if err != nil {
		logger.Fatal("failed to open generation history", "error", err)
	}
	if db != nil {
		defer db.Close()
	}

	server := NewServer(cfg, db, engine, store)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	// Graceful shutdown handling
	go func() {
		logger.Info("server starting", "port", cfg.Port, "history", server.historyBackend())
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed to start", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
