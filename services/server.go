package services

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/scorably/scorably/repository"
	"gorm.io/gorm"
)

// Server holds all server dependencies
type Server struct {
	config            *Config
	repo              *repository.GORMRepository
	rawDB             *gorm.DB
	grader            Grader
	resolver          *TemplateResolver
	pipeline          *AnalysisPipeline
	sweeper           *AnalysisSweeper
	pipelineEndpoints *PipelineEndpoints
}

// NewServer creates a new server instance
func NewServer(config *Config) *Server {
	return &Server{config: config}
}

// SetDatabase sets the database connection
func (s *Server) SetDatabase(repo *repository.GORMRepository, rawDB *gorm.DB) {
	s.repo = repo
	s.rawDB = rawDB
}

// SetGrader overrides the grading service, mainly for tests.
func (s *Server) SetGrader(grader Grader) {
	s.grader = grader
}

// InitializeServices initializes all server services
func (s *Server) InitializeServices() error {
	if s.repo == nil {
		slog.Warn("Database not configured, trigger surface disabled")
		return nil
	}

	if s.grader == nil && s.config.AI.GeminiAPIKey != "" {
		s.grader = NewGeminiGrader(s.config.AI.GeminiAPIKey, s.config.AI.Model)
		slog.Info("Gemini grader initialized", "model", s.config.AI.Model)
	}

	s.resolver = NewTemplateResolver(s.repo)

	if s.grader != nil {
		s.pipeline = NewAnalysisPipeline(s.repo, s.resolver, s.grader, s.config.Pipeline.MinTranscriptLength)
		s.sweeper = NewAnalysisSweeper(s.repo, s.pipeline, s.config.Pipeline)
		s.pipelineEndpoints = NewPipelineEndpoints(s.repo, s.pipeline)
		slog.Info("Analysis pipeline initialized")
	} else {
		slog.Warn("No grader configured, auto-analysis disabled")
	}

	return nil
}

// SetupRoutes configures all HTTP routes
func (s *Server) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health endpoint
	r.Get("/health", s.healthHandler)

	// API v1 route group
	r.Route("/api/v1", func(r chi.Router) {
		if s.pipelineEndpoints != nil {
			s.pipelineEndpoints.RegisterRoutes(r)
		}
	})

	return r
}

// Start starts the HTTP server and the analysis sweeper
func (s *Server) Start() {
	port := s.config.Server.Port
	if port == "" {
		port = "8080"
	}

	if s.sweeper != nil {
		s.sweeper.Start()
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: s.SetupRoutes(),
	}

	// Graceful shutdown
	go func() {
		slog.Info("Starting server", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")
	if s.sweeper != nil {
		s.sweeper.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exited")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	dbStatus := "not configured"

	if s.rawDB != nil {
		if sqlDB, err := s.rawDB.DB(); err == nil {
			if err := sqlDB.Ping(); err != nil {
				dbStatus = "down"
				status = "degraded"
			} else {
				dbStatus = "up"
			}
		} else {
			dbStatus = "down"
			status = "degraded"
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"` + status + `","database":"` + dbStatus + `"}`))

	slog.Info("Health check", "status", status, "database", dbStatus)
}
