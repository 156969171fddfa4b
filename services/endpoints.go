package services

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/scorably/scorably/models"
	"github.com/scorably/scorably/repository"
)

// PipelineEndpoints exposes the trigger surface: transcript ingestion,
// manual analysis triggers and read-only call/session lookups for
// operators.
type PipelineEndpoints struct {
	repo     *repository.GORMRepository
	pipeline *AnalysisPipeline
}

func NewPipelineEndpoints(repo *repository.GORMRepository, pipeline *AnalysisPipeline) *PipelineEndpoints {
	return &PipelineEndpoints{
		repo:     repo,
		pipeline: pipeline,
	}
}

type IngestTranscriptRequest struct {
	ConnectionID     string     `json:"connection_id"`
	Text             string     `json:"text"`
	MeetingTitle     string     `json:"meeting_title,omitempty"`
	MeetingStartedAt *time.Time `json:"meeting_started_at,omitempty"`
	MeetingEndedAt   *time.Time `json:"meeting_ended_at,omitempty"`
	Participants     []string   `json:"participants,omitempty"`
}

type IngestTranscriptResponse struct {
	Call    models.Call `json:"call"`
	Message string      `json:"message"`
}

type GetCallsResponse struct {
	Calls []models.Call `json:"calls"`
	Count int           `json:"count"`
}

func (e *PipelineEndpoints) RegisterRoutes(r chi.Router) {
	r.Route("/transcripts", func(r chi.Router) {
		r.Post("/", e.IngestTranscriptHandler)
	})

	r.Route("/calls", func(r chi.Router) {
		r.Get("/", e.GetCallsHandler)
		r.Get("/{id}", e.GetCallHandler)
		r.Post("/{id}/analyze", e.AnalyzeCallHandler)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/{id}", e.GetSessionHandler)
	})
}

// IngestTranscriptHandler persists an incoming transcript and runs Stage 1
// synchronously: exactly one call per transcript, no AI involved.
func (e *PipelineEndpoints) IngestTranscriptHandler(w http.ResponseWriter, r *http.Request) {
	var req IngestTranscriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ConnectionID == "" {
		http.Error(w, "connection_id is required", http.StatusBadRequest)
		return
	}

	conn, err := e.repo.GetMeetingConnection(r.Context(), req.ConnectionID)
	if err != nil {
		slog.Error("Failed to get meeting connection", "error", err, "connection_id", req.ConnectionID)
		http.Error(w, "Failed to validate connection", http.StatusInternalServerError)
		return
	}
	if conn == nil {
		http.Error(w, "Connection not found", http.StatusNotFound)
		return
	}

	transcript := models.Transcript{
		ConnectionID:     &conn.ID,
		Text:             req.Text,
		MeetingTitle:     req.MeetingTitle,
		MeetingStartedAt: req.MeetingStartedAt,
		MeetingEndedAt:   req.MeetingEndedAt,
		Participants:     req.Participants,
	}
	if err := e.repo.CreateTranscript(r.Context(), &transcript); err != nil {
		slog.Error("Failed to create transcript", "error", err)
		http.Error(w, "Failed to create transcript", http.StatusInternalServerError)
		return
	}

	call, err := e.pipeline.Ingest(r.Context(), transcript.ID)
	if err != nil {
		slog.Error("Failed to ingest transcript", "error", err, "transcript_id", transcript.ID)
		http.Error(w, "Failed to ingest transcript", http.StatusInternalServerError)
		return
	}

	response := IngestTranscriptResponse{
		Call:    *call,
		Message: "Transcript ingested successfully",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)

	slog.Info("Transcript ingested", "transcript_id", transcript.ID, "call_id", call.ID)
}

// AnalyzeCallHandler triggers Stage 2 for one call. Safe to call again on
// an already-analyzed call.
func (e *PipelineEndpoints) AnalyzeCallHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "id")

	result, err := e.pipeline.Analyze(r.Context(), callID)
	if err != nil {
		switch {
		case errors.Is(err, ErrCallNotFound):
			http.Error(w, "Call not found", http.StatusNotFound)
		case errors.Is(err, ErrAnalysisInFlight):
			http.Error(w, "Analysis already in progress", http.StatusConflict)
		default:
			slog.Error("Failed to analyze call", "error", err, "call_id", callID)
			http.Error(w, "Failed to analyze call", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}

func (e *PipelineEndpoints) GetCallsHandler(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("organization_id")
	if orgID == "" {
		http.Error(w, "organization_id is required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	calls, err := e.repo.ListCalls(r.Context(), orgID, limit)
	if err != nil {
		slog.Error("Failed to list calls", "error", err, "organization_id", orgID)
		http.Error(w, "Failed to list calls", http.StatusInternalServerError)
		return
	}

	response := GetCallsResponse{Calls: calls, Count: len(calls)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

func (e *PipelineEndpoints) GetCallHandler(w http.ResponseWriter, r *http.Request) {
	callID := chi.URLParam(r, "id")

	call, err := e.repo.GetCallWithSession(r.Context(), callID)
	if err != nil {
		slog.Error("Failed to get call", "error", err, "call_id", callID)
		http.Error(w, "Failed to get call", http.StatusInternalServerError)
		return
	}
	if call == nil {
		http.Error(w, "Call not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(call)
}

func (e *PipelineEndpoints) GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")

	session, err := e.repo.GetSession(r.Context(), sessionID)
	if err != nil {
		slog.Error("Failed to get session", "error", err, "session_id", sessionID)
		http.Error(w, "Failed to get session", http.StatusInternalServerError)
		return
	}
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(session)
}
