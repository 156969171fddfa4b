package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/scorably/scorably/models"
	"github.com/scorably/scorably/repository"
	"github.com/scorably/scorably/scoring"
)

const (
	DefaultMinTranscriptLength = 200
	knowledgeDocLimit          = 5
)

var (
	ErrTranscriptNotFound = errors.New("transcript not found")
	ErrNoAttribution      = errors.New("transcript has no originating connection")
	ErrCallNotFound       = errors.New("call not found")
	ErrAnalysisInFlight   = errors.New("analysis already in flight for this call")
)

// AnalysisResult is the envelope returned by Analyze, mirroring the
// trigger surface contract.
type AnalysisResult struct {
	Success   bool   `json:"success"`
	CallID    string `json:"call_id"`
	SessionID string `json:"session_id,omitempty"`
	Skipped   bool   `json:"skipped,omitempty"`
	Error     string `json:"error,omitempty"`
}

// AnalysisPipeline drives a call from raw transcript to a completed
// scoring session. Stage 1 (Ingest) is synchronous and cheap; Stage 2
// (Analyze) talks to the grading service and is driven by the sweeper or
// a manual trigger. Every Stage 2 exit path lands the call on a terminal
// status pair.
type AnalysisPipeline struct {
	repo                *repository.GORMRepository
	resolver            *TemplateResolver
	grader              Grader
	minTranscriptLength int
}

func NewAnalysisPipeline(repo *repository.GORMRepository, resolver *TemplateResolver, grader Grader, minTranscriptLength int) *AnalysisPipeline {
	if minTranscriptLength <= 0 {
		minTranscriptLength = DefaultMinTranscriptLength
	}
	return &AnalysisPipeline{
		repo:                repo,
		resolver:            resolver,
		grader:              grader,
		minTranscriptLength: minTranscriptLength,
	}
}

// Ingest ensures exactly one call exists for the transcript. Calling it
// twice with the same transcript id returns the same call both times.
// Attribution defaults to the owner of the originating connection.
func (p *AnalysisPipeline) Ingest(ctx context.Context, transcriptID string) (*models.Call, error) {
	transcript, err := p.repo.GetTranscript(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if transcript == nil {
		return nil, fmt.Errorf("%w: %s", ErrTranscriptNotFound, transcriptID)
	}

	existing, err := p.repo.GetCallByTranscriptID(ctx, transcriptID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		slog.Info("Call already exists for transcript", "call_id", existing.ID, "transcript_id", transcriptID)
		return existing, nil
	}

	if transcript.Connection == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoAttribution, transcriptID)
	}

	duration := 0
	if transcript.MeetingStartedAt != nil && transcript.MeetingEndedAt != nil {
		duration = int(transcript.MeetingEndedAt.Sub(*transcript.MeetingStartedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
	}

	call := &models.Call{
		OrganizationID:  transcript.Connection.OrganizationID,
		UserID:          transcript.Connection.OwnerID,
		TranscriptID:    &transcript.ID,
		Title:           transcript.MeetingTitle,
		Source:          callSource(transcript.Connection.Provider),
		Status:          models.CallStatusPending,
		AnalysisStatus:  models.AnalysisStatusPending,
		DurationSeconds: duration,
	}
	if err := p.repo.CreateCall(ctx, call); err != nil {
		// A concurrent ingest may have won the unique transcript index.
		if winner, lookupErr := p.repo.GetCallByTranscriptID(ctx, transcriptID); lookupErr == nil && winner != nil {
			return winner, nil
		}
		return nil, err
	}
	return call, nil
}

// callSource maps a connection provider onto the call source enum,
// defaulting to webhook for providers without a dedicated source.
func callSource(provider string) string {
	switch provider {
	case models.CallSourceManual, models.CallSourceGoogleMeet, models.CallSourceUpload:
		return provider
	default:
		return models.CallSourceWebhook
	}
}

// Analyze runs Stage 2 for one call. Re-running against a call that
// already completed is a safe no-op; a run already in flight returns
// ErrAnalysisInFlight. Grading and persistence failures land the call in
// failed/failed and the session in cancelled, and are reported in the
// result envelope.
func (p *AnalysisPipeline) Analyze(ctx context.Context, callID string) (*AnalysisResult, error) {
	call, err := p.repo.GetCallWithSession(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, fmt.Errorf("%w: %s", ErrCallNotFound, callID)
	}

	if call.AnalysisStatus == models.AnalysisStatusCompleted {
		result := &AnalysisResult{Success: true, CallID: callID}
		if call.SessionID != nil {
			result.SessionID = *call.SessionID
		}
		slog.Info("Call already analyzed, skipping", "call_id", callID, "session_id", result.SessionID)
		return result, nil
	}
	if call.AnalysisStatus == models.AnalysisStatusSkipped {
		return &AnalysisResult{Success: true, CallID: callID, Skipped: true}, nil
	}

	claimed, err := p.repo.ClaimCallForAnalysis(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("%w: %s", ErrAnalysisInFlight, callID)
	}

	return p.runClaimed(ctx, call), nil
}

// runClaimed executes the grading flow for a call this run owns. Any
// error or panic past this point must still land the call on a terminal
// status pair.
func (p *AnalysisPipeline) runClaimed(ctx context.Context, call *models.Call) (result *AnalysisResult) {
	var sessionID string

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Analysis run panicked", "call_id", call.ID, "panic", rec)
			p.failCall(call.ID, sessionID)
			result = &AnalysisResult{
				Success: false,
				CallID:  call.ID,
				Error:   fmt.Sprintf("analysis panicked: %v", rec),
			}
		}
	}()

	var skipped bool
	var err error
	sessionID, skipped, err = p.grade(ctx, call)
	if err != nil {
		slog.Error("Analysis run failed", "call_id", call.ID, "error", err)
		p.failCall(call.ID, sessionID)
		return &AnalysisResult{Success: false, CallID: call.ID, Error: err.Error()}
	}
	if skipped {
		return &AnalysisResult{Success: true, CallID: call.ID, Skipped: true}
	}
	return &AnalysisResult{Success: true, CallID: call.ID, SessionID: sessionID}
}

func (p *AnalysisPipeline) grade(ctx context.Context, call *models.Call) (sessionID string, skipped bool, err error) {
	// Short or missing transcripts are a terminal non-error outcome.
	text := ""
	if call.Transcript != nil {
		text = call.Transcript.Text
	}
	if len(strings.TrimSpace(text)) < p.minTranscriptLength {
		slog.Info("Transcript too short for analysis, skipping", "call_id", call.ID, "length", len(text))
		return "", true, p.skipCall(ctx, call.ID)
	}

	template, err := p.resolver.Resolve(ctx, call.OrganizationID, call.UserID)
	if err != nil {
		return "", false, fmt.Errorf("resolve template: %w", err)
	}
	if template == nil {
		slog.Info("No template resolved for call, skipping", "call_id", call.ID)
		return "", true, p.skipCall(ctx, call.ID)
	}

	spec := template.Spec()
	if err := scoring.ValidateTemplate(spec); err != nil {
		return "", false, fmt.Errorf("template %s: %w", template.ID, err)
	}

	session := &models.ScoringSession{
		OrganizationID:   call.OrganizationID,
		CallID:           call.ID,
		TemplateID:       template.ID,
		AgentID:          call.UserID,
		Status:           models.SessionStatusInProgress,
		TemplateSnapshot: spec,
		PassStatus:       string(scoring.PassStatusPending),
	}
	if err := p.repo.CreateSession(ctx, session); err != nil {
		return "", false, fmt.Errorf("create session: %w", err)
	}
	sessionID = session.ID

	if err := p.repo.LinkCallSession(ctx, call.ID, session.ID); err != nil {
		return sessionID, false, fmt.Errorf("link session to call: %w", err)
	}

	knowledge, err := p.knowledgeContext(ctx, call.OrganizationID)
	if err != nil {
		return sessionID, false, fmt.Errorf("load knowledge context: %w", err)
	}

	grading, err := p.grader.Grade(ctx, GradingRequest{
		TranscriptText:   text,
		Template:         spec,
		KnowledgeContext: knowledge,
	})
	if err != nil {
		return sessionID, false, fmt.Errorf("grading service: %w", err)
	}

	inputs, rows := p.buildScores(spec, session.ID, grading.Answers)
	if err := p.repo.CreateScores(ctx, rows); err != nil {
		return sessionID, false, fmt.Errorf("persist scores: %w", err)
	}

	aggregate, err := scoring.Aggregate(spec, inputs)
	if err != nil {
		return sessionID, false, fmt.Errorf("aggregate session: %w", err)
	}

	now := time.Now()
	session.TotalScore = aggregate.TotalScore
	session.TotalPossible = aggregate.TotalPossible
	session.PercentageScore = aggregate.PercentageScore
	session.PassStatus = string(aggregate.PassStatus)
	session.HasAutoFail = aggregate.HasAutoFail
	session.AutoFailCriteria = aggregate.AutoFailCriteria
	session.Status = models.SessionStatusCompleted
	session.CompletedAt = &now
	if err := p.repo.UpdateSession(ctx, session); err != nil {
		return sessionID, false, fmt.Errorf("finalize session: %w", err)
	}

	if err := p.repo.SetCallOutcome(ctx, call.ID, models.CallStatusAnalyzed, models.AnalysisStatusCompleted); err != nil {
		return sessionID, false, fmt.Errorf("finalize call: %w", err)
	}

	slog.Info("Call analyzed",
		"call_id", call.ID,
		"session_id", session.ID,
		"percentage_score", aggregate.PercentageScore,
		"pass_status", aggregate.PassStatus,
		"has_auto_fail", aggregate.HasAutoFail)

	return sessionID, false, nil
}

// buildScores converts grader answers into persisted score rows plus the
// matching aggregation inputs. Answers for unknown criteria or with
// malformed values are logged and dropped rather than failing the run.
func (p *AnalysisPipeline) buildScores(spec scoring.TemplateSpec, sessionID string, answers []CriterionAnswer) ([]scoring.ScoreInput, []models.Score) {
	specs := make(map[string]scoring.CriterionSpec, len(spec.Criteria))
	for _, c := range spec.Criteria {
		specs[c.ID] = c
	}

	inputs := make([]scoring.ScoreInput, 0, len(answers))
	rows := make([]models.Score, 0, len(answers))
	now := time.Now()

	for _, answer := range answers {
		criterion, ok := specs[answer.CriterionID]
		if !ok {
			slog.Warn("Grader answered unknown criterion, dropping", "session_id", sessionID, "criterion_id", answer.CriterionID)
			continue
		}

		result, err := scoring.ScoreCriterion(criterion, answer.Value, answer.NotApplicable)
		if err != nil {
			slog.Warn("Grader answer not scorable, dropping", "session_id", sessionID, "criterion_id", answer.CriterionID, "error", err)
			continue
		}
		if !result.NotApplicable && answer.AutoFail && criterion.AutoFail {
			result.AutoFailTriggered = true
		}

		inputs = append(inputs, scoring.ScoreInput{
			CriterionID:   answer.CriterionID,
			Value:         answer.Value,
			NotApplicable: answer.NotApplicable,
			Comment:       answer.Comment,
			ForceAutoFail: answer.AutoFail,
		})
		rows = append(rows, models.Score{
			SessionID:         sessionID,
			CriterionID:       answer.CriterionID,
			Value:             answer.Value,
			NotApplicable:     result.NotApplicable,
			RawScore:          result.RawScore,
			NormalizedScore:   result.NormalizedScore,
			WeightedScore:     result.WeightedScore,
			AutoFailTriggered: result.AutoFailTriggered,
			Comment:           answer.Comment,
			ScoredBy:          models.ScoredByAI,
			ScoredAt:          now,
		})
	}

	return inputs, rows
}

func (p *AnalysisPipeline) knowledgeContext(ctx context.Context, orgID string) ([]string, error) {
	docs, err := p.repo.ListKnowledgeDocs(ctx, orgID, knowledgeDocLimit)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(docs))
	for _, doc := range docs {
		texts = append(texts, doc.Title+"\n"+doc.Content)
	}
	return texts, nil
}

func (p *AnalysisPipeline) skipCall(ctx context.Context, callID string) error {
	return p.repo.SetCallOutcome(ctx, callID, models.CallStatusAnalyzed, models.AnalysisStatusSkipped)
}

// failCall lands the call and its session in terminal failure states. It
// uses a fresh context so a cancelled request cannot leave the call stuck
// in analyzing.
func (p *AnalysisPipeline) failCall(callID, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := p.repo.SetCallOutcome(ctx, callID, models.CallStatusFailed, models.AnalysisStatusFailed); err != nil {
		slog.Error("Failed to mark call failed", "call_id", callID, "error", err)
	}
	if sessionID != "" {
		if err := p.repo.SetSessionStatus(ctx, sessionID, models.SessionStatusCancelled); err != nil {
			slog.Error("Failed to cancel session", "session_id", sessionID, "error", err)
		}
	}
}
