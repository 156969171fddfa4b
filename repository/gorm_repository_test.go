package repository

import (
	"context"
	"testing"
	"time"

	"github.com/scorably/scorably/models"
	"github.com/scorably/scorably/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRepo(t *testing.T) *GORMRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One connection keeps the in-memory database alive for the test.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewGORMRepository(db)
	require.NoError(t, repo.AutoMigrate())
	return repo
}

func seedCall(t *testing.T, repo *GORMRepository) *models.Call {
	t.Helper()
	ctx := context.Background()

	transcript := &models.Transcript{Text: "hello"}
	require.NoError(t, repo.CreateTranscript(ctx, transcript))

	call := &models.Call{
		OrganizationID: "org-1",
		UserID:         "agent-1",
		TranscriptID:   &transcript.ID,
		Source:         models.CallSourceWebhook,
		Status:         models.CallStatusPending,
		AnalysisStatus: models.AnalysisStatusPending,
	}
	require.NoError(t, repo.CreateCall(ctx, call))
	return call
}

func TestClaimCallForAnalysis(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	call := seedCall(t, repo)

	claimed, err := repo.ClaimCallForAnalysis(ctx, call.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	got, err := repo.GetCall(ctx, call.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CallStatusProcessing, got.Status)
	assert.Equal(t, models.AnalysisStatusAnalyzing, got.AnalysisStatus)

	// Second claim loses while the first is still in flight.
	claimed, err = repo.ClaimCallForAnalysis(ctx, call.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	// A failed call can be reclaimed for a retry.
	require.NoError(t, repo.SetCallOutcome(ctx, call.ID, models.CallStatusFailed, models.AnalysisStatusFailed))
	claimed, err = repo.ClaimCallForAnalysis(ctx, call.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestClaimCallForAnalysis_TerminalStatuses(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, status := range []string{models.AnalysisStatusCompleted, models.AnalysisStatusSkipped} {
		call := seedCall(t, repo)
		require.NoError(t, repo.SetCallOutcome(ctx, call.ID, models.CallStatusAnalyzed, status))

		claimed, err := repo.ClaimCallForAnalysis(ctx, call.ID)
		require.NoError(t, err)
		assert.False(t, claimed, "status %s must not be reclaimable", status)
	}
}

func TestGetCallByTranscriptID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	got, err := repo.GetCallByTranscriptID(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, got)

	call := seedCall(t, repo)
	got, err = repo.GetCallByTranscriptID(ctx, *call.TranscriptID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, call.ID, got.ID)
}

func TestListCallsPendingAnalysis(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := seedCall(t, repo)
	second := seedCall(t, repo)
	claimed := seedCall(t, repo)
	_, err := repo.ClaimCallForAnalysis(ctx, claimed.ID)
	require.NoError(t, err)

	calls, err := repo.ListCallsPendingAnalysis(ctx, 10)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	ids := []string{calls[0].ID, calls[1].ID}
	assert.Contains(t, ids, first.ID)
	assert.Contains(t, ids, second.ID)
}

func TestSetSessionStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	session := &models.ScoringSession{
		OrganizationID: "org-1",
		CallID:         "call-1",
		TemplateID:     "tpl-1",
		AgentID:        "agent-1",
		Status:         models.SessionStatusInProgress,
		PassStatus:     string(scoring.PassStatusPending),
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	require.NoError(t, repo.SetSessionStatus(ctx, session.ID, models.SessionStatusCompleted))
	got, err := repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.SessionStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)

	require.NoError(t, repo.SetSessionStatus(ctx, session.ID, models.SessionStatusCancelled))
	got, err = repo.GetSession(ctx, session.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.SessionStatusCancelled, got.Status)
}

func TestGetTemplateWithCriteria_Ordering(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	template := &models.Template{
		OrganizationID: "org-1",
		Name:           "Scorecard",
		ScoringMethod:  string(scoring.MethodWeighted),
		PassThreshold:  70,
		Status:         models.TemplateStatusActive,
		Version:        1,
	}
	require.NoError(t, repo.CreateTemplate(ctx, template))

	// Inserted out of display order on purpose.
	for _, c := range []models.Criterion{
		{TemplateID: template.ID, Name: "Third", Type: string(scoring.TypePercentage), Weight: 30, MaxScore: 100, Position: 2},
		{TemplateID: template.ID, Name: "First", Type: string(scoring.TypePercentage), Weight: 40, MaxScore: 100, Position: 0},
		{TemplateID: template.ID, Name: "Second", Type: string(scoring.TypePercentage), Weight: 30, MaxScore: 100, Position: 1},
	} {
		criterion := c
		require.NoError(t, repo.CreateCriterion(ctx, &criterion))
	}

	got, err := repo.GetTemplateWithCriteria(ctx, template.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Len(t, got.Criteria, 3)
	assert.Equal(t, "First", got.Criteria[0].Name)
	assert.Equal(t, "Second", got.Criteria[1].Name)
	assert.Equal(t, "Third", got.Criteria[2].Name)

	missing, err := repo.GetTemplateWithCriteria(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGetActiveAssignments_FiltersExpired(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	expired := &models.TemplateAssignment{OrganizationID: "org-1", TemplateID: "tpl-old", AgentID: "agent-1", ExpiresAt: &past}
	require.NoError(t, repo.CreateAssignment(ctx, expired))
	active := &models.TemplateAssignment{OrganizationID: "org-1", TemplateID: "tpl-new", AgentID: "agent-1", ExpiresAt: &future}
	require.NoError(t, repo.CreateAssignment(ctx, active))
	open := &models.TemplateAssignment{OrganizationID: "org-1", TemplateID: "tpl-open", AgentID: "agent-1"}
	require.NoError(t, repo.CreateAssignment(ctx, open))

	assignments, err := repo.GetActiveAssignments(ctx, "org-1", "agent-1")
	require.NoError(t, err)
	require.Len(t, assignments, 2)
	for _, a := range assignments {
		assert.NotEqual(t, "tpl-old", a.TemplateID)
	}

	none, err := repo.GetActiveAssignments(ctx, "org-1", "someone-else")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateScoresAndGetSessionScores(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	scores := []models.Score{
		{SessionID: "sess-1", CriterionID: "c1", Value: scoring.NumberValue(80), RawScore: 80, NormalizedScore: 80, WeightedScore: 48, ScoredBy: models.ScoredByAI, ScoredAt: time.Now()},
		{SessionID: "sess-1", CriterionID: "c2", Value: scoring.BoolValue(true), RawScore: 100, NormalizedScore: 100, WeightedScore: 40, ScoredBy: models.ScoredByAI, ScoredAt: time.Now()},
	}
	require.NoError(t, repo.CreateScores(ctx, scores))

	got, err := repo.GetSessionScores(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Round-trip through the JSON serializer keeps the value shape.
	for _, score := range got {
		if score.CriterionID == "c1" {
			require.NotNil(t, score.Value.Number)
			assert.Equal(t, 80.0, *score.Value.Number)
		}
	}
}
