package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/scorably/scorably/models"
	"gorm.io/gorm"
)

type GORMRepository struct {
	db *gorm.DB
}

func NewGORMRepository(db *gorm.DB) *GORMRepository {
	return &GORMRepository{db: db}
}

// AutoMigrate runs database migrations
func (r *GORMRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&models.Organization{},
		&models.User{},
		&models.Template{},
		&models.CriteriaGroup{},
		&models.Criterion{},
		&models.TemplateAssignment{},
		&models.KnowledgeDoc{},
		&models.MeetingConnection{},
		&models.Transcript{},
		&models.Call{},
		&models.ScoringSession{},
		&models.Score{},
	)
}

// Organization operations
func (r *GORMRepository) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		slog.Error("Failed to create organization", "error", err)
		return err
	}
	slog.Info("Organization created", "organization_id", org.ID, "name", org.Name)
	return nil
}

func (r *GORMRepository) GetOrganization(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&org).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get organization", "error", err, "organization_id", id)
		return nil, err
	}
	return &org, nil
}

func (r *GORMRepository) UpdateOrganization(ctx context.Context, org *models.Organization) error {
	if err := r.db.WithContext(ctx).Save(org).Error; err != nil {
		slog.Error("Failed to update organization", "error", err, "organization_id", org.ID)
		return err
	}
	return nil
}

// User operations
func (r *GORMRepository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		slog.Error("Failed to create user", "error", err)
		return err
	}
	slog.Info("User created", "user_id", user.ID, "email", user.Email)
	return nil
}

func (r *GORMRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by email", "error", err, "email", email)
		return nil, err
	}
	return &user, nil
}

func (r *GORMRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get user by ID", "error", err, "user_id", id)
		return nil, err
	}
	return &user, nil
}

// Meeting connection operations
func (r *GORMRepository) CreateMeetingConnection(ctx context.Context, conn *models.MeetingConnection) error {
	if err := r.db.WithContext(ctx).Create(conn).Error; err != nil {
		slog.Error("Failed to create meeting connection", "error", err)
		return err
	}
	slog.Info("Meeting connection created", "connection_id", conn.ID, "provider", conn.Provider)
	return nil
}

func (r *GORMRepository) GetMeetingConnection(ctx context.Context, id string) (*models.MeetingConnection, error) {
	var conn models.MeetingConnection
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&conn).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get meeting connection", "error", err, "connection_id", id)
		return nil, err
	}
	return &conn, nil
}

// Transcript operations
func (r *GORMRepository) CreateTranscript(ctx context.Context, transcript *models.Transcript) error {
	if err := r.db.WithContext(ctx).Create(transcript).Error; err != nil {
		slog.Error("Failed to create transcript", "error", err)
		return err
	}
	slog.Info("Transcript created", "transcript_id", transcript.ID)
	return nil
}

func (r *GORMRepository) GetTranscript(ctx context.Context, id string) (*models.Transcript, error) {
	var transcript models.Transcript
	if err := r.db.WithContext(ctx).Where("id = ?", id).Preload("Connection").First(&transcript).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get transcript", "error", err, "transcript_id", id)
		return nil, err
	}
	return &transcript, nil
}

// Call operations
func (r *GORMRepository) CreateCall(ctx context.Context, call *models.Call) error {
	if err := r.db.WithContext(ctx).Create(call).Error; err != nil {
		slog.Error("Failed to create call", "error", err)
		return err
	}
	slog.Info("Call created", "call_id", call.ID, "source", call.Source)
	return nil
}

func (r *GORMRepository) GetCall(ctx context.Context, id string) (*models.Call, error) {
	var call models.Call
	if err := r.db.WithContext(ctx).Where("id = ?", id).Preload("Transcript").First(&call).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get call", "error", err, "call_id", id)
		return nil, err
	}
	return &call, nil
}

func (r *GORMRepository) GetCallWithSession(ctx context.Context, id string) (*models.Call, error) {
	var call models.Call
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Transcript").
		Preload("Session").
		Preload("Session.Scores").
		First(&call).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get call with session", "error", err, "call_id", id)
		return nil, err
	}
	return &call, nil
}

// GetCallByTranscriptID is the idempotency lookup for ingestion: at most
// one call exists per transcript.
func (r *GORMRepository) GetCallByTranscriptID(ctx context.Context, transcriptID string) (*models.Call, error) {
	var call models.Call
	if err := r.db.WithContext(ctx).Where("transcript_id = ?", transcriptID).First(&call).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get call by transcript", "error", err, "transcript_id", transcriptID)
		return nil, err
	}
	return &call, nil
}

// LinkCallSession sets only the session column. A full-row save here
// would overwrite the analyzing lease with whatever status the caller
// loaded before claiming.
func (r *GORMRepository) LinkCallSession(ctx context.Context, callID, sessionID string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Call{}).
		Where("id = ?", callID).
		Update("session_id", sessionID).Error
	if err != nil {
		slog.Error("Failed to link session to call", "error", err, "call_id", callID, "session_id", sessionID)
		return err
	}
	return nil
}

func (r *GORMRepository) ListCalls(ctx context.Context, orgID string, limit int) ([]models.Call, error) {
	var calls []models.Call
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		slog.Error("Failed to list calls", "error", err, "organization_id", orgID)
		return nil, err
	}
	return calls, nil
}

// ListCallsPendingAnalysis returns calls the sweeper should pick up.
func (r *GORMRepository) ListCallsPendingAnalysis(ctx context.Context, limit int) ([]models.Call, error) {
	var calls []models.Call
	err := r.db.WithContext(ctx).
		Where("analysis_status = ?", models.AnalysisStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		slog.Error("Failed to list calls pending analysis", "error", err)
		return nil, err
	}
	return calls, nil
}

// ClaimCallForAnalysis flips a call to processing/analyzing iff no other
// run holds it. The analyzing status acts as the cross-process lease; a
// false return means another run is in flight or the call is terminal.
func (r *GORMRepository) ClaimCallForAnalysis(ctx context.Context, callID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Call{}).
		Where("id = ? AND analysis_status IN ?", callID, []string{models.AnalysisStatusPending, models.AnalysisStatusFailed}).
		Updates(map[string]interface{}{
			"status":          models.CallStatusProcessing,
			"analysis_status": models.AnalysisStatusAnalyzing,
		})
	if result.Error != nil {
		slog.Error("Failed to claim call for analysis", "error", result.Error, "call_id", callID)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetCallOutcome lands a call on a status pair. Used for every terminal
// transition so no exit path can leave a call stuck in analyzing.
func (r *GORMRepository) SetCallOutcome(ctx context.Context, callID, status, analysisStatus string) error {
	err := r.db.WithContext(ctx).
		Model(&models.Call{}).
		Where("id = ?", callID).
		Updates(map[string]interface{}{
			"status":          status,
			"analysis_status": analysisStatus,
		}).Error
	if err != nil {
		slog.Error("Failed to set call outcome", "error", err, "call_id", callID, "status", status, "analysis_status", analysisStatus)
		return err
	}
	slog.Info("Call outcome set", "call_id", callID, "status", status, "analysis_status", analysisStatus)
	return nil
}

// Session operations
func (r *GORMRepository) CreateSession(ctx context.Context, session *models.ScoringSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		slog.Error("Failed to create scoring session", "error", err)
		return err
	}
	slog.Info("Scoring session created", "session_id", session.ID, "call_id", session.CallID)
	return nil
}

func (r *GORMRepository) GetSession(ctx context.Context, id string) (*models.ScoringSession, error) {
	var session models.ScoringSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Scores", func(db *gorm.DB) *gorm.DB {
			return db.Order("scores.created_at ASC")
		}).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get scoring session", "error", err, "session_id", id)
		return nil, err
	}
	return &session, nil
}

func (r *GORMRepository) UpdateSession(ctx context.Context, session *models.ScoringSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		slog.Error("Failed to update scoring session", "error", err, "session_id", session.ID)
		return err
	}
	return nil
}

// SetSessionStatus moves a session to a lifecycle status without touching
// its aggregate fields.
func (r *GORMRepository) SetSessionStatus(ctx context.Context, sessionID, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.SessionStatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}
	err := r.db.WithContext(ctx).
		Model(&models.ScoringSession{}).
		Where("id = ?", sessionID).
		Updates(updates).Error
	if err != nil {
		slog.Error("Failed to set session status", "error", err, "session_id", sessionID, "status", status)
		return err
	}
	slog.Info("Session status set", "session_id", sessionID, "status", status)
	return nil
}

// Score operations
func (r *GORMRepository) CreateScores(ctx context.Context, scores []models.Score) error {
	if len(scores) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&scores).Error; err != nil {
		slog.Error("Failed to create scores", "error", err)
		return err
	}
	slog.Info("Scores created", "session_id", scores[0].SessionID, "count", len(scores))
	return nil
}

func (r *GORMRepository) GetSessionScores(ctx context.Context, sessionID string) ([]models.Score, error) {
	var scores []models.Score
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&scores).Error
	if err != nil {
		slog.Error("Failed to get session scores", "error", err, "session_id", sessionID)
		return nil, err
	}
	return scores, nil
}
