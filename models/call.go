package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	CallSourceManual     = "manual"
	CallSourceWebhook    = "webhook"
	CallSourceGoogleMeet = "google_meet"
	CallSourceUpload     = "upload"

	CallStatusPending    = "pending"
	CallStatusProcessing = "processing"
	CallStatusAnalyzed   = "analyzed"
	CallStatusFailed     = "failed"

	AnalysisStatusPending   = "pending"
	AnalysisStatusAnalyzing = "analyzing"
	AnalysisStatusCompleted = "completed"
	AnalysisStatusFailed    = "failed"
	AnalysisStatusSkipped   = "skipped"
)

// MeetingConnection is the originating integration that delivers
// transcripts. The connection owner is the default attribution target
// for ingested calls.
type MeetingConnection struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	OwnerID        string         `gorm:"type:uuid;not null;index" json:"owner_id"`
	Provider       string         `gorm:"not null" json:"provider"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Owner User `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
}

// Transcript is the raw ingested text plus meeting metadata. The pipeline
// reads it and never mutates it.
type Transcript struct {
	ID               string         `gorm:"type:uuid;primaryKey" json:"id"`
	ConnectionID     *string        `gorm:"type:uuid;index" json:"connection_id,omitempty"`
	Text             string         `gorm:"type:text" json:"text"`
	MeetingTitle     string         `gorm:"size:500" json:"meeting_title,omitempty"`
	MeetingStartedAt *time.Time     `json:"meeting_started_at,omitempty"`
	MeetingEndedAt   *time.Time     `json:"meeting_ended_at,omitempty"`
	Participants     []string       `gorm:"type:jsonb;serializer:json" json:"participants,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Connection *MeetingConnection `gorm:"foreignKey:ConnectionID" json:"connection,omitempty"`
}

// Call is a single recorded conversation. Status tracks the coarse call
// lifecycle; AnalysisStatus tracks the auto-analysis pipeline, which can
// be re-triggered independently. Exactly one call exists per transcript.
type Call struct {
	ID              string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID  string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	UserID          string         `gorm:"type:uuid;not null;index" json:"user_id"`
	TranscriptID    *string        `gorm:"type:uuid;uniqueIndex" json:"transcript_id,omitempty"`
	SessionID       *string        `gorm:"type:uuid;index" json:"session_id,omitempty"`
	Title           string         `gorm:"size:500" json:"title,omitempty"`
	Source          string         `gorm:"not null;default:'manual';check:source IN ('manual', 'webhook', 'google_meet', 'upload')" json:"source"`
	Status          string         `gorm:"not null;default:'pending';check:status IN ('pending', 'processing', 'analyzed', 'failed')" json:"status"`
	AnalysisStatus  string         `gorm:"not null;default:'pending';check:analysis_status IN ('pending', 'analyzing', 'completed', 'failed', 'skipped')" json:"analysis_status"`
	DurationSeconds int            `json:"duration_seconds"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	User       User            `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Transcript *Transcript     `gorm:"foreignKey:TranscriptID" json:"transcript,omitempty"`
	Session    *ScoringSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}
