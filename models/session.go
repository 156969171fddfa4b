package models

import (
	"time"

	"github.com/scorably/scorably/scoring"
	"gorm.io/gorm"
)

const (
	SessionStatusPending    = "pending"
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusReviewed   = "reviewed"
	SessionStatusCancelled  = "cancelled"

	ScoredByAI    = "ai"
	ScoredByHuman = "human"
)

// ScoringSession is one grading pass of one call against a template
// snapshot. The snapshot is taken at scoring time so later template edits
// never retroactively change the result.
type ScoringSession struct {
	ID               string               `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID   string               `gorm:"type:uuid;not null;index" json:"organization_id"`
	CallID           string               `gorm:"type:uuid;not null;index" json:"call_id"`
	TemplateID       string               `gorm:"type:uuid;not null;index" json:"template_id"`
	AgentID          string               `gorm:"type:uuid;not null;index" json:"agent_id"`
	CoachID          *string              `gorm:"type:uuid;index" json:"coach_id,omitempty"`
	Status           string               `gorm:"not null;default:'pending';check:status IN ('pending', 'in_progress', 'completed', 'reviewed', 'cancelled')" json:"status"`
	TemplateSnapshot scoring.TemplateSpec `gorm:"type:jsonb;serializer:json" json:"template_snapshot"`
	TotalScore       float64              `gorm:"type:decimal(7,2);default:0" json:"total_score"`
	TotalPossible    float64              `gorm:"type:decimal(7,2);default:0" json:"total_possible"`
	PercentageScore  float64              `gorm:"type:decimal(5,2);default:0" json:"percentage_score"`
	PassStatus       string               `gorm:"not null;default:'pending';check:pass_status IN ('pending', 'pass', 'fail')" json:"pass_status"`
	HasAutoFail      bool                 `gorm:"default:false" json:"has_auto_fail"`
	AutoFailCriteria []string             `gorm:"type:jsonb;serializer:json" json:"auto_fail_criteria,omitempty"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
	DeletedAt        gorm.DeletedAt       `gorm:"index" json:"-"`

	// Relationships
	Agent  User    `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
	Coach  *User   `gorm:"foreignKey:CoachID" json:"coach,omitempty"`
	Scores []Score `gorm:"foreignKey:SessionID" json:"scores,omitempty"`
}

// Score is the answer to one criterion for one session. Raw, normalized
// and weighted scores are computed at write time; not-applicable scores
// are excluded from aggregate math.
type Score struct {
	ID                string         `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID         string         `gorm:"type:uuid;not null;index" json:"session_id"`
	CriterionID       string         `gorm:"type:uuid;not null;index" json:"criterion_id"`
	Value             scoring.Value  `gorm:"type:jsonb;serializer:json" json:"value"`
	NotApplicable     bool           `gorm:"default:false" json:"not_applicable"`
	RawScore          float64        `gorm:"type:decimal(7,2);default:0" json:"raw_score"`
	NormalizedScore   float64        `gorm:"type:decimal(5,2);default:0" json:"normalized_score"`
	WeightedScore     float64        `gorm:"type:decimal(7,2);default:0" json:"weighted_score"`
	AutoFailTriggered bool           `gorm:"default:false" json:"auto_fail_triggered"`
	Comment           string         `gorm:"type:text" json:"comment,omitempty"`
	ScoredBy          string         `gorm:"not null;default:'ai';check:scored_by IN ('ai', 'human')" json:"scored_by"`
	ScoredAt          time.Time      `gorm:"not null" json:"scored_at"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Session ScoringSession `gorm:"foreignKey:SessionID" json:"session,omitempty"`
}
