package models

import (
	"time"

	"github.com/scorably/scorably/scoring"
	"gorm.io/gorm"
)

const (
	TemplateStatusDraft    = "draft"
	TemplateStatusActive   = "active"
	TemplateStatusArchived = "archived"
)

// Template is a named scoring rubric. An active template used for grading
// must have at least one criterion; sessions snapshot the template at
// scoring time so later edits never change historical scores.
type Template struct {
	ID                 string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID     string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	Name               string         `gorm:"not null" json:"name"`
	Description        string         `gorm:"type:text" json:"description,omitempty"`
	ScoringMethod      string         `gorm:"not null;default:'weighted';check:scoring_method IN ('weighted', 'simple_average', 'pass_fail', 'points', 'custom_formula')" json:"scoring_method"`
	PassThreshold      float64        `gorm:"type:decimal(5,2);not null;default:70.00" json:"pass_threshold"`
	Status             string         `gorm:"not null;default:'draft';check:status IN ('draft', 'active', 'archived')" json:"status"`
	Version            int            `gorm:"not null;default:1" json:"version"`
	IsDefault          bool           `gorm:"default:false" json:"is_default"`
	AllowNotApplicable bool           `gorm:"default:true" json:"allow_not_applicable"`
	RequireComments    bool           `gorm:"default:false" json:"require_comments"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	DeletedAt          gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Organization Organization    `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
	Groups       []CriteriaGroup `gorm:"foreignKey:TemplateID" json:"groups,omitempty"`
	Criteria     []Criterion     `gorm:"foreignKey:TemplateID" json:"criteria,omitempty"`
}

// CriteriaGroup is an optional container for criteria, used for display and
// weight bookkeeping only.
type CriteriaGroup struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID string         `gorm:"type:uuid;not null;index" json:"template_id"`
	Name       string         `gorm:"not null" json:"name"`
	Weight     float64        `gorm:"type:decimal(5,2);default:0" json:"weight"`
	Required   bool           `gorm:"default:false" json:"required"`
	Position   int            `gorm:"not null;default:0" json:"position"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Template Template `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
}

// Criterion is one scorable rubric line item. Config carries the
// type-specific payload matching Type.
type Criterion struct {
	ID                string         `gorm:"type:uuid;primaryKey" json:"id"`
	TemplateID        string         `gorm:"type:uuid;not null;index" json:"template_id"`
	GroupID           *string        `gorm:"type:uuid;index" json:"group_id,omitempty"`
	Name              string         `gorm:"not null" json:"name"`
	Description       string         `gorm:"type:text" json:"description,omitempty"`
	Type              string         `gorm:"not null;check:type IN ('scale', 'pass_fail', 'checklist', 'dropdown', 'multi_select', 'star_rating', 'percentage', 'free_text')" json:"type"`
	Config            scoring.Config `gorm:"type:jsonb;serializer:json" json:"config"`
	Weight            float64        `gorm:"type:decimal(5,2);default:0" json:"weight"`
	MaxScore          float64        `gorm:"type:decimal(7,2);not null;default:100.00" json:"max_score"`
	Required          bool           `gorm:"default:true" json:"required"`
	AutoFail          bool           `gorm:"default:false" json:"auto_fail"`
	AutoFailThreshold *float64       `gorm:"type:decimal(5,2)" json:"auto_fail_threshold,omitempty"`
	Position          int            `gorm:"not null;default:0" json:"position"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Template Template       `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Group    *CriteriaGroup `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// TableName pins the irregular plural; gorm would otherwise derive
// "criterions".
func (Criterion) TableName() string {
	return "criteria"
}

// TemplateAssignment binds a specific agent to a specific template within
// the organization. An unexpired assignment wins template resolution.
type TemplateAssignment struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	TemplateID     string         `gorm:"type:uuid;not null;index" json:"template_id"`
	AgentID        string         `gorm:"type:uuid;not null;index" json:"agent_id"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Template Template `gorm:"foreignKey:TemplateID" json:"template,omitempty"`
	Agent    User     `gorm:"foreignKey:AgentID" json:"agent,omitempty"`
}

// KnowledgeDoc is reference material handed to the grader alongside the
// transcript and rubric.
type KnowledgeDoc struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	Title          string         `gorm:"not null" json:"title"`
	Content        string         `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// Spec builds the immutable scoring snapshot for this template. Criteria
// and groups must be preloaded.
func (t *Template) Spec() scoring.TemplateSpec {
	spec := scoring.TemplateSpec{
		ID:                 t.ID,
		Name:               t.Name,
		Method:             scoring.ScoringMethod(t.ScoringMethod),
		PassThreshold:      t.PassThreshold,
		Version:            t.Version,
		AllowNotApplicable: t.AllowNotApplicable,
		RequireComments:    t.RequireComments,
	}
	for _, g := range t.Groups {
		spec.Groups = append(spec.Groups, scoring.GroupSpec{
			ID:       g.ID,
			Name:     g.Name,
			Weight:   g.Weight,
			Required: g.Required,
		})
	}
	for _, c := range t.Criteria {
		spec.Criteria = append(spec.Criteria, scoring.CriterionSpec{
			ID:                c.ID,
			Name:              c.Name,
			Description:       c.Description,
			Type:              scoring.CriterionType(c.Type),
			Config:            c.Config,
			Weight:            c.Weight,
			MaxScore:          c.MaxScore,
			Required:          c.Required,
			AutoFail:          c.AutoFail,
			AutoFailThreshold: c.AutoFailThreshold,
			GroupID:           c.GroupID,
			Position:          c.Position,
		})
	}
	return spec
}
