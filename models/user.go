package models

import (
	"time"

	"gorm.io/gorm"
)

// Organization is the tenant boundary. A default template, when set, is the
// second stop of template resolution after agent-specific assignments.
type Organization struct {
	ID                string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name              string         `gorm:"not null" json:"name"`
	DefaultTemplateID *string        `gorm:"type:uuid" json:"default_template_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Users     []User     `gorm:"foreignKey:OrganizationID" json:"users,omitempty"`
	Templates []Template `gorm:"foreignKey:OrganizationID" json:"templates,omitempty"`
}

// User covers both coaches (who review sessions) and agents (whose calls
// get scored).
type User struct {
	ID             string         `gorm:"type:uuid;primaryKey" json:"id"`
	OrganizationID string         `gorm:"type:uuid;not null;index" json:"organization_id"`
	Email          string         `gorm:"uniqueIndex;not null" json:"email"`
	FullName       string         `gorm:"size:255" json:"full_name,omitempty"`
	Role           string         `gorm:"default:'agent'" json:"role"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	Organization Organization `gorm:"foreignKey:OrganizationID" json:"organization,omitempty"`
}
