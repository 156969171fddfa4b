package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/scorably/scorably/models"
	"gorm.io/gorm"
)

// Template operations
func (r *GORMRepository) CreateTemplate(ctx context.Context, template *models.Template) error {
	if err := r.db.WithContext(ctx).Create(template).Error; err != nil {
		slog.Error("Failed to create template", "error", err)
		return err
	}
	slog.Info("Template created", "template_id", template.ID, "name", template.Name)
	return nil
}

func (r *GORMRepository) UpdateTemplate(ctx context.Context, template *models.Template) error {
	if err := r.db.WithContext(ctx).Save(template).Error; err != nil {
		slog.Error("Failed to update template", "error", err, "template_id", template.ID)
		return err
	}
	return nil
}

func (r *GORMRepository) CreateCriteriaGroup(ctx context.Context, group *models.CriteriaGroup) error {
	if err := r.db.WithContext(ctx).Create(group).Error; err != nil {
		slog.Error("Failed to create criteria group", "error", err, "template_id", group.TemplateID)
		return err
	}
	return nil
}

func (r *GORMRepository) CreateCriterion(ctx context.Context, criterion *models.Criterion) error {
	if err := r.db.WithContext(ctx).Create(criterion).Error; err != nil {
		slog.Error("Failed to create criterion", "error", err, "template_id", criterion.TemplateID)
		return err
	}
	return nil
}

// GetTemplateWithCriteria loads a template plus its groups and criteria in
// display order, ready for snapshotting.
func (r *GORMRepository) GetTemplateWithCriteria(ctx context.Context, id string) (*models.Template, error) {
	var template models.Template
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Preload("Groups", func(db *gorm.DB) *gorm.DB {
			return db.Order("criteria_groups.position ASC")
		}).
		Preload("Criteria", func(db *gorm.DB) *gorm.DB {
			return db.Order("criteria.position ASC")
		}).
		First(&template).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get template with criteria", "error", err, "template_id", id)
		return nil, err
	}
	return &template, nil
}

// GetMostRecentActiveTemplate returns the newest active template in the
// organization, the last stop of template resolution.
func (r *GORMRepository) GetMostRecentActiveTemplate(ctx context.Context, orgID string) (*models.Template, error) {
	var template models.Template
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND status = ?", orgID, models.TemplateStatusActive).
		Order("created_at DESC").
		First(&template).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		slog.Error("Failed to get most recent active template", "error", err, "organization_id", orgID)
		return nil, err
	}
	return &template, nil
}

// Assignment operations
func (r *GORMRepository) CreateAssignment(ctx context.Context, assignment *models.TemplateAssignment) error {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		slog.Error("Failed to create template assignment", "error", err)
		return err
	}
	slog.Info("Template assignment created", "assignment_id", assignment.ID, "agent_id", assignment.AgentID, "template_id", assignment.TemplateID)
	return nil
}

// GetActiveAssignments returns this agent's non-expired assignments,
// newest first.
func (r *GORMRepository) GetActiveAssignments(ctx context.Context, orgID, agentID string) ([]models.TemplateAssignment, error) {
	var assignments []models.TemplateAssignment
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND agent_id = ?", orgID, agentID).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("created_at DESC").
		Find(&assignments).Error
	if err != nil {
		slog.Error("Failed to get active assignments", "error", err, "organization_id", orgID, "agent_id", agentID)
		return nil, err
	}
	return assignments, nil
}

// Knowledge doc operations
func (r *GORMRepository) CreateKnowledgeDoc(ctx context.Context, doc *models.KnowledgeDoc) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		slog.Error("Failed to create knowledge doc", "error", err)
		return err
	}
	slog.Info("Knowledge doc created", "doc_id", doc.ID, "title", doc.Title)
	return nil
}

func (r *GORMRepository) ListKnowledgeDocs(ctx context.Context, orgID string, limit int) ([]models.KnowledgeDoc, error) {
	var docs []models.KnowledgeDoc
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at ASC").
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		slog.Error("Failed to list knowledge docs", "error", err, "organization_id", orgID)
		return nil, err
	}
	return docs, nil
}
