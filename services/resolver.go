package services

import (
	"context"
	"log/slog"

	"github.com/scorably/scorably/models"
	"github.com/scorably/scorably/repository"
)

// TemplateResolver decides which rubric grades a given call. Resolution
// order, first match wins: an unexpired agent assignment, the org's
// default template, then the org's most recently created active template.
// A nil result (with nil error) means no template applies and the
// pipeline should skip the call.
type TemplateResolver struct {
	repo *repository.GORMRepository
}

func NewTemplateResolver(repo *repository.GORMRepository) *TemplateResolver {
	return &TemplateResolver{repo: repo}
}

// Resolve is a pure lookup: it never mutates state.
func (r *TemplateResolver) Resolve(ctx context.Context, orgID, agentID string) (*models.Template, error) {
	// 1. Agent-specific assignment.
	assignments, err := r.repo.GetActiveAssignments(ctx, orgID, agentID)
	if err != nil {
		return nil, err
	}
	for _, assignment := range assignments {
		template, err := r.loadActiveTemplate(ctx, assignment.TemplateID)
		if err != nil {
			return nil, err
		}
		if template != nil {
			slog.Info("Template resolved via assignment", "template_id", template.ID, "agent_id", agentID)
			return template, nil
		}
	}

	// 2. Organization default.
	org, err := r.repo.GetOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org != nil && org.DefaultTemplateID != nil {
		template, err := r.loadActiveTemplate(ctx, *org.DefaultTemplateID)
		if err != nil {
			return nil, err
		}
		if template != nil {
			slog.Info("Template resolved via org default", "template_id", template.ID, "organization_id", orgID)
			return template, nil
		}
	}

	// 3. Most recently created active template in the org.
	recent, err := r.repo.GetMostRecentActiveTemplate(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if recent != nil {
		template, err := r.repo.GetTemplateWithCriteria(ctx, recent.ID)
		if err != nil {
			return nil, err
		}
		if template != nil {
			slog.Info("Template resolved via most recent active", "template_id", template.ID, "organization_id", orgID)
			return template, nil
		}
	}

	slog.Info("No template resolved", "organization_id", orgID, "agent_id", agentID)
	return nil, nil
}

func (r *TemplateResolver) loadActiveTemplate(ctx context.Context, templateID string) (*models.Template, error) {
	template, err := r.repo.GetTemplateWithCriteria(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if template == nil || template.Status != models.TemplateStatusActive {
		return nil, nil
	}
	return template, nil
}
