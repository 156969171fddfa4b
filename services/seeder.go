package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/scorably/scorably/models"
	"github.com/scorably/scorably/repository"
	"github.com/scorably/scorably/scoring"
)

const seedCoachEmail = "coach@acme.example"

// DatabaseSeeder handles database seeding operations
type DatabaseSeeder struct {
	repo *repository.GORMRepository
}

// NewDatabaseSeeder creates a new database seeder
func NewDatabaseSeeder(repo *repository.GORMRepository) *DatabaseSeeder {
	return &DatabaseSeeder{repo: repo}
}

// SeedDatabase seeds the database with a demo organization, users, a
// meeting connection, and a fully populated scoring template (idempotent).
func (s *DatabaseSeeder) SeedDatabase() error {
	ctx := context.Background()

	if s.isSeedingComplete(ctx) {
		slog.Info("Database seeding already completed, skipping")
		return nil
	}

	org := models.Organization{Name: "Acme Sales"}
	if err := s.repo.CreateOrganization(ctx, &org); err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	users := []models.User{
		{
			OrganizationID: org.ID,
			Email:          seedCoachEmail,
			FullName:       "Jordan Avery",
			Role:           "coach",
		},
		{
			OrganizationID: org.ID,
			Email:          "rep.morgan@acme.example",
			FullName:       "Morgan Reyes",
			Role:           "agent",
		},
		{
			OrganizationID: org.ID,
			Email:          "rep.casey@acme.example",
			FullName:       "Casey Lindqvist",
			Role:           "agent",
		},
	}
	for i := range users {
		if err := s.seedUser(ctx, &users[i]); err != nil {
			slog.Error("Failed to seed user", "email", users[i].Email, "error", err)
		}
	}

	agent, err := s.repo.GetUserByEmail(ctx, "rep.morgan@acme.example")
	if err != nil {
		return fmt.Errorf("failed to get seed agent: %w", err)
	}
	if agent == nil {
		return fmt.Errorf("seed agent not found")
	}

	connection := models.MeetingConnection{
		OrganizationID: org.ID,
		OwnerID:        agent.ID,
		Provider:       "google_meet",
	}
	if err := s.repo.CreateMeetingConnection(ctx, &connection); err != nil {
		slog.Error("Failed to seed meeting connection", "error", err)
	}

	doc := models.KnowledgeDoc{
		OrganizationID: org.ID,
		Title:          "Discovery Call Playbook",
		Content: "Open with agenda confirmation. Qualify budget, authority, need, and " +
			"timeline before any product walkthrough. Pricing may only be quoted from " +
			"the published rate card; discounts above 10% require manager approval. " +
			"Every call must end with a concrete, calendared next step.",
	}
	if err := s.repo.CreateKnowledgeDoc(ctx, &doc); err != nil {
		slog.Error("Failed to seed knowledge doc", "error", err)
	}

	template, err := s.seedTemplate(ctx, org.ID)
	if err != nil {
		return fmt.Errorf("failed to seed template: %w", err)
	}

	assignment := models.TemplateAssignment{
		OrganizationID: org.ID,
		TemplateID:     template.ID,
		AgentID:        agent.ID,
	}
	if err := s.repo.CreateAssignment(ctx, &assignment); err != nil {
		slog.Error("Failed to seed template assignment", "error", err)
	}

	org.DefaultTemplateID = &template.ID
	if err := s.repo.UpdateOrganization(ctx, &org); err != nil {
		slog.Error("Failed to set default template", "error", err)
	}

	slog.Info("Database seeding completed successfully", "organization_id", org.ID, "template_id", template.ID)
	return nil
}

// isSeedingComplete checks if seeding has already been completed
func (s *DatabaseSeeder) isSeedingComplete(ctx context.Context) bool {
	coach, err := s.repo.GetUserByEmail(ctx, seedCoachEmail)
	if err != nil {
		return false
	}
	return coach != nil
}

// seedUser seeds a single user (idempotent)
func (s *DatabaseSeeder) seedUser(ctx context.Context, user *models.User) error {
	existing, err := s.repo.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return fmt.Errorf("error checking user %s: %w", user.Email, err)
	}
	if existing != nil {
		slog.Info("User already exists, skipping", "email", user.Email)
		return nil
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return fmt.Errorf("failed to create user %s: %w", user.Email, err)
	}
	return nil
}

// seedTemplate creates the active demo rubric covering every criterion
// type, with weights summing to 100.
func (s *DatabaseSeeder) seedTemplate(ctx context.Context, orgID string) (*models.Template, error) {
	template := models.Template{
		OrganizationID:     orgID,
		Name:               "Discovery Call Scorecard",
		Description:        "Standard rubric for outbound discovery calls",
		ScoringMethod:      string(scoring.MethodWeighted),
		PassThreshold:      70,
		Status:             models.TemplateStatusActive,
		Version:            1,
		IsDefault:          true,
		AllowNotApplicable: true,
	}
	if err := s.repo.CreateTemplate(ctx, &template); err != nil {
		return nil, err
	}

	groups := []models.CriteriaGroup{
		{TemplateID: template.ID, Name: "Opening", Weight: 35, Position: 0},
		{TemplateID: template.ID, Name: "Discovery", Weight: 45, Position: 1},
		{TemplateID: template.ID, Name: "Close", Weight: 20, Position: 2},
	}
	for i := range groups {
		if err := s.repo.CreateCriteriaGroup(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}

	checklistThreshold := 60.0
	criteria := []models.Criterion{
		{
			TemplateID:  template.ID,
			GroupID:     &groups[0].ID,
			Name:        "Rapport and agenda",
			Description: "Did the rep open with rapport and confirm the agenda?",
			Type:        string(scoring.TypeScale),
			Config:      scoring.Config{Scale: &scoring.ScaleConfig{Min: 1, Max: 5}},
			Weight:      20,
			MaxScore:    100,
			Position:    0,
		},
		{
			TemplateID:  template.ID,
			GroupID:     &groups[0].ID,
			Name:        "Accurate pricing",
			Description: "Pricing quoted only from the published rate card.",
			Type:        string(scoring.TypePassFail),
			Config:      scoring.Config{PassFail: &scoring.PassFailConfig{PassScore: 100, FailScore: 0}},
			Weight:      15,
			MaxScore:    100,
			AutoFail:    true,
			Position:    1,
		},
		{
			TemplateID:  template.ID,
			GroupID:     &groups[1].ID,
			Name:        "Qualification coverage",
			Description: "Which qualification topics were covered?",
			Type:        string(scoring.TypeChecklist),
			Config: scoring.Config{Checklist: &scoring.ChecklistConfig{
				Mode: scoring.ChecklistSum,
				Items: []scoring.ChecklistItem{
					{ID: "budget", Label: "Budget discussed", Points: 25},
					{ID: "authority", Label: "Decision maker identified", Points: 25},
					{ID: "need", Label: "Pain point surfaced", Points: 25},
					{ID: "timeline", Label: "Timeline established", Points: 25},
				},
			}},
			Weight:            15,
			MaxScore:          100,
			AutoFail:          true,
			AutoFailThreshold: &checklistThreshold,
			Position:          2,
		},
		{
			TemplateID:  template.ID,
			GroupID:     &groups[1].ID,
			Name:        "Objection handling",
			Description: "How well were objections handled?",
			Type:        string(scoring.TypeDropdown),
			Config: scoring.Config{Dropdown: &scoring.DropdownConfig{
				Options: []scoring.SelectOption{
					{ID: "none_raised", Label: "No objections raised", Score: 80},
					{ID: "acknowledged", Label: "Acknowledged but unresolved", Score: 50},
					{ID: "resolved", Label: "Resolved with evidence", Score: 100},
					{ID: "dismissed", Label: "Dismissed or ignored", Score: 0},
				},
			}},
			Weight:   10,
			MaxScore: 100,
			Position: 3,
		},
		{
			TemplateID:  template.ID,
			GroupID:     &groups[1].ID,
			Name:        "Discovery techniques",
			Description: "Which discovery techniques did the rep apply?",
			Type:        string(scoring.TypeMultiSelect),
			Config: scoring.Config{MultiSelect: &scoring.MultiSelectConfig{
				Mode: scoring.SelectSum,
				Options: []scoring.SelectOption{
					{ID: "open_questions", Label: "Open-ended questions", Score: 40},
					{ID: "active_listening", Label: "Active listening and recap", Score: 30},
					{ID: "quantified_pain", Label: "Quantified the pain point", Score: 30},
				},
			}},
			Weight:   10,
			MaxScore: 100,
			Position: 4,
		},
		{
			TemplateID:  template.ID,
			GroupID:     &groups[1].ID,
			Name:        "Product knowledge",
			Description: "Depth and accuracy of product answers.",
			Type:        string(scoring.TypeStarRating),
			Config:      scoring.Config{StarRating: &scoring.StarRatingConfig{MaxStars: 5}},
			Weight:      10,
			MaxScore:    100,
			Position:    5,
		},
		{
			TemplateID:  template.ID,
			GroupID:     &groups[2].ID,
			Name:        "Talk-time balance",
			Description: "Share of the call where the customer was speaking.",
			Type:        string(scoring.TypePercentage),
			Weight:      10,
			MaxScore:    100,
			Position:    6,
		},
		{
			TemplateID:  template.ID,
			GroupID:     &groups[2].ID,
			Name:        "Next step secured",
			Description: "Was a concrete, calendared next step agreed?",
			Type:        string(scoring.TypeFreeText),
			Weight:      10,
			MaxScore:    100,
			Position:    7,
		},
	}
	for i := range criteria {
		if err := s.repo.CreateCriterion(ctx, &criteria[i]); err != nil {
			return nil, err
		}
	}

	return &template, nil
}
