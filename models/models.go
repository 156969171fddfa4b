package models

// This file serves as the central export point for all database models
// Import this package to access all model types

// All models are automatically exported from their respective files:
// - User, Organization from user.go
// - Template, CriteriaGroup, Criterion, TemplateAssignment, KnowledgeDoc from template.go
// - Call, Transcript, MeetingConnection from call.go
// - ScoringSession, Score from session.go

// Database schema overview:
// 1. organizations - Tenant boundary; may designate a default scoring template
// 2. users - Coaches and the agents whose calls are scored
// 3. templates - Versioned scoring rubrics owning criteria groups and criteria
// 4. template_assignments - Binds a specific agent to a specific template
// 5. meeting_connections - Originating integrations that deliver transcripts
// 6. transcripts - Raw ingested conversation text plus meeting metadata
// 7. calls - One recorded conversation per transcript, with pipeline status
// 8. scoring_sessions - One grading pass of a call against a template snapshot
// 9. scores - The answered criteria and computed results for a session
// 10. knowledge_docs - Optional reference material handed to the grader
