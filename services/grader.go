package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/scorably/scorably/scoring"

	"google.golang.org/genai"
)

const DefaultModelName = "gemini-2.5-flash"

// GradingRequest is everything the grader needs to evaluate one call:
// the transcript text, the rubric snapshot and optional reference material.
type GradingRequest struct {
	TranscriptText   string
	Template         scoring.TemplateSpec
	KnowledgeContext []string
}

// CriterionAnswer is the grader's verdict for one criterion.
type CriterionAnswer struct {
	CriterionID   string
	Value         scoring.Value
	NotApplicable bool
	Comment       string
	AutoFail      bool
}

// GradingResponse carries one answer per criterion the grader evaluated.
type GradingResponse struct {
	Answers []CriterionAnswer
}

// Grader is the external grading service contract. Implementations return
// per-criterion answers or an explicit error; the pipeline treats any error
// as a terminal failure for the run.
type Grader interface {
	Grade(ctx context.Context, req GradingRequest) (*GradingResponse, error)
}

// GeminiGrader grades transcripts against a rubric using Gemini with
// JSON-structured output.
type GeminiGrader struct {
	genaiClient *genai.Client
	model       string
}

func NewGeminiGrader(apiKey, model string) *GeminiGrader {
	genaiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		slog.Error("Failed to create genai client", "error", err)
		return nil
	}
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiGrader{genaiClient: genaiClient, model: model}
}

// graderAnswer is the wire shape the model must produce per criterion.
type graderAnswer struct {
	CriterionID   string   `json:"criterion_id"`
	Number        *float64 `json:"number,omitempty"`
	Passed        *bool    `json:"passed,omitempty"`
	Selections    []string `json:"selections,omitempty"`
	OptionID      *string  `json:"option_id,omitempty"`
	Text          *string  `json:"text,omitempty"`
	NotApplicable bool     `json:"not_applicable"`
	Comment       string   `json:"comment"`
	AutoFail      bool     `json:"auto_fail"`
}

type graderPayload struct {
	Answers []graderAnswer `json:"answers"`
}

// Grade sends the transcript and rubric to Gemini and parses the JSON
// verdicts into typed criterion answers.
func (g *GeminiGrader) Grade(ctx context.Context, req GradingRequest) (*GradingResponse, error) {
	if g.genaiClient == nil {
		return nil, fmt.Errorf("genai client not initialized")
	}

	prompt := buildGradingPrompt(req)

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(gradingSystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}

	result, err := g.genaiClient.Models.GenerateContent(
		ctx,
		g.model,
		genai.Text(prompt),
		config,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate grading: %w", err)
	}

	raw := stripJSONFences(result.Text())

	var payload graderPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to parse grading response: %w", err)
	}

	response := &GradingResponse{Answers: make([]CriterionAnswer, 0, len(payload.Answers))}
	for _, a := range payload.Answers {
		response.Answers = append(response.Answers, CriterionAnswer{
			CriterionID: a.CriterionID,
			Value: scoring.Value{
				Number:     a.Number,
				Passed:     a.Passed,
				Selections: a.Selections,
				OptionID:   a.OptionID,
				Text:       a.Text,
			},
			NotApplicable: a.NotApplicable,
			Comment:       a.Comment,
			AutoFail:      a.AutoFail,
		})
	}

	slog.Info("Grading generated",
		"template_id", req.Template.ID,
		"criteria", len(req.Template.Criteria),
		"answers", len(response.Answers))

	return response, nil
}

const gradingSystemInstruction = `You are an expert sales coach evaluating a recorded sales conversation against a scoring rubric.

You will receive the conversation transcript and the rubric criteria. For every criterion you must produce exactly one JSON answer object. Ground every judgement in what was actually said in the transcript; quote or paraphrase supporting evidence in the comment field. If the transcript gives no basis to judge a criterion, mark it not applicable instead of guessing.

Respond with a single JSON object of the form {"answers": [...]} and nothing else.`

func buildGradingPrompt(req GradingRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "RUBRIC: %s (version %d)\n", req.Template.Name, req.Template.Version)
	if len(req.Template.Groups) > 0 {
		b.WriteString("Criteria groups:\n")
		for _, g := range req.Template.Groups {
			fmt.Fprintf(&b, "- %s (id %s, weight %.0f)\n", g.Name, g.ID, g.Weight)
		}
	}

	b.WriteString("\nCRITERIA:\n")
	for _, c := range req.Template.Criteria {
		fmt.Fprintf(&b, "\ncriterion_id: %s\nname: %s\ntype: %s\n", c.ID, c.Name, c.Type)
		b.WriteString(criterionAnswerGuidance(c))
	}

	b.WriteString("\nANSWER FORMAT:\n")
	b.WriteString(`Each answer object has: criterion_id (string, required), not_applicable (bool), comment (string, cite transcript evidence), auto_fail (bool, true only if this criterion was violated in a way that should fail the whole call), and exactly one value field matching the criterion type as instructed above.` + "\n")
	if !req.Template.AllowNotApplicable {
		b.WriteString("This rubric does not allow not-applicable answers; judge every criterion.\n")
	}

	if len(req.KnowledgeContext) > 0 {
		b.WriteString("\nREFERENCE MATERIAL:\n")
		for _, doc := range req.KnowledgeContext {
			b.WriteString(doc)
			b.WriteString("\n---\n")
		}
	}

	b.WriteString("\nTRANSCRIPT:\n")
	b.WriteString(req.TranscriptText)

	return b.String()
}

func criterionAnswerGuidance(c scoring.CriterionSpec) string {
	var b strings.Builder
	switch c.Type {
	case scoring.TypeScale:
		if cfg := c.Config.Scale; cfg != nil {
			fmt.Fprintf(&b, "answer with: number between %.0f and %.0f\n", cfg.Min, cfg.Max)
		}
	case scoring.TypePassFail:
		b.WriteString("answer with: passed (true or false)\n")
	case scoring.TypeChecklist:
		if cfg := c.Config.Checklist; cfg != nil {
			b.WriteString("answer with: selections listing the ids of every item the agent covered\nitems:\n")
			for _, item := range cfg.Items {
				fmt.Fprintf(&b, "  - id %s: %s (%.0f points)\n", item.ID, item.Label, item.Points)
			}
		}
	case scoring.TypeDropdown:
		if cfg := c.Config.Dropdown; cfg != nil {
			b.WriteString("answer with: option_id set to the single best matching option\noptions:\n")
			for _, opt := range cfg.Options {
				fmt.Fprintf(&b, "  - id %s: %s\n", opt.ID, opt.Label)
			}
		}
	case scoring.TypeMultiSelect:
		if cfg := c.Config.MultiSelect; cfg != nil {
			b.WriteString("answer with: selections listing the ids of every option that applies\noptions:\n")
			for _, opt := range cfg.Options {
				fmt.Fprintf(&b, "  - id %s: %s\n", opt.ID, opt.Label)
			}
		}
	case scoring.TypeStarRating:
		if cfg := c.Config.StarRating; cfg != nil {
			fmt.Fprintf(&b, "answer with: number of stars from 0 to %d\n", cfg.MaxStars)
		}
	case scoring.TypePercentage:
		b.WriteString("answer with: number between 0 and 100\n")
	case scoring.TypeFreeText:
		b.WriteString("answer with: text containing your written assessment\n")
	}
	if c.Description != "" {
		fmt.Fprintf(&b, "guidance: %s\n", c.Description)
	}
	return b.String()
}

// stripJSONFences removes markdown code fences some models wrap around
// JSON output.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
