package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrInvalidTemplate      = errors.New("invalid template")
	ErrInvalidValue         = errors.New("invalid score value")
	ErrUnknownCriterionType = errors.New("unknown criterion type")
	ErrUnknownCriterion     = errors.New("unknown criterion")
)

// CriterionSpec is the scoring-facing view of one rubric line item. It is
// what gets snapshotted onto a session, so historical scores never change
// when the template is edited later.
type CriterionSpec struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Description       string        `json:"description,omitempty"`
	Type              CriterionType `json:"type"`
	Config            Config        `json:"config"`
	Weight            float64       `json:"weight"`
	MaxScore          float64       `json:"max_score"`
	Required          bool          `json:"required"`
	AutoFail          bool          `json:"auto_fail"`
	AutoFailThreshold *float64      `json:"auto_fail_threshold,omitempty"`
	GroupID           *string       `json:"group_id,omitempty"`
	Position          int           `json:"position"`
}

// CriterionResult is the computed outcome for one answered criterion.
// All numeric fields are rounded to 2 decimal places.
type CriterionResult struct {
	CriterionID       string
	RawScore          float64
	NormalizedScore   float64
	WeightedScore     float64
	NotApplicable     bool
	AutoFailTriggered bool
}

// ScoreCriterion converts one answered criterion into a normalized result.
// A not-applicable answer always yields zero scores and never triggers
// auto-fail, regardless of the supplied value.
func ScoreCriterion(c CriterionSpec, v Value, notApplicable bool) (CriterionResult, error) {
	if notApplicable {
		return CriterionResult{CriterionID: c.ID, NotApplicable: true}, nil
	}

	raw, err := rawScore(c, v)
	if err != nil {
		return CriterionResult{}, err
	}

	normalized := 0.0
	if c.MaxScore > 0 {
		normalized = raw / c.MaxScore * 100
	}
	weighted := normalized * c.Weight / 100

	triggered := c.AutoFail && c.AutoFailThreshold != nil && normalized < *c.AutoFailThreshold

	return CriterionResult{
		CriterionID:       c.ID,
		RawScore:          round2(raw),
		NormalizedScore:   round2(normalized),
		WeightedScore:     round2(weighted),
		AutoFailTriggered: triggered,
	}, nil
}

func rawScore(c CriterionSpec, v Value) (float64, error) {
	switch c.Type {
	case TypeScale:
		return scaleScore(c, v)
	case TypePassFail:
		return passFailScore(c, v)
	case TypeChecklist:
		return checklistScore(c, v)
	case TypeDropdown:
		return dropdownScore(c, v)
	case TypeMultiSelect:
		return multiSelectScore(c, v)
	case TypeStarRating:
		return starRatingScore(c, v)
	case TypePercentage:
		return percentageScore(c, v)
	case TypeFreeText:
		return freeTextScore(c, v)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownCriterionType, c.Type)
	}
}

func scaleScore(c CriterionSpec, v Value) (float64, error) {
	cfg := c.Config.Scale
	if cfg == nil {
		return 0, fmt.Errorf("%w: criterion %s has no scale config", ErrInvalidTemplate, c.ID)
	}
	if v.Number == nil {
		return 0, fmt.Errorf("%w: scale criterion %s needs a numeric answer", ErrInvalidValue, c.ID)
	}
	span := cfg.Max - cfg.Min
	if span <= 0 {
		return 0, fmt.Errorf("%w: criterion %s scale min must be below max", ErrInvalidTemplate, c.ID)
	}
	n := clamp(*v.Number, cfg.Min, cfg.Max)
	return (n - cfg.Min) / span * c.MaxScore, nil
}

func passFailScore(c CriterionSpec, v Value) (float64, error) {
	if v.Passed == nil {
		return 0, fmt.Errorf("%w: pass/fail criterion %s needs a boolean answer", ErrInvalidValue, c.ID)
	}
	pass, fail := c.MaxScore, 0.0
	if cfg := c.Config.PassFail; cfg != nil {
		pass, fail = cfg.PassScore, cfg.FailScore
	}
	if *v.Passed {
		return pass, nil
	}
	return fail, nil
}

func checklistScore(c CriterionSpec, v Value) (float64, error) {
	cfg := c.Config.Checklist
	if cfg == nil || len(cfg.Items) == 0 {
		return 0, fmt.Errorf("%w: criterion %s has no checklist items", ErrInvalidTemplate, c.ID)
	}

	checked := make(map[string]bool, len(v.Selections))
	for _, id := range v.Selections {
		checked[id] = true
	}

	var checkedPoints, totalPoints, maxItem float64
	checkedCount := 0
	for _, item := range cfg.Items {
		totalPoints += item.Points
		if item.Points > maxItem {
			maxItem = item.Points
		}
		if checked[item.ID] {
			checkedPoints += item.Points
			checkedCount++
		}
	}

	switch cfg.Mode {
	case ChecklistSum:
		if totalPoints == 0 {
			return 0, nil
		}
		return checkedPoints / totalPoints * c.MaxScore, nil
	case ChecklistAverage:
		if checkedCount == 0 || maxItem == 0 {
			return 0, nil
		}
		return checkedPoints / float64(checkedCount) / maxItem * c.MaxScore, nil
	case ChecklistAllRequired:
		if checkedCount == len(cfg.Items) {
			return c.MaxScore, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: criterion %s has unknown checklist mode %q", ErrInvalidTemplate, c.ID, cfg.Mode)
	}
}

func dropdownScore(c CriterionSpec, v Value) (float64, error) {
	cfg := c.Config.Dropdown
	if cfg == nil || len(cfg.Options) == 0 {
		return 0, fmt.Errorf("%w: criterion %s has no dropdown options", ErrInvalidTemplate, c.ID)
	}
	if v.OptionID == nil {
		return 0, fmt.Errorf("%w: dropdown criterion %s needs a selected option", ErrInvalidValue, c.ID)
	}

	var selected *SelectOption
	var maxOption float64
	for i := range cfg.Options {
		if cfg.Options[i].Score > maxOption {
			maxOption = cfg.Options[i].Score
		}
		if cfg.Options[i].ID == *v.OptionID {
			selected = &cfg.Options[i]
		}
	}
	if selected == nil {
		return 0, fmt.Errorf("%w: criterion %s has no option %q", ErrInvalidValue, c.ID, *v.OptionID)
	}
	if maxOption == 0 {
		return 0, nil
	}
	return selected.Score / maxOption * c.MaxScore, nil
}

func multiSelectScore(c CriterionSpec, v Value) (float64, error) {
	cfg := c.Config.MultiSelect
	if cfg == nil || len(cfg.Options) == 0 {
		return 0, fmt.Errorf("%w: criterion %s has no multi-select options", ErrInvalidTemplate, c.ID)
	}

	selected := make(map[string]bool, len(v.Selections))
	for _, id := range v.Selections {
		selected[id] = true
	}

	var selectedScore, totalScore, maxOption float64
	selectedCount := 0
	for _, opt := range cfg.Options {
		totalScore += opt.Score
		if opt.Score > maxOption {
			maxOption = opt.Score
		}
		if selected[opt.ID] {
			selectedScore += opt.Score
			selectedCount++
		}
	}

	switch cfg.Mode {
	case SelectSum:
		if totalScore == 0 {
			return 0, nil
		}
		return selectedScore / totalScore * c.MaxScore, nil
	case SelectAverage:
		if selectedCount == 0 || maxOption == 0 {
			return 0, nil
		}
		return selectedScore / float64(selectedCount) / maxOption * c.MaxScore, nil
	default:
		return 0, fmt.Errorf("%w: criterion %s has unknown select mode %q", ErrInvalidTemplate, c.ID, cfg.Mode)
	}
}

func starRatingScore(c CriterionSpec, v Value) (float64, error) {
	cfg := c.Config.StarRating
	if cfg == nil || cfg.MaxStars <= 0 {
		return 0, fmt.Errorf("%w: criterion %s needs a positive max star count", ErrInvalidTemplate, c.ID)
	}
	if v.Number == nil {
		return 0, fmt.Errorf("%w: star rating criterion %s needs a numeric answer", ErrInvalidValue, c.ID)
	}
	stars := clamp(*v.Number, 0, float64(cfg.MaxStars))
	return stars / float64(cfg.MaxStars) * c.MaxScore, nil
}

func percentageScore(c CriterionSpec, v Value) (float64, error) {
	if v.Number == nil {
		return 0, fmt.Errorf("%w: percentage criterion %s needs a numeric answer", ErrInvalidValue, c.ID)
	}
	pct := clamp(*v.Number, 0, 100)
	return pct / 100 * c.MaxScore, nil
}

func freeTextScore(c CriterionSpec, v Value) (float64, error) {
	if v.Text == nil {
		return 0, fmt.Errorf("%w: free text criterion %s needs a text answer", ErrInvalidValue, c.ID)
	}
	if strings.TrimSpace(*v.Text) == "" {
		return 0, nil
	}
	return c.MaxScore, nil
}

func clamp(n, lo, hi float64) float64 {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

func round2(n float64) float64 {
	return math.Round(n*100) / 100
}
