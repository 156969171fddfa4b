package scoring

import (
	"fmt"
	"math"
)

// weightTolerance is the floating tolerance when checking that weighted
// template weights sum to 100.
const weightTolerance = 0.01

// ValidateTemplate checks a template snapshot before it is used for
// grading. Violations are validation errors surfaced to the caller,
// never partially applied.
func ValidateTemplate(t TemplateSpec) error {
	switch t.Method {
	case MethodWeighted, MethodSimpleAverage, MethodPassFail, MethodPoints, MethodCustomFormula:
	default:
		return fmt.Errorf("%w: unknown scoring method %q", ErrInvalidTemplate, t.Method)
	}

	if t.PassThreshold < 0 || t.PassThreshold > 100 {
		return fmt.Errorf("%w: pass threshold %.2f out of range", ErrInvalidTemplate, t.PassThreshold)
	}

	if len(t.Criteria) == 0 {
		return fmt.Errorf("%w: template %s has no criteria", ErrInvalidTemplate, t.ID)
	}

	for _, c := range t.Criteria {
		if err := validateCriterion(c); err != nil {
			return err
		}
	}

	if t.Method == MethodWeighted || t.Method == MethodCustomFormula {
		var sum float64
		for _, c := range t.Criteria {
			sum += c.Weight
		}
		if math.Abs(sum-100) > weightTolerance {
			return fmt.Errorf("%w: criteria weights sum to %.2f, expected 100", ErrInvalidTemplate, sum)
		}
	}

	return nil
}

func validateCriterion(c CriterionSpec) error {
	if c.Weight < 0 || c.Weight > 100 {
		return fmt.Errorf("%w: criterion %s weight %.2f out of range", ErrInvalidTemplate, c.ID, c.Weight)
	}
	if c.MaxScore < 0 {
		return fmt.Errorf("%w: criterion %s max score must not be negative", ErrInvalidTemplate, c.ID)
	}
	if c.AutoFail && c.AutoFailThreshold != nil {
		if *c.AutoFailThreshold < 0 || *c.AutoFailThreshold > 100 {
			return fmt.Errorf("%w: criterion %s auto-fail threshold %.2f out of range", ErrInvalidTemplate, c.ID, *c.AutoFailThreshold)
		}
	}

	switch c.Type {
	case TypeScale:
		cfg := c.Config.Scale
		if cfg == nil {
			return fmt.Errorf("%w: criterion %s has no scale config", ErrInvalidTemplate, c.ID)
		}
		if cfg.Max <= cfg.Min {
			return fmt.Errorf("%w: criterion %s scale min must be below max", ErrInvalidTemplate, c.ID)
		}
	case TypePassFail:
		// Config is optional; defaults to max score / zero.
	case TypeChecklist:
		cfg := c.Config.Checklist
		if cfg == nil || len(cfg.Items) == 0 {
			return fmt.Errorf("%w: criterion %s has no checklist items", ErrInvalidTemplate, c.ID)
		}
		switch cfg.Mode {
		case ChecklistSum, ChecklistAverage, ChecklistAllRequired:
		default:
			return fmt.Errorf("%w: criterion %s has unknown checklist mode %q", ErrInvalidTemplate, c.ID, cfg.Mode)
		}
	case TypeDropdown:
		cfg := c.Config.Dropdown
		if cfg == nil || len(cfg.Options) == 0 {
			return fmt.Errorf("%w: criterion %s has no dropdown options", ErrInvalidTemplate, c.ID)
		}
	case TypeMultiSelect:
		cfg := c.Config.MultiSelect
		if cfg == nil || len(cfg.Options) == 0 {
			return fmt.Errorf("%w: criterion %s has no multi-select options", ErrInvalidTemplate, c.ID)
		}
		switch cfg.Mode {
		case SelectSum, SelectAverage:
		default:
			return fmt.Errorf("%w: criterion %s has unknown select mode %q", ErrInvalidTemplate, c.ID, cfg.Mode)
		}
	case TypeStarRating:
		cfg := c.Config.StarRating
		if cfg == nil || cfg.MaxStars <= 0 {
			return fmt.Errorf("%w: criterion %s needs a positive max star count", ErrInvalidTemplate, c.ID)
		}
	case TypePercentage, TypeFreeText:
		// No config payload.
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCriterionType, c.Type)
	}

	return nil
}
