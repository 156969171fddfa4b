package scoring

import (
	"fmt"
)

// PassStatus is the overall outcome of a scored session.
type PassStatus string

const (
	PassStatusPending PassStatus = "pending"
	PassStatusPass    PassStatus = "pass"
	PassStatusFail    PassStatus = "fail"
)

// TemplateSpec is the immutable snapshot of a rubric taken at scoring time.
type TemplateSpec struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Method             ScoringMethod   `json:"method"`
	PassThreshold      float64         `json:"pass_threshold"`
	Version            int             `json:"version"`
	AllowNotApplicable bool            `json:"allow_not_applicable"`
	RequireComments    bool            `json:"require_comments"`
	Groups             []GroupSpec     `json:"groups,omitempty"`
	Criteria           []CriterionSpec `json:"criteria"`
}

// GroupSpec mirrors a criteria group for display and weight bookkeeping.
type GroupSpec struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Weight   float64 `json:"weight"`
	Required bool    `json:"required"`
}

// ScoreInput is one answered criterion going into aggregation.
type ScoreInput struct {
	CriterionID   string
	Value         Value
	NotApplicable bool
	Comment       string
	// ForceAutoFail carries a grader-asserted auto-fail. It only takes
	// effect when the criterion itself is flagged auto-fail.
	ForceAutoFail bool
}

// SessionResult is the composite outcome of one grading pass.
type SessionResult struct {
	TotalScore       float64
	TotalPossible    float64
	PercentageScore  float64
	PassStatus       PassStatus
	HasAutoFail      bool
	AutoFailCriteria []string
	CriterionResults []CriterionResult
}

// Aggregate computes every criterion result and combines them per the
// template's scoring method. It is pure: safe to call repeatedly or in
// parallel for the same input. Zero valid (non not-applicable) results
// yield a pending result with all totals at zero, not an error.
func Aggregate(t TemplateSpec, inputs []ScoreInput) (SessionResult, error) {
	specs := make(map[string]CriterionSpec, len(t.Criteria))
	for _, c := range t.Criteria {
		specs[c.ID] = c
	}

	results := make([]CriterionResult, 0, len(inputs))
	valid := make([]CriterionResult, 0, len(inputs))
	triggered := make(map[string]bool)

	for _, in := range inputs {
		spec, ok := specs[in.CriterionID]
		if !ok {
			return SessionResult{}, fmt.Errorf("%w: %s is not part of template %s", ErrUnknownCriterion, in.CriterionID, t.ID)
		}
		res, err := ScoreCriterion(spec, in.Value, in.NotApplicable)
		if err != nil {
			return SessionResult{}, err
		}
		if !res.NotApplicable && in.ForceAutoFail && spec.AutoFail {
			res.AutoFailTriggered = true
		}
		results = append(results, res)
		if !res.NotApplicable {
			valid = append(valid, res)
			if res.AutoFailTriggered {
				triggered[res.CriterionID] = true
			}
		}
	}

	if len(valid) == 0 {
		return SessionResult{PassStatus: PassStatusPending, CriterionResults: results}, nil
	}

	var total, possible, percentage float64

	switch t.Method {
	case MethodWeighted, MethodCustomFormula:
		// custom_formula has no formula evaluator and falls back to the
		// weighted algorithm.
		for _, res := range valid {
			total += res.WeightedScore
			possible += specs[res.CriterionID].Weight
		}
		if possible > 0 {
			percentage = total / possible * 100
		}
	case MethodSimpleAverage:
		var sum float64
		for _, res := range valid {
			sum += res.NormalizedScore
		}
		percentage = sum / float64(len(valid))
		total = percentage
		possible = 100
	case MethodPassFail:
		percentage = 100
		for _, res := range valid {
			if res.NormalizedScore < 100 {
				percentage = 0
				break
			}
		}
		total = percentage
		possible = 100
	case MethodPoints:
		for _, res := range valid {
			total += res.RawScore
			possible += specs[res.CriterionID].MaxScore
		}
		if possible > 0 {
			percentage = total / possible * 100
		}
	default:
		return SessionResult{}, fmt.Errorf("%w: unknown scoring method %q", ErrInvalidTemplate, t.Method)
	}

	result := SessionResult{
		TotalScore:       round2(total),
		TotalPossible:    round2(possible),
		PercentageScore:  round2(percentage),
		CriterionResults: results,
	}

	// Auto-fail criteria are reported in template order.
	for _, c := range t.Criteria {
		if triggered[c.ID] {
			result.AutoFailCriteria = append(result.AutoFailCriteria, c.ID)
		}
	}
	result.HasAutoFail = len(result.AutoFailCriteria) > 0

	if result.HasAutoFail {
		result.PassStatus = PassStatusFail
	} else if result.PercentageScore >= t.PassThreshold {
		result.PassStatus = PassStatusPass
	} else {
		result.PassStatus = PassStatusFail
	}

	return result, nil
}
