package scoring

// CriterionType discriminates the answer format of a rubric line item.
type CriterionType string

const (
	TypeScale       CriterionType = "scale"
	TypePassFail    CriterionType = "pass_fail"
	TypeChecklist   CriterionType = "checklist"
	TypeDropdown    CriterionType = "dropdown"
	TypeMultiSelect CriterionType = "multi_select"
	TypeStarRating  CriterionType = "star_rating"
	TypePercentage  CriterionType = "percentage"
	TypeFreeText    CriterionType = "free_text"
)

// ScoringMethod selects how per-criterion results combine into a session result.
type ScoringMethod string

const (
	MethodWeighted      ScoringMethod = "weighted"
	MethodSimpleAverage ScoringMethod = "simple_average"
	MethodPassFail      ScoringMethod = "pass_fail"
	MethodPoints        ScoringMethod = "points"
	MethodCustomFormula ScoringMethod = "custom_formula"
)

// ChecklistMode selects how checked checklist items convert to a raw score.
type ChecklistMode string

const (
	ChecklistSum         ChecklistMode = "sum"
	ChecklistAverage     ChecklistMode = "average"
	ChecklistAllRequired ChecklistMode = "all_required"
)

// SelectMode selects how multi-select options combine.
type SelectMode string

const (
	SelectSum     SelectMode = "sum"
	SelectAverage SelectMode = "average"
)

type ChecklistItem struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Points float64 `json:"points"`
}

type SelectOption struct {
	ID    string  `json:"id"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type ScaleConfig struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type PassFailConfig struct {
	PassScore float64 `json:"pass_score"`
	FailScore float64 `json:"fail_score"`
}

type ChecklistConfig struct {
	Items []ChecklistItem `json:"items"`
	Mode  ChecklistMode   `json:"mode"`
}

type DropdownConfig struct {
	Options []SelectOption `json:"options"`
}

type MultiSelectConfig struct {
	Options []SelectOption `json:"options"`
	Mode    SelectMode     `json:"mode"`
}

type StarRatingConfig struct {
	MaxStars int `json:"max_stars"`
}

// Config is the type-specific payload of a criterion. Exactly one variant
// (or none, for percentage and free text) may be set; the criterion's Type
// names which one is authoritative.
type Config struct {
	Scale       *ScaleConfig       `json:"scale,omitempty"`
	PassFail    *PassFailConfig    `json:"pass_fail,omitempty"`
	Checklist   *ChecklistConfig   `json:"checklist,omitempty"`
	Dropdown    *DropdownConfig    `json:"dropdown,omitempty"`
	MultiSelect *MultiSelectConfig `json:"multi_select,omitempty"`
	StarRating  *StarRatingConfig  `json:"star_rating,omitempty"`
}

// Value is an answer to one criterion. The field matching the criterion's
// type carries the answer; the scorer never guesses on shape.
type Value struct {
	Number     *float64 `json:"number,omitempty"`     // scale, star_rating, percentage
	Passed     *bool    `json:"passed,omitempty"`     // pass_fail
	Selections []string `json:"selections,omitempty"` // checklist item ids, multi_select option ids
	OptionID   *string  `json:"option_id,omitempty"`  // dropdown
	Text       *string  `json:"text,omitempty"`       // free_text
}

// NumberValue builds a numeric answer (scale, star rating, percentage).
func NumberValue(n float64) Value {
	return Value{Number: &n}
}

// BoolValue builds a pass/fail answer.
func BoolValue(passed bool) Value {
	return Value{Passed: &passed}
}

// SelectionsValue builds a checklist or multi-select answer.
func SelectionsValue(ids ...string) Value {
	return Value{Selections: ids}
}

// OptionValue builds a dropdown answer.
func OptionValue(id string) Value {
	return Value{OptionID: &id}
}

// TextValue builds a free text answer.
func TextValue(text string) Value {
	return Value{Text: &text}
}
