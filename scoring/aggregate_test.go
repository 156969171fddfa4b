package scoring_test

import (
	"testing"

	"github.com/scorably/scorably/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weightedTemplate() scoring.TemplateSpec {
	return scoring.TemplateSpec{
		ID:            "tpl-1",
		Name:          "Discovery Call Scorecard",
		Method:        scoring.MethodWeighted,
		PassThreshold: 70,
		Version:       1,
		Criteria: []scoring.CriterionSpec{
			{ID: "talk_time", Type: scoring.TypePercentage, Weight: 60, MaxScore: 100},
			{ID: "rapport", Type: scoring.TypeScale, Config: scoring.Config{Scale: &scoring.ScaleConfig{Min: 1, Max: 5}}, Weight: 40, MaxScore: 100},
		},
	}
}

func TestAggregate_Weighted(t *testing.T) {
	tpl := weightedTemplate()
	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(100)},
		{CriterionID: "rapport", Value: scoring.NumberValue(3)},
	})
	require.NoError(t, err)

	// 100% of weight 60 plus 50% of weight 40.
	assert.Equal(t, 80.0, res.TotalScore)
	assert.Equal(t, 100.0, res.TotalPossible)
	assert.Equal(t, 80.0, res.PercentageScore)
	assert.Equal(t, scoring.PassStatusPass, res.PassStatus)
	assert.False(t, res.HasAutoFail)
	assert.Len(t, res.CriterionResults, 2)
}

func TestAggregate_WeightedBelowThresholdFails(t *testing.T) {
	tpl := weightedTemplate()
	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(50)},
		{CriterionID: "rapport", Value: scoring.NumberValue(3)},
	})
	require.NoError(t, err)

	assert.Equal(t, 50.0, res.PercentageScore)
	assert.Equal(t, scoring.PassStatusFail, res.PassStatus)
}

func TestAggregate_WeightedSkipsNotApplicableWeight(t *testing.T) {
	tpl := weightedTemplate()
	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(80)},
		{CriterionID: "rapport", NotApplicable: true},
	})
	require.NoError(t, err)

	// Only the answered criterion's weight counts toward the possible total.
	assert.Equal(t, 48.0, res.TotalScore)
	assert.Equal(t, 60.0, res.TotalPossible)
	assert.Equal(t, 80.0, res.PercentageScore)
	assert.Equal(t, scoring.PassStatusPass, res.PassStatus)
}

func TestAggregate_SimpleAverage(t *testing.T) {
	tpl := weightedTemplate()
	tpl.Method = scoring.MethodSimpleAverage

	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(90)},
		{CriterionID: "rapport", Value: scoring.NumberValue(3)},
	})
	require.NoError(t, err)

	// (90 + 50) / 2, weights ignored.
	assert.Equal(t, 70.0, res.PercentageScore)
	assert.Equal(t, 100.0, res.TotalPossible)
	assert.Equal(t, scoring.PassStatusPass, res.PassStatus)
}

func TestAggregate_PassFailMethod(t *testing.T) {
	tpl := scoring.TemplateSpec{
		ID:            "tpl-pf",
		Method:        scoring.MethodPassFail,
		PassThreshold: 70,
		Criteria: []scoring.CriterionSpec{
			{ID: "pricing", Type: scoring.TypePassFail, MaxScore: 100},
			{ID: "next_step", Type: scoring.TypePassFail, MaxScore: 100},
		},
	}

	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "pricing", Value: scoring.BoolValue(true)},
		{CriterionID: "next_step", Value: scoring.BoolValue(true)},
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.PercentageScore)
	assert.Equal(t, scoring.PassStatusPass, res.PassStatus)

	// A single miss drops the whole session to zero.
	res, err = scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "pricing", Value: scoring.BoolValue(true)},
		{CriterionID: "next_step", Value: scoring.BoolValue(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.PercentageScore)
	assert.Equal(t, scoring.PassStatusFail, res.PassStatus)
}

func TestAggregate_Points(t *testing.T) {
	tpl := scoring.TemplateSpec{
		ID:            "tpl-pts",
		Method:        scoring.MethodPoints,
		PassThreshold: 60,
		Criteria: []scoring.CriterionSpec{
			{ID: "a", Type: scoring.TypePercentage, MaxScore: 50},
			{ID: "b", Type: scoring.TypePercentage, MaxScore: 150},
		},
	}

	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "a", Value: scoring.NumberValue(100)}, // 50 points
		{CriterionID: "b", Value: scoring.NumberValue(50)},  // 75 points
	})
	require.NoError(t, err)

	assert.Equal(t, 125.0, res.TotalScore)
	assert.Equal(t, 200.0, res.TotalPossible)
	assert.Equal(t, 62.5, res.PercentageScore)
	assert.Equal(t, scoring.PassStatusPass, res.PassStatus)
}

func TestAggregate_CustomFormulaFallsBackToWeighted(t *testing.T) {
	tpl := weightedTemplate()
	inputs := []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(100)},
		{CriterionID: "rapport", Value: scoring.NumberValue(5)},
	}

	want, err := scoring.Aggregate(tpl, inputs)
	require.NoError(t, err)

	tpl.Method = scoring.MethodCustomFormula
	got, err := scoring.Aggregate(tpl, inputs)
	require.NoError(t, err)
	assert.Equal(t, want.PercentageScore, got.PercentageScore)
	assert.Equal(t, want.PassStatus, got.PassStatus)
}

func TestAggregate_AutoFailForcesFail(t *testing.T) {
	threshold := 70.0
	tpl := scoring.TemplateSpec{
		ID:            "tpl-af",
		Method:        scoring.MethodWeighted,
		PassThreshold: 70,
		Criteria: []scoring.CriterionSpec{
			{ID: "talk_time", Type: scoring.TypePercentage, Weight: 95, MaxScore: 100},
			{ID: "pricing", Type: scoring.TypePassFail, Weight: 5, MaxScore: 100, AutoFail: true, AutoFailThreshold: &threshold},
		},
	}

	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(100)},
		{CriterionID: "pricing", Value: scoring.BoolValue(false)},
	})
	require.NoError(t, err)

	// 95% overall would pass, but the tripped auto-fail wins.
	assert.Equal(t, 95.0, res.PercentageScore)
	assert.Equal(t, scoring.PassStatusFail, res.PassStatus)
	assert.True(t, res.HasAutoFail)
	assert.Equal(t, []string{"pricing"}, res.AutoFailCriteria)
}

func TestAggregate_ForceAutoFailRequiresFlaggedCriterion(t *testing.T) {
	threshold := 0.0
	tpl := scoring.TemplateSpec{
		ID:            "tpl-force",
		Method:        scoring.MethodWeighted,
		PassThreshold: 50,
		Criteria: []scoring.CriterionSpec{
			{ID: "flagged", Type: scoring.TypePercentage, Weight: 50, MaxScore: 100, AutoFail: true, AutoFailThreshold: &threshold},
			{ID: "plain", Type: scoring.TypePercentage, Weight: 50, MaxScore: 100},
		},
	}

	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "flagged", Value: scoring.NumberValue(100), ForceAutoFail: true},
		{CriterionID: "plain", Value: scoring.NumberValue(100), ForceAutoFail: true},
	})
	require.NoError(t, err)

	// Only the criterion flagged auto-fail honors the forced trigger.
	assert.Equal(t, []string{"flagged"}, res.AutoFailCriteria)
	assert.Equal(t, scoring.PassStatusFail, res.PassStatus)
}

func TestAggregate_AllNotApplicableIsPending(t *testing.T) {
	tpl := weightedTemplate()
	res, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "talk_time", NotApplicable: true},
		{CriterionID: "rapport", NotApplicable: true},
	})
	require.NoError(t, err)

	assert.Equal(t, scoring.PassStatusPending, res.PassStatus)
	assert.Equal(t, 0.0, res.TotalScore)
	assert.Equal(t, 0.0, res.TotalPossible)
	assert.Equal(t, 0.0, res.PercentageScore)
	assert.False(t, res.HasAutoFail)
	assert.Len(t, res.CriterionResults, 2)
}

func TestAggregate_NoInputsIsPending(t *testing.T) {
	res, err := scoring.Aggregate(weightedTemplate(), nil)
	require.NoError(t, err)
	assert.Equal(t, scoring.PassStatusPending, res.PassStatus)
}

func TestAggregate_UnknownCriterion(t *testing.T) {
	_, err := scoring.Aggregate(weightedTemplate(), []scoring.ScoreInput{
		{CriterionID: "ghost", Value: scoring.NumberValue(1)},
	})
	assert.ErrorIs(t, err, scoring.ErrUnknownCriterion)
}

func TestAggregate_UnknownMethod(t *testing.T) {
	tpl := weightedTemplate()
	tpl.Method = "median"
	_, err := scoring.Aggregate(tpl, []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(50)},
	})
	assert.ErrorIs(t, err, scoring.ErrInvalidTemplate)
}

func TestAggregate_IsDeterministic(t *testing.T) {
	tpl := weightedTemplate()
	inputs := []scoring.ScoreInput{
		{CriterionID: "talk_time", Value: scoring.NumberValue(73)},
		{CriterionID: "rapport", Value: scoring.NumberValue(4)},
	}

	first, err := scoring.Aggregate(tpl, inputs)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := scoring.Aggregate(tpl, inputs)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
