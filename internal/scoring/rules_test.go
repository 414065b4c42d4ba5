package scoring

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/streakworks/tally/internal/types"
)

func boolPtr(b bool) *bool      { return &b }
func numPtr(f float64) *float64 { return &f }
func strPtr(s string) *string   { return &s }

func boolValue(b bool) types.CheckinValue {
	return types.CheckinValue{Boolean: boolPtr(b)}
}

func numValue(f float64) types.CheckinValue {
	return types.CheckinValue{Numeric: numPtr(f)}
}

func timeValue(s string) types.CheckinValue {
	return types.CheckinValue{Time: strPtr(s)}
}

func TestScore_BinaryYesNo(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeBinaryYesNo,
		Mode:      types.ModeDetailed,
		Binary:    &BinaryParams{Points: 10},
	}

	// Scenario: points_per_completion = 10, boolean_value = true
	res, err := Score(rc, boolValue(true))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 10 {
		t.Errorf("expected 10 points, got %g", res.PointsAwarded)
	}
	if !res.IsComplete {
		t.Error("expected complete")
	}

	res, err = Score(rc, boolValue(false))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 0 || res.IsComplete {
		t.Errorf("false check-in should score 0 incomplete, got %g complete=%v", res.PointsAwarded, res.IsComplete)
	}
}

func TestScore_LinearPerUnit(t *testing.T) {
	// Scenario: Steps, unit_size=1000, points_per_unit=1, daily_cap=10
	rc := &RuleConfig{
		Archetype: types.ArchetypeLinearPerUnit,
		Mode:      types.ModeDetailed,
		Linear:    &LinearParams{UnitSize: 1000, PointsPerUnit: 1, DailyCap: 10},
	}

	res, err := Score(rc, numValue(8420))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.PointsAwarded-8.42) > 1e-9 {
		t.Errorf("expected 8.42 points, got %g", res.PointsAwarded)
	}
	if res.IsComplete {
		t.Error("8420 steps should not complete a 10-point cap")
	}

	res, err = Score(rc, numValue(25000))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 10 {
		t.Errorf("expected capped 10 points, got %g", res.PointsAwarded)
	}
	if res.PointsBeforeCap != 25 {
		t.Errorf("expected 25 points before cap, got %g", res.PointsBeforeCap)
	}
	if !res.IsComplete {
		t.Error("hitting the cap should complete the task")
	}
	if res.RuleApplied != RuleLinearCapped {
		t.Errorf("expected %s, got %s", RuleLinearCapped, res.RuleApplied)
	}
}

func TestScore_LinearMonotonicAndCapped(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeLinearPerUnit,
		Mode:      types.ModeDetailed,
		Linear:    &LinearParams{UnitSize: 500, PointsPerUnit: 2, DailyCap: 40},
	}

	prev := -1.0
	for v := 0.0; v <= 20000; v += 250 {
		res, err := Score(rc, numValue(v))
		if err != nil {
			t.Fatal(err)
		}
		if res.PointsAwarded < prev {
			t.Fatalf("points decreased at value %g: %g < %g", v, res.PointsAwarded, prev)
		}
		if res.PointsAwarded > 40 {
			t.Fatalf("points %g exceeded daily cap at value %g", res.PointsAwarded, v)
		}
		prev = res.PointsAwarded
	}
}

func TestScore_Threshold(t *testing.T) {
	// Scenario: Workout, threshold=30, points_at_threshold=50
	rc := &RuleConfig{
		Archetype: types.ArchetypeThreshold,
		Mode:      types.ModeDetailed,
		Threshold: &ThresholdParams{Threshold: 30, PointsAtThreshold: 50},
	}

	res, err := Score(rc, numValue(20))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 0 || res.IsComplete {
		t.Errorf("below threshold: expected 0/incomplete, got %g complete=%v", res.PointsAwarded, res.IsComplete)
	}

	res, err = Score(rc, numValue(30))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 50 || !res.IsComplete {
		t.Errorf("at threshold: expected 50/complete, got %g complete=%v", res.PointsAwarded, res.IsComplete)
	}
}

func TestScore_ThresholdBonusCapped(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeThreshold,
		Mode:      types.ModeDetailed,
		Threshold: &ThresholdParams{
			Threshold:         30,
			PointsAtThreshold: 50,
			BonusPerUnit:      numPtr(2),
			MaxBonus:          numPtr(10),
		},
	}

	res, err := Score(rc, numValue(33))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 56 {
		t.Errorf("expected 50 + 3*2 bonus = 56, got %g", res.PointsAwarded)
	}

	res, err = Score(rc, numValue(90))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 60 {
		t.Errorf("expected bonus capped at 10 (total 60), got %g", res.PointsAwarded)
	}
}

func TestScore_ThresholdIncompleteAlwaysZero(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeThreshold,
		Mode:      types.ModeDetailed,
		Threshold: &ThresholdParams{Threshold: 100, PointsAtThreshold: 25},
	}

	for v := 0.0; v < 100; v += 7 {
		res, err := Score(rc, numValue(v))
		if err != nil {
			t.Fatal(err)
		}
		if res.IsComplete != (v >= 100) {
			t.Fatalf("completion mismatch at %g", v)
		}
		if !res.IsComplete && res.PointsAwarded != 0 {
			t.Fatalf("incomplete threshold awarded %g points at %g", res.PointsAwarded, v)
		}
	}
}

func TestScore_TimeAfterLatePenalty(t *testing.T) {
	// Scenario: Wake Time, target 06:30, 50 points, 1 point/minute penalty.
	rc := &RuleConfig{
		Archetype: types.ArchetypeTimeAfter,
		Mode:      types.ModeDetailed,
		Deadline: &DeadlineParams{
			TargetMinutes:    390, // 06:30
			PointsOnTime:     50,
			PenaltyPerMinute: numPtr(1),
		},
	}

	res, err := Score(rc, timeValue("07:00"))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 20 {
		t.Errorf("30 minutes late at 1/min: expected 20 points, got %g", res.PointsAwarded)
	}
	if res.IsComplete {
		t.Error("late wake-up must not count as complete")
	}
	if res.DerivedValues["minutes_late"] != 30 {
		t.Errorf("expected minutes_late=30, got %v", res.DerivedValues["minutes_late"])
	}

	// Earlier than target is the rewarded direction: full credit, no penalty.
	res, err = Score(rc, timeValue("05:45"))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 50 || !res.IsComplete {
		t.Errorf("early wake-up: expected 50/complete, got %g complete=%v", res.PointsAwarded, res.IsComplete)
	}
}

func TestScore_TimeBefore(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeTimeBefore,
		Mode:      types.ModeDetailed,
		Deadline: &DeadlineParams{
			TargetMinutes:    1380, // 23:00
			PointsOnTime:     40,
			PenaltyPerMinute: numPtr(2),
		},
	}

	res, err := Score(rc, timeValue("22:30"))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 40 || !res.IsComplete {
		t.Errorf("early bedtime: expected 40/complete, got %g complete=%v", res.PointsAwarded, res.IsComplete)
	}

	res, err = Score(rc, timeValue("23:10"))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 20 {
		t.Errorf("10 minutes late at 2/min: expected 20, got %g", res.PointsAwarded)
	}
	if res.IsComplete {
		t.Error("no completion credit for late bedtime")
	}
}

func TestScore_TimePenaltyFloorsAtZero(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeTimeBefore,
		Mode:      types.ModeDetailed,
		Deadline: &DeadlineParams{
			TargetMinutes:    1320, // 22:00
			PointsOnTime:     30,
			PenaltyPerMinute: numPtr(1),
		},
	}

	res, err := Score(rc, timeValue("23:30"))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 0 {
		t.Errorf("penalty past zero must floor at 0, got %g", res.PointsAwarded)
	}
}

func TestScore_TimeLateWithoutPenaltyConfigured(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeTimeBefore,
		Mode:      types.ModeDetailed,
		Deadline:  &DeadlineParams{TargetMinutes: 1380, PointsOnTime: 40},
	}

	res, err := Score(rc, timeValue("23:05"))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 0 || res.IsComplete {
		t.Errorf("late with no penalty schedule: expected 0/incomplete, got %g complete=%v", res.PointsAwarded, res.IsComplete)
	}
}

func TestScore_TimeMirrorSymmetry(t *testing.T) {
	// The two deadline archetypes share one schedule shape: for the same
	// target and penalty, a value d minutes past the target scores
	// identically under either archetype.
	before := &RuleConfig{
		Archetype: types.ArchetypeTimeBefore,
		Mode:      types.ModeDetailed,
		Deadline:  &DeadlineParams{TargetMinutes: 600, PointsOnTime: 60, PenaltyPerMinute: numPtr(3)},
	}
	after := &RuleConfig{
		Archetype: types.ArchetypeTimeAfter,
		Mode:      types.ModeDetailed,
		Deadline:  &DeadlineParams{TargetMinutes: 600, PointsOnTime: 60, PenaltyPerMinute: numPtr(3)},
	}

	for _, v := range []string{"09:00", "10:00", "10:05", "10:20", "12:00"} {
		rb, err := Score(before, timeValue(v))
		if err != nil {
			t.Fatal(err)
		}
		ra, err := Score(after, timeValue(v))
		if err != nil {
			t.Fatal(err)
		}
		if rb.PointsAwarded != ra.PointsAwarded || rb.IsComplete != ra.IsComplete {
			t.Errorf("schedule mismatch at %s: before=%g/%v after=%g/%v",
				v, rb.PointsAwarded, rb.IsComplete, ra.PointsAwarded, ra.IsComplete)
		}
	}
}

func screenTimeTiers() *RuleConfig {
	return &RuleConfig{
		Archetype: types.ArchetypeTiered,
		Mode:      types.ModeDetailed,
		Tiered: &TieredParams{Tiers: []Tier{
			{Min: 0, Max: numPtr(60), Points: 5},
			{Min: 60, Max: numPtr(120), Points: 3},
			{Min: 120, Max: numPtr(180), Points: 0},
			{Min: 180, Max: nil, Points: -3},
		}},
	}
}

func TestScore_Tiered(t *testing.T) {
	rc := screenTimeTiers()

	// Scenario: 90 minutes of screen time lands in the second band.
	res, err := Score(rc, numValue(90))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 3 {
		t.Errorf("expected 3 points, got %g", res.PointsAwarded)
	}
	if res.DerivedValues["tier_index"] != 1 {
		t.Errorf("expected tier_index=1, got %v", res.DerivedValues["tier_index"])
	}

	cases := []struct {
		value    float64
		points   float64
		complete bool
	}{
		{0, 5, true},
		{59, 5, true},
		{60, 3, true},
		{120, 0, false},
		{180, -3, false},
		{500, -3, false},
	}
	for _, c := range cases {
		res, err := Score(rc, numValue(c.value))
		if err != nil {
			t.Fatal(err)
		}
		if res.PointsAwarded != c.points || res.IsComplete != c.complete {
			t.Errorf("value %g: expected %g/%v, got %g/%v",
				c.value, c.points, c.complete, res.PointsAwarded, res.IsComplete)
		}
	}
}

func TestScore_TieredNoMatchIsExplicitZero(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeTiered,
		Mode:      types.ModeDetailed,
		Tiered: &TieredParams{Tiers: []Tier{
			{Min: 10, Max: numPtr(20), Points: 5},
		}},
	}

	res, err := Score(rc, numValue(5))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 0 || res.IsComplete {
		t.Errorf("no tier match: expected 0/incomplete, got %g/%v", res.PointsAwarded, res.IsComplete)
	}
	if res.RuleApplied != RuleTieredNoMatch {
		t.Errorf("expected %s, got %s", RuleTieredNoMatch, res.RuleApplied)
	}
}

func TestScore_Diminishing(t *testing.T) {
	rc := &RuleConfig{
		Archetype:   types.ArchetypeDiminishing,
		Mode:        types.ModeDetailed,
		Diminishing: &DiminishingParams{Target: 100, MaxPoints: 40},
	}

	// Quarter progress earns half the cap under sqrt scaling.
	res, err := Score(rc, numValue(25))
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.PointsAwarded-20) > 1e-9 {
		t.Errorf("expected 20 points at quarter progress, got %g", res.PointsAwarded)
	}
	if res.IsComplete {
		t.Error("below target must not complete")
	}

	// At and beyond target the award caps at MaxPoints.
	for _, v := range []float64{100, 150, 400} {
		res, err := Score(rc, numValue(v))
		if err != nil {
			t.Fatal(err)
		}
		if res.PointsAwarded != 40 || !res.IsComplete {
			t.Errorf("value %g: expected 40/complete, got %g/%v", v, res.PointsAwarded, res.IsComplete)
		}
	}
}

func TestScore_BinaryModeOverrideBypassesArchetype(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeLinearPerUnit,
		Mode:      types.ModeBinary,
		Binary:    &BinaryParams{Points: 15},
	}

	res, err := Score(rc, boolValue(true))
	if err != nil {
		t.Fatal(err)
	}
	if res.PointsAwarded != 15 || !res.IsComplete {
		t.Errorf("expected 15/complete, got %g/%v", res.PointsAwarded, res.IsComplete)
	}
	if res.RuleApplied != RuleBinaryModeOverride {
		t.Errorf("expected %s, got %s", RuleBinaryModeOverride, res.RuleApplied)
	}
}

func TestScore_WrongValueShape(t *testing.T) {
	rc := &RuleConfig{
		Archetype: types.ArchetypeLinearPerUnit,
		Mode:      types.ModeDetailed,
		Linear:    &LinearParams{UnitSize: 1, PointsPerUnit: 1, DailyCap: 10},
	}

	_, err := Score(rc, boolValue(true))
	if err == nil {
		t.Fatal("expected error for boolean value on linear task")
	}
	var ve *ValueError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValueError, got %T", err)
	}
}

func TestScore_Deterministic(t *testing.T) {
	rc := screenTimeTiers()

	first, err := Score(rc, numValue(90))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Score(rc, numValue(90))
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("score diverged on call %d: %+v vs %+v", i, first, again)
		}
	}
}
