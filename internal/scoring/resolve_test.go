package scoring

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/streakworks/tally/internal/types"
)

func stepsTemplate() types.TaskTemplate {
	return types.TaskTemplate{
		ID:        "steps",
		Name:      "Daily Steps",
		Category:  types.CategoryFitness,
		Archetype: types.ArchetypeLinearPerUnit,
		InputKind: types.InputNumeric,
		Unit:      types.UnitSteps,
		DefaultConfig: map[string]any{
			"unit_size":       1000,
			"points_per_unit": 1,
			"daily_cap":       10,
		},
	}
}

func bedtimeTemplate() types.TaskTemplate {
	return types.TaskTemplate{
		ID:        "bedtime",
		Name:      "Bedtime",
		Category:  types.CategorySleep,
		Archetype: types.ArchetypeTimeBefore,
		InputKind: types.InputTime,
		Unit:      types.UnitBedtime,
		DefaultConfig: map[string]any{
			"target_time":        "23:00",
			"points_on_time":     40,
			"penalty_per_minute": 2,
		},
	}
}

func TestResolve_Defaults(t *testing.T) {
	rc, err := Resolve(stepsTemplate(), nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rc.Mode != types.ModeDetailed {
		t.Errorf("expected detailed mode, got %s", rc.Mode)
	}
	if rc.Linear == nil {
		t.Fatal("expected linear params")
	}
	if rc.Linear.UnitSize != 1000 || rc.Linear.PointsPerUnit != 1 || rc.Linear.DailyCap != 10 {
		t.Errorf("unexpected linear params: %+v", rc.Linear)
	}
}

func TestResolve_OverridePrecedence(t *testing.T) {
	tpl := bedtimeTemplate()
	overrides := &types.TaskOverrides{
		TargetTime: strPtr("22:30"),
		Points:     numPtr(60),
	}

	rc, err := Resolve(tpl, overrides, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rc.Deadline.TargetMinutes != 22*60+30 {
		t.Errorf("league target_time override ignored: got %d", rc.Deadline.TargetMinutes)
	}
	if rc.Deadline.PointsOnTime != 60 {
		t.Errorf("league points override ignored: got %g", rc.Deadline.PointsOnTime)
	}
	// Non-overridden fields still come from the template.
	if rc.Deadline.PenaltyPerMinute == nil || *rc.Deadline.PenaltyPerMinute != 2 {
		t.Errorf("template penalty lost: %+v", rc.Deadline)
	}
}

func TestResolve_BinaryModeOverride(t *testing.T) {
	tpl := stepsTemplate()
	tpl.DefaultConfig["binary_points"] = 5
	mode := types.ModeBinary

	rc, err := Resolve(tpl, &types.TaskOverrides{ScoringMode: &mode}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rc.Mode != types.ModeBinary {
		t.Fatalf("expected binary mode, got %s", rc.Mode)
	}
	if rc.Binary == nil || rc.Binary.Points != 5 {
		t.Errorf("expected binary_points=5, got %+v", rc.Binary)
	}
	if rc.Linear != nil {
		t.Error("binary mode must not populate archetype params")
	}
}

func TestResolve_BinaryModeMissingPoints(t *testing.T) {
	tpl := stepsTemplate()
	mode := types.ModeBinary

	_, err := Resolve(tpl, &types.TaskOverrides{ScoringMode: &mode}, nil)
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
}

func TestResolve_MissingRequiredField(t *testing.T) {
	cases := []struct {
		name string
		tpl  types.TaskTemplate
	}{
		{
			"linear without points_per_unit",
			types.TaskTemplate{
				Archetype:     types.ArchetypeLinearPerUnit,
				DefaultConfig: map[string]any{"daily_cap": 10},
			},
		},
		{
			"threshold without threshold",
			types.TaskTemplate{
				Archetype:     types.ArchetypeThreshold,
				DefaultConfig: map[string]any{"points_at_threshold": 50},
			},
		},
		{
			"time without target",
			types.TaskTemplate{
				Archetype:     types.ArchetypeTimeBefore,
				DefaultConfig: map[string]any{"points_on_time": 40},
			},
		},
		{
			"time with malformed target",
			types.TaskTemplate{
				Archetype:     types.ArchetypeTimeBefore,
				DefaultConfig: map[string]any{"target_time": "25:99", "points_on_time": 40},
			},
		},
		{
			"tiered without tiers",
			types.TaskTemplate{
				Archetype:     types.ArchetypeTiered,
				DefaultConfig: map[string]any{},
			},
		},
		{
			"diminishing without target",
			types.TaskTemplate{
				Archetype:     types.ArchetypeDiminishing,
				DefaultConfig: map[string]any{"max_points": 40},
			},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Resolve(c.tpl, nil, nil)
			var ce *ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
		})
	}
}

func TestResolve_ZeroUnitSizeDefaultsToOne(t *testing.T) {
	tpl := stepsTemplate()
	tpl.DefaultConfig["unit_size"] = 0

	rc, err := Resolve(tpl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if rc.Linear.UnitSize != 1 {
		t.Errorf("zero unit_size should resolve to 1, got %g", rc.Linear.UnitSize)
	}
}

func TestResolve_DoesNotMutateTemplateConfig(t *testing.T) {
	tpl := bedtimeTemplate()
	snapshot := make(map[string]any, len(tpl.DefaultConfig))
	for k, v := range tpl.DefaultConfig {
		snapshot[k] = v
	}

	overrides := &types.TaskOverrides{TargetTime: strPtr("21:00"), Points: numPtr(99)}
	if _, err := Resolve(tpl, overrides, nil); err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(tpl.DefaultConfig, snapshot) {
		t.Errorf("template default config mutated: %v", tpl.DefaultConfig)
	}
}

func TestResolve_TiersFromUntypedConfig(t *testing.T) {
	tpl := types.TaskTemplate{
		Archetype: types.ArchetypeTiered,
		InputKind: types.InputNumeric,
		DefaultConfig: map[string]any{
			"tiers": []any{
				map[string]any{"min": 0, "max": 60, "points": 5},
				map[string]any{"min": 60, "max": nil, "points": -3},
			},
		},
	}

	rc, err := Resolve(tpl, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(rc.Tiered.Tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(rc.Tiered.Tiers))
	}
	if rc.Tiered.Tiers[0].Max == nil || *rc.Tiered.Tiers[0].Max != 60 {
		t.Errorf("first tier max wrong: %+v", rc.Tiered.Tiers[0])
	}
	if rc.Tiered.Tiers[1].Max != nil {
		t.Errorf("open tier should have nil max: %+v", rc.Tiered.Tiers[1])
	}
}

func TestEffectiveValue_TimerDurationWins(t *testing.T) {
	typed := 10.0
	seconds := 1500 // 25 minutes measured by the timer
	value := types.CheckinValue{DurationMinutes: &typed}
	meta := &types.CheckinMetadata{DurationSeconds: &seconds}

	out := EffectiveValue(types.InputDuration, value, meta)
	if out.DurationMinutes == nil || *out.DurationMinutes != 25 {
		t.Errorf("expected timer-measured 25 minutes, got %v", out.DurationMinutes)
	}
	if typed != 10 {
		t.Error("input value mutated")
	}
}

func TestEffectiveValue_TimerStamps(t *testing.T) {
	start := time.Date(2026, 8, 29, 7, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	typed := 5.0

	out := EffectiveValue(types.InputDuration,
		types.CheckinValue{DurationMinutes: &typed},
		&types.CheckinMetadata{TimerStartedAt: &start, TimerCompletedAt: &end})

	if out.DurationMinutes == nil || *out.DurationMinutes != 30 {
		t.Errorf("expected 30 minutes from timer stamps, got %v", out.DurationMinutes)
	}
}

func TestEffectiveValue_NonDurationUntouched(t *testing.T) {
	seconds := 1500
	value := numValue(42)
	out := EffectiveValue(types.InputNumeric, value, &types.CheckinMetadata{DurationSeconds: &seconds})
	if !reflect.DeepEqual(out, value) {
		t.Errorf("numeric value should pass through unchanged, got %+v", out)
	}
}
