package scoring

import (
	"github.com/streakworks/tally/internal/clock"
	"github.com/streakworks/tally/internal/types"
)

// RuleConfig is the fully-resolved, typed configuration the rule library
// consumes. Exactly one variant pointer is set, matching Archetype, unless
// Mode is binary, in which case only Binary is set regardless of archetype.
// Resolution validates once; the rules never fall back to defaults.
type RuleConfig struct {
	Archetype types.Archetype
	Mode      types.ScoringMode

	Binary      *BinaryParams
	Linear      *LinearParams
	Threshold   *ThresholdParams
	Deadline    *DeadlineParams
	Tiered      *TieredParams
	Diminishing *DiminishingParams
}

// BinaryParams configures binary_yesno scoring and binary-mode overrides.
type BinaryParams struct {
	Points float64
}

// LinearParams configures linear_per_unit scoring.
type LinearParams struct {
	UnitSize      float64
	PointsPerUnit float64
	DailyCap      float64
	Target        *float64
}

// ThresholdParams configures threshold scoring.
type ThresholdParams struct {
	Threshold         float64
	PointsAtThreshold float64
	BonusPerUnit      *float64
	MaxBonus          *float64
}

// DeadlineParams configures time_before and time_after scoring. TargetMinutes
// is minutes since midnight.
type DeadlineParams struct {
	TargetMinutes    int
	PointsOnTime     float64
	PenaltyPerMinute *float64
}

// Tier is one band of a tiered schedule. A nil Max means the band is
// unbounded above.
type Tier struct {
	Min    float64
	Max    *float64
	Points float64
}

// TieredParams configures tiered scoring. Tiers are matched in declaration
// order.
type TieredParams struct {
	Tiers []Tier
}

// DiminishingParams configures diminishing scoring: square-root scaling of
// MaxPoints against progress toward Target.
type DiminishingParams struct {
	Target    float64
	MaxPoints float64
}

// Resolve merges a template's default config with league-level overrides and
// per-check-in metadata into a RuleConfig, applying precedence check-in
// metadata > overrides > defaults. It never mutates its inputs and returns a
// ConfigError when a required field is missing or invalid.
func Resolve(template types.TaskTemplate, overrides *types.TaskOverrides, meta *types.CheckinMetadata) (*RuleConfig, error) {
	cfg := template.DefaultConfig
	a := template.Archetype

	rc := &RuleConfig{Archetype: a, Mode: resolveMode(cfg, overrides)}

	if rc.Mode == types.ModeBinary {
		// Binary mode bypasses the archetype entirely; only a
		// per-completion point value is needed.
		points, ok := resolveBinaryPoints(cfg, overrides)
		if !ok {
			return nil, configErr(a, "binary_points", "is required in binary scoring mode")
		}
		rc.Binary = &BinaryParams{Points: points}
		return rc, nil
	}

	switch a {
	case types.ArchetypeBinaryYesNo:
		points, ok := overrideOrNum(overrides.GetPoints(), cfg, "points", "binary_points")
		if !ok {
			return nil, configErr(a, "points", "is required")
		}
		rc.Binary = &BinaryParams{Points: points}

	case types.ArchetypeLinearPerUnit:
		p := &LinearParams{}
		var ok bool
		if p.PointsPerUnit, ok = numField(cfg, "points_per_unit"); !ok {
			return nil, configErr(a, "points_per_unit", "is required")
		}
		if p.DailyCap, ok = numField(cfg, "daily_cap"); !ok {
			return nil, configErr(a, "daily_cap", "is required")
		}
		// A zero or missing unit size would divide by zero; treat as 1.
		if p.UnitSize, ok = numField(cfg, "unit_size"); !ok || p.UnitSize <= 0 {
			p.UnitSize = 1
		}
		if t, ok := overrideOrNum(overrides.GetTarget(), cfg, "target"); ok {
			p.Target = &t
		}
		rc.Linear = p

	case types.ArchetypeThreshold:
		p := &ThresholdParams{}
		var ok bool
		if p.Threshold, ok = overrideOrNum(overrides.GetThreshold(), cfg, "threshold"); !ok {
			return nil, configErr(a, "threshold", "is required")
		}
		if p.PointsAtThreshold, ok = overrideOrNum(overrides.GetPoints(), cfg, "points_at_threshold"); !ok {
			return nil, configErr(a, "points_at_threshold", "is required")
		}
		if b, ok := numField(cfg, "bonus_per_unit"); ok {
			p.BonusPerUnit = &b
		}
		if m, ok := numField(cfg, "max_bonus"); ok {
			p.MaxBonus = &m
		}
		rc.Threshold = p

	case types.ArchetypeTimeBefore, types.ArchetypeTimeAfter:
		p := &DeadlineParams{}
		target, ok := overrideOrStr(overrides.GetTargetTime(), cfg, "target_time")
		if !ok {
			return nil, configErr(a, "target_time", "is required")
		}
		minutes, err := clock.Parse(target)
		if err != nil {
			return nil, configErr(a, "target_time", "must be a valid HH:MM clock value")
		}
		p.TargetMinutes = minutes
		if p.PointsOnTime, ok = overrideOrNum(overrides.GetPoints(), cfg, "points_on_time"); !ok {
			return nil, configErr(a, "points_on_time", "is required")
		}
		if pen, ok := numField(cfg, "penalty_per_minute"); ok {
			p.PenaltyPerMinute = &pen
		}
		rc.Deadline = p

	case types.ArchetypeTiered:
		tiers, err := tiersField(cfg, "tiers")
		if err != nil {
			return nil, err
		}
		rc.Tiered = &TieredParams{Tiers: tiers}

	case types.ArchetypeDiminishing:
		p := &DiminishingParams{}
		var ok bool
		if p.Target, ok = overrideOrNum(overrides.GetTarget(), cfg, "target"); !ok || p.Target <= 0 {
			return nil, configErr(a, "target", "is required and must be positive")
		}
		if p.MaxPoints, ok = overrideOrNum(overrides.GetPoints(), cfg, "max_points"); !ok {
			return nil, configErr(a, "max_points", "is required")
		}
		rc.Diminishing = p

	default:
		return nil, configErr(a, "archetype", "is not a known archetype")
	}

	// Timer-driven duration is the one per-check-in override: the measured
	// duration beats whatever the client typed. It is surfaced through
	// EffectiveValue rather than the config itself.
	_ = meta

	return rc, nil
}

// EffectiveValue applies the per-check-in metadata override to a raw value:
// a timer-measured duration replaces a client-entered duration. The input
// value is not mutated.
func EffectiveValue(kind types.InputKind, value types.CheckinValue, meta *types.CheckinMetadata) types.CheckinValue {
	if kind != types.InputDuration || meta == nil {
		return value
	}

	if meta.DurationSeconds != nil {
		minutes := float64(*meta.DurationSeconds) / 60
		value.DurationMinutes = &minutes
		return value
	}
	if meta.TimerStartedAt != nil && meta.TimerCompletedAt != nil {
		minutes := meta.TimerCompletedAt.Sub(*meta.TimerStartedAt).Minutes()
		if minutes >= 0 {
			value.DurationMinutes = &minutes
		}
	}
	return value
}

func resolveMode(cfg map[string]any, overrides *types.TaskOverrides) types.ScoringMode {
	if overrides != nil && overrides.ScoringMode != nil {
		return *overrides.ScoringMode
	}
	if s, ok := strField(cfg, "scoring_mode"); ok && types.ScoringMode(s) == types.ModeBinary {
		return types.ModeBinary
	}
	return types.ModeDetailed
}

func resolveBinaryPoints(cfg map[string]any, overrides *types.TaskOverrides) (float64, bool) {
	if overrides != nil {
		if overrides.BinaryPoints != nil {
			return *overrides.BinaryPoints, true
		}
		if overrides.Points != nil {
			return *overrides.Points, true
		}
	}
	if v, ok := numField(cfg, "binary_points"); ok {
		return v, true
	}
	return numField(cfg, "points")
}

// overrideOrNum returns the override value when set, otherwise the first of
// the named config keys that holds a number.
func overrideOrNum(override *float64, cfg map[string]any, keys ...string) (float64, bool) {
	if override != nil {
		return *override, true
	}
	for _, k := range keys {
		if v, ok := numField(cfg, k); ok {
			return v, true
		}
	}
	return 0, false
}

func overrideOrStr(override *string, cfg map[string]any, key string) (string, bool) {
	if override != nil {
		return *override, true
	}
	return strField(cfg, key)
}

// numField reads a numeric config value, tolerating the int/float variants
// that YAML and JSON decoding produce.
func numField(cfg map[string]any, key string) (float64, bool) {
	raw, ok := cfg[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

func strField(cfg map[string]any, key string) (string, bool) {
	raw, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// tiersField decodes the tier list from a raw config map. Tiers arrive as a
// list of maps with min, max (nullable) and points keys.
func tiersField(cfg map[string]any, key string) ([]Tier, error) {
	raw, ok := cfg[key]
	if !ok {
		return nil, configErr(types.ArchetypeTiered, key, "is required")
	}

	list, ok := raw.([]any)
	if !ok || len(list) == 0 {
		return nil, configErr(types.ArchetypeTiered, key, "must be a non-empty list")
	}

	tiers := make([]Tier, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, configErr(types.ArchetypeTiered, key, "must contain tier objects")
		}
		var t Tier
		if t.Min, ok = numField(m, "min"); !ok {
			return nil, configErr(types.ArchetypeTiered, "tiers.min", "is required")
		}
		if t.Points, ok = numField(m, "points"); !ok {
			return nil, configErr(types.ArchetypeTiered, "tiers.points", "is required")
		}
		if rawMax, present := m["max"]; present && rawMax != nil {
			max, ok := numField(m, "max")
			if !ok {
				return nil, configErr(types.ArchetypeTiered, "tiers.max", "must be a number or null")
			}
			t.Max = &max
		}
		tiers = append(tiers, t)
	}
	return tiers, nil
}
