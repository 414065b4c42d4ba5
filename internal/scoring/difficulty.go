package scoring

import (
	"fmt"
	"math"

	"github.com/streakworks/tally/internal/clock"
	"github.com/streakworks/tally/internal/types"
)

// DifficultyPreset is the static per-level scaling table. Medium is the
// identity preset.
type DifficultyPreset struct {
	PointsMultiplier    float64
	ThresholdMultiplier float64
	TimeShiftMinutes    int
}

var difficultyPresets = map[types.DifficultyLevel]DifficultyPreset{
	types.DifficultyEasy:   {PointsMultiplier: 0.6, ThresholdMultiplier: 0.7, TimeShiftMinutes: 30},
	types.DifficultyMedium: {PointsMultiplier: 1.0, ThresholdMultiplier: 1.0, TimeShiftMinutes: 0},
	types.DifficultyHard:   {PointsMultiplier: 1.5, ThresholdMultiplier: 1.3, TimeShiftMinutes: -30},
}

// pointKeys are the config fields scaled by the points multiplier, whichever
// are present.
var pointKeys = []string{"points", "points_on_time", "points_at_threshold", "max_points", "binary_points"}

// thresholdKeys are the config fields scaled by the threshold multiplier.
var thresholdKeys = []string{"threshold", "target"}

// ApplyDifficulty derives config overrides from a template's defaults and a
// named difficulty level. Point values are scaled and rounded to the nearest
// integer, thresholds likewise, and time targets shift later on easy and
// earlier on hard (a later cutoff is more forgiving for both deadline
// archetypes). The returned map contains only the changed keys; the input
// map is never mutated.
func ApplyDifficulty(archetype types.Archetype, defaults map[string]any, level types.DifficultyLevel) (map[string]any, error) {
	preset, ok := difficultyPresets[level]
	if !ok {
		return nil, fmt.Errorf("unknown difficulty level %q", level)
	}

	out := map[string]any{}

	// The identity preset writes no overrides at all; rounding a fractional
	// config value would otherwise change it.
	if preset.PointsMultiplier == 1 && preset.ThresholdMultiplier == 1 && preset.TimeShiftMinutes == 0 {
		return out, nil
	}

	if preset.PointsMultiplier != 1 {
		for _, key := range pointKeys {
			if v, ok := numField(defaults, key); ok {
				out[key] = math.Round(v * preset.PointsMultiplier)
			}
		}
	}
	if preset.ThresholdMultiplier != 1 {
		for _, key := range thresholdKeys {
			if v, ok := numField(defaults, key); ok {
				out[key] = math.Round(v * preset.ThresholdMultiplier)
			}
		}
	}

	if archetype == types.ArchetypeTimeBefore || archetype == types.ArchetypeTimeAfter {
		if s, ok := strField(defaults, "target_time"); ok && preset.TimeShiftMinutes != 0 {
			minutes, err := clock.Parse(s)
			if err != nil {
				return nil, configErr(archetype, "target_time", "must be a valid HH:MM clock value")
			}
			out["target_time"] = clock.Format(clock.Add(minutes, preset.TimeShiftMinutes))
		}
	}

	return out, nil
}

// EffectiveTemplate returns a copy of the template with the difficulty
// overrides merged into its default config. A nil level returns the template
// unchanged. The original template's config map is left untouched.
func EffectiveTemplate(t types.TaskTemplate, level *types.DifficultyLevel) (types.TaskTemplate, error) {
	if level == nil {
		return t, nil
	}

	adjust, err := ApplyDifficulty(t.Archetype, t.DefaultConfig, *level)
	if err != nil {
		return t, err
	}

	merged := make(map[string]any, len(t.DefaultConfig)+len(adjust))
	for k, v := range t.DefaultConfig {
		merged[k] = v
	}
	for k, v := range adjust {
		merged[k] = v
	}
	t.DefaultConfig = merged
	return t, nil
}
