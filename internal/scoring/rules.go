package scoring

import (
	"math"

	"github.com/streakworks/tally/internal/clock"
	"github.com/streakworks/tally/internal/types"
)

// Rule names reported in ScoreResult.RuleApplied. One per archetype branch so
// the display layer can explain which path fired.
const (
	RuleBinary             = "binary_yesno"
	RuleBinaryModeOverride = "binary_mode_override"
	RuleLinear             = "linear_per_unit"
	RuleLinearCapped       = "linear_per_unit_capped"
	RuleThresholdMet       = "threshold_met"
	RuleThresholdMissed    = "threshold_missed"
	RuleTimeBeforeOnTime   = "time_before_on_time"
	RuleTimeBeforeLate     = "time_before_late"
	RuleTimeAfterOnTime    = "time_after_on_time"
	RuleTimeAfterLate      = "time_after_late"
	RuleTieredMatch        = "tiered_match"
	RuleTieredNoMatch      = "tiered_no_match"
	RuleDiminishing        = "diminishing"
	RuleUnverified         = "verification_pending"
)

// Score applies the resolved rule config to a raw check-in value. It is a
// pure function: no I/O, deterministic for identical inputs. The returned
// result is freshly allocated on every call.
func Score(rc *RuleConfig, value types.CheckinValue) (*types.ScoreResult, error) {
	// Binary-mode override beats the archetype.
	if rc.Mode == types.ModeBinary {
		res, err := scoreBinary(rc.Binary, value)
		if err != nil {
			return nil, err
		}
		res.RuleApplied = RuleBinaryModeOverride
		return res, nil
	}

	switch rc.Archetype {
	case types.ArchetypeBinaryYesNo:
		return scoreBinary(rc.Binary, value)
	case types.ArchetypeLinearPerUnit:
		return scoreLinear(rc.Linear, value)
	case types.ArchetypeThreshold:
		return scoreThreshold(rc.Threshold, value)
	case types.ArchetypeTimeBefore:
		return scoreDeadline(rc.Deadline, value, RuleTimeBeforeOnTime, RuleTimeBeforeLate)
	case types.ArchetypeTimeAfter:
		return scoreDeadline(rc.Deadline, value, RuleTimeAfterOnTime, RuleTimeAfterLate)
	case types.ArchetypeTiered:
		return scoreTiered(rc.Tiered, value)
	case types.ArchetypeDiminishing:
		return scoreDiminishing(rc.Diminishing, value)
	default:
		return nil, ErrUnknownArchetype
	}
}

func scoreBinary(p *BinaryParams, value types.CheckinValue) (*types.ScoreResult, error) {
	if value.Boolean == nil {
		return nil, valueErr("boolean_value", "is required for binary scoring")
	}

	res := &types.ScoreResult{
		RuleApplied:   RuleBinary,
		DerivedValues: map[string]any{},
	}
	if *value.Boolean {
		res.PointsAwarded = p.Points
		res.PointsBeforeCap = p.Points
		res.IsComplete = true
	}
	return res, nil
}

func scoreLinear(p *LinearParams, value types.CheckinValue) (*types.ScoreResult, error) {
	amount, ok := value.Amount()
	if !ok {
		return nil, valueErr("numeric_value", "is required for linear scoring")
	}

	unitsEarned := amount / p.UnitSize
	raw := unitsEarned * p.PointsPerUnit
	points := math.Min(raw, p.DailyCap)

	res := &types.ScoreResult{
		PointsAwarded:   points,
		PointsBeforeCap: raw,
		IsComplete:      points >= p.DailyCap,
		RuleApplied:     RuleLinear,
		DerivedValues: map[string]any{
			"units_earned": unitsEarned,
		},
	}
	if raw > p.DailyCap {
		res.RuleApplied = RuleLinearCapped
		res.DerivedValues["capped"] = true
	}
	return res, nil
}

func scoreThreshold(p *ThresholdParams, value types.CheckinValue) (*types.ScoreResult, error) {
	amount, ok := value.Amount()
	if !ok {
		return nil, valueErr("numeric_value", "is required for threshold scoring")
	}

	res := &types.ScoreResult{
		RuleApplied:   RuleThresholdMissed,
		DerivedValues: map[string]any{},
	}
	if amount < p.Threshold {
		res.DerivedValues["shortfall"] = p.Threshold - amount
		return res, nil
	}

	points := p.PointsAtThreshold
	surplus := amount - p.Threshold
	res.DerivedValues["surplus"] = surplus

	if p.BonusPerUnit != nil && surplus > 0 {
		bonus := surplus * *p.BonusPerUnit
		if p.MaxBonus != nil {
			bonus = math.Min(bonus, *p.MaxBonus)
		}
		points += bonus
		res.DerivedValues["bonus"] = bonus
	}

	res.PointsAwarded = points
	res.PointsBeforeCap = points
	res.IsComplete = true
	res.RuleApplied = RuleThresholdMet
	return res, nil
}

// scoreDeadline handles both time archetypes: the check-in is on time when it
// lands at or before the target, and minutes past the target draw the
// configured per-minute penalty, floored at zero. A late check-in never
// counts as complete, even when partial credit remains.
func scoreDeadline(p *DeadlineParams, value types.CheckinValue, onTimeRule, lateRule string) (*types.ScoreResult, error) {
	if value.Time == nil {
		return nil, valueErr("time_value", "is required for time-targeted scoring")
	}
	minutes, err := clock.Parse(*value.Time)
	if err != nil {
		return nil, valueErr("time_value", "must be a valid HH:MM clock value")
	}

	res := &types.ScoreResult{
		DerivedValues: map[string]any{
			"target_time": clock.Format(p.TargetMinutes),
		},
	}

	if minutes <= p.TargetMinutes {
		res.PointsAwarded = p.PointsOnTime
		res.PointsBeforeCap = p.PointsOnTime
		res.IsComplete = true
		res.RuleApplied = onTimeRule
		res.DerivedValues["minutes_early"] = p.TargetMinutes - minutes
		return res, nil
	}

	late := minutes - p.TargetMinutes
	res.RuleApplied = lateRule
	res.DerivedValues["minutes_late"] = late

	if p.PenaltyPerMinute != nil {
		points := math.Max(p.PointsOnTime-float64(late)**p.PenaltyPerMinute, 0)
		res.PointsAwarded = points
		res.PointsBeforeCap = points
		res.DerivedValues["points_before_penalty"] = p.PointsOnTime
	}
	return res, nil
}

func scoreTiered(p *TieredParams, value types.CheckinValue) (*types.ScoreResult, error) {
	amount, ok := value.Amount()
	if !ok {
		return nil, valueErr("numeric_value", "is required for tiered scoring")
	}

	for i, tier := range p.Tiers {
		if amount < tier.Min {
			continue
		}
		if tier.Max != nil && amount >= *tier.Max {
			continue
		}
		res := &types.ScoreResult{
			PointsAwarded:   tier.Points,
			PointsBeforeCap: tier.Points,
			IsComplete:      tier.Points > 0,
			RuleApplied:     RuleTieredMatch,
			DerivedValues: map[string]any{
				"tier_index": i,
			},
		}
		if tier.Points < 0 {
			// Negative tiers are penalties; record the baseline so a
			// shield can suppress them.
			res.DerivedValues["points_before_penalty"] = 0.0
		}
		return res, nil
	}

	// No tier matched. Well-formed configs partition the domain, so this is
	// an explicit zero rather than an error.
	return &types.ScoreResult{
		RuleApplied:   RuleTieredNoMatch,
		DerivedValues: map[string]any{},
	}, nil
}

// scoreDiminishing awards sqrt-scaled progress toward the target, capped at
// MaxPoints once the target is reached.
func scoreDiminishing(p *DiminishingParams, value types.CheckinValue) (*types.ScoreResult, error) {
	amount, ok := value.Amount()
	if !ok {
		return nil, valueErr("numeric_value", "is required for diminishing scoring")
	}

	ratio := amount / p.Target
	if ratio < 0 {
		ratio = 0
	}
	raw := p.MaxPoints * math.Sqrt(ratio)
	points := math.Min(raw, p.MaxPoints)

	return &types.ScoreResult{
		PointsAwarded:   points,
		PointsBeforeCap: raw,
		IsComplete:      amount >= p.Target,
		RuleApplied:     RuleDiminishing,
		DerivedValues: map[string]any{
			"progress_ratio": ratio,
		},
	}, nil
}
