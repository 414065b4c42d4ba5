package scoring

import "github.com/streakworks/tally/internal/types"

// ApplyPowerUp layers a power-up onto a base scoring result and returns a new
// result; the base is never mutated. A power-up whose Used flag is set is
// refused: the base result comes back unchanged along with ErrPowerUpUsed so
// the caller can signal the conflict. The decision to consume the power-up
// (flagging it used) belongs to the caller and its store, not this function.
func ApplyPowerUp(base *types.ScoreResult, p *types.PowerUp, rc *RuleConfig) (*types.ScoreResult, error) {
	res := cloneResult(base)
	if p == nil {
		return res, nil
	}
	if p.Used {
		return res, ErrPowerUpUsed
	}

	switch p.Type {
	case types.PowerUpMultiplier:
		res.PointsAwarded = base.PointsAwarded * p.Modifier
		res.DerivedValues["powerup"] = string(p.Type)

	case types.PowerUpBoost:
		res.PointsAwarded = base.PointsAwarded + p.Modifier
		res.DerivedValues["powerup"] = string(p.Type)

	case types.PowerUpShield:
		// Only meaningful against a penalty. The rules record the
		// pre-penalty baseline whenever one applies; restoring to it makes
		// a second shield a no-op.
		if baseline, ok := penaltyBaseline(base); ok && base.PointsAwarded < baseline {
			res.PointsAwarded = baseline
			res.DerivedValues["powerup"] = string(p.Type)
		} else if base.PointsAwarded < 0 {
			res.PointsAwarded = 0
			res.DerivedValues["powerup"] = string(p.Type)
		}

	case types.PowerUpForgiveness:
		// Converts a missed binary task into full credit. Valid only for
		// binary-scored tasks.
		if rc != nil && rc.Binary != nil && !base.IsComplete {
			res.PointsAwarded = rc.Binary.Points
			res.IsComplete = true
			res.DerivedValues["powerup"] = string(p.Type)
		}
	}

	return res, nil
}

func cloneResult(base *types.ScoreResult) *types.ScoreResult {
	res := *base
	res.DerivedValues = make(map[string]any, len(base.DerivedValues)+1)
	for k, v := range base.DerivedValues {
		res.DerivedValues[k] = v
	}
	return &res
}

func penaltyBaseline(base *types.ScoreResult) (float64, bool) {
	raw, ok := base.DerivedValues["points_before_penalty"]
	if !ok {
		return 0, false
	}
	f, ok := raw.(float64)
	return f, ok
}
