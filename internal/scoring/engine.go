package scoring

import (
	"fmt"

	"github.com/streakworks/tally/internal/clock"
	"github.com/streakworks/tally/internal/types"
)

// Input is everything one scoring pass needs. Template must already have any
// difficulty preset applied (see EffectiveTemplate); Overrides, Metadata and
// PowerUp are optional.
type Input struct {
	Template  types.TaskTemplate
	Overrides *types.TaskOverrides
	Value     types.CheckinValue
	Metadata  *types.CheckinMetadata
	PowerUp   *types.PowerUp
}

// Evaluate runs one full scoring pass: validate the raw value, gate on
// verification, resolve the effective config, score, then apply the optional
// power-up. It is pure and safe for concurrent use; every invocation's
// inputs are self-contained.
//
// An unverified check-in short-circuits to a zero result with Verified=false
// rather than an error: the caller records the raw check-in and withholds
// points. Config and value problems are returned as *ConfigError and
// *ValueError respectively.
func Evaluate(in Input) (*types.ScoreResult, error) {
	value := EffectiveValue(in.Template.InputKind, in.Value, in.Metadata)

	// Binary mode changes what counts as a valid value: the input-kind shape
	// rules no longer apply, only whether the check-in signals completion.
	if resolveMode(in.Template.DefaultConfig, in.Overrides) == types.ModeBinary {
		done, err := completionSignal(in.Template, value)
		if err != nil {
			return nil, err
		}
		value = types.CheckinValue{Boolean: &done}
	} else if err := validateValue(in.Template, value); err != nil {
		return nil, err
	}

	if !Verified(in.Metadata, in.Template.Verification) {
		return &types.ScoreResult{
			RuleApplied:   RuleUnverified,
			DerivedValues: map[string]any{},
			Verified:      false,
		}, nil
	}

	rc, err := Resolve(in.Template, in.Overrides, in.Metadata)
	if err != nil {
		return nil, err
	}

	res, err := Score(rc, value)
	if err != nil {
		return nil, err
	}
	res.Verified = true

	if in.PowerUp != nil {
		res, err = ApplyPowerUp(res, in.PowerUp, rc)
		if err != nil {
			return res, err
		}
	}

	return res, nil
}

// validateValue rejects values of the wrong shape for the input kind or
// outside the template's declared bounds, before any scoring runs.
func validateValue(t types.TaskTemplate, v types.CheckinValue) error {
	if v.PopulatedFields() != 1 {
		return valueErr("value", "must populate exactly one field")
	}

	switch t.InputKind {
	case types.InputBinary:
		if v.Boolean == nil {
			return valueErr("boolean_value", fmt.Sprintf("is required for %s input", t.InputKind))
		}
		return nil

	case types.InputNumeric:
		if v.Numeric == nil {
			return valueErr("numeric_value", fmt.Sprintf("is required for %s input", t.InputKind))
		}
		return checkBounds(t, *v.Numeric)

	case types.InputDuration:
		if v.DurationMinutes == nil {
			return valueErr("duration_minutes", fmt.Sprintf("is required for %s input", t.InputKind))
		}
		return checkBounds(t, *v.DurationMinutes)

	case types.InputTime:
		if v.Time == nil {
			return valueErr("time_value", fmt.Sprintf("is required for %s input", t.InputKind))
		}
		if _, err := clock.Parse(*v.Time); err != nil {
			return valueErr("time_value", "must be a valid HH:MM clock value")
		}
		return nil

	default:
		return valueErr("value", fmt.Sprintf("unknown input kind %q", t.InputKind))
	}
}

// completionSignal collapses a check-in value into the done/not-done flag
// binary-mode scoring consumes. A boolean passes through unchanged; a numeric
// or duration value counts as done when positive (after the usual bounds
// check); a clock time counts as done outright, since submitting one is the
// completion act itself.
func completionSignal(t types.TaskTemplate, v types.CheckinValue) (bool, error) {
	if v.PopulatedFields() != 1 {
		return false, valueErr("value", "must populate exactly one field")
	}

	if v.Boolean != nil {
		return *v.Boolean, nil
	}
	if amount, ok := v.Amount(); ok {
		if err := checkBounds(t, amount); err != nil {
			return false, err
		}
		return amount > 0, nil
	}
	if v.Time != nil {
		if _, err := clock.Parse(*v.Time); err != nil {
			return false, valueErr("time_value", "must be a valid HH:MM clock value")
		}
		return true, nil
	}
	return false, valueErr("value", "must populate exactly one field")
}

func checkBounds(t types.TaskTemplate, amount float64) error {
	if t.MinValue != nil && amount < *t.MinValue {
		return valueErr("value", fmt.Sprintf("must be at least %g", *t.MinValue))
	}
	if t.MaxValue != nil && amount > *t.MaxValue {
		return valueErr("value", fmt.Sprintf("must be at most %g", *t.MaxValue))
	}
	return nil
}
