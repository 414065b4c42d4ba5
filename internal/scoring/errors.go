package scoring

import (
	"errors"
	"fmt"

	"github.com/streakworks/tally/internal/types"
)

var (
	// ErrUnknownArchetype is returned when a config names an archetype the
	// rule library has no branch for.
	ErrUnknownArchetype = errors.New("unknown scoring archetype")

	// ErrPowerUpUsed is returned when a consumed power-up is offered for
	// application again.
	ErrPowerUpUsed = errors.New("power-up already used")
)

// ConfigError reports a task configuration that cannot be scored: a required
// field is missing or invalid for the given archetype. Callers must treat
// this as a broken task, never as a zero score.
type ConfigError struct {
	Archetype types.Archetype
	Field     string
	Reason    string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s config: field %q %s", e.Archetype, e.Field, e.Reason)
}

func configErr(a types.Archetype, field, reason string) *ConfigError {
	return &ConfigError{Archetype: a, Field: field, Reason: reason}
}

// ValueError reports a raw check-in value that is malformed for the task's
// input kind or outside the template's declared bounds. Scoring is not
// attempted on such values.
type ValueError struct {
	Field  string
	Reason string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("invalid check-in value: %s %s", e.Field, e.Reason)
}

func valueErr(field, reason string) *ValueError {
	return &ValueError{Field: field, Reason: reason}
}
