package types

import (
	"encoding/json"
	"time"
)

// Category classifies a task template in the catalog.
type Category string

const (
	CategoryFitness      Category = "fitness"
	CategoryWellness     Category = "wellness"
	CategoryLearning     Category = "learning"
	CategoryProductivity Category = "productivity"
	CategorySleep        Category = "sleep"
	CategoryNutrition    Category = "nutrition"
	CategoryMindfulness  Category = "mindfulness"
	CategorySocial       Category = "social"
	CategoryCustom       Category = "custom"
)

// Categories lists every valid category value.
var Categories = []Category{
	CategoryFitness, CategoryWellness, CategoryLearning, CategoryProductivity,
	CategorySleep, CategoryNutrition, CategoryMindfulness, CategorySocial,
	CategoryCustom,
}

// Archetype identifies which scoring rule shape a task uses.
type Archetype string

const (
	ArchetypeBinaryYesNo   Archetype = "binary_yesno"
	ArchetypeLinearPerUnit Archetype = "linear_per_unit"
	ArchetypeThreshold     Archetype = "threshold"
	ArchetypeTimeBefore    Archetype = "time_before"
	ArchetypeTimeAfter     Archetype = "time_after"
	ArchetypeTiered        Archetype = "tiered"
	ArchetypeDiminishing   Archetype = "diminishing"
)

// Archetypes lists every valid archetype value.
var Archetypes = []Archetype{
	ArchetypeBinaryYesNo, ArchetypeLinearPerUnit, ArchetypeThreshold,
	ArchetypeTimeBefore, ArchetypeTimeAfter, ArchetypeTiered,
	ArchetypeDiminishing,
}

// InputKind describes the shape of the raw value a check-in carries.
type InputKind string

const (
	InputBinary   InputKind = "binary"
	InputNumeric  InputKind = "numeric"
	InputTime     InputKind = "time"
	InputDuration InputKind = "duration"
)

// InputKinds lists every valid input kind.
var InputKinds = []InputKind{InputBinary, InputNumeric, InputTime, InputDuration}

// Unit labels the raw value for display.
type Unit string

const (
	UnitSteps    Unit = "steps"
	UnitMinutes  Unit = "minutes"
	UnitHours    Unit = "hours"
	UnitPages    Unit = "pages"
	UnitCount    Unit = "count"
	UnitBedtime  Unit = "bedtime_time"
	UnitWaketime Unit = "waketime_time"
	UnitBoolean  Unit = "boolean"
	UnitWords    Unit = "words"
	UnitMiles    Unit = "miles"
	UnitCalories Unit = "calories"
)

// Units lists every valid unit value.
var Units = []Unit{
	UnitSteps, UnitMinutes, UnitHours, UnitPages, UnitCount, UnitBedtime,
	UnitWaketime, UnitBoolean, UnitWords, UnitMiles, UnitCalories,
}

// ScoringMode selects between simple done/not-done scoring and the full
// archetype-specific rule.
type ScoringMode string

const (
	ModeBinary   ScoringMode = "binary"
	ModeDetailed ScoringMode = "detailed"
)

// DifficultyLevel names a difficulty preset.
type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "easy"
	DifficultyMedium DifficultyLevel = "medium"
	DifficultyHard   DifficultyLevel = "hard"
)

// DifficultyLevels lists every valid difficulty level.
var DifficultyLevels = []DifficultyLevel{DifficultyEasy, DifficultyMedium, DifficultyHard}

// VerificationMethod is the policy governing whether a check-in's raw value
// is trusted enough to score.
type VerificationMethod string

const (
	VerifyManualAction VerificationMethod = "manual_action"
	VerifyAutoImport   VerificationMethod = "auto_import"
	VerifyTimerBased   VerificationMethod = "timer_based"
)

// VerificationConfig is the per-template verification policy.
type VerificationConfig struct {
	Method               VerificationMethod `json:"method" yaml:"method"`
	RequiresConfirmation bool               `json:"requires_confirmation,omitempty" yaml:"requires_confirmation"`
	AutoImportOnly       bool               `json:"auto_import_only,omitempty" yaml:"auto_import_only"`
	MinDurationSeconds   int                `json:"min_duration_seconds,omitempty" yaml:"min_duration_seconds"`
}

// TaskTemplate is an immutable catalog entry. DefaultConfig holds the
// archetype-specific keys as loaded from the catalog; it is resolved into a
// typed rule config before scoring and must never be mutated.
type TaskTemplate struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Category      Category            `json:"category"`
	Archetype     Archetype           `json:"archetype"`
	InputKind     InputKind           `json:"input_kind"`
	Unit          Unit                `json:"unit"`
	DefaultConfig map[string]any      `json:"default_config"`
	MinValue      *float64            `json:"min_value,omitempty"`
	MaxValue      *float64            `json:"max_value,omitempty"`
	Verification  *VerificationConfig `json:"verification,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// TaskOverrides are the league-level customizations layered onto a template's
// defaults. Nil fields mean "use the template default".
type TaskOverrides struct {
	ScoringMode  *ScoringMode `json:"scoring_mode,omitempty"`
	TargetTime   *string      `json:"target_time,omitempty"`
	Threshold    *float64     `json:"threshold,omitempty"`
	Target       *float64     `json:"target,omitempty"`
	Points       *float64     `json:"points,omitempty"`
	BinaryPoints *float64     `json:"binary_points,omitempty"`
}

// IsZero reports whether no override field is set.
func (o *TaskOverrides) IsZero() bool {
	return o == nil || (o.ScoringMode == nil && o.TargetTime == nil && o.Threshold == nil &&
		o.Target == nil && o.Points == nil && o.BinaryPoints == nil)
}

// The getters below are nil-safe so resolution code can treat "no overrides"
// and "empty overrides" identically.

func (o *TaskOverrides) GetThreshold() *float64 {
	if o == nil {
		return nil
	}
	return o.Threshold
}

func (o *TaskOverrides) GetTarget() *float64 {
	if o == nil {
		return nil
	}
	return o.Target
}

func (o *TaskOverrides) GetPoints() *float64 {
	if o == nil {
		return nil
	}
	return o.Points
}

func (o *TaskOverrides) GetTargetTime() *string {
	if o == nil {
		return nil
	}
	return o.TargetTime
}

// LeagueTask is a template configured for one league season: overrides plus
// an optional difficulty preset.
type LeagueTask struct {
	ID         string           `json:"id"`
	LeagueID   string           `json:"league_id"`
	TemplateID string           `json:"template_id"`
	Overrides  TaskOverrides    `json:"overrides"`
	Difficulty *DifficultyLevel `json:"difficulty,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// CheckinValue carries exactly one populated primary field, matching the
// task's input kind.
type CheckinValue struct {
	Boolean         *bool    `json:"boolean_value,omitempty"`
	Numeric         *float64 `json:"numeric_value,omitempty"`
	Time            *string  `json:"time_value,omitempty"`
	DurationMinutes *float64 `json:"duration_minutes,omitempty"`
}

// Amount returns the numeric magnitude of the value for numeric and duration
// inputs. The second return is false when neither field is set.
func (v CheckinValue) Amount() (float64, bool) {
	if v.Numeric != nil {
		return *v.Numeric, true
	}
	if v.DurationMinutes != nil {
		return *v.DurationMinutes, true
	}
	return 0, false
}

// PopulatedFields counts how many primary value fields are set.
func (v CheckinValue) PopulatedFields() int {
	n := 0
	if v.Boolean != nil {
		n++
	}
	if v.Numeric != nil {
		n++
	}
	if v.Time != nil {
		n++
	}
	if v.DurationMinutes != nil {
		n++
	}
	return n
}

// CheckinMetadata is the verification context attached to a check-in.
// Timer fields are stamped by the client's timer flow.
type CheckinMetadata struct {
	Confirmed        bool       `json:"confirmed,omitempty"`
	Source           string     `json:"source,omitempty"`
	DurationSeconds  *int       `json:"duration_seconds,omitempty"`
	TimerStartedAt   *time.Time `json:"timer_started_at,omitempty"`
	TimerCompletedAt *time.Time `json:"timer_completed_at,omitempty"`
	ManualOverride   bool       `json:"manual_override,omitempty"`
	AdminOverride    bool       `json:"admin_override,omitempty"`
}

// Checkin is one user's submission for one (league task, calendar date) pair.
// At most one row exists per (user, task, day); later submissions overwrite.
type Checkin struct {
	ID           string           `json:"id"`
	UserID       string           `json:"user_id"`
	LeagueTaskID string           `json:"league_task_id"`
	Day          string           `json:"day"` // YYYY-MM-DD
	Value        CheckinValue     `json:"value"`
	Metadata     *CheckinMetadata `json:"metadata,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// PowerUpType identifies how a power-up modifies a base scoring result.
type PowerUpType string

const (
	PowerUpMultiplier  PowerUpType = "multiplier"
	PowerUpBoost       PowerUpType = "boost"
	PowerUpShield      PowerUpType = "shield"
	PowerUpForgiveness PowerUpType = "forgiveness"
)

// PowerUpTypes lists every valid power-up type.
var PowerUpTypes = []PowerUpType{PowerUpMultiplier, PowerUpBoost, PowerUpShield, PowerUpForgiveness}

// PowerUp is a one-time consumable modifier. Once Used is set the record is
// inert; the modifier function refuses to apply it again.
type PowerUp struct {
	ID               string      `json:"id"`
	UserID           string      `json:"user_id"`
	Type             PowerUpType `json:"type"`
	Modifier         float64     `json:"modifier"`
	Used             bool        `json:"used"`
	UsedAt           *time.Time  `json:"used_at,omitempty"`
	AppliedCheckinID string      `json:"applied_checkin_id,omitempty"`
	ExpiresAt        *time.Time  `json:"expires_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
}

// ScoreResult is the immutable output of one scoring pass.
type ScoreResult struct {
	PointsAwarded   float64        `json:"points_awarded"`
	PointsBeforeCap float64        `json:"points_before_cap"`
	IsComplete      bool           `json:"is_complete"`
	RuleApplied     string         `json:"rule_applied"`
	DerivedValues   map[string]any `json:"derived_values"`
	Verified        bool           `json:"verified"`
}

// MarshalJSON ensures a nil DerivedValues map marshals as {} not null.
func (r ScoreResult) MarshalJSON() ([]byte, error) {
	if r.DerivedValues == nil {
		r.DerivedValues = map[string]any{}
	}
	type Alias ScoreResult
	return json.Marshal(Alias(r))
}

// ScoringEvent is the persisted record of one scoring computation.
type ScoringEvent struct {
	ID        string      `json:"id"`
	CheckinID string      `json:"checkin_id"`
	Result    ScoreResult `json:"result"`
	PowerUpID string      `json:"powerup_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// StoreStats holds aggregate store statistics for the health endpoint.
type StoreStats struct {
	TemplateCount int64 `json:"template_count"`
	CheckinCount  int64 `json:"checkin_count"`
	EventCount    int64 `json:"event_count"`
}

// HealthResponse is the health check payload.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	TemplateCount int64  `json:"template_count"`
	CheckinCount  int64  `json:"checkin_count"`
}

// CheckinRequest is the PUT /checkins payload.
type CheckinRequest struct {
	UserID       string           `json:"user_id"`
	LeagueTaskID string           `json:"league_task_id"`
	Day          string           `json:"day"`
	Value        CheckinValue     `json:"value"`
	Metadata     *CheckinMetadata `json:"metadata,omitempty"`
}

// CheckinResponse couples the stored check-in with its scoring event.
type CheckinResponse struct {
	Checkin Checkin     `json:"checkin"`
	Result  ScoreResult `json:"result"`
	EventID string      `json:"event_id"`
}

// PreviewRequest is the stateless scoring-preview payload. Overrides and
// difficulty are optional; the template is looked up by ID.
type PreviewRequest struct {
	TemplateID string           `json:"template_id"`
	Overrides  *TaskOverrides   `json:"overrides,omitempty"`
	Difficulty *DifficultyLevel `json:"difficulty,omitempty"`
	Value      CheckinValue     `json:"value"`
	Metadata   *CheckinMetadata `json:"metadata,omitempty"`
}

// CreateLeagueTaskRequest is the POST /leagues/{id}/tasks payload.
type CreateLeagueTaskRequest struct {
	TemplateID string           `json:"template_id"`
	Overrides  TaskOverrides    `json:"overrides"`
	Difficulty *DifficultyLevel `json:"difficulty,omitempty"`
}

// ApplyPowerUpRequest is the POST /powerups/{id}/apply payload.
type ApplyPowerUpRequest struct {
	CheckinID string `json:"checkin_id"`
}
