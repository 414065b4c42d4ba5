package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/streakworks/tally/internal/types"
)

// SQLiteStore is the SQLite-backed implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dbPath, enables WAL mode
// and pragmas, and applies pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// UpsertTemplate inserts or replaces a catalog template. Used by seeding;
// replacing keeps re-seeding idempotent.
func (s *SQLiteStore) UpsertTemplate(ctx context.Context, t types.TaskTemplate) error {
	cfg, err := json.Marshal(t.DefaultConfig)
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	verification, err := marshalNullable(t.Verification)
	if err != nil {
		return fmt.Errorf("marshal verification: %w", err)
	}

	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_templates (id, name, category, archetype, input_kind, unit, default_config, min_value, max_value, verification, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			category = excluded.category,
			archetype = excluded.archetype,
			input_kind = excluded.input_kind,
			unit = excluded.unit,
			default_config = excluded.default_config,
			min_value = excluded.min_value,
			max_value = excluded.max_value,
			verification = excluded.verification
	`, t.ID, t.Name, t.Category, t.Archetype, t.InputKind, t.Unit, string(cfg),
		t.MinValue, t.MaxValue, verification, createdAt.Format(time.RFC3339))
	return err
}

// GetTemplate loads one template by ID.
func (s *SQLiteStore) GetTemplate(ctx context.Context, id string) (*types.TaskTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, archetype, input_kind, unit, default_config, min_value, max_value, verification, created_at
		FROM task_templates WHERE id = ?
	`, id)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, ErrTemplateMissing
	}
	return t, err
}

// ListTemplates returns the full catalog ordered by ID.
func (s *SQLiteStore) ListTemplates(ctx context.Context) ([]types.TaskTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, archetype, input_kind, unit, default_config, min_value, max_value, verification, created_at
		FROM task_templates ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []types.TaskTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

func scanTemplate(scanner interface{ Scan(...any) error }) (*types.TaskTemplate, error) {
	var t types.TaskTemplate
	var cfg string
	var verification sql.NullString
	var createdAt string

	err := scanner.Scan(&t.ID, &t.Name, &t.Category, &t.Archetype, &t.InputKind,
		&t.Unit, &cfg, &t.MinValue, &t.MaxValue, &verification, &createdAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cfg), &t.DefaultConfig); err != nil {
		return nil, fmt.Errorf("unmarshal default config: %w", err)
	}
	if verification.Valid {
		t.Verification = &types.VerificationConfig{}
		if err := json.Unmarshal([]byte(verification.String), t.Verification); err != nil {
			return nil, fmt.Errorf("unmarshal verification: %w", err)
		}
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// CreateLeagueTask stores a template configured for a league.
func (s *SQLiteStore) CreateLeagueTask(ctx context.Context, lt types.LeagueTask) (*types.LeagueTask, error) {
	now := time.Now().UTC()
	lt.ID = ulid.Make().String()
	lt.CreatedAt = now
	lt.UpdatedAt = now

	overrides, err := json.Marshal(lt.Overrides)
	if err != nil {
		return nil, fmt.Errorf("marshal overrides: %w", err)
	}

	var difficulty *string
	if lt.Difficulty != nil {
		d := string(*lt.Difficulty)
		difficulty = &d
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO league_tasks (id, league_id, template_id, overrides, difficulty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, lt.ID, lt.LeagueID, lt.TemplateID, string(overrides), difficulty,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return &lt, nil
}

// GetLeagueTask loads one league task by ID.
func (s *SQLiteStore) GetLeagueTask(ctx context.Context, id string) (*types.LeagueTask, error) {
	var lt types.LeagueTask
	var overrides string
	var difficulty sql.NullString
	var createdAt, updatedAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, league_id, template_id, overrides, difficulty, created_at, updated_at
		FROM league_tasks WHERE id = ?
	`, id).Scan(&lt.ID, &lt.LeagueID, &lt.TemplateID, &overrides, &difficulty, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(overrides), &lt.Overrides); err != nil {
		return nil, fmt.Errorf("unmarshal overrides: %w", err)
	}
	if difficulty.Valid {
		d := types.DifficultyLevel(difficulty.String)
		lt.Difficulty = &d
	}
	lt.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	lt.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &lt, nil
}

// UpsertCheckin inserts a check-in or, when one already exists for the same
// (user, task, day), overwrites its value and metadata. The unique index
// serializes concurrent submissions so last-write-wins without duplicates.
func (s *SQLiteStore) UpsertCheckin(ctx context.Context, c types.Checkin) (*types.Checkin, error) {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	metadata, err := marshalNullable(c.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO checkins (id, user_id, league_task_id, day, boolean_value, numeric_value, time_value, duration_minutes, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, league_task_id, day) DO UPDATE SET
			boolean_value = excluded.boolean_value,
			numeric_value = excluded.numeric_value,
			time_value = excluded.time_value,
			duration_minutes = excluded.duration_minutes,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, c.ID, c.UserID, c.LeagueTaskID, c.Day, c.Value.Boolean, c.Value.Numeric,
		c.Value.Time, c.Value.DurationMinutes, metadata,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}

	// Re-read so the caller sees the surviving row (the original ID and
	// created_at when the upsert hit an existing check-in).
	return s.getCheckinByKey(ctx, c.UserID, c.LeagueTaskID, c.Day)
}

// GetCheckin loads one check-in by ID.
func (s *SQLiteStore) GetCheckin(ctx context.Context, id string) (*types.Checkin, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, league_task_id, day, boolean_value, numeric_value, time_value, duration_minutes, metadata, created_at, updated_at
		FROM checkins WHERE id = ?
	`, id)
	c, err := scanCheckin(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func (s *SQLiteStore) getCheckinByKey(ctx context.Context, userID, leagueTaskID, day string) (*types.Checkin, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, league_task_id, day, boolean_value, numeric_value, time_value, duration_minutes, metadata, created_at, updated_at
		FROM checkins WHERE user_id = ? AND league_task_id = ? AND day = ?
	`, userID, leagueTaskID, day)
	c, err := scanCheckin(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func scanCheckin(scanner interface{ Scan(...any) error }) (*types.Checkin, error) {
	var c types.Checkin
	var metadata sql.NullString
	var createdAt, updatedAt string

	err := scanner.Scan(&c.ID, &c.UserID, &c.LeagueTaskID, &c.Day,
		&c.Value.Boolean, &c.Value.Numeric, &c.Value.Time, &c.Value.DurationMinutes,
		&metadata, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if metadata.Valid {
		c.Metadata = &types.CheckinMetadata{}
		if err := json.Unmarshal([]byte(metadata.String), c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	c.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &c, nil
}

// CreatePowerUp stores a new, unused power-up.
func (s *SQLiteStore) CreatePowerUp(ctx context.Context, p types.PowerUp) (*types.PowerUp, error) {
	if p.ID == "" {
		p.ID = ulid.Make().String()
	}
	p.CreatedAt = time.Now().UTC()

	var expiresAt *string
	if p.ExpiresAt != nil {
		e := p.ExpiresAt.UTC().Format(time.RFC3339)
		expiresAt = &e
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO powerups (id, user_id, type, modifier, used, used_at, applied_checkin_id, expires_at, created_at)
		VALUES (?, ?, ?, ?, 0, NULL, NULL, ?, ?)
	`, p.ID, p.UserID, p.Type, p.Modifier, expiresAt, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetPowerUp loads one power-up by ID.
func (s *SQLiteStore) GetPowerUp(ctx context.Context, id string) (*types.PowerUp, error) {
	var p types.PowerUp
	var usedAt, appliedCheckin, expiresAt sql.NullString
	var createdAt string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, modifier, used, used_at, applied_checkin_id, expires_at, created_at
		FROM powerups WHERE id = ?
	`, id).Scan(&p.ID, &p.UserID, &p.Type, &p.Modifier, &p.Used, &usedAt, &appliedCheckin, &expiresAt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if usedAt.Valid {
		t, _ := time.Parse(time.RFC3339, usedAt.String)
		p.UsedAt = &t
	}
	if appliedCheckin.Valid {
		p.AppliedCheckinID = appliedCheckin.String
	}
	if expiresAt.Valid {
		t, _ := time.Parse(time.RFC3339, expiresAt.String)
		p.ExpiresAt = &t
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &p, nil
}

// ConsumePowerUp flags a power-up as used, atomically. The UPDATE only
// succeeds while the row is still unused, so two concurrent spends cannot
// both win; the loser gets ErrPowerUpConsumed.
func (s *SQLiteStore) ConsumePowerUp(ctx context.Context, id, checkinID string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, `
		UPDATE powerups
		SET used = 1, used_at = ?, applied_checkin_id = ?
		WHERE id = ? AND used = 0 AND (expires_at IS NULL OR expires_at > ?)
	`, now, checkinID, id, now)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	// Lost the race, already spent, expired, or missing. Distinguish for
	// the caller. Expiry is checked first: the sweeper flags expired
	// power-ups as used, and those should still read as expired.
	p, err := s.GetPowerUp(ctx, id)
	if err != nil {
		return err
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(time.Now().UTC()) {
		return ErrPowerUpExpired
	}
	if p.Used {
		return ErrPowerUpConsumed
	}
	return ErrPowerUpExpired
}

// ExpirePowerUps marks unused power-ups whose expiry has passed as used so
// they can no longer be spent. Returns the number of rows swept.
func (s *SQLiteStore) ExpirePowerUps(ctx context.Context) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	res, err := s.db.ExecContext(ctx, `
		UPDATE powerups
		SET used = 1, used_at = ?
		WHERE used = 0 AND expires_at IS NOT NULL AND expires_at <= ?
	`, now, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecordScoringEvent appends one immutable scoring event.
func (s *SQLiteStore) RecordScoringEvent(ctx context.Context, ev types.ScoringEvent) (*types.ScoringEvent, error) {
	ev.ID = ulid.Make().String()
	ev.CreatedAt = time.Now().UTC()

	derived, err := json.Marshal(ev.Result.DerivedValues)
	if err != nil {
		return nil, fmt.Errorf("marshal derived values: %w", err)
	}

	var powerupID *string
	if ev.PowerUpID != "" {
		powerupID = &ev.PowerUpID
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scoring_events (id, checkin_id, points_awarded, points_before_cap, is_complete, rule_applied, derived_values, verified, powerup_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.CheckinID, ev.Result.PointsAwarded, ev.Result.PointsBeforeCap,
		ev.Result.IsComplete, ev.Result.RuleApplied, string(derived), ev.Result.Verified,
		powerupID, ev.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListScoringEvents returns all events for a check-in, oldest first.
func (s *SQLiteStore) ListScoringEvents(ctx context.Context, checkinID string) ([]types.ScoringEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, checkin_id, points_awarded, points_before_cap, is_complete, rule_applied, derived_values, verified, powerup_id, created_at
		FROM scoring_events WHERE checkin_id = ? ORDER BY id
	`, checkinID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []types.ScoringEvent
	for rows.Next() {
		var ev types.ScoringEvent
		var derived string
		var powerupID sql.NullString
		var createdAt string

		err := rows.Scan(&ev.ID, &ev.CheckinID, &ev.Result.PointsAwarded,
			&ev.Result.PointsBeforeCap, &ev.Result.IsComplete, &ev.Result.RuleApplied,
			&derived, &ev.Result.Verified, &powerupID, &createdAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(derived), &ev.Result.DerivedValues); err != nil {
			return nil, fmt.Errorf("unmarshal derived values: %w", err)
		}
		if powerupID.Valid {
			ev.PowerUpID = powerupID.String
		}
		ev.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// GetStats returns aggregate counts for the health endpoint.
func (s *SQLiteStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM task_templates").Scan(&stats.TemplateCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM checkins").Scan(&stats.CheckinCount); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scoring_events").Scan(&stats.EventCount); err != nil {
		return nil, err
	}
	return &stats, nil
}

func marshalNullable(v any) (*string, error) {
	if v == nil || isNilPointer(v) {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	s := string(data)
	return &s, nil
}

func isNilPointer(v any) bool {
	switch vv := v.(type) {
	case *types.VerificationConfig:
		return vv == nil
	case *types.CheckinMetadata:
		return vv == nil
	default:
		return false
	}
}
