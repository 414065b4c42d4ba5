package store

import (
	"context"

	"github.com/streakworks/tally/internal/types"
)

// Store defines the persistence contract the scoring service relies on. It
// owns the two boundary guarantees the engine cannot provide for itself:
// upsert-by-date uniqueness for check-ins and atomic one-time power-up
// consumption.
type Store interface {
	UpsertTemplate(ctx context.Context, t types.TaskTemplate) error
	GetTemplate(ctx context.Context, id string) (*types.TaskTemplate, error)
	ListTemplates(ctx context.Context) ([]types.TaskTemplate, error)

	CreateLeagueTask(ctx context.Context, lt types.LeagueTask) (*types.LeagueTask, error)
	GetLeagueTask(ctx context.Context, id string) (*types.LeagueTask, error)

	UpsertCheckin(ctx context.Context, c types.Checkin) (*types.Checkin, error)
	GetCheckin(ctx context.Context, id string) (*types.Checkin, error)

	CreatePowerUp(ctx context.Context, p types.PowerUp) (*types.PowerUp, error)
	GetPowerUp(ctx context.Context, id string) (*types.PowerUp, error)
	ConsumePowerUp(ctx context.Context, id, checkinID string) error
	ExpirePowerUps(ctx context.Context) (int64, error)

	RecordScoringEvent(ctx context.Context, ev types.ScoringEvent) (*types.ScoringEvent, error)
	ListScoringEvents(ctx context.Context, checkinID string) ([]types.ScoringEvent, error)

	GetStats(ctx context.Context) (*types.StoreStats, error)
	Close() error
}
