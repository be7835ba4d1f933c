package usecase

import (
	"context"

	"github.com/mediaplan/forecast-service/internal/domain"
)

type AudienceUC interface {
	GetAbvrs(ctx context.Context, req *GetAbvrsReq) (*GetAbvrsRes, error)
	AddCohort(ctx context.Context, req *AddCohortReq) ([]domain.ScoredSegment, error)
	FindByName(ctx context.Context, req *FindByNameReq) ([]domain.ScoredSegment, error)
}

type LocationUC interface {
	Resolve(ctx context.Context, requests []domain.LocationRequest) (*ResolveLocationsRes, error)
}

type ForecastUC interface {
	GetForecast(ctx context.Context, params *domain.ForecastParams) (domain.ForecastResult, error)
}

type RefreshUC interface {
	TriggerRefresh(ctx context.Context) (*TriggerRefreshRes, error)
	GetStatus(ctx context.Context, id string) (*domain.RefreshTask, error)
	RunScheduled(ctx context.Context) error
}

type EmailUC interface {
	ProcessEmail(ctx context.Context, req *ProcessEmailReq) (*ProcessEmailRes, error)
}

// SchedulerUC отдаёт состояние планировщика периодических задач.
type SchedulerUC interface {
	Status() *SchedulerStatusRes
}
