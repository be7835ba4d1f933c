package usecase

import (
	"context"

	"github.com/mediaplan/forecast-service/internal/domain"
)

// EmbeddingCacheStore хранит эмбеддинги сегментов аудиторий между запусками.
// Load возвращает e.ErrCacheMiss, если хранилище пусто, и e.ErrCacheCorrupted, если его не удалось разобрать.
type EmbeddingCacheStore interface {
	Load(ctx context.Context) ([]domain.SegmentEmbedding, error)
	Save(ctx context.Context, entries []domain.SegmentEmbedding) error
	CheckValidity(ctx context.Context) (bool, string)
}

type LocationCacheRepository interface {
	GetLocations(ctx context.Context, names []string) (map[string]domain.Location, error)
	SetLocations(ctx context.Context, locations map[string]domain.Location) error
}

// RefreshLock защищает пересчёт эмбеддингов от параллельного запуска в других процессах.
type RefreshLock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type RefreshTaskRepository interface {
	Create(ctx context.Context, task *domain.RefreshTask) error
	Update(ctx context.Context, task *domain.RefreshTask) error
	Get(ctx context.Context, id string) (*domain.RefreshTask, error)
}

type ForecastHistoryRepository interface {
	Save(ctx context.Context, record *domain.ForecastRecord) error
}
