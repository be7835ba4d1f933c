package usecase

import (
	"context"

	"github.com/mediaplan/forecast-service/internal/domain"
)

// Embedder возвращает по одному вектору на каждый входной текст, в том же порядке.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

type AudienceCatalog interface {
	FetchActiveAudiences(ctx context.Context) ([]domain.CatalogAudience, error)
}

type CohortRegistry interface {
	FetchCohorts(ctx context.Context) ([]domain.Cohort, error)
}

// LocationLookup ищет локацию по точному имени. Возвращает nil, nil, если локация не найдена.
type LocationLookup interface {
	Lookup(ctx context.Context, name string) (*domain.Location, error)
}

type LocationGroupRegistry interface {
	FetchGroups(ctx context.Context) ([]domain.LocationGroup, error)
}

type ForecastBackend interface {
	Forecast(ctx context.Context, req *ForecastCallReq) (*domain.ForecastMetrics, error)
	GeoWiseForecast(ctx context.Context, req *ForecastCallReq) (map[string]domain.ForecastMetrics, error)
}

// CampaignExtractor — сервис структурированного извлечения данных из текста письма.
// Невалидный ответ модели возвращается как e.ErrExtractionFailure.
type CampaignExtractor interface {
	ExtractCampaign(ctx context.Context, req *ExtractCampaignReq) (*domain.CampaignDraft, error)
	ExtractLocations(ctx context.Context, req *ExtractLocationsReq) ([]domain.LocationRequest, error)
	ExtractKeywords(ctx context.Context, subject, body string) ([]string, error)
	SelectAudiences(ctx context.Context, keywords []string, audienceNames []string) ([]string, error)
}

type EventPublisher interface {
	PublishRefreshEvent(ctx context.Context, task *domain.RefreshTask) error
}
