package converter

import (
	"encoding/json"
	"sort"

	"github.com/mediaplan/forecast-service/internal/domain"
)

func RefreshTaskToModel(entity *domain.RefreshTask) *RefreshTaskModel {
	return &RefreshTaskModel{
		ID:           entity.ID,
		Trigger:      string(entity.Trigger),
		Status:       string(entity.Status),
		SegmentCount: entity.SegmentCount,
		Error:        entity.Error,
		QueuedAt:     entity.QueuedAt,
		StartedAt:    entity.StartedAt,
		FinishedAt:   entity.FinishedAt,
	}
}

func RefreshTaskToEntity(model *RefreshTaskModel) *domain.RefreshTask {
	return &domain.RefreshTask{
		ID:           model.ID,
		Trigger:      domain.RefreshTrigger(model.Trigger),
		Status:       domain.RefreshStatus(model.Status),
		SegmentCount: model.SegmentCount,
		Error:        model.Error,
		QueuedAt:     model.QueuedAt,
		StartedAt:    model.StartedAt,
		FinishedAt:   model.FinishedAt,
	}
}

func ForecastRecordToModel(entity *domain.ForecastRecord) (*ForecastRequestModel, error) {
	selectors := make([]LocationSelectorJSON, 0, len(entity.Params.Locations))
	for _, s := range entity.Params.Locations {
		selectors = append(selectors, LocationSelectorJSON{
			Included: locationsToJSON(s.Included),
			Excluded: locationsToJSON(s.Excluded),
			NameAsID: s.NameAsID,
		})
	}

	locations, err := json.Marshal(selectors)
	if err != nil {
		return nil, err
	}

	return &ForecastRequestModel{
		ID:             entity.ID,
		Abvrs:          nonNil(entity.Params.Abvrs),
		Locations:      locations,
		Presets:        nonNil(entity.Params.Presets),
		CreativeSize:   entity.Params.CreativeSize,
		DeviceCategory: entity.Params.DeviceCategory,
		Duration:       entity.Params.Duration,
		TargetGender:   entity.Params.TargetGender,
		TargetAge:      entity.Params.TargetAge,
		Scale:          entity.Scale,
		CreatedAt:      entity.CreatedAt,
	}, nil
}

// ForecastRecordToBuckets разворачивает результат в строки, упорядоченные по пресету и ключу локации.
func ForecastRecordToBuckets(entity *domain.ForecastRecord) []ForecastBucketModel {
	buckets := make([]ForecastBucketModel, 0)
	for preset, forecast := range entity.Result {
		for key, m := range forecast {
			buckets = append(buckets, ForecastBucketModel{
				RequestID:   entity.ID,
				Preset:      preset,
				LocationKey: key,
				Users:       m.User,
				Impressions: m.Impr,
			})
		}
	}

	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Preset != buckets[j].Preset {
			return buckets[i].Preset < buckets[j].Preset
		}
		return buckets[i].LocationKey < buckets[j].LocationKey
	})

	return buckets
}

func locationsToJSON(locations []domain.Location) []LocationJSON {
	result := make([]LocationJSON, 0, len(locations))
	for _, l := range locations {
		result = append(result, LocationJSON{ID: l.ID, Name: l.Name})
	}
	return result
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
