package domain

import "time"

// ForecastMetrics — охват и показы одного бакета прогноза.
type ForecastMetrics struct {
	User float64
	Impr float64
}

// PresetForecast — прогноз по ключам локаций для одного пресета.
type PresetForecast map[string]ForecastMetrics

// ForecastResult — прогноз по отображаемым названиям пресетов.
type ForecastResult map[string]PresetForecast

// CreativeSize в пикселях: [ширина, высота].
type CreativeSize [2]int

// Device — категория устройства в терминах бэкенда прогнозов.
type Device struct {
	Name string
	ID   string
}

type ForecastParams struct {
	Abvrs          []string
	Locations      []LocationSelector
	Presets        []string
	CreativeSize   string
	DeviceCategory string
	Duration       int
	TargetGender   string
	TargetAge      string
}

// ForecastRecord — сохранённый в истории прогноз.
type ForecastRecord struct {
	ID        string
	Params    ForecastParams
	Scale     float64
	Result    ForecastResult
	CreatedAt time.Time
}

func NewForecastRecord(id string, params ForecastParams, scale float64, result ForecastResult, createdAt time.Time) *ForecastRecord {
	return &ForecastRecord{
		ID:        id,
		Params:    params,
		Scale:     scale,
		Result:    result,
		CreatedAt: createdAt,
	}
}
