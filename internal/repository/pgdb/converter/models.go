package converter

import "time"

// RefreshTaskModel представляет запись таблицы refresh_tasks в PostgreSQL.
type RefreshTaskModel struct {
	ID           string     `db:"id"`
	Trigger      string     `db:"trigger"`
	Status       string     `db:"status"`
	SegmentCount int        `db:"segment_count"`
	Error        string     `db:"error"`
	QueuedAt     time.Time  `db:"queued_at"`
	StartedAt    *time.Time `db:"started_at"`
	FinishedAt   *time.Time `db:"finished_at"`
}

// ForecastRequestModel представляет запись таблицы forecast_requests в PostgreSQL.
type ForecastRequestModel struct {
	ID             string    `db:"id"`
	Abvrs          []string  `db:"abvrs"`
	Locations      []byte    `db:"locations"`
	Presets        []string  `db:"presets"`
	CreativeSize   string    `db:"creative_size"`
	DeviceCategory string    `db:"device_category"`
	Duration       int       `db:"duration"`
	TargetGender   string    `db:"target_gender"`
	TargetAge      string    `db:"target_age"`
	Scale          float64   `db:"scale"`
	CreatedAt      time.Time `db:"created_at"`
}

// ForecastBucketModel представляет запись таблицы forecast_buckets в PostgreSQL.
type ForecastBucketModel struct {
	RequestID   string  `db:"request_id"`
	Preset      string  `db:"preset"`
	LocationKey string  `db:"location_key"`
	Users       float64 `db:"users"`
	Impressions float64 `db:"impressions"`
}

// LocationSelectorJSON хранится в колонке locations.
type LocationSelectorJSON struct {
	Included []LocationJSON `json:"includedLocations"`
	Excluded []LocationJSON `json:"excludedLocations"`
	NameAsID string         `json:"nameAsId"`
}

type LocationJSON struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
