package converter

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForecastRecordToModel(t *testing.T) {
	record := domain.NewForecastRecord(
		"req-1",
		domain.ForecastParams{
			Abvrs: []string{"jwl"},
			Locations: []domain.LocationSelector{{
				Included: []domain.Location{*domain.NewLocation(1, "Delhi", "IN", "City")},
				NameAsID: "Delhi",
			}},
			Presets:  []string{"TIL_All_Cluster_RNF"},
			Duration: 30,
		},
		0.5,
		domain.ForecastResult{},
		time.Date(2025, 3, 30, 0, 0, 0, 0, time.UTC),
	)

	model, err := ForecastRecordToModel(record)
	require.NoError(t, err)
	assert.Equal(t, "req-1", model.ID)
	assert.Equal(t, 0.5, model.Scale)

	var selectors []LocationSelectorJSON
	require.NoError(t, json.Unmarshal(model.Locations, &selectors))
	require.Len(t, selectors, 1)
	assert.Equal(t, []LocationJSON{{ID: 1, Name: "Delhi,IN,City"}}, selectors[0].Included)
	assert.Empty(t, selectors[0].Excluded)
	assert.Equal(t, "Delhi", selectors[0].NameAsID)
}

func TestForecastRecordToBuckets_Ordered(t *testing.T) {
	record := &domain.ForecastRecord{
		ID: "req-1",
		Result: domain.ForecastResult{
			"TIL": {"Overall": {User: 3, Impr: 9}, "Delhi": {User: 1, Impr: 2}},
			"ET":  {"Delhi": {User: 4, Impr: 5}},
		},
	}

	buckets := ForecastRecordToBuckets(record)
	require.Len(t, buckets, 3)
	assert.Equal(t, ForecastBucketModel{RequestID: "req-1", Preset: "ET", LocationKey: "Delhi", Users: 4, Impressions: 5}, buckets[0])
	assert.Equal(t, "Delhi", buckets[1].LocationKey)
	assert.Equal(t, "Overall", buckets[2].LocationKey)
}
