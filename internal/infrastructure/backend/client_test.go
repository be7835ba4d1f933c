package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(&cfg.BackendCfg{
		AudienceURL:  srv.URL,
		LocationsURL: srv.URL,
		ProdURL:      srv.URL,
		Timeout:      5 * time.Second,
	})
}

func TestClient_FetchActiveAudiences(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/getActiveAuds", r.URL.Path)
		assert.Equal(t, "30000", r.URL.Query().Get("page_size"))
		w.Write([]byte(`[{"audience_name":"Interest | Jewelry","description":"Buyers","abvr":"jwl","l30d_uniques":1200,"audiencePrefix":"Interest"}]`))
	}))

	got, err := client.FetchActiveAudiences(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogAudience{{
		Name:           "Interest | Jewelry",
		Description:    "Buyers",
		Abvr:           "jwl",
		UniqueUsers30d: 1200,
		AudiencePrefix: "Interest",
	}}, got)
}

func TestClient_FetchCohorts_SplitsAbvrs(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/get-all-mediaplan-cohorts", r.URL.Path)
		w.Write([]byte(`[{"id":7,"name":"Luxury","abvrs":"jwl, trv ,,wch"}]`))
	}))

	got, err := client.FetchCohorts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.Cohort{*domain.NewCohort(7, "Luxury", []string{"jwl", "trv", "wch"})}, got)
}

func TestClient_Lookup_ExactNameOnly(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/locations/search/New Delhi", r.URL.Path)
		w.Write([]byte(`[
			{"name":"New Delhi Railway","locationId":9,"type":"POI","countryCode":"IN"},
			{"name":"New Delhi","locationId":1,"type":"City","countryCode":"IN"}
		]`))
	}))

	got, err := client.Lookup(context.Background(), "New Delhi")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.Location{ID: 1, Name: "New Delhi,IN,City"}, *got)
}

func TestClient_Lookup_NoMatch(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"Delhi Cantt","locationId":9,"type":"City","countryCode":"IN"}]`))
	}))

	got, err := client.Lookup(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestClient_Lookup_BackendError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.Lookup(context.Background(), "Delhi")
	assert.ErrorIs(t, err, e.ErrBackendCall)
}

func TestClient_FetchGroups_SortedByName(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/location-groups", r.URL.Path)
		w.Write([]byte(`{
			"Top Metro": {"includedLocations":[{"name":"Mumbai","locationId":2,"type":"City","countryCode":"IN"}],"excludedLocations":[]},
			"India ex Delhi": {
				"includedLocations":[{"name":"India","locationId":100,"type":"Country","countryCode":"IN"}],
				"excludedLocations":[{"name":"Delhi","locationId":1,"type":"City","countryCode":"IN"}]
			}
		}`))
	}))

	got, err := client.FetchGroups(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "India ex Delhi", got[0].Name)
	assert.Equal(t, []domain.Location{{ID: 1, Name: "Delhi,IN,City"}}, got[0].Excluded)
	assert.Equal(t, "Top Metro", got[1].Name)
	assert.Empty(t, got[1].Excluded)
}

func forecastReq() *usecase.ForecastCallReq {
	return &usecase.ForecastCallReq{
		Abvrs:     "jwl,trv",
		Included:  []domain.Location{{ID: 1, Name: "Delhi,IN,City"}},
		Excluded:  []domain.Location{},
		Preset:    "TIL_All_Cluster_RNF",
		Sizes:     []domain.CreativeSize{{300, 250}},
		Devices:   []domain.Device{{Name: "Smartphone", ID: "30001"}},
		StartDate: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 4, 29, 23, 59, 59, 0, time.UTC),
	}
}

func TestClient_Forecast_Payload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, "False", r.URL.Query().Get("geoWiseResponse"))

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, float64(8), payload["lineItemPriorityValue"])
		assert.Equal(t, "TIL_All_Cluster_RNF", payload["inventoryPresets"])
		assert.Equal(t, "jwl,trv", payload["abvr"])
		assert.Equal(t, "31-03-2025 00:00:00", payload["startDate"])
		assert.Equal(t, "29-04-2025 23:59:59", payload["endDate"])
		assert.Equal(t, []any{[]any{float64(300), float64(250)}}, payload["creativeSize"])
		assert.Equal(t, []any{map[string]any{"name": "Delhi,IN,City", "id": float64(1)}}, payload["includedLocations"])
		assert.Equal(t, []any{}, payload["excludedLocations"])

		w.Write([]byte(`{"CombinedResponse":{"user":1000,"impr":3000}}`))
	}))

	got, err := client.Forecast(context.Background(), forecastReq())
	require.NoError(t, err)
	assert.Equal(t, domain.ForecastMetrics{User: 1000, Impr: 3000}, *got)
}

func TestClient_Forecast_MissingCombinedResponse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	_, err := client.Forecast(context.Background(), forecastReq())
	assert.ErrorIs(t, err, e.ErrBackendCall)
}

func TestClient_GeoWiseForecast(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "True", r.URL.Query().Get("geoWiseResponse"))
		w.Write([]byte(`{"Delhi":{"user":10,"impr":20},"Mumbai":{"user":30,"impr":40}}`))
	}))

	got, err := client.GeoWiseForecast(context.Background(), forecastReq())
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.ForecastMetrics{
		"Delhi":  {User: 10, Impr: 20},
		"Mumbai": {User: 30, Impr: 40},
	}, got)
}
