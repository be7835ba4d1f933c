package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/tr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, time.March, 30, 15, 4, 5, 0, time.UTC)

func newTestForecastUC(backend *scriptedBackend) *ForecastUseCase {
	uc := NewForecastUC(backend, testMediaPlan(), nil, nil, 4, nopLogger())
	uc.now = func() time.Time { return fixedNow }
	return uc
}

func byKey(values map[string]domain.ForecastMetrics) func(req *ForecastCallReq) (*domain.ForecastMetrics, error) {
	return func(req *ForecastCallReq) (*domain.ForecastMetrics, error) {
		m, ok := values[locationKey(req.Included, req.Excluded)]
		if !ok {
			return nil, errors.New("backend returned 500")
		}
		return &m, nil
	}
}

func single(loc domain.Location) domain.LocationSelector {
	return domain.LocationSelector{Included: []domain.Location{loc}}
}

func baseParams(locations ...domain.LocationSelector) *domain.ForecastParams {
	return &domain.ForecastParams{
		Abvrs:          []string{"a1"},
		Locations:      locations,
		Presets:        []string{"TIL_All_Cluster_RNF"},
		CreativeSize:   "Banners",
		DeviceCategory: "Mobile",
		Duration:       30,
	}
}

func TestGetForecast_ScalesSingleLocation(t *testing.T) {
	backend := &scriptedBackend{
		forecast: byKey(nil),
		geoWise: func(*ForecastCallReq) (map[string]domain.ForecastMetrics, error) {
			return map[string]domain.ForecastMetrics{"Delhi": {User: 1000, Impr: 5000}}, nil
		},
	}
	uc := newTestForecastUC(backend)

	params := baseParams(single(delhi))
	params.Abvrs = []string{"a1", " a1 ", "", "b2"}
	params.TargetGender = "Male"
	params.TargetAge = "25-34"

	result, err := uc.GetForecast(context.Background(), params)
	require.NoError(t, err)

	til := result["TIL"]
	require.Len(t, til, 2)
	assert.InDelta(t, 245, til["Delhi"].User, 1e-9)
	assert.InDelta(t, 735, til["Delhi"].Impr, 1e-9)
	assert.Equal(t, til["Delhi"], til[domain.OverallKey])

	overall := til[domain.OverallKey]
	overall.User = 1
	til[domain.OverallKey] = overall
	assert.InDelta(t, 245, til["Delhi"].User, 1e-9)

	require.Len(t, backend.geoCalls, 1)
	call := backend.geoCalls[0]
	assert.Equal(t, "a1,b2", call.Abvrs)
	assert.Equal(t, []domain.Location{delhi}, call.Included)
	assert.Empty(t, call.Excluded)
	assert.Len(t, call.Sizes, 5)
	assert.Len(t, call.Devices, 3)
	assert.Equal(t, "TIL_All_Cluster_RNF", call.Preset)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), call.StartDate)
	assert.Equal(t, time.Date(2025, time.April, 29, 23, 59, 59, 0, time.UTC), call.EndDate)
	assert.Empty(t, backend.calls)
}

func TestGetForecast_OverallUnionsContributors(t *testing.T) {
	backend := &scriptedBackend{
		forecast: byKey(map[string]domain.ForecastMetrics{
			"1|3":     {User: 100, Impr: 200},
			"2,1|4":   {User: 50, Impr: 100},
			"1,2|3,4": {User: 140, Impr: 280},
		}),
		geoWise: func(req *ForecastCallReq) (map[string]domain.ForecastMetrics, error) {
			return map[string]domain.ForecastMetrics{"Mumbai": {User: 10, Impr: 20}}, nil
		},
	}
	uc := newTestForecastUC(backend)

	params := baseParams(
		domain.LocationSelector{Included: []domain.Location{delhi}, Excluded: []domain.Location{noida}, NameAsID: "Metro"},
		domain.LocationSelector{Included: []domain.Location{mumbai, delhi}, Excluded: []domain.Location{thane}, NameAsID: "West"},
		single(mumbai),
	)
	params.Presets = []string{"TIL_All_Cluster_RNF", "TIL_ET_Only_RNF"}

	result, err := uc.GetForecast(context.Background(), params)
	require.NoError(t, err)

	for _, label := range []string{"TIL", "ET"} {
		preset := result[label]
		require.Len(t, preset, 4, label)
		assert.Equal(t, domain.ForecastMetrics{User: 100, Impr: 200}, preset["Metro"])
		assert.Equal(t, domain.ForecastMetrics{User: 50, Impr: 100}, preset["West"])
		assert.Equal(t, domain.ForecastMetrics{User: 10, Impr: 20}, preset["Mumbai"])
		assert.Equal(t, domain.ForecastMetrics{User: 140, Impr: 280}, preset[domain.OverallKey])
	}
}

func TestGetForecast_FailedLocationIsOmitted(t *testing.T) {
	backend := &scriptedBackend{
		forecast: byKey(map[string]domain.ForecastMetrics{
			"2|4": {User: 50, Impr: 100},
		}),
	}
	uc := newTestForecastUC(backend)

	result, err := uc.GetForecast(context.Background(), baseParams(
		domain.LocationSelector{Included: []domain.Location{delhi}, Excluded: []domain.Location{noida}, NameAsID: "North"},
		domain.LocationSelector{Included: []domain.Location{mumbai}, Excluded: []domain.Location{thane}, NameAsID: "West"},
	))
	require.NoError(t, err)

	til := result["TIL"]
	assert.NotContains(t, til, "North")
	assert.Equal(t, domain.ForecastMetrics{User: 50, Impr: 100}, til["West"])
	assert.Equal(t, til["West"], til[domain.OverallKey])
	assert.Len(t, backend.calls, 2)
	require.Len(t, backend.geoCalls, 1)
	assert.Empty(t, backend.geoCalls[0].Included)
	assert.Empty(t, backend.geoCalls[0].Excluded)
}

func TestGetForecast_GeoWiseWithoutSingleIncludes(t *testing.T) {
	backend := &scriptedBackend{
		forecast: byKey(map[string]domain.ForecastMetrics{
			"2|4": {User: 50, Impr: 100},
		}),
		geoWise: func(req *ForecastCallReq) (map[string]domain.ForecastMetrics, error) {
			if len(req.Included) != 0 {
				return nil, errors.New("unexpected includes")
			}
			return map[string]domain.ForecastMetrics{domain.CatchAllKey: {User: 700, Impr: 1400}}, nil
		},
	}
	uc := newTestForecastUC(backend)

	result, err := uc.GetForecast(context.Background(), baseParams(
		domain.LocationSelector{Included: []domain.Location{mumbai}, Excluded: []domain.Location{thane}, NameAsID: "West"},
	))
	require.NoError(t, err)

	til := result["TIL"]
	require.Len(t, til, 3)
	assert.Equal(t, domain.ForecastMetrics{User: 50, Impr: 100}, til["West"])
	assert.Equal(t, domain.ForecastMetrics{User: 700, Impr: 1400}, til[domain.CatchAllKey])
	assert.Equal(t, domain.ForecastMetrics{User: 50, Impr: 100}, til[domain.OverallKey])
	require.Len(t, backend.geoCalls, 1)
	require.Len(t, backend.calls, 2)
	assert.Equal(t, []domain.Location{mumbai}, backend.calls[1].Included)
	assert.Equal(t, []domain.Location{thane}, backend.calls[1].Excluded)
}

func TestGetForecast_CatchAllMakesOverallUnconstrained(t *testing.T) {
	backend := &scriptedBackend{
		forecast: byKey(map[string]domain.ForecastMetrics{
			"|": {User: 1000, Impr: 2000},
		}),
		geoWise: func(*ForecastCallReq) (map[string]domain.ForecastMetrics, error) {
			return map[string]domain.ForecastMetrics{"Delhi": {User: 100, Impr: 200}}, nil
		},
	}
	uc := newTestForecastUC(backend)

	sentinel := domain.LocationSelector{Included: []domain.Location{}, Excluded: []domain.Location{}, NameAsID: domain.CatchAllKey}
	result, err := uc.GetForecast(context.Background(), baseParams(sentinel, single(delhi)))
	require.NoError(t, err)

	til := result["TIL"]
	assert.Equal(t, domain.ForecastMetrics{User: 1000, Impr: 2000}, til[domain.CatchAllKey])
	assert.Equal(t, domain.ForecastMetrics{User: 100, Impr: 200}, til["Delhi"])
	assert.Equal(t, domain.ForecastMetrics{User: 1000, Impr: 2000}, til[domain.OverallKey])

	require.Len(t, backend.calls, 2)
	last := backend.calls[1]
	assert.Empty(t, last.Included)
	assert.Empty(t, last.Excluded)
}

func TestGetForecast_OverallFailureIsOmitted(t *testing.T) {
	backend := &scriptedBackend{
		forecast: byKey(map[string]domain.ForecastMetrics{
			"1|3": {User: 100, Impr: 200},
			"2|4": {User: 50, Impr: 100},
		}),
	}
	uc := newTestForecastUC(backend)

	result, err := uc.GetForecast(context.Background(), baseParams(
		domain.LocationSelector{Included: []domain.Location{delhi}, Excluded: []domain.Location{noida}, NameAsID: "North"},
		domain.LocationSelector{Included: []domain.Location{mumbai}, Excluded: []domain.Location{thane}, NameAsID: "West"},
	))
	require.NoError(t, err)

	til := result["TIL"]
	assert.Len(t, til, 2)
	assert.NotContains(t, til, domain.OverallKey)
}

func TestGetForecast_NoLocations(t *testing.T) {
	backend := &scriptedBackend{forecast: byKey(nil)}
	uc := newTestForecastUC(backend)

	result, err := uc.GetForecast(context.Background(), baseParams())
	require.NoError(t, err)

	assert.Empty(t, result["TIL"])
	assert.Empty(t, backend.calls)
	assert.Len(t, backend.geoCalls, 1)
}

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolledBack = true
	return nil
}

type fakeTxPool struct {
	tx *fakeTx
}

func (p *fakeTxPool) BeginTx(context.Context, pgx.TxOptions) (pgx.Tx, error) {
	return p.tx, nil
}

type fakeHistory struct {
	err     error
	records []*domain.ForecastRecord
	txSeen  pgx.Tx
}

func (h *fakeHistory) Save(ctx context.Context, record *domain.ForecastRecord) error {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return err
	}
	h.txSeen = tx
	if h.err != nil {
		return h.err
	}
	h.records = append(h.records, record)
	return nil
}

func TestGetForecast_SavesHistoryInTransaction(t *testing.T) {
	backend := &scriptedBackend{
		forecast: byKey(nil),
		geoWise: func(*ForecastCallReq) (map[string]domain.ForecastMetrics, error) {
			return map[string]domain.ForecastMetrics{"Delhi": {User: 100, Impr: 200}}, nil
		},
	}

	t.Run("commit", func(t *testing.T) {
		pool := &fakeTxPool{tx: &fakeTx{}}
		history := &fakeHistory{}
		uc := NewForecastUC(backend, testMediaPlan(), history, pool, 2, nopLogger())
		uc.now = func() time.Time { return fixedNow }

		result, err := uc.GetForecast(context.Background(), baseParams(single(delhi)))
		require.NoError(t, err)

		require.Len(t, history.records, 1)
		assert.Equal(t, result, history.records[0].Result)
		assert.Same(t, pool.tx, history.txSeen)
		assert.True(t, pool.tx.committed)
		assert.False(t, pool.tx.rolledBack)
	})

	t.Run("rollback on save error", func(t *testing.T) {
		pool := &fakeTxPool{tx: &fakeTx{}}
		history := &fakeHistory{err: errors.New("insert failed")}
		uc := NewForecastUC(backend, testMediaPlan(), history, pool, 2, nopLogger())

		_, err := uc.GetForecast(context.Background(), baseParams(single(delhi)))
		require.NoError(t, err)

		assert.Empty(t, history.records)
		assert.False(t, pool.tx.committed)
		assert.True(t, pool.tx.rolledBack)
	})
}

func TestGetForecast_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *domain.ForecastParams)
		want   error
	}{
		{"no abvrs", func(p *domain.ForecastParams) { p.Abvrs = []string{" "} }, e.ErrNoAudiences},
		{"no presets", func(p *domain.ForecastParams) { p.Presets = nil }, e.ErrNoPresets},
		{"unknown preset", func(p *domain.ForecastParams) { p.Presets = []string{"NOPE"} }, e.ErrUnknownPreset},
		{"unknown size", func(p *domain.ForecastParams) { p.CreativeSize = "Billboard" }, e.ErrUnknownCreativeSize},
		{"unknown device", func(p *domain.ForecastParams) { p.DeviceCategory = "Toaster" }, e.ErrUnknownDeviceCategory},
		{"zero duration", func(p *domain.ForecastParams) { p.Duration = 0 }, e.ErrInvalidDuration},
		{"bad gender", func(p *domain.ForecastParams) { p.TargetGender = "robots" }, e.ErrInvalidGender},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newTestForecastUC(&scriptedBackend{forecast: byKey(nil)})
			params := baseParams(single(delhi))
			tt.mutate(params)

			_, err := uc.GetForecast(context.Background(), params)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNormalizeAbvrs_Limit(t *testing.T) {
	abvrs := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		abvrs = append(abvrs, string(rune('a'+i%26))+string(rune('A'+i/26)))
	}

	assert.Len(t, normalizeAbvrs(abvrs), MaxForecastAbvrs)
	assert.Equal(t, []string{"x", "y"}, normalizeAbvrs([]string{" x", "y", "x ", ""}))
}

func TestFinalizeMetrics_RoundsAndCaps(t *testing.T) {
	got := finalizeMetrics(domain.ForecastMetrics{User: 1.004, Impr: 10}, 1)
	assert.Equal(t, 1.0, got.User)
	assert.Equal(t, 3.0, got.Impr)

	got = finalizeMetrics(domain.ForecastMetrics{User: 123.456, Impr: 234.567}, 1)
	assert.Equal(t, 123.46, got.User)
	assert.Equal(t, 234.57, got.Impr)
}
