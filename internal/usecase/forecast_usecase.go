package usecase

import (
	"context"
	"strings"
	"time"

	transaction "github.com/avito-tech/go-transaction-manager/drivers/pgxv5/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
	"github.com/mediaplan/forecast-service/pkg/tr"
	"golang.org/x/sync/errgroup"
)

const (
	// Сколько кодов аудиторий уходит в бэкенд прогнозов.
	MaxForecastAbvrs = 200
	// MaxImpressionsPerUser ограничивает показы после масштабирования.
	MaxImpressionsPerUser = 3
)

// ForecastUseCase агрегирует прогнозы охвата по пресетам и локациям.
type ForecastUseCase struct {
	backend     ForecastBackend
	catalog     *domain.MediaPlanCatalog
	historyRepo ForecastHistoryRepository
	dbPool      transaction.Transactional
	workers     int
	now         func() time.Time
	logger      logger.Logger
}

// NewForecastUC создаёт use case. historyRepo и dbPool могут быть nil, тогда история не пишется.
func NewForecastUC(
	backend ForecastBackend,
	catalog *domain.MediaPlanCatalog,
	historyRepo ForecastHistoryRepository,
	dbPool transaction.Transactional,
	workers int,
	logger logger.Logger,
) *ForecastUseCase {
	if workers < 1 {
		workers = 1
	}

	return &ForecastUseCase{
		backend:     backend,
		catalog:     catalog,
		historyRepo: historyRepo,
		dbPool:      dbPool,
		workers:     workers,
		now:         time.Now,
		logger:      logger,
	}
}

// forecastPlan хранит проверенные параметры, общие для всех пресетов запроса.
type forecastPlan struct {
	abvrs      string
	sizes      []domain.CreativeSize
	devices    []domain.Device
	scale      float64
	start      time.Time
	end        time.Time
	simplified []domain.LocationSelector
	merged     []domain.Location
	catchAll   bool
}

// GetForecast возвращает прогноз по отображаемому названию пресета и ключу локации.
// Отказ бэкенда для отдельной локации или Overall не фатален: бакет пропускается.
func (f *ForecastUseCase) GetForecast(ctx context.Context, params *domain.ForecastParams) (domain.ForecastResult, error) {
	const op = "ForecastUseCase.GetForecast"

	plan, err := f.buildPlan(params)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	result := make(domain.ForecastResult, len(params.Presets))
	for _, preset := range params.Presets {
		label, _ := f.catalog.PresetLabel(preset)
		result[label] = f.forecastPreset(ctx, plan, preset)
	}

	f.saveHistory(ctx, params, plan.scale, result)

	return result, nil
}

func (f *ForecastUseCase) buildPlan(params *domain.ForecastParams) (*forecastPlan, error) {
	abvrs := normalizeAbvrs(params.Abvrs)
	if len(abvrs) == 0 {
		return nil, e.ErrNoAudiences
	}

	if len(params.Presets) == 0 {
		return nil, e.ErrNoPresets
	}
	for _, preset := range params.Presets {
		if _, ok := f.catalog.PresetLabel(preset); !ok {
			return nil, e.Wrap(preset, e.ErrUnknownPreset)
		}
	}

	sizes, ok := f.catalog.Sizes(params.CreativeSize)
	if !ok {
		return nil, e.Wrap(params.CreativeSize, e.ErrUnknownCreativeSize)
	}

	devices, ok := f.catalog.Devices(params.DeviceCategory)
	if !ok {
		return nil, e.Wrap(params.DeviceCategory, e.ErrUnknownDeviceCategory)
	}

	if params.Duration <= 0 {
		return nil, e.ErrInvalidDuration
	}

	scale, err := DemographicScale(params.TargetGender, params.TargetAge)
	if err != nil {
		return nil, err
	}

	start, end := forecastWindow(f.now(), params.Duration)
	simplified, merged, catchAll := partitionSelectors(params.Locations)

	return &forecastPlan{
		abvrs:      strings.Join(abvrs, ","),
		sizes:      sizes,
		devices:    devices,
		scale:      scale,
		start:      start,
		end:        end,
		simplified: simplified,
		merged:     merged,
		catchAll:   catchAll,
	}, nil
}

// forecastPreset собирает бакеты одного пресета в новую карту.
// Overall считается только после того, как известны все остальные бакеты.
func (f *ForecastUseCase) forecastPreset(ctx context.Context, plan *forecastPlan, preset string) domain.PresetForecast {
	const op = "ForecastUseCase.forecastPreset"

	var (
		perSelector = make([]*domain.ForecastMetrics, len(plan.simplified))
		geoWise     map[string]domain.ForecastMetrics
		g           errgroup.Group
	)
	g.SetLimit(f.workers)

	for i, selector := range plan.simplified {
		g.Go(func() error {
			metrics, err := f.backend.Forecast(ctx, f.callReq(plan, preset, selector.Included, selector.Excluded))
			if err != nil {
				f.logger.Warnf("Failed to get forecast for %q, preset %s: %v", selector.NameAsID, preset, e.Wrap(op, err))
				return nil
			}
			perSelector[i] = metrics
			return nil
		})
	}

	// Геораспределённый запрос уходит всегда, даже с пустым списком одиночных включений.
	g.Go(func() error {
		buckets, err := f.backend.GeoWiseForecast(ctx, f.callReq(plan, preset, plan.merged, nil))
		if err != nil {
			f.logger.Warnf("Failed to get geo-wise forecast, preset %s: %v", preset, e.Wrap(op, err))
			return nil
		}
		geoWise = buckets
		return nil
	})
	_ = g.Wait()

	buckets := make(domain.PresetForecast)
	contributors := newLocationUnion()

	for i, selector := range plan.simplified {
		if perSelector[i] == nil {
			continue
		}
		buckets[selector.NameAsID] = finalizeMetrics(*perSelector[i], plan.scale)
		contributors.add(selector.Included, selector.Excluded)
	}

	if geoWise != nil {
		for key, metrics := range geoWise {
			buckets[key] = finalizeMetrics(metrics, plan.scale)
		}
		contributors.add(plan.merged, nil)
	}

	switch {
	case len(buckets) == 1:
		var only domain.ForecastMetrics
		for _, m := range buckets {
			only = m
		}
		buckets[domain.OverallKey] = only

	case len(buckets) == 0 && !plan.catchAll:
		// ни одна локация не дала данных

	default:
		included, excluded := contributors.included, contributors.excluded
		if plan.catchAll {
			included, excluded = []domain.Location{}, []domain.Location{}
		}

		overall, err := f.backend.Forecast(ctx, f.callReq(plan, preset, included, excluded))
		if err != nil {
			f.logger.Warnf("Failed to get overall forecast, preset %s: %v", preset, e.Wrap(op, err))
			break
		}
		buckets[domain.OverallKey] = finalizeMetrics(*overall, plan.scale)
	}

	return buckets
}

func (f *ForecastUseCase) callReq(plan *forecastPlan, preset string, included, excluded []domain.Location) *ForecastCallReq {
	if included == nil {
		included = []domain.Location{}
	}
	if excluded == nil {
		excluded = []domain.Location{}
	}

	return &ForecastCallReq{
		Abvrs:     plan.abvrs,
		Included:  included,
		Excluded:  excluded,
		Preset:    preset,
		Sizes:     plan.sizes,
		Devices:   plan.devices,
		StartDate: plan.start,
		EndDate:   plan.end,
	}
}

// saveHistory пишет прогноз в историю одной транзакцией. Ошибки только логируются.
func (f *ForecastUseCase) saveHistory(ctx context.Context, params *domain.ForecastParams, scale float64, result domain.ForecastResult) {
	const op = "ForecastUseCase.saveHistory"

	if f.historyRepo == nil || f.dbPool == nil {
		return
	}

	ctx, tx, err := transaction.NewTransaction(ctx, pgx.TxOptions{}, f.dbPool)
	if err != nil {
		f.logger.Warnf("Failed to save forecast history: %v", e.Wrap(op, err))
		return
	}
	defer func() {
		if err != nil {
			if tx.IsActive() {
				tx.Rollback(ctx)
			}
			f.logger.Warnf("Failed to save forecast history: %v", e.Wrap(op, err))
		}
	}()
	pgxTx, ok := tx.Transaction().(pgx.Tx)
	if !ok {
		err = e.ErrTransactionNotFound
		return
	}
	ctx = tr.WithTx(ctx, pgxTx)

	record := domain.NewForecastRecord(uuid.NewString(), *params, scale, result, f.now())
	if err = f.historyRepo.Save(ctx, record); err != nil {
		return
	}

	err = tx.Commit(ctx)
}

// finalizeMetrics масштабирует бакет и округляет до сотых, сохраняя предел показов на пользователя.
func finalizeMetrics(raw domain.ForecastMetrics, scale float64) domain.ForecastMetrics {
	user, impr := ScaleMetrics(raw.User, raw.Impr, scale)
	user = round(user, 2)
	impr = round(min(impr, MaxImpressionsPerUser*user), 2)

	return domain.ForecastMetrics{User: user, Impr: impr}
}

// partitionSelectors делит селекторы: одиночные включения объединяются в один список,
// остальные, включая селектор без ограничений, запрашиваются по отдельности.
func partitionSelectors(selectors []domain.LocationSelector) (simplified []domain.LocationSelector, merged []domain.Location, catchAll bool) {
	for _, s := range selectors {
		switch {
		case s.IsSingle():
			merged = append(merged, s.Included[0])
		case s.IsCatchAll():
			catchAll = true
			simplified = append(simplified, s)
		default:
			simplified = append(simplified, s)
		}
	}

	return simplified, merged, catchAll
}

// forecastWindow: начало завтра в 00:00:00, конец через duration дней в 23:59:59.
func forecastWindow(now time.Time, duration int) (time.Time, time.Time) {
	y, m, d := now.Date()
	start := time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
	end := time.Date(y, m, d+duration, 23, 59, 59, 0, now.Location())
	return start, end
}

// normalizeAbvrs обрезает пробелы, убирает пустые и повторные коды и ограничивает их число.
func normalizeAbvrs(abvrs []string) []string {
	seen := make(map[string]struct{}, len(abvrs))
	result := make([]string, 0, len(abvrs))

	for _, abvr := range abvrs {
		abvr = strings.TrimSpace(abvr)
		if abvr == "" {
			continue
		}
		if _, ok := seen[abvr]; ok {
			continue
		}
		seen[abvr] = struct{}{}
		result = append(result, abvr)

		if len(result) == MaxForecastAbvrs {
			break
		}
	}

	return result
}

// locationUnion собирает локации без повторов по ID в порядке появления.
type locationUnion struct {
	included []domain.Location
	excluded []domain.Location
	seenInc  map[int64]struct{}
	seenExc  map[int64]struct{}
}

func newLocationUnion() *locationUnion {
	return &locationUnion{
		included: []domain.Location{},
		excluded: []domain.Location{},
		seenInc:  make(map[int64]struct{}),
		seenExc:  make(map[int64]struct{}),
	}
}

func (u *locationUnion) add(included, excluded []domain.Location) {
	for _, loc := range included {
		if _, ok := u.seenInc[loc.ID]; !ok {
			u.seenInc[loc.ID] = struct{}{}
			u.included = append(u.included, loc)
		}
	}
	for _, loc := range excluded {
		if _, ok := u.seenExc[loc.ID]; !ok {
			u.seenExc[loc.ID] = struct{}{}
			u.excluded = append(u.excluded, loc)
		}
	}
}
