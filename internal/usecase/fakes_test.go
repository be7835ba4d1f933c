package usecase

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

func nopLogger() logger.Logger { return logger.NewNopLogger() }

const bowDim = 256

// bowEmbedder строит детерминированный вектор «мешка слов» по хешам токенов.
type bowEmbedder struct {
	calls atomic.Int32
}

func (b *bowEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	b.calls.Add(1)

	result := make([][]float64, 0, len(texts))
	for _, text := range texts {
		v := make([]float64, bowDim)
		tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		for _, tok := range tokens {
			h := fnv.New32a()
			_, _ = h.Write([]byte(tok))
			v[h.Sum32()%bowDim]++
		}
		result = append(result, v)
	}

	return result, nil
}

// stubEmbedder отдаёт заранее заданные векторы.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   atomic.Int32
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}

	result := make([][]float64, 0, len(texts))
	for _, text := range texts {
		v, ok := s.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", text)
		}
		result = append(result, v)
	}

	return result, nil
}

type memoryStore struct {
	mu      sync.Mutex
	entries []domain.SegmentEmbedding
	loadErr error
	saveErr error
	saves   int
}

func (m *memoryStore) Load(context.Context) ([]domain.SegmentEmbedding, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.entries == nil {
		return nil, e.ErrCacheMiss
	}
	return m.entries, nil
}

func (m *memoryStore) Save(_ context.Context, entries []domain.SegmentEmbedding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.entries = entries
	m.loadErr = nil
	return nil
}

func (m *memoryStore) CheckValidity(context.Context) (bool, string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.entries == nil {
		return false, "Cache file does not exist"
	}
	return true, fmt.Sprintf("Cache is valid with %d entries", len(m.entries))
}

type fakeCatalog struct {
	entries []domain.CatalogAudience
	err     error
}

func (f *fakeCatalog) FetchActiveAudiences(context.Context) ([]domain.CatalogAudience, error) {
	return f.entries, f.err
}

type fakeCohorts struct {
	cohorts []domain.Cohort
	err     error
}

func (f *fakeCohorts) FetchCohorts(context.Context) ([]domain.Cohort, error) {
	return f.cohorts, f.err
}

type fakeLookup struct {
	locations map[string]domain.Location
	failing   map[string]bool
	calls     atomic.Int32
}

func (f *fakeLookup) Lookup(_ context.Context, name string) (*domain.Location, error) {
	f.calls.Add(1)
	if f.failing[name] {
		return nil, errors.New("lookup service unavailable")
	}
	loc, ok := f.locations[name]
	if !ok {
		return nil, nil
	}
	return &loc, nil
}

type fakeGroups struct {
	groups []domain.LocationGroup
	err    error
}

func (f *fakeGroups) FetchGroups(context.Context) ([]domain.LocationGroup, error) {
	return f.groups, f.err
}

type fakeLocationCache struct {
	mu     sync.Mutex
	stored map[string]domain.Location
	getErr error
}

func (f *fakeLocationCache) GetLocations(_ context.Context, names []string) (map[string]domain.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return nil, f.getErr
	}
	result := make(map[string]domain.Location)
	for _, n := range names {
		if loc, ok := f.stored[n]; ok {
			result[n] = loc
		}
	}
	return result, nil
}

func (f *fakeLocationCache) SetLocations(_ context.Context, locations map[string]domain.Location) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.stored == nil {
		f.stored = make(map[string]domain.Location)
	}
	for k, v := range locations {
		f.stored[k] = v
	}
	return nil
}

// scriptedBackend отвечает по ключу, составленному из ID включённых и исключённых локаций.
type scriptedBackend struct {
	mu       sync.Mutex
	forecast func(req *ForecastCallReq) (*domain.ForecastMetrics, error)
	geoWise  func(req *ForecastCallReq) (map[string]domain.ForecastMetrics, error)
	calls    []ForecastCallReq
	geoCalls []ForecastCallReq
}

func (s *scriptedBackend) Forecast(_ context.Context, req *ForecastCallReq) (*domain.ForecastMetrics, error) {
	s.mu.Lock()
	s.calls = append(s.calls, *req)
	s.mu.Unlock()

	return s.forecast(req)
}

func (s *scriptedBackend) GeoWiseForecast(_ context.Context, req *ForecastCallReq) (map[string]domain.ForecastMetrics, error) {
	s.mu.Lock()
	s.geoCalls = append(s.geoCalls, *req)
	s.mu.Unlock()

	if s.geoWise == nil {
		return nil, errors.New("geo-wise backend returned 500")
	}
	return s.geoWise(req)
}

func locationKey(included, excluded []domain.Location) string {
	ids := func(locs []domain.Location) string {
		parts := make([]string, 0, len(locs))
		for _, l := range locs {
			parts = append(parts, fmt.Sprint(l.ID))
		}
		return strings.Join(parts, ",")
	}
	return ids(included) + "|" + ids(excluded)
}

type fakeExtractor struct {
	draft       *domain.CampaignDraft
	draftErr    error
	locations   []domain.LocationRequest
	keywords    []string
	selected    []string
	selectErr   error
	campaignReq *ExtractCampaignReq
}

func (f *fakeExtractor) ExtractCampaign(_ context.Context, req *ExtractCampaignReq) (*domain.CampaignDraft, error) {
	f.campaignReq = req
	return f.draft, f.draftErr
}

func (f *fakeExtractor) ExtractLocations(context.Context, *ExtractLocationsReq) ([]domain.LocationRequest, error) {
	return f.locations, nil
}

func (f *fakeExtractor) ExtractKeywords(context.Context, string, string) ([]string, error) {
	return f.keywords, nil
}

func (f *fakeExtractor) SelectAudiences(context.Context, []string, []string) ([]string, error) {
	return f.selected, f.selectErr
}

type fakeTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.RefreshTask
}

func newFakeTaskRepo() *fakeTaskRepo {
	return &fakeTaskRepo{tasks: make(map[string]domain.RefreshTask)}
}

func (f *fakeTaskRepo) Create(_ context.Context, task *domain.RefreshTask) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = *task
	return nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task *domain.RefreshTask) error {
	return f.Create(context.Background(), task)
}

func (f *fakeTaskRepo) Get(_ context.Context, id string) (*domain.RefreshTask, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, e.ErrTaskNotFound
	}
	return &task, nil
}

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = false
	f.released++
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RefreshTask
}

func (r *recordingPublisher) PublishRefreshEvent(_ context.Context, task *domain.RefreshTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *task)
	return nil
}

func testMediaPlan() *domain.MediaPlanCatalog {
	return &domain.MediaPlanCatalog{
		CreativeSizes: map[string][]domain.CreativeSize{
			"Banners": {{300, 200}, {728, 90}, {300, 600}, {320, 50}, {120, 600}},
		},
		DeviceCategories: map[string][]domain.Device{
			"Mobile": {{Name: "Feature Phone", ID: "30003"}, {Name: "Smartphone", ID: "30001"}, {Name: "Tablet", ID: "30002"}},
		},
		Presets: []domain.PresetOption{
			{Code: "TIL_All_Cluster_RNF", Label: "TIL"},
			{Code: "TIL_ET_Only_RNF", Label: "ET"},
		},
		AudiencePrefixes:   []string{"Interest", "Demographic", "In Market"},
		ReservedNamePrefix: "Interest |",
		TargetAges:         []string{"18-24", "25-34", "35-44", "45-54", "55+", "All"},
		TargetGenders:      []string{"Male", "Female", "All"},
	}
}
