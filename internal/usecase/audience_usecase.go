package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

// AudienceUseCase подбирает сегменты аудиторий по ключевым словам.
type AudienceUseCase struct {
	catalog   AudienceCatalog
	cohorts   CohortRegistry
	index     *SegmentIndex
	embedder  Embedder
	extractor CampaignExtractor
	mediaPlan *domain.MediaPlanCatalog
	logger    logger.Logger
}

// NewAudienceUC создаёт use case. Без extractor все кандидаты попадают в Selected.
func NewAudienceUC(
	catalog AudienceCatalog,
	cohorts CohortRegistry,
	index *SegmentIndex,
	embedder Embedder,
	extractor CampaignExtractor,
	mediaPlan *domain.MediaPlanCatalog,
	logger logger.Logger,
) *AudienceUseCase {
	return &AudienceUseCase{
		catalog:   catalog,
		cohorts:   cohorts,
		index:     index,
		embedder:  embedder,
		extractor: extractor,
		mediaPlan: mediaPlan,
		logger:    logger,
	}
}

// GetAbvrs возвращает общие рекомендации по сегментам вне выбранных когорт
// и отдельные ранжированные списки внутри каждой когорты.
func (a *AudienceUseCase) GetAbvrs(ctx context.Context, req *GetAbvrsReq) (*GetAbvrsRes, error) {
	const op = "AudienceUseCase.GetAbvrs"

	keywords := cleanKeywords(req.Keywords)
	if len(keywords) == 0 {
		return NewGetAbvrsRes(keywords, []CohortMatches{}, []domain.ScoredSegment{}, []domain.ScoredSegment{}), nil
	}

	cohorts, err := a.selectCohorts(ctx, req.Cohorts)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	embeddings, err := a.embeddings(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	query, err := EmbedQuery(ctx, a.embedder, keywords)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	owned := make(map[string]struct{})
	for _, c := range cohorts {
		for _, abvr := range c.Abvrs {
			owned[abvr] = struct{}{}
		}
	}

	remainder := make([]domain.SegmentEmbedding, 0, len(embeddings))
	for _, emb := range embeddings {
		if _, ok := owned[emb.Segment.Abvr]; !ok {
			remainder = append(remainder, emb)
		}
	}

	cohortMatches := make([]CohortMatches, 0, len(cohorts))
	for _, c := range cohorts {
		cohortMatches = append(cohortMatches, CohortMatches{
			Cohort:   c.Name,
			Segments: RankSegments(query, poolOf(embeddings, c.Abvrs)),
		})
	}

	ranked := RankSegments(query, remainder)
	selected, left := a.shortlist(ctx, keywords, ranked)

	return NewGetAbvrsRes(keywords, cohortMatches, selected, left), nil
}

// AddCohort ранжирует сегменты, принадлежащие добавленным когортам, одним списком.
func (a *AudienceUseCase) AddCohort(ctx context.Context, req *AddCohortReq) ([]domain.ScoredSegment, error) {
	const op = "AudienceUseCase.AddCohort"

	keywords := cleanKeywords(req.Keywords)
	if len(keywords) == 0 || len(req.Cohorts) == 0 {
		return []domain.ScoredSegment{}, nil
	}

	cohorts, err := a.selectCohorts(ctx, req.Cohorts)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	embeddings, err := a.embeddings(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	query, err := EmbedQuery(ctx, a.embedder, keywords)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	abvrs := make([]string, 0)
	for _, c := range cohorts {
		abvrs = append(abvrs, c.Abvrs...)
	}

	return RankSegments(query, poolOf(embeddings, abvrs)), nil
}

// FindByName возвращает сегменты, чьё имя содержит запрос без учёта регистра,
// оценённые по ключевым словам без порога. Без ключевых слов оценка нулевая.
func (a *AudienceUseCase) FindByName(ctx context.Context, req *FindByNameReq) ([]domain.ScoredSegment, error) {
	const op = "AudienceUseCase.FindByName"

	needle := strings.ToLower(strings.TrimSpace(req.Name))
	if needle == "" {
		return nil, e.Wrap(op, e.ErrAudienceNameRequired)
	}

	embeddings, err := a.embeddings(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	matched := make([]domain.SegmentEmbedding, 0)
	for _, emb := range embeddings {
		if strings.Contains(strings.ToLower(emb.Segment.Name), needle) {
			matched = append(matched, emb)
		}
	}

	query, err := EmbedQuery(ctx, a.embedder, cleanKeywords(req.Keywords))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if query == nil {
		result := make([]domain.ScoredSegment, 0, len(matched))
		for _, emb := range matched {
			result = append(result, domain.ScoredSegment{AudienceSegment: emb.Segment})
		}
		return result, nil
	}

	return ScoreSegments(query, matched), nil
}

// Segments загружает каталог и оставляет только сегменты, пригодные для подбора.
func (a *AudienceUseCase) Segments(ctx context.Context) ([]domain.AudienceSegment, error) {
	entries, err := a.catalog.FetchActiveAudiences(ctx)
	if err != nil {
		return nil, errors.Join(e.ErrCatalogUnavailable, err)
	}

	return FilterCatalog(entries, a.mediaPlan), nil
}

// embeddings возвращает эмбеддинги сегментов текущего каталога.
// Записи кэша, которых нет в каталоге, отбрасываются.
func (a *AudienceUseCase) embeddings(ctx context.Context) ([]domain.SegmentEmbedding, error) {
	segments, err := a.Segments(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := a.index.GetOrCompute(ctx, segments)
	if err != nil {
		return nil, err
	}

	current := make(map[string]struct{}, len(segments))
	for _, s := range segments {
		current[s.Abvr] = struct{}{}
	}

	result := make([]domain.SegmentEmbedding, 0, len(cached))
	for _, emb := range cached {
		if _, ok := current[emb.Segment.Abvr]; ok {
			result = append(result, emb)
		}
	}

	if stale := len(cached) - len(result); stale > 0 || len(result) < len(segments) {
		a.logger.Infof("Embedding cache differs from catalog: %d stale entries, %d of %d segments cached",
			stale, len(result), len(segments))
	}

	return result, nil
}

// selectCohorts находит когорты по именам. Неизвестное имя отклоняет весь запрос.
func (a *AudienceUseCase) selectCohorts(ctx context.Context, names []string) ([]domain.Cohort, error) {
	if len(names) == 0 {
		return []domain.Cohort{}, nil
	}

	registry, err := a.cohorts.FetchCohorts(ctx)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]domain.Cohort, len(registry))
	for _, c := range registry {
		byName[c.Name] = c
	}

	selected := make([]domain.Cohort, 0, len(names))
	for _, name := range names {
		c, ok := byName[name]
		if !ok {
			return nil, e.Wrap(name, e.ErrInvalidCohort)
		}
		selected = append(selected, c)
	}

	return selected, nil
}

// shortlist делит кандидатов на выбранных сервисом извлечения и остальных, сохраняя порядок по близости.
// При недоступности сервиса выбранными считаются все кандидаты.
func (a *AudienceUseCase) shortlist(ctx context.Context, keywords []string, ranked []domain.ScoredSegment) ([]domain.ScoredSegment, []domain.ScoredSegment) {
	const op = "AudienceUseCase.shortlist"

	if a.extractor == nil || len(ranked) == 0 {
		return ranked, []domain.ScoredSegment{}
	}

	names := make([]string, 0, len(ranked))
	for _, s := range ranked {
		names = append(names, s.Name)
	}

	picked, err := a.extractor.SelectAudiences(ctx, keywords, names)
	if err != nil {
		a.logger.Warnf("Audience short-listing failed, keeping all candidates: %v", e.Wrap(op, err))
		return ranked, []domain.ScoredSegment{}
	}

	pickedSet := make(map[string]struct{}, len(picked))
	for _, name := range picked {
		pickedSet[name] = struct{}{}
	}

	selected := make([]domain.ScoredSegment, 0, len(picked))
	left := make([]domain.ScoredSegment, 0, len(ranked))
	for _, s := range ranked {
		if _, ok := pickedSet[s.Name]; ok {
			selected = append(selected, s)
		} else {
			left = append(left, s)
		}
	}

	return selected, left
}

// FilterCatalog оставляет записи с ненулевым охватом за 30 дней, непустыми именем и описанием
// и разрешённым префиксом (или зарезервированным началом имени). Повторный abvr отбрасывается.
func FilterCatalog(entries []domain.CatalogAudience, mediaPlan *domain.MediaPlanCatalog) []domain.AudienceSegment {
	seen := make(map[string]struct{}, len(entries))
	result := make([]domain.AudienceSegment, 0, len(entries))

	for _, entry := range entries {
		if entry.UniqueUsers30d <= 0 || entry.Name == "" || entry.Description == "" {
			continue
		}

		reserved := mediaPlan.ReservedNamePrefix != "" && strings.HasPrefix(entry.Name, mediaPlan.ReservedNamePrefix)
		if !mediaPlan.AllowsPrefix(entry.AudiencePrefix) && !reserved {
			continue
		}

		segment := domain.NewAudienceSegment(
			strings.TrimSpace(entry.Abvr),
			strings.TrimSpace(entry.Name),
			strings.TrimSpace(entry.Description),
		)
		if segment.Abvr == "" || segment.Name == "" || segment.Description == "" {
			continue
		}
		if _, ok := seen[segment.Abvr]; ok {
			continue
		}
		seen[segment.Abvr] = struct{}{}

		result = append(result, *segment)
	}

	return result
}

func poolOf(embeddings []domain.SegmentEmbedding, abvrs []string) []domain.SegmentEmbedding {
	wanted := make(map[string]struct{}, len(abvrs))
	for _, abvr := range abvrs {
		wanted[strings.TrimSpace(abvr)] = struct{}{}
	}

	pool := make([]domain.SegmentEmbedding, 0, len(abvrs))
	for _, emb := range embeddings {
		if _, ok := wanted[emb.Segment.Abvr]; ok {
			pool = append(pool, emb)
		}
	}

	return pool
}

func cleanKeywords(keywords []string) []string {
	result := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			result = append(result, k)
		}
	}
	return result
}
