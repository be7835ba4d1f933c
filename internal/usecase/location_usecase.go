package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// Близость имени группы к фразе должна быть строго больше GroupMatchThreshold.
const GroupMatchThreshold = 0.75

// LocationUseCase разрешает текстовые селекторы локаций в идентификаторы.
type LocationUseCase struct {
	lookup    LocationLookup
	groups    LocationGroupRegistry
	matcher   *LocationGroupMatcher
	cacheRepo LocationCacheRepository
	workers   int
	logger    logger.Logger
}

// NewLocationUC создаёт use case. cacheRepo может быть nil.
func NewLocationUC(
	lookup LocationLookup,
	groups LocationGroupRegistry,
	matcher *LocationGroupMatcher,
	cacheRepo LocationCacheRepository,
	workers int,
	logger logger.Logger,
) *LocationUseCase {
	if workers < 1 {
		workers = 1
	}

	return &LocationUseCase{
		lookup:    lookup,
		groups:    groups,
		matcher:   matcher,
		cacheRepo: cacheRepo,
		workers:   workers,
		logger:    logger,
	}
}

// Resolve разрешает селекторы. Ошибки отдельных поисков не фатальны: фразы и селекторы,
// которые не удалось разрешить, возвращаются в NotFound.
func (l *LocationUseCase) Resolve(ctx context.Context, requests []domain.LocationRequest) (*ResolveLocationsRes, error) {
	found := l.lookupAll(ctx, collectPhrases(requests))
	groups := l.groupsOnce(ctx)

	var (
		resolved = make([]domain.LocationSelector, 0, len(requests))
		notFound = make([]domain.UnresolvedLocation, 0)
		seenIDs  = make(map[string]struct{})
		seenName = make(map[string]struct{})
	)

	// первое вхождение ключа побеждает, селектор без ключа не может быть адресован в прогнозе
	emit := func(s domain.LocationSelector, origin domain.LocationRequest) {
		switch {
		case s.NameAsID != "":
			if _, ok := seenIDs[s.NameAsID]; ok {
				return
			}
			seenIDs[s.NameAsID] = struct{}{}
		case s.IsSingle():
			name := s.Included[0].DisplayName()
			if _, ok := seenName[name]; ok {
				return
			}
			seenName[name] = struct{}{}
		default:
			req := origin
			notFound = append(notFound, domain.UnresolvedLocation{Selector: &req})
			return
		}
		resolved = append(resolved, s)
	}

	for _, req := range requests {
		switch {
		case len(req.Excluded) == 0 && len(req.Included) > 0:
			// точные совпадения селектора идут раньше групп
			unmatched := make([]string, 0)
			for _, phrase := range req.Included {
				if loc, ok := found[normalizePhrase(phrase)]; ok {
					emit(domain.LocationSelector{Included: []domain.Location{loc}}, req)
					continue
				}
				unmatched = append(unmatched, phrase)
			}

			for _, phrase := range unmatched {
				group, ok := l.matchGroup(ctx, groups(), phrase)
				if !ok {
					l.logger.Infof("No location or location group matches %q: %v", phrase, e.ErrLocationUnresolved)
					notFound = append(notFound, domain.UnresolvedLocation{Phrase: phrase})
					continue
				}
				emit(group.Selector(), req)
			}

		case len(req.Included) == 0 && len(req.Excluded) == 0:
			emit(domain.LocationSelector{
				Included: []domain.Location{},
				Excluded: []domain.Location{},
				NameAsID: domain.CatchAllKey,
			}, req)

		default:
			selector, ok := resolveAll(found, req)
			if !ok {
				l.logger.Infof("Selector %q has unresolved locations: %v", req.NameAsID, e.ErrLocationUnresolved)
				r := req
				notFound = append(notFound, domain.UnresolvedLocation{Selector: &r})
				continue
			}
			emit(selector, req)
		}
	}

	return NewResolveLocationsRes(resolved, notFound), nil
}

// matchGroup принимает лучшую группу, только если её близость выше GroupMatchThreshold.
func (l *LocationUseCase) matchGroup(ctx context.Context, groups []domain.LocationGroup, phrase string) (domain.LocationGroup, bool) {
	const op = "LocationUseCase.matchGroup"

	if len(groups) == 0 {
		return domain.LocationGroup{}, false
	}

	matches, err := l.matcher.TopK(ctx, groups, phrase, 1)
	if err != nil {
		l.logger.Warnf("Location group matching failed for %q: %v", phrase, e.Wrap(op, err))
		return domain.LocationGroup{}, false
	}

	if len(matches) == 0 || matches[0].Score <= GroupMatchThreshold {
		return domain.LocationGroup{}, false
	}

	return matches[0].Group, true
}

// groupsOnce загружает реестр групп не более одного раза за разрешение и только по требованию.
func (l *LocationUseCase) groupsOnce(ctx context.Context) func() []domain.LocationGroup {
	const op = "LocationUseCase.groupsOnce"

	var (
		once   sync.Once
		groups []domain.LocationGroup
	)

	return func() []domain.LocationGroup {
		once.Do(func() {
			fetched, err := l.groups.FetchGroups(ctx)
			if err != nil {
				l.logger.Warnf("Failed to fetch location groups: %v", e.Wrap(op, err))
				return
			}
			groups = fetched
		})
		return groups
	}
}

// lookupAll ищет все фразы: сначала в кэше, затем параллельно во внешнем сервисе.
// Найденные во внешнем сервисе локации кэшируются в фоне.
func (l *LocationUseCase) lookupAll(ctx context.Context, phrases []string) map[string]domain.Location {
	const op = "LocationUseCase.lookupAll"

	found := make(map[string]domain.Location, len(phrases))
	if len(phrases) == 0 {
		return found
	}

	missing := phrases
	if l.cacheRepo != nil {
		cached, err := l.cacheRepo.GetLocations(ctx, phrases)
		if err != nil {
			l.logger.Warnf("Failed to read location cache: %v", e.Wrap(op, err))
		} else {
			missing = make([]string, 0, len(phrases))
			for _, phrase := range phrases {
				if loc, ok := cached[phrase]; ok {
					found[phrase] = loc
				} else {
					missing = append(missing, phrase)
				}
			}
		}
	}

	var (
		mu      sync.Mutex
		fetched = make(map[string]domain.Location, len(missing))
		g       errgroup.Group
	)
	g.SetLimit(l.workers)

	for _, phrase := range missing {
		g.Go(func() error {
			loc, err := l.lookup.Lookup(ctx, phrase)
			if err != nil {
				l.logger.Warnf("Location lookup failed for %q: %v", phrase, e.Wrap(op, err))
				return nil
			}
			if loc == nil {
				return nil
			}

			mu.Lock()
			fetched[phrase] = *loc
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for phrase, loc := range fetched {
		found[phrase] = loc
	}

	if l.cacheRepo != nil && len(fetched) > 0 {
		// Фоновое добавление локаций в кэш
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			if err := l.cacheRepo.SetLocations(bgCtx, fetched); err != nil {
				l.logger.Warnf("Failed to cache locations in background: %v", e.Wrap(op, err))
			}
		}()
	}

	return found
}

// resolveAll разрешает все включения и исключения селектора или сообщает о неудаче.
func resolveAll(found map[string]domain.Location, req domain.LocationRequest) (domain.LocationSelector, bool) {
	included := make([]domain.Location, 0, len(req.Included))
	for _, phrase := range req.Included {
		loc, ok := found[normalizePhrase(phrase)]
		if !ok {
			return domain.LocationSelector{}, false
		}
		included = append(included, loc)
	}

	excluded := make([]domain.Location, 0, len(req.Excluded))
	for _, phrase := range req.Excluded {
		loc, ok := found[normalizePhrase(phrase)]
		if !ok {
			return domain.LocationSelector{}, false
		}
		excluded = append(excluded, loc)
	}

	return domain.LocationSelector{
		Included: included,
		Excluded: excluded,
		NameAsID: req.NameAsID,
	}, true
}

// collectPhrases возвращает уникальные непустые фразы всех селекторов в порядке появления.
func collectPhrases(requests []domain.LocationRequest) []string {
	seen := make(map[string]struct{})
	phrases := make([]string, 0)

	add := func(list []string) {
		for _, p := range list {
			p = normalizePhrase(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			phrases = append(phrases, p)
		}
	}

	for _, req := range requests {
		add(req.Included)
		add(req.Excluded)
	}

	return phrases
}

func normalizePhrase(phrase string) string {
	return strings.TrimSpace(phrase)
}
