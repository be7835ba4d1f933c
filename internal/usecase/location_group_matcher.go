package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// GroupMatch — группа локаций и близость её имени к фразе.
type GroupMatch struct {
	Group domain.LocationGroup
	Score float64
}

// LocationGroupMatcher сопоставляет свободный текст с именами групп локаций.
// Эмбеддинги имён переиспользуются, пока набор групп не изменился.
type LocationGroupMatcher struct {
	embedder Embedder

	mu          sync.Mutex
	fingerprint string
	vectors     map[string][]float64
}

func NewLocationGroupMatcher(embedder Embedder) *LocationGroupMatcher {
	return &LocationGroupMatcher{embedder: embedder}
}

// TopK возвращает до k групп, отсортированных по убыванию близости имени к фразе.
func (m *LocationGroupMatcher) TopK(ctx context.Context, groups []domain.LocationGroup, phrase string, k int) ([]GroupMatch, error) {
	const op = "LocationGroupMatcher.TopK"

	if len(groups) == 0 || k <= 0 {
		return []GroupMatch{}, nil
	}

	vectors, err := m.groupVectors(ctx, groups)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	query, err := m.embedder.Embed(ctx, []string{phrase})
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(query) != 1 {
		return nil, e.Wrap(op, e.ErrEmbeddingCountMismatch)
	}

	matches := make([]GroupMatch, 0, len(groups))
	for _, g := range groups {
		matches = append(matches, GroupMatch{
			Group: g,
			Score: CosineSimilarity(query[0], vectors[g.Name]),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}

	return matches, nil
}

func (m *LocationGroupMatcher) groupVectors(ctx context.Context, groups []domain.LocationGroup) (map[string][]float64, error) {
	names := make([]string, 0, len(groups))
	for _, g := range groups {
		names = append(names, g.Name)
	}
	sort.Strings(names)
	fingerprint := strings.Join(names, "\x00")

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vectors != nil && m.fingerprint == fingerprint {
		return m.vectors, nil
	}

	embedded, err := m.embedder.Embed(ctx, names)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(names) {
		return nil, e.ErrEmbeddingCountMismatch
	}

	vectors := make(map[string][]float64, len(names))
	for i, name := range names {
		vectors[name] = embedded[i]
	}

	m.fingerprint = fingerprint
	m.vectors = vectors

	return vectors, nil
}
