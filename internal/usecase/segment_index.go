package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

// SegmentIndex выдаёт эмбеддинги сегментов из кэша и пересчитывает их при промахе или по запросу.
// Запись в хранилище идёт только под mu, поэтому в процессе всегда один писатель.
type SegmentIndex struct {
	store    EmbeddingCacheStore
	embedder Embedder
	logger   logger.Logger
	mu       sync.Mutex
}

func NewSegmentIndex(store EmbeddingCacheStore, embedder Embedder, logger logger.Logger) *SegmentIndex {
	return &SegmentIndex{
		store:    store,
		embedder: embedder,
		logger:   logger,
	}
}

// GetOrCompute возвращает кэш, если он читается, иначе вычисляет эмбеддинги всех сегментов и сохраняет их.
// Повреждённый кэш считается промахом.
func (s *SegmentIndex) GetOrCompute(ctx context.Context, segments []domain.AudienceSegment) ([]domain.SegmentEmbedding, error) {
	const op = "SegmentIndex.GetOrCompute"

	if cached, ok := s.load(ctx); ok {
		return cached, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// кэш мог заполниться, пока ждали блокировку
	if cached, ok := s.load(ctx); ok {
		return cached, nil
	}

	computed, err := s.Compute(ctx, segments)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if len(computed) > 0 {
		if err := s.store.Save(ctx, computed); err != nil {
			s.logger.Warnf("Failed to save embedding cache: %v", e.Wrap(op, err))
		}
	}

	return computed, nil
}

// Recompute пересчитывает эмбеддинги всех сегментов и перезаписывает хранилище.
func (s *SegmentIndex) Recompute(ctx context.Context, segments []domain.AudienceSegment) ([]domain.SegmentEmbedding, error) {
	const op = "SegmentIndex.Recompute"

	s.mu.Lock()
	defer s.mu.Unlock()

	computed, err := s.Compute(ctx, segments)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	if err := s.store.Save(ctx, computed); err != nil {
		return nil, e.Wrap(op, err)
	}

	s.logger.Infof("Embedding cache rebuilt with %d entries", len(computed))
	return computed, nil
}

// Compute вычисляет три эмбеддинга для каждого сегмента без обращения к хранилищу.
func (s *SegmentIndex) Compute(ctx context.Context, segments []domain.AudienceSegment) ([]domain.SegmentEmbedding, error) {
	const op = "SegmentIndex.Compute"

	if len(segments) == 0 {
		return []domain.SegmentEmbedding{}, nil
	}

	texts := make([]string, 0, len(segments)*3)
	for _, segment := range segments {
		combined, name, description := SegmentTexts(segment)
		texts = append(texts, combined, name, description)
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if len(vectors) != len(texts) {
		return nil, e.Wrap(op, e.ErrEmbeddingCountMismatch)
	}

	result := make([]domain.SegmentEmbedding, 0, len(segments))
	for i, segment := range segments {
		result = append(result, *domain.NewSegmentEmbedding(
			segment,
			texts[i*3],
			vectors[i*3],
			vectors[i*3+1],
			vectors[i*3+2],
		))
	}

	return result, nil
}

func (s *SegmentIndex) CheckValidity(ctx context.Context) (bool, string) {
	return s.store.CheckValidity(ctx)
}

func (s *SegmentIndex) load(ctx context.Context) ([]domain.SegmentEmbedding, bool) {
	cached, err := s.store.Load(ctx)
	switch {
	case err == nil:
		return cached, true
	case errors.Is(err, e.ErrCacheMiss):
		s.logger.Infof("Embedding cache miss, computing embeddings")
	default:
		s.logger.Warnf("Embedding cache unreadable, recomputing: %v", err)
	}

	return nil, false
}
