package ml_service

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/internal/infrastructure"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/jitter"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

// EmbeddingService клиент сервиса эмбеддингов, совместимого с text-embeddings-inference.
type EmbeddingService struct {
	client        *http.Client
	url           string
	batchSize     int
	maxConcurrent int
	maxRetries    int
	backoff       jitter.Backoff
	logger        logger.Logger
}

func NewEmbeddingService(cfg *cfg.EmbeddingCfg, logger logger.Logger) *EmbeddingService {
	return &EmbeddingService{
		client:        &http.Client{Timeout: cfg.Timeout},
		url:           cfg.URL + "/embed",
		batchSize:     max(cfg.BatchSize, 1),
		maxConcurrent: max(cfg.MaxConcurrent, 1),
		maxRetries:    max(cfg.MaxRetries, 1),
		backoff:       jitter.NewBackoff(1*time.Second, 30*time.Second),
		logger:        logger,
	}
}

type embedRequest struct {
	Inputs    []string `json:"inputs"`
	Normalize bool     `json:"normalize"`
}

// Embed векторизует тексты пачками параллельно с ограничением конкурентности.
// Порядок векторов совпадает с порядком текстов.
func (m *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	const op = "EmbeddingService.Embed"

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := make([][]float64, len(texts))
	errCh := make(chan error, (len(texts)+m.batchSize-1)/m.batchSize)
	sem := make(chan struct{}, m.maxConcurrent)

	var wg sync.WaitGroup
	for start := 0; start < len(texts); start += m.batchSize {
		end := min(start+m.batchSize, len(texts))

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
			defer func() { <-sem }()

			vectors, err := m.embedWithRetry(ctx, texts[start:end])
			if err != nil {
				errCh <- err
				cancel()
				return
			}

			copy(result[start:end], vectors)
		}()
	}

	wg.Wait()
	close(errCh)

	if err, ok := <-errCh; ok {
		return nil, e.Wrap(op, err)
	}

	return result, nil
}

// embedWithRetry выполняет запрос пачки с повтором временных сбоев и экспоненциальной задержкой
func (m *EmbeddingService) embedWithRetry(ctx context.Context, texts []string) ([][]float64, error) {
	const op = "EmbeddingService.embedWithRetry"

	for attempt := 0; ; attempt++ {
		vectors, err := m.embedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}

		if !infrastructure.IsRetryable(err) {
			return nil, e.Wrap(op, err)
		}

		if attempt == m.maxRetries-1 {
			return nil, e.Wrap(op, fmt.Errorf("all %d attempts failed: %w", m.maxRetries, err))
		}

		m.logger.Warnf("embedding failed, retrying (attempt %d): %v", attempt+1, err)
		if err := m.backoff.Wait(ctx, attempt); err != nil {
			return nil, e.Wrap(op, err)
		}
	}
}

func (m *EmbeddingService) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	var vectors [][]float64
	if err := infrastructure.DoJSON(ctx, m.client, http.MethodPost, m.url, embedRequest{
		Inputs:    texts,
		Normalize: true,
	}, &vectors); err != nil {
		return nil, err
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", e.ErrEmbeddingCountMismatch, len(vectors), len(texts))
	}

	return vectors, nil
}
