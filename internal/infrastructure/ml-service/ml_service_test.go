package ml_service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/jitter"
	"github.com/mediaplan/forecast-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lengthVectors отвечает вектором [len(text), 1] на каждый текст.
func lengthVectors(t *testing.T, calls *atomic.Int32, failFirst int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		assert.Equal(t, "/embed", r.URL.Path)

		var req embedRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Normalize)

		if n <= failFirst {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}

		out := make([][]float64, len(req.Inputs))
		for i, text := range req.Inputs {
			out[i] = []float64{float64(len(text)), 1}
		}
		json.NewEncoder(w).Encode(out)
	}
}

func newService(url string, batchSize int) *EmbeddingService {
	svc := NewEmbeddingService(&cfg.EmbeddingCfg{
		URL:           url,
		MaxConcurrent: 2,
		MaxRetries:    3,
		BatchSize:     batchSize,
		Timeout:       5 * time.Second,
	}, logger.NewNopLogger())
	svc.backoff = jitter.NewBackoff(time.Millisecond, 5*time.Millisecond)
	return svc
}

func TestEmbeddingService_BatchesPreserveOrder(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(lengthVectors(t, &calls, 0))
	defer srv.Close()

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := newService(srv.URL, 2).Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, len(texts))
	for i, text := range texts {
		assert.Equal(t, []float64{float64(len(text)), 1}, vectors[i])
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbeddingService_RetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(lengthVectors(t, &calls, 2))
	defer srv.Close()

	vectors, err := newService(srv.URL, 10).Embed(context.Background(), []string{"abc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3, 1}}, vectors)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbeddingService_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(lengthVectors(t, &calls, 100))
	defer srv.Close()

	_, err := newService(srv.URL, 10).Embed(context.Background(), []string{"abc"})
	require.Error(t, err)
	assert.ErrorIs(t, err, e.ErrBackendCall)
	assert.Equal(t, int32(3), calls.Load())
}

func TestEmbeddingService_CountMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[[1,2]]`))
	}))
	defer srv.Close()

	_, err := newService(srv.URL, 10).Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, e.ErrEmbeddingCountMismatch)
}

func TestEmbeddingService_Empty(t *testing.T) {
	vectors, err := newService("http://unused", 10).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}
