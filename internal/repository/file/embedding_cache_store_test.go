package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entries() []domain.SegmentEmbedding {
	return []domain.SegmentEmbedding{
		*domain.NewSegmentEmbedding(
			*domain.NewAudienceSegment("jwl", "Interest | Jewelry", "Jewelry buyers"),
			"Interest | Jewelry - Jewelry buyers",
			[]float64{0.1, 0.2},
			[]float64{0.3, 0.4},
			[]float64{0.5, 0.6},
		),
	}
}

func TestEmbeddingCacheStore_MissingFile(t *testing.T) {
	store := NewEmbeddingCacheStore(filepath.Join(t.TempDir(), "cache.csv"))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, e.ErrCacheMiss)

	ok, msg := store.CheckValidity(context.Background())
	assert.False(t, ok)
	assert.Equal(t, "Cache file does not exist", msg)
}

func TestEmbeddingCacheStore_SaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.csv")
	store := NewEmbeddingCacheStore(path)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, entries()))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, entries(), loaded)

	ok, msg := store.CheckValidity(ctx)
	assert.True(t, ok)
	assert.Equal(t, "Cache is valid with 1 entries", msg)

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestEmbeddingCacheStore_EmptyAndCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	store := NewEmbeddingCacheStore(path)
	ctx := context.Background()

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	_, err := store.Load(ctx)
	assert.ErrorIs(t, err, e.ErrCacheMiss)

	ok, msg := store.CheckValidity(ctx)
	assert.False(t, ok)
	assert.Equal(t, "Cache file is empty", msg)

	require.NoError(t, os.WriteFile(path, []byte("name,abvr\nJewelry,jwl\n"), 0o644))
	_, err = store.Load(ctx)
	assert.ErrorIs(t, err, e.ErrCacheCorrupted)
}
