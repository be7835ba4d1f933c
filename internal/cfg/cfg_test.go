package cfg

import (
	"testing"
	"time"

	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRedisCfg_DisabledWithoutAddr(t *testing.T) {
	t.Setenv("REDIS_ADDR", "")

	redis, err := loadRedisCfg(logger.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, redis)
}

func TestLoadRedisCfg_Defaults(t *testing.T) {
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("WRITE_TIMEOUT", "7s")

	redis, err := loadRedisCfg(logger.NewNopLogger())
	require.NoError(t, err)
	require.NotNil(t, redis)
	assert.Equal(t, 24*time.Hour, redis.LocationTTL)
	assert.Equal(t, 7*time.Second, redis.Timeout)
}

func TestLoadEmbeddingCacheCfg_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("EMBEDDING_CACHE_BACKEND", "s3")

	_, err := loadEmbeddingCacheCfg(logger.NewNopLogger())
	assert.Error(t, err)
}

func TestLoadWorkersCfg(t *testing.T) {
	t.Setenv("FORECAST_WORKERS", "")
	t.Setenv("REFRESH_CRON", "")

	workers, err := loadWorkersCfg()
	require.NoError(t, err)
	assert.Equal(t, 4, workers.ForecastWorkers)
	assert.Equal(t, "0 6 * * 0", workers.RefreshCron)

	t.Setenv("FORECAST_WORKERS", "0")
	_, err = loadWorkersCfg()
	assert.Error(t, err)
}

func TestLoadBackendCfg_RequiresURLs(t *testing.T) {
	t.Setenv("AUDIENCE_API_URL", "http://aud/")
	t.Setenv("LOCATIONS_API_URL", "")
	t.Setenv("PROD_API_URL", "http://prod")

	_, err := loadBackendCfg(logger.NewNopLogger())
	assert.Error(t, err)

	t.Setenv("LOCATIONS_API_URL", "http://loc")
	backend, err := loadBackendCfg(logger.NewNopLogger())
	require.NoError(t, err)
	assert.Equal(t, "http://aud", backend.AudienceURL)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitList(" a:9092, ,b:9092 "))
}

func TestLoadPGDBCfg(t *testing.T) {
	t.Run("disabled without database name", func(t *testing.T) {
		t.Setenv("POSTGRES_DB", "")

		db, err := loadPGDBCfg(logger.NewNopLogger())
		require.NoError(t, err)
		assert.Nil(t, db)
	})

	t.Run("defaults", func(t *testing.T) {
		t.Setenv("POSTGRES_DB", "mediaplan")
		t.Setenv("POSTGRES_USER", "forecast")
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("POSTGRES_HOST", "")
		t.Setenv("POSTGRES_MAX_CONNS", "")
		t.Setenv("MIGRATIONS_PATH", "")

		db, err := loadPGDBCfg(logger.NewNopLogger())
		require.NoError(t, err)
		require.NotNil(t, db)
		assert.Equal(t, "localhost", db.Host)
		assert.Equal(t, 10, db.MaxConns)
		assert.Equal(t, "db/migrations", db.MigrationsPath)
	})

	t.Run("rejects non-positive pool size", func(t *testing.T) {
		t.Setenv("POSTGRES_DB", "mediaplan")
		t.Setenv("POSTGRES_USER", "forecast")
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("POSTGRES_MAX_CONNS", "0")

		_, err := loadPGDBCfg(logger.NewNopLogger())
		assert.ErrorIs(t, err, e.ErrIncorrectEnvVariable)
	})
}
