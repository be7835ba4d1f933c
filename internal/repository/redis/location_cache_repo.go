package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/repository/redis/converter"
	"github.com/mediaplan/forecast-service/pkg/clients"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

// LocationCacheRepo кэширует результаты поиска локаций по точному имени.
type LocationCacheRepo struct {
	client *clients.RedisClient
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewLocationCacheRepo(client *clients.RedisClient, cfg *cfg.RedisCfg, logger logger.Logger) *LocationCacheRepo {
	return &LocationCacheRepo{
		client: client,
		cfg:    cfg,
		logger: logger,
	}
}

// GetLocations возвращает закэшированные локации по фразам, игнорируя промахи и логируя их.
// Ключи результата совпадают с переданными фразами.
func (r *LocationCacheRepo) GetLocations(ctx context.Context, names []string) (map[string]domain.Location, error) {
	if len(names) == 0 {
		return map[string]domain.Location{}, nil
	}

	keys := r.buildLocationCacheKeys(names)

	values, err := r.client.Client.MGet(ctx, keys...).Result()
	if err != nil {
		r.logger.Warnf("Redis MGET failed: %v", e.Wrap(whereami.WhereAmI(), err))
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	result := make(map[string]domain.Location, len(values))
	for i, val := range values {
		data, err := redisValueToBytes(val, keys[i])
		if err != nil {
			r.logger.Warnf("%v", e.Wrap(whereami.WhereAmI(), err))
		}

		if data == nil {
			continue // cache miss
		}

		model, err := r.unmarshalLocationFromCache(data)
		if err != nil {
			r.logger.Warnf("Redis unmarshal failed: %v", e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		if model.Phrase != converter.NormalizePhrase(names[i]) {
			r.logger.Warnf("Cache phrase mismatch: key_phrase: %q, model_phrase: %q", names[i], model.Phrase)
			if err := r.client.Client.Del(context.Background(), keys[i]).Err(); err != nil {
				r.logger.Warnf("Redis del failed: %v", e.Wrap(whereami.WhereAmI(), err))
			}
			continue // cache miss
		}
		result[names[i]] = *converter.ToEntity(model)
	}

	return result, nil
}

// SetLocations кэширует локации одним pipeline с TTL из конфигурации.
// Ошибки сериализации и записи не возвращаются, а логируются.
func (r *LocationCacheRepo) SetLocations(ctx context.Context, locations map[string]domain.Location) error {
	if len(locations) == 0 {
		return nil
	}

	pipeline := r.client.Client.Pipeline()
	for phrase, loc := range locations {
		data, err := json.Marshal(converter.ToRedisModel(phrase, &loc))
		if err != nil {
			r.logger.Warnf("Failed to marshal location for caching (phrase: %q): %v", phrase, e.Wrap(whereami.WhereAmI(), err))
			continue
		}

		pipeline.Set(ctx, r.locationKey(phrase), data, r.cfg.LocationTTL)
	}

	if _, err := pipeline.Exec(ctx); err != nil {
		r.logger.Warnf("Cache pipeline failed: %v", e.Wrap(whereami.WhereAmI(), err))
	}

	return nil
}

func (r *LocationCacheRepo) unmarshalLocationFromCache(data []byte) (*converter.LocationRedisModel, error) {
	var model converter.LocationRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, err
	}

	return &model, nil
}

func (r *LocationCacheRepo) buildLocationCacheKeys(names []string) []string {
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = r.locationKey(name)
	}

	return keys
}

// locationKey возвращает Redis-ключ для одной фразы
func (r *LocationCacheRepo) locationKey(phrase string) string {
	return fmt.Sprintf("location:%s", converter.NormalizePhrase(phrase))
}

// redisValueToBytes конвертирует значение из Redis в []byte.
// Поддерживает string и []byte, возвращает ошибку для неизвестных типов.
func redisValueToBytes(val interface{}, key string) ([]byte, error) {
	switch v := val.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	case nil:
		return nil, nil // cache miss
	default:
		return nil, fmt.Errorf("unexpected Redis value type for key %s: %T", key, val)
	}
}
