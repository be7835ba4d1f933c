package clients

import (
	"context"

	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/pkg/e"
	r "github.com/redis/go-redis/v9"
)

// RedisClient общий для кэша локаций и блокировки пересчёта.
type RedisClient struct {
	Client *r.Client
}

func NewRedisClient(cfg *cfg.RedisCfg) *RedisClient {
	return &RedisClient{
		Client: r.NewClient(&r.Options{
			Addr:                  cfg.Addr,
			Username:              cfg.User,
			Password:              cfg.Password,
			DB:                    cfg.DB,
			MaxRetries:            cfg.MaxRetries,
			DialTimeout:           cfg.DialTimeout,
			ReadTimeout:           cfg.Timeout,
			WriteTimeout:          cfg.Timeout,
			ContextTimeoutEnabled: true,
		}),
	}
}

func (rc *RedisClient) Ping(ctx context.Context) error {
	if err := rc.Client.Ping(ctx).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (rc *RedisClient) Close() error {
	return rc.Client.Close()
}
