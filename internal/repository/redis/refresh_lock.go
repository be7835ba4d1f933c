package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/pkg/clients"
	"github.com/mediaplan/forecast-service/pkg/e"
	r "github.com/redis/go-redis/v9"
)

const refreshLockKey = "embeddings-refresh"

// releaseScript удаляет ключ, только если значение совпадает с токеном владельца.
var releaseScript = r.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RefreshLock блокирует пересчёт эмбеддингов между экземплярами сервиса.
// Истекает по TTL, если владелец упал, не освободив её.
type RefreshLock struct {
	client *clients.RedisClient
	key    string
	token  string
	ttl    time.Duration
}

func NewRefreshLock(client *clients.RedisClient, ttl time.Duration) *RefreshLock {
	return &RefreshLock{
		client: client,
		key:    fmt.Sprintf("lock:%s", refreshLockKey),
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire пытается взять блокировку без ожидания.
func (l *RefreshLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.Client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return ok, nil
}

// Release снимает блокировку, если она всё ещё принадлежит этому экземпляру.
func (l *RefreshLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client.Client, []string{l.key}, l.token).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}
