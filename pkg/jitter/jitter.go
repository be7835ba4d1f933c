// Package jitter считает задержки повторных попыток со случайной добавкой,
// чтобы клиенты не повторяли запросы к внешним сервисам одновременно.
package jitter

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DefaultJitter — случайная добавка до 50% от задержки.
const DefaultJitter = 0.5

var (
	globalRand = rand.New(rand.NewSource(time.Now().UnixNano()))
	randMutex  sync.Mutex
)

// Duration возвращает d плюс случайную добавку в диапазоне [0, d*jitterFactor).
func Duration(d time.Duration, jitterFactor float64) time.Duration {
	randMutex.Lock()
	extra := globalRand.Float64() * jitterFactor * float64(d)
	randMutex.Unlock()
	return d + time.Duration(extra)
}

// ExponentialBackoff удваивает base на каждой попытке (с нуля), не превышая max, и добавляет джиттер.
func ExponentialBackoff(base, max time.Duration, attempt int, jitterFactor float64) time.Duration {
	backoff := base
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff >= max {
			backoff = max
			break
		}
	}
	return Duration(backoff, jitterFactor)
}

// Backoff задаёт экспоненциальную задержку между повторами запросов.
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
}

func NewBackoff(base, max time.Duration) Backoff {
	return Backoff{Base: base, Max: max, Factor: DefaultJitter}
}

// Delay возвращает задержку перед повтором номер attempt.
func (b Backoff) Delay(attempt int) time.Duration {
	return ExponentialBackoff(b.Base, b.Max, attempt, b.Factor)
}

// Wait ждёт задержку перед повтором attempt. Возвращает ошибку ctx, если он отменён раньше.
func (b Backoff) Wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(b.Delay(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
