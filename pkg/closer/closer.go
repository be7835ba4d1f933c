// Package closer закрывает ресурсы приложения в обратном порядке регистрации.
package closer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

const defaultForcedTimeout = 2 * time.Second

// Func — функция закрытия ресурса.
type Func func(ctx context.Context) error

type resource struct {
	name  string
	close Func
}

// Closer хранит именованные функции закрытия и вызывает их один раз (LIFO).
type Closer struct {
	mu            sync.Mutex
	resources     []resource
	once          sync.Once
	err           error
	forcedTimeout time.Duration
}

// NewCloser создаёт Closer. forcedTimeout ограничивает закрытие ресурсов,
// до которых не дошла очередь, когда истёк контекст Close. Ноль означает 2 секунды.
func NewCloser(forcedTimeout time.Duration) *Closer {
	if forcedTimeout <= 0 {
		forcedTimeout = defaultForcedTimeout
	}

	return &Closer{forcedTimeout: forcedTimeout}
}

// Add регистрирует функцию закрытия ресурса name.
func (c *Closer) Add(name string, f Func) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resources = append(c.resources, resource{name: name, close: f})
}

// AddFunc регистрирует закрытие, которому не нужен контекст.
func (c *Closer) AddFunc(name string, f func() error) {
	c.Add(name, func(context.Context) error { return f() })
}

// Close закрывает ресурсы по одному в обратном порядке. Если ctx истекает раньше,
// оставшиеся ресурсы закрываются параллельно с собственным таймаутом.
// Повторные вызовы возвращают результат первого.
func (c *Closer) Close(ctx context.Context) error {
	c.once.Do(func() {
		c.mu.Lock()
		resources := make([]resource, len(c.resources))
		copy(resources, c.resources)
		c.mu.Unlock()

		remaining, errs := closeInOrder(ctx, resources)
		if len(remaining) > 0 {
			errs = append(errs, fmt.Errorf("shutdown interrupted, %d of %d resource(s) closed forcibly", len(remaining), len(resources)))
			errs = append(errs, c.forceClose(remaining)...)
		}

		c.err = errors.Join(errs...)
	})

	return c.err
}

// closeInOrder возвращает ресурсы, до которых не дошла очередь из-за отмены ctx.
func closeInOrder(ctx context.Context, resources []resource) ([]resource, []error) {
	var errs []error
	for i := len(resources) - 1; i >= 0; i-- {
		res := resources[i]
		done := make(chan error, 1)
		go func() {
			done <- res.close(ctx)
		}()

		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", res.name, err))
			}
		case <-ctx.Done():
			return resources[:i+1], errs
		}
	}

	return nil, errs
}

func (c *Closer) forceClose(resources []resource) []error {
	ctx, cancel := context.WithTimeout(context.Background(), c.forcedTimeout)
	defer cancel()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, res := range resources {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := res.close(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("force close %s: %w", res.name, err))
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errs
}
