package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
)

// RefreshUseCase пересчитывает эмбеддинги каталога. Одновременно выполняется не больше одного пересчёта:
// в процессе это гарантирует mu, между процессами RefreshLock, если он настроен.
type RefreshUseCase struct {
	catalog   AudienceCatalog
	index     *SegmentIndex
	mediaPlan *domain.MediaPlanCatalog
	taskRepo  RefreshTaskRepository
	lock      RefreshLock
	publisher EventPublisher
	now       func() time.Time
	logger    logger.Logger

	mu     sync.Mutex
	active string
	wg     sync.WaitGroup
}

// NewRefreshUC создаёт use case. lock и publisher могут быть nil.
func NewRefreshUC(
	catalog AudienceCatalog,
	index *SegmentIndex,
	mediaPlan *domain.MediaPlanCatalog,
	taskRepo RefreshTaskRepository,
	lock RefreshLock,
	publisher EventPublisher,
	logger logger.Logger,
) *RefreshUseCase {
	return &RefreshUseCase{
		catalog:   catalog,
		index:     index,
		mediaPlan: mediaPlan,
		taskRepo:  taskRepo,
		lock:      lock,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
}

// TriggerRefresh ставит пересчёт в очередь и запускает его в фоне.
// Если пересчёт уже идёт, возвращает статус TriggerAlreadyRunning без ошибки.
func (r *RefreshUseCase) TriggerRefresh(ctx context.Context) (*TriggerRefreshRes, error) {
	const op = "RefreshUseCase.TriggerRefresh"

	task, activeID, err := r.begin(ctx, domain.RefreshTriggerManual)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if task == nil {
		return NewTriggerRefreshRes(TriggerAlreadyRunning, activeID, "A refresh task is already running. Try again later."), nil
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_ = r.run(context.Background(), task)
	}()

	return NewTriggerRefreshRes(TriggerStarted, task.ID, "Audience embedding refresh started in background"), nil
}

// RunScheduled выполняет пересчёт синхронно. Занятость не считается ошибкой.
func (r *RefreshUseCase) RunScheduled(ctx context.Context) error {
	const op = "RefreshUseCase.RunScheduled"

	task, activeID, err := r.begin(ctx, domain.RefreshTriggerScheduled)
	if err != nil {
		return e.Wrap(op, err)
	}
	if task == nil {
		r.logger.Infof("Scheduled refresh skipped, refresh %s is already running", activeID)
		return nil
	}

	r.wg.Add(1)
	defer r.wg.Done()

	if err := r.run(ctx, task); err != nil {
		return e.Wrap(op, err)
	}

	return nil
}

func (r *RefreshUseCase) GetStatus(ctx context.Context, id string) (*domain.RefreshTask, error) {
	const op = "RefreshUseCase.GetStatus"

	task, err := r.taskRepo.Get(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return task, nil
}

// Wait ждёт завершения фоновых пересчётов или отмены ctx.
func (r *RefreshUseCase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// begin регистрирует новую задачу или возвращает id уже активной.
func (r *RefreshUseCase) begin(ctx context.Context, trigger domain.RefreshTrigger) (*domain.RefreshTask, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active != "" {
		return nil, r.active, nil
	}

	if r.lock != nil {
		acquired, err := r.lock.Acquire(ctx)
		switch {
		case err != nil:
			r.logger.Warnf("Refresh lock unavailable, relying on in-process guard: %v", err)
		case !acquired:
			return nil, "", nil
		}
	}

	task := domain.NewRefreshTask(uuid.NewString(), trigger, r.now())
	if err := r.taskRepo.Create(ctx, task); err != nil {
		r.releaseLock()
		return nil, "", err
	}

	r.active = task.ID
	return task, "", nil
}

// run проводит задачу через running в completed или failed и освобождает блокировки.
func (r *RefreshUseCase) run(ctx context.Context, task *domain.RefreshTask) error {
	const op = "RefreshUseCase.run"

	defer func() {
		r.mu.Lock()
		r.active = ""
		r.mu.Unlock()
		r.releaseLock()
	}()

	task.Start(r.now())
	r.saveTask(ctx, task)
	r.logger.Infof("Embedding refresh %s started (%s)", task.ID, task.Trigger)

	count, err := r.refresh(ctx)
	if err != nil {
		task.Fail(r.now(), err)
		r.logger.Errorf(err, "Embedding refresh %s failed", task.ID)
	} else {
		task.Complete(r.now(), count)
		r.logger.Infof("Embedding refresh %s completed with %d segments", task.ID, count)
	}
	r.saveTask(ctx, task)

	if r.publisher != nil {
		if perr := r.publisher.PublishRefreshEvent(ctx, task); perr != nil {
			r.logger.Warnf("Failed to publish refresh event: %v", e.Wrap(op, perr))
		}
	}

	return err
}

func (r *RefreshUseCase) refresh(ctx context.Context) (int, error) {
	entries, err := r.catalog.FetchActiveAudiences(ctx)
	if err != nil {
		return 0, errors.Join(e.ErrCatalogUnavailable, err)
	}

	segments := FilterCatalog(entries, r.mediaPlan)
	computed, err := r.index.Recompute(ctx, segments)
	if err != nil {
		return 0, err
	}

	return len(computed), nil
}

func (r *RefreshUseCase) saveTask(ctx context.Context, task *domain.RefreshTask) {
	const op = "RefreshUseCase.saveTask"

	if err := r.taskRepo.Update(ctx, task); err != nil {
		r.logger.Warnf("Failed to update refresh task %s: %v", task.ID, e.Wrap(op, err))
	}
}

func (r *RefreshUseCase) releaseLock() {
	const op = "RefreshUseCase.releaseLock"

	if r.lock == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := r.lock.Release(ctx); err != nil {
		r.logger.Warnf("Failed to release refresh lock: %v", e.Wrap(op, err))
	}
}
