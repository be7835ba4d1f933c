package memory

import (
	"context"
	"sync"

	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// RefreshTaskRepo хранит задачи пересчёта в памяти процесса. Используется, когда PostgreSQL не настроен.
type RefreshTaskRepo struct {
	mu    sync.RWMutex
	tasks map[string]domain.RefreshTask
}

func NewRefreshTaskRepo() *RefreshTaskRepo {
	return &RefreshTaskRepo{tasks: make(map[string]domain.RefreshTask)}
}

func (r *RefreshTaskRepo) Create(ctx context.Context, task *domain.RefreshTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[task.ID] = *task
	return nil
}

func (r *RefreshTaskRepo) Update(ctx context.Context, task *domain.RefreshTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[task.ID]; !ok {
		return e.Wrap(task.ID, e.ErrTaskNotFound)
	}
	r.tasks[task.ID] = *task
	return nil
}

// Get возвращает копию задачи, изменения которой не влияют на хранилище.
func (r *RefreshTaskRepo) Get(ctx context.Context, id string) (*domain.RefreshTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, e.Wrap(id, e.ErrTaskNotFound)
	}
	return &task, nil
}
