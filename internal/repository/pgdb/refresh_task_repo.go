package pgdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/internal/repository/pgdb/converter"
	"github.com/mediaplan/forecast-service/pkg/e"
)

// RefreshTaskRepo хранит задачи пересчёта эмбеддингов в PostgreSQL.
type RefreshTaskRepo struct {
	pool *pgxpool.Pool
}

func NewRefreshTaskRepo(pool *pgxpool.Pool) *RefreshTaskRepo {
	return &RefreshTaskRepo{pool: pool}
}

func (r *RefreshTaskRepo) Create(ctx context.Context, task *domain.RefreshTask) error {
	model := converter.RefreshTaskToModel(task)
	query := `
		INSERT INTO refresh_tasks (
			id,
			trigger,
			status,
			segment_count,
			error,
			queued_at,
			started_at,
			finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`

	if _, err := r.pool.Exec(ctx, query,
		model.ID,
		model.Trigger,
		model.Status,
		model.SegmentCount,
		model.Error,
		model.QueuedAt,
		model.StartedAt,
		model.FinishedAt,
	); err != nil {
		if postgresDuplicate(err) {
			return fmt.Errorf("%s: refresh task with id %s already exists", whereami.WhereAmI(), task.ID)
		}

		return fmt.Errorf("%s: failed to insert refresh task: %w", whereami.WhereAmI(), err)
	}

	return nil
}

func (r *RefreshTaskRepo) Update(ctx context.Context, task *domain.RefreshTask) error {
	model := converter.RefreshTaskToModel(task)
	query := `
		UPDATE refresh_tasks
		SET status = $2,
			segment_count = $3,
			error = $4,
			started_at = $5,
			finished_at = $6
		WHERE id = $1;
	`

	tag, err := r.pool.Exec(ctx, query,
		model.ID,
		model.Status,
		model.SegmentCount,
		model.Error,
		model.StartedAt,
		model.FinishedAt,
	)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	if tag.RowsAffected() == 0 {
		return e.Wrap(task.ID, e.ErrTaskNotFound)
	}

	return nil
}

func (r *RefreshTaskRepo) Get(ctx context.Context, id string) (*domain.RefreshTask, error) {
	query := `
		SELECT id, trigger, status, segment_count, error, queued_at, started_at, finished_at
		FROM refresh_tasks
		WHERE id::text = $1;
	`

	var model converter.RefreshTaskModel
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&model.ID,
		&model.Trigger,
		&model.Status,
		&model.SegmentCount,
		&model.Error,
		&model.QueuedAt,
		&model.StartedAt,
		&model.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, e.Wrap(id, e.ErrTaskNotFound)
	}
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return converter.RefreshTaskToEntity(&model), nil
}
