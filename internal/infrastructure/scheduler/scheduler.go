package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mediaplan/forecast-service/internal/usecase"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
	"github.com/robfig/cron/v3"
)

const (
	RefreshJobID   = "refresh_audience_embeddings"
	RefreshJobName = "Refresh Audience Embeddings Weekly"
)

type job struct {
	id      string
	name    string
	spec    string
	entryID cron.EntryID
}

// Scheduler запускает периодические задачи по cron-выражениям.
type Scheduler struct {
	cron   *cron.Cron
	logger logger.Logger

	mu      sync.RWMutex
	jobs    []job
	running bool

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(log logger.Logger) *Scheduler {
	cronLog := &cronLogger{log: log}
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		logger: log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob регистрирует задачу. fn получает контекст, отменяемый при Stop.
func (s *Scheduler) AddJob(id, name, spec string, fn func(ctx context.Context) error) error {
	const op = "Scheduler.AddJob"

	entryID, err := s.cron.AddFunc(spec, func() {
		start := time.Now()
		s.logger.Infof("Running scheduled job %s", id)
		if err := fn(s.ctx); err != nil {
			s.logger.Errorf(err, "Scheduled job %s failed", id)
			return
		}
		s.logger.Infof("Scheduled job %s finished in %v", id, time.Since(start))
	})
	if err != nil {
		return e.Wrap(op, fmt.Errorf("invalid cron spec %q: %w", spec, err))
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job{id: id, name: name, spec: spec, entryID: entryID})
	s.mu.Unlock()

	return nil
}

// AddRefreshJob регистрирует еженедельный пересчёт эмбеддингов.
func (s *Scheduler) AddRefreshJob(spec string, refresh usecase.RefreshUC) error {
	return s.AddJob(RefreshJobID, RefreshJobName, spec, refresh.RunScheduled)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.logger.Infof("Scheduler started with %d job(s)", len(s.jobs))
}

// Stop отменяет контекст задач и ждёт их завершения не дольше, чем живёт ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.cancel()
	done := s.cron.Stop()

	select {
	case <-done.Done():
		s.logger.Infof("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return e.Wrap("Scheduler.Stop", ctx.Err())
	}
}

func (s *Scheduler) Status() *usecase.SchedulerStatusRes {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := &usecase.SchedulerStatusRes{
		Running: s.running,
		Jobs:    make([]usecase.ScheduledJob, 0, len(s.jobs)),
	}

	for _, j := range s.jobs {
		item := usecase.ScheduledJob{
			ID:      j.id,
			Name:    j.name,
			Trigger: fmt.Sprintf("cron[%s]", j.spec),
		}
		if s.running {
			if next := s.cron.Entry(j.entryID).Next; !next.IsZero() {
				item.NextRunTime = &next
			}
		}
		res.Jobs = append(res.Jobs, item)
	}

	return res
}

// cronLogger адаптирует logger.Logger к интерфейсу cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (c *cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (c *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Errorf(err, "cron: %s %v", msg, keysAndValues)
}
