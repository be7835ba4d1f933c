package domain

import "time"

type RefreshStatus string

const (
	RefreshQueued    RefreshStatus = "queued"
	RefreshRunning   RefreshStatus = "running"
	RefreshCompleted RefreshStatus = "completed"
	RefreshFailed    RefreshStatus = "failed"
)

type RefreshTrigger string

const (
	RefreshTriggerManual    RefreshTrigger = "manual"
	RefreshTriggerScheduled RefreshTrigger = "scheduled"
)

// RefreshTask описывает одну попытку пересчёта эмбеддингов аудиторий.
// Переходы: queued -> running -> completed | failed.
type RefreshTask struct {
	ID           string
	Trigger      RefreshTrigger
	Status       RefreshStatus
	SegmentCount int
	Error        string
	QueuedAt     time.Time
	StartedAt    *time.Time
	FinishedAt   *time.Time
}

func NewRefreshTask(id string, trigger RefreshTrigger, now time.Time) *RefreshTask {
	return &RefreshTask{
		ID:       id,
		Trigger:  trigger,
		Status:   RefreshQueued,
		QueuedAt: now,
	}
}

// Active сообщает, что задача ещё не завершилась.
func (t *RefreshTask) Active() bool {
	return t.Status == RefreshQueued || t.Status == RefreshRunning
}

func (t *RefreshTask) Start(now time.Time) {
	t.Status = RefreshRunning
	t.StartedAt = &now
}

func (t *RefreshTask) Complete(now time.Time, segments int) {
	t.Status = RefreshCompleted
	t.SegmentCount = segments
	t.FinishedAt = &now
}

func (t *RefreshTask) Fail(now time.Time, err error) {
	t.Status = RefreshFailed
	if err != nil {
		t.Error = err.Error()
	}
	t.FinishedAt = &now
}
