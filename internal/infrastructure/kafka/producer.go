package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jimlawless/whereami"
	"github.com/mediaplan/forecast-service/internal/cfg"
	"github.com/mediaplan/forecast-service/internal/domain"
	"github.com/mediaplan/forecast-service/pkg/e"
	"github.com/mediaplan/forecast-service/pkg/logger"
	"github.com/segmentio/kafka-go"
)

const refreshEventType = "AudienceEmbeddingsRefreshed"

// RefreshEvent сообщает о завершении обновления эмбеддингов аудиторий.
type RefreshEvent struct {
	EventID        string     `json:"event_id"`
	EventType      string     `json:"event_type"`
	EventTimestamp int64      `json:"event_timestamp"`
	TaskID         string     `json:"task_id"`
	Trigger        string     `json:"trigger"`
	Status         string     `json:"status"`
	SegmentCount   int        `json:"segment_count"`
	Error          string     `json:"error,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
}

// Producer публикует события обновления эмбеддингов. События редкие,
// поэтому каждое сообщение уходит отдельным батчем.
type Producer struct {
	writer *kafka.Writer
	dialer *kafka.Dialer
	logger logger.Logger
	cfg    *cfg.KafkaCfg
}

func NewProducer(logger logger.Logger, cfg *cfg.KafkaCfg) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			BatchSize:              1,
			WriteTimeout:           10 * time.Second,
			AllowAutoTopicCreation: false,
		},
		dialer: &kafka.Dialer{Timeout: 10 * time.Second},
		logger: logger,
		cfg:    cfg,
	}
}

// PublishRefreshEvent публикует итог задачи обновления с ключом по id задачи.
func (p *Producer) PublishRefreshEvent(ctx context.Context, task *domain.RefreshTask) error {
	value, err := NewRefreshEventPayload(task, time.Now())
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ID),
		Value: value,
	}); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// EnsureTopic создаёт топик через контроллер кластера, если у топика ещё нет партиций.
func (p *Producer) EnsureTopic(ctx context.Context) error {
	conn, err := p.dialer.DialContext(ctx, p.cfg.NetworkMode, p.cfg.Brokers[0])
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if partitions, err := conn.ReadPartitions(p.cfg.Topic); err == nil && len(partitions) > 0 {
		p.logger.Debugf("kafka topic %s has %d partition(s)", p.cfg.Topic, len(partitions))
		return nil
	}

	controller, err := conn.Controller()
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	ctrlConn, err := p.dialer.DialContext(ctx, p.cfg.NetworkMode, net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}
	defer ctrlConn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = ctrlConn.SetDeadline(deadline)
	}

	if err := ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             p.cfg.Topic,
		NumPartitions:     p.cfg.Partitions,
		ReplicationFactor: p.cfg.ReplicationFactor,
	}); err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return e.Wrap(whereami.WhereAmI(), fmt.Errorf("create topic %s: %w", p.cfg.Topic, err))
	}

	p.logger.Infof("kafka topic %s created", p.cfg.Topic)
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NewRefreshEventPayload сериализует событие обновления в JSON.
func NewRefreshEventPayload(task *domain.RefreshTask, now time.Time) ([]byte, error) {
	event := &RefreshEvent{
		EventID:        uuid.NewString(),
		EventType:      refreshEventType,
		EventTimestamp: now.UnixNano(),
		TaskID:         task.ID,
		Trigger:        string(task.Trigger),
		Status:         string(task.Status),
		SegmentCount:   task.SegmentCount,
		Error:          task.Error,
		StartedAt:      task.StartedAt,
		FinishedAt:     task.FinishedAt,
	}

	return json.Marshal(event)
}
