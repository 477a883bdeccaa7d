package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abhisek/examprep/internal/logger"
	"github.com/abhisek/examprep/internal/model"
)

// jsonPublisher is the part of Connection the producer needs.
type jsonPublisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// Producer publishes answer events.
type Producer struct {
	pub   jsonPublisher
	queue string
	log   *logger.Logger
	now   func() time.Time
}

// NewProducer creates a producer on conn's queue.
func NewProducer(conn *Connection) *Producer {
	return &Producer{pub: conn, queue: conn.Queue(), log: conn.log, now: time.Now}
}

// PublishAnswer enqueues ev, assigning an ID and timestamp when missing so
// redelivery stays idempotent downstream.
func (p *Producer) PublishAnswer(ctx context.Context, ev *model.AnswerEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.AnsweredAt.IsZero() {
		ev.AnsweredAt = p.now()
	}

	if err := p.pub.PublishJSON(ctx, p.queue, ev); err != nil {
		return fmt.Errorf("publish answer: %w", err)
	}

	p.log.Info("published answer",
		"event_id", ev.ID,
		"user_id", ev.UserID,
		"question_id", ev.QuestionID,
	)
	return nil
}
