package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abhisek/examprep/internal/logger"
	"github.com/abhisek/examprep/internal/model"
)

// Handler processes one answer event.
type Handler func(ctx context.Context, ev *model.AnswerEvent) error

// ConsumerConfig holds consumer configuration.
type ConsumerConfig struct {
	Workers  int
	Prefetch int
	// Timeout bounds a single handler call.
	Timeout time.Duration
	// IsPermanent reports errors that retrying cannot fix. Such messages are
	// rejected without requeue.
	IsPermanent func(error) bool
}

// DefaultConsumerConfig returns sensible defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Workers:  4,
		Prefetch: 8,
		Timeout:  30 * time.Second,
	}
}

func (cfg ConsumerConfig) withDefaults() ConsumerConfig {
	def := DefaultConsumerConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = def.Prefetch
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.IsPermanent == nil {
		cfg.IsPermanent = func(error) bool { return false }
	}
	return cfg
}

// acknowledger is the settlement side of amqp.Delivery.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Reject(requeue bool) error
}

// Consumer feeds queued answer events to a Handler with manual acks.
type Consumer struct {
	conn    *Connection
	handler Handler
	cfg     ConsumerConfig
	log     *logger.Logger

	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewConsumer creates a consumer on conn's queue.
func NewConsumer(conn *Connection, handler Handler, cfg ConsumerConfig) *Consumer {
	c := &Consumer{
		conn:    conn,
		handler: handler,
		cfg:     cfg.withDefaults(),
		log:     logger.Nop(),
	}
	if conn != nil {
		c.log = conn.log
	}
	return c
}

// Start subscribes and launches the workers. It returns once the first
// subscription is in place; later reconnects resubscribe in the background.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, c.cancelFunc = context.WithCancel(ctx)

	msgs, err := c.subscribe()
	if err != nil {
		c.cancelFunc()
		return err
	}

	c.log.Info("starting answer consumer", "workers", c.cfg.Workers, "prefetch", c.cfg.Prefetch, "queue", c.conn.Queue())

	c.wg.Add(1)
	go c.run(ctx, msgs)
	return nil
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, fmt.Errorf("subscribe: not connected")
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	msgs, err := ch.Consume(
		c.conn.Queue(),
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("start consuming: %w", err)
	}
	return msgs, nil
}

// run serves one subscription at a time, resubscribing after reconnects.
func (c *Consumer) run(ctx context.Context, msgs <-chan amqp.Delivery) {
	defer c.wg.Done()

	for {
		var workers sync.WaitGroup
		for i := 0; i < c.cfg.Workers; i++ {
			workers.Add(1)
			go func(id int) {
				defer workers.Done()
				c.worker(ctx, id, msgs)
			}(i)
		}
		workers.Wait()

		if ctx.Err() != nil {
			return
		}

		ready := c.conn.Reconnected()
		if !c.conn.IsConnected() {
			c.log.Warn("delivery channel closed, waiting for reconnect")
			select {
			case <-ctx.Done():
				return
			case <-ready:
			}
		}

		next, err := c.subscribe()
		if err != nil {
			c.log.Error("resubscribe failed", "error", err)
			return
		}
		msgs = next
	}
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			c.processMessage(ctx, id, msg.Body, msg.Redelivered, msg)
		}
	}
}

// processMessage decodes body, runs the handler and settles the delivery.
// Malformed payloads and permanent failures are rejected outright. Other
// failures are requeued once and then rejected.
func (c *Consumer) processMessage(ctx context.Context, workerID int, body []byte, redelivered bool, d acknowledger) {
	start := time.Now()

	var ev model.AnswerEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.log.Error("malformed answer message", "worker_id", workerID, "error", err)
		c.settle(d.Reject(false), workerID, "")
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	err := c.handler(jobCtx, &ev)
	switch {
	case err == nil:
		c.log.Debug("answer processed", "worker_id", workerID, "event_id", ev.ID, "duration", time.Since(start))
		c.settle(d.Ack(false), workerID, ev.ID)
	case c.cfg.IsPermanent(err):
		c.log.Error("answer rejected", "worker_id", workerID, "event_id", ev.ID, "error", err)
		c.settle(d.Reject(false), workerID, ev.ID)
	case redelivered:
		c.log.Error("answer failed after redelivery, dropping", "worker_id", workerID, "event_id", ev.ID, "error", err)
		c.settle(d.Reject(false), workerID, ev.ID)
	default:
		c.log.Warn("answer failed, requeueing", "worker_id", workerID, "event_id", ev.ID, "error", err)
		c.settle(d.Nack(false, true), workerID, ev.ID)
	}
}

func (c *Consumer) settle(err error, workerID int, eventID string) {
	if err != nil {
		c.log.Error("failed to settle message", "worker_id", workerID, "event_id", eventID, "error", err)
	}
}

// Stop cancels the workers and waits for in-flight messages to settle.
func (c *Consumer) Stop() {
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.wg.Wait()
	c.log.Info("consumer stopped")
}
