// Package queue carries answer events over RabbitMQ so ingestion can run
// in background workers.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/abhisek/examprep/internal/logger"
)

// DefaultQueueName is the queue answer events are published to.
const DefaultQueueName = "examprep.answers"

const maxReconnectAttempts = 10

// Connection manages the RabbitMQ connection with automatic reconnection.
type Connection struct {
	url   string
	queue string
	log   *logger.Logger

	mu         sync.RWMutex
	conn       *amqp.Connection
	channel    *amqp.Channel
	closed     bool
	reconnects int
	// ready is closed and replaced on every successful connect.
	ready chan struct{}
}

// NewConnection dials url and declares queue.
func NewConnection(rawURL, queue string, log *logger.Logger) (*Connection, error) {
	if queue == "" {
		queue = DefaultQueueName
	}
	if log == nil {
		log = logger.Nop()
	}
	c := &Connection{
		url:   rawURL,
		queue: queue,
		log:   log,
		ready: make(chan struct{}),
	}
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Queue returns the declared queue name.
func (c *Connection) Queue() string {
	return c.queue
}

func (c *Connection) connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		c.queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}

	c.conn = conn
	c.channel = ch
	close(c.ready)
	c.ready = make(chan struct{})

	go c.handleReconnect(conn)

	c.log.Info("connected to rabbitmq", "url", sanitizeURL(c.url), "queue", c.queue)
	return nil
}

// handleReconnect waits for conn to drop and redials with exponential backoff.
func (c *Connection) handleReconnect(conn *amqp.Connection) {
	err, ok := <-conn.NotifyClose(make(chan *amqp.Error, 1))
	if !ok || err == nil {
		return
	}

	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return
	}

	c.log.Warn("rabbitmq connection closed, reconnecting", "error", err, "reconnects", c.reconnectCount())

	for i := 0; i < maxReconnectAttempts; i++ {
		time.Sleep(backoff(i))

		c.mu.Lock()
		c.reconnects++
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}

		if err := c.connect(); err != nil {
			c.log.Error("rabbitmq reconnect failed", "error", err, "attempt", i+1)
			continue
		}
		c.log.Info("reconnected to rabbitmq", "attempts", i+1)
		return
	}
	c.log.Error("giving up on rabbitmq", "attempts", maxReconnectAttempts)
}

func backoff(attempt int) time.Duration {
	d := time.Duration(1<<attempt) * time.Second
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}

func (c *Connection) reconnectCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reconnects
}

// Channel returns the current channel.
func (c *Connection) Channel() *amqp.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Reconnected returns a channel closed on the next successful reconnect.
func (c *Connection) Reconnected() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// IsConnected reports whether the connection is open.
func (c *Connection) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && !c.conn.IsClosed()
}

// Close shuts the connection down and stops reconnecting.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// PublishJSON publishes data as a persistent JSON message.
func (c *Connection) PublishJSON(ctx context.Context, queue string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.Channel()
	if ch == nil {
		return fmt.Errorf("publish to %s: not connected", queue)
	}
	return ch.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// sanitizeURL hides credentials for logging.
func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		if len(raw) > 20 {
			return raw[:20] + "..."
		}
		return raw
	}
	return u.Redacted()
}
