// Package stream consumes Kafka topics and hands each message value to a handler.
package stream

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/project-queyk/queyk-backend/internal/logging"
)

const (
	defaultHandlerTimeout = 30 * time.Second
	readRetryDelay        = time.Second
)

// Handler processes one message value.
type Handler func(ctx context.Context, value []byte) error

// Reader is the subset of *kafka.Reader used by Consumer.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic. Every message is committed after its handler returns, including when the
// handler fails, so a bad message is never redelivered.
type Consumer struct {
	reader         Reader
	handler        Handler
	name           string
	handlerTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Consumer.
type Option func(*Consumer)

// WithHandlerTimeout bounds each handler call.
func WithHandlerTimeout(d time.Duration) Option { return func(c *Consumer) { c.handlerTimeout = d } }

func WithLogger(l *slog.Logger) Option { return func(c *Consumer) { c.logger = l } }

// NewReader returns a consumer-group reader for topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
}

// NewConsumer returns a Consumer named name (used in logs) that feeds reader's messages to handler.
func NewConsumer(name string, reader Reader, handler Handler, opts ...Option) *Consumer {
	c := &Consumer{reader: reader, handler: handler, name: name, handlerTimeout: defaultHandlerTimeout}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger).With("component", "stream", "consumer", name)
	return c
}

// Run consumes until ctx is done, then closes the reader.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	c.logger.Info("consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopped")
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("kafka read error", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(readRetryDelay):
			}
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) {
	hctx, cancel := context.WithTimeout(ctx, c.handlerTimeout)
	err := c.handler(hctx, msg.Value)
	cancel()
	if err != nil {
		c.logger.Error("message handler failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
	}
	if err := c.reader.CommitMessages(context.WithoutCancel(ctx), msg); err != nil {
		c.logger.Error("commit failed", "offset", msg.Offset, "error", err)
	}
}
