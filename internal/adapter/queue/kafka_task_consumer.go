package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	kafka "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
)

// TaskHandler processes one queued event. A nil error or an error wrapping
// domain.ErrTaskRejected acknowledges the message.
type TaskHandler func(ctx context.Context, event domain.ConsumptionEvent) error

type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTaskConsumer reads tasks as part of a consumer group. Offsets are
// committed only after the handler finishes, so a crash redelivers the task.
type KafkaTaskConsumer struct {
	reader       messageFetcher
	logger       *zap.Logger
	fetchBackoff backoff.BackOff
}

func NewKafkaTaskConsumer(brokers []string, queueName, groupID string, logger *zap.Logger) *KafkaTaskConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    queueName,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return newKafkaTaskConsumer(reader, logger)
}

func newKafkaTaskConsumer(reader messageFetcher, logger *zap.Logger) *KafkaTaskConsumer {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 100 * time.Millisecond
	eb.MaxInterval = 5 * time.Second
	eb.MaxElapsedTime = 0
	eb.Reset()

	return &KafkaTaskConsumer{reader: reader, logger: logger, fetchBackoff: eb}
}

// Run blocks until ctx is cancelled or the reader is closed.
func (c *KafkaTaskConsumer) Run(ctx context.Context, handle TaskHandler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			wait := c.fetchBackoff.NextBackOff()
			c.logger.Error("failed to fetch task", zap.Error(err), zap.Duration("retry_in", wait))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			continue
		}
		c.fetchBackoff.Reset()

		msgCtx := extractTraceContext(ctx, msg.Headers)

		var event domain.ConsumptionEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("dropping malformed task",
				zap.Error(err),
				zap.ByteString("key", msg.Key),
				zap.Int64("offset", msg.Offset),
			)
		} else if err := handle(msgCtx, event); err != nil {
			if !errors.Is(err, domain.ErrTaskRejected) {
				// Stop without committing; the group redelivers the task after a restart or rebalance.
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("handle task %s: %w", event.EventID, err)
			}
			c.logger.Warn("task rejected by endpoint", zap.Error(err), zap.String("event_id", event.EventID))
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit task", zap.Error(err), zap.Int64("offset", msg.Offset))
		}
	}
}

func (c *KafkaTaskConsumer) Close() error {
	return c.reader.Close()
}

func extractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[header.Key] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
