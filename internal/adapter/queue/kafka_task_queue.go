package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	kafka "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/storefront/internal/core/domain"
)

const taskNameHeader = "task-name"

type messageWriter interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// KafkaTaskQueue publishes consumption events to the topic named after the queue.
type KafkaTaskQueue struct {
	writer    messageWriter
	queueName string
}

func NewKafkaTaskQueue(brokers []string, queueName string, tp trace.TracerProvider) (*KafkaTaskQueue, error) {
	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  queueName,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	writer, err := otelkafka.NewWriter(baseWriter,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(queueName),
				attribute.String("messaging.kafka.client_id", "storefront"),
			},
		),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka writer: %w", err)
	}

	return newKafkaTaskQueue(writer, queueName), nil
}

func newKafkaTaskQueue(writer messageWriter, queueName string) *KafkaTaskQueue {
	return &KafkaTaskQueue{writer: writer, queueName: queueName}
}

func (q *KafkaTaskQueue) Enqueue(ctx context.Context, event domain.ConsumptionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.EventID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: taskNameHeader, Value: []byte(q.queueName + "-" + event.EventID)},
		},
	}

	if err := q.writer.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

func (q *KafkaTaskQueue) Close() error {
	return q.writer.Close()
}
