package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/platform/metrics"
	"github.com/rl1809/storefront/internal/port"
)

const defaultEnqueueTimeout = 5 * time.Second

type pendingEvent struct {
	event  domain.ConsumptionEvent
	parent trace.SpanContext
}

// EventEmitter buffers consumption events and publishes them to the task queue
// from a fixed pool of goroutines. Emit never blocks: when the buffer is full
// or the emitter is closed the event is dropped and logged.
type EventEmitter struct {
	queue          port.TaskQueue
	events         chan pendingEvent
	logger         *zap.Logger
	enqueueTimeout time.Duration

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewEventEmitter(queue port.TaskQueue, bufferSize int, logger *zap.Logger) *EventEmitter {
	return &EventEmitter{
		queue:          queue,
		events:         make(chan pendingEvent, bufferSize),
		logger:         logger,
		enqueueTimeout: defaultEnqueueTimeout,
	}
}

func (e *EventEmitter) Start(workers int) {
	for i := 0; i < workers; i++ {
		e.wg.Add(1)
		go func(id int) {
			defer e.wg.Done()
			e.publishLoop(id)
		}(i)
	}
	e.logger.Info("event emitter started", zap.Int("workers", workers))
}

func (e *EventEmitter) Emit(ctx context.Context, receipt domain.ConsumptionReceipt) {
	event := domain.NewConsumptionEvent(receipt)

	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		e.drop(event, "emitter closed")
		return
	}

	select {
	case e.events <- pendingEvent{event: event, parent: trace.SpanContextFromContext(ctx)}:
	default:
		e.drop(event, "buffer full")
	}
}

// Close stops accepting events and waits until the buffer is drained.
func (e *EventEmitter) Close() {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.events)
	}
	e.mu.Unlock()

	e.wg.Wait()
}

func (e *EventEmitter) publishLoop(id int) {
	for pending := range e.events {
		ctx := trace.ContextWithSpanContext(context.Background(), pending.parent)
		ctx, cancel := context.WithTimeout(ctx, e.enqueueTimeout)

		if err := e.queue.Enqueue(ctx, pending.event); err != nil {
			metrics.EventsEmittedTotal.WithLabelValues("failed").Inc()
			e.logger.Error("failed to enqueue consumption event",
				zap.Int("worker", id),
				zap.String("event_id", pending.event.EventID),
				zap.Int64("item_id", pending.event.ItemID),
				zap.Error(err),
			)
		} else {
			metrics.EventsEmittedTotal.WithLabelValues("enqueued").Inc()
		}

		cancel()
	}
}

func (e *EventEmitter) drop(event domain.ConsumptionEvent, reason string) {
	metrics.EventsEmittedTotal.WithLabelValues("dropped").Inc()
	e.logger.Warn("consumption event dropped",
		zap.String("reason", reason),
		zap.String("event_id", event.EventID),
		zap.Int64("item_id", event.ItemID),
		zap.Int64("user_id", event.UserID),
	)
}
