package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type TaskQueue interface {
	// Enqueue durably publishes the event for asynchronous logging
	Enqueue(ctx context.Context, event domain.ConsumptionEvent) error
	Close() error
}

type TaskDeliverer interface {
	// Deliver hands the event to the task endpoint. Errors wrapping
	// domain.ErrTaskRejected must not be retried.
	Deliver(ctx context.Context, event domain.ConsumptionEvent) error
}

type EventEmitter interface {
	// Emit schedules the receipt for logging without blocking the caller
	Emit(ctx context.Context, receipt domain.ConsumptionReceipt)
}
