package service

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/platform/metrics"
	"github.com/rl1809/storefront/internal/port"
)

// TaskDispatcher delivers a queued event to the task endpoint, retrying
// transient failures with exponential backoff until ctx is done.
type TaskDispatcher struct {
	deliverer       port.TaskDeliverer
	logger          *zap.Logger
	initialInterval time.Duration
	maxInterval     time.Duration
}

func NewTaskDispatcher(deliverer port.TaskDeliverer, logger *zap.Logger) *TaskDispatcher {
	return &TaskDispatcher{
		deliverer:       deliverer,
		logger:          logger,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     time.Minute,
	}
}

func (d *TaskDispatcher) Dispatch(ctx context.Context, event domain.ConsumptionEvent) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = d.initialInterval
	eb.MaxInterval = d.maxInterval
	eb.MaxElapsedTime = 0

	op := func() error {
		err := d.deliverer.Deliver(ctx, event)
		if errors.Is(err, domain.ErrTaskRejected) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		metrics.TasksDeliveredTotal.WithLabelValues("retry").Inc()
		d.logger.Warn("task delivery failed, retrying",
			zap.String("event_id", event.EventID),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(eb, ctx), notify)
	switch {
	case err == nil:
		metrics.TasksDeliveredTotal.WithLabelValues("delivered").Inc()
	case errors.Is(err, domain.ErrTaskRejected):
		metrics.TasksDeliveredTotal.WithLabelValues("rejected").Inc()
	default:
		metrics.TasksDeliveredTotal.WithLabelValues("aborted").Inc()
	}
	return err
}
