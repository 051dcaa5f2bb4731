package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// EventLogService records delivered consumption events.
type EventLogService struct {
	log    port.EventLog
	logger *zap.Logger
	now    func() time.Time
}

func NewEventLogService(log port.EventLog, logger *zap.Logger) *EventLogService {
	return &EventLogService{log: log, logger: logger, now: time.Now}
}

// Record appends the event. Redelivered events with a known id are accepted
// without writing a second row.
func (s *EventLogService) Record(ctx context.Context, event domain.ConsumptionEvent) error {
	if event.UserID == 0 || event.ItemID == 0 || event.StoreID == 0 {
		return domain.NewValidationError("Missing required fields")
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	event.Timestamp = domain.Timestamp(event.Timestamp)

	inserted, err := s.log.AppendEvent(ctx, event)
	if err != nil {
		return err
	}

	if !inserted {
		s.logger.Info("duplicate consumption event ignored", zap.String("event_id", event.EventID))
		return nil
	}

	s.logger.Info("consumption event recorded",
		zap.String("event_id", event.EventID),
		zap.Int64("item_id", event.ItemID),
		zap.Int64("store_id", event.StoreID),
	)
	return nil
}
