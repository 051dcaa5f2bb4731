package port

import (
	"context"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

type EventLog interface {
	// AppendEvent stores the event, returning false when its id was already recorded
	AppendEvent(ctx context.Context, event domain.ConsumptionEvent) (bool, error)

	// RecentEvents returns the newest events first
	RecentEvents(ctx context.Context, limit int) ([]domain.ConsumptionEvent, error)

	// Aggregate computes sales and purchase counts for events at or after since
	Aggregate(ctx context.Context, since time.Time) (domain.AnalyticsSnapshot, error)
}
