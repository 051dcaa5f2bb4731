package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/platform/metrics"
	"github.com/rl1809/storefront/internal/port"
)

// ConsumptionService sells single units of stock and hands each sale to the emitter.
type ConsumptionService struct {
	repo    port.InventoryRepository
	emitter port.EventEmitter
	tracer  trace.Tracer
	logger  *zap.Logger
	now     func() time.Time
}

func NewConsumptionService(repo port.InventoryRepository, emitter port.EventEmitter, logger *zap.Logger) *ConsumptionService {
	return &ConsumptionService{
		repo:    repo,
		emitter: emitter,
		tracer:  otel.Tracer("storefront/consumption"),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *ConsumptionService) Consume(ctx context.Context, itemID, userID int64) (domain.Item, domain.ConsumptionReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "consume_item", trace.WithAttributes(
		attribute.Int64("item.id", itemID),
		attribute.Int64("user.id", userID),
	))
	defer span.End()

	item, err := s.repo.ConsumeItem(ctx, itemID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrItemSoldOut):
			metrics.ItemsConsumedTotal.WithLabelValues("sold_out").Inc()
		case errors.Is(err, domain.ErrItemNotFound):
			metrics.ItemsConsumedTotal.WithLabelValues("not_found").Inc()
		default:
			metrics.ItemsConsumedTotal.WithLabelValues("error").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, "consume failed")
		}
		return domain.Item{}, domain.ConsumptionReceipt{}, err
	}
	metrics.ItemsConsumedTotal.WithLabelValues("success").Inc()

	receipt := domain.ConsumptionReceipt{
		UserID:    userID,
		ItemID:    item.ID,
		StoreID:   item.StoreID,
		Timestamp: s.now(),
	}
	s.emitter.Emit(ctx, receipt)

	s.logger.Info("item consumed",
		zap.Int64("item_id", item.ID),
		zap.Int64("user_id", userID),
		zap.Int("remaining", item.Quantity),
	)
	return item, receipt, nil
}
