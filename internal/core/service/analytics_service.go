package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/platform/metrics"
	"github.com/rl1809/storefront/internal/port"
)

const (
	recentEventsCacheKey = "items_consumed"
	analyticsCacheKey    = "items_consumed_analytics"
)

type AnalyticsConfig struct {
	EventsTTL    time.Duration
	AnalyticsTTL time.Duration
	RecentLimit  int
	Window       time.Duration
}

// AnalyticsService serves recent events and aggregates through a read-through
// TTL cache. Concurrent misses each recompute and the last write wins.
type AnalyticsService struct {
	cache  port.CacheRepository
	events port.EventLog
	cfg    AnalyticsConfig
	tracer trace.Tracer
	logger *zap.Logger
	now    func() time.Time
}

func NewAnalyticsService(cache port.CacheRepository, events port.EventLog, cfg AnalyticsConfig, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		cache:  cache,
		events: events,
		cfg:    cfg,
		tracer: otel.Tracer("storefront/analytics"),
		logger: logger,
		now:    time.Now,
	}
}

func (s *AnalyticsService) CachedEvents(ctx context.Context) ([]domain.ConsumptionEvent, error) {
	return readThrough(ctx, s, recentEventsCacheKey, s.cfg.EventsTTL, s.loadRecentEvents)
}

func (s *AnalyticsService) CachedAnalytics(ctx context.Context) (domain.AnalyticsSnapshot, error) {
	return readThrough(ctx, s, analyticsCacheKey, s.cfg.AnalyticsTTL, s.loadAnalytics)
}

func (s *AnalyticsService) RefreshCache(ctx context.Context) ([]domain.ConsumptionEvent, error) {
	return refresh(ctx, s, recentEventsCacheKey, s.cfg.EventsTTL, s.loadRecentEvents)
}

func (s *AnalyticsService) RefreshAnalytics(ctx context.Context) (domain.AnalyticsSnapshot, error) {
	return refresh(ctx, s, analyticsCacheKey, s.cfg.AnalyticsTTL, s.loadAnalytics)
}

func (s *AnalyticsService) loadRecentEvents(ctx context.Context) ([]domain.ConsumptionEvent, error) {
	events, err := s.events.RecentEvents(ctx, s.cfg.RecentLimit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []domain.ConsumptionEvent{}
	}
	return events, nil
}

func (s *AnalyticsService) loadAnalytics(ctx context.Context) (domain.AnalyticsSnapshot, error) {
	now := s.now().UTC()
	snapshot, err := s.events.Aggregate(ctx, now.Add(-s.cfg.Window))
	if err != nil {
		return domain.AnalyticsSnapshot{}, err
	}

	snapshot.GeneratedAt = now
	if snapshot.RecentUserIDs == nil {
		snapshot.RecentUserIDs = []int64{}
	}
	if snapshot.StoreSales == nil {
		snapshot.StoreSales = []domain.StoreSales{}
	}
	if snapshot.UserPurchases == nil {
		snapshot.UserPurchases = []domain.UserPurchases{}
	}
	return snapshot, nil
}

func readThrough[T any](ctx context.Context, s *AnalyticsService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	ctx, span := s.tracer.Start(ctx, "cache_read "+key)
	defer span.End()

	raw, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		var value T
		jsonErr := json.Unmarshal(raw, &value)
		if jsonErr == nil {
			metrics.CacheLookupsTotal.WithLabelValues(key, "hit").Inc()
			return value, nil
		}
		s.logger.Warn("discarding undecodable cache entry", zap.String("key", key), zap.Error(jsonErr))
	case !errors.Is(err, port.ErrCacheMiss):
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	metrics.CacheLookupsTotal.WithLabelValues(key, "miss").Inc()
	return refresh(ctx, s, key, ttl, load)
}

// refresh recomputes the value and overwrites the cache. Load errors are
// returned; cache write errors are only logged.
func refresh[T any](ctx context.Context, s *AnalyticsService, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Error("failed to encode cache entry", zap.String("key", key), zap.Error(err))
		return value, nil
	}

	if err := s.cache.Set(ctx, key, raw, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return value, nil
}
