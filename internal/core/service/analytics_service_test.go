package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rl1809/storefront/internal/core/domain"
)

var testAnalyticsConfig = AnalyticsConfig{
	EventsTTL:    6 * time.Hour,
	AnalyticsTTL: 24 * time.Hour,
	RecentLimit:  20,
	Window:       7 * 24 * time.Hour,
}

func newTestAnalytics(t *testing.T) (*AnalyticsService, *clockCache, *fakeEventLog) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache := newClockCache(start)
	log := newFakeEventLog()

	svc := NewAnalyticsService(cache, log, testAnalyticsConfig, zaptest.NewLogger(t))
	svc.now = func() time.Time {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.now
	}
	return svc, cache, log
}

func appendEvent(t *testing.T, log *fakeEventLog, id string, storeID int64, at time.Time) {
	t.Helper()
	_, err := log.AppendEvent(context.Background(), domain.ConsumptionEvent{EventID: id, UserID: 1, ItemID: 1, StoreID: storeID, Timestamp: at})
	require.NoError(t, err)
}

func TestCachedEvents_ServesWithinTTL(t *testing.T) {
	ctx := context.Background()
	svc, cache, log := newTestAnalytics(t)
	appendEvent(t, log, "e1", 1, svc.now())

	events, err := svc.CachedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 1, log.recentCalls)

	appendEvent(t, log, "e2", 1, svc.now())
	cache.advance(5 * time.Hour)

	events, err = svc.CachedEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1, "stale value served within TTL")
	assert.Equal(t, 1, log.recentCalls)

	cache.advance(2 * time.Hour)

	events, err = svc.CachedEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 2, "recomputed after expiry")
	assert.Equal(t, 2, log.recentCalls)
}

func TestCachedEvents_EmptyLogIsCached(t *testing.T) {
	ctx := context.Background()
	svc, _, log := newTestAnalytics(t)

	events, err := svc.CachedEvents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)

	_, err = svc.CachedEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, log.recentCalls)
}

func TestRefreshCache_ForcesRecompute(t *testing.T) {
	ctx := context.Background()
	svc, _, log := newTestAnalytics(t)

	_, err := svc.CachedEvents(ctx)
	require.NoError(t, err)

	appendEvent(t, log, "e1", 1, svc.now())
	events, err := svc.RefreshCache(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)

	events, err = svc.CachedEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, 2, log.recentCalls)
}

func TestCachedAnalytics_WindowAndTTL(t *testing.T) {
	ctx := context.Background()
	svc, cache, log := newTestAnalytics(t)
	now := svc.now()

	appendEvent(t, log, "old", 1, now.Add(-8*24*time.Hour))
	appendEvent(t, log, "new", 2, now.Add(-time.Hour))

	snapshot, err := svc.CachedAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, now.Add(-7*24*time.Hour), log.lastSince)
	require.Len(t, snapshot.StoreSales, 1)
	assert.Equal(t, int64(2), snapshot.StoreSales[0].StoreID)
	assert.NotNil(t, snapshot.UserPurchases)
	assert.True(t, snapshot.GeneratedAt.Equal(now))

	cache.advance(23 * time.Hour)
	_, err = svc.CachedAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, log.aggregateCalls)

	cache.advance(2 * time.Hour)
	_, err = svc.CachedAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, log.aggregateCalls)
}

func TestCachedAnalytics_RecomputeErrorPropagates(t *testing.T) {
	svc, _, log := newTestAnalytics(t)
	log.err = errors.New("warehouse unavailable")

	_, err := svc.CachedAnalytics(context.Background())
	assert.EqualError(t, err, "warehouse unavailable")
}

func TestCachedEvents_CacheOutageFallsBackToSource(t *testing.T) {
	ctx := context.Background()
	svc, cache, log := newTestAnalytics(t)
	cache.getErr = errors.New("redis down")
	cache.setErr = errors.New("redis down")
	appendEvent(t, log, "e1", 1, svc.now())

	events, err := svc.CachedEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestCachedEvents_UndecodableEntryRecomputes(t *testing.T) {
	ctx := context.Background()
	svc, cache, log := newTestAnalytics(t)
	require.NoError(t, cache.Set(ctx, recentEventsCacheKey, []byte("{corrupt"), time.Hour))

	events, err := svc.CachedEvents(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 1, log.recentCalls)
}
