package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rl1809/storefront/internal/core/domain"
)

const eventLogSchema = `
CREATE TABLE IF NOT EXISTS item_consumed_events (
	event_id    TEXT PRIMARY KEY,
	user_id     BIGINT NOT NULL,
	item_id     BIGINT NOT NULL,
	store_id    BIGINT NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_item_consumed_events_occurred_at ON item_consumed_events (occurred_at DESC);
`

// PostgresEventLog is the append-only consumption event log and its aggregate queries.
type PostgresEventLog struct {
	pool *pgxpool.Pool
}

func NewPostgresEventLog(pool *pgxpool.Pool) *PostgresEventLog {
	return &PostgresEventLog{pool: pool}
}

func (p *PostgresEventLog) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, eventLogSchema); err != nil {
		return fmt.Errorf("apply event log schema: %w", err)
	}
	return nil
}

func (p *PostgresEventLog) AppendEvent(ctx context.Context, event domain.ConsumptionEvent) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO item_consumed_events (event_id, user_id, item_id, store_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, event.UserID, event.ItemID, event.StoreID, event.Timestamp,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (p *PostgresEventLog) RecentEvents(ctx context.Context, limit int) ([]domain.ConsumptionEvent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT event_id, user_id, item_id, store_id, occurred_at
		FROM item_consumed_events
		ORDER BY occurred_at DESC, event_id
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}

	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.ConsumptionEvent])
	if err != nil {
		return nil, fmt.Errorf("scan recent events: %w", err)
	}
	return events, nil
}

func (p *PostgresEventLog) Aggregate(ctx context.Context, since time.Time) (domain.AnalyticsSnapshot, error) {
	snapshot := domain.AnalyticsSnapshot{WindowStart: since}

	rows, err := p.pool.Query(ctx, `
		SELECT user_id FROM item_consumed_events
		WHERE occurred_at >= $1
		GROUP BY user_id
		ORDER BY MAX(occurred_at) DESC`, since)
	if err != nil {
		return snapshot, fmt.Errorf("query recent users: %w", err)
	}
	if snapshot.RecentUserIDs, err = pgx.CollectRows(rows, pgx.RowTo[int64]); err != nil {
		return snapshot, fmt.Errorf("scan recent users: %w", err)
	}

	rows, err = p.pool.Query(ctx, `
		SELECT store_id, COUNT(*) AS sales FROM item_consumed_events
		WHERE occurred_at >= $1
		GROUP BY store_id
		ORDER BY sales DESC, store_id`, since)
	if err != nil {
		return snapshot, fmt.Errorf("query store sales: %w", err)
	}
	if snapshot.StoreSales, err = pgx.CollectRows(rows, pgx.RowToStructByName[domain.StoreSales]); err != nil {
		return snapshot, fmt.Errorf("scan store sales: %w", err)
	}

	rows, err = p.pool.Query(ctx, `
		SELECT user_id, COUNT(*) AS purchases FROM item_consumed_events
		WHERE occurred_at >= $1
		GROUP BY user_id
		ORDER BY purchases DESC, user_id`, since)
	if err != nil {
		return snapshot, fmt.Errorf("query user purchases: %w", err)
	}
	if snapshot.UserPurchases, err = pgx.CollectRows(rows, pgx.RowToStructByName[domain.UserPurchases]); err != nil {
		return snapshot, fmt.Errorf("scan user purchases: %w", err)
	}

	return snapshot, nil
}
