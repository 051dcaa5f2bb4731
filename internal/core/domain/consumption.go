package domain

import (
	"time"

	"github.com/google/uuid"
)

// ConsumptionReceipt is produced by a successful purchase of one unit.
type ConsumptionReceipt struct {
	UserID    int64
	ItemID    int64
	StoreID   int64
	Timestamp time.Time
}

type ConsumptionEvent struct {
	EventID   string    `json:"event_id" db:"event_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ItemID    int64     `json:"item_id" db:"item_id"`
	StoreID   int64     `json:"store_id" db:"store_id"`
	Timestamp time.Time `json:"timestamp" db:"occurred_at"`
}

func NewConsumptionEvent(r ConsumptionReceipt) ConsumptionEvent {
	return ConsumptionEvent{
		EventID:   uuid.NewString(),
		UserID:    r.UserID,
		ItemID:    r.ItemID,
		StoreID:   r.StoreID,
		Timestamp: Timestamp(r.Timestamp),
	}
}

type StoreSales struct {
	StoreID int64 `json:"store_id" db:"store_id"`
	Sales   int64 `json:"sales" db:"sales"`
}

type UserPurchases struct {
	UserID    int64 `json:"user_id" db:"user_id"`
	Purchases int64 `json:"purchases" db:"purchases"`
}

// AnalyticsSnapshot aggregates consumption events since WindowStart.
type AnalyticsSnapshot struct {
	RecentUserIDs []int64         `json:"recent_user_ids"`
	StoreSales    []StoreSales    `json:"store_sales"`
	UserPurchases []UserPurchases `json:"user_purchases"`
	WindowStart   time.Time       `json:"window_start"`
	GeneratedAt   time.Time       `json:"generated_at"`
}
