package domain

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

type ItemQuery struct {
	StoreID  int64 // zero lists every store
	PageSize int
	Cursor   string
	Reverse  bool
}

// Normalize clamps the page size into [1, MaxPageSize].
func (q ItemQuery) Normalize() ItemQuery {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}
	return q
}

type ItemPage struct {
	Items      []Item
	NextCursor string
	HasMore    bool
}

// Cursor is the position of the last returned row in (created_at, id) order.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        int64     `json:"i"`
}

func CursorAfter(item Item) Cursor {
	return Cursor{CreatedAt: item.CreatedAt, ID: item.ID}
}

func (c Cursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func DecodeCursor(s string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.ID == 0 {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}
