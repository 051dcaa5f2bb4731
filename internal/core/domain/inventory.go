package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Store struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// StoreDetails is a store together with every item it carries.
type StoreDetails struct {
	Store
	Items []Item `json:"items"`
}

// StorePatch carries the mutable store fields. Name and creation time are fixed.
type StorePatch struct {
	Description *string
}

type Item struct {
	ID          int64           `json:"id" db:"id"`
	StoreID     int64           `json:"store_id" db:"store_id"`
	Name        string          `json:"name" db:"name"`
	Price       decimal.Decimal `json:"price" db:"price"`
	Description string          `json:"description" db:"description"`
	Quantity    int             `json:"quantity" db:"quantity"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// ItemPatch carries the mutable item fields. Name, store and creation time are fixed.
type ItemPatch struct {
	Price       *decimal.Decimal
	Description *string
	Quantity    *int
}

func NewStore(name, description string, now time.Time) (Store, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Store{}, NewValidationError("Store name is required")
	}

	return Store{
		Name:        name,
		Description: description,
		CreatedAt:   Timestamp(now),
	}, nil
}

func (s Store) Apply(p StorePatch) Store {
	if p.Description != nil {
		s.Description = *p.Description
	}
	return s
}

// Prices are stored with two decimal places and ten integer digits.
const priceScale = 2

var maxItemPrice = decimal.RequireFromString("9999999999.99")

func validPrice(price decimal.Decimal) bool {
	return price.IsPositive() &&
		price.Equal(price.Round(priceScale)) &&
		price.LessThanOrEqual(maxItemPrice)
}

func NewItem(name string, price decimal.Decimal, storeID int64, quantity int, description string, now time.Time) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, NewValidationError("Item name is required")
	}
	if !validPrice(price) {
		return Item{}, ErrInvalidItemPrice
	}
	if quantity < 0 {
		return Item{}, ErrInvalidItemQuantity
	}

	return Item{
		StoreID:     storeID,
		Name:        name,
		Price:       price,
		Description: description,
		Quantity:    quantity,
		CreatedAt:   Timestamp(now),
	}, nil
}

// Apply validates the patch as a whole and returns the updated copy.
// The receiver is left untouched when validation fails.
func (i Item) Apply(p ItemPatch) (Item, error) {
	if p.Price != nil && !validPrice(*p.Price) {
		return i, ErrInvalidItemPrice
	}
	if p.Quantity != nil && *p.Quantity < 0 {
		return i, ErrInvalidItemQuantity
	}

	if p.Price != nil {
		i.Price = *p.Price
	}
	if p.Description != nil {
		i.Description = *p.Description
	}
	if p.Quantity != nil {
		i.Quantity = *p.Quantity
	}
	return i, nil
}

// Consume takes one unit of stock.
func (i *Item) Consume() error {
	if i.Quantity < 1 {
		return ErrItemSoldOut
	}
	i.Quantity--
	return nil
}

// Timestamp normalizes t to the precision stored by the database (UTC, microseconds)
// so cursors built from in-memory values match persisted rows.
func Timestamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
