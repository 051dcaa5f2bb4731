package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type InventoryRepository interface {
	// CreateStore persists a store and returns it with its assigned id
	CreateStore(ctx context.Context, store domain.Store) (domain.Store, error)

	GetStore(ctx context.Context, id int64) (domain.Store, error)

	// UpdateStore applies patch to the stored store inside one transaction
	UpdateStore(ctx context.Context, id int64, patch domain.StorePatch) (domain.Store, error)

	// CreateItem persists an item, failing with ErrStoreNotFound for an unknown store
	CreateItem(ctx context.Context, item domain.Item) (domain.Item, error)

	GetItem(ctx context.Context, id int64) (domain.Item, error)

	// ListItems walks items in (created_at, id) order starting after the query cursor
	ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error)

	// UpdateItem validates and applies patch while holding the item row lock
	UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error)

	// ConsumeItem atomically takes one unit of stock from a single item
	ConsumeItem(ctx context.Context, id int64) (domain.Item, error)
}

type UserRepository interface {
	// CreateUser fails with ErrUserAlreadyExists on a duplicate username
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)

	GetUserByID(ctx context.Context, id int64) (domain.User, error)

	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}
