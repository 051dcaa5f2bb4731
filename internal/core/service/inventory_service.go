package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

type CreateItemInput struct {
	Name        string
	Price       decimal.Decimal
	StoreID     int64
	Quantity    int
	Description string
}

type InventoryService struct {
	repo port.InventoryRepository
	now  func() time.Time
}

func NewInventoryService(repo port.InventoryRepository) *InventoryService {
	return &InventoryService{repo: repo, now: time.Now}
}

func (s *InventoryService) CreateStore(ctx context.Context, name, description string) (domain.Store, error) {
	store, err := domain.NewStore(name, description, s.now())
	if err != nil {
		return domain.Store{}, err
	}
	return s.repo.CreateStore(ctx, store)
}

func (s *InventoryService) GetStore(ctx context.Context, id int64) (domain.Store, error) {
	return s.repo.GetStore(ctx, id)
}

// GetStoreDetails loads the store and walks its items page by page in creation order.
func (s *InventoryService) GetStoreDetails(ctx context.Context, id int64) (domain.StoreDetails, error) {
	store, err := s.repo.GetStore(ctx, id)
	if err != nil {
		return domain.StoreDetails{}, err
	}

	details := domain.StoreDetails{Store: store, Items: []domain.Item{}}
	query := domain.ItemQuery{StoreID: id, PageSize: domain.MaxPageSize}
	for {
		page, err := s.repo.ListItems(ctx, query)
		if err != nil {
			return domain.StoreDetails{}, err
		}
		details.Items = append(details.Items, page.Items...)
		if !page.HasMore {
			return details, nil
		}
		query.Cursor = page.NextCursor
	}
}

func (s *InventoryService) UpdateStore(ctx context.Context, id int64, patch domain.StorePatch) (domain.Store, error) {
	return s.repo.UpdateStore(ctx, id, patch)
}

func (s *InventoryService) CreateItem(ctx context.Context, in CreateItemInput) (domain.Item, error) {
	item, err := domain.NewItem(in.Name, in.Price, in.StoreID, in.Quantity, in.Description, s.now())
	if err != nil {
		return domain.Item{}, err
	}
	return s.repo.CreateItem(ctx, item)
}

func (s *InventoryService) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	return s.repo.GetItem(ctx, id)
}

func (s *InventoryService) ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	query = query.Normalize()
	if query.Cursor != "" {
		if _, err := domain.DecodeCursor(query.Cursor); err != nil {
			return domain.ItemPage{}, err
		}
	}
	return s.repo.ListItems(ctx, query)
}

// UpdateItem rejects an invalid patch before touching storage; the repository
// applies it again under the row lock.
func (s *InventoryService) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error) {
	if _, err := (domain.Item{}).Apply(patch); err != nil {
		return domain.Item{}, err
	}
	return s.repo.UpdateItem(ctx, id, patch)
}
