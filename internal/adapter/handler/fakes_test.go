package handler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
	taskToken  = "task-secret"
)

type fakeInventory struct {
	mu     sync.Mutex
	stores map[int64]domain.Store
	items  map[int64]domain.Item
	nextID int64
	page   domain.ItemPage
	query  domain.ItemQuery
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{stores: map[int64]domain.Store{}, items: map[int64]domain.Item{}}
}

func (f *fakeInventory) CreateStore(_ context.Context, name, description string) (domain.Store, error) {
	store, err := domain.NewStore(name, description, time.Now())
	if err != nil {
		return domain.Store{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	store.ID = f.nextID
	f.stores[store.ID] = store
	return store, nil
}

func (f *fakeInventory) GetStore(_ context.Context, id int64) (domain.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	store, ok := f.stores[id]
	if !ok {
		return domain.Store{}, domain.ErrStoreNotFound
	}
	return store, nil
}

func (f *fakeInventory) GetStoreDetails(_ context.Context, id int64) (domain.StoreDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	store, ok := f.stores[id]
	if !ok {
		return domain.StoreDetails{}, domain.ErrStoreNotFound
	}
	details := domain.StoreDetails{Store: store, Items: []domain.Item{}}
	for itemID := int64(1); itemID <= f.nextID; itemID++ {
		if item, ok := f.items[itemID]; ok && item.StoreID == id {
			details.Items = append(details.Items, item)
		}
	}
	return details, nil
}

func (f *fakeInventory) UpdateStore(_ context.Context, id int64, patch domain.StorePatch) (domain.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	store, ok := f.stores[id]
	if !ok {
		return domain.Store{}, domain.ErrStoreNotFound
	}
	store = store.Apply(patch)
	f.stores[id] = store
	return store, nil
}

func (f *fakeInventory) CreateItem(_ context.Context, in service.CreateItemInput) (domain.Item, error) {
	item, err := domain.NewItem(in.Name, in.Price, in.StoreID, in.Quantity, in.Description, time.Now())
	if err != nil {
		return domain.Item{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.stores[in.StoreID]; !ok {
		return domain.Item{}, domain.ErrStoreNotFound
	}
	f.nextID++
	item.ID = f.nextID
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeInventory) GetItem(_ context.Context, id int64) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (f *fakeInventory) ListItems(_ context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query = query
	if query.Cursor == "bad" {
		return domain.ItemPage{}, domain.ErrInvalidCursor
	}
	return f.page, nil
}

func (f *fakeInventory) UpdateItem(_ context.Context, id int64, patch domain.ItemPatch) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	updated, err := item.Apply(patch)
	if err != nil {
		return domain.Item{}, err
	}
	f.items[id] = updated
	return updated, nil
}

// fakeConsumption decrements stock held by a fakeInventory.
type fakeConsumption struct {
	inv    *fakeInventory
	buyers []int64
}

func (f *fakeConsumption) Consume(_ context.Context, itemID, userID int64) (domain.Item, domain.ConsumptionReceipt, error) {
	f.inv.mu.Lock()
	defer f.inv.mu.Unlock()
	item, ok := f.inv.items[itemID]
	if !ok {
		return domain.Item{}, domain.ConsumptionReceipt{}, domain.ErrItemNotFound
	}
	if err := item.Consume(); err != nil {
		return domain.Item{}, domain.ConsumptionReceipt{}, err
	}
	f.inv.items[itemID] = item
	f.buyers = append(f.buyers, userID)
	return item, domain.ConsumptionReceipt{UserID: userID, ItemID: itemID, StoreID: item.StoreID}, nil
}

type fakeAnalytics struct {
	events    []domain.ConsumptionEvent
	snapshot  domain.AnalyticsSnapshot
	err       error
	refreshed int
}

func (f *fakeAnalytics) CachedEvents(context.Context) ([]domain.ConsumptionEvent, error) {
	return f.events, f.err
}

func (f *fakeAnalytics) CachedAnalytics(context.Context) (domain.AnalyticsSnapshot, error) {
	return f.snapshot, f.err
}

func (f *fakeAnalytics) RefreshCache(context.Context) ([]domain.ConsumptionEvent, error) {
	f.refreshed++
	return f.events, f.err
}

func (f *fakeAnalytics) RefreshAnalytics(context.Context) (domain.AnalyticsSnapshot, error) {
	f.refreshed++
	return f.snapshot, f.err
}

type fakeRecorder struct {
	recorded []domain.ConsumptionEvent
	err      error
}

func (f *fakeRecorder) Record(_ context.Context, event domain.ConsumptionEvent) error {
	if f.err != nil {
		return f.err
	}
	if event.EventID == "" || event.UserID == 0 || event.ItemID == 0 || event.StoreID == 0 || event.Timestamp.IsZero() {
		return domain.NewValidationError("Missing required fields")
	}
	f.recorded = append(f.recorded, event)
	return nil
}

type fakeAuth struct {
	registered []service.RegisterInput
	loggedOut  []string
}

func (f *fakeAuth) Register(_ context.Context, in service.RegisterInput) (domain.User, error) {
	if in.Username == "taken" {
		return domain.User{}, domain.ErrUserAlreadyExists
	}
	f.registered = append(f.registered, in)
	return domain.User{ID: int64(len(f.registered)), Username: in.Username, Email: in.Email, PasswordHash: "hash", IsAdmin: in.IsAdmin}, nil
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (string, domain.User, error) {
	if password != "secret" {
		return "", domain.User{}, domain.ErrInvalidCredentials
	}
	return userToken, domain.User{ID: 2, Username: username}, nil
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (domain.Principal, error) {
	switch token {
	case adminToken:
		return domain.Principal{UserID: 1, Username: "admin", IsAdmin: true, TokenID: "jti-admin"}, nil
	case userToken:
		return domain.Principal{UserID: 2, Username: "shopper", TokenID: "jti-user"}, nil
	default:
		return domain.Principal{}, fmt.Errorf("%w: unknown token", domain.ErrUnauthorized)
	}
}

func (f *fakeAuth) Logout(_ context.Context, principal domain.Principal) error {
	f.loggedOut = append(f.loggedOut, principal.TokenID)
	return nil
}

func (f *fakeAuth) CurrentUser(_ context.Context, principal domain.Principal) (domain.User, error) {
	return domain.User{ID: principal.UserID, Username: principal.Username, PasswordHash: "hash"}, nil
}

func createInput(storeID int64, quantity int) service.CreateItemInput {
	return service.CreateItemInput{
		Name:     "Widget",
		Price:    decimal.RequireFromString("10.99"),
		StoreID:  storeID,
		Quantity: quantity,
	}
}
