package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// memInventory is an in-memory InventoryRepository guarded by a single mutex.
type memInventory struct {
	mu     sync.Mutex
	nextID int64
	stores map[int64]domain.Store
	items  map[int64]domain.Item
}

func newMemInventory() *memInventory {
	return &memInventory{stores: map[int64]domain.Store{}, items: map[int64]domain.Item{}}
}

func (m *memInventory) CreateStore(ctx context.Context, store domain.Store) (domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	store.ID = m.nextID
	m.stores[store.ID] = store
	return store, nil
}

func (m *memInventory) GetStore(ctx context.Context, id int64) (domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[id]
	if !ok {
		return domain.Store{}, domain.ErrStoreNotFound
	}
	return store, nil
}

func (m *memInventory) UpdateStore(ctx context.Context, id int64, patch domain.StorePatch) (domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[id]
	if !ok {
		return domain.Store{}, domain.ErrStoreNotFound
	}
	store = store.Apply(patch)
	m.stores[id] = store
	return store, nil
}

func (m *memInventory) CreateItem(ctx context.Context, item domain.Item) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stores[item.StoreID]; !ok {
		return domain.Item{}, domain.ErrStoreNotFound
	}
	m.nextID++
	item.ID = m.nextID
	m.items[item.ID] = item
	return item, nil
}

func (m *memInventory) GetItem(ctx context.Context, id int64) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (m *memInventory) ListItems(ctx context.Context, query domain.ItemQuery) (domain.ItemPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []domain.Item
	for _, it := range m.items {
		if query.StoreID == 0 || it.StoreID == query.StoreID {
			items = append(items, it)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		less := items[i].CreatedAt.Before(items[j].CreatedAt) ||
			(items[i].CreatedAt.Equal(items[j].CreatedAt) && items[i].ID < items[j].ID)
		if query.Reverse {
			return !less
		}
		return less
	})

	if query.Cursor != "" {
		c, err := domain.DecodeCursor(query.Cursor)
		if err != nil {
			return domain.ItemPage{}, err
		}
		for i, it := range items {
			if it.ID == c.ID {
				items = items[i+1:]
				break
			}
		}
	}

	page := domain.ItemPage{Items: items}
	if len(items) > query.PageSize {
		page.Items = items[:query.PageSize]
		page.HasMore = true
		page.NextCursor = domain.CursorAfter(page.Items[len(page.Items)-1]).Encode()
	}
	return page, nil
}

func (m *memInventory) UpdateItem(ctx context.Context, id int64, patch domain.ItemPatch) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	updated, err := item.Apply(patch)
	if err != nil {
		return domain.Item{}, err
	}
	m.items[id] = updated
	return updated, nil
}

func (m *memInventory) ConsumeItem(ctx context.Context, id int64) (domain.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	if err := item.Consume(); err != nil {
		return domain.Item{}, err
	}
	m.items[id] = item
	return item, nil
}

type recordingEmitter struct {
	mu       sync.Mutex
	receipts []domain.ConsumptionReceipt
}

func (r *recordingEmitter) Emit(ctx context.Context, receipt domain.ConsumptionReceipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.receipts = append(r.receipts, receipt)
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.receipts)
}

type fakeTaskQueue struct {
	mu     sync.Mutex
	events []domain.ConsumptionEvent
	err    error
	block  chan struct{}
}

func (q *fakeTaskQueue) Enqueue(ctx context.Context, event domain.ConsumptionEvent) error {
	if q.block != nil {
		<-q.block
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, event)
	return nil
}

func (q *fakeTaskQueue) Close() error { return nil }

func (q *fakeTaskQueue) enqueued() []domain.ConsumptionEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.ConsumptionEvent(nil), q.events...)
}

type fakeEventLog struct {
	mu             sync.Mutex
	events         map[string]domain.ConsumptionEvent
	recentCalls    int
	aggregateCalls int
	lastSince      time.Time
	err            error
}

func newFakeEventLog() *fakeEventLog {
	return &fakeEventLog{events: map[string]domain.ConsumptionEvent{}}
}

func (f *fakeEventLog) AppendEvent(ctx context.Context, event domain.ConsumptionEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.events[event.EventID]; ok {
		return false, nil
	}
	f.events[event.EventID] = event
	return true, nil
}

func (f *fakeEventLog) RecentEvents(ctx context.Context, limit int) ([]domain.ConsumptionEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentCalls++
	if f.err != nil {
		return nil, f.err
	}
	var out []domain.ConsumptionEvent
	for _, ev := range f.events {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeEventLog) Aggregate(ctx context.Context, since time.Time) (domain.AnalyticsSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.aggregateCalls++
	f.lastSince = since
	if f.err != nil {
		return domain.AnalyticsSnapshot{}, f.err
	}

	stores := map[int64]int64{}
	for _, ev := range f.events {
		if !ev.Timestamp.Before(since) {
			stores[ev.StoreID]++
		}
	}
	snapshot := domain.AnalyticsSnapshot{WindowStart: since}
	for id, n := range stores {
		snapshot.StoreSales = append(snapshot.StoreSales, domain.StoreSales{StoreID: id, Sales: n})
	}
	return snapshot, nil
}

// clockCache is a TTL cache driven by a controllable clock.
type clockCache struct {
	mu      sync.Mutex
	now     time.Time
	entries map[string]clockEntry
	getErr  error
	setErr  error
}

type clockEntry struct {
	value   []byte
	expires time.Time
}

func newClockCache(now time.Time) *clockCache {
	return &clockCache{now: now, entries: map[string]clockEntry{}}
}

func (c *clockCache) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *clockCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	e, ok := c.entries[key]
	if !ok || !c.now.Before(e.expires) {
		return nil, port.ErrCacheMiss
	}
	return e.value, nil
}

func (c *clockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	c.entries[key] = clockEntry{value: value, expires: c.now.Add(ttl)}
	return nil
}

type memUsers struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]domain.User{}}
}

func (m *memUsers) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Username]; ok {
		return domain.User{}, domain.ErrUserAlreadyExists
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.Username] = user
	return user, nil
}

func (m *memUsers) GetUserByID(ctx context.Context, id int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (m *memUsers) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[username]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

type memDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (d *memDenylist) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.revoked == nil {
		d.revoked = map[string]time.Duration{}
	}
	d.revoked[tokenID] = ttl
	return nil
}

func (d *memDenylist) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[tokenID]
	return ok, nil
}
