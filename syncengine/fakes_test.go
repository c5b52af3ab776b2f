package syncengine

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/pos-sync/cache"
	"github.com/yeremiapane/pos-sync/gateway"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/state"
)

// fakeGateway is an in-memory remote partitioned by tenant the same way the
// gorm gateway derives it from the context.
type fakeGateway struct {
	mu         sync.Mutex
	staff      map[string]*models.StaffMember
	categories map[string][]models.CategoryRecord
	items      map[string][]models.MenuItemRecord
	orders     map[string][]models.OrderRecord
	brand      map[string]models.BrandSettingsRecord
	nextID     uint
	calls      map[string]int
	fail       map[string]error
	gates      map[string]chan struct{}
	holds      map[string]chan struct{}
	entered    chan string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		staff:      map[string]*models.StaffMember{},
		categories: map[string][]models.CategoryRecord{},
		items:      map[string][]models.MenuItemRecord{},
		orders:     map[string][]models.OrderRecord{},
		brand:      map[string]models.BrandSettingsRecord{},
		nextID:     100,
		calls:      map[string]int{},
		fail:       map[string]error{},
		gates:      map[string]chan struct{}{},
		holds:      map[string]chan struct{}{},
		entered:    make(chan string, 16),
	}
}

func (f *fakeGateway) tenant(ctx context.Context) string {
	if owner := gateway.OwnerOverrideFrom(ctx); owner != "" {
		return owner
	}
	return gateway.CallerFrom(ctx)
}

func (f *fakeGateway) enter(method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.fail[method]
	hold := f.holds[method]
	f.mu.Unlock()
	if hold != nil {
		f.entered <- method
		<-hold
	}
	return err
}

func (f *fakeGateway) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeGateway) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[method] = err
}

// Block makes ListCategories for tenant wait until the returned func runs.
func (f *fakeGateway) Block(tenant string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[tenant] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.gates, tenant)
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Hold parks every call to method, after it is counted, until the returned
// func runs.
func (f *fakeGateway) Hold(method string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.holds[method] = gate
	f.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.holds, method)
			f.mu.Unlock()
			close(gate)
		})
	}
}

func (f *fakeGateway) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeGateway) SeedCategory(tenant string, id uint, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.categories[tenant] = append(f.categories[tenant], models.CategoryRecord{ID: id, OwnerID: tenant, Name: name})
}

func (f *fakeGateway) SeedItem(tenant string, rec models.MenuItemRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.OwnerID = tenant
	f.items[tenant] = append(f.items[tenant], rec)
}

func (f *fakeGateway) Ping(ctx context.Context) error {
	return f.enter("Ping")
}

func (f *fakeGateway) LookupStaff(ctx context.Context, userID string) (*models.StaffMember, error) {
	if err := f.enter("LookupStaff"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staff[userID], nil
}

func (f *fakeGateway) ListCategories(ctx context.Context) ([]models.CategoryRecord, error) {
	if err := f.enter("ListCategories"); err != nil {
		return nil, err
	}
	tenant := f.tenant(ctx)
	f.mu.Lock()
	gate := f.gates[tenant]
	f.mu.Unlock()
	if gate != nil {
		f.entered <- tenant
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.CategoryRecord(nil), f.categories[tenant]...), nil
}

func (f *fakeGateway) CreateCategory(ctx context.Context, name, color string) (models.CategoryRecord, error) {
	if err := f.enter("CreateCategory"); err != nil {
		return models.CategoryRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := f.tenant(ctx)
	rec := models.CategoryRecord{ID: f.id(), OwnerID: tenant, Name: name, Color: color}
	f.categories[tenant] = append(f.categories[tenant], rec)
	return rec, nil
}

func (f *fakeGateway) DeleteCategory(ctx context.Context, id string) error {
	if err := f.enter("DeleteCategory"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := f.tenant(ctx)
	recs := f.categories[tenant]
	for i, rec := range recs {
		if strconv.FormatUint(uint64(rec.ID), 10) == id {
			f.categories[tenant] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (f *fakeGateway) ListMenuItems(ctx context.Context) ([]models.MenuItemRecord, error) {
	if err := f.enter("ListMenuItems"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.MenuItemRecord(nil), f.items[f.tenant(ctx)]...), nil
}

func categoryPtr(id string) *uint {
	if id == "" {
		return nil
	}
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil
	}
	v := uint(n)
	return &v
}

func (f *fakeGateway) CreateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItemRecord, error) {
	if err := f.enter("CreateMenuItem"); err != nil {
		return models.MenuItemRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := f.tenant(ctx)
	rec := models.MenuItemRecord{
		ID:         f.id(),
		OwnerID:    tenant,
		CategoryID: categoryPtr(in.CategoryID),
		Name:       in.Name,
		Price:      in.Price,
		Stock:      in.Stock,
		ImageURL:   in.ImageURL,
	}
	f.items[tenant] = append(f.items[tenant], rec)
	return rec, nil
}

func (f *fakeGateway) UpdateMenuItem(ctx context.Context, in models.MenuItemInput) (models.MenuItemRecord, error) {
	if err := f.enter("UpdateMenuItem"); err != nil {
		return models.MenuItemRecord{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := f.tenant(ctx)
	for i, rec := range f.items[tenant] {
		if strconv.FormatUint(uint64(rec.ID), 10) == in.ID {
			rec.Name = in.Name
			rec.Price = in.Price
			rec.Stock = in.Stock
			rec.ImageURL = in.ImageURL
			rec.CategoryID = categoryPtr(in.CategoryID)
			f.items[tenant][i] = rec
			return rec, nil
		}
	}
	return models.MenuItemRecord{}, gateway.ErrNotFound
}

func (f *fakeGateway) DeleteMenuItem(ctx context.Context, id string) error {
	if err := f.enter("DeleteMenuItem"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := f.tenant(ctx)
	recs := f.items[tenant]
	for i, rec := range recs {
		if strconv.FormatUint(uint64(rec.ID), 10) == id {
			f.items[tenant] = append(recs[:i:i], recs[i+1:]...)
			return nil
		}
	}
	return gateway.ErrNotFound
}

func (f *fakeGateway) ListOrders(ctx context.Context) ([]models.OrderRecord, error) {
	if err := f.enter("ListOrders"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.OrderRecord(nil), f.orders[f.tenant(ctx)]...), nil
}

func (f *fakeGateway) CreateOrder(ctx context.Context, order models.Order) error {
	if err := f.enter("CreateOrder"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := f.tenant(ctx)
	rec := models.OrderRecord{ID: f.id(), OwnerID: tenant, Total: order.Total, Status: order.Status, CreatedAt: order.Date}
	if err := rec.SetLines(order.Items); err != nil {
		return err
	}
	f.orders[tenant] = append([]models.OrderRecord{rec}, f.orders[tenant]...)
	return nil
}

func (f *fakeGateway) GetBrandSettings(ctx context.Context) ([]models.BrandSettingsRecord, error) {
	if err := f.enter("GetBrandSettings"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.brand[f.tenant(ctx)]
	if !ok {
		return nil, nil
	}
	return []models.BrandSettingsRecord{rec}, nil
}

func (f *fakeGateway) UpdateBrandSettings(ctx context.Context, s models.BrandSettings) error {
	if err := f.enter("UpdateBrandSettings"); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	tenant := f.tenant(ctx)
	f.brand[tenant] = models.BrandSettingsRecord{OwnerID: tenant, Name: s.Name, Currency: s.Currency, CGSTRate: s.CGSTRate, SGSTRate: s.SGSTRate}
	return nil
}

type fakeNet struct {
	online     atomic.Bool
	markedDown atomic.Int32
}

func newFakeNet(online bool) *fakeNet {
	n := &fakeNet{}
	n.online.Store(online)
	return n
}

func (n *fakeNet) Online() bool { return n.online.Load() }

func (n *fakeNet) MarkOffline() {
	n.markedDown.Add(1)
	n.online.Store(false)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	gw     *fakeGateway
	net    *fakeNet
	clock  *testClock
	cache  *cache.Store
	store  *state.Store
	engine *Engine
}

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()
	h := &harness{
		gw:    newFakeGateway(),
		net:   newFakeNet(online),
		clock: &testClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.cache = cache.NewStore(cache.NewMemoryBackend(), cache.WithClock(h.clock.Now))
	h.store = state.NewStore()
	h.engine = New(h.gw, h.cache, h.store, h.net, Config{Now: h.clock.Now})
	t.Cleanup(h.engine.Stop)
	return h
}

// newEngine builds another engine over the same cache, as a reload would.
func (h *harness) newEngine() *Engine {
	return New(h.gw, h.cache, state.NewStore(), h.net, Config{Now: h.clock.Now})
}

// login signs in and waits for the mount refresh.
func (h *harness) login(t *testing.T, userID string) {
	t.Helper()
	require.NoError(t, h.engine.SetIdentity(context.Background(), Identity{UserID: userID}))
	h.engine.Wait()
}
