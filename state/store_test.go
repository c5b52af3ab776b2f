package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/pos-sync/models"
)

func TestCategoryMutators(t *testing.T) {
	s := NewStore()
	a := models.Category{ID: models.PersistedID("1"), Name: "Drinks"}
	b := models.Category{ID: models.PersistedID("2"), Name: "Snacks"}

	s.SetCategories([]models.Category{a})
	s.AddCategory(b)
	assert.Equal(t, []models.Category{a, b}, s.Categories())

	removed, ok := s.DeleteCategory(a.ID)
	require.True(t, ok)
	assert.Equal(t, a, removed)
	assert.Equal(t, []models.Category{b}, s.Categories())

	_, ok = s.DeleteCategory(a.ID)
	assert.False(t, ok)
}

func TestMenuItemMutators(t *testing.T) {
	s := NewStore()
	item := models.MenuItem{ID: models.PersistedID("5"), Name: "Tea", Price: 20, Stock: 10}
	s.AddMenuItem(item)

	changed := item
	changed.Stock = 0
	require.True(t, s.UpdateMenuItem(changed))
	got, ok := s.MenuItem(item.ID)
	require.True(t, ok)
	assert.Equal(t, 0, got.Stock)

	assert.False(t, s.UpdateMenuItem(models.MenuItem{ID: models.PersistedID("404")}))

	removed, ok := s.DeleteMenuItem(item.ID)
	require.True(t, ok)
	assert.Equal(t, changed, removed)
	assert.Empty(t, s.MenuItems())
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	s := NewStore()
	s.SetMenuItems([]models.MenuItem{{ID: models.PersistedID("1"), Name: "Tea"}})

	items := s.MenuItems()
	items[0].Name = "Coffee"

	got, _ := s.MenuItem(models.PersistedID("1"))
	assert.Equal(t, "Tea", got.Name)
}

func TestAddOrderNewestFirst(t *testing.T) {
	s := NewStore()
	s.AddOrder(models.Order{ID: models.PersistedID("1")})
	s.AddOrder(models.Order{ID: models.PersistedID("2")})

	orders := s.Orders()
	require.Len(t, orders, 2)
	assert.Equal(t, models.PersistedID("2"), orders[0].ID)
}

func TestResetClearsEverything(t *testing.T) {
	s := NewStore()
	s.SetCategories([]models.Category{{Name: "x"}})
	s.SetMenuItems([]models.MenuItem{{Name: "y"}})
	s.SetOrders([]models.Order{{Total: 1}})
	s.SetBrand(models.BrandSettings{Name: "Other"})
	s.SetCart([]CartLine{{Quantity: 2}})
	s.SetDraft(OrderDraft{Discount: 10, CustomerName: "Asha"})

	s.Reset()

	snap := s.Snapshot()
	assert.Empty(t, snap.Categories)
	assert.Empty(t, snap.MenuItems)
	assert.Empty(t, snap.Orders)
	assert.Empty(t, snap.Cart)
	assert.Equal(t, models.DefaultBrandSettings(), snap.Brand)
	assert.Equal(t, defaultDraft(), snap.Draft)
}

func TestSubscribe(t *testing.T) {
	s := NewStore()
	events, cancel := s.Subscribe()

	s.AddCategory(models.Category{Name: "Drinks"})
	assert.Equal(t, Event{Kind: EventCategories}, <-events)

	s.Reset()
	assert.Equal(t, Event{Kind: EventReset}, <-events)

	cancel()
	_, open := <-events
	assert.False(t, open)
	cancel()
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	s := NewStore()
	_, cancel := s.Subscribe()
	defer cancel()

	for i := 0; i < 100; i++ {
		s.SetOrders(nil)
	}
}

func TestClearOrderInProgress(t *testing.T) {
	s := NewStore()
	s.SetCart([]CartLine{{Item: models.MenuItem{Name: "Tea"}, Quantity: 1}})
	s.SetDraft(OrderDraft{OrderType: models.OrderTypeTakeaway})

	s.ClearOrderInProgress()
	assert.Empty(t, s.Cart())
	assert.Equal(t, models.OrderTypeDineIn, s.Draft().OrderType)
}

func TestAddCategoryIfAbsent(t *testing.T) {
	s := NewStore()
	require.True(t, s.AddCategoryIfAbsent(models.Category{ID: models.PersistedID("1"), Name: "Tea"}))
	assert.False(t, s.AddCategoryIfAbsent(models.Category{ID: models.NewTemporaryID(), Name: "TEA"}))
	assert.Len(t, s.Categories(), 1)
}
