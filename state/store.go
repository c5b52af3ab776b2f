// Package state holds the in-memory collections the UI renders from. All
// writes go through Store mutators; each mutator is one atomic update and
// notifies subscribers after the lock is released.
package state

import (
	"strings"
	"sync"

	"github.com/yeremiapane/pos-sync/models"
)

type EventKind string

const (
	EventCategories EventKind = "categories"
	EventMenuItems  EventKind = "menu_items"
	EventOrders     EventKind = "orders"
	EventBrand      EventKind = "brand"
	EventCart       EventKind = "cart"
	EventReset      EventKind = "reset"
)

type Event struct {
	Kind EventKind `json:"kind"`
}

type CartLine struct {
	Item     models.MenuItem `json:"item"`
	Quantity int             `json:"quantity"`
}

// OrderDraft is the order-in-progress the cashier is filling in.
type OrderDraft struct {
	Discount      float64 `json:"discount"`
	DiscountType  string  `json:"discountType"`
	OrderType     string  `json:"orderType"`
	TableNumber   string  `json:"tableNumber,omitempty"`
	CustomerName  string  `json:"customerName,omitempty"`
	CustomerPhone string  `json:"customerPhone,omitempty"`
}

type Snapshot struct {
	Categories []models.Category    `json:"categories"`
	MenuItems  []models.MenuItem    `json:"menuItems"`
	Orders     []models.Order       `json:"orders"`
	Brand      models.BrandSettings `json:"brand"`
	Cart       []CartLine           `json:"cart"`
	Draft      OrderDraft           `json:"draft"`
}

type Store struct {
	mu         sync.RWMutex
	categories []models.Category
	menuItems  []models.MenuItem
	orders     []models.Order
	brand      models.BrandSettings
	cart       []CartLine
	draft      OrderDraft

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

func NewStore() *Store {
	return &Store{
		categories: []models.Category{},
		menuItems:  []models.MenuItem{},
		orders:     []models.Order{},
		brand:      models.DefaultBrandSettings(),
		cart:       []CartLine{},
		draft:      defaultDraft(),
		subs:       make(map[int]chan Event),
	}
}

func defaultDraft() OrderDraft {
	return OrderDraft{
		DiscountType: models.DiscountPercentage,
		OrderType:    models.OrderTypeDineIn,
	}
}

// Subscribe returns a buffered event channel and its cancel func. A
// subscriber that falls behind misses events rather than blocking writers.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, 32)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) notify(kind EventKind) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- Event{Kind: kind}:
		default:
		}
	}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Categories: append([]models.Category{}, s.categories...),
		MenuItems:  append([]models.MenuItem{}, s.menuItems...),
		Orders:     append([]models.Order{}, s.orders...),
		Brand:      s.brand,
		Cart:       append([]CartLine{}, s.cart...),
		Draft:      s.draft,
	}
}

// Reset drops everything held for the current tenant, including the order
// in progress.
func (s *Store) Reset() {
	s.mu.Lock()
	s.categories = []models.Category{}
	s.menuItems = []models.MenuItem{}
	s.orders = []models.Order{}
	s.brand = models.DefaultBrandSettings()
	s.cart = []CartLine{}
	s.draft = defaultDraft()
	s.mu.Unlock()
	s.notify(EventReset)
}

// Bulk setters

func (s *Store) SetCategories(categories []models.Category) {
	s.mu.Lock()
	s.categories = append([]models.Category{}, categories...)
	s.mu.Unlock()
	s.notify(EventCategories)
}

func (s *Store) SetMenuItems(items []models.MenuItem) {
	s.mu.Lock()
	s.menuItems = append([]models.MenuItem{}, items...)
	s.mu.Unlock()
	s.notify(EventMenuItems)
}

func (s *Store) SetOrders(orders []models.Order) {
	s.mu.Lock()
	s.orders = append([]models.Order{}, orders...)
	s.mu.Unlock()
	s.notify(EventOrders)
}

func (s *Store) SetBrand(brand models.BrandSettings) {
	s.mu.Lock()
	s.brand = brand
	s.mu.Unlock()
	s.notify(EventBrand)
}

// Readers

func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category{}, s.categories...)
}

func (s *Store) Category(id models.EntityID) (models.Category, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.categories {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}

func (s *Store) MenuItems() []models.MenuItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.MenuItem{}, s.menuItems...)
}

func (s *Store) MenuItem(id models.EntityID) (models.MenuItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.menuItems {
		if m.ID == id {
			return m, true
		}
	}
	return models.MenuItem{}, false
}

func (s *Store) Orders() []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Order{}, s.orders...)
}

func (s *Store) Brand() models.BrandSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.brand
}

// Granular mutators

func (s *Store) AddCategory(c models.Category) {
	s.mu.Lock()
	s.categories = append(s.categories, c)
	s.mu.Unlock()
	s.notify(EventCategories)
}

// AddCategoryIfAbsent appends c unless a category with the same name,
// compared case-insensitively, is already present.
func (s *Store) AddCategoryIfAbsent(c models.Category) bool {
	s.mu.Lock()
	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			s.mu.Unlock()
			return false
		}
	}
	s.categories = append(s.categories, c)
	s.mu.Unlock()
	s.notify(EventCategories)
	return true
}

// DeleteCategory removes the category and returns it so it can be restored.
func (s *Store) DeleteCategory(id models.EntityID) (models.Category, bool) {
	s.mu.Lock()
	var removed models.Category
	found := false
	kept := s.categories[:0:0]
	for _, c := range s.categories {
		if c.ID == id && !found {
			removed, found = c, true
			continue
		}
		kept = append(kept, c)
	}
	s.categories = kept
	s.mu.Unlock()
	if found {
		s.notify(EventCategories)
	}
	return removed, found
}

func (s *Store) AddMenuItem(item models.MenuItem) {
	s.mu.Lock()
	s.menuItems = append(s.menuItems, item)
	s.mu.Unlock()
	s.notify(EventMenuItems)
}

// UpdateMenuItem replaces the item with the same id; false if absent.
func (s *Store) UpdateMenuItem(item models.MenuItem) bool {
	s.mu.Lock()
	found := false
	for i := range s.menuItems {
		if s.menuItems[i].ID == item.ID {
			s.menuItems[i] = item
			found = true
			break
		}
	}
	s.mu.Unlock()
	if found {
		s.notify(EventMenuItems)
	}
	return found
}

func (s *Store) DeleteMenuItem(id models.EntityID) (models.MenuItem, bool) {
	s.mu.Lock()
	var removed models.MenuItem
	found := false
	kept := s.menuItems[:0:0]
	for _, m := range s.menuItems {
		if m.ID == id && !found {
			removed, found = m, true
			continue
		}
		kept = append(kept, m)
	}
	s.menuItems = kept
	s.mu.Unlock()
	if found {
		s.notify(EventMenuItems)
	}
	return removed, found
}

// AddOrder prepends, keeping history newest first.
func (s *Store) AddOrder(order models.Order) {
	s.mu.Lock()
	s.orders = append([]models.Order{order}, s.orders...)
	s.mu.Unlock()
	s.notify(EventOrders)
}

// UI-transient state; the sync engine never touches these.

func (s *Store) SetCart(lines []CartLine) {
	s.mu.Lock()
	s.cart = append([]CartLine{}, lines...)
	s.mu.Unlock()
	s.notify(EventCart)
}

func (s *Store) Cart() []CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]CartLine{}, s.cart...)
}

func (s *Store) SetDraft(d OrderDraft) {
	s.mu.Lock()
	s.draft = d
	s.mu.Unlock()
	s.notify(EventCart)
}

func (s *Store) Draft() OrderDraft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// ClearOrderInProgress empties the cart and draft after checkout.
func (s *Store) ClearOrderInProgress() {
	s.mu.Lock()
	s.cart = []CartLine{}
	s.draft = defaultDraft()
	s.mu.Unlock()
	s.notify(EventCart)
}
