package syncengine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-sync/cache"
	"github.com/yeremiapane/pos-sync/gateway"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/utils"
)

// MenuItemPatch names the fields an update touches; nil fields are kept.
type MenuItemPatch struct {
	Name       *string  `json:"name"`
	Price      *float64 `json:"price"`
	CategoryID *string  `json:"categoryId"`
	Stock      *int     `json:"stock"`
	Image      *string  `json:"image"`
}

// persist writes a collection to the cache if the session is still current.
func (e *Engine) persist(sess session, kind cache.Kind) {
	if !e.isCurrent(sess) {
		return
	}
	switch kind {
	case cache.KindCategories:
		e.cache.Save(kind, e.store.Categories(), sess.tenantID)
	case cache.KindMenuItems:
		e.cache.Save(kind, e.store.MenuItems(), sess.tenantID)
	case cache.KindOrders:
		e.cache.Save(kind, e.store.Orders(), sess.tenantID)
	case cache.KindBrand:
		e.cache.Save(kind, e.store.Brand(), sess.tenantID)
	}
}

// remoteFailed decides how a mutation treats a gateway error. Transient
// failures are handled like being offline and leave the optimistic change
// in place; anything else is a rejection the caller must roll back.
func (e *Engine) remoteFailed(err error) bool {
	if gateway.IsTransient(err) {
		e.wentOffline(err)
		return false
	}
	return true
}

// reconcile applies a post-call store update for sess; after a tenant switch
// nothing is written and ErrTenantChanged is returned.
func (e *Engine) reconcile(sess session, fn func()) error {
	return e.applyIfCurrent(sess, func() error {
		fn()
		return nil
	})
}

// keptLocally reports whether an optimistic change made under sess still
// belongs to the active session.
func (e *Engine) keptLocally(sess session) error {
	if !e.isCurrent(sess) {
		return ErrTenantChanged
	}
	return nil
}

func (e *Engine) categoryMap() map[string]string {
	return categoryNames(e.store.Categories())
}

func (e *Engine) AddCategory(ctx context.Context, name, icon string) (models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Category{}, fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	sess, err := e.currentSession()
	if err != nil {
		return models.Category{}, err
	}

	temp := models.Category{ID: models.NewTemporaryID(), Name: name, Icon: icon}
	err = e.applyIfCurrent(sess, func() error {
		if !e.store.AddCategoryIfAbsent(temp) {
			return fmt.Errorf("%w: %s", ErrDuplicateCategory, name)
		}
		return nil
	})
	if err != nil {
		return models.Category{}, err
	}
	if !e.online() {
		return temp, nil
	}

	rec, err := e.gw.CreateCategory(sess.remote(ctx), name, icon)
	if err != nil {
		if !e.remoteFailed(err) {
			if err := e.keptLocally(sess); err != nil {
				return models.Category{}, err
			}
			return temp, nil
		}
		if err := e.reconcile(sess, func() { e.store.DeleteCategory(temp.ID) }); err != nil {
			return models.Category{}, err
		}
		return models.Category{}, fmt.Errorf("create category: %w", err)
	}

	created := toCategory(rec)
	err = e.reconcile(sess, func() {
		e.store.DeleteCategory(temp.ID)
		e.store.AddCategory(created)
	})
	if err != nil {
		utils.InfoLogger.WithField("id", created.ID.String()).Info("Category created after session switch, not applied locally")
		return models.Category{}, err
	}
	e.persist(sess, cache.KindCategories)
	return created, nil
}

func (e *Engine) DeleteCategory(ctx context.Context, id models.EntityID) error {
	sess, err := e.currentSession()
	if err != nil {
		return err
	}
	var removed models.Category
	err = e.applyIfCurrent(sess, func() error {
		var ok bool
		if removed, ok = e.store.DeleteCategory(id); !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	rid, persisted := id.Remote()
	if !persisted || !e.online() {
		return nil
	}

	if err := e.gw.DeleteCategory(sess.remote(ctx), rid); err != nil && !errors.Is(err, gateway.ErrNotFound) {
		if !e.remoteFailed(err) {
			return e.keptLocally(sess)
		}
		if err := e.reconcile(sess, func() { e.store.AddCategory(removed) }); err != nil {
			return err
		}
		return fmt.Errorf("delete category: %w", err)
	}
	e.persist(sess, cache.KindCategories)
	return nil
}

func validateMenuItem(item models.MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return fmt.Errorf("%w: menu item name is required", ErrInvalidInput)
	}
	if item.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}
	if item.Stock < 0 {
		return ErrNegativeStock
	}
	return nil
}

// checkCategoryRef refuses references to categories the remote has not
// confirmed yet when the mutation is about to be sent.
func (e *Engine) checkCategoryRef(categoryID string) error {
	if categoryID == "" || !e.online() {
		return nil
	}
	if models.ParseEntityID(categoryID).IsTemporary() {
		return ErrUnsavedCategory
	}
	return nil
}

func (e *Engine) AddMenuItem(ctx context.Context, item models.MenuItem) (models.MenuItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if err := validateMenuItem(item); err != nil {
		return models.MenuItem{}, err
	}
	sess, err := e.currentSession()
	if err != nil {
		return models.MenuItem{}, err
	}
	if err := e.checkCategoryRef(item.CategoryID); err != nil {
		return models.MenuItem{}, err
	}

	item.ID = models.NewTemporaryID()
	err = e.reconcile(sess, func() {
		item.Category = ResolveCategoryName(item, e.categoryMap())
		e.store.AddMenuItem(item)
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	if !e.online() {
		return item, nil
	}

	rec, err := e.gw.CreateMenuItem(sess.remote(ctx), toInput(item))
	if err != nil {
		if !e.remoteFailed(err) {
			if err := e.keptLocally(sess); err != nil {
				return models.MenuItem{}, err
			}
			return item, nil
		}
		if err := e.reconcile(sess, func() { e.store.DeleteMenuItem(item.ID) }); err != nil {
			return models.MenuItem{}, err
		}
		return models.MenuItem{}, fmt.Errorf("create menu item: %w", err)
	}

	var created models.MenuItem
	err = e.reconcile(sess, func() {
		created = toMenuItem(rec, e.categoryMap())
		e.store.DeleteMenuItem(item.ID)
		e.store.AddMenuItem(created)
	})
	if err != nil {
		utils.InfoLogger.WithField("id", rec.ID).Info("Menu item created after session switch, not applied locally")
		return models.MenuItem{}, err
	}
	e.persist(sess, cache.KindMenuItems)
	return created, nil
}

func (e *Engine) UpdateMenuItem(ctx context.Context, id models.EntityID, patch MenuItemPatch) (models.MenuItem, error) {
	sess, err := e.currentSession()
	if err != nil {
		return models.MenuItem{}, err
	}
	if patch.Stock != nil && *patch.Stock < 0 {
		return models.MenuItem{}, ErrNegativeStock
	}
	online := e.online()

	var previous, updated models.MenuItem
	err = e.applyIfCurrent(sess, func() error {
		var ok bool
		if previous, ok = e.store.MenuItem(id); !ok {
			return ErrNotFound
		}
		updated = previous
		if patch.Name != nil {
			updated.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Price != nil {
			updated.Price = *patch.Price
		}
		if patch.Stock != nil {
			updated.Stock = *patch.Stock
		}
		if patch.Image != nil {
			updated.Image = *patch.Image
		}
		if patch.CategoryID != nil {
			updated.CategoryID = *patch.CategoryID
			updated.Category = ResolveCategoryName(updated, e.categoryMap())
		}
		if err := validateMenuItem(updated); err != nil {
			return err
		}
		if online && models.ParseEntityID(updated.CategoryID).IsTemporary() {
			return ErrUnsavedCategory
		}
		e.store.UpdateMenuItem(updated)
		return nil
	})
	if err != nil {
		return models.MenuItem{}, err
	}
	if id.IsTemporary() || !online {
		return updated, nil
	}

	if _, err := e.gw.UpdateMenuItem(sess.remote(ctx), toInput(updated)); err != nil {
		if !e.remoteFailed(err) {
			if err := e.keptLocally(sess); err != nil {
				return models.MenuItem{}, err
			}
			return updated, nil
		}
		if err := e.reconcile(sess, func() { e.store.UpdateMenuItem(previous) }); err != nil {
			return models.MenuItem{}, err
		}
		return models.MenuItem{}, fmt.Errorf("update menu item: %w", err)
	}
	e.persist(sess, cache.KindMenuItems)
	return updated, nil
}

func (e *Engine) DeleteMenuItem(ctx context.Context, id models.EntityID) error {
	sess, err := e.currentSession()
	if err != nil {
		return err
	}
	var removed models.MenuItem
	err = e.applyIfCurrent(sess, func() error {
		var ok bool
		if removed, ok = e.store.DeleteMenuItem(id); !ok {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	rid, persisted := id.Remote()
	if !persisted || !e.online() {
		return nil
	}

	if err := e.gw.DeleteMenuItem(sess.remote(ctx), rid); err != nil && !errors.Is(err, gateway.ErrNotFound) {
		if !e.remoteFailed(err) {
			return e.keptLocally(sess)
		}
		if err := e.reconcile(sess, func() { e.store.AddMenuItem(removed) }); err != nil {
			return err
		}
		return fmt.Errorf("delete menu item: %w", err)
	}
	e.persist(sess, cache.KindMenuItems)
	return nil
}

// SaveOrder records a completed sale. The order is kept locally even when
// the remote write fails; that failure is only logged.
func (e *Engine) SaveOrder(ctx context.Context, order models.Order) (models.Order, error) {
	if len(order.Items) == 0 {
		return models.Order{}, fmt.Errorf("%w: order has no items", ErrInvalidInput)
	}
	sess, err := e.currentSession()
	if err != nil {
		return models.Order{}, err
	}
	if order.ID.IsZero() {
		order.ID = models.NewTemporaryID()
	}
	if order.Date.IsZero() {
		order.Date = e.cfg.Now()
	}
	if order.Status == "" {
		order.Status = models.OrderStatusCompleted
	}

	if err := e.reconcile(sess, func() { e.store.AddOrder(order) }); err != nil {
		return models.Order{}, err
	}
	e.persist(sess, cache.KindOrders)

	fields := logrus.Fields{"tenant": sess.tenantID, "order": order.ID.String()}
	if !e.online() {
		utils.InfoLogger.WithFields(fields).Warn("Order kept locally, remote write skipped while offline")
		return order, nil
	}
	if err := e.gw.CreateOrder(sess.remote(ctx), order); err != nil {
		if gateway.IsTransient(err) {
			e.wentOffline(err)
		}
		utils.ErrorLogger.WithFields(fields).Errorf("Remote order write failed: %v", err)
		return order, nil
	}
	utils.InfoLogger.WithFields(fields).Info("Order saved")
	return order, nil
}

// SaveBrandSettings applies the settings locally first. A rejected remote
// write is reported but the local copy is not rolled back.
func (e *Engine) SaveBrandSettings(ctx context.Context, settings models.BrandSettings) error {
	sess, err := e.currentSession()
	if err != nil {
		return err
	}
	if err := e.reconcile(sess, func() { e.store.SetBrand(settings) }); err != nil {
		return err
	}
	e.persist(sess, cache.KindBrand)
	if !e.online() {
		return nil
	}
	if err := e.gw.UpdateBrandSettings(sess.remote(ctx), settings); err != nil {
		if !e.remoteFailed(err) {
			return nil
		}
		return fmt.Errorf("save brand settings: %w", err)
	}
	return nil
}
