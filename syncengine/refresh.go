package syncengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeremiapane/pos-sync/cache"
	"github.com/yeremiapane/pos-sync/gateway"
	"github.com/yeremiapane/pos-sync/models"
	"golang.org/x/sync/errgroup"
)

// Hydrate loads every cached collection of the current tenant into the
// state store, stale or not, and reports whether the last successful sync
// is still inside the freshness window. Running it twice leaves the store
// unchanged.
func (e *Engine) Hydrate() bool {
	e.mu.Lock()
	tenant := e.tenantID
	e.mu.Unlock()
	if tenant == "" {
		return false
	}

	hydrated := 0
	if entry, ok := cache.Load[[]models.Category](e.cache, cache.KindCategories, tenant); ok {
		e.store.SetCategories(entry.Data)
		hydrated++
	}
	if entry, ok := cache.Load[[]models.MenuItem](e.cache, cache.KindMenuItems, tenant); ok {
		e.store.SetMenuItems(entry.Data)
		hydrated++
	}
	if entry, ok := cache.Load[[]models.Order](e.cache, cache.KindOrders, tenant); ok {
		e.store.SetOrders(entry.Data)
		hydrated++
	}
	if entry, ok := cache.Load[models.BrandSettings](e.cache, cache.KindBrand, tenant); ok {
		e.store.SetBrand(entry.Data)
		hydrated++
	}

	last, hasSync := e.cache.LastSyncTime(tenant)
	fresh := hasSync && e.cache.IsValid(last)

	e.mu.Lock()
	if e.tenantID == tenant {
		if hydrated > 0 && e.status.State == StateIdle {
			e.status.State = StateCacheHydrated
		}
		if hasSync {
			ts := last
			e.status.LastSync = &ts
		}
		if fresh {
			e.status.IsSynced = true
			e.status.SyncError = ""
		}
	}
	e.mu.Unlock()

	e.log().WithField("collections", hydrated).Debug("Hydrated from cache")
	e.emitStatus()
	return fresh
}

func (e *Engine) cacheFresh(tenant string) bool {
	last, ok := e.cache.LastSyncTime(tenant)
	return ok && e.cache.IsValid(last)
}

// flagOfflineStaleness surfaces a soft error when offline without fresh
// data. Fresh data offline counts as synced.
func (e *Engine) flagOfflineStaleness() {
	e.mu.Lock()
	tenant := e.tenantID
	e.mu.Unlock()
	if tenant == "" {
		return
	}

	_, hasSync := e.cache.LastSyncTime(tenant)
	fresh := e.cacheFresh(tenant)

	e.mu.Lock()
	if e.tenantID == tenant {
		switch {
		case fresh:
			e.status.IsSynced = true
			e.status.SyncError = ""
		case hasSync:
			e.status.IsSynced = false
			e.status.SyncError = staleCacheMessage
		default:
			e.status.IsSynced = false
			e.status.SyncError = noCacheMessage
		}
	}
	e.mu.Unlock()
	e.emitStatus()
}

// Refresh fetches all collections for the current tenant and replaces the
// state store and cache with them. Unforced calls are no-ops while another
// refresh is in flight or within the cooldown after the last success;
// forced calls skip the cooldown and wait for an in-flight refresh instead
// of starting a second one.
func (e *Engine) Refresh(ctx context.Context, force bool) error {
	return e.refresh(ctx, force, false)
}

// RefreshNow is the manual trigger. It reports progress through IsLoading.
func (e *Engine) RefreshNow(ctx context.Context) error {
	return e.refresh(ctx, true, true)
}

func (e *Engine) refresh(ctx context.Context, force, manual bool) error {
	e.mu.Lock()
	if e.tenantID == "" {
		e.mu.Unlock()
		return ErrNoTenant
	}
	sess := session{userID: e.userID, tenantID: e.tenantID, gen: e.generation}

	if call := e.inflight; call != nil && call.gen == sess.gen {
		e.mu.Unlock()
		if !force {
			return nil
		}
		return e.join(ctx, call, sess, manual)
	}

	if !force {
		if last, ok := e.cache.LastSyncTime(sess.tenantID); ok && e.cfg.Now().Sub(last) < e.cfg.Cooldown {
			e.mu.Unlock()
			return nil
		}
	}
	e.mu.Unlock()

	if !e.online() {
		e.flagOfflineStaleness()
		return ErrOffline
	}

	e.mu.Lock()
	if e.generation != sess.gen {
		e.mu.Unlock()
		return ErrTenantChanged
	}
	if call := e.inflight; call != nil && call.gen == sess.gen {
		// lost the race to another caller
		e.mu.Unlock()
		if !force {
			return nil
		}
		return e.join(ctx, call, sess, manual)
	}
	call := &refreshCall{gen: sess.gen, done: make(chan struct{})}
	e.inflight = call
	e.status.State = StateSyncing
	if manual {
		e.status.IsLoading = true
	}
	e.mu.Unlock()
	e.emitStatus()

	err := e.fetchAndApply(ctx, sess)

	e.mu.Lock()
	if e.inflight == call {
		e.inflight = nil
	}
	if e.generation == sess.gen {
		if manual {
			e.status.IsLoading = false
		}
		if err == nil {
			now := e.cfg.Now()
			e.status.State = StateSynced
			e.status.IsSynced = true
			e.status.SyncError = ""
			e.status.LastSync = &now
		} else {
			e.status.State = StateSyncFailed
			if gateway.IsTransient(err) {
				e.status.SyncError = unreachableMessage
			}
		}
	}
	e.mu.Unlock()

	call.err = err
	close(call.done)

	switch {
	case err == nil:
		e.log().Info("Refresh complete")
	case errors.Is(err, ErrTenantChanged):
		e.log().Info("Discarded refresh results for previous tenant")
	case gateway.IsTransient(err):
		e.wentOffline(err)
	default:
		e.log().Errorf("Refresh failed: %v", err)
	}
	e.emitStatus()
	return err
}

// join waits for a refresh started by someone else. A manual caller shows
// its own loading indicator for as long as it waits.
func (e *Engine) join(ctx context.Context, call *refreshCall, sess session, manual bool) error {
	if manual {
		e.setLoading(sess, true)
		defer e.setLoading(sess, false)
	}
	select {
	case <-call.done:
		return call.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) setLoading(sess session, loading bool) {
	e.mu.Lock()
	if e.generation != sess.gen {
		e.mu.Unlock()
		return
	}
	e.status.IsLoading = loading
	e.mu.Unlock()
	e.emitStatus()
}

type fetched struct {
	categories []models.CategoryRecord
	menuItems  []models.MenuItemRecord
	orders     []models.OrderRecord
	brand      []models.BrandSettingsRecord
}

// fetchAndApply runs the four fetches in parallel. Nothing is applied
// unless all of them succeed and the tenant is unchanged.
func (e *Engine) fetchAndApply(ctx context.Context, sess session) error {
	var res fetched
	g, gctx := errgroup.WithContext(sess.remote(ctx))
	g.Go(func() error {
		recs, err := e.gw.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("fetch categories: %w", err)
		}
		res.categories = recs
		return nil
	})
	g.Go(func() error {
		recs, err := e.gw.ListMenuItems(gctx)
		if err != nil {
			return fmt.Errorf("fetch menu items: %w", err)
		}
		res.menuItems = recs
		return nil
	})
	g.Go(func() error {
		recs, err := e.gw.ListOrders(gctx)
		if err != nil {
			return fmt.Errorf("fetch orders: %w", err)
		}
		res.orders = recs
		return nil
	})
	g.Go(func() error {
		recs, err := e.gw.GetBrandSettings(gctx)
		if err != nil {
			return fmt.Errorf("fetch brand settings: %w", err)
		}
		res.brand = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	categories := toCategories(res.categories)
	menuItems := toMenuItems(res.menuItems, categoryNames(categories))
	orders := toOrders(res.orders)

	// Applied under mu so an identity switch cannot interleave.
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != sess.gen {
		return ErrTenantChanged
	}

	e.store.SetCategories(categories)
	e.store.SetMenuItems(menuItems)
	e.store.SetOrders(orders)
	e.cache.Save(cache.KindCategories, categories, sess.tenantID)
	e.cache.Save(cache.KindMenuItems, menuItems, sess.tenantID)
	e.cache.Save(cache.KindOrders, orders, sess.tenantID)
	if len(res.brand) > 0 {
		brand := toBrand(res.brand[0])
		e.store.SetBrand(brand)
		e.cache.Save(cache.KindBrand, brand, sess.tenantID)
	}
	e.cache.SetLastSyncTime(sess.tenantID)
	return nil
}
