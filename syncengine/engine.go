// Package syncengine keeps the reactive state store, the local cache and the
// remote store convergent for one terminal session: it resolves the
// effective tenant, hydrates from cache, refreshes from the remote in the
// background, and applies mutations optimistically with rollback.
package syncengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-sync/cache"
	"github.com/yeremiapane/pos-sync/gateway"
	"github.com/yeremiapane/pos-sync/models"
	"github.com/yeremiapane/pos-sync/state"
	"github.com/yeremiapane/pos-sync/utils"
)

var (
	ErrNoTenant          = errors.New("effective tenant not resolved")
	ErrOffline           = errors.New("offline")
	ErrTenantChanged     = errors.New("tenant changed during refresh")
	ErrNotFound          = errors.New("entity not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrDuplicateCategory = errors.New("category already exists")
	ErrNegativeStock     = errors.New("stock cannot be negative")
	ErrUnsavedCategory   = errors.New("category is not saved yet")
)

const (
	staleCacheMessage  = "Offline: cached data is older than 48 hours and may be out of date"
	noCacheMessage     = "Offline: no cached data available for this restaurant yet"
	unreachableMessage = "Unable to reach the server; showing cached data"
)

type SyncState string

const (
	StateIdle          SyncState = "idle"
	StateCacheHydrated SyncState = "cache-hydrated"
	StateSyncing       SyncState = "syncing"
	StateSynced        SyncState = "synced"
	StateSyncFailed    SyncState = "sync-failed"
)

// Connectivity reports whether the remote is believed reachable.
type Connectivity interface {
	Online() bool
}

// offlineReporter is implemented by monitors that accept failure hints.
type offlineReporter interface {
	MarkOffline()
}

type Identity struct {
	UserID string `json:"userId"`
}

type Status struct {
	State     SyncState  `json:"state"`
	TenantID  string     `json:"tenantId,omitempty"`
	IsLoading bool       `json:"isLoading"`
	IsSynced  bool       `json:"isSynced"`
	IsOnline  bool       `json:"isOnline"`
	SyncError string     `json:"syncError,omitempty"`
	LastSync  *time.Time `json:"lastSync,omitempty"`
}

type Config struct {
	SyncInterval time.Duration
	Cooldown     time.Duration
	Now          func() time.Time
}

func DefaultConfig() Config {
	return Config{
		SyncInterval: 5 * time.Minute,
		Cooldown:     30 * time.Second,
		Now:          time.Now,
	}
}

type refreshCall struct {
	gen  uint64
	done chan struct{}
	err  error
}

type Engine struct {
	gw    gateway.Gateway
	cache *cache.Store
	store *state.Store
	net   Connectivity
	cfg   Config

	mu          sync.Mutex
	userID      string
	tenantID    string
	pendingUser string
	generation  uint64
	inflight    *refreshCall
	status      Status
	onStatus    func(Status)

	bg      sync.WaitGroup
	stopCh  chan struct{}
	stopped sync.Once
}

func New(gw gateway.Gateway, c *cache.Store, store *state.Store, net Connectivity, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = def.SyncInterval
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	if cfg.Now == nil {
		cfg.Now = def.Now
	}
	return &Engine{
		gw:     gw,
		cache:  c,
		store:  store,
		net:    net,
		cfg:    cfg,
		status: Status{State: StateIdle},
		stopCh: make(chan struct{}),
	}
}

func (e *Engine) Store() *state.Store { return e.store }

// OnStatusChange registers a listener called after every status transition.
func (e *Engine) OnStatusChange(fn func(Status)) {
	e.mu.Lock()
	e.onStatus = fn
	e.mu.Unlock()
}

func (e *Engine) Status() Status {
	e.mu.Lock()
	st := e.status
	e.mu.Unlock()
	st.IsOnline = e.online()
	return st
}

func (e *Engine) TenantID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tenantID
}

func (e *Engine) online() bool {
	return e.net == nil || e.net.Online()
}

func (e *Engine) emitStatus() {
	e.mu.Lock()
	fn := e.onStatus
	e.mu.Unlock()
	if fn != nil {
		fn(e.Status())
	}
}

func (e *Engine) log() *logrus.Entry {
	return utils.InfoLogger.WithField("tenant", e.TenantID())
}

// session captures the tenant a call started under.
type session struct {
	userID   string
	tenantID string
	gen      uint64
}

func (e *Engine) currentSession() (session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tenantID == "" {
		return session{}, ErrNoTenant
	}
	return session{userID: e.userID, tenantID: e.tenantID, gen: e.generation}, nil
}

func (e *Engine) isCurrent(s session) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation == s.gen
}

// applyIfCurrent runs fn while holding the session lock, so a tenant switch
// cannot reset the store between the check and the write.
func (e *Engine) applyIfCurrent(s session, fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.generation != s.gen {
		return ErrTenantChanged
	}
	return fn()
}

// SessionUser is the user the engine currently serves, including one whose
// tenant could not be resolved yet. Empty when signed out.
func (e *Engine) SessionUser() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.userID != "" {
		return e.userID
	}
	return e.pendingUser
}

// remote scopes ctx for the gateway: the caller is always the signed-in
// user; staff additionally name the owner whose data they operate on.
func (s session) remote(ctx context.Context) context.Context {
	ctx = gateway.WithCaller(ctx, s.userID)
	if s.tenantID != s.userID {
		ctx = gateway.WithOwnerOverride(ctx, s.tenantID)
	}
	return ctx
}

func (e *Engine) wentOffline(err error) {
	e.log().Warnf("Remote unreachable, keeping local state: %v", err)
	if r, ok := e.net.(offlineReporter); ok {
		r.MarkOffline()
	}
}

func (e *Engine) goBackground(fn func()) {
	e.bg.Add(1)
	go func() {
		defer e.bg.Done()
		fn()
	}()
}

// Wait blocks until background hydrate/refresh work started so far is done.
func (e *Engine) Wait() {
	e.bg.Wait()
}

// SetIdentity switches the session to userID. The effective tenant is
// resolved first; when it differs from the previous one the state store is
// reset before anything is loaded. Hydration happens before returning and
// the follow-up refresh runs in the background.
func (e *Engine) SetIdentity(ctx context.Context, id Identity) error {
	if id.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidInput)
	}

	tenant, err := e.resolveTenant(ctx, id.UserID)
	if err != nil {
		e.mu.Lock()
		if e.tenantID != "" && e.userID != id.UserID {
			e.store.Reset()
		}
		if e.userID != id.UserID {
			e.tenantID = ""
			e.userID = ""
			e.generation++
			e.inflight = nil
			e.status = Status{State: StateIdle}
		}
		e.pendingUser = id.UserID
		e.mu.Unlock()
		utils.ErrorLogger.WithField("user", id.UserID).Errorf("Tenant resolution failed, sync withheld: %v", err)
		e.emitStatus()
		return err
	}

	e.mu.Lock()
	switched := e.tenantID != tenant
	if switched && e.tenantID != "" {
		e.store.Reset()
	}
	e.userID = id.UserID
	e.pendingUser = ""
	if switched {
		e.tenantID = tenant
		e.generation++
		e.inflight = nil
		e.status = Status{State: StateIdle, TenantID: tenant}
	}
	e.mu.Unlock()

	e.log().WithField("user", id.UserID).Info("Session identity set")
	e.mount(ctx)
	return nil
}

func (e *Engine) resolveTenant(ctx context.Context, userID string) (string, error) {
	if !e.online() {
		if tenant, ok := e.cache.LoadTenant(userID); ok {
			return tenant, nil
		}
		return "", fmt.Errorf("%w: offline with no remembered tenant for %s", ErrNoTenant, userID)
	}

	staff, err := e.gw.LookupStaff(gateway.WithCaller(ctx, userID), userID)
	if err != nil {
		if gateway.IsTransient(err) {
			e.wentOffline(err)
			if tenant, ok := e.cache.LoadTenant(userID); ok {
				return tenant, nil
			}
		}
		return "", fmt.Errorf("%w: %v", ErrNoTenant, err)
	}

	tenant := userID
	if staff != nil && staff.Role != models.RoleOwner && staff.OwnerID != "" {
		tenant = staff.OwnerID
	}
	e.cache.SaveTenant(userID, tenant)
	return tenant, nil
}

// retryIdentity re-attempts a resolution that failed earlier.
func (e *Engine) retryIdentity(ctx context.Context) bool {
	e.mu.Lock()
	pending := e.pendingUser
	e.mu.Unlock()
	if pending == "" {
		return false
	}
	if err := e.SetIdentity(ctx, Identity{UserID: pending}); err != nil {
		e.log().Debugf("Tenant resolution retry failed: %v", err)
	}
	return true
}

// Logout forgets the session and drops the tenant's cached data.
func (e *Engine) Logout() {
	e.mu.Lock()
	tenant := e.tenantID
	e.tenantID = ""
	e.userID = ""
	e.pendingUser = ""
	e.generation++
	e.inflight = nil
	e.status = Status{State: StateIdle}
	e.store.Reset()
	e.mu.Unlock()

	if tenant != "" {
		e.cache.Clear(tenant)
	}
	utils.InfoLogger.WithField("tenant", tenant).Info("Session logged out")
	e.emitStatus()
}

// mount runs the entry trigger: hydrate, then refresh if the cache is not
// fresh.
func (e *Engine) mount(ctx context.Context) {
	fresh := e.Hydrate()
	if fresh {
		return
	}
	if !e.online() {
		e.flagOfflineStaleness()
		return
	}
	bgCtx := context.WithoutCancel(ctx)
	e.goBackground(func() {
		if err := e.Refresh(bgCtx, false); err != nil && !errors.Is(err, ErrTenantChanged) {
			e.log().Debugf("Mount refresh: %v", err)
		}
	})
}

// Start runs the periodic and connectivity-driven triggers until Stop or
// ctx is done. transitions may be nil.
func (e *Engine) Start(ctx context.Context, transitions <-chan bool) {
	e.goBackground(func() {
		ticker := time.NewTicker(e.cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				e.tick(ctx)
			case online, ok := <-transitions:
				if !ok {
					transitions = nil
					continue
				}
				e.HandleConnectivity(ctx, online)
			case <-e.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	})
}

func (e *Engine) Stop() {
	e.stopped.Do(func() { close(e.stopCh) })
	e.bg.Wait()
}

func (e *Engine) tick(ctx context.Context) {
	if e.retryIdentity(ctx) {
		return
	}
	if !e.online() {
		return
	}
	if err := e.Refresh(ctx, false); err != nil && !errors.Is(err, ErrNoTenant) {
		e.log().Debugf("Periodic refresh: %v", err)
	}
}

// HandleConnectivity reacts to a network transition. Coming back online
// forces a refresh since the suppression window no longer says anything
// about what the remote holds.
func (e *Engine) HandleConnectivity(ctx context.Context, online bool) {
	e.emitStatus()
	if !online {
		e.flagOfflineStaleness()
		return
	}
	if e.retryIdentity(ctx) {
		return
	}
	if err := e.Refresh(ctx, true); err != nil && !errors.Is(err, ErrNoTenant) {
		e.log().Warnf("Reconnect refresh: %v", err)
	}
}
