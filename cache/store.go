// Package cache is the per-tenant, per-kind local persistence layer. Every
// operation is best-effort: failures are logged and reads degrade to misses.
package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/pos-sync/utils"
)

type Kind string

const (
	KindCategories Kind = "categories"
	KindMenuItems  Kind = "menuItems"
	KindOrders     Kind = "orders"
	KindBrand      Kind = "brand"
	KindLastSync   Kind = "lastSync"

	kindTenant Kind = "tenant"
)

// EntityKinds are the collections hydrated and refreshed together.
var EntityKinds = []Kind{KindCategories, KindMenuItems, KindOrders, KindBrand}

const DefaultTTL = 48 * time.Hour

type envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	TenantID  string          `json:"tenantId"`
}

// Entry is a decoded envelope.
type Entry[T any] struct {
	Data          T
	Timestamp     time.Time
	IsValid       bool
	RemainingTime time.Duration
}

type Store struct {
	backend Backend
	ttl     time.Duration
	now     func() time.Time
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func key(tenantID string, kind Kind) string {
	return fmt.Sprintf("pos_cache_%s_%s", tenantID, kind)
}

// IsValid reports whether a capture time is still inside the freshness window.
func (s *Store) IsValid(ts time.Time) bool {
	return s.now().Sub(ts) < s.ttl
}

func (s *Store) TTL() time.Duration { return s.ttl }

// Save wraps data in an envelope stamped with now and the owning tenant.
func (s *Store) Save(kind Kind, data any, tenantID string) {
	if tenantID == "" {
		return
	}
	raw, err := json.Marshal(data)
	if err != nil {
		s.logFailure("encode", kind, tenantID, err)
		return
	}
	env, err := json.Marshal(envelope{
		Data:      raw,
		Timestamp: s.now().UnixMilli(),
		TenantID:  tenantID,
	})
	if err != nil {
		s.logFailure("encode", kind, tenantID, err)
		return
	}
	if err := s.backend.Set(key(tenantID, kind), env); err != nil {
		s.logFailure("write", kind, tenantID, err)
	}
}

func (s *Store) loadEnvelope(kind Kind, tenantID string) (envelope, bool) {
	var env envelope
	if tenantID == "" {
		return env, false
	}
	raw, ok, err := s.backend.Get(key(tenantID, kind))
	if err != nil {
		s.logFailure("read", kind, tenantID, err)
		return env, false
	}
	if !ok {
		return env, false
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logFailure("decode", kind, tenantID, err)
		return env, false
	}
	// Shared storage may hold another tenant's envelope under a colliding key.
	if env.TenantID != tenantID {
		utils.InfoLogger.WithFields(logrus.Fields{
			"kind":   kind,
			"tenant": tenantID,
		}).Warn("Ignoring cache entry owned by another tenant")
		return env, false
	}
	return env, true
}

// Load returns the cached collection of kind for tenantID. ok is false when
// the entry is absent, unreadable, or owned by a different tenant.
func Load[T any](s *Store, kind Kind, tenantID string) (Entry[T], bool) {
	var entry Entry[T]
	env, ok := s.loadEnvelope(kind, tenantID)
	if !ok {
		return entry, false
	}
	if err := json.Unmarshal(env.Data, &entry.Data); err != nil {
		s.logFailure("decode", kind, tenantID, err)
		return Entry[T]{}, false
	}
	entry.Timestamp = time.UnixMilli(env.Timestamp)
	entry.IsValid = s.IsValid(entry.Timestamp)
	if entry.IsValid {
		entry.RemainingTime = s.ttl - s.now().Sub(entry.Timestamp)
	}
	return entry, true
}

func (s *Store) LastSyncTime(tenantID string) (time.Time, bool) {
	env, ok := s.loadEnvelope(KindLastSync, tenantID)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(env.Timestamp), true
}

func (s *Store) SetLastSyncTime(tenantID string) {
	s.Save(KindLastSync, s.now().UnixMilli(), tenantID)
}

// Clear drops every known kind for the tenant. Used on logout only.
func (s *Store) Clear(tenantID string) {
	kinds := make([]Kind, 0, len(EntityKinds)+1)
	kinds = append(kinds, EntityKinds...)
	kinds = append(kinds, KindLastSync)
	for _, kind := range kinds {
		if err := s.backend.Delete(key(tenantID, kind)); err != nil {
			s.logFailure("delete", kind, tenantID, err)
		}
	}
}

// SaveTenant remembers the effective tenant last resolved for a user so an
// offline start can still partition its reads.
func (s *Store) SaveTenant(userID, tenantID string) {
	s.Save(kindTenant, tenantID, userID)
}

func (s *Store) LoadTenant(userID string) (string, bool) {
	entry, ok := Load[string](s, kindTenant, userID)
	if !ok || entry.Data == "" {
		return "", false
	}
	return entry.Data, true
}

func (s *Store) logFailure(op string, kind Kind, tenantID string, err error) {
	utils.ErrorLogger.WithFields(logrus.Fields{
		"op":     op,
		"kind":   kind,
		"tenant": tenantID,
	}).Errorf("Cache %s failed: %v", op, err)
}
