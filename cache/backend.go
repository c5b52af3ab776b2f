package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/yeremiapane/pos-sync/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Backend is the durable key-value layer under the cache store.
type Backend interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// GormBackend keeps entries in the terminal-local SQLite database.
type GormBackend struct {
	DB *gorm.DB
}

func NewGormBackend(db *gorm.DB) *GormBackend {
	return &GormBackend{DB: db}
}

func (b *GormBackend) Get(key string) ([]byte, bool, error) {
	var entry models.CacheEntry
	err := b.DB.Where("cache_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return entry.Value, true, nil
}

func (b *GormBackend) Set(key string, value []byte) error {
	entry := models.CacheEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	}
	return b.DB.Clauses(clause.OnConflict{UpdateAll: true}).Create(&entry).Error
}

func (b *GormBackend) Delete(key string) error {
	return b.DB.Where("cache_key = ?", key).Delete(&models.CacheEntry{}).Error
}

// MemoryBackend is a process-local backend, used when no cache file is
// configured and in tests.
type MemoryBackend struct {
	data map[string][]byte
	mu   sync.Mutex
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *MemoryBackend) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryBackend) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
