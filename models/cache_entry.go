package models

import "time"

// CacheEntry is one key of the terminal-local cache database.
type CacheEntry struct {
	Key       string    `gorm:"column:cache_key;type:varchar(255);primaryKey"`
	Value     []byte    `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
