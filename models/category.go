package models

import "time"

type Category struct {
	ID   EntityID `json:"id"`
	Name string   `json:"name"`
	Icon string   `json:"icon"`
}

// CategoryRecord is the remote row. Color carries the icon chosen in the UI.
type CategoryRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Color     string    `gorm:"type:varchar(100)" json:"color"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CategoryRecord) TableName() string { return "categories" }
