package models

import "time"

// MenuItem carries the category name denormalized at sync time next to the
// category id it was resolved from.
type MenuItem struct {
	ID         EntityID `json:"id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	Category   string   `json:"category"`
	CategoryID string   `json:"categoryId,omitempty"`
	Stock      int      `json:"stock"`
	Image      string   `json:"image,omitempty"`
}

type MenuItemRecord struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	OwnerID    string    `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	CategoryID *uint     `gorm:"index" json:"category_id"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Price      float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock      int       `gorm:"not null;default:0" json:"stock"`
	ImageURL   string    `gorm:"type:varchar(255)" json:"image_url"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (MenuItemRecord) TableName() string { return "menu_items" }

// MenuItemInput is what the gateway needs to create or update a menu item.
type MenuItemInput struct {
	ID         string
	Name       string
	Price      float64
	CategoryID string
	ImageURL   string
	Stock      int
}
