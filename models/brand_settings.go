package models

import "time"

type BrandSettings struct {
	Name          string  `json:"name"`
	Currency      string  `json:"currency"`
	Address       string  `json:"address,omitempty"`
	Phone         string  `json:"phone,omitempty"`
	UPIID         string  `json:"upiId,omitempty"`
	GSTEnabled    bool    `json:"gstEnabled"`
	GSTNumber     string  `json:"gstNumber,omitempty"`
	CGSTRate      float64 `json:"cgstRate"`
	SGSTRate      float64 `json:"sgstRate"`
	ShowLogo      bool    `json:"showLogo"`
	ShowAddress   bool    `json:"showAddress"`
	ShowGSTNumber bool    `json:"showGstNumber"`
	FooterNote    string  `json:"footerNote,omitempty"`
}

func DefaultBrandSettings() BrandSettings {
	return BrandSettings{
		Name:        "My Restaurant",
		Currency:    "INR",
		CGSTRate:    2.5,
		SGSTRate:    2.5,
		ShowAddress: true,
	}
}

// BrandSettingsRecord is a singleton per owner.
type BrandSettingsRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       string    `gorm:"type:varchar(64);not null;uniqueIndex" json:"owner_id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	Currency      string    `gorm:"type:varchar(10);not null;default:'INR'" json:"currency"`
	Address       string    `gorm:"type:text" json:"address"`
	Phone         string    `gorm:"type:varchar(30)" json:"phone"`
	UPIID         string    `gorm:"type:varchar(100)" json:"upi_id"`
	GSTEnabled    bool      `gorm:"not null" json:"gst_enabled"`
	GSTNumber     string    `gorm:"type:varchar(30)" json:"gst_number"`
	CGSTRate      float64   `gorm:"type:decimal(5,2);not null;default:0" json:"cgst_rate"`
	SGSTRate      float64   `gorm:"type:decimal(5,2);not null;default:0" json:"sgst_rate"`
	ShowLogo      bool      `gorm:"not null" json:"show_logo"`
	ShowAddress   bool      `gorm:"not null" json:"show_address"`
	ShowGSTNumber bool      `gorm:"not null" json:"show_gst_number"`
	FooterNote    string    `gorm:"type:text" json:"footer_note"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (BrandSettingsRecord) TableName() string { return "brand_settings" }
