package models

import (
	"encoding/json"
	"time"
)

const (
	DiscountPercentage = "percentage"
	DiscountFixed      = "fixed"

	OrderTypeDineIn   = "dine-in"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"

	OrderStatusCompleted = "completed"
)

// OrderLine is a snapshot of a sold menu item at the time of sale.
type OrderLine struct {
	MenuItemID string  `json:"id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
	Category   string  `json:"category,omitempty"`
}

type Order struct {
	ID            EntityID    `json:"id"`
	Items         []OrderLine `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	Discount      float64     `json:"discount"`
	DiscountType  string      `json:"discountType"`
	CGST          float64     `json:"cgst"`
	SGST          float64     `json:"sgst"`
	Total         float64     `json:"total"`
	Date          time.Time   `json:"date"`
	Status        string      `json:"status"`
	OrderType     string      `json:"orderType"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	TableNumber   string      `json:"tableNumber,omitempty"`
	CustomerName  string      `json:"customerName,omitempty"`
	CustomerPhone string      `json:"customerPhone,omitempty"`
}

// OrderRecord stores the purchased lines as JSON text, like the receipt
// snapshot columns of the POS schema.
type OrderRecord struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OwnerID       string    `gorm:"type:varchar(64);not null;index" json:"owner_id"`
	Items         string    `gorm:"type:text;not null" json:"items"`
	Subtotal      float64   `gorm:"type:decimal(10,2);not null;default:0" json:"subtotal"`
	Discount      float64   `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	DiscountType  string    `gorm:"type:varchar(20)" json:"discount_type"`
	CGST          float64   `gorm:"type:decimal(10,2);not null;default:0" json:"cgst"`
	SGST          float64   `gorm:"type:decimal(10,2);not null;default:0" json:"sgst"`
	Total         float64   `gorm:"type:decimal(10,2);not null" json:"total"`
	PaymentMethod string    `gorm:"type:varchar(20);not null;default:'cash'" json:"payment_method"`
	Status        string    `gorm:"type:varchar(20);not null;default:'completed'" json:"status"`
	OrderType     string    `gorm:"type:varchar(20)" json:"order_type"`
	TableNumber   string    `gorm:"type:varchar(20)" json:"table_number"`
	CustomerName  string    `gorm:"type:varchar(255)" json:"customer_name"`
	CustomerPhone string    `gorm:"type:varchar(30)" json:"customer_phone"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
}

func (OrderRecord) TableName() string { return "orders" }

func (o *OrderRecord) SetLines(lines []OrderLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	o.Items = string(data)
	return nil
}

// Lines decodes the stored snapshot; a malformed column yields no lines.
func (o *OrderRecord) Lines() []OrderLine {
	var lines []OrderLine
	if o.Items == "" {
		return lines
	}
	if err := json.Unmarshal([]byte(o.Items), &lines); err != nil {
		return nil
	}
	return lines
}
