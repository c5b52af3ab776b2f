package models

import "time"

const (
	RoleOwner   = "owner"
	RoleManager = "manager"
	RoleCashier = "cashier"
)

type User struct {
	ID        string `gorm:"type:varchar(64);primaryKey"`
	Name      string `gorm:"type:varchar(255); not null"`
	Email     string `gorm:"type:varchar(255); unique;not null"`
	Password  string `gorm:"type:varchar(255); not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StaffMember links a user to the owner whose restaurant they operate.
type StaffMember struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	OwnerID   string    `gorm:"type:varchar(64);not null;index"`
	Role      string    `gorm:"type:varchar(20);not null;default:'cashier'"`
	Active    bool      `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}
