package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "pending"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Invoice is the billing record derived from a session's orders.
type Invoice struct {
	ID            string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID  string                      `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	SessionID     string                      `gorm:"type:varchar(36);not null;index" json:"session_id"`
	OrderIDs      datatypes.JSONSlice[string] `gorm:"column:order_ids" json:"orders"`
	Total         float64                     `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	Status        InvoiceStatus               `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	GeneratedTime time.Time                   `gorm:"not null" json:"generated_time"`
	IsActive      bool                        `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time                   `gorm:"not null" json:"updated_at"`
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = newID()
	}
	if i.OrderIDs == nil {
		i.OrderIDs = datatypes.JSONSlice[string]{}
	}
	return nil
}
