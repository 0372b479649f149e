package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderPrepStatus is the kitchen preparation state of an order line.
type OrderPrepStatus string

const (
	PrepQueued     OrderPrepStatus = "queued"
	PrepInProgress OrderPrepStatus = "in_progress"
	PrepReady      OrderPrepStatus = "ready"
	PrepServed     OrderPrepStatus = "served"
	PrepCancelled  OrderPrepStatus = "cancelled"
)

func (s OrderPrepStatus) Valid() bool {
	switch s {
	case PrepQueued, PrepInProgress, PrepReady, PrepServed, PrepCancelled:
		return true
	}
	return false
}

func ParseOrderPrepStatus(raw string) (OrderPrepStatus, error) {
	s := OrderPrepStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown order prep status %q", raw)
	}
	return s, nil
}

type CustomizationSelection struct {
	RuleName        string   `json:"rule_name"`
	SelectedOptions []string `json:"selected_options"`
}

// Order is a single line item placed within a table session.
type Order struct {
	ID              string                                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	SessionID       string                                      `gorm:"type:varchar(36);not null;index" json:"session_id"`
	RestaurantID    string                                      `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	ItemID          string                                      `gorm:"type:varchar(36);not null" json:"item_id"`
	OrderedItemName string                                      `gorm:"type:varchar(255)" json:"ordered_item_name"`
	Quantity        int                                         `gorm:"not null" json:"quantity"`
	UnitPrice       float64                                     `gorm:"type:decimal(10,2);not null;default:0" json:"unit_price"`
	Total           float64                                     `gorm:"type:decimal(12,2);not null;default:0" json:"total"`
	TableNumber     int                                         `json:"table_number"`
	PrepStatus      OrderPrepStatus                             `gorm:"type:varchar(20);not null;default:'queued';index" json:"prep_status"`
	IsDelivered     bool                                        `gorm:"not null;default:false" json:"is_delivered"`
	Customizations  datatypes.JSONSlice[CustomizationSelection] `json:"customizations"`
	AdditionalNote  *string                                     `gorm:"type:text" json:"additional_note,omitempty"`
	OrderTime       time.Time                                   `gorm:"not null;index" json:"order_time"`
	CreatedAt       time.Time                                   `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                                   `gorm:"not null" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = newID()
	}
	if o.Customizations == nil {
		o.Customizations = datatypes.JSONSlice[CustomizationSelection]{}
	}
	return nil
}

func (o *Order) IsCancelled() bool {
	return o.PrepStatus == PrepCancelled
}
