package models

import (
	"time"

	"gorm.io/gorm"
)

// MenuItem is an orderable item; orders snapshot its name and price.
type MenuItem struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string    `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	Name         string    `gorm:"type:varchar(255);not null" json:"name"`
	Price        float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	IsAvailable  bool      `gorm:"not null;default:true" json:"is_available"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null" json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
