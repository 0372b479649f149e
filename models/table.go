package models

import (
	"time"

	"gorm.io/gorm"
)

type Table struct {
	ID               string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID     string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_restaurant_number;index" json:"restaurant_id"`
	Number           int       `gorm:"not null;uniqueIndex:idx_restaurant_number" json:"number"`
	CurrentSessionID *string   `gorm:"type:varchar(36);index" json:"current_session_id"`
	URL              string    `gorm:"type:varchar(255)" json:"url,omitempty"`
	IsActive         bool      `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = newID()
	}
	return nil
}

// HasSession reports whether the table points at the given session.
func (t *Table) HasSession(sessionID string) bool {
	return t.CurrentSessionID != nil && *t.CurrentSessionID == sessionID
}
