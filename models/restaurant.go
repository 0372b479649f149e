package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Restaurant struct {
	ID                  string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name                string                      `gorm:"type:varchar(255);not null" json:"name"`
	Address             string                      `gorm:"type:varchar(255)" json:"address"`
	PhoneNumber         string                      `gorm:"type:varchar(50)" json:"phone_number"`
	TableIDs            datatypes.JSONSlice[string] `gorm:"column:table_ids" json:"table_ids"`
	AutoStockAdjustment bool                        `gorm:"not null;default:false" json:"auto_stock_adjustment"`
	CreatedAt           time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time                   `gorm:"not null" json:"updated_at"`
}

func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.TableIDs == nil {
		r.TableIDs = datatypes.JSONSlice[string]{}
	}
	return nil
}
