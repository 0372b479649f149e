package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type StockItem struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID    string    `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	Name            string    `gorm:"type:varchar(255);not null;index" json:"name"`
	Unit            string    `gorm:"type:varchar(20)" json:"unit"`
	CurrentQuantity float64   `gorm:"not null;default:0" json:"current_quantity"`
	MinQuantity     float64   `gorm:"not null;default:0" json:"min_quantity"`
	CreatedAt       time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null" json:"updated_at"`
}

func (s *StockItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	return nil
}

type RecipeIngredient struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// Recipe maps a menu item onto the stock it consumes per unit ordered.
type Recipe struct {
	ID           string                                `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string                                `gorm:"type:varchar(36);not null;index:idx_recipe_item" json:"restaurant_id"`
	MenuItemID   string                                `gorm:"type:varchar(36);not null;index:idx_recipe_item" json:"menu_item_id"`
	DishName     string                                `gorm:"type:varchar(255)" json:"dish_name"`
	Ingredients  datatypes.JSONSlice[RecipeIngredient] `json:"ingredients"`
	Servings     int                                   `gorm:"not null;default:1" json:"servings"`
	CreatedAt    time.Time                             `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time                             `gorm:"not null" json:"updated_at"`
}

func (r *Recipe) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	return nil
}

type MovementType string

const (
	MovementIn     MovementType = "in"
	MovementOut    MovementType = "out"
	MovementAdjust MovementType = "adjust"
)

type StockMovement struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	RestaurantID string       `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	ProductID    string       `gorm:"type:varchar(36);not null;index" json:"product_id"`
	ProductName  string       `gorm:"type:varchar(255)" json:"product_name"`
	Type         MovementType `gorm:"type:varchar(10);not null" json:"type"`
	Quantity     float64      `gorm:"not null" json:"quantity"`
	Unit         string       `gorm:"type:varchar(20)" json:"unit"`
	Reason       string       `gorm:"type:varchar(255)" json:"reason"`
	User         string       `gorm:"type:varchar(100)" json:"user"`
	Date         time.Time    `gorm:"not null" json:"date"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	return nil
}
