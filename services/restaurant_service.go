package services

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// RestaurantService covers the restaurant and menu lookups the lifecycle
// depends on.
type RestaurantService struct {
	db *gorm.DB
}

func NewRestaurantService(db *gorm.DB) *RestaurantService {
	return &RestaurantService{db: db}
}

func (s *RestaurantService) CreateRestaurant(ctx context.Context, restaurant *models.Restaurant) error {
	if strings.TrimSpace(restaurant.Name) == "" {
		return validationError("restaurant name is required")
	}
	if err := s.db.WithContext(ctx).Create(restaurant).Error; err != nil {
		return fmt.Errorf("failed to create restaurant: %w", err)
	}
	return nil
}

func (s *RestaurantService) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrRestaurantNotFound, "restaurant")
	}
	return &restaurant, nil
}

func (s *RestaurantService) SetAutoStockAdjustment(ctx context.Context, id string, enabled bool) (*models.Restaurant, error) {
	restaurant, err := s.GetRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(restaurant).Update("auto_stock_adjustment", enabled).Error; err != nil {
		return nil, fmt.Errorf("failed to update restaurant: %w", err)
	}
	restaurant.AutoStockAdjustment = enabled
	return restaurant, nil
}

func (s *RestaurantService) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return validationError("item name is required")
	}
	if item.Price < 0 {
		return validationError("item price cannot be negative")
	}
	if _, err := s.GetRestaurant(ctx, item.RestaurantID); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create item: %w", err)
	}
	return nil
}

func (s *RestaurantService) GetMenuItem(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrItemNotFound, "item")
	}
	return &item, nil
}
