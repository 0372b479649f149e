package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// StockService tracks ingredient quantities and records every movement.
type StockService struct {
	db *gorm.DB
}

func NewStockService(db *gorm.DB) *StockService {
	return &StockService{db: db}
}

func (s *StockService) CreateStockItem(ctx context.Context, item *models.StockItem) error {
	if strings.TrimSpace(item.Name) == "" {
		return validationError("stock item name is required")
	}
	if item.CurrentQuantity < 0 {
		return validationError("stock quantity cannot be negative")
	}
	if err := s.db.WithContext(ctx).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create stock item: %w", err)
	}
	return nil
}

func (s *StockService) GetStockItem(ctx context.Context, id string) (*models.StockItem, error) {
	var item models.StockItem
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrItemNotFound, "stock item")
	}
	return &item, nil
}

func (s *StockService) ListStockItems(ctx context.Context, restaurantID string) ([]models.StockItem, error) {
	var items []models.StockItem
	if err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("name asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock items: %w", err)
	}
	return items, nil
}

// FindStockItemByName matches case-insensitively and ignores surrounding
// spaces. Returns nil when nothing matches.
func (s *StockService) FindStockItemByName(ctx context.Context, restaurantID, name string) (*models.StockItem, error) {
	items, err := s.ListStockItems(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	want := strings.TrimSpace(name)
	for i := range items {
		if strings.EqualFold(strings.TrimSpace(items[i].Name), want) {
			return &items[i], nil
		}
	}
	return nil, nil
}

func (s *StockService) AddStock(ctx context.Context, id string, quantity float64, reason, user string) (*models.StockItem, error) {
	if quantity <= 0 {
		return nil, validationError("quantity must be positive")
	}
	return s.adjust(ctx, id, quantity, models.MovementIn, reason, user)
}

// RemoveStock never takes quantity below zero; the movement records what was
// actually removed.
func (s *StockService) RemoveStock(ctx context.Context, id string, quantity float64, reason, user string) (*models.StockItem, error) {
	if quantity <= 0 {
		return nil, validationError("quantity must be positive")
	}
	return s.adjust(ctx, id, -quantity, models.MovementOut, reason, user)
}

func (s *StockService) adjust(ctx context.Context, id string, delta float64, kind models.MovementType, reason, user string) (*models.StockItem, error) {
	var item models.StockItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&item, "id = ?", id).Error; err != nil {
			return lookupError(err, ErrItemNotFound, "stock item")
		}

		current := decimal.NewFromFloat(item.CurrentQuantity)
		next := current.Add(decimal.NewFromFloat(delta))
		if next.IsNegative() {
			next = decimal.Zero
		}
		moved := next.Sub(current).Abs()

		item.CurrentQuantity = next.InexactFloat64()
		if err := tx.Model(&item).Update("current_quantity", item.CurrentQuantity).Error; err != nil {
			return fmt.Errorf("failed to update stock: %w", err)
		}

		movement := models.StockMovement{
			RestaurantID: item.RestaurantID,
			ProductID:    item.ID,
			ProductName:  item.Name,
			Type:         kind,
			Quantity:     moved.InexactFloat64(),
			Unit:         item.Unit,
			Reason:       reason,
			User:         user,
			Date:         time.Now(),
		}
		if err := tx.Create(&movement).Error; err != nil {
			return fmt.Errorf("failed to record stock movement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *StockService) ListMovements(ctx context.Context, restaurantID string) ([]models.StockMovement, error) {
	var movements []models.StockMovement
	if err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("date desc").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	return movements, nil
}

// RecipeService maps menu items onto stock ingredients.
type RecipeService struct {
	db *gorm.DB
}

func NewRecipeService(db *gorm.DB) *RecipeService {
	return &RecipeService{db: db}
}

func (s *RecipeService) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	if recipe.MenuItemID == "" || recipe.RestaurantID == "" {
		return validationError("recipe needs a restaurant and a menu item")
	}
	if recipe.Servings < 1 {
		recipe.Servings = 1
	}
	for _, ing := range recipe.Ingredients {
		if ing.Quantity <= 0 {
			return validationError("ingredient %q needs a positive quantity", ing.ProductName)
		}
	}
	if err := s.db.WithContext(ctx).Create(recipe).Error; err != nil {
		return fmt.Errorf("failed to create recipe: %w", err)
	}
	return nil
}

// GetRecipeByMenuItem returns nil, nil when the item has no recipe.
func (s *RecipeService) GetRecipeByMenuItem(ctx context.Context, itemID, restaurantID string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.WithContext(ctx).Where("menu_item_id = ? AND restaurant_id = ?", itemID, restaurantID).First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recipe: %w", err)
	}
	return &recipe, nil
}
