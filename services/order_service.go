package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// PlaceOrderRequest targets either an explicit session or a
// restaurant + table number pair.
type PlaceOrderRequest struct {
	SessionID       *string                         `json:"session_id,omitempty"`
	RestaurantID    string                          `json:"restaurant_id"`
	TableNumber     int                             `json:"table_number"`
	ItemID          string                          `json:"item_id"`
	OrderedItemName string                          `json:"ordered_item_name"`
	UnitPrice       float64                         `json:"unit_price"`
	Quantity        int                             `json:"quantity"`
	Customizations  []models.CustomizationSelection `json:"customizations"`
	AdditionalNote  *string                         `json:"additional_note,omitempty"`
}

func (r PlaceOrderRequest) validate() error {
	if r.ItemID == "" {
		return validationError("item_id is required")
	}
	if r.Quantity < 1 {
		return validationError("quantity must be at least 1")
	}
	if r.SessionID == nil {
		if r.RestaurantID == "" {
			return validationError("restaurant_id is required without a session")
		}
		if r.TableNumber < 1 {
			return validationError("table_number is required without a session")
		}
	}
	return nil
}

const DefaultRecentOrdersHours = 3

type OrderService struct {
	db       *gorm.DB
	sessions *SessionService
	stock    *StockService
	recipes  *RecipeService
	notify   *Notifier
}

func NewOrderService(db *gorm.DB, sessions *SessionService, stock *StockService, recipes *RecipeService, notify *Notifier) *OrderService {
	if notify == nil {
		notify = NewNotifier(nil, nil)
	}
	return &OrderService{db: db, sessions: sessions, stock: stock, recipes: recipes, notify: notify}
}

func lineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).Mul(decimal.NewFromInt(int64(quantity))).Round(2).InexactFloat64()
}

// targetSessionTx resolves where an order goes. An explicit session must be
// open; otherwise the table's open session is used or created.
func (s *OrderService) targetSessionTx(tx *gorm.DB, req PlaceOrderRequest, hooks *afterCommit) (*models.TableSession, *models.Table, error) {
	if req.SessionID != nil {
		session, err := loadSessionTx(tx, *req.SessionID)
		if err != nil {
			return nil, nil, err
		}
		if session.Status.IsTerminal() {
			return nil, nil, invalidTransition("cannot add orders to session %s: status is %s", session.ID, session.Status)
		}
		var table models.Table
		if err := tx.First(&table, "id = ?", session.TableID).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, fmt.Errorf("failed to fetch table: %w", err)
		}
		return session, &table, nil
	}

	table, err := tableByNumberTx(tx, req.RestaurantID, req.TableNumber)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.sessions.resolveOpenTx(tx, table, true, hooks)
	if err != nil {
		return nil, nil, err
	}
	return session, table, nil
}

// PlaceOrder persists one order line and attaches it to its session. Stock
// deduction runs after commit and never fails the order.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hooks := &afterCommit{}
	var order *models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, table, err := s.targetSessionTx(tx, req, hooks)
		if err != nil {
			return err
		}

		name, price := req.OrderedItemName, req.UnitPrice
		var item models.MenuItem
		err = tx.First(&item, "id = ? AND restaurant_id = ?", req.ItemID, session.RestaurantID).Error
		switch {
		case err == nil:
			name, price = item.Name, item.Price
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to fetch item: %w", err)
		}
		if price < 0 {
			return validationError("unit price cannot be negative")
		}

		tableNumber := req.TableNumber
		if table != nil && table.ID != "" {
			tableNumber = table.Number
		}

		order = &models.Order{
			SessionID:       session.ID,
			RestaurantID:    session.RestaurantID,
			ItemID:          req.ItemID,
			OrderedItemName: name,
			Quantity:        req.Quantity,
			UnitPrice:       price,
			Total:           lineTotal(price, req.Quantity),
			TableNumber:     tableNumber,
			PrepStatus:      models.PrepQueued,
			Customizations:  datatypes.JSONSlice[models.CustomizationSelection](req.Customizations),
			AdditionalNote:  req.AdditionalNote,
			OrderTime:       time.Now(),
		}
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}
		if _, err := s.sessions.addOrderTx(tx, session, order.ID); err != nil {
			return err
		}

		placed, snapshot := *order, *session
		hooks.add(func() {
			s.notify.broadcast(placed.RestaurantID, realtime.CategoryOrder, realtime.EventOrderCreated, &placed)
			s.notify.sessionUpdated(&snapshot)
			s.notify.publish(DomainEvent{
				Type:         EventOrderPlaced,
				RestaurantID: placed.RestaurantID,
				TableID:      snapshot.TableID,
				SessionID:    placed.SessionID,
				OrderID:      placed.ID,
				Total:        &placed.Total,
			})
		})
		hooks.add(func() { s.deductStock(context.Background(), &placed) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	hooks.run()
	return order, nil
}

// PlaceOrders places each request in turn. Without a session id the session
// the first order lands in is reused for the rest. Orders placed before a
// failure are kept and returned with the error.
func (s *OrderService) PlaceOrders(ctx context.Context, reqs []PlaceOrderRequest, sessionID *string) ([]models.Order, error) {
	placed := make([]models.Order, 0, len(reqs))
	for i, req := range reqs {
		if sessionID != nil {
			req.SessionID = sessionID
		}
		order, err := s.PlaceOrder(ctx, req)
		if err != nil {
			return placed, fmt.Errorf("order %d: %w", i+1, err)
		}
		placed = append(placed, *order)
		if sessionID == nil {
			id := order.SessionID
			sessionID = &id
		}
	}
	return placed, nil
}

// deductStock is best-effort; every failure is logged and skipped.
func (s *OrderService) deductStock(ctx context.Context, order *models.Order) {
	if s.stock == nil || s.recipes == nil {
		return
	}

	var restaurant models.Restaurant
	if err := s.db.WithContext(ctx).First(&restaurant, "id = ?", order.RestaurantID).Error; err != nil {
		utils.ErrorLogger.Errorf("stock deduction skipped for order %s: %v", order.ID, err)
		return
	}
	if !restaurant.AutoStockAdjustment {
		return
	}

	recipe, err := s.recipes.GetRecipeByMenuItem(ctx, order.ItemID, order.RestaurantID)
	if err != nil {
		utils.ErrorLogger.Errorf("stock deduction skipped for order %s: %v", order.ID, err)
		return
	}
	if recipe == nil {
		return
	}

	servings := decimal.NewFromInt(int64(recipe.Servings))
	if recipe.Servings < 1 {
		servings = decimal.NewFromInt(1)
	}
	reason := fmt.Sprintf("order %s", order.ID)

	for _, ing := range recipe.Ingredients {
		qty := decimal.NewFromFloat(ing.Quantity).Mul(decimal.NewFromInt(int64(order.Quantity))).Div(servings)
		if !qty.IsPositive() {
			continue
		}

		stockID := ing.ProductID
		if stockID != "" {
			if _, err := s.stock.GetStockItem(ctx, stockID); err != nil {
				stockID = ""
			}
		}
		if stockID == "" && strings.TrimSpace(ing.ProductName) != "" {
			match, err := s.stock.FindStockItemByName(ctx, order.RestaurantID, ing.ProductName)
			if err != nil {
				utils.ErrorLogger.Errorf("stock lookup for %q failed: %v", ing.ProductName, err)
				continue
			}
			if match != nil {
				stockID = match.ID
			}
		}
		if stockID == "" {
			utils.ErrorLogger.Errorf("no stock item for ingredient %q of %s", ing.ProductName, recipe.DishName)
			continue
		}

		if _, err := s.stock.RemoveStock(ctx, stockID, qty.InexactFloat64(), reason, "system"); err != nil {
			utils.ErrorLogger.Errorf("failed to deduct %s for order %s: %v", ing.ProductName, order.ID, err)
		}
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrOrderNotFound, "order")
	}
	return &order, nil
}

func (s *OrderService) updateOrder(ctx context.Context, id string, fields map[string]interface{}) (*models.Order, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(order).Updates(fields).Error; err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	if err := s.db.WithContext(ctx).First(order, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	s.notify.broadcast(order.RestaurantID, realtime.CategoryOrder, realtime.EventOrderUpdated, order)
	return order, nil
}

// UpdateOrderPrepStatus accepts any status from any status.
func (s *OrderService) UpdateOrderPrepStatus(ctx context.Context, id string, status models.OrderPrepStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, validationError("unknown prep status %q", status)
	}
	return s.updateOrder(ctx, id, map[string]interface{}{"prep_status": status})
}

func (s *OrderService) MarkOrderDelivered(ctx context.Context, id string) (*models.Order, error) {
	return s.updateOrder(ctx, id, map[string]interface{}{"is_delivered": true})
}

func (s *OrderService) CancelOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.updateOrder(ctx, id, map[string]interface{}{"prep_status": models.PrepCancelled})
}

func (s *OrderService) ListOrdersForSession(ctx context.Context, sessionID string) ([]models.Order, error) {
	return sessionOrdersTx(s.db.WithContext(ctx), sessionID)
}

func (s *OrderService) ListOrdersForRestaurant(ctx context.Context, restaurantID string) ([]models.Order, error) {
	var orders []models.Order
	if err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("order_time desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListOrdersByPrepStatus filters by restaurant too when restaurantID is set.
func (s *OrderService) ListOrdersByPrepStatus(ctx context.Context, status models.OrderPrepStatus, restaurantID string) ([]models.Order, error) {
	if !status.Valid() {
		return nil, validationError("unknown prep status %q", status)
	}
	q := s.db.WithContext(ctx).Where("prep_status = ?", status)
	if restaurantID != "" {
		q = q.Where("restaurant_id = ?", restaurantID)
	}
	var orders []models.Order
	if err := q.Order("order_time asc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListRecentOrders returns orders from the last hours whose session is still
// some table's current session.
func (s *OrderService) ListRecentOrders(ctx context.Context, restaurantID string, hours int) ([]models.Order, error) {
	if hours <= 0 {
		hours = DefaultRecentOrdersHours
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)

	db := s.db.WithContext(ctx)
	current := db.Model(&models.Table{}).
		Select("current_session_id").
		Where("restaurant_id = ? AND current_session_id IS NOT NULL", restaurantID)

	var orders []models.Order
	if err := db.
		Where("restaurant_id = ? AND order_time >= ? AND session_id IN (?)", restaurantID, since, current).
		Order("order_time desc").
		Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list recent orders: %w", err)
	}
	return orders, nil
}
