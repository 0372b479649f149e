package services

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/models"
)

type broadcastCall struct {
	RestaurantID string
	Category     string
	Event        string
	Data         interface{}
}

type recordingHub struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (h *recordingHub) Broadcast(restaurantID, category, event string, data interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, broadcastCall{restaurantID, category, event, data})
}

func (h *recordingHub) events(category string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, c := range h.calls {
		if c.Category == category {
			out = append(out, c.Event)
		}
	}
	return out
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testEnv struct {
	db          *gorm.DB
	hub         *recordingHub
	events      *recordingPublisher
	invoices    *InvoiceService
	sessions    *SessionService
	tables      *TableService
	orders      *OrderService
	stock       *StockService
	recipes     *RecipeService
	restaurants *RestaurantService
	diagnostics *DiagnosticsService
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	hub := &recordingHub{}
	events := &recordingPublisher{}
	notify := NewNotifier(hub, events)

	invoices := NewInvoiceService(db)
	sessions := NewSessionService(db, invoices, notify)
	stock := NewStockService(db)
	recipes := NewRecipeService(db)
	return &testEnv{
		db:          db,
		hub:         hub,
		events:      events,
		invoices:    invoices,
		sessions:    sessions,
		tables:      NewTableService(db, sessions, "https://pos.test/t"),
		orders:      NewOrderService(db, sessions, stock, recipes, notify),
		stock:       stock,
		recipes:     recipes,
		restaurants: NewRestaurantService(db),
		diagnostics: NewDiagnosticsService(db),
	}
}

func (e *testEnv) restaurant(t *testing.T) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{Name: "Casa Luanda"}
	require.NoError(t, e.restaurants.CreateRestaurant(context.Background(), r))
	return r
}

func (e *testEnv) table(t *testing.T, restaurantID string, number int) *models.Table {
	t.Helper()
	table, err := e.tables.CreateTable(context.Background(), restaurantID, number)
	require.NoError(t, err)
	return table
}

func (e *testEnv) menuItem(t *testing.T, restaurantID, name string, price float64) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{RestaurantID: restaurantID, Name: name, Price: price, IsAvailable: true}
	require.NoError(t, e.restaurants.CreateMenuItem(context.Background(), item))
	return item
}

func (e *testEnv) reloadTable(t *testing.T, id string) *models.Table {
	t.Helper()
	table, err := e.tables.GetTable(context.Background(), id)
	require.NoError(t, err)
	return table
}

func (e *testEnv) reloadSession(t *testing.T, id string) *models.TableSession {
	t.Helper()
	session, err := e.sessions.GetSession(context.Background(), id)
	require.NoError(t, err)
	return session
}

func (e *testEnv) openSessionCount(t *testing.T, tableID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.TableSession{}).
		Where("table_id = ? AND status IN ?", tableID, models.OpenSessionStatuses).
		Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }
