package Controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos/config"
	"github.com/yeremiapane/restaurant-pos/database"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/router"
)

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
	hub    *realtime.Hub
}

func testConfig() config.Config {
	return config.Config{
		Env:               "test",
		CORSOrigins:       []string{"*"},
		TableURLBase:      "https://menu.example.com",
		RecentOrdersHours: 3,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := setupTestDB(t)
	hub := realtime.NewHub()
	return &testServer{t: t, router: router.SetupRouter(cfg, db, hub, nil), db: db, hub: hub}
}

func (s *testServer) do(method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(s.t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") != "application/pdf" {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

type idOnly struct {
	ID string `json:"id"`
}

type tableBody struct {
	ID               string  `json:"id"`
	RestaurantID     string  `json:"restaurant_id"`
	Number           int     `json:"number"`
	CurrentSessionID *string `json:"current_session_id"`
	URL              string  `json:"url"`
	IsActive         bool    `json:"is_active"`
}

type sessionBody struct {
	ID              string   `json:"id"`
	TableID         string   `json:"table_id"`
	Status          string   `json:"status"`
	Orders          []string `json:"orders"`
	InvoiceID       *string  `json:"invoice_id"`
	Total           *float64 `json:"total"`
	NeedsAssistance bool     `json:"needs_assistance"`
}

type transitionBody struct {
	Session     sessionBody  `json:"session"`
	NextSession *sessionBody `json:"next_session"`
	Invoice     *struct {
		ID     string  `json:"id"`
		Total  float64 `json:"total"`
		Status string  `json:"status"`
	} `json:"invoice"`
}

type orderBody struct {
	ID          string  `json:"id"`
	SessionID   string  `json:"session_id"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Total       float64 `json:"total"`
	PrepStatus  string  `json:"prep_status"`
	IsDelivered bool    `json:"is_delivered"`
}

func (s *testServer) createRestaurant(name string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/restaurants", gin.H{"name": name})
	require.Equal(s.t, http.StatusCreated, w.Code, env.Message)
	return decode[idOnly](s.t, env).ID
}

func (s *testServer) createItem(restaurantID, name string, price float64) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/items", gin.H{"restaurant_id": restaurantID, "name": name, "price": price})
	require.Equal(s.t, http.StatusCreated, w.Code, env.Message)
	return decode[idOnly](s.t, env).ID
}

func (s *testServer) createTable(restaurantID string, number int) tableBody {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/tables", gin.H{"restaurant_id": restaurantID, "number": number})
	require.Equal(s.t, http.StatusCreated, w.Code, env.Message)
	return decode[tableBody](s.t, env)
}

func (s *testServer) placeOrder(restaurantID string, tableNumber int, itemID string, qty int) orderBody {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/orders", gin.H{
		"restaurant_id": restaurantID,
		"table_number":  tableNumber,
		"item_id":       itemID,
		"quantity":      qty,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, env.Message)
	return decode[orderBody](s.t, env)
}
