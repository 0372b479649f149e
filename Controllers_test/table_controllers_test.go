package Controllers_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTable(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")

	table := s.createTable(rid, 1)

	assert.Equal(t, rid, table.RestaurantID)
	assert.Equal(t, 1, table.Number)
	assert.True(t, table.IsActive)
	require.NotNil(t, table.CurrentSessionID)
	assert.Equal(t, fmt.Sprintf("https://menu.example.com/%s/%s", rid, table.ID), table.URL)

	w, env := s.do(http.MethodGet, "/api/sessions/"+*table.CurrentSessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	session := decode[sessionBody](t, env)
	assert.Equal(t, "active", session.Status)
	assert.Equal(t, table.ID, session.TableID)
}

func TestCreateTableErrors(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	s.createTable(rid, 1)

	tests := []struct {
		name string
		body gin.H
		code int
	}{
		{"missing number", gin.H{"restaurant_id": rid}, http.StatusBadRequest},
		{"negative number", gin.H{"restaurant_id": rid, "number": -2}, http.StatusBadRequest},
		{"unknown restaurant", gin.H{"restaurant_id": "nope", "number": 1}, http.StatusNotFound},
		{"duplicate number", gin.H{"restaurant_id": rid, "number": 1}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(http.MethodPost, "/api/tables", tt.body)
			assert.Equal(t, tt.code, w.Code, env.Message)
			assert.False(t, env.Status)
		})
	}
}

func TestGetTableNotFound(t *testing.T) {
	s := newTestServer(t, testConfig())

	w, env := s.do(http.MethodGet, "/api/tables/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Status)
}

func TestListTablesForRestaurant(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	other := s.createRestaurant("Diner")
	s.createTable(rid, 1)
	s.createTable(rid, 2)
	s.createTable(other, 1)

	w, env := s.do(http.MethodGet, "/api/tables/restaurant/"+rid, nil)

	require.Equal(t, http.StatusOK, w.Code)
	tables := decode[[]tableBody](t, env)
	require.Len(t, tables, 2)
	assert.Equal(t, 1, tables[0].Number)
	assert.Equal(t, 2, tables[1].Number)
}

func TestUpdateTableStatus(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	table := s.createTable(rid, 1)

	w, _ := s.do(http.MethodPut, "/api/tables/"+table.ID+"/status", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(http.MethodPut, "/api/tables/"+table.ID+"/status", gin.H{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[tableBody](t, env).IsActive)
}

func TestResetAndCleanTable(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	item := s.createItem(rid, "Soup", 4)
	table := s.createTable(rid, 1)
	order := s.placeOrder(rid, 1, item, 1)

	w, env := s.do(http.MethodPost, "/api/tables/"+table.ID+"/clean", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)

	w, env = s.do(http.MethodGet, "/api/orders/"+order.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decode[orderBody](t, env).PrepStatus)

	w, env = s.do(http.MethodPost, "/api/tables/"+table.ID+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	fresh := decode[sessionBody](t, env)
	assert.Equal(t, "active", fresh.Status)
	assert.Empty(t, fresh.Orders)

	w, env = s.do(http.MethodGet, "/api/tables/"+table.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	reloaded := decode[tableBody](t, env)
	require.NotNil(t, reloaded.CurrentSessionID)
	assert.Equal(t, fresh.ID, *reloaded.CurrentSessionID)
}

func TestDeleteTable(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	first := s.createTable(rid, 1)
	s.createTable(rid, 2)

	w, env := s.do(http.MethodDelete, "/api/tables/"+first.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, "Table deleted successfully", env.Message)

	w, _ = s.do(http.MethodGet, "/api/tables/"+first.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodGet, "/api/tables/restaurant/"+rid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tables := decode[[]tableBody](t, env)
	require.Len(t, tables, 1)
	assert.Equal(t, 1, tables[0].Number)
}
