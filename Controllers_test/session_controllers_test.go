package Controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetActiveSessionForRestaurantTable(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	table := s.createTable(rid, 1)

	w, env := s.do(http.MethodGet, "/api/sessions/active/"+rid+"/1", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, *table.CurrentSessionID, decode[sessionBody](t, env).ID)

	w, _ = s.do(http.MethodGet, "/api/sessions/active/"+rid+"/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/sessions/active/"+rid+"/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetActiveSessionForTableCreatesWhenAsked(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	table := s.createTable(rid, 1)

	w, env := s.do(http.MethodPost, "/api/sessions/"+*table.CurrentSessionID+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	out := decode[transitionBody](t, env)
	assert.Equal(t, "cancelled", out.Session.Status)
	require.NotNil(t, out.NextSession)

	// drop the successor so the table has no open session left
	require.NoError(t, s.db.Exec("DELETE FROM table_sessions WHERE id = ?", out.NextSession.ID).Error)
	require.NoError(t, s.db.Exec("UPDATE tables SET current_session_id = NULL WHERE id = ?", table.ID).Error)

	w, _ = s.do(http.MethodGet, "/api/sessions/active/"+table.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = s.do(http.MethodGet, "/api/sessions/active/"+table.ID+"?create=true", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	created := decode[sessionBody](t, env)
	assert.Equal(t, "active", created.Status)
	assert.Equal(t, table.ID, created.TableID)
}

func TestSessionCheckoutFlow(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	item := s.createItem(rid, "Burger", 7.5)
	s.createTable(rid, 1)
	order := s.placeOrder(rid, 1, item, 2)

	w, env := s.do(http.MethodPost, "/api/sessions/"+order.SessionID+"/needs-bill", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, "need_bill", decode[sessionBody](t, env).Status)

	w, env = s.do(http.MethodPost, "/api/sessions/"+order.SessionID+"/cancel-checkout", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, "active", decode[sessionBody](t, env).Status)

	w, _ = s.do(http.MethodPost, "/api/sessions/"+order.SessionID+"/cancel-checkout", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(http.MethodPost, "/api/sessions/"+order.SessionID+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	out := decode[transitionBody](t, env)
	assert.Equal(t, "paid", out.Session.Status)
	require.NotNil(t, out.Invoice)
	assert.Equal(t, "paid", out.Invoice.Status)
	assert.InDelta(t, 15.0, out.Invoice.Total, 0.001)
	require.NotNil(t, out.NextSession)
	assert.Equal(t, "active", out.NextSession.Status)

	w, _ = s.do(http.MethodPost, "/api/sessions/"+order.SessionID+"/close", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelSessionWithLiveOrders(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	item := s.createItem(rid, "Burger", 7.5)
	s.createTable(rid, 1)
	order := s.placeOrder(rid, 1, item, 1)

	w, env := s.do(http.MethodPost, "/api/sessions/"+order.SessionID+"/cancel", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Status)
}

func TestSessionAssistance(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	table := s.createTable(rid, 1)
	id := *table.CurrentSessionID

	w, env := s.do(http.MethodPost, "/api/sessions/"+id+"/request-assistance", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.True(t, decode[sessionBody](t, env).NeedsAssistance)

	w, env = s.do(http.MethodPost, "/api/sessions/"+id+"/cancel-assistance", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.False(t, decode[sessionBody](t, env).NeedsAssistance)
}

func TestSubmitReview(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	table := s.createTable(rid, 1)
	id := *table.CurrentSessionID

	w, _ := s.do(http.MethodPost, "/api/sessions/"+id+"/review", gin.H{"stars": 9})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(http.MethodPost, "/api/sessions/"+id+"/review", gin.H{"stars": 5, "comment": "great"})
	require.Equal(t, http.StatusOK, w.Code, env.Message)
}

func TestListSessions(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	table := s.createTable(rid, 1)
	s.createTable(rid, 2)

	w, _ := s.do(http.MethodPost, "/api/sessions/"+*table.CurrentSessionID+"/close", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, env := s.do(http.MethodGet, "/api/sessions/table/"+table.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]sessionBody](t, env), 2)

	w, env = s.do(http.MethodGet, "/api/sessions/restaurant/"+rid+"/active", nil)
	require.Equal(t, http.StatusOK, w.Code)
	active := decode[[]sessionBody](t, env)
	assert.Len(t, active, 2)
	for _, session := range active {
		assert.Equal(t, "active", session.Status)
	}
}
