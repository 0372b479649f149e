package Controllers_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceBody struct {
	ID        string   `json:"id"`
	SessionID string   `json:"session_id"`
	Orders    []string `json:"orders"`
	Total     float64  `json:"total"`
	Status    string   `json:"status"`
	IsActive  bool     `json:"is_active"`
}

func TestGenerateAndFetchInvoice(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	item := s.createItem(rid, "Burger", 7.5)
	s.createTable(rid, 1)
	order := s.placeOrder(rid, 1, item, 2)

	w, env := s.do(http.MethodPost, "/api/admin/sessions/"+order.SessionID+"/invoice", nil)
	require.Equal(t, http.StatusCreated, w.Code, env.Message)
	invoice := decode[invoiceBody](t, env)
	assert.Equal(t, "pending", invoice.Status)
	assert.Equal(t, []string{order.ID}, invoice.Orders)
	assert.InDelta(t, 15.0, invoice.Total, 0.001)

	// generating again returns the same invoice
	w, env = s.do(http.MethodPost, "/api/admin/sessions/"+order.SessionID+"/invoice", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, invoice.ID, decode[invoiceBody](t, env).ID)

	w, env = s.do(http.MethodGet, "/api/invoices/session/"+order.SessionID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, invoice.ID, decode[invoiceBody](t, env).ID)

	w, env = s.do(http.MethodGet, "/api/invoices/restaurant/"+rid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]invoiceBody](t, env), 1)
}

func TestInvoiceStatusTransitions(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	item := s.createItem(rid, "Burger", 7.5)
	s.createTable(rid, 1)
	order := s.placeOrder(rid, 1, item, 1)

	_, env := s.do(http.MethodPost, "/api/admin/sessions/"+order.SessionID+"/invoice", nil)
	invoice := decode[invoiceBody](t, env)

	w, env := s.do(http.MethodPost, "/api/invoices/"+invoice.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Equal(t, "paid", decode[invoiceBody](t, env).Status)

	w, _ = s.do(http.MethodPost, "/api/invoices/"+invoice.ID+"/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(http.MethodGet, "/api/invoices/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDownloadInvoicePDF(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	item := s.createItem(rid, "Burger", 7.5)
	s.createTable(rid, 1)
	order := s.placeOrder(rid, 1, item, 1)

	w, env := s.do(http.MethodPost, "/api/sessions/"+order.SessionID+"/pay", nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[transitionBody](t, env)
	require.NotNil(t, out.Invoice)

	req := httptest.NewRequest(http.MethodGet, "/api/invoices/"+out.Invoice.ID+"/pdf", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	w, _ = s.do(http.MethodGet, "/api/invoices/missing/pdf", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
