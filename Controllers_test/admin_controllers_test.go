package Controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/utils"
)

type reportBody struct {
	Duplicates []struct {
		TableID string `json:"table_id"`
	} `json:"duplicate_active_sessions"`
	Mismatched []struct {
		TableID string `json:"table_id"`
	} `json:"mismatched_current_sessions"`
	Orphans []struct {
		SessionID string `json:"session_id"`
	} `json:"orphan_sessions"`
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	cfg.JWTSecret = "test-secret"
	s := newTestServer(t, cfg)

	adminToken, err := utils.GenerateToken([]byte(cfg.JWTSecret), "u1", "admin", time.Hour)
	require.NoError(t, err)
	staffToken, err := utils.GenerateToken([]byte(cfg.JWTSecret), "u2", "staff", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers []string
		code    int
	}{
		{"no token", nil, http.StatusUnauthorized},
		{"garbage token", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"wrong role", []string{"Authorization", "Bearer " + staffToken}, http.StatusForbidden},
		{"admin", []string{"Authorization", "Bearer " + adminToken}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := s.do(http.MethodGet, "/api/admin/diagnostics/run-all", nil, tt.headers...)
			assert.Equal(t, tt.code, w.Code, env.Message)
		})
	}
}

func TestDiagnosticsAndCleanup(t *testing.T) {
	s := newTestServer(t, testConfig())
	rid := s.createRestaurant("Bistro")
	table := s.createTable(rid, 1)

	w, env := s.do(http.MethodGet, "/api/admin/diagnostics/run-all", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	report := decode[reportBody](t, env)
	assert.Empty(t, report.Duplicates)
	assert.Empty(t, report.Mismatched)
	assert.Empty(t, report.Orphans)

	// an extra open session the table does not point at
	require.NoError(t, s.db.Exec(
		"INSERT INTO table_sessions (id, table_id, restaurant_id, status, start_time, order_ids, needs_assistance, created_at, updated_at) VALUES (?, ?, ?, 'active', ?, '[]', false, ?, ?)",
		"stray", table.ID, rid, time.Now(), time.Now(), time.Now(),
	).Error)

	w, env = s.do(http.MethodGet, "/api/admin/diagnostics/sessions/duplicates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEqual(t, "null", string(env.Data))

	w, env = s.do(http.MethodGet, "/api/admin/diagnostics/sessions/orphans", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), "stray")

	w, env = s.do(http.MethodPost, "/api/admin/diagnostics/sessions/cleanup", nil)
	require.Equal(t, http.StatusOK, w.Code, env.Message)
	assert.Contains(t, string(env.Data), "stray")

	w, env = s.do(http.MethodGet, "/api/admin/diagnostics/run-all", nil)
	require.Equal(t, http.StatusOK, w.Code)
	report = decode[reportBody](t, env)
	assert.Empty(t, report.Duplicates)
	assert.Empty(t, report.Orphans)
}
