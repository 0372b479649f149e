package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/models"
)

func TestDiagnosticsOnHealthyState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.restaurant(t)
	table := env.table(t, r.ID, 1)
	_, err := env.sessions.MarkSessionPaid(ctx, *table.CurrentSessionID)
	require.NoError(t, err)

	report, err := env.diagnostics.RunAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.DuplicateActiveSessions)
	assert.Empty(t, report.MismatchedSessions)
	// the paid session is history, reported but harmless
	assert.Len(t, report.OrphanSessions, 1)
	assert.Equal(t, models.SessionPaid, report.OrphanSessions[0].Status)
}

func TestDiagnosticsDetectDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.restaurant(t)
	t1 := env.table(t, r.ID, 1)
	t2 := env.table(t, r.ID, 2)

	// second open session on t1 that the table does not point at
	extra := &models.TableSession{TableID: t1.ID, RestaurantID: r.ID, Status: models.SessionNeedBill, StartTime: time.Now()}
	require.NoError(t, env.db.Create(extra).Error)

	// t2 points nowhere
	require.NoError(t, env.db.Model(&models.Table{}).Where("id = ?", t2.ID).Update("current_session_id", nil).Error)

	dups, err := env.diagnostics.FindDuplicateActiveSessions(ctx)
	require.NoError(t, err)
	require.Len(t, dups, 1)
	assert.Equal(t, t1.ID, dups[0].TableID)
	assert.Equal(t, 2, dups[0].Count)
	assert.ElementsMatch(t, []string{*t1.CurrentSessionID, extra.ID}, dups[0].SessionIDs)

	mismatches, err := env.diagnostics.FindMismatchedCurrentSessions(ctx)
	require.NoError(t, err)
	require.Len(t, mismatches, 1)
	assert.Equal(t, t2.ID, mismatches[0].TableID)
	assert.Nil(t, mismatches[0].CurrentSessionID)
	assert.Equal(t, []string{*t2.CurrentSessionID}, mismatches[0].OpenSessionIDs)

	orphans, err := env.diagnostics.FindOrphanSessions(ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, o := range orphans {
		ids = append(ids, o.SessionID)
	}
	assert.ElementsMatch(t, []string{extra.ID, *t2.CurrentSessionID}, ids)
}

func TestCleanupUnlinkedSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	r := env.restaurant(t)
	table := env.table(t, r.ID, 1)

	paid, err := env.sessions.MarkSessionPaid(ctx, *table.CurrentSessionID)
	require.NoError(t, err)

	stray := &models.TableSession{TableID: table.ID, RestaurantID: r.ID, Status: models.SessionActive, StartTime: time.Now()}
	require.NoError(t, env.db.Create(stray).Error)
	require.NoError(t, env.db.Create(&models.Order{SessionID: stray.ID, RestaurantID: r.ID, ItemID: "x", Quantity: 1, OrderTime: time.Now()}).Error)

	ghost := &models.TableSession{TableID: "gone", RestaurantID: r.ID, Status: models.SessionClosed, StartTime: time.Now()}
	require.NoError(t, env.db.Create(ghost).Error)

	result, err := env.diagnostics.CleanupUnlinkedSessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{stray.ID, ghost.ID}, result.DeletedSessions)
	assert.EqualValues(t, 1, result.DeletedOrders)

	// paid history and the live session survive
	env.reloadSession(t, paid.Session.ID)
	env.reloadSession(t, paid.Successor.ID)

	dups, err := env.diagnostics.FindDuplicateActiveSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, dups)
}
