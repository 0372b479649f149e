package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// DiagnosticsService runs on-demand sweeps for state the lifecycle should
// never produce. The sweeps only report; CleanupUnlinkedSessions is the one
// repair.
type DiagnosticsService struct {
	db *gorm.DB
}

func NewDiagnosticsService(db *gorm.DB) *DiagnosticsService {
	return &DiagnosticsService{db: db}
}

type DuplicateSessions struct {
	TableID    string   `json:"table_id"`
	SessionIDs []string `json:"session_ids"`
	Count      int      `json:"count"`
}

type SessionMismatch struct {
	TableID          string   `json:"table_id"`
	RestaurantID     string   `json:"restaurant_id"`
	TableNumber      int      `json:"table_number"`
	CurrentSessionID *string  `json:"current_session_id"`
	OpenSessionIDs   []string `json:"open_session_ids"`
}

type OrphanSession struct {
	SessionID string               `json:"session_id"`
	TableID   string               `json:"table_id"`
	Status    models.SessionStatus `json:"status"`
}

type DiagnosticsReport struct {
	DuplicateActiveSessions []DuplicateSessions `json:"duplicate_active_sessions"`
	MismatchedSessions      []SessionMismatch   `json:"mismatched_current_sessions"`
	OrphanSessions          []OrphanSession     `json:"orphan_sessions"`
	GeneratedAt             time.Time           `json:"generated_at"`
}

type CleanupResult struct {
	DeletedSessions []string `json:"deleted_sessions"`
	DeletedOrders   int64    `json:"deleted_orders"`
}

func (s *DiagnosticsService) openSessionsByTable(ctx context.Context) (map[string][]string, error) {
	var sessions []models.TableSession
	if err := s.db.WithContext(ctx).
		Select("id", "table_id").
		Where("status IN ?", models.OpenSessionStatuses).
		Order("start_time asc").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch open sessions: %w", err)
	}
	byTable := make(map[string][]string)
	for _, session := range sessions {
		byTable[session.TableID] = append(byTable[session.TableID], session.ID)
	}
	return byTable, nil
}

// FindDuplicateActiveSessions reports tables with more than one open session.
func (s *DiagnosticsService) FindDuplicateActiveSessions(ctx context.Context) ([]DuplicateSessions, error) {
	var rows []struct {
		TableID string
		Count   int
	}
	if err := s.db.WithContext(ctx).Model(&models.TableSession{}).
		Select("table_id, COUNT(*) AS count").
		Where("status IN ?", models.OpenSessionStatuses).
		Group("table_id").
		Having("COUNT(*) > 1").
		Order("table_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group open sessions: %w", err)
	}
	if len(rows) == 0 {
		return []DuplicateSessions{}, nil
	}

	byTable, err := s.openSessionsByTable(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DuplicateSessions, 0, len(rows))
	for _, r := range rows {
		out = append(out, DuplicateSessions{TableID: r.TableID, SessionIDs: byTable[r.TableID], Count: r.Count})
	}
	return out, nil
}

// FindMismatchedCurrentSessions reports tables whose pointer is not one of
// their open sessions, a nil pointer included.
func (s *DiagnosticsService) FindMismatchedCurrentSessions(ctx context.Context) ([]SessionMismatch, error) {
	var tables []models.Table
	if err := s.db.WithContext(ctx).Order("restaurant_id, number").Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tables: %w", err)
	}
	byTable, err := s.openSessionsByTable(ctx)
	if err != nil {
		return nil, err
	}

	out := []SessionMismatch{}
	for _, t := range tables {
		open := byTable[t.ID]
		matched := false
		for _, id := range open {
			if t.HasSession(id) {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		if open == nil {
			open = []string{}
		}
		out = append(out, SessionMismatch{
			TableID:          t.ID,
			RestaurantID:     t.RestaurantID,
			TableNumber:      t.Number,
			CurrentSessionID: t.CurrentSessionID,
			OpenSessionIDs:   open,
		})
	}
	return out, nil
}

func (s *DiagnosticsService) linkedSessionIDs(tx *gorm.DB) ([]string, error) {
	var ids []string
	if err := tx.Model(&models.Table{}).
		Where("current_session_id IS NOT NULL").
		Pluck("current_session_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch linked sessions: %w", err)
	}
	return ids, nil
}

func unlinkedSessionsQuery(tx *gorm.DB, linked []string) *gorm.DB {
	q := tx.Model(&models.TableSession{})
	if len(linked) > 0 {
		q = q.Where("id NOT IN ?", linked)
	}
	return q
}

// FindOrphanSessions reports every session no table points at, history
// included.
func (s *DiagnosticsService) FindOrphanSessions(ctx context.Context) ([]OrphanSession, error) {
	db := s.db.WithContext(ctx)
	linked, err := s.linkedSessionIDs(db)
	if err != nil {
		return nil, err
	}

	var sessions []models.TableSession
	if err := unlinkedSessionsQuery(db, linked).Order("start_time asc").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orphan sessions: %w", err)
	}
	out := make([]OrphanSession, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, OrphanSession{SessionID: session.ID, TableID: session.TableID, Status: session.Status})
	}
	return out, nil
}

func (s *DiagnosticsService) RunAll(ctx context.Context) (*DiagnosticsReport, error) {
	dups, err := s.FindDuplicateActiveSessions(ctx)
	if err != nil {
		return nil, err
	}
	mismatches, err := s.FindMismatchedCurrentSessions(ctx)
	if err != nil {
		return nil, err
	}
	orphans, err := s.FindOrphanSessions(ctx)
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("diagnostics: %d duplicate, %d mismatched, %d orphan", len(dups), len(mismatches), len(orphans))
	return &DiagnosticsReport{
		DuplicateActiveSessions: dups,
		MismatchedSessions:      mismatches,
		OrphanSessions:          orphans,
		GeneratedAt:             time.Now(),
	}, nil
}

// CleanupUnlinkedSessions deletes sessions no table points at when they are
// still open or their table is gone, along with their orders. Finished
// sessions of existing tables are history and stay.
func (s *DiagnosticsService) CleanupUnlinkedSessions(ctx context.Context) (*CleanupResult, error) {
	result := &CleanupResult{DeletedSessions: []string{}}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		linked, err := s.linkedSessionIDs(tx)
		if err != nil {
			return err
		}

		var candidates []models.TableSession
		if err := unlinkedSessionsQuery(tx, linked).Find(&candidates).Error; err != nil {
			return fmt.Errorf("failed to fetch orphan sessions: %w", err)
		}

		var tableIDs []string
		if err := tx.Model(&models.Table{}).Pluck("id", &tableIDs).Error; err != nil {
			return fmt.Errorf("failed to fetch tables: %w", err)
		}
		existing := make(map[string]struct{}, len(tableIDs))
		for _, id := range tableIDs {
			existing[id] = struct{}{}
		}

		var doomed []string
		for _, session := range candidates {
			_, tableExists := existing[session.TableID]
			if !session.Status.IsTerminal() || !tableExists {
				doomed = append(doomed, session.ID)
			}
		}
		if len(doomed) == 0 {
			return nil
		}

		res := tx.Where("session_id IN ?", doomed).Delete(&models.Order{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete orphan orders: %w", res.Error)
		}
		result.DeletedOrders = res.RowsAffected

		if err := tx.Where("id IN ?", doomed).Delete(&models.TableSession{}).Error; err != nil {
			return fmt.Errorf("failed to delete orphan sessions: %w", err)
		}
		result.DeletedSessions = doomed
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("cleanup removed %d sessions and %d orders", len(result.DeletedSessions), result.DeletedOrders)
	return result, nil
}
