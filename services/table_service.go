package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// TableService manages tables and keeps their numbers dense per restaurant.
type TableService struct {
	db       *gorm.DB
	sessions *SessionService
	urlBase  string
}

func NewTableService(db *gorm.DB, sessions *SessionService, urlBase string) *TableService {
	return &TableService{db: db, sessions: sessions, urlBase: urlBase}
}

// renumberTablesTx rewrites the restaurant's table numbers to 1..n in their
// current order. Walking in ascending order never collides with the
// (restaurant_id, number) unique index.
func renumberTablesTx(tx *gorm.DB, restaurantID string) ([]models.Table, error) {
	var tables []models.Table
	if err := forUpdate(tx).
		Where("restaurant_id = ?", restaurantID).
		Order("number asc").
		Order("created_at asc").
		Find(&tables).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch tables: %w", err)
	}

	for i := range tables {
		want := i + 1
		if tables[i].Number == want {
			continue
		}
		if err := tx.Model(&models.Table{}).Where("id = ?", tables[i].ID).Update("number", want).Error; err != nil {
			return nil, fmt.Errorf("failed to renumber table %s: %w", tables[i].ID, err)
		}
		tables[i].Number = want
	}
	return tables, nil
}

func tableByNumberTx(tx *gorm.DB, restaurantID string, number int) (*models.Table, error) {
	tables, err := renumberTablesTx(tx, restaurantID)
	if err != nil {
		return nil, err
	}
	for i := range tables {
		if tables[i].Number == number {
			return &tables[i], nil
		}
	}
	return nil, ErrTableNotFound
}

func (s *TableService) tableURL(restaurantID, tableID string) string {
	if s.urlBase == "" {
		return ""
	}
	return s.urlBase + "/" + restaurantID + "/" + tableID
}

func (s *TableService) inTx(ctx context.Context, fn func(tx *gorm.DB, hooks *afterCommit) error) error {
	return s.sessions.inTx(ctx, fn)
}

// CreateTable adds a table and opens its first session. The returned
// table's number reflects renumbering.
func (s *TableService) CreateTable(ctx context.Context, restaurantID string, number int) (*models.Table, error) {
	if number < 1 {
		return nil, validationError("table number must be positive, got %d", number)
	}

	var table *models.Table
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		var restaurant models.Restaurant
		if err := forUpdate(tx).First(&restaurant, "id = ?", restaurantID).Error; err != nil {
			return lookupError(err, ErrRestaurantNotFound, "restaurant")
		}

		existing, err := renumberTablesTx(tx, restaurantID)
		if err != nil {
			return err
		}
		for _, t := range existing {
			if t.Number == number {
				return conflictError("table %d already exists", number)
			}
		}

		id := uuid.NewString()
		table = &models.Table{
			ID:           id,
			RestaurantID: restaurantID,
			Number:       number,
			URL:          s.tableURL(restaurantID, id),
			IsActive:     true,
		}
		if err := tx.Create(table).Error; err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}

		restaurant.TableIDs = append(restaurant.TableIDs, table.ID)
		if err := tx.Model(&restaurant).Update("table_ids", restaurant.TableIDs).Error; err != nil {
			return fmt.Errorf("failed to link table to restaurant: %w", err)
		}

		renumbered, err := renumberTablesTx(tx, restaurantID)
		if err != nil {
			return err
		}
		for _, t := range renumbered {
			if t.ID == table.ID {
				table.Number = t.Number
			}
		}

		_, err = s.sessions.createForTableTx(tx, table, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *TableService) GetTable(ctx context.Context, id string) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrTableNotFound, "table")
	}
	return &table, nil
}

func (s *TableService) GetTableByRestaurantAndNumber(ctx context.Context, restaurantID string, number int) (*models.Table, error) {
	var table *models.Table
	err := s.inTx(ctx, func(tx *gorm.DB, _ *afterCommit) error {
		var err error
		table, err = tableByNumberTx(tx, restaurantID, number)
		return err
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// ListTablesForRestaurant renumbers before listing, sorted by number.
func (s *TableService) ListTablesForRestaurant(ctx context.Context, restaurantID string) ([]models.Table, error) {
	var tables []models.Table
	err := s.inTx(ctx, func(tx *gorm.DB, _ *afterCommit) error {
		var err error
		tables, err = renumberTablesTx(tx, restaurantID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// UpdateTableSession sets or clears the current session pointer. A non-nil
// session must belong to the table.
func (s *TableService) UpdateTableSession(ctx context.Context, tableID string, sessionID *string) (*models.Table, error) {
	var table *models.Table
	err := s.inTx(ctx, func(tx *gorm.DB, _ *afterCommit) error {
		var err error
		table, err = loadTableTx(tx, tableID)
		if err != nil {
			return err
		}
		if sessionID != nil {
			session, err := loadSessionTx(tx, *sessionID)
			if err != nil {
				return err
			}
			if session.TableID != table.ID {
				return validationError("session %s belongs to table %s", session.ID, session.TableID)
			}
		}
		return setCurrentSessionTx(tx, table, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

func (s *TableService) UpdateTableStatus(ctx context.Context, tableID string, isActive bool) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, "id = ?", tableID).Error; err != nil {
		return nil, lookupError(err, ErrTableNotFound, "table")
	}
	if err := s.db.WithContext(ctx).Model(&table).Update("is_active", isActive).Error; err != nil {
		return nil, fmt.Errorf("failed to update table status: %w", err)
	}
	table.IsActive = isActive
	return &table, nil
}

func deleteSessionTx(tx *gorm.DB, sessionID string) error {
	if err := tx.Where("session_id = ?", sessionID).Delete(&models.Order{}).Error; err != nil {
		return fmt.Errorf("failed to delete session orders: %w", err)
	}
	if err := tx.Where("id = ?", sessionID).Delete(&models.TableSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// deleteOpenSessionsTx drops the session the table points at plus any other
// open session of the table, so a stale pointer cannot leave one behind.
func deleteOpenSessionsTx(tx *gorm.DB, table *models.Table) error {
	var ids []string
	if err := tx.Model(&models.TableSession{}).
		Where("table_id = ? AND status IN ?", table.ID, models.OpenSessionStatuses).
		Pluck("id", &ids).Error; err != nil {
		return fmt.Errorf("failed to list open sessions: %w", err)
	}
	if table.CurrentSessionID != nil {
		found := false
		for _, id := range ids {
			if id == *table.CurrentSessionID {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, *table.CurrentSessionID)
		}
	}
	for _, id := range ids {
		if err := deleteSessionTx(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *TableService) resetTx(tx *gorm.DB, table *models.Table, hooks *afterCommit) (*models.TableSession, error) {
	if err := deleteOpenSessionsTx(tx, table); err != nil {
		return nil, err
	}
	return s.sessions.createForTableTx(tx, table, hooks)
}

// ResetTable throws away the open sessions and their orders and opens a
// fresh one.
func (s *TableService) ResetTable(ctx context.Context, tableID string) (*models.TableSession, error) {
	var session *models.TableSession
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		table, err := loadTableTx(tx, tableID)
		if err != nil {
			return err
		}
		session, err = s.resetTx(tx, table, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *TableService) ResetTablesForRestaurant(ctx context.Context, restaurantID string) ([]models.TableSession, error) {
	var sessions []models.TableSession
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		tables, err := renumberTablesTx(tx, restaurantID)
		if err != nil {
			return err
		}
		for i := range tables {
			session, err := s.resetTx(tx, &tables[i], hooks)
			if err != nil {
				return err
			}
			sessions = append(sessions, *session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sessions, nil
}

// CleanTable cancels every order of the open session, ends it as cancelled
// and opens the next one.
func (s *TableService) CleanTable(ctx context.Context, tableID string) (*SessionTransition, error) {
	var out *SessionTransition
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		table, err := loadTableTx(tx, tableID)
		if err != nil {
			return err
		}
		session, err := findOpenSessionTx(tx, table)
		if err != nil {
			return err
		}
		if session == nil {
			next, err := s.sessions.createForTableTx(tx, table, hooks)
			if err != nil {
				return err
			}
			out = &SessionTransition{Successor: next}
			return nil
		}
		if err := tx.Model(&models.Order{}).
			Where("session_id = ?", session.ID).
			Updates(map[string]interface{}{
				"prep_status":  models.PrepCancelled,
				"is_delivered": false,
			}).Error; err != nil {
			return fmt.Errorf("failed to cancel session orders: %w", err)
		}
		out, err = s.sessions.closeTx(tx, session, true, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteTable removes the table, its open sessions and their orders, then
// closes the gap in numbering.
func (s *TableService) DeleteTable(ctx context.Context, tableID string) error {
	return s.inTx(ctx, func(tx *gorm.DB, _ *afterCommit) error {
		table, err := loadTableTx(tx, tableID)
		if err != nil {
			return err
		}

		var restaurant models.Restaurant
		err = forUpdate(tx).First(&restaurant, "id = ?", table.RestaurantID).Error
		switch {
		case err == nil:
			kept := restaurant.TableIDs[:0]
			for _, id := range restaurant.TableIDs {
				if id != table.ID {
					kept = append(kept, id)
				}
			}
			if err := tx.Model(&restaurant).Update("table_ids", kept).Error; err != nil {
				return fmt.Errorf("failed to unlink table from restaurant: %w", err)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to fetch restaurant: %w", err)
		}

		if err := deleteOpenSessionsTx(tx, table); err != nil {
			return err
		}
		if err := tx.Delete(&models.Table{}, "id = ?", table.ID).Error; err != nil {
			return fmt.Errorf("failed to delete table: %w", err)
		}
		_, err = renumberTablesTx(tx, table.RestaurantID)
		return err
	})
}
