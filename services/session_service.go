package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// SessionService owns the table session state machine. Every transition
// runs in one transaction and spawns the table's next session before
// committing, so a table never ends a transition without an open session.
type SessionService struct {
	db       *gorm.DB
	invoices *InvoiceService
	notify   *Notifier
}

func NewSessionService(db *gorm.DB, invoices *InvoiceService, notify *Notifier) *SessionService {
	if notify == nil {
		notify = NewNotifier(nil, nil)
	}
	return &SessionService{db: db, invoices: invoices, notify: notify}
}

// SessionTransition is the outcome of a terminal transition.
type SessionTransition struct {
	Session   *models.TableSession `json:"session"`
	Successor *models.TableSession `json:"next_session,omitempty"`
	Invoice   *models.Invoice      `json:"invoice,omitempty"`
}

type billedPayload struct {
	SessionID string          `json:"session_id"`
	TableID   string          `json:"table_id"`
	Orders    []string        `json:"orders"`
	Invoice   *models.Invoice `json:"invoice,omitempty"`
}

func loadSessionTx(tx *gorm.DB, id string) (*models.TableSession, error) {
	var session models.TableSession
	if err := forUpdate(tx).First(&session, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrSessionNotFound, "session")
	}
	return &session, nil
}

func loadTableTx(tx *gorm.DB, id string) (*models.Table, error) {
	var table models.Table
	if err := forUpdate(tx).First(&table, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrTableNotFound, "table")
	}
	return &table, nil
}

func setCurrentSessionTx(tx *gorm.DB, table *models.Table, sessionID *string) error {
	if err := tx.Model(&models.Table{}).Where("id = ?", table.ID).Update("current_session_id", sessionID).Error; err != nil {
		return fmt.Errorf("failed to update table session pointer: %w", err)
	}
	table.CurrentSessionID = sessionID
	return nil
}

// findOpenSessionTx returns the table's ACTIVE or NEED_BILL session, or nil.
// The session the table points at wins when several are open.
func findOpenSessionTx(tx *gorm.DB, table *models.Table) (*models.TableSession, error) {
	var sessions []models.TableSession
	if err := forUpdate(tx).
		Where("table_id = ? AND status IN ?", table.ID, models.OpenSessionStatuses).
		Order("start_time desc").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch open sessions: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	for i := range sessions {
		if table.HasSession(sessions[i].ID) {
			return &sessions[i], nil
		}
	}
	return &sessions[0], nil
}

func sessionOrdersTx(tx *gorm.DB, sessionID string) ([]models.Order, error) {
	var orders []models.Order
	if err := tx.Where("session_id = ?", sessionID).Order("order_time asc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch session orders: %w", err)
	}
	return orders, nil
}

func (s *SessionService) createForTableTx(tx *gorm.DB, table *models.Table, hooks *afterCommit) (*models.TableSession, error) {
	session := &models.TableSession{
		TableID:      table.ID,
		RestaurantID: table.RestaurantID,
		Status:       models.SessionActive,
		StartTime:    time.Now(),
		OrderIDs:     datatypes.JSONSlice[string]{},
	}
	if err := tx.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := setCurrentSessionTx(tx, table, &session.ID); err != nil {
		return nil, err
	}
	hooks.add(func() { s.notify.sessionCreated(session) })
	return session, nil
}

// resolveOpenTx finds the table's open session, creating one when asked.
// A stale table pointer is moved onto the session found.
func (s *SessionService) resolveOpenTx(tx *gorm.DB, table *models.Table, createIfMissing bool, hooks *afterCommit) (*models.TableSession, error) {
	session, err := findOpenSessionTx(tx, table)
	if err != nil {
		return nil, err
	}
	if session != nil {
		if !table.HasSession(session.ID) {
			if err := setCurrentSessionTx(tx, table, &session.ID); err != nil {
				return nil, err
			}
		}
		return session, nil
	}
	if !createIfMissing {
		return nil, ErrSessionNotFound
	}
	return s.createForTableTx(tx, table, hooks)
}

// spawnSuccessorTx opens the next session for the table the ended session
// belonged to. A table that no longer exists gets none.
func (s *SessionService) spawnSuccessorTx(tx *gorm.DB, ended *models.TableSession, hooks *afterCommit) (*models.TableSession, error) {
	table, err := loadTableTx(tx, ended.TableID)
	if errors.Is(err, ErrTableNotFound) {
		utils.InfoLogger.Printf("table %s is gone, no successor for session %s", ended.TableID, ended.ID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.createForTableTx(tx, table, hooks)
}

func (s *SessionService) addOrderTx(tx *gorm.DB, session *models.TableSession, orderID string) (bool, error) {
	if session.HasOrder(orderID) {
		return false, nil
	}
	session.OrderIDs = append(session.OrderIDs, orderID)
	if err := tx.Model(&models.TableSession{}).Where("id = ?", session.ID).Update("order_ids", session.OrderIDs).Error; err != nil {
		return false, fmt.Errorf("failed to append order to session: %w", err)
	}
	return true, nil
}

func (s *SessionService) inTx(ctx context.Context, fn func(tx *gorm.DB, hooks *afterCommit) error) error {
	hooks := &afterCommit{}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(tx, hooks)
	}); err != nil {
		return err
	}
	hooks.run()
	return nil
}

// CreateSessionForTable opens a session for a table that has none open.
func (s *SessionService) CreateSessionForTable(ctx context.Context, tableID string) (*models.TableSession, error) {
	var session *models.TableSession
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		table, err := loadTableTx(tx, tableID)
		if err != nil {
			return err
		}
		open, err := findOpenSessionTx(tx, table)
		if err != nil {
			return err
		}
		if open != nil {
			return conflictError("table %d already has open session %s", table.Number, open.ID)
		}
		session, err = s.createForTableTx(tx, table, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) GetSession(ctx context.Context, id string) (*models.TableSession, error) {
	var session models.TableSession
	if err := s.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrSessionNotFound, "session")
	}
	return &session, nil
}

func (s *SessionService) ListSessionsForTable(ctx context.Context, tableID string) ([]models.TableSession, error) {
	var sessions []models.TableSession
	if err := s.db.WithContext(ctx).Where("table_id = ?", tableID).Order("start_time desc").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

func (s *SessionService) ListActiveSessionsForRestaurant(ctx context.Context, restaurantID string) ([]models.TableSession, error) {
	var sessions []models.TableSession
	if err := s.db.WithContext(ctx).
		Where("restaurant_id = ? AND status IN ?", restaurantID, models.OpenSessionStatuses).
		Order("start_time asc").
		Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list active sessions: %w", err)
	}
	return sessions, nil
}

// GetActiveSessionForTable returns ErrSessionNotFound when the table has no
// open session and createIfMissing is false.
func (s *SessionService) GetActiveSessionForTable(ctx context.Context, tableID string, createIfMissing bool) (*models.TableSession, error) {
	var session *models.TableSession
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		table, err := loadTableTx(tx, tableID)
		if err != nil {
			return err
		}
		session, err = s.resolveOpenTx(tx, table, createIfMissing, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) GetActiveSessionForRestaurantTable(ctx context.Context, restaurantID string, number int, createIfMissing bool) (*models.TableSession, error) {
	var session *models.TableSession
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		table, err := tableByNumberTx(tx, restaurantID, number)
		if err != nil {
			return err
		}
		session, err = s.resolveOpenTx(tx, table, createIfMissing, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// AddOrderToSession is a no-op for an order already in the session.
func (s *SessionService) AddOrderToSession(ctx context.Context, sessionID, orderID string) (*models.TableSession, error) {
	var session *models.TableSession
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		var err error
		session, err = loadSessionTx(tx, sessionID)
		if err != nil {
			return err
		}
		var order models.Order
		if err := tx.First(&order, "id = ?", orderID).Error; err != nil {
			return lookupError(err, ErrOrderNotFound, "order")
		}
		if order.SessionID != session.ID {
			return conflictError("order %s belongs to session %s", order.ID, order.SessionID)
		}
		added, err := s.addOrderTx(tx, session, orderID)
		if err != nil {
			return err
		}
		if added {
			snapshot := *session
			o := order
			hooks.add(func() {
				s.notify.broadcast(snapshot.RestaurantID, realtime.CategoryOrder, realtime.EventOrderUpdated, &o)
				s.notify.sessionUpdated(&snapshot)
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// mutate applies fn to a locked session and saves it.
func (s *SessionService) mutate(ctx context.Context, id string, fn func(session *models.TableSession) error, after func(session *models.TableSession)) (*models.TableSession, error) {
	var session *models.TableSession
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		var err error
		session, err = loadSessionTx(tx, id)
		if err != nil {
			return err
		}
		if err := fn(session); err != nil {
			return err
		}
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		snapshot := *session
		hooks.add(func() { after(&snapshot) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) MarkSessionNeedsBill(ctx context.Context, id string) (*models.TableSession, error) {
	return s.mutate(ctx, id, func(session *models.TableSession) error {
		if session.Status != models.SessionActive {
			return invalidTransition("cannot request bill for session %s: status is %s", session.ID, session.Status)
		}
		session.Status = models.SessionNeedBill
		return nil
	}, s.notify.sessionUpdated)
}

func (s *SessionService) CancelSessionCheckout(ctx context.Context, id string) (*models.TableSession, error) {
	return s.mutate(ctx, id, func(session *models.TableSession) error {
		if session.Status != models.SessionNeedBill {
			return invalidTransition("cannot cancel checkout for session %s: status is %s", session.ID, session.Status)
		}
		session.Status = models.SessionActive
		return nil
	}, s.notify.sessionUpdated)
}

func (s *SessionService) MarkSessionNeedsAssistance(ctx context.Context, id string) (*models.TableSession, error) {
	return s.mutate(ctx, id, func(session *models.TableSession) error {
		session.NeedsAssistance = true
		return nil
	}, func(session *models.TableSession) {
		s.notify.broadcast(session.RestaurantID, realtime.CategoryAssistance, realtime.EventAssistanceRequested, session)
	})
}

func (s *SessionService) CancelSessionAssistance(ctx context.Context, id string) (*models.TableSession, error) {
	return s.mutate(ctx, id, func(session *models.TableSession) error {
		session.NeedsAssistance = false
		return nil
	}, func(session *models.TableSession) {
		s.notify.broadcast(session.RestaurantID, realtime.CategoryAssistance, realtime.EventAssistanceCancelled, session)
	})
}

func (s *SessionService) SubmitSessionReview(ctx context.Context, id string, stars int, comment string) (*models.TableSession, error) {
	if stars < 1 || stars > 5 {
		return nil, validationError("stars must be between 1 and 5, got %d", stars)
	}
	return s.mutate(ctx, id, func(session *models.TableSession) error {
		session.Review = &models.SessionReview{Stars: stars, Comment: comment}
		return nil
	}, s.notify.sessionUpdated)
}

// MarkSessionPaid bills every attached order, marks the invoice paid and
// opens the table's next session.
func (s *SessionService) MarkSessionPaid(ctx context.Context, id string) (*SessionTransition, error) {
	out := &SessionTransition{}
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		session, err := loadSessionTx(tx, id)
		if err != nil {
			return err
		}
		if session.Status.IsTerminal() {
			return invalidTransition("cannot pay session %s: status is %s", session.ID, session.Status)
		}

		orders, err := sessionOrdersTx(tx, session.ID)
		if err != nil {
			return err
		}
		invoice, err := s.invoices.generateTx(tx, session, orders)
		if err != nil {
			return err
		}
		if err := s.invoices.markPaidTx(tx, invoice); err != nil {
			return err
		}

		now := time.Now()
		session.Status = models.SessionPaid
		session.EndTime = &now
		if err := tx.Save(session).Error; err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}

		out.Session, out.Invoice = session, invoice
		s.addClosingHooks(hooks, session, invoice, EventSessionPaid)

		out.Successor, err = s.spawnSuccessorTx(tx, session, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CloseTableSession ends a session. With cancelled set every attached order
// must already be cancelled and no invoice is produced; otherwise a pending
// invoice is generated when anything billable was ordered.
func (s *SessionService) CloseTableSession(ctx context.Context, id string, cancelled bool) (*SessionTransition, error) {
	var out *SessionTransition
	err := s.inTx(ctx, func(tx *gorm.DB, hooks *afterCommit) error {
		session, err := loadSessionTx(tx, id)
		if err != nil {
			return err
		}
		out, err = s.closeTx(tx, session, cancelled, hooks)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SessionService) closeTx(tx *gorm.DB, session *models.TableSession, cancelled bool, hooks *afterCommit) (*SessionTransition, error) {
	if session.Status.IsTerminal() {
		return nil, invalidTransition("cannot close session %s: status is %s", session.ID, session.Status)
	}

	orders, err := sessionOrdersTx(tx, session.ID)
	if err != nil {
		return nil, err
	}

	out := &SessionTransition{Session: session}
	now := time.Now()
	session.EndTime = &now

	if cancelled {
		pending := 0
		for i := range orders {
			if !orders[i].IsCancelled() {
				pending++
			}
		}
		if pending > 0 {
			return nil, invalidTransition("cannot cancel session %s: %d order(s) not cancelled", session.ID, pending)
		}
		session.Status = models.SessionCancelled
	} else {
		session.Status = models.SessionClosed
		if hasBillable(orders) {
			out.Invoice, err = s.invoices.generateTx(tx, session, orders)
			if err != nil {
				return nil, err
			}
		} else {
			zero := 0.0
			session.Total = &zero
		}
	}

	if err := tx.Save(session).Error; err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	eventType := EventSessionClosed
	if cancelled {
		eventType = EventSessionCancelled
	}
	s.addClosingHooks(hooks, session, out.Invoice, eventType)

	out.Successor, err = s.spawnSuccessorTx(tx, session, hooks)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SessionService) addClosingHooks(hooks *afterCommit, session *models.TableSession, invoice *models.Invoice, eventType string) {
	snapshot := *session
	hooks.add(func() {
		if eventType != EventSessionCancelled {
			s.notify.broadcast(snapshot.RestaurantID, realtime.CategoryBilled, realtime.EventOrdersBilled, billedPayload{
				SessionID: snapshot.ID,
				TableID:   snapshot.TableID,
				Orders:    snapshot.OrderIDs,
				Invoice:   invoice,
			})
		}
		if eventType != EventSessionPaid {
			s.notify.broadcast(snapshot.RestaurantID, realtime.CategoryClosedSession, realtime.EventSessionClosed, &snapshot)
		}
		s.notify.sessionUpdated(&snapshot)

		event := DomainEvent{Type: eventType, RestaurantID: snapshot.RestaurantID, TableID: snapshot.TableID, SessionID: snapshot.ID, Total: snapshot.Total}
		if invoice != nil {
			event.InvoiceID = invoice.ID
		}
		s.notify.publish(event)
	})
}

func hasBillable(orders []models.Order) bool {
	for i := range orders {
		if !orders[i].IsCancelled() {
			return true
		}
	}
	return false
}
