package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
)

// InvoiceService derives billing records from a session's orders.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService {
	return &InvoiceService{db: db}
}

// billableTotal sums non-cancelled order totals, rounded to cents.
func billableTotal(orders []models.Order) float64 {
	sum := decimal.Zero
	for i := range orders {
		if orders[i].IsCancelled() {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(orders[i].Total))
	}
	return sum.Round(2).InexactFloat64()
}

// generateTx returns the session's live invoice when it already has one,
// otherwise creates a pending invoice over every attached order. A pending
// invoice is refreshed against the current orders; a paid one is returned as
// is. The session's invoice id and total are set but not saved.
func (s *InvoiceService) generateTx(tx *gorm.DB, session *models.TableSession, orders []models.Order) (*models.Invoice, error) {
	ids := make(datatypes.JSONSlice[string], len(session.OrderIDs))
	copy(ids, session.OrderIDs)
	total := billableTotal(orders)

	if session.InvoiceID != nil {
		var existing models.Invoice
		err := forUpdate(tx).First(&existing, "id = ?", *session.InvoiceID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to fetch invoice: %w", err)
		}
		if err == nil && existing.IsActive && existing.Status != models.InvoiceCancelled {
			if existing.Status == models.InvoicePending {
				existing.OrderIDs = ids
				existing.Total = total
				if err := tx.Model(&existing).Updates(map[string]interface{}{
					"order_ids": existing.OrderIDs,
					"total":     existing.Total,
				}).Error; err != nil {
					return nil, fmt.Errorf("failed to refresh invoice: %w", err)
				}
			}
			invoiceTotal := existing.Total
			session.Total = &invoiceTotal
			return &existing, nil
		}
	}

	invoice := &models.Invoice{
		RestaurantID:  session.RestaurantID,
		SessionID:     session.ID,
		OrderIDs:      ids,
		Total:         total,
		Status:        models.InvoicePending,
		GeneratedTime: time.Now(),
		IsActive:      true,
	}
	if err := tx.Create(invoice).Error; err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}

	session.InvoiceID = &invoice.ID
	session.Total = &total
	return invoice, nil
}

func (s *InvoiceService) markPaidTx(tx *gorm.DB, invoice *models.Invoice) error {
	if invoice.Status == models.InvoiceCancelled {
		return invalidTransition("invoice %s is cancelled", invoice.ID)
	}
	if invoice.Status == models.InvoicePaid {
		return nil
	}
	if err := tx.Model(invoice).Update("status", models.InvoicePaid).Error; err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	invoice.Status = models.InvoicePaid
	return nil
}

// GenerateInvoiceForSession bills a session without changing its status.
func (s *InvoiceService) GenerateInvoiceForSession(ctx context.Context, sessionID string) (*models.Invoice, error) {
	var invoice *models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := loadSessionTx(tx, sessionID)
		if err != nil {
			return err
		}
		orders, err := sessionOrdersTx(tx, session.ID)
		if err != nil {
			return err
		}
		invoice, err = s.generateTx(tx, session, orders)
		if err != nil {
			return err
		}
		return tx.Model(&models.TableSession{}).Where("id = ?", session.ID).Updates(map[string]interface{}{
			"invoice_id": session.InvoiceID,
			"total":      session.Total,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, lookupError(err, ErrInvoiceNotFound, "invoice")
	}
	return &invoice, nil
}

// GetInvoiceForSession returns the newest active invoice of a session.
func (s *InvoiceService) GetInvoiceForSession(ctx context.Context, sessionID string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.db.WithContext(ctx).
		Where("session_id = ? AND is_active = ?", sessionID, true).
		Order("generated_time desc").
		First(&invoice).Error; err != nil {
		return nil, lookupError(err, ErrInvoiceNotFound, "invoice")
	}
	return &invoice, nil
}

func (s *InvoiceService) ListInvoicesForRestaurant(ctx context.Context, restaurantID string) ([]models.Invoice, error) {
	var invoices []models.Invoice
	if err := s.db.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("generated_time desc").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) MarkInvoicePaid(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&invoice, "id = ?", id).Error; err != nil {
			return lookupError(err, ErrInvoiceNotFound, "invoice")
		}
		return s.markPaidTx(tx, &invoice)
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// CancelInvoice voids a pending invoice. Paid invoices are final.
func (s *InvoiceService) CancelInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := forUpdate(tx).First(&invoice, "id = ?", id).Error; err != nil {
			return lookupError(err, ErrInvoiceNotFound, "invoice")
		}
		if invoice.Status == models.InvoicePaid {
			return invalidTransition("invoice %s is already paid", invoice.ID)
		}
		invoice.Status = models.InvoiceCancelled
		invoice.IsActive = false
		if err := tx.Model(&invoice).Updates(map[string]interface{}{"status": invoice.Status, "is_active": false}).Error; err != nil {
			return fmt.Errorf("failed to cancel invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}
