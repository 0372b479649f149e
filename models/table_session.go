package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a table session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionNeedBill  SessionStatus = "need_bill"
	SessionClosed    SessionStatus = "closed"
	SessionCancelled SessionStatus = "cancelled"
	SessionPaid      SessionStatus = "paid"
)

// OpenSessionStatuses are the statuses a table may hold at most one session in.
var OpenSessionStatuses = []SessionStatus{SessionActive, SessionNeedBill}

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionActive, SessionNeedBill, SessionClosed, SessionCancelled, SessionPaid:
		return true
	}
	return false
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionClosed || s == SessionCancelled || s == SessionPaid
}

func ParseSessionStatus(raw string) (SessionStatus, error) {
	s := SessionStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown session status %q", raw)
	}
	return s, nil
}

type SessionReview struct {
	Stars   int    `json:"stars"`
	Comment string `json:"comment,omitempty"`
}

// TableSession is one continuous occupation of a table.
type TableSession struct {
	ID              string                      `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TableID         string                      `gorm:"type:varchar(36);not null;index:idx_table_status" json:"table_id"`
	RestaurantID    string                      `gorm:"type:varchar(36);not null;index" json:"restaurant_id"`
	Status          SessionStatus               `gorm:"type:varchar(20);not null;default:'active';index:idx_table_status;index" json:"status"`
	StartTime       time.Time                   `gorm:"not null" json:"start_time"`
	EndTime         *time.Time                  `json:"end_time,omitempty"`
	OrderIDs        datatypes.JSONSlice[string] `gorm:"column:order_ids" json:"orders"`
	InvoiceID       *string                     `gorm:"type:varchar(36)" json:"invoice_id,omitempty"`
	Total           *float64                    `gorm:"type:decimal(12,2)" json:"total,omitempty"`
	Review          *SessionReview              `gorm:"serializer:json" json:"review,omitempty"`
	NeedsAssistance bool                        `gorm:"not null;default:false" json:"needs_assistance"`
	CreatedAt       time.Time                   `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"not null" json:"updated_at"`
}

func (TableSession) TableName() string { return "table_sessions" }

func (s *TableSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = newID()
	}
	if s.OrderIDs == nil {
		s.OrderIDs = datatypes.JSONSlice[string]{}
	}
	return nil
}

func (s *TableSession) HasOrder(orderID string) bool {
	for _, id := range s.OrderIDs {
		if id == orderID {
			return true
		}
	}
	return false
}
