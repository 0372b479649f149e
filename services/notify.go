package services

import (
	"context"
	"time"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Broadcaster pushes an event to websocket subscribers of a restaurant topic.
type Broadcaster interface {
	Broadcast(restaurantID, category, event string, data interface{})
}

// EventPublisher emits domain events to an external bus.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, event DomainEvent) error
}

const (
	EventSessionCreated   = "session.created"
	EventSessionClosed    = "session.closed"
	EventSessionCancelled = "session.cancelled"
	EventSessionPaid      = "session.paid"
	EventOrderPlaced      = "order.placed"
)

type DomainEvent struct {
	Type         string    `json:"type"`
	RestaurantID string    `json:"restaurant_id"`
	TableID      string    `json:"table_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	OrderID      string    `json:"order_id,omitempty"`
	InvoiceID    string    `json:"invoice_id,omitempty"`
	Total        *float64  `json:"total,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

type nopBroadcaster struct{}

func (nopBroadcaster) Broadcast(string, string, string, interface{}) {}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, DomainEvent) error { return nil }

// Notifier bundles the websocket hub and event bus used by the lifecycle services.
type Notifier struct {
	hub    Broadcaster
	events EventPublisher
}

// NewNotifier accepts nil for either side.
func NewNotifier(hub Broadcaster, events EventPublisher) *Notifier {
	n := &Notifier{hub: hub, events: events}
	if n.hub == nil {
		n.hub = nopBroadcaster{}
	}
	if n.events == nil {
		n.events = nopPublisher{}
	}
	return n
}

func (n *Notifier) broadcast(restaurantID, category, event string, data interface{}) {
	n.hub.Broadcast(restaurantID, category, event, data)
}

func (n *Notifier) publish(event DomainEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
	defer cancel()
	if err := n.events.Publish(ctx, event.Type, event); err != nil {
		utils.ErrorLogger.Errorf("failed to publish %s for restaurant %s: %v", event.Type, event.RestaurantID, err)
	}
}

func (n *Notifier) sessionCreated(s *models.TableSession) {
	n.broadcast(s.RestaurantID, realtime.CategorySessionStatus, realtime.EventSessionCreated, s)
	n.publish(DomainEvent{Type: EventSessionCreated, RestaurantID: s.RestaurantID, TableID: s.TableID, SessionID: s.ID})
}

func (n *Notifier) sessionUpdated(s *models.TableSession) {
	n.broadcast(s.RestaurantID, realtime.CategorySessionStatus, realtime.EventSessionUpdated, s)
}
