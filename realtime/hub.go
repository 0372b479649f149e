package realtime

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Topic categories a client may subscribe to.
const (
	CategoryOrder         = "order"
	CategorySessionStatus = "session-status"
	CategoryBilled        = "billed"
	CategoryClosedSession = "closed_session"
	CategoryAssistance    = "assistance"
)

// Event types
const (
	EventOrderCreated        = "order_created"
	EventOrderUpdated        = "order_updated"
	EventSessionCreated      = "session_created"
	EventSessionUpdated      = "session_updated"
	EventOrdersBilled        = "orders_billed"
	EventSessionClosed       = "session_closed"
	EventAssistanceRequested = "assistance_requested"
	EventAssistanceCancelled = "assistance_cancelled"
	EventClientMessage       = "client_message"
)

const (
	sendBufferSize = 32
	writeWait      = 5 * time.Second
)

func ValidCategory(category string) bool {
	switch category {
	case CategoryOrder, CategorySessionStatus, CategoryBilled, CategoryClosedSession, CategoryAssistance:
		return true
	}
	return false
}

// Topic builds the subscription key "{restaurantId}/{category}".
func Topic(restaurantID, category string) string {
	return restaurantID + "/" + category
}

func categoryOf(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

type Message struct {
	Event    string      `json:"event"`
	Category string      `json:"category"`
	Data     interface{} `json:"data"`
}

// Conn is the part of *websocket.Conn the hub writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type deadlineSetter interface {
	SetWriteDeadline(t time.Time) error
}

// Relay carries encoded messages to every hub instance, this one included.
type Relay interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Subscriber is one connection registered under one topic. Writes happen on
// its own goroutine so a slow client only ever fills its own buffer.
type Subscriber struct {
	topic string
	conn  Conn
	send  chan []byte
	once  sync.Once
}

func (s *Subscriber) Topic() string { return s.topic }

// Hub is an in-process topic -> subscriber registry. Nothing is persisted or
// queued for disconnected clients.
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[*Subscriber]struct{}
	relay  Relay
}

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*Subscriber]struct{})}
}

// SetRelay routes every broadcast through r. Delivery to local sockets then
// happens when the relay hands the message back via Deliver.
func (h *Hub) SetRelay(r Relay) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.relay = r
}

// SubscribingRelay is a Relay that must be listening before it can carry
// broadcasts back to this hub.
type SubscribingRelay interface {
	Relay
	Start(ctx context.Context, hub *Hub) error
}

// AttachRelay starts r and routes broadcasts through it only once it is
// subscribed. On failure the hub keeps delivering locally.
func (h *Hub) AttachRelay(ctx context.Context, r SubscribingRelay) error {
	if err := r.Start(ctx, h); err != nil {
		return err
	}
	h.SetRelay(r)
	return nil
}

func (h *Hub) Connect(topic string, conn Conn) *Subscriber {
	sub := &Subscriber{
		topic: topic,
		conn:  conn,
		send:  make(chan []byte, sendBufferSize),
	}

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[*Subscriber]struct{})
		h.topics[topic] = subs
	}
	subs[sub] = struct{}{}
	h.mu.Unlock()

	go h.writePump(sub)

	utils.InfoLogger.WithFields(logrus.Fields{"topic": topic}).Info("websocket subscriber connected")
	return sub
}

func (h *Hub) Disconnect(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

// removeLocked must be called with h.mu held.
func (h *Hub) removeLocked(sub *Subscriber) {
	if subs, ok := h.topics[sub.topic]; ok {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(h.topics, sub.topic)
		}
	}
	sub.once.Do(func() { close(sub.send) })
}

func (h *Hub) writePump(sub *Subscriber) {
	defer sub.conn.Close()

	for payload := range sub.send {
		if d, ok := sub.conn.(deadlineSetter); ok {
			_ = d.SetWriteDeadline(time.Now().Add(writeWait))
		}
		if err := sub.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.WithFields(logrus.Fields{"topic": sub.topic}).Errorf("dropping websocket subscriber: %v", err)
			h.Disconnect(sub)
			// drain so Disconnect's close ends the loop
			for range sub.send {
			}
			return
		}
	}
}

// Broadcast encodes the event and publishes it on "{restaurantId}/{category}".
// Delivery is best-effort and never reports failure to the caller.
func (h *Hub) Broadcast(restaurantID, category, event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Category: category, Data: data})
	if err != nil {
		utils.ErrorLogger.Errorf("Error marshaling %s message: %v", event, err)
		return
	}
	h.Publish(Topic(restaurantID, category), payload)
}

// Publish sends an already encoded payload to a topic.
func (h *Hub) Publish(topic string, payload []byte) {
	h.mu.Lock()
	relay := h.relay
	h.mu.Unlock()

	if relay != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		defer cancel()
		err := relay.Publish(ctx, topic, payload)
		if err == nil {
			return
		}
		utils.ErrorLogger.WithFields(logrus.Fields{"topic": topic}).Errorf("relay publish failed, delivering locally: %v", err)
	}
	h.Deliver(topic, payload)
}

// Deliver fans a payload out to this process's subscribers of topic.
// A subscriber whose buffer is full is dropped rather than waited on.
func (h *Hub) Deliver(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.topics[topic] {
		select {
		case sub.send <- payload:
		default:
			utils.ErrorLogger.WithFields(logrus.Fields{"topic": topic}).Error("websocket subscriber too slow, dropping")
			h.removeLocked(sub)
		}
	}
}

// RelayClientMessage re-broadcasts a frame sent by a client to its own topic.
// Frames that are not JSON are ignored.
func (h *Hub) RelayClientMessage(topic string, frame []byte) bool {
	var data interface{}
	if err := json.Unmarshal(frame, &data); err != nil {
		return false
	}
	payload, err := json.Marshal(Message{Event: EventClientMessage, Category: categoryOf(topic), Data: data})
	if err != nil {
		return false
	}
	h.Publish(topic, payload)
	return true
}

func (h *Hub) SubscriberCount(topic string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.topics[topic])
}
