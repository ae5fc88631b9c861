// Package gateway fans the current feed out to live websocket subscribers.
package gateway

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pauljones0/artist-push-bot/internal/models"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 8
)

// feedMessage is the wire envelope pushed to subscribers, named after the
// event the browser client listens for.
type feedMessage struct {
	Type string             `json:"type"`
	Feed []models.FeedEntry `json:"feed"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan []models.FeedEntry
}

// Hub tracks connected subscribers and pushes feed snapshots to them.
// Delivery is per-subscriber buffered and never blocks the pipeline: a
// subscriber that can't keep up is disconnected rather than slowing the
// rest.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[*subscriber]struct{})}
}

// Register adopts a freshly upgraded connection and immediately pushes the
// current snapshot to it alone. The hub owns the connection from here on.
func (h *Hub) Register(conn *websocket.Conn, snapshot []models.FeedEntry) {
	sub := &subscriber{
		conn: conn,
		send: make(chan []models.FeedEntry, sendBufferSize),
	}
	sub.send <- snapshot

	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	count := len(h.subscribers)
	h.mu.Unlock()
	slog.Info("Client connected", "subscribers", count)

	go h.writePump(sub)
	go h.readPump(sub)
}

// Broadcast queues the snapshot for every connected subscriber. Subscribers
// whose buffers are full are dropped.
func (h *Hub) Broadcast(snapshot []models.FeedEntry) {
	h.mu.Lock()
	var stalled []*subscriber
	for sub := range h.subscribers {
		select {
		case sub.send <- snapshot:
		default:
			stalled = append(stalled, sub)
			delete(h.subscribers, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range stalled {
		slog.Warn("Dropping stalled subscriber")
		sub.conn.Close()
		close(sub.send)
	}
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) writePump(sub *subscriber) {
	defer h.drop(sub)
	for snapshot := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteJSON(feedMessage{Type: "feedUpdate", Feed: snapshot}); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; its job is noticing the close.
func (h *Hub) readPump(sub *subscriber) {
	defer h.drop(sub)
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	_, present := h.subscribers[sub]
	delete(h.subscribers, sub)
	count := len(h.subscribers)
	h.mu.Unlock()

	sub.conn.Close()
	if present {
		// Only Broadcast sends on sub.send, and only for subscribers still
		// in the map; after removal the close is safe and ends writePump.
		close(sub.send)
		slog.Info("Client disconnected", "subscribers", count)
	}
}
