// Package events fans out claim lifecycle notifications to connected
// websocket subscribers. Delivery is best-effort; a slow subscriber is
// dropped rather than allowed to block publishers.
package events

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/atavi-atlas/backend/internal/metrics"
	"github.com/atavi-atlas/backend/pkg/logger"
)

const (
	TypeClaimCreated  = "claim_created"
	TypeStatusChanged = "status_changed"
	TypeClaimDeleted  = "claim_deleted"
	TypeGISAnalyzed   = "gis_analyzed"
)

type Event struct {
	Type      string                 `json:"type"`
	ClaimID   int                    `json:"claim_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

type Hub struct {
	mu          sync.RWMutex
	subscribers map[*websocket.Conn]chan Event
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*websocket.Conn]chan Event),
	}
}

// Publish delivers an event to every subscriber without blocking.
func (h *Hub) Publish(event Event) {
	if h == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, ch := range h.subscribers {
		select {
		case ch <- event:
		default:
			logger.Warn("Dropping event for slow subscriber",
				zap.String("type", event.Type),
				zap.String("remote", conn.RemoteAddr().String()),
			)
		}
	}
}

// Serve pumps events to a single websocket connection until it closes.
// Intended to run as the websocket handler body.
func (h *Hub) Serve(conn *websocket.Conn) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	h.subscribers[conn] = ch
	count := len(h.subscribers)
	h.mu.Unlock()

	metrics.EventSubscribers.Set(float64(count))
	logger.Info("Event subscriber connected", zap.Int("subscribers", count))

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, conn)
		count := len(h.subscribers)
		h.mu.Unlock()

		metrics.EventSubscribers.Set(float64(count))
		conn.Close()
	}()

	// Reader goroutine detects client disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-ch:
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
