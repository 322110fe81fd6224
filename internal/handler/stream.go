package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/matthewbaird/backoffice/internal/event"
)

const (
	// streamBuffer is how many events a slow client may fall behind before
	// further events are dropped for it.
	streamBuffer = 16
	writeTimeout = 5 * time.Second
)

// StreamMessage is the envelope for all messages on the settings event stream.
type StreamMessage struct {
	Type string `json:"type"` // "subscribed", "event", "pong", "error"
	ID   string `json:"id,omitempty"`
	Data any    `json:"data,omitempty"`
}

type streamClient struct {
	category string
	send     chan event.DomainEvent
}

func (c *streamClient) wants(evt event.DomainEvent) bool {
	return c.category == "" || c.category == evt.Category
}

// StreamHub pushes settings-changed events to connected WebSocket clients so
// open forms can re-render. It is subscribed to the event bus.
type StreamHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	logger  *slog.Logger
}

// NewStreamHub creates an empty hub.
func NewStreamHub(logger *slog.Logger) *StreamHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamHub{clients: make(map[*streamClient]struct{}), logger: logger}
}

// Clients returns the number of connected clients.
func (h *StreamHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleEvent fans evt out to every interested client without blocking.
func (h *StreamHub) HandleEvent(_ context.Context, evt event.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if !c.wants(evt) {
			continue
		}
		select {
		case c.send <- evt:
		default:
			h.logger.Warn("stream: client too slow, dropping event",
				slog.String("event_id", evt.ID),
				slog.String("category", evt.Category))
		}
	}
	return nil
}

func (h *StreamHub) add(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *StreamHub) remove(c *streamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

// ServeHTTP upgrades to WebSocket and streams events until the client goes
// away. ?category= restricts the stream to one category.
// GET /v1/field-settings/events
func (h *StreamHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Warn("stream: websocket accept", slog.Any("error", err))
		return
	}
	defer conn.CloseNow()

	client := &streamClient{
		category: r.URL.Query().Get("category"),
		send:     make(chan event.DomainEvent, streamBuffer),
	}
	h.add(client)
	defer h.remove(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.send(ctx, conn, StreamMessage{Type: "subscribed", Data: map[string]string{"category": client.category}})

	go h.readLoop(ctx, cancel, conn)

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case evt := <-client.send:
			if err := h.send(ctx, conn, StreamMessage{Type: "event", ID: evt.ID, Data: evt}); err != nil {
				return
			}
		}
	}
}

// ClientMessage is a message sent by a stream client.
type ClientMessage struct {
	Type string `json:"type"` // "ping"
	ID   string `json:"id"`
}

func (h *StreamHub) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn) {
	defer cancel()
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if websocket.CloseStatus(err) == -1 && ctx.Err() == nil {
				h.logger.Debug("stream: read error", slog.Any("error", err))
			}
			return
		}
		switch msg.Type {
		case "ping":
			h.send(ctx, conn, StreamMessage{Type: "pong", ID: msg.ID})
		default:
			h.send(ctx, conn, StreamMessage{
				Type: "error",
				ID:   msg.ID,
				Data: map[string]string{"code": "unknown_type", "message": fmt.Sprintf("unknown message type: %s", msg.Type)},
			})
		}
	}
}

func (h *StreamHub) send(ctx context.Context, conn *websocket.Conn, msg StreamMessage) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		h.logger.Debug("stream: write error", slog.Any("error", err))
		return err
	}
	return nil
}
