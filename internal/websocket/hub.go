package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"gridpulse/internal/infrastructure"
	"gridpulse/pkg/contracts/events"
)

// ErrHubStopped is returned when registering with a hub that has shut down
var ErrHubStopped = errors.New("websocket hub stopped")

type outbound struct {
	msgType string
	payload []byte
}

// Hub fans dataset events out to connected clients. All client send
// channels are owned by the Run goroutine.
type Hub struct {
	clients    map[*Client]struct{}
	broadcast  chan outbound
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu      sync.RWMutex
	metrics *HubMetrics
	logger  *slog.Logger
}

// NewHub creates a hub; metrics may be nil
func NewHub(metrics *HubMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if metrics == nil {
		metrics, _ = NewHubMetrics(nil)
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan outbound, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run serves registrations and broadcasts until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) error {
	h.logger.Info("hub started")
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()

			h.metrics.connected(ctx)
			h.logger.InfoContext(client.context(), "client registered",
				slog.String("client_id", client.id),
				slog.String("remote_addr", client.remoteAddr),
				slog.Int("total_clients", count))

			hello, err := encode(events.TypeConnection, events.Connection{Status: "connected", ClientID: client.id}, client.traceID)
			if err == nil {
				select {
				case client.send <- hello:
				default:
				}
			}

		case client := <-h.unregister:
			h.remove(ctx, client, "closed")

		case msg := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for c := range h.clients {
				clients = append(clients, c)
			}
			h.mu.RUnlock()

			delivered, dropped := 0, 0
			for _, c := range clients {
				select {
				case c.send <- msg.payload:
					delivered++
				default:
					dropped++
					h.logger.WarnContext(c.context(), "client send buffer full, disconnecting",
						slog.String("client_id", c.id))
					h.remove(ctx, c, "slow_consumer")
				}
			}
			h.metrics.broadcast(ctx, msg.msgType, delivered, dropped)
			h.logger.Debug("broadcast",
				slog.String("type", msg.msgType),
				slog.Int("delivered", delivered),
				slog.Int("dropped", dropped))
		}
	}
}

func (h *Hub) remove(ctx context.Context, c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if !ok {
		return
	}

	h.metrics.disconnected(ctx, time.Since(c.connectedAt), reason)
	h.logger.InfoContext(c.context(), "client unregistered",
		slog.String("client_id", c.id),
		slog.String("reason", reason),
		slog.Int("total_clients", count),
		slog.Duration("connection_duration", time.Since(c.connectedAt)))
}

func (h *Hub) shutdown() {
	close(h.done)

	h.mu.Lock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.mu.Unlock()
	h.logger.Info("hub stopped")
}

// Register adds a client. It fails once the hub has stopped.
func (h *Hub) Register(c *Client) error {
	select {
	case h.register <- c:
		return nil
	case <-h.done:
		return ErrHubStopped
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish broadcasts an event to every client. It drops the event once the
// hub has stopped.
func (h *Hub) Publish(eventType string, payload any) {
	msg, err := encode(eventType, payload, "")
	if err != nil {
		h.logger.Error("failed to encode event",
			slog.String("type", eventType),
			slog.String("error", err.Error()))
		return
	}

	select {
	case h.broadcast <- outbound{msgType: eventType, payload: msg}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func encode(msgType string, data any, traceID string) ([]byte, error) {
	return json.Marshal(events.Message{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		TraceID:   traceID,
	})
}
