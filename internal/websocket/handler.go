package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"gridpulse/internal/config"
	"gridpulse/internal/infrastructure"
)

// Handler upgrades HTTP requests and attaches the connection to the hub
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	cfg      config.WebSocketConfig
	logger   *slog.Logger
}

// NewHandler creates the upgrade handler. Browser origins must be the
// serving host or appear in allowedOrigins ("*" allows any).
func NewHandler(hub *Hub, cfg config.WebSocketConfig, allowedOrigins []string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:    hub,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "websocket.handler")),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return originAllowed(r, allowedOrigins)
		},
	}
	return h
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("origin", r.Header.Get("Origin")),
			slog.String("error", err.Error()))
		return
	}

	client := NewClient(h.hub, WrapConn(conn), infrastructure.GetTraceID(r.Context()), h.cfg, h.logger)
	if err := h.hub.Register(client); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}

func originAllowed(r *http.Request, allowed []string) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
