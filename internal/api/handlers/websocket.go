package handlers

import (
	"net/http"

	"github.com/dom/kaf-catalog/internal/api/middleware"
	"github.com/dom/kaf-catalog/internal/domain"
	"github.com/dom/kaf-catalog/internal/websocket"
	ws "github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = ws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the API is already open to any origin via CORS
	},
}

type WebSocketHandler struct {
	hub      *websocket.Hub
	verifier middleware.TokenVerifier
	logger   *zap.Logger
}

func NewWebSocketHandler(hub *websocket.Hub, verifier middleware.TokenVerifier, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
		logger:   logger,
	}
}

// Handle subscribes the caller to catalog events. Browsing needs no
// account, so the token is optional, but a bad one is rejected.
func (h *WebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var identity *domain.Identity
	if token := r.URL.Query().Get("token"); token != "" {
		id, err := h.verifier.ValidateToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		identity = &id
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("[websocket.Handle] upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(h.hub, conn, identity)
	h.hub.Register(client)
	client.Hello()

	go client.WritePump()
	go client.ReadPump()
}
