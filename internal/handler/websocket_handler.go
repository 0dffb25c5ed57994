package handler

import (
	"strings"

	"career-chat-be/internal/pkg/apperror"
	"career-chat-be/internal/pkg/logger"
	"career-chat-be/internal/pkg/serverutils"
	internalWS "career-chat-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebSocketHandler streams chat events (new messages, title changes, deletions) to the owner.
type WebSocketHandler struct {
	hub       *internalWS.Hub
	jwtSecret string
	logger    logger.ILogger
}

func NewWebSocketHandler(hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		jwtSecret: jwtSecret,
		logger:    log,
	}
}

func (h *WebSocketHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}

// ServeWs authenticates the handshake and upgrades the connection.
// Browsers cannot set headers on a websocket handshake, so the token may come as ?token=.
func (h *WebSocketHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return apperror.Unauthorized("Missing token (Query 'token' or Header 'Authorization')")
	}

	userID, err := serverutils.ParseToken(tokenStr, h.jwtSecret)
	if err != nil {
		h.logger.Warn("WebSocketHandler", "Invalid token in handshake", map[string]interface{}{"error": err.Error()})
		return apperror.Unauthorized("Invalid token")
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("WebSocketHandler", "Starting WebSocket session", map[string]interface{}{"user_id": userID})
		internalWS.ServeWs(h.hub, conn, userID)
		h.logger.Info("WebSocketHandler", "WebSocket session ended", map[string]interface{}{"user_id": userID})
	})(c)
}
