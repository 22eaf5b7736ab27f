package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"realtime-service/internal/middleware"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Handler upgrades HTTP connections and joins them to hub rooms.
type Handler struct {
	hub       *Hub
	jwtSecret string
	logger    *zap.Logger
}

func NewHandler(hub *Hub, jwtSecret string, logger *zap.Logger) *Handler {
	return &Handler{hub: hub, jwtSecret: jwtSecret, logger: logger}
}

// HandleTaskWebSocket joins the caller to the room for one task's
// comment stream. GET /ws/tasks/:taskId?token=...
func (h *Handler) HandleTaskWebSocket(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID"})
		return
	}

	if _, ok := h.authenticate(c); !ok {
		return
	}

	h.join(c, roomKindTask, taskID)
}

// HandleUserWebSocket joins the caller to their own notification room.
// The room key is the authenticated user id, never a client-supplied one.
// GET /ws/notifications?token=...
func (h *Handler) HandleUserWebSocket(c *gin.Context) {
	userID, ok := h.authenticate(c)
	if !ok {
		return
	}

	h.join(c, roomKindUser, userID)
}

func (h *Handler) authenticate(c *gin.Context) (uuid.UUID, bool) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return uuid.Nil, false
	}

	userID, err := middleware.ValidateToken(token, h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return uuid.Nil, false
	}
	return userID, true
}

func (h *Handler) join(c *gin.Context, kind roomKind, roomID uuid.UUID) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := newClient(h.hub, conn, kind, roomID)
	h.hub.register(client)

	go client.writePump()
	go client.readPump()
}
