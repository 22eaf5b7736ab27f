package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime-service/internal/middleware"
	"realtime-service/internal/response"
	"realtime-service/internal/service"
)

// NotificationHandler is the relay's HTTP surface for notifications.
type NotificationHandler struct {
	service *service.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: svc, logger: logger}
}

// GetNotifications lists the caller's notifications in a workspace.
// GET /notifications?workspaceId=&page=&limit=&unread=
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	workspaceID, err := uuid.Parse(c.Query("workspaceId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid workspace ID")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	unreadOnly := c.Query("unread") == "true"

	result, err := h.service.GetNotifications(c.Request.Context(), recipientID, workspaceID, page, limit, unreadOnly)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, result)
}

// GetUnreadCount returns the caller's unread notification count.
// GET /notifications/unread-count?workspaceId=
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	workspaceID, err := uuid.Parse(c.Query("workspaceId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid workspace ID")
		return
	}

	count, err := h.service.GetUnreadCount(c.Request.Context(), recipientID, workspaceID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{
		"count":       count,
		"workspaceId": workspaceID.String(),
	})
}

// MarkAsRead flips one notification's read flag.
// PATCH /notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid notification ID")
		return
	}

	notification, err := h.service.MarkAsRead(c.Request.Context(), id, recipientID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, notification)
}

type markAllReadRequest struct {
	WorkspaceID uuid.UUID `json:"workspaceId" binding:"required"`
}

// MarkAllAsRead flips every unread notification of the caller in a
// workspace.
// POST /notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	recipientID, ok := middleware.UserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	var req markAllReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "workspaceId is required")
		return
	}

	count, err := h.service.MarkAllAsRead(c.Request.Context(), recipientID, req.WorkspaceID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{"updated": count})
}

// CreateNotification is the internal endpoint the event-listener layer
// calls when a domain event produces a notification. It persists the row
// and broadcasts it on the bus; the relay's forwarder pushes it live.
// POST /internal/notifications
func (h *NotificationHandler) CreateNotification(c *gin.Context) {
	var event service.NotificationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid notification event")
		return
	}
	if !event.Type.Valid() {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Unknown notification type")
		return
	}
	if !event.ResourceType.Valid() {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Unknown resource type")
		return
	}

	notification, err := h.service.CreateNotification(c.Request.Context(), &event)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, notification)
}
