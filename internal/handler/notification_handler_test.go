package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"realtime-service/internal/bus"
	"realtime-service/internal/domain"
	"realtime-service/internal/response"
	"realtime-service/internal/service"
)

// MockNotificationRepository is a mock implementation of repository.NotificationRepository
type MockNotificationRepository struct {
	CreateFunc                     func(ctx context.Context, notification *domain.Notification) error
	GetByIDAndRecipientFunc        func(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error)
	GetByRecipientAndWorkspaceFunc func(ctx context.Context, recipientID, workspaceID uuid.UUID, page, limit int, unreadOnly bool) ([]domain.Notification, int64, error)
	GetUnreadCountFunc             func(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error)
	MarkAsReadFunc                 func(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error)
	MarkAllAsReadFunc              func(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error)
	CleanupOldFunc                 func(ctx context.Context, daysOld int) (int64, error)
}

func (m *MockNotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, notification)
	}
	return nil
}

func (m *MockNotificationRepository) GetByIDAndRecipient(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	if m.GetByIDAndRecipientFunc != nil {
		return m.GetByIDAndRecipientFunc(ctx, id, recipientID)
	}
	return &domain.Notification{ID: id, RecipientID: recipientID}, nil
}

func (m *MockNotificationRepository) GetByRecipientAndWorkspace(ctx context.Context, recipientID, workspaceID uuid.UUID, page, limit int, unreadOnly bool) ([]domain.Notification, int64, error) {
	if m.GetByRecipientAndWorkspaceFunc != nil {
		return m.GetByRecipientAndWorkspaceFunc(ctx, recipientID, workspaceID, page, limit, unreadOnly)
	}
	return make([]domain.Notification, 0), 0, nil
}

func (m *MockNotificationRepository) GetUnreadCount(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error) {
	if m.GetUnreadCountFunc != nil {
		return m.GetUnreadCountFunc(ctx, recipientID, workspaceID)
	}
	return 0, nil
}

func (m *MockNotificationRepository) MarkAsRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, id, recipientID)
	}
	now := time.Now()
	return &domain.Notification{ID: id, RecipientID: recipientID, IsRead: true, ReadAt: &now}, nil
}

func (m *MockNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error) {
	if m.MarkAllAsReadFunc != nil {
		return m.MarkAllAsReadFunc(ctx, recipientID, workspaceID)
	}
	return 0, nil
}

func (m *MockNotificationRepository) CleanupOld(ctx context.Context, daysOld int) (int64, error) {
	if m.CleanupOldFunc != nil {
		return m.CleanupOldFunc(ctx, daysOld)
	}
	return 0, nil
}

func setupNotificationRouter(t *testing.T, repo *MockNotificationRepository, userID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	b := bus.NewMemoryBus()
	t.Cleanup(func() { b.Close() })

	svc := service.NewNotificationService(repo, b, nil, zap.NewNop())
	h := NewNotificationHandler(svc, zap.NewNop())

	r := gin.New()
	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	authed.GET("/notifications", h.GetNotifications)
	authed.GET("/notifications/unread-count", h.GetUnreadCount)
	authed.PATCH("/notifications/:id/read", h.MarkAsRead)
	authed.POST("/notifications/read-all", h.MarkAllAsRead)

	r.POST("/internal/notifications", h.CreateNotification)
	return r
}

func TestNotificationHandler_GetNotifications(t *testing.T) {
	userID := uuid.New()
	workspaceID := uuid.New()

	repo := &MockNotificationRepository{
		GetByRecipientAndWorkspaceFunc: func(ctx context.Context, recipientID, wID uuid.UUID, page, limit int, unreadOnly bool) ([]domain.Notification, int64, error) {
			if recipientID != userID || wID != workspaceID {
				t.Errorf("unexpected ids %v/%v", recipientID, wID)
			}
			if !unreadOnly {
				t.Error("expected unread filter")
			}
			return []domain.Notification{
				{ID: uuid.New(), RecipientID: recipientID, WorkspaceID: wID, Message: "hi"},
			}, 1, nil
		},
	}
	router := setupNotificationRouter(t, repo, userID)

	req := httptest.NewRequest(http.MethodGet, "/notifications?workspaceId="+workspaceID.String()+"&unread=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data domain.PaginatedNotifications `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if resp.Data.Total != 1 || len(resp.Data.Notifications) != 1 {
		t.Errorf("unexpected page %+v", resp.Data)
	}
	if resp.Data.Page != 1 || resp.Data.Limit != 20 {
		t.Errorf("expected default paging, got page=%d limit=%d", resp.Data.Page, resp.Data.Limit)
	}
}

func TestNotificationHandler_GetNotifications_RequiresWorkspace(t *testing.T) {
	router := setupNotificationRouter(t, &MockNotificationRepository{}, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

func TestNotificationHandler_GetUnreadCount(t *testing.T) {
	userID := uuid.New()
	workspaceID := uuid.New()
	repo := &MockNotificationRepository{
		GetUnreadCountFunc: func(ctx context.Context, recipientID, wID uuid.UUID) (int64, error) {
			return 3, nil
		},
	}
	router := setupNotificationRouter(t, repo, userID)

	req := httptest.NewRequest(http.MethodGet, "/notifications/unread-count?workspaceId="+workspaceID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Count       int64  `json:"count"`
			WorkspaceID string `json:"workspaceId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if resp.Data.Count != 3 {
		t.Errorf("expected count 3, got %d", resp.Data.Count)
	}
}

func TestNotificationHandler_MarkAsRead_NotFound(t *testing.T) {
	repo := &MockNotificationRepository{
		MarkAsReadFunc: func(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}
	router := setupNotificationRouter(t, repo, uuid.New())

	req := httptest.NewRequest(http.MethodPatch, "/notifications/"+uuid.New().String()+"/read", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error response.ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed error response: %v", err)
	}
	if resp.Error.Code != response.ErrCodeNotFound {
		t.Errorf("expected NOT_FOUND, got %q", resp.Error.Code)
	}
}

func TestNotificationHandler_MarkAllAsRead(t *testing.T) {
	userID := uuid.New()
	workspaceID := uuid.New()
	repo := &MockNotificationRepository{
		MarkAllAsReadFunc: func(ctx context.Context, recipientID, wID uuid.UUID) (int64, error) {
			if recipientID != userID || wID != workspaceID {
				t.Errorf("unexpected ids %v/%v", recipientID, wID)
			}
			return 5, nil
		},
	}
	router := setupNotificationRouter(t, repo, userID)

	body, _ := json.Marshal(map[string]string{"workspaceId": workspaceID.String()})
	req := httptest.NewRequest(http.MethodPost, "/notifications/read-all", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Updated int64 `json:"updated"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if resp.Data.Updated != 5 {
		t.Errorf("expected 5 updated, got %d", resp.Data.Updated)
	}
}

func TestNotificationHandler_CreateNotification(t *testing.T) {
	recipientID := uuid.New()
	workspaceID := uuid.New()

	var persisted *domain.Notification
	repo := &MockNotificationRepository{
		CreateFunc: func(ctx context.Context, n *domain.Notification) error {
			persisted = n
			return nil
		},
	}
	router := setupNotificationRouter(t, repo, uuid.Nil)

	body, _ := json.Marshal(service.NotificationEvent{
		Type:         domain.NotificationTaskAssigned,
		RecipientID:  recipientID,
		WorkspaceID:  workspaceID,
		Message:      "You were assigned",
		ResourceType: domain.ResourceTypeTask,
		ResourceID:   uuid.New(),
	})
	req := httptest.NewRequest(http.MethodPost, "/internal/notifications", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if persisted == nil {
		t.Fatal("notification not persisted")
	}
	if persisted.RecipientID != recipientID {
		t.Errorf("unexpected recipient %v", persisted.RecipientID)
	}
}

func TestNotificationHandler_CreateNotification_RejectsUnknownEnums(t *testing.T) {
	recipientID := uuid.New()
	workspaceID := uuid.New()

	tests := []struct {
		name         string
		eventType    string
		resourceType string
	}{
		{
			name:         "unknown notification type",
			eventType:    "TASK_EXPLODED",
			resourceType: string(domain.ResourceTypeTask),
		},
		{
			name:         "unknown resource type",
			eventType:    string(domain.NotificationTaskAssigned),
			resourceType: "GALAXY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			created := false
			repo := &MockNotificationRepository{
				CreateFunc: func(ctx context.Context, n *domain.Notification) error {
					created = true
					return nil
				},
			}
			router := setupNotificationRouter(t, repo, uuid.Nil)

			body, _ := json.Marshal(map[string]string{
				"type":         tt.eventType,
				"recipientId":  recipientID.String(),
				"workspaceId":  workspaceID.String(),
				"message":      "suspicious event",
				"resourceType": tt.resourceType,
				"resourceId":   uuid.New().String(),
			})
			req := httptest.NewRequest(http.MethodPost, "/internal/notifications", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			var resp struct {
				Error response.ErrorBody `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("malformed error response: %v", err)
			}
			if resp.Error.Code != response.ErrCodeValidation {
				t.Errorf("expected VALIDATION_ERROR, got %q", resp.Error.Code)
			}
			if created {
				t.Error("notification persisted despite invalid event")
			}
		})
	}
}

func TestNotificationHandler_CreateNotification_MissingRecipient(t *testing.T) {
	router := setupNotificationRouter(t, &MockNotificationRepository{}, uuid.Nil)

	body, _ := json.Marshal(map[string]string{"message": "no recipient"})
	req := httptest.NewRequest(http.MethodPost, "/internal/notifications", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}
