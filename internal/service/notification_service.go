package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"realtime-service/internal/bus"
	"realtime-service/internal/domain"
	"realtime-service/internal/repository"
)

// NotificationEvent is what the event-listener layer submits when a domain
// event (assignment, membership change, ...) produces a notification.
type NotificationEvent struct {
	Type         domain.NotificationType `json:"type"`
	SenderID     *uuid.UUID              `json:"senderId,omitempty"`
	RecipientID  uuid.UUID               `json:"recipientId" binding:"required"`
	WorkspaceID  uuid.UUID               `json:"workspaceId" binding:"required"`
	Message      string                  `json:"message"`
	ResourceType domain.ResourceType     `json:"resourceType"`
	ResourceID   uuid.UUID               `json:"resourceId"`
	OccurredAt   *time.Time              `json:"occurredAt,omitempty"`
}

const unreadCacheTTL = 60 * time.Second

// NotificationService persists notifications at creation time and publishes
// them on the bus for live forwarding. Reads flow through an unread-count
// cache when Redis is available.
type NotificationService struct {
	repo   repository.NotificationRepository
	bus    bus.Bus
	cache  *redis.Client // nil disables caching
	logger *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, b bus.Bus, cache *redis.Client, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		bus:    b,
		cache:  cache,
		logger: logger,
	}
}

// CreateNotification persists the notification, then broadcasts it on the
// bus. The broadcast is best-effort: the row is already durable, a missed
// live push only means the recipient sees it on next load.
func (s *NotificationService) CreateNotification(ctx context.Context, event *NotificationEvent) (*domain.Notification, error) {
	notification := &domain.Notification{
		ID:           uuid.New(),
		WorkspaceID:  event.WorkspaceID,
		RecipientID:  event.RecipientID,
		SenderID:     event.SenderID,
		Type:         event.Type,
		Message:      event.Message,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		IsRead:       false,
		CreatedAt:    time.Now().UTC(),
	}
	if event.OccurredAt != nil {
		notification.CreatedAt = *event.OccurredAt
	}

	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(notification); err == nil {
		if err := s.bus.Publish(ctx, bus.ChannelNotifications, payload); err != nil {
			s.logger.Warn("Failed to publish notification to bus",
				zap.String("id", notification.ID.String()),
				zap.Error(err))
		}
	}

	s.invalidateUnreadCountCache(ctx, notification.RecipientID, notification.WorkspaceID)

	s.logger.Info("Notification created",
		zap.String("id", notification.ID.String()),
		zap.String("type", string(notification.Type)),
		zap.String("recipient_id", notification.RecipientID.String()))

	return notification, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, recipientID, workspaceID uuid.UUID, page, limit int, unreadOnly bool) (*domain.PaginatedNotifications, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	notifications, total, err := s.repo.GetByRecipientAndWorkspace(ctx, recipientID, workspaceID, page, limit, unreadOnly)
	if err != nil {
		return nil, err
	}

	return &domain.PaginatedNotifications{
		Notifications: notifications,
		Total:         total,
		Page:          page,
		Limit:         limit,
		HasMore:       int64(page*limit) < total,
	}, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	notification, err := s.repo.MarkAsRead(ctx, id, recipientID)
	if err != nil {
		return nil, err
	}

	s.invalidateUnreadCountCache(ctx, notification.RecipientID, notification.WorkspaceID)
	return notification, nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error) {
	count, err := s.repo.MarkAllAsRead(ctx, recipientID, workspaceID)
	if err != nil {
		return 0, err
	}

	s.invalidateUnreadCountCache(ctx, recipientID, workspaceID)
	return count, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error) {
	cacheKey := unreadCacheKey(recipientID, workspaceID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey).Int64()
		if err == nil {
			return cached, nil
		}
	}

	count, err := s.repo.GetUnreadCount(ctx, recipientID, workspaceID)
	if err != nil {
		return 0, err
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, count, unreadCacheTTL)
	}

	return count, nil
}

func (s *NotificationService) CleanupOld(ctx context.Context, daysOld int) (int64, error) {
	return s.repo.CleanupOld(ctx, daysOld)
}

func (s *NotificationService) invalidateUnreadCountCache(ctx context.Context, recipientID, workspaceID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, unreadCacheKey(recipientID, workspaceID)).Err(); err != nil {
		s.logger.Warn("Failed to invalidate unread count cache", zap.Error(err))
	}
}

func unreadCacheKey(recipientID, workspaceID uuid.UUID) string {
	return fmt.Sprintf("unread:%s:%s", recipientID.String(), workspaceID.String())
}
