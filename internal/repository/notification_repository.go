package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"realtime-service/internal/domain"
)

// NotificationRepository persists notifications created by the event-listener
// layer. The relay's bus forwarder never writes through this.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	GetByIDAndRecipient(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error)
	GetByRecipientAndWorkspace(ctx context.Context, recipientID, workspaceID uuid.UUID, page, limit int, unreadOnly bool) ([]domain.Notification, int64, error)
	GetUnreadCount(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error)
	MarkAsRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error)
	CleanupOld(ctx context.Context, daysOld int) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *notificationRepository) GetByIDAndRecipient(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	var notification domain.Notification
	err := r.db.WithContext(ctx).
		First(&notification, "id = ? AND recipient_id = ?", id, recipientID).Error
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepository) GetByRecipientAndWorkspace(ctx context.Context, recipientID, workspaceID uuid.UUID, page, limit int, unreadOnly bool) ([]domain.Notification, int64, error) {
	notifications := make([]domain.Notification, 0)
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND workspace_id = ?", recipientID, workspaceID)

	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&notifications).Error; err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *notificationRepository) GetUnreadCount(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND workspace_id = ? AND is_read = ?", recipientID, workspaceID, false).
		Count(&count).Error
	return count, err
}

func (r *notificationRepository) MarkAsRead(ctx context.Context, id, recipientID uuid.UUID) (*domain.Notification, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ? AND recipient_id = ?", id, recipientID).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	return r.GetByIDAndRecipient(ctx, id, recipientID)
}

func (r *notificationRepository) MarkAllAsRead(ctx context.Context, recipientID, workspaceID uuid.UUID) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("recipient_id = ? AND workspace_id = ? AND is_read = ?", recipientID, workspaceID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		})

	return result.RowsAffected, result.Error
}

func (r *notificationRepository) CleanupOld(ctx context.Context, daysOld int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -daysOld)
	result := r.db.WithContext(ctx).
		Where("is_read = ? AND created_at < ?", true, cutoff).
		Delete(&domain.Notification{})
	return result.RowsAffected, result.Error
}
