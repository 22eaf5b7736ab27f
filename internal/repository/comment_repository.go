package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"realtime-service/internal/domain"
)

// CommentRepository persists comments consumed from the bus.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	// FindByTaskID returns up to limit comments for a task, newest first,
	// with their files.
	FindByTaskID(ctx context.Context, taskID uuid.UUID, limit int) ([]domain.Comment, error)
}

type commentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *commentRepository) FindByTaskID(ctx context.Context, taskID uuid.UUID, limit int) ([]domain.Comment, error) {
	comments := make([]domain.Comment, 0)
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at DESC").
		Limit(limit).
		Preload("Files").
		Find(&comments).Error
	return comments, err
}
