package job

import (
	"context"
	"time"

	"go.uber.org/zap"

	"realtime-service/internal/service"
)

// CleanupJob removes read notifications past their retention window.
// Scheduled via cron in the relay's main.
type CleanupJob struct {
	notificationService *service.NotificationService
	daysOld             int
	logger              *zap.Logger
}

func NewCleanupJob(notificationService *service.NotificationService, daysOld int, logger *zap.Logger) *CleanupJob {
	return &CleanupJob{
		notificationService: notificationService,
		daysOld:             daysOld,
		logger:              logger,
	}
}

// Run executes one cleanup pass.
func (j *CleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	count, err := j.notificationService.CleanupOld(ctx, j.daysOld)
	if err != nil {
		j.logger.Error("Notification cleanup failed",
			zap.Int("days_old", j.daysOld),
			zap.Error(err))
		return
	}

	j.logger.Info("Notification cleanup completed",
		zap.Int("days_old", j.daysOld),
		zap.Int64("deleted", count))
}
