package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"realtime-service/internal/config"
	"realtime-service/internal/domain"
)

// New opens a PostgreSQL connection and configures the pool.
func New(cfg config.DatabaseConfig, env string) (*gorm.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database url is not set")
	}

	logLevel := logger.Silent
	if env == "dev" || env == "development" {
		logLevel = logger.Info
	}

	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		},
	)

	db, err := gorm.Open(postgres.Open(cfg.URL), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime.Std())

	return db, nil
}

// AutoMigrate runs schema migrations for all relay-owned tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.Comment{},
		&domain.CommentFile{},
		&domain.Notification{},
	); err != nil {
		return err
	}

	createIndexes(db)
	return nil
}

func createIndexes(db *gorm.DB) {
	// History fetches are newest-first per task.
	db.Exec(`CREATE INDEX IF NOT EXISTS idx_comments_task_created
		ON comments (task_id, created_at DESC)`)

	// Unread lookups by recipient and workspace.
	db.Exec(`CREATE INDEX IF NOT EXISTS idx_notifications_recipient_unread
		ON notifications (recipient_id, workspace_id) WHERE is_read = false`)
}
