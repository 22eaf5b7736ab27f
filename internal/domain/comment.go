package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment represents a task comment materialized by the relay.
// Comments are insert-only: there is no update or delete path.
type Comment struct {
	BaseModel
	TaskID   uuid.UUID `gorm:"type:uuid;not null;index:idx_comments_task_created,priority:1" json:"taskId"`
	SenderID uuid.UUID `gorm:"type:uuid;not null;index:idx_comments_sender_id" json:"senderId"`
	Body     string    `gorm:"type:text" json:"body"`
	// FromBus marks rows written by the bus consumer rather than a direct
	// write path. Diagnostic only.
	FromBus bool          `gorm:"not null;default:false" json:"fromBus"`
	Files   []CommentFile `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"files"`
}

// TableName specifies the table name for Comment
func (Comment) TableName() string {
	return "comments"
}

// CommentFile is an attachment owned by exactly one comment.
type CommentFile struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CommentID  uuid.UUID `gorm:"type:uuid;index:idx_comment_files_comment_id" json:"-"`
	FileName   string    `gorm:"type:varchar(255);not null" json:"file_name"`
	OriginName string    `gorm:"type:varchar(255);not null" json:"origin_name"`
	FileType   string    `gorm:"type:varchar(100);not null" json:"file_type"`
	FileSize   int64     `gorm:"not null" json:"file_size"`
	// FileURL stores the object storage key, not a full URL.
	FileURL    string    `gorm:"type:text;not null" json:"file_url"`
	UploadedAt time.Time `gorm:"not null" json:"uploaded_at"`
}

// TableName specifies the table name for CommentFile
func (CommentFile) TableName() string {
	return "comment_files"
}
