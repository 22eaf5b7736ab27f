package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType is the closed set of event kinds that produce notifications.
type NotificationType string

const (
	NotificationTaskAssigned      NotificationType = "TASK_ASSIGNED"
	NotificationTaskUnassigned    NotificationType = "TASK_UNASSIGNED"
	NotificationTaskStatusChanged NotificationType = "TASK_STATUS_CHANGED"
	NotificationCommentAdded      NotificationType = "COMMENT_ADDED"
	NotificationTeamMemberAdded   NotificationType = "TEAM_MEMBER_ADDED"
	NotificationTeamMemberRemoved NotificationType = "TEAM_MEMBER_REMOVED"
)

// Valid reports whether t is one of the known notification types.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationTaskAssigned,
		NotificationTaskUnassigned,
		NotificationTaskStatusChanged,
		NotificationCommentAdded,
		NotificationTeamMemberAdded,
		NotificationTeamMemberRemoved:
		return true
	}
	return false
}

// ResourceType identifies the entity a notification points at.
type ResourceType string

const (
	ResourceTypeTask      ResourceType = "TASK"
	ResourceTypeWorkspace ResourceType = "WORKSPACE"
	ResourceTypeProject   ResourceType = "PROJECT"
	ResourceTypeTeam      ResourceType = "TEAM"
)

// Valid reports whether r is one of the known resource types.
func (r ResourceType) Valid() bool {
	switch r {
	case ResourceTypeTask, ResourceTypeWorkspace, ResourceTypeProject, ResourceTypeTeam:
		return true
	}
	return false
}

// Notification is created by the event-listener layer at event time and
// mutated only by flipping the read flag.
type Notification struct {
	ID           uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkspaceID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_recipient,priority:2" json:"workspaceId"`
	RecipientID  uuid.UUID        `gorm:"type:uuid;not null;index:idx_notifications_recipient,priority:1" json:"recipientId"`
	SenderID     *uuid.UUID       `gorm:"type:uuid" json:"senderId,omitempty"`
	Type         NotificationType `gorm:"type:varchar(50);not null" json:"type"`
	Message      string           `gorm:"type:text;not null" json:"message"`
	ResourceType ResourceType     `gorm:"type:varchar(50);not null" json:"resourceType"`
	ResourceID   uuid.UUID        `gorm:"type:uuid;not null" json:"resourceId"`
	IsRead       bool             `gorm:"not null;default:false;index:idx_notifications_is_read" json:"isRead"`
	ReadAt       *time.Time       `json:"readAt,omitempty"`
	CreatedAt    time.Time        `gorm:"not null" json:"createdAt"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// PaginatedNotifications is the list response shape for the notification API.
type PaginatedNotifications struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Page          int            `json:"page"`
	Limit         int            `json:"limit"`
	HasMore       bool           `json:"hasMore"`
}
