package bus

import (
	"realtime-service/internal/domain"
)

// CommentEnvelope is the payload published on the comments channel.
// Timestamp is the gateway-assigned ISO-8601 submission time.
type CommentEnvelope struct {
	TaskID    string               `json:"task_id"`
	SenderID  string               `json:"sender_id"`
	Comment   string               `json:"comment"`
	Files     []domain.CommentFile `json:"files"`
	Timestamp string               `json:"timestamp"`
}

// FetchRequest is the payload published on get_comments:<task_id>.
// ReplyTo names the per-request reply channel; responders fall back to the
// legacy per-task reply channel when it is empty.
type FetchRequest struct {
	TaskID  string `json:"task_id"`
	ReplyTo string `json:"reply_to,omitempty"`
}

// FetchResponse is the payload published on the reply channel.
// Comments is always a JSON array, never null.
type FetchResponse struct {
	TaskID   string           `json:"task_id"`
	Comments []domain.Comment `json:"comments"`
}
