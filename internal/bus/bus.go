package bus

import (
	"context"
	"errors"
)

// ErrBusClosed is returned by operations on a closed bus.
var ErrBusClosed = errors.New("bus is closed")

// Channel names shared by the gateway and the relay. These, together with
// the envelope types, are the wire contract between the two processes.
const (
	// ChannelComments carries fire-and-forget new-comment broadcasts.
	ChannelComments = "comments"
	// ChannelNotifications carries fire-and-forget notification broadcasts.
	ChannelNotifications = "notifications"

	// CommentsRequestPattern matches every per-task history request channel.
	CommentsRequestPattern = "get_comments:*"
)

// CommentsRequestChannel returns the history-request channel for a task.
func CommentsRequestChannel(taskID string) string {
	return "get_comments:" + taskID
}

// CommentsReplyChannel returns the per-request reply channel. The request id
// suffix makes the reply private to one requester, so concurrent fetches for
// the same task cannot consume each other's response.
func CommentsReplyChannel(taskID, requestID string) string {
	return "comments_get:" + taskID + ":" + requestID
}

// LegacyCommentsReplyChannel is the reply channel used by requesters that do
// not send a reply_to. Kept for wire compatibility.
func LegacyCommentsReplyChannel(taskID string) string {
	return "comments_get:" + taskID
}

// Message is a single delivery from a subscription.
type Message struct {
	Channel string
	Payload string
}

// Subscription is a live channel (or pattern) subscription.
type Subscription interface {
	// Messages returns the delivery stream. The channel is closed when the
	// subscription is closed or the bus shuts down.
	Messages() <-chan Message
	Close() error
}

// Bus is a publish/subscribe broker connecting the gateway and the relay.
// Implementations: Redis (production) and Memory (tests, local dev).
// Construct in main and Close on shutdown; there is no package-level client.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
	// PSubscribe subscribes by glob pattern (e.g. "get_comments:*").
	PSubscribe(ctx context.Context, patterns ...string) (Subscription, error)
	Close() error
}
