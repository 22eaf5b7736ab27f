package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime-service/internal/bus"
	"realtime-service/internal/domain"
	"realtime-service/internal/metrics"
	"realtime-service/internal/repository"
	"realtime-service/internal/ws"
)

// EventNewComment is the event name pushed to task rooms.
const EventNewComment = "new_comment"

// wsEvent is the envelope pushed to task-room clients.
type wsEvent struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// RelayService is the persistent half of the comment pipeline. It consumes
// the bus, materializes comments into storage, answers history requests,
// and forwards notifications to live connections.
//
// Every consume-path error is terminal for that one message only: log,
// drop, keep the loop alive. There is no back-channel to the publisher.
type RelayService struct {
	bus          bus.Bus
	commentRepo  repository.CommentRepository
	hub          *ws.Hub
	logger       *zap.Logger
	metrics      *metrics.Metrics
	historyLimit int

	mu   sync.Mutex
	subs []bus.Subscription
	wg   sync.WaitGroup
}

func NewRelayService(
	b bus.Bus,
	commentRepo repository.CommentRepository,
	hub *ws.Hub,
	historyLimit int,
	logger *zap.Logger,
	m *metrics.Metrics,
) *RelayService {
	if historyLimit <= 0 {
		historyLimit = 50
	}
	return &RelayService{
		bus:          b,
		commentRepo:  commentRepo,
		hub:          hub,
		logger:       logger,
		metrics:      m,
		historyLimit: historyLimit,
	}
}

// Start subscribes to all channel families and launches the consumer loops.
func (r *RelayService) Start(ctx context.Context) error {
	commentsSub, err := r.bus.Subscribe(ctx, bus.ChannelComments)
	if err != nil {
		return err
	}
	historySub, err := r.bus.PSubscribe(ctx, bus.CommentsRequestPattern)
	if err != nil {
		commentsSub.Close()
		return err
	}
	notificationsSub, err := r.bus.Subscribe(ctx, bus.ChannelNotifications)
	if err != nil {
		commentsSub.Close()
		historySub.Close()
		return err
	}

	r.mu.Lock()
	r.subs = []bus.Subscription{commentsSub, historySub, notificationsSub}
	r.mu.Unlock()

	r.loop(commentsSub, r.handleComment)
	r.loop(historySub, r.handleHistoryRequest)
	r.loop(notificationsSub, r.handleNotification)

	r.logger.Info("Relay subscribed",
		zap.Strings("channels", []string{bus.ChannelComments, bus.CommentsRequestPattern, bus.ChannelNotifications}))
	return nil
}

// Shutdown closes all subscriptions and waits for in-flight handlers.
func (r *RelayService) Shutdown() {
	r.mu.Lock()
	subs := r.subs
	r.subs = nil
	r.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
	r.wg.Wait()
}

func (r *RelayService) loop(sub bus.Subscription, handle func(bus.Message)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for msg := range sub.Messages() {
			func() {
				defer func() {
					if rec := recover(); rec != nil {
						r.logger.Error("Recovered from panic in bus handler",
							zap.Any("panic", rec),
							zap.String("channel", msg.Channel))
					}
				}()
				handle(msg)
			}()
		}
	}()
}

// handleComment materializes one comment from the bus and fans it out to
// the task room. Malformed payloads and persistence failures are logged
// with the raw payload so the row can be recovered by hand.
func (r *RelayService) handleComment(msg bus.Message) {
	if r.metrics != nil {
		r.metrics.BusConsumeTotal.WithLabelValues(bus.ChannelComments).Inc()
	}

	var envelope bus.CommentEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
		r.dropComment("malformed", msg.Payload, "", err)
		return
	}

	taskID, err := uuid.Parse(envelope.TaskID)
	if err != nil || taskID == uuid.Nil {
		r.dropComment("malformed", msg.Payload, envelope.TaskID, err)
		return
	}
	senderID, err := uuid.Parse(envelope.SenderID)
	if err != nil || senderID == uuid.Nil {
		r.dropComment("malformed", msg.Payload, envelope.TaskID, err)
		return
	}

	files := envelope.Files
	if files == nil {
		files = make([]domain.CommentFile, 0)
	}

	comment := &domain.Comment{
		TaskID:   taskID,
		SenderID: senderID,
		Body:     envelope.Comment,
		FromBus:  true,
		Files:    files,
	}
	// Keep the gateway submission time as the comment time when it parses;
	// otherwise persistence time stands in.
	if ts, err := time.Parse(time.RFC3339Nano, envelope.Timestamp); err == nil {
		comment.CreatedAt = ts
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.commentRepo.Create(ctx, comment); err != nil {
		r.dropComment("persist", msg.Payload, envelope.TaskID, err)
		return
	}

	payload, err := json.Marshal(wsEvent{Event: EventNewComment, Data: comment})
	if err != nil {
		r.logger.Error("Failed to marshal comment event",
			zap.String("task_id", envelope.TaskID),
			zap.Error(err))
		return
	}
	r.hub.BroadcastToTask(taskID, payload)

	r.logger.Info("Comment persisted and broadcast",
		zap.String("comment_id", comment.ID.String()),
		zap.String("task_id", envelope.TaskID))
}

func (r *RelayService) dropComment(reason, payload, taskID string, err error) {
	if r.metrics != nil {
		r.metrics.BusConsumeDropped.WithLabelValues(bus.ChannelComments, reason).Inc()
	}
	r.logger.Error("Dropping comment message",
		zap.String("reason", reason),
		zap.String("task_id", taskID),
		zap.String("payload", payload),
		zap.Error(err))
}

// handleHistoryRequest answers one history fetch: query newest-first,
// capped, and publish on the requester's reply channel. The responder is
// stateless per request.
func (r *RelayService) handleHistoryRequest(msg bus.Message) {
	if r.metrics != nil {
		r.metrics.BusConsumeTotal.WithLabelValues("get_comments").Inc()
	}

	var request bus.FetchRequest
	if err := json.Unmarshal([]byte(msg.Payload), &request); err != nil {
		r.logger.Warn("Dropping malformed history request",
			zap.String("channel", msg.Channel),
			zap.String("payload", msg.Payload),
			zap.Error(err))
		return
	}

	rawTaskID := request.TaskID
	if rawTaskID == "" {
		rawTaskID = strings.TrimPrefix(msg.Channel, "get_comments:")
	}
	taskID, err := uuid.Parse(rawTaskID)
	if err != nil {
		r.logger.Warn("Dropping history request with invalid task id",
			zap.String("channel", msg.Channel),
			zap.String("task_id", rawTaskID),
			zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	comments, err := r.commentRepo.FindByTaskID(ctx, taskID, r.historyLimit)
	if err != nil {
		r.logger.Error("Failed to query comment history",
			zap.String("task_id", rawTaskID),
			zap.Error(err))
		return
	}
	if comments == nil {
		comments = make([]domain.Comment, 0)
	}

	replyChannel := request.ReplyTo
	if replyChannel == "" {
		replyChannel = bus.LegacyCommentsReplyChannel(rawTaskID)
	}

	payload, err := json.Marshal(bus.FetchResponse{TaskID: rawTaskID, Comments: comments})
	if err != nil {
		r.logger.Error("Failed to marshal history response",
			zap.String("task_id", rawTaskID),
			zap.Error(err))
		return
	}

	if err := r.bus.Publish(ctx, replyChannel, payload); err != nil {
		r.logger.Error("Failed to publish history response",
			zap.String("task_id", rawTaskID),
			zap.String("reply_channel", replyChannel),
			zap.Error(err))
		return
	}
	if r.metrics != nil {
		r.metrics.BusPublishTotal.WithLabelValues("comments_get").Inc()
	}
}

// handleNotification forwards a notification payload to the recipient's
// user room. This path never persists: the listener layer already wrote
// the row before publishing.
func (r *RelayService) handleNotification(msg bus.Message) {
	if r.metrics != nil {
		r.metrics.BusConsumeTotal.WithLabelValues(bus.ChannelNotifications).Inc()
	}

	var notification domain.Notification
	if err := json.Unmarshal([]byte(msg.Payload), &notification); err != nil {
		if r.metrics != nil {
			r.metrics.BusConsumeDropped.WithLabelValues(bus.ChannelNotifications, "malformed").Inc()
		}
		r.logger.Warn("Dropping malformed notification message",
			zap.String("payload", msg.Payload),
			zap.Error(err))
		return
	}
	if notification.RecipientID == uuid.Nil {
		if r.metrics != nil {
			r.metrics.BusConsumeDropped.WithLabelValues(bus.ChannelNotifications, "malformed").Inc()
		}
		r.logger.Warn("Dropping notification without recipient",
			zap.String("payload", msg.Payload))
		return
	}

	// Forward as-is, no transformation.
	r.hub.PushToUser(notification.RecipientID, []byte(msg.Payload))
}
