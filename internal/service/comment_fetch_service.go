package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime-service/internal/bus"
	"realtime-service/internal/domain"
	"realtime-service/internal/metrics"
)

// ErrFetchTimeout means the relay did not answer a history request in time.
// It is distinct from an empty history, which is a normal response.
var ErrFetchTimeout = errors.New("timed out waiting for comment history from relay")

// CommentFetchService resolves a task's comment history by asking the relay
// over the bus: publish a request, wait for the correlated response.
type CommentFetchService interface {
	FetchComments(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error)
}

type commentFetchService struct {
	bus     bus.Bus
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewCommentFetchService(b bus.Bus, timeout time.Duration, logger *zap.Logger, m *metrics.Metrics) CommentFetchService {
	return &commentFetchService{
		bus:     b,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

func (s *commentFetchService) FetchComments(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
	// Each request gets a private reply channel keyed by a fresh request id,
	// so concurrent fetches for the same task cannot steal each other's
	// response.
	requestID := uuid.New().String()
	replyChannel := bus.CommentsReplyChannel(taskID.String(), requestID)

	// Subscribe before publishing so the response cannot slip past us.
	sub, err := s.bus.Subscribe(ctx, replyChannel)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to reply channel: %w", err)
	}
	defer sub.Close()

	request, err := json.Marshal(bus.FetchRequest{
		TaskID:  taskID.String(),
		ReplyTo: replyChannel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal fetch request: %w", err)
	}

	if err := s.bus.Publish(ctx, bus.CommentsRequestChannel(taskID.String()), request); err != nil {
		if s.metrics != nil {
			s.metrics.BusPublishErrors.WithLabelValues("get_comments").Inc()
		}
		return nil, fmt.Errorf("failed to publish fetch request: %w", err)
	}
	if s.metrics != nil {
		s.metrics.BusPublishTotal.WithLabelValues("get_comments").Inc()
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-sub.Messages():
		if !ok {
			return nil, fmt.Errorf("reply subscription closed")
		}
		var resp bus.FetchResponse
		if err := json.Unmarshal([]byte(msg.Payload), &resp); err != nil {
			return nil, fmt.Errorf("malformed history response: %w", err)
		}
		if resp.Comments == nil {
			resp.Comments = make([]domain.Comment, 0)
		}
		return resp.Comments, nil

	case <-timer.C:
		if s.metrics != nil {
			s.metrics.FetchTimeoutsTotal.Inc()
		}
		s.logger.Warn("History fetch timed out",
			zap.String("task_id", taskID.String()),
			zap.Duration("timeout", s.timeout))
		return nil, ErrFetchTimeout

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
