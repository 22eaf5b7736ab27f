package service

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime-service/internal/bus"
	"realtime-service/internal/client"
	"realtime-service/internal/domain"
	"realtime-service/internal/metrics"
	"realtime-service/internal/response"
)

// SubmitCommentInput is a comment submission accepted by the gateway.
type SubmitCommentInput struct {
	TaskID      uuid.UUID
	SenderID    uuid.UUID
	Body        string
	Attachments []*multipart.FileHeader
}

// CommentPublishService accepts comment submissions and publishes them onto
// the bus. It persists nothing; durability is the relay's job. A successful
// publish is a successful submission, whether or not the relay is running.
type CommentPublishService interface {
	SubmitComment(ctx context.Context, input *SubmitCommentInput) (*bus.CommentEnvelope, error)
}

type commentPublishService struct {
	bus      bus.Bus
	s3Client client.S3ClientInterface
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

func NewCommentPublishService(b bus.Bus, s3Client client.S3ClientInterface, logger *zap.Logger, m *metrics.Metrics) CommentPublishService {
	return &commentPublishService{
		bus:      b,
		s3Client: s3Client,
		logger:   logger,
		metrics:  m,
	}
}

func (s *commentPublishService) SubmitComment(ctx context.Context, input *SubmitCommentInput) (*bus.CommentEnvelope, error) {
	// Upload attachments first. Any failure aborts the whole submission:
	// a partial comment is never published.
	files, err := s.uploadAttachments(ctx, input)
	if err != nil {
		return nil, err
	}

	envelope := &bus.CommentEnvelope{
		TaskID:    input.TaskID.String(),
		SenderID:  input.SenderID.String(),
		Comment:   input.Body,
		Files:     files,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal comment envelope: %w", err)
	}

	if err := s.bus.Publish(ctx, bus.ChannelComments, payload); err != nil {
		if s.metrics != nil {
			s.metrics.BusPublishErrors.WithLabelValues(bus.ChannelComments).Inc()
		}
		s.logger.Error("Failed to publish comment",
			zap.String("task_id", envelope.TaskID),
			zap.Error(err))
		return nil, response.NewAppErrorWithDetails(
			response.ErrCodeBusUnavailable,
			"failed to publish comment to the message bus",
			err.Error(),
		)
	}

	if s.metrics != nil {
		s.metrics.BusPublishTotal.WithLabelValues(bus.ChannelComments).Inc()
	}

	s.logger.Info("Comment published",
		zap.String("task_id", envelope.TaskID),
		zap.String("sender_id", envelope.SenderID),
		zap.Int("files", len(files)))

	return envelope, nil
}

func (s *commentPublishService) uploadAttachments(ctx context.Context, input *SubmitCommentInput) ([]domain.CommentFile, error) {
	// Always an array on the wire, never null.
	files := make([]domain.CommentFile, 0, len(input.Attachments))

	if len(input.Attachments) > 0 && s.s3Client == nil {
		return nil, response.NewAppError(
			response.ErrCodeUploadFailed,
			"attachment storage is not configured",
		)
	}

	uploaded := make([]string, 0, len(input.Attachments))

	for _, header := range input.Attachments {
		file, err := header.Open()
		if err != nil {
			s.rollbackUploads(ctx, input.TaskID, uploaded)
			return nil, response.NewAppErrorWithDetails(
				response.ErrCodeUploadFailed,
				fmt.Sprintf("failed to read attachment %q", header.Filename),
				err.Error(),
			)
		}

		contentType := header.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key := s.s3Client.GenerateFileKey(input.TaskID.String(), filepath.Ext(header.Filename))
		storedKey, err := s.s3Client.UploadFile(ctx, key, file, contentType)
		file.Close()
		if err != nil {
			s.logger.Error("Attachment upload failed, aborting submission",
				zap.String("task_id", input.TaskID.String()),
				zap.String("file_name", header.Filename),
				zap.Error(err))
			s.rollbackUploads(ctx, input.TaskID, uploaded)
			return nil, response.NewAppErrorWithDetails(
				response.ErrCodeUploadFailed,
				fmt.Sprintf("failed to upload attachment %q", header.Filename),
				err.Error(),
			)
		}
		uploaded = append(uploaded, storedKey)

		files = append(files, domain.CommentFile{
			FileName:   filepath.Base(storedKey),
			OriginName: header.Filename,
			FileType:   contentType,
			FileSize:   header.Size,
			FileURL:    storedKey,
			UploadedAt: time.Now().UTC(),
		})
	}

	return files, nil
}

// rollbackUploads removes objects uploaded for a submission that is being
// aborted, so a rejected comment leaves no orphaned attachments behind.
// Deletes are best effort; a failed delete is logged and skipped.
func (s *commentPublishService) rollbackUploads(ctx context.Context, taskID uuid.UUID, keys []string) {
	for _, key := range keys {
		if err := s.s3Client.DeleteFile(ctx, key); err != nil {
			s.logger.Warn("Failed to remove attachment during rollback",
				zap.String("task_id", taskID.String()),
				zap.String("file_key", key),
				zap.Error(err))
		}
	}
}
