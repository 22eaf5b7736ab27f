package client

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MockS3Client implements S3ClientInterface for testing without AWS credentials
type MockS3Client struct {
	// Optional function overrides for custom test behavior
	GenerateFileKeyFunc func(taskID, fileExt string) string
	UploadFileFunc      func(ctx context.Context, key string, file io.Reader, contentType string) (string, error)
	DeleteFileFunc      func(ctx context.Context, key string) error
}

// NewMockS3Client creates a new mock S3 client for testing
func NewMockS3Client() *MockS3Client {
	return &MockS3Client{}
}

func (m *MockS3Client) GenerateFileKey(taskID, fileExt string) string {
	if m.GenerateFileKeyFunc != nil {
		return m.GenerateFileKeyFunc(taskID, fileExt)
	}

	now := time.Now().UTC()
	ext := strings.TrimPrefix(fileExt, ".")
	name := fmt.Sprintf("%s_%d", uuid.New().String(), now.UnixMilli())
	if ext != "" {
		name = name + "." + ext
	}
	return fmt.Sprintf("comments/%s/%d/%02d/%s", taskID, now.Year(), int(now.Month()), name)
}

func (m *MockS3Client) UploadFile(ctx context.Context, key string, file io.Reader, contentType string) (string, error) {
	if m.UploadFileFunc != nil {
		return m.UploadFileFunc(ctx, key, file, contentType)
	}
	// Drain the reader like a real upload would
	if _, err := io.Copy(io.Discard, file); err != nil {
		return "", err
	}
	return key, nil
}

func (m *MockS3Client) DeleteFile(ctx context.Context, key string) error {
	if m.DeleteFileFunc != nil {
		return m.DeleteFileFunc(ctx, key)
	}
	return nil
}
