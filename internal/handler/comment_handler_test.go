package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime-service/internal/bus"
	"realtime-service/internal/domain"
	"realtime-service/internal/response"
	"realtime-service/internal/service"
)

// MockCommentPublishService is a mock implementation of service.CommentPublishService
type MockCommentPublishService struct {
	SubmitCommentFunc func(ctx context.Context, input *service.SubmitCommentInput) (*bus.CommentEnvelope, error)
}

func (m *MockCommentPublishService) SubmitComment(ctx context.Context, input *service.SubmitCommentInput) (*bus.CommentEnvelope, error) {
	if m.SubmitCommentFunc != nil {
		return m.SubmitCommentFunc(ctx, input)
	}
	return &bus.CommentEnvelope{
		TaskID:    input.TaskID.String(),
		SenderID:  input.SenderID.String(),
		Comment:   input.Body,
		Files:     make([]domain.CommentFile, 0),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

// MockCommentFetchService is a mock implementation of service.CommentFetchService
type MockCommentFetchService struct {
	FetchCommentsFunc func(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error)
}

func (m *MockCommentFetchService) FetchComments(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
	if m.FetchCommentsFunc != nil {
		return m.FetchCommentsFunc(ctx, taskID)
	}
	return make([]domain.Comment, 0), nil
}

func setupCommentRouter(publish *MockCommentPublishService, fetch *MockCommentFetchService, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCommentHandler(publish, fetch, zap.NewNop())

	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set("user_id", userID)
		}
		c.Next()
	})
	authed.POST("/tasks/:taskId/comments", h.SubmitComment)
	authed.GET("/tasks/:taskId/comments", h.GetComments)
	return r
}

func TestCommentHandler_SubmitComment_JSON(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()

	var captured *service.SubmitCommentInput
	publish := &MockCommentPublishService{
		SubmitCommentFunc: func(ctx context.Context, input *service.SubmitCommentInput) (*bus.CommentEnvelope, error) {
			captured = input
			return &bus.CommentEnvelope{
				TaskID:    input.TaskID.String(),
				SenderID:  input.SenderID.String(),
				Comment:   input.Body,
				Files:     make([]domain.CommentFile, 0),
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			}, nil
		},
	}
	router := setupCommentRouter(publish, &MockCommentFetchService{}, userID)

	body, _ := json.Marshal(map[string]string{"comment": "looks good to me"})
	req := httptest.NewRequest(http.MethodPost, "/tasks/"+taskID.String()+"/comments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if captured == nil {
		t.Fatal("publish service not called")
	}
	if captured.TaskID != taskID || captured.SenderID != userID {
		t.Errorf("unexpected input ids %v/%v", captured.TaskID, captured.SenderID)
	}
	if captured.Body != "looks good to me" {
		t.Errorf("unexpected body %q", captured.Body)
	}

	var resp struct {
		Data bus.CommentEnvelope `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if resp.Data.Comment != "looks good to me" {
		t.Errorf("unexpected envelope comment %q", resp.Data.Comment)
	}
}

func TestCommentHandler_SubmitComment_Multipart(t *testing.T) {
	userID := uuid.New()
	taskID := uuid.New()

	var captured *service.SubmitCommentInput
	publish := &MockCommentPublishService{
		SubmitCommentFunc: func(ctx context.Context, input *service.SubmitCommentInput) (*bus.CommentEnvelope, error) {
			captured = input
			return &bus.CommentEnvelope{Files: make([]domain.CommentFile, 0)}, nil
		},
	}
	router := setupCommentRouter(publish, &MockCommentFetchService{}, userID)

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	mw.WriteField("comment", "with attachments")
	fw, _ := mw.CreateFormFile("files", "notes.txt")
	fw.Write([]byte("meeting notes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/tasks/"+taskID.String()+"/comments", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if captured == nil {
		t.Fatal("publish service not called")
	}
	if captured.Body != "with attachments" {
		t.Errorf("unexpected body %q", captured.Body)
	}
	if len(captured.Attachments) != 1 || captured.Attachments[0].Filename != "notes.txt" {
		t.Errorf("attachments not forwarded: %+v", captured.Attachments)
	}
}

func TestCommentHandler_SubmitComment_Errors(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name           string
		taskID         string
		userID         uuid.UUID
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "invalid task id",
			taskID:         "not-a-uuid",
			userID:         userID,
			body:           `{"comment":"x"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   response.ErrCodeValidation,
		},
		{
			name:           "missing auth",
			taskID:         uuid.New().String(),
			userID:         uuid.Nil,
			body:           `{"comment":"x"}`,
			expectedStatus: http.StatusUnauthorized,
			expectedCode:   response.ErrCodeUnauthorized,
		},
		{
			name:           "malformed body",
			taskID:         uuid.New().String(),
			userID:         userID,
			body:           `{not json`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   response.ErrCodeValidation,
		},
		{
			name:           "bus unavailable",
			taskID:         uuid.New().String(),
			userID:         userID,
			body:           `{"comment":"x"}`,
			serviceErr:     response.NewAppError(response.ErrCodeBusUnavailable, "broker down"),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   response.ErrCodeBusUnavailable,
		},
		{
			name:           "upload failed",
			taskID:         uuid.New().String(),
			userID:         userID,
			body:           `{"comment":"x"}`,
			serviceErr:     response.NewAppError(response.ErrCodeUploadFailed, "storage down"),
			expectedStatus: http.StatusBadGateway,
			expectedCode:   response.ErrCodeUploadFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			publish := &MockCommentPublishService{}
			if tt.serviceErr != nil {
				publish.SubmitCommentFunc = func(ctx context.Context, input *service.SubmitCommentInput) (*bus.CommentEnvelope, error) {
					return nil, tt.serviceErr
				}
			}
			router := setupCommentRouter(publish, &MockCommentFetchService{}, tt.userID)

			req := httptest.NewRequest(http.MethodPost, "/tasks/"+tt.taskID+"/comments", bytes.NewReader([]byte(tt.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Fatalf("expected %d, got %d: %s", tt.expectedStatus, w.Code, w.Body.String())
			}

			var resp struct {
				Error response.ErrorBody `json:"error"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("malformed error response: %v", err)
			}
			if resp.Error.Code != tt.expectedCode {
				t.Errorf("expected code %q, got %q", tt.expectedCode, resp.Error.Code)
			}
		})
	}
}

func TestCommentHandler_GetComments_EmptyHistoryIs200(t *testing.T) {
	taskID := uuid.New()
	router := setupCommentRouter(&MockCommentPublishService{}, &MockCommentFetchService{}, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+taskID.String()+"/comments", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			TaskID   string           `json:"taskId"`
			Comments []domain.Comment `json:"comments"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if resp.Data.TaskID != taskID.String() {
		t.Errorf("unexpected task id %q", resp.Data.TaskID)
	}
	if resp.Data.Comments == nil {
		t.Error("expected comments array, got null")
	}
	if len(resp.Data.Comments) != 0 {
		t.Errorf("expected empty history, got %d", len(resp.Data.Comments))
	}
}

func TestCommentHandler_GetComments_RelayTimeoutIs504(t *testing.T) {
	fetch := &MockCommentFetchService{
		FetchCommentsFunc: func(ctx context.Context, taskID uuid.UUID) ([]domain.Comment, error) {
			return nil, service.ErrFetchTimeout
		},
	}
	router := setupCommentRouter(&MockCommentPublishService{}, fetch, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+uuid.New().String()+"/comments", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Error response.ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed error response: %v", err)
	}
	if resp.Error.Code != response.ErrCodeGatewayTimeout {
		t.Errorf("expected GATEWAY_TIMEOUT, got %q", resp.Error.Code)
	}
}

func TestCommentHandler_GetComments_ReturnsHistory(t *testing.T) {
	taskID := uuid.New()
	fetch := &MockCommentFetchService{
		FetchCommentsFunc: func(ctx context.Context, id uuid.UUID) ([]domain.Comment, error) {
			return []domain.Comment{
				{BaseModel: domain.BaseModel{ID: uuid.New()}, TaskID: id, Body: "newest"},
				{BaseModel: domain.BaseModel{ID: uuid.New()}, TaskID: id, Body: "older"},
			}, nil
		},
	}
	router := setupCommentRouter(&MockCommentPublishService{}, fetch, uuid.New())

	req := httptest.NewRequest(http.MethodGet, "/tasks/"+taskID.String()+"/comments", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Comments []domain.Comment `json:"comments"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("malformed response: %v", err)
	}
	if len(resp.Data.Comments) != 2 || resp.Data.Comments[0].Body != "newest" {
		t.Errorf("unexpected comments %+v", resp.Data.Comments)
	}
}
