package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime-service/internal/middleware"
	"realtime-service/internal/response"
	"realtime-service/internal/service"
)

// CommentHandler is the gateway's HTTP surface for comments.
type CommentHandler struct {
	publishService service.CommentPublishService
	fetchService   service.CommentFetchService
	logger         *zap.Logger
}

func NewCommentHandler(publishService service.CommentPublishService, fetchService service.CommentFetchService, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{
		publishService: publishService,
		fetchService:   fetchService,
		logger:         logger,
	}
}

type submitCommentJSON struct {
	Comment string `json:"comment"`
}

// SubmitComment accepts a comment (JSON body or multipart form with file
// attachments) and publishes it onto the bus. It returns as soon as the
// publish is accepted; persistence and live delivery happen asynchronously
// in the relay.
// POST /tasks/:taskId/comments
func (h *CommentHandler) SubmitComment(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid task ID")
		return
	}

	senderID, ok := middleware.UserID(c)
	if !ok {
		response.SendError(c, http.StatusUnauthorized, response.ErrCodeUnauthorized, "Authentication required")
		return
	}

	input := &service.SubmitCommentInput{
		TaskID:   taskID,
		SenderID: senderID,
	}

	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		form, err := c.MultipartForm()
		if err != nil {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid multipart form")
			return
		}
		input.Body = c.PostForm("comment")
		input.Attachments = form.File["files"]
	} else {
		var body submitCommentJSON
		if err := c.ShouldBindJSON(&body); err != nil {
			response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid request body")
			return
		}
		input.Body = body.Comment
	}

	envelope, err := h.publishService.SubmitComment(c.Request.Context(), input)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusCreated, envelope)
}

// GetComments proxies the task's comment history through the bus
// request/response leg. 504 means the relay did not answer; an empty list
// is a normal 200.
// GET /tasks/:taskId/comments
func (h *CommentHandler) GetComments(c *gin.Context) {
	taskID, err := uuid.Parse(c.Param("taskId"))
	if err != nil {
		response.SendError(c, http.StatusBadRequest, response.ErrCodeValidation, "Invalid task ID")
		return
	}

	comments, err := h.fetchService.FetchComments(c.Request.Context(), taskID)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	response.SendSuccess(c, http.StatusOK, gin.H{
		"taskId":   taskID.String(),
		"comments": comments,
	})
}
