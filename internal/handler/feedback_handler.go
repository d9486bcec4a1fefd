package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
	"github.com/noah-isme/concept-review-api/pkg/response"
)

type feedbackService interface {
	AttachChairFeedback(ctx context.Context, req dto.ChairFeedbackRequest) (*dto.ChairFeedbackResult, error)
	PostConversationMessage(ctx context.Context, req dto.PostMessageRequest) (*models.FeedbackMessage, error)
	ListConversation(ctx context.Context, req dto.ListMessagesRequest) ([]models.FeedbackMessage, error)
}

// FeedbackHandler exposes chair feedback and conversation endpoints.
type FeedbackHandler struct {
	service feedbackService
}

// NewFeedbackHandler builds a new handler.
func NewFeedbackHandler(service feedbackService) *FeedbackHandler {
	return &FeedbackHandler{service: service}
}

// AttachChairFeedback godoc
// @Summary Attach program chair feedback to a review
// @Description target_kind "student" anchors on the latest adviser review of the concept title; "mentor" on the assignment's own review.
// @Tags Feedback
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.ChairFeedbackRequest true "Feedback"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{assignmentId}/chair-feedback [post]
func (h *FeedbackHandler) AttachChairFeedback(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.ChairFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid chair feedback payload"))
		return
	}
	req.AssignmentID = c.Param("assignmentId")
	req.AuthorID = claims.UserID

	result, err := h.service.AttachChairFeedback(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// PostMessage godoc
// @Summary Post a message to an assignment's conversation
// @Tags Feedback
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.PostMessageRequest true "Message"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /assignments/{assignmentId}/messages [post]
func (h *FeedbackHandler) PostMessage(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid message payload"))
		return
	}
	req.AssignmentID = c.Param("assignmentId")
	req.SenderID = claims.UserID
	req.SenderRole = claims.Role

	msg, err := h.service.PostConversationMessage(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// ListMessages godoc
// @Summary List an assignment's conversation, oldest first
// @Tags Feedback
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /assignments/{assignmentId}/messages [get]
func (h *FeedbackHandler) ListMessages(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	items, err := h.service.ListConversation(c.Request.Context(), dto.ListMessagesRequest{
		AssignmentID: c.Param("assignmentId"),
		ViewerID:     claims.UserID,
		ViewerRole:   claims.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items)
}
