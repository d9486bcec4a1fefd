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

type reviewService interface {
	SubmitReview(ctx context.Context, req dto.SubmitReviewRequest) (*models.Review, error)
	SubmitBulkRanks(ctx context.Context, req dto.BulkRankRequest) (*dto.BulkRankResult, error)
}

// ReviewHandler exposes reviewer submission endpoints.
type ReviewHandler struct {
	service reviewService
}

// NewReviewHandler builds a new handler.
func NewReviewHandler(service reviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Submit godoc
// @Summary Submit or update the caller's review of one assignment
// @Description Omitted fields keep their stored value. clear_rank removes a stored rank.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param assignmentId path string true "Assignment ID"
// @Param payload body dto.SubmitReviewRequest true "Review fields"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /assignments/{assignmentId}/review [put]
func (h *ReviewHandler) Submit(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.SubmitReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}
	req.AssignmentID = c.Param("assignmentId")
	req.ReviewerID = claims.UserID
	req.CallerRole = claims.Role

	review, err := h.service.SubmitReview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, review)
}

// BulkRanks godoc
// @Summary Re-rank all of the caller's assignments for a student
// @Description Assignments missing from ranks have their rank cleared. The batch applies fully or not at all.
// @Tags Reviews
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.BulkRankRequest true "Assignment id to rank"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{studentId}/ranks [put]
func (h *ReviewHandler) BulkRanks(c *gin.Context) {
	claims := requireClaims(c)
	if claims == nil {
		return
	}
	var req dto.BulkRankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk rank payload"))
		return
	}
	req.StudentID = c.Param("studentId")
	req.ReviewerID = claims.UserID
	req.CallerRole = claims.Role

	result, err := h.service.SubmitBulkRanks(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
