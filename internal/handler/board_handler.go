package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/middleware"
	"github.com/noah-isme/concept-review-api/pkg/response"
)

type boardService interface {
	GetStudentBoard(ctx context.Context, studentID string) (*dto.StudentBoardResponse, bool, error)
	ConfirmFinalPick(ctx context.Context, studentID string) (*dto.BoardEntry, error)
	Export(ctx context.Context, studentID string, format dto.ExportFormat) (*dto.BoardExport, error)
}

// BoardHandler serves student ranking boards.
type BoardHandler struct {
	service boardService
}

// NewBoardHandler builds a new handler.
func NewBoardHandler(service boardService) *BoardHandler {
	return &BoardHandler{service: service}
}

// Get godoc
// @Summary Get a student's concept title board
// @Description Status is "final" only when every assignment of the student carries a rank.
// @Tags Boards
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{studentId}/board [get]
func (h *BoardHandler) Get(c *gin.Context) {
	if requireClaims(c) == nil {
		return
	}
	board, cacheHit, err := h.service.GetStudentBoard(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ResponseMeta(c)
	meta["status"] = board.Status
	response.JSON(c, http.StatusOK, board, meta)
}

// FinalPick godoc
// @Summary Confirm a student's final pick
// @Description Fails with 412 while the board is preliminary.
// @Tags Boards
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /students/{studentId}/final-pick [get]
func (h *BoardHandler) FinalPick(c *gin.Context) {
	if requireClaims(c) == nil {
		return
	}
	pick, err := h.service.ConfirmFinalPick(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pick)
}

// Export godoc
// @Summary Export a student's board
// @Tags Boards
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/{studentId}/board/export [get]
func (h *BoardHandler) Export(c *gin.Context) {
	if requireClaims(c) == nil {
		return
	}
	format := dto.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(dto.ExportFormatCSV))))
	file, err := h.service.Export(c.Request.Context(), c.Param("studentId"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
