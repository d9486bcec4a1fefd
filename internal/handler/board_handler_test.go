package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
)

type boardServiceMock struct {
	board      *dto.StudentBoardResponse
	cacheHit   bool
	pick       *dto.BoardEntry
	export     *dto.BoardExport
	err        error
	lastFormat dto.ExportFormat
}

func (m *boardServiceMock) GetStudentBoard(ctx context.Context, studentID string) (*dto.StudentBoardResponse, bool, error) {
	return m.board, m.cacheHit, m.err
}

func (m *boardServiceMock) ConfirmFinalPick(ctx context.Context, studentID string) (*dto.BoardEntry, error) {
	return m.pick, m.err
}

func (m *boardServiceMock) Export(ctx context.Context, studentID string, format dto.ExportFormat) (*dto.BoardExport, error) {
	m.lastFormat = format
	return m.export, m.err
}

var chairClaims = &models.JWTClaims{UserID: "chair-1", Role: models.RoleProgramChair}

func TestBoardHandlerGetReportsStatusAndCache(t *testing.T) {
	pick := dto.BoardEntry{ConceptTitleID: "a", Title: "A", RankOne: 1}
	handler := NewBoardHandler(&boardServiceMock{
		board: &dto.StudentBoardResponse{
			StudentID:  "student-1",
			Status:     dto.BoardStatusPreliminary,
			Entries:    []dto.BoardEntry{pick},
			FinalPick:  &pick,
			Completion: dto.Completion{TotalAssignments: 3, RankedAssignments: 2},
		},
		cacheHit: true,
	})

	c, w := newJSONContext(http.MethodGet, "/students/student-1/board", "", chairClaims)
	c.Params = gin.Params{{Key: "studentId", Value: "student-1"}}
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, true, env.Meta["cache_hit"])
	assert.Equal(t, "preliminary", env.Meta["status"])

	var board dto.StudentBoardResponse
	require.NoError(t, json.Unmarshal(env.Data, &board))
	assert.Equal(t, "A", board.FinalPick.Title)
	assert.False(t, board.Completion.RankingComplete)
}

func TestBoardHandlerGetNotFound(t *testing.T) {
	handler := NewBoardHandler(&boardServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student not found")})

	c, w := newJSONContext(http.MethodGet, "/students/ghost/board", "", chairClaims)
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBoardHandlerFinalPickPreliminary(t *testing.T) {
	handler := NewBoardHandler(&boardServiceMock{err: appErrors.ErrPreconditionFailed})

	c, w := newJSONContext(http.MethodGet, "/students/student-1/final-pick", "", chairClaims)
	handler.FinalPick(c)

	assert.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestBoardHandlerExport(t *testing.T) {
	mockSvc := &boardServiceMock{export: &dto.BoardExport{Filename: "board-student-1.pdf", ContentType: "application/pdf", Body: []byte("%PDF-1.3")}}
	handler := NewBoardHandler(mockSvc)

	c, w := newJSONContext(http.MethodGet, "/students/student-1/board/export?format=PDF", "", chairClaims)
	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ExportFormatPDF, mockSvc.lastFormat)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "board-student-1.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())
}
