package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concept-review-api/internal/dto"
)

type boardReaderStub struct {
	board      *dto.StudentBoardResponse
	lastFormat dto.ExportFormat
}

func (s *boardReaderStub) GetStudentBoard(context.Context, string) (*dto.StudentBoardResponse, bool, error) {
	return s.board, false, nil
}

func (s *boardReaderStub) Export(_ context.Context, studentID string, format dto.ExportFormat) (*dto.BoardExport, error) {
	s.lastFormat = format
	return &dto.BoardExport{Filename: "board-" + studentID + ".csv", Body: []byte("Position,Title\n")}, nil
}

func sampleBoard() *dto.StudentBoardResponse {
	pick := dto.BoardEntry{ConceptTitleID: "a", Title: "Adaptive Tutoring", RankOne: 2}
	return &dto.StudentBoardResponse{
		StudentID:   "student-1",
		Status:      dto.BoardStatusPreliminary,
		Entries:     []dto.BoardEntry{pick},
		FinalPick:   &pick,
		HasTieOnTop: true,
		Completion:  dto.Completion{TotalAssignments: 3, RankedAssignments: 2},
	}
}

func TestCompletionCommand(t *testing.T) {
	stub := &boardReaderStub{board: sampleBoard()}
	cmd := completionCommand(func() boardReader { return stub })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"student-1"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "status:   preliminary\n")
	assert.Contains(t, out.String(), "ranked:   2 of 3\n")
	assert.Contains(t, out.String(), "top:      Adaptive Tutoring\n")
	assert.Contains(t, out.String(), "tie on top")
}

func TestBoardCommandFormats(t *testing.T) {
	stub := &boardReaderStub{board: sampleBoard()}

	cmd := boardCommand(func() boardReader { return stub })
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetArgs([]string{"student-1"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, dto.ExportFormatCSV, stub.lastFormat)
	assert.Equal(t, "Position,Title\n", out.String())

	cmd = boardCommand(func() boardReader { return stub })
	out.Reset()
	cmd.SetOut(out)
	cmd.SetArgs([]string{"student-1", "--format", "json"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"status": "preliminary"`)
}

func TestBoardCommandRequiresStudent(t *testing.T) {
	cmd := boardCommand(func() boardReader { return &boardReaderStub{} })
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})
	assert.Error(t, cmd.Execute())
}
