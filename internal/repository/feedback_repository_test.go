package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concept-review-api/internal/models"
)

func TestFeedbackRepositoryAppend(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewFeedbackRepository(db)

	mock.ExpectExec("INSERT INTO feedback_messages").
		WithArgs(sqlmock.AnyArg(), "asg-1", "chair-1", "program_chair", "Please clarify scope", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	msg := &models.FeedbackMessage{AssignmentID: "asg-1", SenderID: "chair-1", SenderRole: models.RoleProgramChair, Body: "Please clarify scope"}
	require.NoError(t, repo.Append(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFeedbackRepositoryListByAssignmentEmpty(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewFeedbackRepository(db)

	mock.ExpectQuery("FROM feedback_messages WHERE assignment_id = \\$1 ORDER BY created_at ASC, id ASC").
		WithArgs("asg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "assignment_id", "sender_id", "sender_role", "body", "created_at"}))

	items, err := repo.ListByAssignment(context.Background(), "asg-1")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestFeedbackRepositoryListByAssignment(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewFeedbackRepository(db)
	now := time.Now()

	mock.ExpectQuery("FROM feedback_messages").
		WithArgs("asg-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "assignment_id", "sender_id", "sender_role", "body", "created_at"}).
			AddRow("m1", "asg-1", "rev-1", "panel", "first", now).
			AddRow("m2", "asg-1", "chair-1", "program_chair", "second", now.Add(time.Minute)))

	items, err := repo.ListByAssignment(context.Background(), "asg-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].Body)
	assert.Equal(t, models.RoleProgramChair, items[1].SenderRole)
}
