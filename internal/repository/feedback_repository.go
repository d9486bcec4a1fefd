package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/concept-review-api/internal/models"
)

// FeedbackRepository stores the append-only conversation thread of assignments.
type FeedbackRepository struct {
	db *sqlx.DB
}

// NewFeedbackRepository constructs the repository.
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Append inserts a message, filling ID and CreatedAt when unset.
func (r *FeedbackRepository) Append(ctx context.Context, msg *models.FeedbackMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO feedback_messages (id, assignment_id, sender_id, sender_role, body, created_at)
		VALUES (:id, :assignment_id, :sender_id, :sender_role, :body, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("append feedback message: %w", err)
	}
	return nil
}

// ListByAssignment returns the thread oldest first.
func (r *FeedbackRepository) ListByAssignment(ctx context.Context, assignmentID string) ([]models.FeedbackMessage, error) {
	const query = `SELECT id, assignment_id, sender_id, sender_role, body, created_at
		FROM feedback_messages WHERE assignment_id = $1 ORDER BY created_at ASC, id ASC`
	items := []models.FeedbackMessage{}
	if err := r.db.SelectContext(ctx, &items, query, assignmentID); err != nil {
		return nil, fmt.Errorf("list feedback messages: %w", err)
	}
	return items, nil
}
