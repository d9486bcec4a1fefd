package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/concept-review-api/internal/models"
)

// NotificationRepository writes notification intents to the outbox table drained by
// the external messaging service.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert stores one intent. Re-inserting the same ID is a no-op so retries stay idempotent.
func (r *NotificationRepository) Insert(ctx context.Context, intent *models.NotificationIntent) error {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO notification_outbox (id, recipient_id, kind, subject, body, assignment_id, created_at)
		VALUES (:id, :recipient_id, :kind, :subject, :body, :assignment_id, :created_at)
		ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, intent); err != nil {
		return fmt.Errorf("insert notification intent: %w", err)
	}
	return nil
}
