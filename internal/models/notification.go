package models

import "time"

// NotificationKind classifies outbound notification intents.
type NotificationKind string

const (
	NotificationChairFeedbackStudent NotificationKind = "chair_feedback.student"
	NotificationChairFeedbackCopy    NotificationKind = "chair_feedback.reviewer_copy"
	NotificationChairFeedbackMentor  NotificationKind = "chair_feedback.mentor"
)

// NotificationIntent asks the external messaging layer to notify a recipient.
// Rows are written to the outbox; delivery happens elsewhere.
type NotificationIntent struct {
	ID           string           `db:"id" json:"id"`
	RecipientID  string           `db:"recipient_id" json:"recipient_id"`
	Kind         NotificationKind `db:"kind" json:"kind"`
	Subject      string           `db:"subject" json:"subject"`
	Body         string           `db:"body" json:"body"`
	AssignmentID *string          `db:"assignment_id" json:"assignment_id,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
}
