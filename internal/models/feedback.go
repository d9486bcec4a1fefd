package models

import "time"

// FeedbackTarget selects which review row a chair's feedback is anchored to.
type FeedbackTarget string

const (
	FeedbackTargetStudent FeedbackTarget = "student"
	FeedbackTargetMentor  FeedbackTarget = "mentor"
)

// FeedbackMessage is one append-only entry of an assignment's conversation thread.
type FeedbackMessage struct {
	ID           string    `db:"id" json:"id"`
	AssignmentID string    `db:"assignment_id" json:"assignment_id"`
	SenderID     string    `db:"sender_id" json:"sender_id"`
	SenderRole   UserRole  `db:"sender_role" json:"sender_role"`
	Body         string    `db:"body" json:"body"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
