package dto

import "github.com/noah-isme/concept-review-api/internal/models"

// ChairFeedbackRequest attaches program-chair feedback to a review row.
type ChairFeedbackRequest struct {
	AssignmentID string                `json:"-" validate:"required"`
	AuthorID     string                `json:"-" validate:"required"`
	TargetKind   models.FeedbackTarget `json:"target_kind" validate:"required,oneof=student mentor"`
	Message      string                `json:"message"`
}

// ChairFeedbackResult identifies the annotated review.
type ChairFeedbackResult struct {
	Review        *models.Review `json:"review"`
	NotifiedUsers []string       `json:"notified_users"`
}

// PostMessageRequest appends to an assignment's conversation thread.
type PostMessageRequest struct {
	AssignmentID string          `json:"-" validate:"required"`
	SenderID     string          `json:"-" validate:"required"`
	SenderRole   models.UserRole `json:"-" validate:"required"`
	Body         string          `json:"body"`
}

// ListMessagesRequest reads an assignment's conversation thread.
type ListMessagesRequest struct {
	AssignmentID string
	ViewerID     string
	ViewerRole   models.UserRole
}
