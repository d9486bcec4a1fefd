package dto

import "github.com/noah-isme/concept-review-api/internal/models"

// SubmitReviewRequest carries a partial review for one assignment.
// Nil fields keep the stored value; ClearRank removes a stored rank.
type SubmitReviewRequest struct {
	AssignmentID      string          `json:"-" validate:"required"`
	ReviewerID        string          `json:"-" validate:"required"`
	CallerRole        models.UserRole `json:"-" validate:"required"`
	Score             *int            `json:"score" validate:"omitempty,min=1,max=5"`
	Recommendation    *string         `json:"recommendation" validate:"omitempty,oneof=pursue revise reject"`
	RankOrder         *int            `json:"rank_order" validate:"omitempty,min=1,max=3"`
	ClearRank         bool            `json:"clear_rank"`
	Comments          *string         `json:"comments"`
	MentoringInterest *bool           `json:"mentoring_interest"`
}

// BulkRankRequest re-ranks all of a reviewer's assignments for one student.
// Assignments omitted from Ranks have their rank cleared.
type BulkRankRequest struct {
	StudentID  string          `json:"-" validate:"required"`
	ReviewerID string          `json:"-" validate:"required"`
	CallerRole models.UserRole `json:"-" validate:"required"`
	Ranks      map[string]int  `json:"ranks" validate:"dive,keys,required,endkeys,min=1,max=3"`
}

// BulkRankResult reports how many assignments a bulk submission touched.
type BulkRankResult struct {
	StudentID string `json:"student_id"`
	Updated   int    `json:"updated"`
}
