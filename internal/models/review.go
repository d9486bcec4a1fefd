package models

import "time"

// Recommendation is a reviewer's verdict on a concept title.
type Recommendation string

const (
	RecommendationUnset  Recommendation = ""
	RecommendationPursue Recommendation = "pursue"
	RecommendationRevise Recommendation = "revise"
	RecommendationReject Recommendation = "reject"
)

// Valid reports whether r is one of the known values (unset included).
func (r Recommendation) Valid() bool {
	switch r {
	case RecommendationUnset, RecommendationPursue, RecommendationRevise, RecommendationReject:
		return true
	}
	return false
}

const (
	MinRank  = 1
	MaxRank  = 3
	MinScore = 1
	MaxScore = 5
)

// Review is the single judgment row of one assignment, keyed by AssignmentID.
type Review struct {
	AssignmentID      string         `db:"assignment_id" json:"assignment_id"`
	ConceptTitleID    string         `db:"concept_title_id" json:"concept_title_id"`
	StudentID         string         `db:"student_id" json:"student_id"`
	ReviewerID        string         `db:"reviewer_id" json:"reviewer_id"`
	ReviewerRole      ReviewerRole   `db:"reviewer_role" json:"reviewer_role"`
	Score             int            `db:"score" json:"score"`
	Recommendation    Recommendation `db:"recommendation" json:"recommendation"`
	RankOrder         *int           `db:"rank_order" json:"rank_order"`
	IsPreferred       bool           `db:"is_preferred" json:"is_preferred"`
	Comments          string         `db:"comments" json:"comments"`
	MentoringInterest bool           `db:"mentoring_interest" json:"mentoring_interest"`
	ChairFeedback     *string        `db:"chair_feedback" json:"chair_feedback,omitempty"`
	ChairFeedbackAt   *time.Time     `db:"chair_feedback_at" json:"chair_feedback_at,omitempty"`
	ChairFeedbackBy   *string        `db:"chair_feedback_by" json:"chair_feedback_by,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// HasRank reports whether a rank is recorded.
func (r *Review) HasRank() bool {
	return r != nil && r.RankOrder != nil
}

// RankVote is one ranked review projected for aggregation.
type RankVote struct {
	ConceptTitleID string `db:"concept_title_id"`
	Title          string `db:"title"`
	RankOrder      int    `db:"rank_order"`
}
