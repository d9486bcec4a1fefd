package service

import (
	"sort"

	"github.com/noah-isme/concept-review-api/internal/models"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
)

// ValidateRankValue rejects ranks outside [MinRank, MaxRank].
func ValidateRankValue(rank int) error {
	if rank < models.MinRank || rank > models.MaxRank {
		return appErrors.WithDetail(appErrors.Clone(appErrors.ErrValidation, "rank_order must be between 1 and 3"), "rank", rank)
	}
	return nil
}

// FindDuplicateRank returns the smallest rank value used by more than one assignment.
func FindDuplicateRank(ranks map[string]int) (int, bool) {
	seen := make(map[int]int, len(ranks))
	for _, rank := range ranks {
		seen[rank]++
	}
	dups := make([]int, 0)
	for rank, count := range seen {
		if count > 1 {
			dups = append(dups, rank)
		}
	}
	if len(dups) == 0 {
		return 0, false
	}
	sort.Ints(dups)
	return dups[0], true
}

// CheckRankConflict fails when rank is already held by an assignment other than assignmentID.
// held maps assignment id to its stored rank for one reviewer and one student.
func CheckRankConflict(held map[string]int, assignmentID string, rank int) error {
	for id, existing := range held {
		if id != assignmentID && existing == rank {
			return appErrors.RankConflict(rank)
		}
	}
	return nil
}

// DeriveAssignmentStatus computes the lifecycle status implied by a review row.
func DeriveAssignmentStatus(review *models.Review) models.AssignmentStatus {
	if review == nil || !review.HasRank() {
		return models.AssignmentStatusPending
	}
	scored := review.Score >= models.MinScore && review.Score <= models.MaxScore
	recommended := review.Recommendation != models.RecommendationUnset && review.Recommendation.Valid()
	if scored && recommended && hasText(review.Comments) {
		return models.AssignmentStatusCompleted
	}
	return models.AssignmentStatusInProgress
}
