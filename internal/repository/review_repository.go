package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/concept-review-api/internal/models"
)

// ErrRankTaken is returned when the storage-level rank exclusion constraint rejects a write.
var ErrRankTaken = errors.New("rank already held by another review of this reviewer and student")

// Matches the key postgres reports for reviews_rank_unique, e.g.
// "Key (reviewer_id, student_id, rank_order)=(rev-1, student-1, 2) conflicts with ...".
var violatedRankPattern = regexp.MustCompile(`rank_order\)=\([^)]*,\s*(\d+)\)`)

const (
	reviewColumns = `assignment_id, concept_title_id, student_id, reviewer_id, reviewer_role, score, recommendation,
		rank_order, is_preferred, comments, mentoring_interest, chair_feedback, chair_feedback_at, chair_feedback_by,
		created_at, updated_at`

	pqExclusionViolation = "23P01"
	pqUniqueViolation    = "23505"
	rankConstraint       = "reviews_rank_unique"
)

// ReviewRepository persists review rows keyed by assignment id.
type ReviewRepository struct {
	db *sqlx.DB
}

// NewReviewRepository constructs the repository.
func NewReviewRepository(db *sqlx.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// BeginTxx exposes transactions to services coordinating several repositories.
func (r *ReviewRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

func (r *ReviewRepository) ext(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// LockReviewerStudent serialises writers for one (reviewer, student) pair until the
// surrounding transaction ends.
func (r *ReviewRepository) LockReviewerStudent(ctx context.Context, exec sqlx.ExtContext, reviewerID, studentID string) error {
	const query = `SELECT pg_advisory_xact_lock(hashtext($1), hashtext($2))`
	if _, err := exec.ExecContext(ctx, query, reviewerID, studentID); err != nil {
		return fmt.Errorf("lock reviewer %s student %s: %w", reviewerID, studentID, err)
	}
	return nil
}

// FindByAssignment returns the review of an assignment or sql.ErrNoRows.
func (r *ReviewRepository) FindByAssignment(ctx context.Context, exec sqlx.ExtContext, assignmentID string) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE assignment_id = $1`
	var review models.Review
	if err := sqlx.GetContext(ctx, r.ext(exec), &review, query, assignmentID); err != nil {
		return nil, err
	}
	return &review, nil
}

// ListByAssignments returns the reviews that exist for the given assignments.
func (r *ReviewRepository) ListByAssignments(ctx context.Context, exec sqlx.ExtContext, assignmentIDs []string) ([]models.Review, error) {
	if len(assignmentIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE assignment_id = ANY($1)`
	var items []models.Review
	if err := sqlx.SelectContext(ctx, r.ext(exec), &items, query, pq.Array(assignmentIDs)); err != nil {
		return nil, fmt.Errorf("list reviews by assignment: %w", err)
	}
	return items, nil
}

// Upsert inserts or overwrites the review row of review.AssignmentID. Chair feedback
// columns are never touched here.
func (r *ReviewRepository) Upsert(ctx context.Context, exec sqlx.ExtContext, review *models.Review) error {
	now := time.Now().UTC()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	review.UpdatedAt = now

	const query = `INSERT INTO reviews (assignment_id, concept_title_id, student_id, reviewer_id, reviewer_role, score,
			recommendation, rank_order, is_preferred, comments, mentoring_interest, created_at, updated_at)
		VALUES (:assignment_id, :concept_title_id, :student_id, :reviewer_id, :reviewer_role, :score,
			:recommendation, :rank_order, :is_preferred, :comments, :mentoring_interest, :created_at, :updated_at)
		ON CONFLICT (assignment_id) DO UPDATE
		SET score = EXCLUDED.score,
		    recommendation = EXCLUDED.recommendation,
		    rank_order = EXCLUDED.rank_order,
		    is_preferred = EXCLUDED.is_preferred,
		    comments = EXCLUDED.comments,
		    mentoring_interest = EXCLUDED.mentoring_interest,
		    updated_at = EXCLUDED.updated_at`
	if _, err := sqlx.NamedExecContext(ctx, r.ext(exec), query, review); err != nil {
		return translateRankViolation(fmt.Errorf("upsert review: %w", err))
	}
	return nil
}

// ListRankVotes returns one row per ranked review of the student's titles.
func (r *ReviewRepository) ListRankVotes(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.RankVote, error) {
	const query = `SELECT rv.concept_title_id, ct.title, rv.rank_order
		FROM reviews rv
		JOIN reviewer_assignments ra ON ra.id = rv.assignment_id
		JOIN concept_titles ct ON ct.id = rv.concept_title_id
		WHERE ra.student_id = $1 AND rv.rank_order IS NOT NULL`
	var votes []models.RankVote
	if err := sqlx.SelectContext(ctx, r.ext(exec), &votes, query, studentID); err != nil {
		return nil, fmt.Errorf("list rank votes: %w", err)
	}
	return votes, nil
}

// LatestByTitleAndRole returns the most recently updated review of a concept title
// written in the given role, or sql.ErrNoRows.
func (r *ReviewRepository) LatestByTitleAndRole(ctx context.Context, conceptTitleID string, role models.ReviewerRole) (*models.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE concept_title_id = $1 AND reviewer_role = $2
		ORDER BY updated_at DESC, assignment_id
		LIMIT 1`
	var review models.Review
	if err := r.db.GetContext(ctx, &review, query, conceptTitleID, role); err != nil {
		return nil, err
	}
	return &review, nil
}

// SetChairFeedback overwrites the chair feedback of one review. It returns
// sql.ErrNoRows when the review does not exist.
func (r *ReviewRepository) SetChairFeedback(ctx context.Context, assignmentID, message, authorID string, at time.Time) error {
	const query = `UPDATE reviews SET chair_feedback = $1, chair_feedback_at = $2, chair_feedback_by = $3 WHERE assignment_id = $4`
	res, err := r.db.ExecContext(ctx, query, message, at, authorID, assignmentID)
	if err != nil {
		return fmt.Errorf("set chair feedback: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set chair feedback rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsRankViolation reports whether err comes from the reviews_rank_unique constraint.
// The constraint is deferred, so the violation usually surfaces on commit.
func IsRankViolation(err error) bool {
	if errors.Is(err, ErrRankTaken) {
		return true
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	return (pqErr.Code == pqExclusionViolation || pqErr.Code == pqUniqueViolation) && pqErr.Constraint == rankConstraint
}

// ViolatedRank extracts the rank value named in a reviews_rank_unique violation.
func ViolatedRank(err error) (int, bool) {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Constraint != rankConstraint {
		return 0, false
	}
	m := violatedRankPattern.FindStringSubmatch(pqErr.Detail)
	if m == nil {
		return 0, false
	}
	rank, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return rank, true
}

func translateRankViolation(err error) error {
	if IsRankViolation(err) {
		return fmt.Errorf("%w: %w", ErrRankTaken, err)
	}
	return err
}
