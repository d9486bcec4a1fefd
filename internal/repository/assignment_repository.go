package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/concept-review-api/internal/models"
)

const assignmentColumns = `id, concept_title_id, student_id, reviewer_id, reviewer_role, status, due_at, assigned_by, created_at, updated_at`

// AssignmentRepository reads reviewer assignments and writes their lifecycle status.
type AssignmentRepository struct {
	db *sqlx.DB
}

// NewAssignmentRepository constructs the repository.
func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) ext(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// FindByID returns an assignment or sql.ErrNoRows.
func (r *AssignmentRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ReviewerAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM reviewer_assignments WHERE id = $1`
	var a models.ReviewerAssignment
	if err := sqlx.GetContext(ctx, r.ext(exec), &a, query, id); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListByReviewerAndStudent returns every assignment of the reviewer for the student,
// row-locked when running inside a transaction.
func (r *AssignmentRepository) ListByReviewerAndStudent(ctx context.Context, exec sqlx.ExtContext, reviewerID, studentID string) ([]models.ReviewerAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM reviewer_assignments
		WHERE reviewer_id = $1 AND student_id = $2
		ORDER BY created_at, id`
	if exec != nil {
		query += ` FOR UPDATE`
	}
	var items []models.ReviewerAssignment
	if err := sqlx.SelectContext(ctx, r.ext(exec), &items, query, reviewerID, studentID); err != nil {
		return nil, fmt.Errorf("list reviewer assignments: %w", err)
	}
	return items, nil
}

// ListRankStates returns each of the student's assignments with its review rank.
func (r *AssignmentRepository) ListRankStates(ctx context.Context, exec sqlx.ExtContext, studentID string) ([]models.AssignmentRankState, error) {
	const query = `SELECT ra.id AS assignment_id, ra.reviewer_role, rv.rank_order
		FROM reviewer_assignments ra
		LEFT JOIN reviews rv ON rv.assignment_id = ra.id
		WHERE ra.student_id = $1
		ORDER BY ra.id`
	var items []models.AssignmentRankState
	if err := sqlx.SelectContext(ctx, r.ext(exec), &items, query, studentID); err != nil {
		return nil, fmt.Errorf("list assignment rank states: %w", err)
	}
	return items, nil
}

// UpdateStatus writes the derived lifecycle status.
func (r *AssignmentRepository) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AssignmentStatus) error {
	const query = `UPDATE reviewer_assignments SET status = $1, updated_at = $2 WHERE id = $3 AND status <> $1`
	if _, err := r.ext(exec).ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	return nil
}
