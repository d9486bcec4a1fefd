package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/concept-review-api/internal/models"
)

// StudentRepository reads registrar-owned students and their concept titles.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student or sql.ErrNoRows.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, email FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// FindTitleByID returns a concept title or sql.ErrNoRows.
func (r *StudentRepository) FindTitleByID(ctx context.Context, id string) (*models.ConceptTitle, error) {
	const query = `SELECT id, student_id, title, created_at FROM concept_titles WHERE id = $1`
	var title models.ConceptTitle
	if err := r.db.GetContext(ctx, &title, query, id); err != nil {
		return nil, err
	}
	return &title, nil
}
