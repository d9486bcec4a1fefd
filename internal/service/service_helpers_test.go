package service

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/concept-review-api/internal/models"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func boolPtr(v bool) *bool { return &v }

type assignmentStoreStub struct {
	mu       sync.Mutex
	items    map[string]*models.ReviewerAssignment
	statuses map[string]models.AssignmentStatus
}

func newAssignmentStoreStub(items ...models.ReviewerAssignment) *assignmentStoreStub {
	s := &assignmentStoreStub{items: map[string]*models.ReviewerAssignment{}, statuses: map[string]models.AssignmentStatus{}}
	for i := range items {
		a := items[i]
		if a.Status == "" {
			a.Status = models.AssignmentStatusPending
		}
		s.items[a.ID] = &a
	}
	return s
}

func (s *assignmentStoreStub) FindByID(_ context.Context, _ sqlx.ExtContext, id string) (*models.ReviewerAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *a
	return &copied, nil
}

func (s *assignmentStoreStub) ListByReviewerAndStudent(_ context.Context, _ sqlx.ExtContext, reviewerID, studentID string) ([]models.ReviewerAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ReviewerAssignment, 0)
	for _, a := range s.items {
		if a.ReviewerID == reviewerID && a.StudentID == studentID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *assignmentStoreStub) UpdateStatus(_ context.Context, _ sqlx.ExtContext, id string, status models.AssignmentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	if a, ok := s.items[id]; ok {
		a.Status = status
	}
	return nil
}

func (s *assignmentStoreStub) status(id string) models.AssignmentStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

type reviewStoreStub struct {
	mu         sync.Mutex
	rows       map[string]models.Review
	locks      []string
	upserts    int
	upsertErr  error
	chairCalls int
}

func newReviewStoreStub(rows ...models.Review) *reviewStoreStub {
	s := &reviewStoreStub{rows: map[string]models.Review{}}
	for _, r := range rows {
		s.rows[r.AssignmentID] = r
	}
	return s
}

func (s *reviewStoreStub) LockReviewerStudent(_ context.Context, _ sqlx.ExtContext, reviewerID, studentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locks = append(s.locks, reviewerID+"/"+studentID)
	return nil
}

func (s *reviewStoreStub) ListByAssignments(_ context.Context, _ sqlx.ExtContext, ids []string) ([]models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Review, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.rows[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *reviewStoreStub) Upsert(_ context.Context, _ sqlx.ExtContext, review *models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return s.upsertErr
	}
	now := time.Now().UTC()
	if existing, ok := s.rows[review.AssignmentID]; ok {
		review.CreatedAt = existing.CreatedAt
	} else {
		review.CreatedAt = now
	}
	review.UpdatedAt = now
	s.rows[review.AssignmentID] = *review
	s.upserts++
	return nil
}

func (s *reviewStoreStub) FindByAssignment(_ context.Context, _ sqlx.ExtContext, assignmentID string) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[assignmentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &r, nil
}

func (s *reviewStoreStub) LatestByTitleAndRole(_ context.Context, conceptTitleID string, role models.ReviewerRole) (*models.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Review
	for _, r := range s.rows {
		r := r
		if r.ConceptTitleID != conceptTitleID || r.ReviewerRole != role {
			continue
		}
		if latest == nil || r.UpdatedAt.After(latest.UpdatedAt) {
			latest = &r
		}
	}
	if latest == nil {
		return nil, sql.ErrNoRows
	}
	return latest, nil
}

func (s *reviewStoreStub) SetChairFeedback(_ context.Context, assignmentID, message, authorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[assignmentID]
	if !ok {
		return sql.ErrNoRows
	}
	r.ChairFeedback = &message
	r.ChairFeedbackBy = &authorID
	r.ChairFeedbackAt = &at
	s.rows[assignmentID] = r
	s.chairCalls++
	return nil
}

func (s *reviewStoreStub) row(id string) (models.Review, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

type auditStub struct {
	mu      sync.Mutex
	entries []models.AuditLog
}

func (a *auditStub) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, *log)
	return nil
}

type invalidatorStub struct {
	mu       sync.Mutex
	students []string
}

func (i *invalidatorStub) InvalidateStudent(_ context.Context, studentID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.students = append(i.students, studentID)
}
