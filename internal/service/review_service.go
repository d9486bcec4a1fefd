package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
	"github.com/noah-isme/concept-review-api/internal/repository"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type reviewAssignmentStore interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ReviewerAssignment, error)
	ListByReviewerAndStudent(ctx context.Context, exec sqlx.ExtContext, reviewerID, studentID string) ([]models.ReviewerAssignment, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.AssignmentStatus) error
}

type reviewStore interface {
	LockReviewerStudent(ctx context.Context, exec sqlx.ExtContext, reviewerID, studentID string) error
	ListByAssignments(ctx context.Context, exec sqlx.ExtContext, assignmentIDs []string) ([]models.Review, error)
	Upsert(ctx context.Context, exec sqlx.ExtContext, review *models.Review) error
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type boardInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID string)
}

// ReviewService records reviewer judgments and keeps rank order unique per reviewer and student.
type ReviewService struct {
	assignments reviewAssignmentStore
	reviews     reviewStore
	tx          txProvider
	audit       auditWriter
	boards      boardInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewReviewService wires review submission dependencies.
func NewReviewService(
	assignments reviewAssignmentStore,
	reviews reviewStore,
	tx txProvider,
	audit auditWriter,
	boards boardInvalidator,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{
		assignments: assignments,
		reviews:     reviews,
		tx:          tx,
		audit:       audit,
		boards:      boards,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// SubmitReview merges a partial review into the stored row of one assignment.
func (s *ReviewService) SubmitReview(ctx context.Context, req dto.SubmitReviewRequest) (review *models.Review, err error) {
	defer func() { s.metrics.RecordReviewSubmission("single", err) }()

	if err = s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid review payload")
	}
	if req.ClearRank && req.RankOrder != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rank_order and clear_rank cannot be combined")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	permitted := PermittedRoles(req.CallerRole)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	assignment, err := s.assignments.FindByID(ctx, tx, req.AssignmentID)
	if err != nil {
		err = storageError(err, "assignment not found", "failed to load assignment")
		return nil, err
	}
	if err = authorizeAssignment(assignment, req.ReviewerID, permitted); err != nil {
		return nil, err
	}
	if err = s.reviews.LockReviewerStudent(ctx, tx, assignment.ReviewerID, assignment.StudentID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock reviewer ranks")
		return nil, err
	}

	siblings, err := s.assignments.ListByReviewerAndStudent(ctx, tx, assignment.ReviewerID, assignment.StudentID)
	if err != nil {
		err = storageError(err, "assignment not found", "failed to load reviewer assignments")
		return nil, err
	}
	stored, err := s.storedReviews(ctx, tx, assignment.ID, siblings)
	if err != nil {
		return nil, err
	}

	review = mergeReview(assignment, stored[assignment.ID], req)
	if !hasText(review.Comments) {
		err = appErrors.WithDetail(appErrors.Clone(appErrors.ErrValidation, "comments are required"), "field", "comments")
		return nil, err
	}
	if review.RankOrder != nil {
		if err = CheckRankConflict(heldRanks(stored), assignment.ID, *review.RankOrder); err != nil {
			return nil, err
		}
	}

	if err = s.reviews.Upsert(ctx, tx, review); err != nil {
		err = rankWriteError(err, review.RankOrder, "failed to save review")
		return nil, err
	}
	if err = s.assignments.UpdateStatus(ctx, tx, assignment.ID, DeriveAssignmentStatus(review)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment status")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = rankWriteError(err, review.RankOrder, "failed to commit review")
		return nil, err
	}

	s.invalidate(ctx, assignment.StudentID)
	s.logger.Info("review submitted",
		zap.String("assignment_id", assignment.ID),
		zap.String("reviewer_id", assignment.ReviewerID),
		zap.Bool("ranked", review.HasRank()),
	)
	return review, nil
}

// SubmitBulkRanks re-ranks every permitted assignment a reviewer holds for one student.
// Assignments missing from req.Ranks have their rank cleared. The batch applies fully or not at all.
func (s *ReviewService) SubmitBulkRanks(ctx context.Context, req dto.BulkRankRequest) (result *dto.BulkRankResult, err error) {
	defer func() { s.metrics.RecordReviewSubmission("bulk", err) }()

	for _, id := range sortedKeys(req.Ranks) {
		if err = ValidateRankValue(req.Ranks[id]); err != nil {
			return nil, err
		}
	}
	if err = s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid bulk rank payload")
	}
	if rank, dup := FindDuplicateRank(req.Ranks); dup {
		return nil, appErrors.DuplicateRank(rank)
	}
	permitted := PermittedRoles(req.CallerRole)
	if permitted.Empty() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("role %s does not rank concept titles", req.CallerRole))
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.reviews.LockReviewerStudent(ctx, tx, req.ReviewerID, req.StudentID); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock reviewer ranks")
		return nil, err
	}
	owned, err := s.assignments.ListByReviewerAndStudent(ctx, tx, req.ReviewerID, req.StudentID)
	if err != nil {
		err = storageError(err, "assignment not found", "failed to load reviewer assignments")
		return nil, err
	}
	stored, err := s.storedReviews(ctx, tx, "", owned)
	if err != nil {
		return nil, err
	}

	// Ranks on assignments outside the permitted roles stay put and still count toward uniqueness.
	held := make(map[string]int)
	for _, a := range owned {
		if permitted.Has(a.ReviewerRole) {
			continue
		}
		if r := stored[a.ID]; r.HasRank() {
			held[a.ID] = *r.RankOrder
		}
	}
	for _, a := range owned {
		if rank, ok := req.Ranks[a.ID]; ok && permitted.Has(a.ReviewerRole) {
			if err = CheckRankConflict(held, a.ID, rank); err != nil {
				return nil, err
			}
		}
	}

	updated := 0
	for i := range owned {
		a := &owned[i]
		if !permitted.Has(a.ReviewerRole) {
			continue
		}
		existing := stored[a.ID]
		rank, ranked := req.Ranks[a.ID]
		if existing == nil && !ranked {
			continue
		}
		var next *int
		if ranked {
			next = &rank
		}
		if existing != nil && sameRank(existing.RankOrder, next) {
			continue
		}

		review := baseReview(a, existing)
		review.RankOrder = next
		review.IsPreferred = next != nil && *next == 1
		if err = s.reviews.Upsert(ctx, tx, review); err != nil {
			err = rankWriteError(err, next, "failed to save rank")
			return nil, err
		}
		if err = s.assignments.UpdateStatus(ctx, tx, a.ID, DeriveAssignmentStatus(review)); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update assignment status")
			return nil, err
		}
		updated++
	}

	if err = tx.Commit(); err != nil {
		err = rankWriteError(err, nil, "failed to commit ranks")
		return nil, err
	}

	s.recordBulkAudit(ctx, req, permitted, updated)
	if updated > 0 {
		s.invalidate(ctx, req.StudentID)
	}
	return &dto.BulkRankResult{StudentID: req.StudentID, Updated: updated}, nil
}

func (s *ReviewService) storedReviews(ctx context.Context, exec sqlx.ExtContext, include string, assignments []models.ReviewerAssignment) (map[string]*models.Review, error) {
	ids := make([]string, 0, len(assignments)+1)
	seen := make(map[string]struct{}, len(assignments)+1)
	if include != "" {
		ids = append(ids, include)
		seen[include] = struct{}{}
	}
	for _, a := range assignments {
		if _, ok := seen[a.ID]; ok {
			continue
		}
		seen[a.ID] = struct{}{}
		ids = append(ids, a.ID)
	}
	items, err := s.reviews.ListByAssignments(ctx, exec, ids)
	if err != nil {
		return nil, storageError(err, "review not found", "failed to load reviews")
	}
	out := make(map[string]*models.Review, len(items))
	for i := range items {
		out[items[i].AssignmentID] = &items[i]
	}
	return out, nil
}

func (s *ReviewService) recordBulkAudit(ctx context.Context, req dto.BulkRankRequest, permitted models.RoleSet, updated int) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{"ranks": req.Ranks, "roles": permitted.Strings(), "updated": updated})
	if err != nil {
		s.logger.Warn("encode bulk rank audit", zap.Error(err))
		return
	}
	reviewerID, studentID := req.ReviewerID, req.StudentID
	entry := &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionBulkRank,
		Resource:   "student_ranks",
		ResourceID: &studentID,
		NewValues:  payload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("write bulk rank audit", zap.String("student_id", studentID), zap.Error(err))
	}
}

func (s *ReviewService) invalidate(ctx context.Context, studentID string) {
	if s.boards != nil {
		s.boards.InvalidateStudent(ctx, studentID)
	}
}

func authorizeAssignment(a *models.ReviewerAssignment, reviewerID string, permitted models.RoleSet) error {
	if a.ReviewerID != reviewerID {
		return appErrors.Clone(appErrors.ErrForbidden, "assignment belongs to another reviewer")
	}
	if !permitted.Has(a.ReviewerRole) {
		return appErrors.WithDetail(
			appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("caller may not act on %s assignments", a.ReviewerRole)),
			"reviewer_role", string(a.ReviewerRole),
		)
	}
	return nil
}

func baseReview(a *models.ReviewerAssignment, existing *models.Review) *models.Review {
	review := &models.Review{}
	if existing != nil {
		copied := *existing
		review = &copied
	}
	review.AssignmentID = a.ID
	review.ConceptTitleID = a.ConceptTitleID
	review.StudentID = a.StudentID
	review.ReviewerID = a.ReviewerID
	review.ReviewerRole = a.ReviewerRole
	return review
}

func mergeReview(a *models.ReviewerAssignment, existing *models.Review, req dto.SubmitReviewRequest) *models.Review {
	review := baseReview(a, existing)
	if req.Score != nil {
		review.Score = *req.Score
	}
	if req.Recommendation != nil {
		review.Recommendation = models.Recommendation(*req.Recommendation)
	}
	switch {
	case req.ClearRank:
		review.RankOrder = nil
	case req.RankOrder != nil:
		rank := *req.RankOrder
		review.RankOrder = &rank
	}
	if req.Comments != nil {
		review.Comments = strings.TrimSpace(*req.Comments)
	}
	if req.MentoringInterest != nil {
		review.MentoringInterest = *req.MentoringInterest
	}
	review.IsPreferred = review.RankOrder != nil && *review.RankOrder == 1
	return review
}

func heldRanks(stored map[string]*models.Review) map[string]int {
	held := make(map[string]int, len(stored))
	for id, r := range stored {
		if r.HasRank() {
			held[id] = *r.RankOrder
		}
	}
	return held
}

func rankWriteError(err error, rank *int, msg string) error {
	if repository.IsRankViolation(err) {
		if violated, ok := repository.ViolatedRank(err); ok {
			return appErrors.RankConflict(violated)
		}
		if rank != nil {
			return appErrors.RankConflict(*rank)
		}
		return appErrors.Wrap(err, appErrors.ErrRankConflict.Code, appErrors.ErrRankConflict.Status, "rank already assigned to another title")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
}

func sameRank(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
