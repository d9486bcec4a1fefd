package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/concept-review-api/internal/dto"
	"github.com/noah-isme/concept-review-api/internal/models"
	appErrors "github.com/noah-isme/concept-review-api/pkg/errors"
)

type feedbackAssignmentReader interface {
	FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ReviewerAssignment, error)
}

type feedbackReviewStore interface {
	FindByAssignment(ctx context.Context, exec sqlx.ExtContext, assignmentID string) (*models.Review, error)
	LatestByTitleAndRole(ctx context.Context, conceptTitleID string, role models.ReviewerRole) (*models.Review, error)
	SetChairFeedback(ctx context.Context, assignmentID, message, authorID string, at time.Time) error
}

type messageStore interface {
	Append(ctx context.Context, msg *models.FeedbackMessage) error
	ListByAssignment(ctx context.Context, assignmentID string) ([]models.FeedbackMessage, error)
}

type intentDispatcher interface {
	Dispatch(ctx context.Context, intents ...models.NotificationIntent)
}

// FeedbackService handles program-chair feedback and per-assignment conversation threads.
type FeedbackService struct {
	assignments feedbackAssignmentReader
	reviews     feedbackReviewStore
	messages    messageStore
	notifier    intentDispatcher
	audit       auditWriter
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewFeedbackService constructs the feedback service.
func NewFeedbackService(
	assignments feedbackAssignmentReader,
	reviews feedbackReviewStore,
	messages messageStore,
	notifier intentDispatcher,
	audit auditWriter,
	validate *validator.Validate,
	logger *zap.Logger,
) *FeedbackService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackService{
		assignments: assignments,
		reviews:     reviews,
		messages:    messages,
		notifier:    notifier,
		audit:       audit,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// AttachChairFeedback records chair feedback on the anchor review of an assignment and
// emits notification intents for the affected users.
//
// A student target anchors on the most recently updated adviser review of the assignment's
// concept title. A mentor target anchors on the assignment's own review and fails with
// NOT_SUBMITTED_YET while that review does not exist.
func (s *FeedbackService) AttachChairFeedback(ctx context.Context, req dto.ChairFeedbackRequest) (*dto.ChairFeedbackResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid chair feedback payload")
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, appErrors.WithDetail(appErrors.Clone(appErrors.ErrValidation, "message is required"), "field", "message")
	}

	assignment, err := s.assignments.FindByID(ctx, nil, req.AssignmentID)
	if err != nil {
		return nil, storageError(err, "assignment not found", "failed to load assignment")
	}

	var (
		anchor  *models.Review
		intents []models.NotificationIntent
	)
	switch req.TargetKind {
	case models.FeedbackTargetStudent:
		anchor, err = s.reviews.LatestByTitleAndRole(ctx, assignment.ConceptTitleID, models.ReviewerRoleAdviser)
		if err != nil {
			return nil, storageError(err, "no adviser review exists for this concept title", "failed to load adviser review")
		}
		intents = []models.NotificationIntent{
			chairIntent(assignment.StudentID, models.NotificationChairFeedbackStudent, anchor.AssignmentID, "Feedback on your concept title", message),
			chairIntent(anchor.ReviewerID, models.NotificationChairFeedbackCopy, anchor.AssignmentID, "Chair feedback sent to the student", message),
		}
	case models.FeedbackTargetMentor:
		anchor, err = s.reviews.FindByAssignment(ctx, nil, assignment.ID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.WithDetail(
					appErrors.Clone(appErrors.ErrNotSubmittedYet, "awaiting this reviewer's ranking"),
					"reviewer_id", assignment.ReviewerID,
				)
			}
			return nil, storageError(err, "review not found", "failed to load review")
		}
		intents = []models.NotificationIntent{
			chairIntent(anchor.ReviewerID, models.NotificationChairFeedbackMentor, anchor.AssignmentID, "Chair feedback on your mentoring interest", message),
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown target kind %q", req.TargetKind))
	}

	at := s.now().UTC()
	if err := s.reviews.SetChairFeedback(ctx, anchor.AssignmentID, message, req.AuthorID, at); err != nil {
		return nil, storageError(err, "review not found", "failed to save chair feedback")
	}
	anchor.ChairFeedback = &message
	anchor.ChairFeedbackAt = &at
	author := req.AuthorID
	anchor.ChairFeedbackBy = &author

	s.recordAudit(ctx, req, anchor)
	if s.notifier != nil {
		s.notifier.Dispatch(ctx, intents...)
	}

	notified := make([]string, 0, len(intents))
	for _, intent := range intents {
		notified = append(notified, intent.RecipientID)
	}
	s.logger.Info("chair feedback attached",
		zap.String("assignment_id", anchor.AssignmentID),
		zap.String("target", string(req.TargetKind)),
		zap.String("author_id", req.AuthorID),
	)
	return &dto.ChairFeedbackResult{Review: anchor, NotifiedUsers: notified}, nil
}

// PostConversationMessage appends a message to an assignment's thread. Only the
// assignment's reviewer or a program chair may post.
func (s *FeedbackService) PostConversationMessage(ctx context.Context, req dto.PostMessageRequest) (*models.FeedbackMessage, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid message payload")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, appErrors.WithDetail(appErrors.Clone(appErrors.ErrValidation, "body is required"), "field", "body")
	}
	assignment, err := s.assignments.FindByID(ctx, nil, req.AssignmentID)
	if err != nil {
		return nil, storageError(err, "assignment not found", "failed to load assignment")
	}
	if !threadParticipant(assignment, req.SenderID, req.SenderRole) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned reviewer or the program chair may post")
	}

	msg := &models.FeedbackMessage{
		AssignmentID: assignment.ID,
		SenderID:     req.SenderID,
		SenderRole:   req.SenderRole,
		Body:         body,
	}
	if err := s.messages.Append(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to append message")
	}
	return msg, nil
}

// ListConversation returns an assignment's thread oldest first. Readers are held
// to the same rule as posters.
func (s *FeedbackService) ListConversation(ctx context.Context, req dto.ListMessagesRequest) ([]models.FeedbackMessage, error) {
	if req.AssignmentID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignmentId is required")
	}
	assignment, err := s.assignments.FindByID(ctx, nil, req.AssignmentID)
	if err != nil {
		return nil, storageError(err, "assignment not found", "failed to load assignment")
	}
	if !threadParticipant(assignment, req.ViewerID, req.ViewerRole) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the assigned reviewer or the program chair may read this thread")
	}
	items, err := s.messages.ListByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list messages")
	}
	return items, nil
}

func threadParticipant(assignment *models.ReviewerAssignment, userID string, role models.UserRole) bool {
	return assignment.ReviewerID == userID || role == models.RoleProgramChair
}

func (s *FeedbackService) recordAudit(ctx context.Context, req dto.ChairFeedbackRequest, anchor *models.Review) {
	if s.audit == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"target":  req.TargetKind,
		"message": *anchor.ChairFeedback,
	})
	if err != nil {
		s.logger.Warn("encode chair feedback audit", zap.Error(err))
		return
	}
	author, resourceID := req.AuthorID, anchor.AssignmentID
	entry := &models.AuditLog{
		UserID:     &author,
		Action:     models.AuditActionChairFeedback,
		Resource:   "reviews",
		ResourceID: &resourceID,
		NewValues:  payload,
		CreatedAt:  anchor.ChairFeedbackAt.UTC(),
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("write chair feedback audit", zap.String("assignment_id", resourceID), zap.Error(err))
	}
}

func chairIntent(recipient string, kind models.NotificationKind, assignmentID, subject, body string) models.NotificationIntent {
	id := assignmentID
	return models.NotificationIntent{
		RecipientID:  recipient,
		Kind:         kind,
		Subject:      subject,
		Body:         body,
		AssignmentID: &id,
	}
}
