package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/concept-review-api/internal/models"
	"github.com/noah-isme/concept-review-api/pkg/jobs"
)

const notificationJobType = "notification.intent"

type intentStore interface {
	Insert(ctx context.Context, intent *models.NotificationIntent) error
}

// NotificationService hands notification intents to the outbox through a worker queue.
type NotificationService struct {
	store   intentStore
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService builds the dispatcher. Call Start before Dispatch to use the
// worker queue; until then intents are written synchronously.
func NewNotificationService(store intentStore, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{store: store, metrics: metrics, logger: logger}
	if cfg.Logger == nil {
		cfg.Logger = logger
	}
	if cfg.DeadLetter == nil {
		cfg.DeadLetter = s.deadLetter
	}
	s.queue = jobs.NewQueue("notifications", s.deliver, cfg)
	return s
}

// Start launches the delivery workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop halts the delivery workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Dispatch stamps and queues intents. Failures are logged and never returned, so a
// notification problem cannot fail the write that produced it.
func (s *NotificationService) Dispatch(ctx context.Context, intents ...models.NotificationIntent) {
	for i := range intents {
		intent := intents[i]
		if intent.ID == "" {
			intent.ID = uuid.NewString()
		}
		if intent.CreatedAt.IsZero() {
			intent.CreatedAt = time.Now().UTC()
		}
		job := jobs.Job{ID: intent.ID, Type: notificationJobType, Payload: intent}
		if err := s.queue.Enqueue(job); err != nil {
			s.logger.Debug("notification queue unavailable, storing inline", zap.String("intent_id", intent.ID), zap.Error(err))
			if err := s.deliver(ctx, job); err != nil {
				s.deadLetter(job, err)
			}
		}
	}
}

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	intent, ok := job.Payload.(models.NotificationIntent)
	if !ok {
		return fmt.Errorf("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	if err := s.store.Insert(ctx, &intent); err != nil {
		return err
	}
	s.metrics.RecordNotification(string(intent.Kind), true)
	s.logger.Info("notification intent stored",
		zap.String("intent_id", intent.ID),
		zap.String("recipient_id", intent.RecipientID),
		zap.String("kind", string(intent.Kind)),
	)
	return nil
}

func (s *NotificationService) deadLetter(job jobs.Job, err error) {
	kind := ""
	if intent, ok := job.Payload.(models.NotificationIntent); ok {
		kind = string(intent.Kind)
	}
	s.metrics.RecordNotification(kind, false)
	s.logger.Error("notification intent dropped", zap.String("intent_id", job.ID), zap.String("kind", kind), zap.Error(err))
}
