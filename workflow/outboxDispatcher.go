package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const maxBackoff = 10 * time.Minute

var tracer = otel.Tracer("loyalty-backend/workflow")

// Publisher delivers an outbox event and returns the broker's message id.
type Publisher interface {
	Publish(ctx context.Context, msg config.EventMessage) (string, error)
}

// LogPublisher stands in for Pub/Sub when publishing is switched off.
type LogPublisher struct {
	Logger *logrus.Logger
}

func (p LogPublisher) Publish(ctx context.Context, msg config.EventMessage) (string, error) {
	if p.Logger != nil {
		p.Logger.WithFields(logrus.Fields{
			"field":      "LogPublisher",
			"bank_id":    msg.BankId,
			"event_type": msg.EventType,
			"event_id":   msg.ID,
		}).Info("outbox event")
	}
	return fmt.Sprintf("local-%d", msg.ID), nil
}

// DefaultPublisher is Pub/Sub when FEATURE_NOTIFICATION_PUBLISH is on.
func DefaultPublisher() Publisher {
	if config.NotificationPublishEnabled() {
		return config.NewPubSubPublisher()
	}
	return LogPublisher{Logger: config.GetLogger()}
}

type OutboxDispatcher struct {
	DB           *gorm.DB
	Logger       *logrus.Logger
	Publisher    Publisher
	DispatcherID string

	BatchSize      int
	PollInterval   time.Duration
	LockTimeout    time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
}

func NewOutboxDispatcher(db *gorm.DB, logger *logrus.Logger, publisher Publisher) *OutboxDispatcher {
	return &OutboxDispatcher{
		DB:             db,
		Logger:         logger,
		Publisher:      publisher,
		DispatcherID:   uuid.NewString(),
		BatchSize:      50,
		PollInterval:   500 * time.Millisecond,
		LockTimeout:    30 * time.Second,
		MaxAttempts:    20,
		InitialBackoff: 5 * time.Second,
	}
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.PollInterval):
		}
	}
}

// DispatchOnce claims one batch and publishes it. It returns the number of events claimed.
func (d *OutboxDispatcher) DispatchOnce(ctx context.Context) int {
	db := d.DB
	if db == nil {
		return 0
	}
	ctx, span := tracer.Start(ctx, "outbox.dispatch", trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTimeout)
	// internal job: no tenant scoping on the claim query
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)

	var claimed []models.OutboxEvent
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// PENDING / FAILED rows that are due, plus PROCESSING rows whose lock went stale
		q := tx.
			Where(`
				(status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?))
				OR
				(status = ? AND locked_at IS NOT NULL AND locked_at <= ?)
			`, []string{models.OutboxStatusPending, models.OutboxStatusFailed}, now, models.OutboxStatusProcessing, staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if d.MaxAttempts > 0 && claimed[i].Attempts >= d.MaxAttempts {
				msg := fmt.Sprintf("max publish attempts exceeded (%d)", d.MaxAttempts)
				claimed[i].Status = models.OutboxStatusDead
				if err := tx.Model(&models.OutboxEvent{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
					"status":          models.OutboxStatusDead,
					"last_error":      &msg,
					"next_attempt_at": nil,
					"locked_at":       nil,
					"locked_by":       nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			claimed[i].Status = models.OutboxStatusProcessing
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &d.DispatcherID
			claimed[i].Attempts++
			if err := tx.Model(&models.OutboxEvent{}).Where("id = ?", claimed[i].ID).Updates(map[string]interface{}{
				"status":          claimed[i].Status,
				"locked_at":       claimed[i].LockedAt,
				"locked_by":       claimed[i].LockedBy,
				"attempts":        gorm.Expr("attempts + 1"),
				"last_error":      nil,
				"next_attempt_at": nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "DispatchOnce", "claim", nil, err)
		return 0
	}
	span.SetAttributes(attribute.Int("outbox.claimed", len(claimed)))

	for _, event := range claimed {
		if event.Status == models.OutboxStatusDead {
			d.afterPublish(ctx, event, errors.New("delivery abandoned"))
			continue
		}
		msgId, pubErr := d.Publisher.Publish(ctx, event.ToMessage())
		if pubErr != nil {
			if dead := d.markPublishFailed(ctx, event, pubErr); dead {
				d.afterPublish(ctx, event, pubErr)
			}
			continue
		}
		d.markPublishSent(ctx, event.ID, msgId)
		d.afterPublish(ctx, event, nil)
	}
	return len(claimed)
}

// afterPublish feeds the final publish result back to the aggregate that raised the event.
func (d *OutboxDispatcher) afterPublish(ctx context.Context, event models.OutboxEvent, publishErr error) {
	if event.EventType != models.EventNotificationSend {
		return
	}
	bankCtx := utils.SystemContext(ctx, event.BankId)
	if err := models.MarkNotificationDelivered(bankCtx, event.AggregateId, publishErr); err != nil {
		config.LogError(d.Logger, "OutboxDispatcher", "afterPublish", event.EventType, event.AggregateId, err)
	}
}

func (d *OutboxDispatcher) markPublishSent(ctx context.Context, eventId int, messageId string) {
	now := time.Now().UTC()
	_ = d.DB.WithContext(ctx).Model(&models.OutboxEvent{}).
		Where("id = ?", eventId).
		Updates(map[string]interface{}{
			"status":          models.OutboxStatusSent,
			"published_at":    &now,
			"message_id":      &messageId,
			"locked_at":       nil,
			"locked_by":       nil,
			"next_attempt_at": nil,
		}).Error
}

// markPublishFailed schedules a retry, or moves the event to DEAD. It reports whether the event is dead.
func (d *OutboxDispatcher) markPublishFailed(ctx context.Context, event models.OutboxEvent, err error) bool {
	db := d.DB.WithContext(ctx)
	msg := err.Error()

	if d.MaxAttempts > 0 && event.Attempts >= d.MaxAttempts {
		_ = db.Model(&models.OutboxEvent{}).
			Where("id = ?", event.ID).
			Updates(map[string]interface{}{
				"status":          models.OutboxStatusDead,
				"last_error":      &msg,
				"next_attempt_at": nil,
				"locked_at":       nil,
				"locked_by":       nil,
			}).Error

		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"field":    "OutboxDispatcher",
				"bank_id":  event.BankId,
				"event_id": event.ID,
				"attempt":  event.Attempts,
			}).Error("outbox publish moved to DEAD after max attempts: " + msg)
		}
		return true
	}

	next := time.Now().UTC().Add(d.backoff(event.Attempts))
	_ = db.Model(&models.OutboxEvent{}).
		Where("id = ?", event.ID).
		Updates(map[string]interface{}{
			"status":          models.OutboxStatusFailed,
			"last_error":      &msg,
			"next_attempt_at": &next,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error

	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"field":           "OutboxDispatcher",
			"bank_id":         event.BankId,
			"event_id":        event.ID,
			"attempt":         event.Attempts,
			"next_attempt_at": next.Format(time.RFC3339Nano),
		}).Error("outbox publish failed: " + msg)
	}
	return false
}

func (d *OutboxDispatcher) backoff(attempt int) time.Duration {
	backoff := d.InitialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
		if backoff > maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
