package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Outbox publish statuses for OutboxEvent.Status.
const (
	OutboxStatusPending    = "PENDING"
	OutboxStatusProcessing = "PROCESSING"
	OutboxStatusSent       = "SENT"
	OutboxStatusFailed     = "FAILED"
	OutboxStatusDead       = "DEAD"
)

const (
	EventNotificationSend  = "notification.send"
	EventTierReviewDecided = "tier_review.decided"
	EventTierReviewCreated = "tier_review.created"
	EventPointsTransferred = "points.transferred"
)

// OutboxEvent is written inside the caller's transaction and published after commit.
type OutboxEvent struct {
	ID            int            `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	BankId        string         `gorm:"size:64;not null;index" json:"bank_id"`
	EventType     string         `gorm:"size:64;not null" json:"event_type"`
	AggregateType string         `gorm:"size:64;not null;index:idx_outbox_aggregate" json:"aggregate_type"`
	AggregateId   int            `gorm:"index:idx_outbox_aggregate" json:"aggregate_id"`
	Payload       datatypes.JSON `json:"payload"`
	Status        string         `gorm:"size:20;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"status"`
	Attempts      int            `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt *time.Time     `gorm:"index:idx_outbox_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt      *time.Time     `gorm:"index" json:"locked_at"`
	LockedBy      *string        `gorm:"size:100" json:"locked_by"`
	LastError     *string        `gorm:"type:text" json:"last_error"`
	MessageId     *string        `gorm:"size:255" json:"message_id"`
	PublishedAt   *time.Time     `json:"published_at"`
	CorrelationId string         `gorm:"size:64" json:"correlation_id"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// enqueueEvent writes an outbox row using tx (so it commits with the change).
func enqueueEvent(tx *gorm.DB, bankId string, eventType string, aggregateType string, aggregateId int, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	cid, _ := utils.GetCorrelationIdFromContext(tx.Statement.Context)
	event := OutboxEvent{
		BankId:        bankId,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateId:   aggregateId,
		Payload:       datatypes.JSON(data),
		Status:        OutboxStatusPending,
		CorrelationId: cid,
	}
	return tx.Session(&gorm.Session{NewDB: true}).Create(&event).Error
}

func (e OutboxEvent) ToMessage() config.EventMessage {
	return config.EventMessage{
		ID:            e.ID,
		BankId:        e.BankId,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateId:   e.AggregateId,
		Payload:       json.RawMessage(e.Payload),
		OccurredAt:    e.CreatedAt,
		CorrelationId: e.CorrelationId,
	}
}

// ReplayOutboxEvent puts a FAILED/DEAD event back in the queue.
func ReplayOutboxEvent(ctx context.Context, id int) (*OutboxEvent, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	now := time.Now().UTC()
	result := db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("id = ? AND bank_id = ? AND status IN ?", id, bankId, []string{OutboxStatusFailed, OutboxStatusDead}).
		Updates(map[string]interface{}{
			"status":          OutboxStatusFailed,
			"attempts":        0,
			"next_attempt_at": &now,
			"locked_at":       nil,
			"locked_by":       nil,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, utils.ErrorInvalidTransition
	}
	return utils.FetchModel[OutboxEvent](ctx, bankId, id)
}

// GetOutboxEvents lists events by status, newest first.
func GetOutboxEvents(ctx context.Context, status string, page PageInput) (*Page[OutboxEvent], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("bank_id = ?", bankId)
	if !allFilter(status) {
		dbCtx = dbCtx.Where("status = ?", status)
	}
	return paginate[OutboxEvent](dbCtx, page, "id DESC")
}
