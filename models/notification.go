package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	NotificationChannelEmail = "email"
	NotificationChannelSMS   = "sms"
	NotificationChannelPush  = "push"
	NotificationChannelInApp = "in_app"
)

const (
	NotificationStatusDraft     = "draft"
	NotificationStatusScheduled = "scheduled"
	NotificationStatusSent      = "sent"
	NotificationStatusFailed    = "failed"
)

type Notification struct {
	ID             int            `gorm:"primary_key" json:"id"`
	BankId         string         `gorm:"index;size:64;not null" json:"bank_id"`
	Title          string         `gorm:"size:200;not null" json:"title"`
	Message        string         `gorm:"type:text;not null" json:"message"`
	Channel        string         `gorm:"index;size:10;not null" json:"channel"`
	TargetTierCode string         `gorm:"size:32" json:"target_tier_code"`
	Status         string         `gorm:"index;size:10;not null;default:'draft'" json:"status"`
	ScheduledAt    *time.Time     `json:"scheduled_at"`
	SentAt         *time.Time     `json:"sent_at"`
	FailureReason  string         `gorm:"type:text" json:"failure_reason"`
	Recipients     int64          `gorm:"not null;default:0" json:"recipients"`
	Payload        datatypes.JSON `json:"payload"`
	CreatedBy      string         `gorm:"size:100" json:"created_by"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewNotification struct {
	Title          string                 `json:"title" binding:"required"`
	Message        string                 `json:"message" binding:"required"`
	Channel        string                 `json:"channel" binding:"required"`
	TargetTierCode string                 `json:"target_tier_code"`
	ScheduledAt    *time.Time             `json:"scheduled_at"`
	Payload        map[string]interface{} `json:"payload"`
}

type NotificationFilter struct {
	Status  string `form:"status"`
	Channel string `form:"channel"`
	Search  string `form:"search"`
	PageInput
}

// payload published to the notification topic
type notificationMessage struct {
	NotificationId int                    `json:"notification_id"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
	Channel        string                 `json:"channel"`
	TargetTierCode string                 `json:"target_tier_code"`
	Recipients     int64                  `json:"recipients"`
	Data           map[string]interface{} `json:"data,omitempty"`
}

func (n Notification) GetBankId() string {
	return n.BankId
}

func isNotificationChannel(c string) bool {
	switch c {
	case NotificationChannelEmail, NotificationChannelSMS, NotificationChannelPush, NotificationChannelInApp:
		return true
	}
	return false
}

func (input *NewNotification) validate(ctx context.Context, bankId string) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Message = strings.TrimSpace(input.Message)
	if input.Title == "" {
		return utils.NewValidationError("title", "is required")
	}
	if input.Message == "" {
		return utils.NewValidationError("message", "is required")
	}
	if !isNotificationChannel(input.Channel) {
		return utils.NewValidationError("channel", "must be email, sms, push or in_app")
	}
	if allFilter(input.TargetTierCode) {
		input.TargetTierCode = ""
	} else {
		input.TargetTierCode = utils.NormalizeCode(input.TargetTierCode)
		count, err := utils.ResourceCountWhere[TierDefinition](ctx, bankId, "code = ?", input.TargetTierCode)
		if err != nil {
			return err
		}
		if count == 0 {
			return utils.NewValidationError("target_tier_code", "unknown tier "+input.TargetTierCode)
		}
	}
	return nil
}

func CreateNotification(ctx context.Context, input *NewNotification) (*Notification, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId); err != nil {
		return nil, err
	}
	payload, err := datatypesJSON(input.Payload)
	if err != nil {
		return nil, err
	}
	_, userName := actorFromContext(ctx)

	notification := Notification{
		BankId:         bankId,
		Title:          input.Title,
		Message:        input.Message,
		Channel:        input.Channel,
		TargetTierCode: input.TargetTierCode,
		Status:         NotificationStatusDraft,
		ScheduledAt:    input.ScheduledAt,
		Payload:        payload,
		CreatedBy:      userName,
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&notification).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, notification.ID, "notifications", notification, "created notification "+notification.Title)
	})
	if err != nil {
		return nil, err
	}
	return &notification, nil
}

func UpdateNotification(ctx context.Context, id int, input *NewNotification) (*Notification, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	notification, err := utils.FetchModel[Notification](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if notification.Status != NotificationStatusDraft && notification.Status != NotificationStatusScheduled {
		return nil, fmt.Errorf("%w: notification is %s", utils.ErrorInvalidTransition, notification.Status)
	}
	if err := input.validate(ctx, bankId); err != nil {
		return nil, err
	}
	payload, err := datatypesJSON(input.Payload)
	if err != nil {
		return nil, err
	}
	before := *notification

	err = runInTx(ctx, func(tx *gorm.DB) error {
		updated := tx.Model(notification).
			Where("status IN ?", []string{NotificationStatusDraft, NotificationStatusScheduled}).
			Updates(map[string]interface{}{
				"Title":          input.Title,
				"Message":        input.Message,
				"Channel":        input.Channel,
				"TargetTierCode": input.TargetTierCode,
				"ScheduledAt":    input.ScheduledAt,
				"Payload":        payload,
			})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return utils.ErrorConflict
		}
		return SaveHistoryUpdate(tx, id, "notifications", before, notification, "updated notification "+notification.Title)
	})
	if err != nil {
		return nil, err
	}
	return notification, nil
}

func DeleteNotification(ctx context.Context, id int) (*Notification, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[Notification](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if result.Status != NotificationStatusDraft {
		return nil, fmt.Errorf("%w: only drafts can be deleted", utils.ErrorInvalidTransition)
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "notifications", result, "deleted notification "+result.Title)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func GetNotification(ctx context.Context, id int) (*Notification, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Notification](ctx, bankId, id)
}

func ListNotifications(ctx context.Context, filter *NotificationFilter) (*Page[Notification], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &NotificationFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&Notification{}).Where("bank_id = ?", bankId)
	if !allFilter(filter.Status) {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if !allFilter(filter.Channel) {
		dbCtx = dbCtx.Where("channel = ?", filter.Channel)
	}
	if !utils.IsBlank(filter.Search) {
		pattern := likePattern(filter.Search)
		dbCtx = dbCtx.Where("LOWER(title) LIKE ? OR LOWER(message) LIKE ?", pattern, pattern)
	}
	return paginate[Notification](dbCtx, filter.PageInput, "id DESC")
}

// SendNotification queues the notification on the outbox and marks it scheduled.
func SendNotification(ctx context.Context, id int) (*Notification, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	notification, err := utils.FetchModel[Notification](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if notification.Status != NotificationStatusDraft && notification.Status != NotificationStatusFailed {
		return nil, fmt.Errorf("%w: notification is %s", utils.ErrorInvalidTransition, notification.Status)
	}

	recipients, err := countNotificationRecipients(ctx, bankId, notification.TargetTierCode)
	if err != nil {
		return nil, err
	}
	msg := notificationMessage{
		NotificationId: notification.ID,
		Title:          notification.Title,
		Message:        notification.Message,
		Channel:        notification.Channel,
		TargetTierCode: notification.TargetTierCode,
		Recipients:     recipients,
	}
	if len(notification.Payload) > 0 {
		data := map[string]interface{}{}
		if err := json.Unmarshal(notification.Payload, &data); err == nil {
			msg.Data = data
		}
	}

	from := notification.Status
	err = runInTx(ctx, func(tx *gorm.DB) error {
		updated := tx.Model(&Notification{}).
			Where("id = ? AND bank_id = ? AND status = ?", id, bankId, from).
			Updates(map[string]interface{}{
				"status":         NotificationStatusScheduled,
				"recipients":     recipients,
				"failure_reason": "",
			})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return utils.ErrorConflict
		}
		if err := SaveHistoryUpdate(tx, id, "notifications",
			map[string]string{"status": from}, map[string]string{"status": NotificationStatusScheduled},
			"queued notification "+notification.Title); err != nil {
			return err
		}
		return enqueueEvent(tx, bankId, EventNotificationSend, "notifications", id, msg)
	})
	if err != nil {
		return nil, err
	}
	return GetNotification(ctx, id)
}

func countNotificationRecipients(ctx context.Context, bankId string, tierCode string) (int64, error) {
	if tierCode == "" {
		return utils.ResourceCountWhere[CustomerTier](ctx, bankId, "status <> ?", CustomerStatusInactive)
	}
	return utils.ResourceCountWhere[CustomerTier](ctx, bankId,
		"current_tier_code = ? AND status <> ?", tierCode, CustomerStatusInactive)
}

// MarkNotificationDelivered records the publish result reported by the outbox dispatcher.
func MarkNotificationDelivered(ctx context.Context, id int, publishErr error) error {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return err
	}
	changes := map[string]interface{}{}
	if publishErr == nil {
		now := time.Now()
		changes["status"] = NotificationStatusSent
		changes["sent_at"] = &now
		changes["failure_reason"] = ""
	} else {
		changes["status"] = NotificationStatusFailed
		changes["failure_reason"] = publishErr.Error()
	}
	return config.GetDB().WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND bank_id = ? AND status = ?", id, bankId, NotificationStatusScheduled).
		Updates(changes).Error
}
