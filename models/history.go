package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"gorm.io/gorm"
)

const (
	HistoryActionCreate   = "CREATE"
	HistoryActionUpdate   = "UPDATE"
	HistoryActionDelete   = "DELETE"
	HistoryActionApprove  = "APPROVE"
	HistoryActionReject   = "REJECT"
	HistoryActionTransfer = "TRANSFER"
)

type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BankId        string    `gorm:"index;size:64;not null" json:"bank_id"`
	ActionType    string    `gorm:"size:10;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:64" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	ctx := tx.Statement.Context
	bankId, err := requireBankId(ctx)
	if err != nil {
		return err
	}
	userId, userName := actorFromContext(ctx)

	history := History{
		BankId:        bankId,
		ActionType:    actionType,
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
		UserId:        userId,
		UserName:      userName,
	}
	if before != nil {
		b, _ := json.Marshal(before)
		history.Before = string(b)
	}
	if after != nil {
		a, _ := json.Marshal(after)
		history.After = string(a)
	}
	return tx.Session(&gorm.Session{NewDB: true}).Create(&history).Error
}

func SaveHistoryCreate(tx *gorm.DB, id int, referenceType string, obj interface{}, description string) error {
	return createHistory(tx, HistoryActionCreate, id, referenceType, nil, obj, description)
}

func SaveHistoryUpdate(tx *gorm.DB, id int, referenceType string, before interface{}, after interface{}, description string) error {
	return createHistory(tx, HistoryActionUpdate, id, referenceType, before, after, description)
}

func SaveHistoryDelete(tx *gorm.DB, id int, referenceType string, obj interface{}, description string) error {
	return createHistory(tx, HistoryActionDelete, id, referenceType, obj, nil, description)
}

// GetHistories lists the audit trail of one record, newest first.
func GetHistories(ctx context.Context, referenceType string, referenceId int) ([]*History, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	var results []*History
	err = config.GetDB().WithContext(ctx).
		Where("bank_id = ? AND reference_type = ? AND reference_id = ?", bankId, referenceType, referenceId).
		Order("id DESC").
		Find(&results).Error
	return results, err
}
