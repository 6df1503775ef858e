package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

const PointsTransferCompleted = "completed"

type PointsTransfer struct {
	ID            int       `gorm:"primary_key" json:"id"`
	BankId        string    `gorm:"index;size:64;not null" json:"bank_id"`
	FromAccountId int       `gorm:"index;not null" json:"from_account_id"`
	ToAccountId   int       `gorm:"index;not null" json:"to_account_id"`
	Points        int64     `gorm:"not null" json:"points"`
	Status        string    `gorm:"size:20;not null" json:"status"`
	ReferenceNo   string    `gorm:"uniqueIndex;size:40;not null" json:"reference_no"`
	Note          string    `gorm:"size:255" json:"note"`
	CreatedBy     string    `gorm:"size:100" json:"created_by"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type NewPointsTransfer struct {
	FromAccountId int    `json:"from_account_id" binding:"required"`
	ToAccountId   int    `json:"to_account_id" binding:"required"`
	Points        int64  `json:"points" binding:"required"`
	Note          string `json:"note"`
}

// TransferPoints moves points between two accounts of the same bank in one transaction.
// Rows are locked in ascending account id order so opposite transfers cannot deadlock.
func TransferPoints(ctx context.Context, input *NewPointsTransfer) (*PointsTransfer, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if input.FromAccountId == input.ToAccountId {
		return nil, utils.NewValidationError("to_account_id", "cannot transfer to the same account")
	}
	if input.Points <= 0 {
		return nil, utils.NewValidationError("points", "must be positive")
	}

	first, second := input.FromAccountId, input.ToAccountId
	if first > second {
		first, second = second, first
	}
	release, err := config.ObtainLock(ctx, fmt.Sprintf("PointsTransfer:%d:%d", first, second), 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrorConflict, err)
	}
	defer release()

	_, userName := actorFromContext(ctx)
	transfer := PointsTransfer{
		BankId:        bankId,
		FromAccountId: input.FromAccountId,
		ToAccountId:   input.ToAccountId,
		Points:        input.Points,
		Status:        PointsTransferCompleted,
		ReferenceNo:   utils.NewReferenceNo("PT"),
		Note:          input.Note,
		CreatedBy:     userName,
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		// take both row locks up front, lowest id first
		var locked []PointsAccount
		if err := tx.Clauses(lockingForUpdate()).
			Where("bank_id = ? AND id IN ?", bankId, []int{first, second}).
			Order("id").
			Find(&locked).Error; err != nil {
			return err
		}
		if len(locked) != 2 {
			return utils.ErrorRecordNotFound
		}
		description := fmt.Sprintf("transfer %s", transfer.ReferenceNo)
		if _, err := postPoints(tx, bankId, input.FromAccountId, LedgerTransferOut, input.Points, description); err != nil {
			return err
		}
		if _, err := postPoints(tx, bankId, input.ToAccountId, LedgerTransferIn, input.Points, description); err != nil {
			return err
		}
		if err := tx.Create(&transfer).Error; err != nil {
			return err
		}
		if err := createHistory(tx, HistoryActionTransfer, transfer.ID, "points_transfers", nil, transfer, description); err != nil {
			return err
		}
		return enqueueEvent(tx, bankId, EventPointsTransferred, "points_transfers", transfer.ID, transfer)
	})
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

func GetPointsTransfers(ctx context.Context, accountId int, page PageInput) (*Page[PointsTransfer], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&PointsTransfer{}).Where("bank_id = ?", bankId)
	if accountId > 0 {
		dbCtx = dbCtx.Where("from_account_id = ? OR to_account_id = ?", accountId, accountId)
	}
	return paginate[PointsTransfer](dbCtx, page, "id DESC")
}
