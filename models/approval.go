package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ApprovalTypeTierOverride     = "tier_override"
	ApprovalTypeBenefitChange    = "benefit_change"
	ApprovalTypeParameterChange  = "parameter_change"
	ApprovalTypePointsAdjustment = "points_adjustment"
)

const (
	ApprovalStatusPending  = "pending"
	ApprovalStatusApproved = "approved"
	ApprovalStatusRejected = "rejected"
)

type Approval struct {
	ID            int            `gorm:"primary_key" json:"id"`
	BankId        string         `gorm:"index;size:64;not null" json:"bank_id"`
	RequestType   string         `gorm:"index;size:30;not null" json:"request_type"`
	ReferenceId   int            `gorm:"index" json:"reference_id"`
	Title         string         `gorm:"size:200;not null" json:"title"`
	Details       datatypes.JSON `json:"details"`
	RequestedById int            `gorm:"not null;default:0" json:"requested_by_id"`
	RequestedBy   string         `gorm:"size:100" json:"requested_by"`
	Status        string         `gorm:"index;size:10;not null;default:'pending'" json:"status"`
	ApproverId    *int           `json:"approver_id"`
	ApproverName  string         `gorm:"size:100" json:"approver_name"`
	Comment       string         `gorm:"type:text" json:"comment"`
	DecidedAt     *time.Time     `json:"decided_at"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewApproval struct {
	RequestType string                 `json:"request_type" binding:"required"`
	ReferenceId int                    `json:"reference_id"`
	Title       string                 `json:"title" binding:"required"`
	Details     map[string]interface{} `json:"details"`
}

type ApprovalFilter struct {
	Status      string `form:"status"`
	RequestType string `form:"request_type"`
	Search      string `form:"search"`
	PageInput
}

func (a Approval) GetBankId() string {
	return a.BankId
}

func (a Approval) IsTerminal() bool {
	return a.Status == ApprovalStatusApproved || a.Status == ApprovalStatusRejected
}

func CreateApproval(ctx context.Context, input *NewApproval) (*Approval, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	switch input.RequestType {
	case ApprovalTypeTierOverride, ApprovalTypeBenefitChange, ApprovalTypeParameterChange, ApprovalTypePointsAdjustment:
	default:
		return nil, utils.NewValidationError("request_type", "unknown request type "+input.RequestType)
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, utils.NewValidationError("title", "is required")
	}
	details, err := datatypesJSON(input.Details)
	if err != nil {
		return nil, err
	}
	userId, userName := actorFromContext(ctx)

	approval := Approval{
		BankId:        bankId,
		RequestType:   input.RequestType,
		ReferenceId:   input.ReferenceId,
		Title:         title,
		Details:       details,
		RequestedById: userId,
		RequestedBy:   userName,
		Status:        ApprovalStatusPending,
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&approval).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, approval.ID, "approvals", approval, "requested approval "+approval.Title)
	})
	if err != nil {
		return nil, err
	}
	return &approval, nil
}

func GetApproval(ctx context.Context, id int) (*Approval, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Approval](ctx, bankId, id)
}

func ListApprovals(ctx context.Context, filter *ApprovalFilter) (*Page[Approval], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &ApprovalFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&Approval{}).Where("bank_id = ?", bankId)
	if !allFilter(filter.Status) {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if !allFilter(filter.RequestType) {
		dbCtx = dbCtx.Where("request_type = ?", filter.RequestType)
	}
	if !utils.IsBlank(filter.Search) {
		pattern := likePattern(filter.Search)
		dbCtx = dbCtx.Where("LOWER(title) LIKE ? OR LOWER(requested_by) LIKE ?", pattern, pattern)
	}
	return paginate[Approval](dbCtx, filter.PageInput, "id DESC")
}

func ApproveApproval(ctx context.Context, id int, comment string) (*Approval, error) {
	return decideApproval(ctx, id, ApprovalStatusApproved, comment)
}

func RejectApproval(ctx context.Context, id int, comment string) (*Approval, error) {
	return decideApproval(ctx, id, ApprovalStatusRejected, comment)
}

func decideApproval(ctx context.Context, id int, status string, comment string) (*Approval, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, utils.ErrorCommentRequired
	}
	approval, err := utils.FetchModel[Approval](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if approval.IsTerminal() {
		return nil, fmt.Errorf("%w: approval is already %s", utils.ErrorInvalidTransition, approval.Status)
	}
	userId, userName := actorFromContext(ctx)
	if !config.AllowSelfApproval() && approval.RequestedById != 0 && approval.RequestedById == userId {
		return nil, fmt.Errorf("%w: cannot decide your own request", utils.ErrorForbidden)
	}

	release, err := config.ObtainLock(ctx, fmt.Sprintf("Approval:%d:decision", id), reviewLockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrorConflict, err)
	}
	defer release()

	action := HistoryActionApprove
	if status == ApprovalStatusRejected {
		action = HistoryActionReject
	}
	now := time.Now()
	err = runInTx(ctx, func(tx *gorm.DB) error {
		updated := tx.Model(&Approval{}).
			Where("id = ? AND bank_id = ? AND status = ?", id, bankId, ApprovalStatusPending).
			Updates(map[string]interface{}{
				"status":        status,
				"approver_id":   userId,
				"approver_name": userName,
				"comment":       comment,
				"decided_at":    &now,
			})
		if updated.Error != nil {
			return updated.Error
		}
		if updated.RowsAffected == 0 {
			return utils.ErrorConflict
		}
		return createHistory(tx, action, id, "approvals",
			map[string]string{"status": ApprovalStatusPending}, map[string]string{"status": status, "comment": comment},
			fmt.Sprintf("%s approval %s", status, approval.Title))
	})
	if err != nil {
		return nil, err
	}
	return GetApproval(ctx, id)
}
