package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

const (
	CustomerStatusActive      = "active"
	CustomerStatusUnderReview = "under_review"
	CustomerStatusUpgraded    = "upgraded"
	CustomerStatusDowngraded  = "downgraded"
	CustomerStatusInactive    = "inactive"
)

var customerStatuses = []string{
	CustomerStatusActive, CustomerStatusUnderReview, CustomerStatusUpgraded, CustomerStatusDowngraded, CustomerStatusInactive,
}

type CustomerTier struct {
	ID               int        `gorm:"primary_key" json:"id"`
	BankId           string     `gorm:"uniqueIndex:idx_customer_bank;size:64;not null" json:"bank_id"`
	CustomerId       string     `gorm:"uniqueIndex:idx_customer_bank;size:64;not null" json:"customer_id"`
	CustomerName     string     `gorm:"index;size:150;not null" json:"customer_name"`
	BranchId         int        `gorm:"index" json:"branch_id"`
	CurrentTierCode  string     `gorm:"index;size:32;not null" json:"current_tier_code"`
	CurrentScore     int        `gorm:"not null;default:0" json:"current_score"`
	PreviousTierCode string     `gorm:"size:32" json:"previous_tier_code"`
	PreviousScore    int        `gorm:"not null;default:0" json:"previous_score"`
	Status           string     `gorm:"index;size:20;not null;default:'active'" json:"status"`
	LastEvaluatedAt  *time.Time `json:"last_evaluated_at"`
	CreatedAt        time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomerTier struct {
	CustomerId   string `json:"customer_id" binding:"required"`
	CustomerName string `json:"customer_name" binding:"required"`
	BranchId     int    `json:"branch_id"`
	TierCode     string `json:"tier_code"`
	Score        int    `json:"score" binding:"min=0"`
}

type UpdateCustomerTierInput struct {
	CustomerName string `json:"customer_name" binding:"required"`
	BranchId     int    `json:"branch_id"`
}

type CustomerTierFilter struct {
	TierCode string `form:"tier_code"`
	Status   string `form:"status"`
	BranchId int    `form:"branch_id"`
	Search   string `form:"search"`
	PageInput
}

func (c CustomerTier) GetBankId() string {
	return c.BankId
}

func isCustomerStatus(s string) bool {
	for _, v := range customerStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func validateBranch(ctx context.Context, bankId string, branchId int) error {
	if branchId <= 0 {
		return nil
	}
	if err := utils.ValidateResourceId[Branch](ctx, bankId, branchId); err != nil {
		return utils.NewValidationError("branch_id", "branch not found")
	}
	return nil
}

func CreateCustomerTier(ctx context.Context, input *NewCustomerTier) (*CustomerTier, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	input.CustomerId = strings.TrimSpace(input.CustomerId)
	if input.CustomerId == "" {
		return nil, utils.NewValidationError("customer_id", "customer_id is required")
	}
	if err := utils.ValidateUnique[CustomerTier](ctx, bankId, "customer_id", input.CustomerId, 0); err != nil {
		return nil, err
	}
	if err := validateBranch(ctx, bankId, input.BranchId); err != nil {
		return nil, err
	}

	// explicit tier must exist; otherwise derive it from the score
	var tier *TierDefinition
	if strings.TrimSpace(input.TierCode) != "" {
		tier, err = GetTierDefinitionByCode(ctx, input.TierCode)
		if err != nil {
			return nil, utils.NewValidationError("tier_code", "tier not found")
		}
	} else {
		tier, err = ResolveTierForScore(ctx, input.Score)
		if err != nil {
			return nil, utils.NewValidationError("score", "no active tier covers this score")
		}
	}

	now := time.Now().UTC()
	customer := CustomerTier{
		BankId:          bankId,
		CustomerId:      input.CustomerId,
		CustomerName:    strings.TrimSpace(input.CustomerName),
		BranchId:        input.BranchId,
		CurrentTierCode: tier.Code,
		CurrentScore:    input.Score,
		Status:          CustomerStatusActive,
		LastEvaluatedAt: &now,
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&customer).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, customer.ID, "customer_tiers", customer, "enrolled customer "+customer.CustomerId)
	})
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomerTier changes profile fields only. Tier fields move through reviews.
func UpdateCustomerTier(ctx context.Context, id int, input *UpdateCustomerTierInput) (*CustomerTier, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateBranch(ctx, bankId, input.BranchId); err != nil {
		return nil, err
	}
	customer, err := utils.FetchModel[CustomerTier](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	before := *customer

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(customer).Updates(map[string]interface{}{
			"CustomerName": strings.TrimSpace(input.CustomerName),
			"BranchId":     input.BranchId,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, id, "customer_tiers", before, customer, "updated customer "+customer.CustomerId)
	})
	if err != nil {
		return nil, err
	}
	if err := customer.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return customer, nil
}

func DeleteCustomerTier(ctx context.Context, id int) (*CustomerTier, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[CustomerTier](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[PointsAccount](ctx, bankId, "customer_tier_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: customer has a points account", utils.ErrorInUse)
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("customer_tier_id = ? AND status = ?", id, ReviewStatusPending).Delete(&TierReview{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "customer_tiers", result, "removed customer "+result.CustomerId)
	})
	if err != nil {
		return nil, err
	}
	if err := result.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return result, nil
}

func GetCustomerTier(ctx context.Context, id int) (*CustomerTier, error) {
	return GetResource[CustomerTier](ctx, id)
}

// ToggleActiveCustomerTier moves a customer between active and inactive.
func ToggleActiveCustomerTier(ctx context.Context, id int, isActive bool) (*CustomerTier, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	customer, err := utils.FetchModel[CustomerTier](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	if customer.Status == CustomerStatusUnderReview {
		return nil, errors.New("customer has a pending tier review")
	}
	status := CustomerStatusInactive
	actionType := "*INACTIVE*"
	if isActive {
		status = CustomerStatusActive
		actionType = "*ACTIVE*"
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(customer).Update("status", status).Error; err != nil {
			return err
		}
		return createHistory(tx, actionType, id, "customer_tiers", nil, nil, "toggled CustomerTier")
	})
	if err != nil {
		return nil, err
	}
	if err := customer.RemoveInstanceRedis(); err != nil {
		return nil, err
	}
	return customer, nil
}

func customerTierQuery(ctx context.Context, bankId string, filter *CustomerTierFilter) (*gorm.DB, error) {
	dbCtx := config.GetDB().WithContext(ctx).Model(&CustomerTier{}).Where("bank_id = ?", bankId)
	if filter == nil {
		return dbCtx, nil
	}
	if !allFilter(filter.TierCode) {
		dbCtx = dbCtx.Where("current_tier_code = ?", utils.NormalizeCode(filter.TierCode))
	}
	if !allFilter(filter.Status) {
		if !isCustomerStatus(filter.Status) {
			return nil, utils.NewValidationError("status", "unknown status "+filter.Status)
		}
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.BranchId > 0 {
		dbCtx = dbCtx.Where("branch_id = ?", filter.BranchId)
	}
	if strings.TrimSpace(filter.Search) != "" {
		pattern := likePattern(filter.Search)
		dbCtx = dbCtx.Where("LOWER(customer_name) LIKE ? OR LOWER(customer_id) LIKE ?", pattern, pattern)
	}
	return dbCtx, nil
}

// ListCustomerTiers pages through customers. tier_code "" or "all" means every tier.
func ListCustomerTiers(ctx context.Context, filter *CustomerTierFilter) (*Page[CustomerTier], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx, err := customerTierQuery(ctx, bankId, filter)
	if err != nil {
		return nil, err
	}
	var page PageInput
	if filter != nil {
		page = filter.PageInput
	}
	return paginate[CustomerTier](dbCtx, page, "customer_name, id")
}

// EachCustomerTier walks every customer of the bank in id order, batchSize at a time.
func EachCustomerTier(ctx context.Context, batchSize int, fn func(batch []*CustomerTier) error) error {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return err
	}
	var batch []*CustomerTier
	result := config.GetDB().WithContext(ctx).
		Where("bank_id = ? AND status <> ?", bankId, CustomerStatusInactive).
		Order("id").
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			return fn(batch)
		})
	return result.Error
}

// RecordCustomerScore stores a new score when the tier does not change.
func RecordCustomerScore(ctx context.Context, id int, score int) error {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	err = config.GetDB().WithContext(ctx).Model(&CustomerTier{}).
		Where("id = ? AND bank_id = ?", id, bankId).
		Updates(map[string]interface{}{
			"current_score":     score,
			"last_evaluated_at": &now,
		}).Error
	if err != nil {
		return err
	}
	return utils.RemoveRedisItem[CustomerTier](id)
}

// CountCustomers returns the number of customer records of the bank.
func CountCustomers(ctx context.Context) (int64, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return 0, err
	}
	return utils.ResourceCountWhere[CustomerTier](ctx, bankId, "1 = 1")
}
