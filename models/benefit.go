package models

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	BenefitTypeDiscount    = "discount"
	BenefitTypeService     = "service"
	BenefitTypePointsBonus = "points_bonus"
)

const (
	RedemptionStatusCompleted = "completed"
	RedemptionStatusCancelled = "cancelled"
)

type Benefit struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BankId        string          `gorm:"uniqueIndex:idx_benefit_code;size:64;not null" json:"bank_id"`
	Code          string          `gorm:"uniqueIndex:idx_benefit_code;size:32;not null" json:"code"`
	Name          string          `gorm:"index;size:100;not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	BenefitType   string          `gorm:"index;size:20;not null" json:"benefit_type"`
	Value         decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"value"`
	PointsCost    int64           `gorm:"not null;default:0" json:"points_cost"`
	EligibleTiers string          `gorm:"size:255" json:"eligible_tiers"`
	ImageUrl      string          `gorm:"size:512" json:"image_url"`
	ThumbnailUrl  string          `gorm:"size:512" json:"thumbnail_url"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBenefit struct {
	Code          string          `json:"code" binding:"required"`
	Name          string          `json:"name" binding:"required"`
	Description   string          `json:"description"`
	BenefitType   string          `json:"benefit_type" binding:"required"`
	Value         decimal.Decimal `json:"value"`
	PointsCost    int64           `json:"points_cost" binding:"min=0"`
	EligibleTiers []string        `json:"eligible_tiers"`
}

type BenefitFilter struct {
	BenefitType string `form:"benefit_type"`
	TierCode    string `form:"tier_code"`
	Active      *bool  `form:"active"`
	Search      string `form:"search"`
}

type BenefitRedemption struct {
	ID             int       `gorm:"primary_key" json:"id"`
	BankId         string    `gorm:"index;size:64;not null" json:"bank_id"`
	BenefitId      int       `gorm:"index;not null" json:"benefit_id"`
	CustomerTierId int       `gorm:"index;not null" json:"customer_tier_id"`
	TierCode       string    `gorm:"index;size:32;not null" json:"tier_code"`
	PointsUsed     int64     `gorm:"not null;default:0" json:"points_used"`
	LedgerEntryId  *int      `json:"ledger_entry_id"`
	Status         string    `gorm:"size:20;not null" json:"status"`
	RedeemedAt     time.Time `gorm:"index;not null" json:"redeemed_at"`

	Benefit *Benefit `gorm:"foreignKey:BenefitId" json:"benefit,omitempty"`
}

type NewBenefitRedemption struct {
	BenefitId      int `json:"benefit_id" binding:"required"`
	CustomerTierId int `json:"customer_tier_id" binding:"required"`
}

func (b Benefit) GetBankId() string {
	return b.BankId
}

// EligibleFor reports whether tierCode is in the eligible list. An empty list means every tier.
func (b Benefit) EligibleFor(tierCode string) bool {
	if utils.IsBlank(b.EligibleTiers) {
		return true
	}
	return utils.ContainsCode(b.EligibleTiers, tierCode)
}

func isBenefitType(t string) bool {
	switch t {
	case BenefitTypeDiscount, BenefitTypeService, BenefitTypePointsBonus:
		return true
	}
	return false
}

// validate input for both create & update. (id = 0 for create)
func (input *NewBenefit) validate(ctx context.Context, bankId string, id int) error {
	input.Code = utils.NormalizeCode(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if id > 0 {
		if err := utils.ValidateResourceId[Benefit](ctx, bankId, id); err != nil {
			return err
		}
	}
	if !utils.IsValidCode(input.Code) {
		return utils.NewValidationError("code", "only A-Z, 0-9 and _ are allowed")
	}
	if !isBenefitType(input.BenefitType) {
		return utils.NewValidationError("benefit_type", "must be discount, service or points_bonus")
	}
	if input.Value.IsNegative() {
		return utils.NewValidationError("value", "must not be negative")
	}
	if input.BenefitType == BenefitTypeDiscount && input.Value.GreaterThan(decimal.NewFromInt(100)) {
		return utils.NewValidationError("value", "discount percent must not exceed 100")
	}
	if err := utils.ValidateUnique[Benefit](ctx, bankId, "code", input.Code, id); err != nil {
		return err
	}
	// eligible tiers
	codes := make([]string, 0, len(input.EligibleTiers))
	for _, c := range input.EligibleTiers {
		codes = append(codes, utils.NormalizeCode(c))
	}
	input.EligibleTiers = utils.UniqueSlice(codes)
	for _, code := range input.EligibleTiers {
		count, err := utils.ResourceCountWhere[TierDefinition](ctx, bankId, "code = ?", code)
		if err != nil {
			return err
		}
		if count == 0 {
			return utils.NewValidationError("eligible_tiers", "unknown tier "+code)
		}
	}
	return nil
}

func CreateBenefit(ctx context.Context, input *NewBenefit) (*Benefit, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, 0); err != nil {
		return nil, err
	}

	benefit := Benefit{
		BankId:        bankId,
		Code:          input.Code,
		Name:          input.Name,
		Description:   input.Description,
		BenefitType:   input.BenefitType,
		Value:         input.Value,
		PointsCost:    input.PointsCost,
		EligibleTiers: utils.JoinCodes(input.EligibleTiers),
		IsActive:      utils.NewTrue(),
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&benefit).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, benefit.ID, "benefits", benefit, "created benefit "+benefit.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := benefit.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &benefit, nil
}

func UpdateBenefit(ctx context.Context, id int, input *NewBenefit) (*Benefit, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, id); err != nil {
		return nil, err
	}
	benefit, err := utils.FetchModel[Benefit](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	before := *benefit

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(benefit).Updates(map[string]interface{}{
			"Code":          input.Code,
			"Name":          input.Name,
			"Description":   input.Description,
			"BenefitType":   input.BenefitType,
			"Value":         input.Value,
			"PointsCost":    input.PointsCost,
			"EligibleTiers": utils.JoinCodes(input.EligibleTiers),
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, id, "benefits", before, benefit, "updated benefit "+benefit.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*benefit); err != nil {
		return nil, err
	}
	return benefit, nil
}

func DeleteBenefit(ctx context.Context, id int) (*Benefit, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[Benefit](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	count, err := utils.ResourceCountWhere[BenefitRedemption](ctx, bankId, "benefit_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: benefit has redemptions", utils.ErrorInUse)
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "benefits", result, "deleted benefit "+result.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}
	return result, nil
}

func GetBenefit(ctx context.Context, id int) (*Benefit, error) {
	return GetResource[Benefit](ctx, id)
}

func GetBenefits(ctx context.Context, filter *BenefitFilter) ([]*Benefit, error) {
	all, err := ListAllResource[Benefit](ctx, "name")
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return all, nil
	}
	tierCode := utils.NormalizeCode(filter.TierCode)
	results := make([]*Benefit, 0, len(all))
	for _, b := range all {
		if !allFilter(filter.BenefitType) && b.BenefitType != filter.BenefitType {
			continue
		}
		if !allFilter(filter.TierCode) && !b.EligibleFor(tierCode) {
			continue
		}
		if filter.Active != nil && (b.IsActive == nil || *b.IsActive != *filter.Active) {
			continue
		}
		if !utils.IsBlank(filter.Search) {
			needle := strings.ToLower(strings.TrimSpace(filter.Search))
			if !strings.Contains(strings.ToLower(b.Name), needle) && !strings.Contains(strings.ToLower(b.Code), needle) {
				continue
			}
		}
		results = append(results, b)
	}
	return results, nil
}

func ToggleActiveBenefit(ctx context.Context, id int, isActive bool) (*Benefit, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return ToggleActiveModel[Benefit](ctx, bankId, id, isActive)
}

// UploadBenefitImage stores the image and a thumbnail, then saves both URLs on the benefit.
func UploadBenefitImage(ctx context.Context, id int, filename string, data []byte, store utils.ObjectStorage) (*Benefit, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	benefit, err := utils.FetchModel[Benefit](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	contentType, err := utils.DetectImageType(data)
	if err != nil {
		return nil, err
	}
	thumbnail, err := utils.MakeThumbnail(data)
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
		if contentType == "image/png" {
			ext = ".png"
		}
	}
	prefix := fmt.Sprintf("benefits/%s/%d/%s", bankId, id, utils.NewReferenceNo("IMG"))
	imageUrl, err := store.Put(ctx, prefix+ext, contentType, data)
	if err != nil {
		return nil, err
	}
	thumbnailUrl, err := store.Put(ctx, prefix+"_thumb.jpg", "image/jpeg", thumbnail)
	if err != nil {
		return nil, err
	}

	before := *benefit
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(benefit).Updates(map[string]interface{}{
			"ImageUrl":     imageUrl,
			"ThumbnailUrl": thumbnailUrl,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, id, "benefits", before, benefit, "uploaded image for benefit "+benefit.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*benefit); err != nil {
		return nil, err
	}
	return benefit, nil
}

// RedeemBenefit checks eligibility and deducts PointsCost through the points ledger.
func RedeemBenefit(ctx context.Context, input *NewBenefitRedemption) (*BenefitRedemption, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	benefit, err := utils.FetchModel[Benefit](ctx, bankId, input.BenefitId)
	if err != nil {
		return nil, err
	}
	if benefit.IsActive == nil || !*benefit.IsActive {
		return nil, utils.NewValidationError("benefit_id", "benefit is inactive")
	}
	customer, err := utils.FetchModel[CustomerTier](ctx, bankId, input.CustomerTierId)
	if err != nil {
		return nil, err
	}
	if customer.Status == CustomerStatusInactive {
		return nil, utils.NewValidationError("customer_tier_id", "customer is inactive")
	}
	if !benefit.EligibleFor(customer.CurrentTierCode) {
		return nil, utils.NewValidationError("customer_tier_id",
			fmt.Sprintf("tier %s is not eligible for %s", customer.CurrentTierCode, benefit.Code))
	}

	redemption := BenefitRedemption{
		BankId:         bankId,
		BenefitId:      benefit.ID,
		CustomerTierId: customer.ID,
		TierCode:       customer.CurrentTierCode,
		PointsUsed:     benefit.PointsCost,
		Status:         RedemptionStatusCompleted,
		RedeemedAt:     time.Now(),
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if benefit.PointsCost > 0 {
			var account PointsAccount
			if err := tx.Where("bank_id = ? AND customer_tier_id = ?", bankId, customer.ID).
				First(&account).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return utils.ErrorInsufficientPoints
				}
				return err
			}
			entry, err := postPoints(tx, bankId, account.ID, LedgerRedeem, benefit.PointsCost, "redeem "+benefit.Code)
			if err != nil {
				return err
			}
			redemption.LedgerEntryId = &entry.ID
		}
		if err := tx.Create(&redemption).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, redemption.ID, "benefit_redemptions", redemption,
			fmt.Sprintf("customer %s redeemed %s", customer.CustomerId, benefit.Code))
	})
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

func GetBenefitRedemptions(ctx context.Context, benefitId int, customerTierId int, page PageInput) (*Page[BenefitRedemption], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&BenefitRedemption{}).Where("bank_id = ?", bankId)
	if benefitId > 0 {
		dbCtx = dbCtx.Where("benefit_id = ?", benefitId)
	}
	if customerTierId > 0 {
		dbCtx = dbCtx.Where("customer_tier_id = ?", customerTierId)
	}
	return paginate[BenefitRedemption](dbCtx, page, "redeemed_at DESC")
}
