package models

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

type TierDefinition struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BankId      string    `gorm:"uniqueIndex:idx_tier_bank_code;size:64;not null" json:"bank_id"`
	Code        string    `gorm:"uniqueIndex:idx_tier_bank_code;size:32;not null" json:"code"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	MinScore    int       `gorm:"not null" json:"min_score"`
	MaxScore    int       `gorm:"not null" json:"max_score"`
	Color       string    `gorm:"size:20" json:"color"`
	SortOrder   int       `gorm:"not null;default:0" json:"sort_order"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTierDefinition struct {
	Code        string `json:"code" yaml:"code" binding:"required"`
	Name        string `json:"name" yaml:"name" binding:"required"`
	MinScore    int    `json:"min_score" yaml:"min_score" binding:"min=0"`
	MaxScore    int    `json:"max_score" yaml:"max_score" binding:"min=0"`
	Color       string `json:"color" yaml:"color"`
	SortOrder   int    `json:"sort_order" yaml:"sort_order"`
	Description string `json:"description" yaml:"description"`
}

func (t TierDefinition) GetBankId() string {
	return t.BankId
}

// Contains reports whether score falls in [MinScore, MaxScore].
func (t TierDefinition) Contains(score int) bool {
	return score >= t.MinScore && score <= t.MaxScore
}

// validate input for both create & update. (id = 0 for create)
func (input *NewTierDefinition) validate(ctx context.Context, bankId string, id int) error {
	input.Code = utils.NormalizeCode(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if id > 0 {
		if err := utils.ValidateResourceId[TierDefinition](ctx, bankId, id); err != nil {
			return err
		}
	}
	if !utils.IsValidCode(input.Code) {
		return utils.NewValidationError("code", "only A-Z, 0-9 and _ are allowed")
	}
	if input.Name == "" {
		return utils.NewValidationError("name", "name is required")
	}
	if input.MinScore < 0 || input.MinScore > input.MaxScore {
		return utils.NewValidationError("min_score", "min_score must be between 0 and max_score")
	}
	if err := utils.ValidateUnique[TierDefinition](ctx, bankId, "code", input.Code, id); err != nil {
		return err
	}
	// active ranges may not overlap
	var overlapping []TierDefinition
	dbCtx := config.GetDB().WithContext(ctx).
		Where("bank_id = ? AND is_active = ?", bankId, true).
		Where("min_score <= ? AND max_score >= ?", input.MaxScore, input.MinScore)
	if id > 0 {
		dbCtx = dbCtx.Where("id <> ?", id)
	}
	if err := dbCtx.Find(&overlapping).Error; err != nil {
		return err
	}
	if len(overlapping) > 0 {
		return utils.NewValidationError("min_score", "score range overlaps tier "+overlapping[0].Code)
	}
	return nil
}

func CreateTierDefinition(ctx context.Context, input *NewTierDefinition) (*TierDefinition, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, 0); err != nil {
		return nil, err
	}

	tier := TierDefinition{
		BankId:      bankId,
		Code:        input.Code,
		Name:        input.Name,
		MinScore:    input.MinScore,
		MaxScore:    input.MaxScore,
		Color:       input.Color,
		SortOrder:   input.SortOrder,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&tier).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, tier.ID, "tier_definitions", tier, "created tier "+tier.Code)
	})
	if err != nil {
		return nil, err
	}
	if err := tier.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &tier, nil
}

func UpdateTierDefinition(ctx context.Context, id int, input *NewTierDefinition) (*TierDefinition, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, id); err != nil {
		return nil, err
	}

	tier, err := utils.FetchModel[TierDefinition](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	before := *tier

	if tier.Code != input.Code {
		// customers and benefits reference tiers by code
		count, err := utils.ResourceCountWhere[CustomerTier](ctx, bankId, "current_tier_code = ?", tier.Code)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, utils.NewValidationError("code", "tier code is held by customers and cannot be renamed")
		}
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(tier).Updates(map[string]interface{}{
			"Code":        input.Code,
			"Name":        input.Name,
			"MinScore":    input.MinScore,
			"MaxScore":    input.MaxScore,
			"Color":       input.Color,
			"SortOrder":   input.SortOrder,
			"Description": input.Description,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, id, "tier_definitions", before, tier, "updated tier "+tier.Code)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*tier); err != nil {
		return nil, err
	}
	return tier, nil
}

func DeleteTierDefinition(ctx context.Context, id int) (*TierDefinition, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[TierDefinition](ctx, bankId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[CustomerTier](ctx, bankId, "current_tier_code = ?", result.Code)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: tier is assigned to customers", utils.ErrorInUse)
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "tier_definitions", result, "deleted tier "+result.Code)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}
	return result, nil
}

func GetTierDefinition(ctx context.Context, id int) (*TierDefinition, error) {
	return GetResource[TierDefinition](ctx, id)
}

// GetTierDefinitions returns every tier of the bank ordered by sort_order.
func GetTierDefinitions(ctx context.Context) ([]*TierDefinition, error) {
	return ListAllResource[TierDefinition](ctx, "sort_order", "min_score")
}

func GetTierDefinitionByCode(ctx context.Context, code string) (*TierDefinition, error) {
	tiers, err := GetTierDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	code = utils.NormalizeCode(code)
	for _, t := range tiers {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func ToggleActiveTierDefinition(ctx context.Context, id int, isActive bool) (*TierDefinition, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if isActive {
		// re-activating must not create an overlap
		tier, err := utils.FetchModel[TierDefinition](ctx, bankId, id)
		if err != nil {
			return nil, err
		}
		input := NewTierDefinition{Code: tier.Code, Name: tier.Name, MinScore: tier.MinScore, MaxScore: tier.MaxScore}
		if err := input.validate(ctx, bankId, id); err != nil {
			return nil, err
		}
	}
	return ToggleActiveModel[TierDefinition](ctx, bankId, id, isActive)
}

// ResolveTierForScore finds the active tier whose range contains score.
func ResolveTierForScore(ctx context.Context, score int) (*TierDefinition, error) {
	tiers, err := GetTierDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	return resolveTier(tiers, score)
}

func resolveTier(tiers []*TierDefinition, score int) (*TierDefinition, error) {
	active := make([]*TierDefinition, 0, len(tiers))
	for _, t := range tiers {
		if t.IsActive != nil && *t.IsActive {
			active = append(active, t)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].SortOrder < active[j].SortOrder })
	for _, t := range active {
		if t.Contains(score) {
			return t, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

// tierRank orders tiers by their lower bound; higher is better.
func tierRank(tiers []*TierDefinition, code string) (int, bool) {
	for _, t := range tiers {
		if t.Code == code {
			return t.MinScore, true
		}
	}
	return 0, false
}
