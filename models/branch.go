package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

type Branch struct {
	ID          int       `gorm:"primary_key" json:"id"`
	BankId      string    `gorm:"index;size:64;not null" json:"bank_id"`
	Code        string    `gorm:"index;size:32;not null" json:"code"`
	Name        string    `gorm:"index;size:100;not null" json:"name" binding:"required"`
	Region      string    `gorm:"size:100" json:"region"`
	Phone       string    `gorm:"size:20" json:"phone"`
	Address     string    `gorm:"type:text" json:"address"`
	ManagerName string    `gorm:"size:100" json:"manager_name"`
	IsActive    *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBranch struct {
	Code        string `json:"code" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Region      string `json:"region"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	ManagerName string `json:"manager_name"`
}

func (b Branch) GetBankId() string {
	return b.BankId
}

// validate input for both create & update. (id = 0 for create)
func (input *NewBranch) validate(ctx context.Context, bankId string, id int) error {
	input.Code = utils.NormalizeCode(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	if id > 0 {
		if err := utils.ValidateResourceId[Branch](ctx, bankId, id); err != nil {
			return err
		}
	}
	if !utils.IsValidCode(input.Code) {
		return utils.NewValidationError("code", "only A-Z, 0-9 and _ are allowed")
	}
	if err := utils.ValidateUnique[Branch](ctx, bankId, "code", input.Code, id); err != nil {
		return err
	}
	if err := utils.ValidateUnique[Branch](ctx, bankId, "name", input.Name, id); err != nil {
		return err
	}
	// phone
	if len(strings.TrimSpace(input.Phone)) > 0 {
		phone, err := utils.NormalizePhoneNumber(input.Phone, utils.DefaultRegion())
		if err != nil {
			return utils.NewValidationError("phone", err.Error())
		}
		input.Phone = phone
	}
	return nil
}

func CreateBranch(ctx context.Context, input *NewBranch) (*Branch, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, 0); err != nil {
		return nil, err
	}

	branch := Branch{
		BankId:      bankId,
		Code:        input.Code,
		Name:        input.Name,
		Region:      input.Region,
		Phone:       input.Phone,
		Address:     input.Address,
		ManagerName: input.ManagerName,
		IsActive:    utils.NewTrue(),
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&branch).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, branch.ID, "branches", branch, "created branch "+branch.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := branch.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &branch, nil
}

func UpdateBranch(ctx context.Context, id int, input *NewBranch) (*Branch, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, bankId, id); err != nil {
		return nil, err
	}
	branch, err := utils.FetchModel[Branch](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	before := *branch

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(branch).Updates(map[string]interface{}{
			"Code":        input.Code,
			"Name":        input.Name,
			"Region":      input.Region,
			"Phone":       input.Phone,
			"Address":     input.Address,
			"ManagerName": input.ManagerName,
		}).Error; err != nil {
			return err
		}
		return SaveHistoryUpdate(tx, id, "branches", before, branch, "updated branch "+branch.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*branch); err != nil {
		return nil, err
	}
	return branch, nil
}

func DeleteBranch(ctx context.Context, id int) (*Branch, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[Branch](ctx, bankId, id)
	if err != nil {
		return nil, err
	}
	// check if the branch is used
	count, err := utils.ResourceCountWhere[CustomerTier](ctx, bankId, "branch_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: branch has customers", utils.ErrorInUse)
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "branches", result, "deleted branch "+result.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}
	return result, nil
}

func GetBranch(ctx context.Context, id int) (*Branch, error) {
	return GetResource[Branch](ctx, id)
}

func GetBranches(ctx context.Context, search string, region string) ([]*Branch, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if utils.IsBlank(search) && allFilter(region) {
		return ListAllResource[Branch](ctx, "name")
	}

	var results []*Branch
	dbCtx := config.GetDB().WithContext(ctx).Where("bank_id = ?", bankId)
	if !utils.IsBlank(search) {
		pattern := likePattern(search)
		dbCtx = dbCtx.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ?", pattern, pattern)
	}
	if !allFilter(region) {
		dbCtx = dbCtx.Where("region = ?", region)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func ToggleActiveBranch(ctx context.Context, id int, isActive bool) (*Branch, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return ToggleActiveModel[Branch](ctx, bankId, id, isActive)
}
