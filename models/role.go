package models

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm"
)

type Role struct {
	ID          int           `gorm:"primary_key" json:"id"`
	BankId      string        `gorm:"index;size:64;not null" json:"bank_id"`
	Name        string        `gorm:"index;size:100;not null" json:"name"`
	RoleModules []*RoleModule `gorm:"foreignKey:RoleId" json:"role_modules"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewRole struct {
	Name           string              `json:"name" binding:"required"`
	AllowedModules []*NewAllowedModule `json:"allowed_modules"`
}

type NewAllowedModule struct {
	ModuleID       int    `json:"module_id"`
	AllowedActions string `json:"allowed_actions"`
}

func (r Role) GetBankId() string {
	return r.BankId
}

func mapRoleModules(ctx context.Context, bankId string, input []*NewAllowedModule) ([]*RoleModule, error) {
	modules, err := GetModules(ctx)
	if err != nil {
		return nil, err
	}
	availableModuleActions := make(map[int]string, len(modules)) // moduleId:actions
	for _, m := range modules {
		availableModuleActions[m.ID] = m.Actions
	}

	seen := make(map[int]bool)
	var roleModules []*RoleModule
	for _, permission := range input {
		availableActionsString, ok := availableModuleActions[permission.ModuleID]
		if !ok || availableActionsString == "" {
			return nil, utils.NewValidationError("allowed_modules", "module_id not found")
		}
		if seen[permission.ModuleID] {
			return nil, utils.NewValidationError("allowed_modules", "duplicate module_id")
		}
		seen[permission.ModuleID] = true

		availableActions := extractModuleActions(availableActionsString)
		inputActions := extractModuleActions(permission.AllowedActions)
		if len(inputActions) == 0 {
			return nil, utils.NewValidationError("allowed_modules", "allowed_actions is required")
		}
		for _, action := range inputActions {
			if !slices.Contains(availableActions, action) {
				return nil, utils.NewValidationError("allowed_modules", "invalid module action "+action)
			}
		}

		roleModules = append(roleModules, &RoleModule{
			BankId:         bankId,
			ModuleId:       permission.ModuleID,
			AllowedActions: strings.Join(inputActions, ";"),
		})
	}
	return roleModules, nil
}

func CreateRole(ctx context.Context, input *NewRole) (*Role, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	// check duplicate
	if err := utils.ValidateUnique[Role](ctx, bankId, "name", input.Name, 0); err != nil {
		return nil, err
	}
	roleModules, err := mapRoleModules(ctx, bankId, input.AllowedModules)
	if err != nil {
		return nil, err
	}

	role := Role{
		Name:        input.Name,
		BankId:      bankId,
		RoleModules: roleModules,
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&role).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, role.ID, "roles", role, "created role "+role.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := role.RemoveAllRedis(); err != nil {
		return nil, err
	}
	return &role, nil
}

// UpdateRole renames the role and replaces its module permissions.
func UpdateRole(ctx context.Context, id int, input *NewRole) (*Role, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	input.Name = strings.TrimSpace(input.Name)
	before, err := utils.FetchModel[Role](ctx, bankId, id, "RoleModules")
	if err != nil {
		return nil, err
	}
	// check duplicate
	if err := utils.ValidateUnique[Role](ctx, bankId, "name", input.Name, id); err != nil {
		return nil, err
	}
	roleModules, err := mapRoleModules(ctx, bankId, input.AllowedModules)
	if err != nil {
		return nil, err
	}
	for _, rm := range roleModules {
		rm.RoleId = id
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		// full replace
		if err := tx.Where("bank_id = ? AND role_id = ?", bankId, id).Delete(&RoleModule{}).Error; err != nil {
			return err
		}
		if len(roleModules) > 0 {
			if err := tx.Create(&roleModules).Error; err != nil {
				return err
			}
		}
		if err := tx.Model(&Role{}).Where("id = ? AND bank_id = ?", id, bankId).
			Update("name", input.Name).Error; err != nil {
			return err
		}
		after := Role{ID: id, BankId: bankId, Name: input.Name, RoleModules: roleModules}
		return SaveHistoryUpdate(tx, id, "roles", before, after, "updated role "+input.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := clearAllowedModulesCache(id); err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*before); err != nil {
		return nil, err
	}
	return GetRole(ctx, id)
}

func DeleteRole(ctx context.Context, id int) (*Role, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	result, err := utils.FetchModel[Role](ctx, bankId, id)
	if err != nil {
		return nil, err
	}

	// don't allow if a user is using the role
	count, err := utils.ResourceCountWhere[User](ctx, bankId, "role_id = ?", id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: role has been used", utils.ErrorInUse)
	}

	err = runInTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("bank_id = ? AND role_id = ?", bankId, id).Delete(&RoleModule{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(result).Error; err != nil {
			return err
		}
		return SaveHistoryDelete(tx, id, "roles", result, "deleted role "+result.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := clearAllowedModulesCache(id); err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*result); err != nil {
		return nil, err
	}
	return result, nil
}

func GetRole(ctx context.Context, id int) (*Role, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Role](ctx, bankId, id, "RoleModules", "RoleModules.Module")
}

func GetRoles(ctx context.Context) ([]*Role, error) {
	return ListAllResource[Role](ctx, "name")
}
