package models

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
)

type RoleModule struct {
	BankId         string    `gorm:"index;size:64;not null" json:"bank_id"`
	RoleId         int       `gorm:"primary_key;autoIncrement:false;not null" json:"role_id"`
	ModuleId       int       `gorm:"primary_key;autoIncrement:false;not null" json:"module_id"`
	AllowedActions string    `gorm:"size:100;not null" json:"allowed_actions"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Module         *Module   `json:"module,omitempty"`
}

/*
cache
	AllowedModules:Role:$roleId
*/

func allowedModulesKey(roleId int) string {
	return "AllowedModules:Role:" + fmt.Sprint(roleId)
}

func clearAllowedModulesCache(roleId int) error {
	return config.RemoveRedisKey(allowedModulesKey(roleId))
}

// AllowedModules maps module name to the actions the role may perform.
// Actions not declared by the module are dropped.
func AllowedModules(ctx context.Context, roleId int) (map[string][]string, error) {
	var allowed map[string][]string
	exists, err := config.GetRedisObject(allowedModulesKey(roleId), &allowed)
	if err != nil {
		return nil, err
	}
	if exists {
		return allowed, nil
	}

	var roleModules []*RoleModule
	if err := config.GetDB().WithContext(ctx).
		Preload("Module").
		Where("role_id = ?", roleId).
		Find(&roleModules).Error; err != nil {
		return nil, err
	}

	allowed = make(map[string][]string)
	for _, rm := range roleModules {
		if rm.Module == nil {
			continue
		}
		validActions := extractModuleActions(rm.Module.Actions)
		for _, action := range extractModuleActions(rm.AllowedActions) {
			if slices.Contains(validActions, action) {
				allowed[rm.Module.Name] = append(allowed[rm.Module.Name], action)
			}
		}
	}

	if err := config.SetRedisObject(allowedModulesKey(roleId), &allowed, 0); err != nil {
		return nil, err
	}
	return allowed, nil
}

// CanAccess reports whether the role may perform action on module.
func CanAccess(ctx context.Context, roleId int, module string, action string) (bool, error) {
	allowed, err := AllowedModules(ctx, roleId)
	if err != nil {
		return false, err
	}
	return slices.Contains(allowed[module], action), nil
}
