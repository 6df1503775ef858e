package models

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"gorm.io/gorm/clause"
)

const (
	ActionRead    = "read"
	ActionWrite   = "write"
	ActionApprove = "approve"
)

// permission modules known to the dashboard, seeded by MigrateTable
const (
	ModuleTierDefinitions = "tier_definitions"
	ModuleCustomers       = "customers"
	ModuleReviews         = "reviews"
	ModuleBenefits        = "benefits"
	ModuleNotifications   = "notifications"
	ModuleParameters      = "parameters"
	ModuleBranches        = "branches"
	ModuleTasks           = "tasks"
	ModuleApprovals       = "approvals"
	ModuleApiMetrics      = "api_metrics"
	ModulePoints          = "points"
	ModuleReports         = "reports"
	ModuleUsers           = "users"
	ModuleRoles           = "roles"
)

var defaultModules = map[string]string{
	ModuleTierDefinitions: "read;write",
	ModuleCustomers:       "read;write",
	ModuleReviews:         "read;write;approve",
	ModuleBenefits:        "read;write",
	ModuleNotifications:   "read;write",
	ModuleParameters:      "read;write",
	ModuleBranches:        "read;write",
	ModuleTasks:           "read;write",
	ModuleApprovals:       "read;write;approve",
	ModuleApiMetrics:      "read;write",
	ModulePoints:          "read;write;approve",
	ModuleReports:         "read",
	ModuleUsers:           "read;write",
	ModuleRoles:           "read;write",
}

type Module struct {
	ID        int       `gorm:"primary_key" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:100;not null" json:"name"`
	Actions   string    `gorm:"size:100;not null" json:"actions"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

/*
cache
	ModuleList:
*/

// extractModuleActions splits "read;write" into lower-case actions, keeping their order.
func extractModuleActions(s string) []string {
	actions := utils.SplitCodes(s)
	for i, a := range actions {
		actions[i] = strings.ToLower(a)
	}
	return actions
}

// SeedModules inserts missing modules and refreshes their action lists.
func SeedModules(ctx context.Context) error {
	db := config.GetDB()
	for name, actions := range defaultModules {
		module := Module{Name: name, Actions: actions}
		err := db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"actions", "updated_at"}),
		}).Create(&module).Error
		if err != nil {
			return err
		}
	}
	return config.RemoveRedisKey("ModuleList:")
}

func GetModules(ctx context.Context) ([]*Module, error) {
	var results []*Module
	exists, err := config.GetRedisObject("ModuleList:", &results)
	if err != nil {
		return nil, err
	}
	if exists {
		return results, nil
	}
	if err := config.GetDB().WithContext(ctx).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	if err := config.SetRedisObject("ModuleList:", &results, 0); err != nil {
		return nil, err
	}
	return results, nil
}

func GetModule(ctx context.Context, id int) (*Module, error) {
	modules, err := GetModules(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, utils.ErrorRecordNotFound
}

func moduleByName(ctx context.Context, name string) (*Module, error) {
	modules, err := GetModules(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, errors.New("module " + name + " not found")
}
