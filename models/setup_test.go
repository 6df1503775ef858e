package models_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testBank = "BANK01"

// openTestDB points the global handle at a fresh sqlite file and migrates it.
// Redis stays unset, so caches and locks are no-ops.
func openTestDB(t *testing.T) context.Context {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "loyalty.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	require.NoError(t, err)
	require.NoError(t, config.InstallPlugins(db))
	config.SetDB(db)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		config.SetDB(nil)
	})

	ctx := utils.SystemContext(context.Background(), testBank)
	require.NoError(t, models.Migrate(ctx, db))
	return ctx
}

// asUser returns ctx acting as a named reviewer.
func asUser(ctx context.Context, id int, name string) context.Context {
	ctx = utils.SetUserIdInContext(ctx, id)
	return utils.SetUserNameInContext(ctx, name)
}

func seedTiers(t *testing.T, ctx context.Context) map[string]*models.TierDefinition {
	t.Helper()
	inputs := []models.NewTierDefinition{
		{Code: "bronze", Name: "Bronze", MinScore: 0, MaxScore: 999, SortOrder: 1},
		{Code: "silver", Name: "Silver", MinScore: 1000, MaxScore: 4999, SortOrder: 2},
		{Code: "gold", Name: "Gold", MinScore: 5000, MaxScore: 100000, SortOrder: 3},
	}
	tiers := make(map[string]*models.TierDefinition, len(inputs))
	for i := range inputs {
		tier, err := models.CreateTierDefinition(ctx, &inputs[i])
		require.NoError(t, err)
		tiers[tier.Code] = tier
	}
	return tiers
}

func seedCustomer(t *testing.T, ctx context.Context, customerId string, score int) *models.CustomerTier {
	t.Helper()
	customer, err := models.CreateCustomerTier(ctx, &models.NewCustomerTier{
		CustomerId:   customerId,
		CustomerName: "Customer " + customerId,
		Score:        score,
	})
	require.NoError(t, err)
	return customer
}
