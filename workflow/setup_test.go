package workflow

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

func openTestDB(t *testing.T) (context.Context, *gorm.DB) {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "workflow.db") + "?_busy_timeout=5000&_journal_mode=WAL"
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

	for _, tier := range []models.NewTierDefinition{
		{Code: "BRONZE", Name: "Bronze", MinScore: 0, MaxScore: 999, SortOrder: 1},
		{Code: "SILVER", Name: "Silver", MinScore: 1000, MaxScore: 4999, SortOrder: 2},
		{Code: "GOLD", Name: "Gold", MinScore: 5000, MaxScore: 100000, SortOrder: 3},
	} {
		tier := tier
		_, err := models.CreateTierDefinition(ctx, &tier)
		require.NoError(t, err)
	}
	return ctx, db
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
