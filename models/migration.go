package models

import (
	"context"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AllModels lists every table owned by the service.
func AllModels() []interface{} {
	return []interface{}{
		&ApiMetric{}, &Approval{},
		&Benefit{}, &BenefitRedemption{}, &Branch{},
		&CustomerTier{},
		&History{},
		&Module{},
		&Notification{},
		&OutboxEvent{},
		&Parameter{}, &PointsAccount{}, &PointsLedgerEntry{}, &PointsTransfer{},
		&Role{}, &RoleModule{},
		&Task{}, &TierDefinition{}, &TierReview{},
		&User{},
	}
}

// Migrate runs AutoMigrate on db and seeds the permission modules.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(AllModels()...); err != nil {
		return err
	}
	return SeedModules(ctx)
}

func MigrateTable() {
	if err := Migrate(context.Background(), config.GetDB()); err != nil {
		logger := config.GetLogger()
		logger.WithFields(logrus.Fields{"field": "migrations"}).Fatal(err)
	}
}
