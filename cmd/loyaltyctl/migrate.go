package main

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run AutoMigrate and seed the permission modules",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := models.Migrate(context.Background(), config.GetDB()); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Println("migrations applied")
		return nil
	},
}
