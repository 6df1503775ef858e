// loyaltyctl runs one-off admin jobs against the loyalty database.
//
// Usage:
//
//	DB_HOST=... DB_USER=... DB_PASSWORD=... DB_NAME=... loyaltyctl migrate
//	loyaltyctl seed tiers -f tiers.yaml --bank BANK01
//	loyaltyctl seed admin --bank BANK01 --username admin --password ...
//	loyaltyctl evaluate --bank BANK01
//	loyaltyctl export tier_distribution --bank BANK01 -o tiers.xlsx
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/spf13/cobra"
)

var (
	bankId   string
	useRedis bool
)

var rootCmd = &cobra.Command{
	Use:           "loyaltyctl",
	Short:         "Admin jobs for the loyalty backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.RequireEnv("DB_HOST"); err != nil {
			return err
		}
		config.ConnectDatabaseWithRetry()
		// keeps cached lists consistent with what the CLI writes
		if useRedis {
			config.ConnectRedisWithRetry()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&useRedis, "redis", os.Getenv("REDIS_ADDRESS") != "", "Connect to REDIS_ADDRESS to invalidate caches")
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(exportCmd)
}

func requireBank() error {
	if strings.TrimSpace(bankId) == "" {
		return fmt.Errorf("--bank is required")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
