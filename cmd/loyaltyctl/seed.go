package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	tierFile      string
	adminUsername string
	adminName     string
	adminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed tier catalogues and admin users",
}

var seedTiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Create or update tier definitions from a YAML catalogue",
	Long: `Reads a catalogue like:

  tiers:
    - code: DIAMOND
      name: Diamond
      min_score: 900
      max_score: 1000
      color: "#b9f2ff"
      sort_order: 1

Existing codes are updated, new codes are created.`,
	RunE: runSeedTiers,
}

var seedAdminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Create the first admin user of a bank",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBank(); err != nil {
			return err
		}
		if adminPassword == "" {
			adminPassword = os.Getenv("ADMIN_PASSWORD")
		}
		if adminPassword == "" {
			return errors.New("--password or ADMIN_PASSWORD is required")
		}
		user, err := models.SeedAdmin(context.Background(), bankId, adminUsername, adminName, adminPassword)
		if err != nil {
			return err
		}
		fmt.Printf("admin user %q ready (id=%d bank=%s)\n", user.Username, user.ID, user.BankId)
		return nil
	},
}

func init() {
	seedCmd.PersistentFlags().StringVar(&bankId, "bank", "", "Bank id")
	seedTiersCmd.Flags().StringVarP(&tierFile, "file", "f", "", "Tier catalogue YAML")
	_ = seedTiersCmd.MarkFlagRequired("file")
	seedAdminCmd.Flags().StringVar(&adminUsername, "username", "admin", "Admin username")
	seedAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "Admin display name")
	seedAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Admin password (or ADMIN_PASSWORD)")
	seedCmd.AddCommand(seedTiersCmd)
	seedCmd.AddCommand(seedAdminCmd)
}

type tierCatalogue struct {
	Tiers []models.NewTierDefinition `yaml:"tiers"`
}

func loadTierCatalogue(r io.Reader) ([]models.NewTierDefinition, error) {
	var catalogue tierCatalogue
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&catalogue); err != nil {
		return nil, fmt.Errorf("parse tier catalogue: %w", err)
	}
	if len(catalogue.Tiers) == 0 {
		return nil, errors.New("tier catalogue has no tiers")
	}
	seen := make(map[string]bool, len(catalogue.Tiers))
	for i := range catalogue.Tiers {
		code := utils.NormalizeCode(catalogue.Tiers[i].Code)
		if seen[code] {
			return nil, fmt.Errorf("tier %s is listed twice", code)
		}
		seen[code] = true
		catalogue.Tiers[i].Code = code
	}
	return catalogue.Tiers, nil
}

func runSeedTiers(cmd *cobra.Command, args []string) error {
	if err := requireBank(); err != nil {
		return err
	}
	f, err := os.Open(tierFile)
	if err != nil {
		return err
	}
	defer f.Close()
	tiers, err := loadTierCatalogue(f)
	if err != nil {
		return err
	}

	ctx := utils.SystemContext(context.Background(), bankId)
	for i := range tiers {
		input := tiers[i]
		existing, err := models.GetTierDefinitionByCode(ctx, input.Code)
		switch {
		case err == nil:
			if _, err := models.UpdateTierDefinition(ctx, existing.ID, &input); err != nil {
				return fmt.Errorf("update %s: %w", input.Code, err)
			}
			fmt.Printf("updated %s\n", input.Code)
		case errors.Is(err, utils.ErrorRecordNotFound):
			if _, err := models.CreateTierDefinition(ctx, &input); err != nil {
				return fmt.Errorf("create %s: %w", input.Code, err)
			}
			fmt.Printf("created %s\n", input.Code)
		default:
			return err
		}
	}
	return nil
}
