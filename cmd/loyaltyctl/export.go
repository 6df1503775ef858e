package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mmdatafocus/loyalty_backend/models/reports"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <report>",
	Short: "Write a report to an xlsx file",
	Long: `Reports: tier_distribution, points_summary, benefit_redemptions,
review_summary, integration_status, branch_summary, dashboard.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBank(); err != nil {
			return err
		}
		ctx := utils.SystemContext(context.Background(), bankId)
		out := exportOutput
		if out == "" {
			out = args[0] + ".xlsx"
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := reports.WriteExcel(ctx, args[0], reports.DateRange{}, f); err != nil {
			f.Close()
			_ = os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", out)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&bankId, "bank", "", "Bank id")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default <report>.xlsx)")
}
