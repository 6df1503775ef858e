package main

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/mmdatafocus/loyalty_backend/workflow"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Re-score a bank's customers and open reviews for tier changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireBank(); err != nil {
			return err
		}
		logger := config.GetLogger()
		var temporalClient client.Client
		if config.TemporalReviewsEnabled() {
			c, err := config.DialTemporal()
			if err != nil {
				return fmt.Errorf("dial temporal: %w", err)
			}
			defer c.Close()
			temporalClient = c
		}

		ctx := utils.SystemContext(context.Background(), bankId)
		evaluator := workflow.NewTierEvaluator(logger, workflow.NewReviewCoordinator(temporalClient))
		task, summary, err := evaluator.Evaluate(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("task %d: %s\n", task.ID, summary)
		return nil
	},
}

func init() {
	evaluateCmd.Flags().StringVar(&bankId, "bank", "", "Bank id")
}
