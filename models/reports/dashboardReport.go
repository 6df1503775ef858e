package reports

import (
	"context"
	"time"

	"github.com/mmdatafocus/loyalty_backend/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("loyalty-backend/reports")

type DashboardOverview struct {
	TotalCustomers    int64                      `json:"total_customers"`
	PendingReviews    int64                      `json:"pending_reviews"`
	TierDistribution  *TierDistributionResponse  `json:"tier_distribution"`
	PointsSummary     *PointsSummaryResponse     `json:"points_summary"`
	BenefitRedemption *BenefitRedemptionResponse `json:"benefit_redemption"`
	ReviewSummary     *ReviewSummaryResponse     `json:"review_summary"`
	IntegrationStatus *IntegrationStatusResponse `json:"integration_status"`
	BranchSummary     *BranchSummaryResponse     `json:"branch_summary"`
	GeneratedAt       time.Time                  `json:"generated_at"`
}

// traced runs fn inside a child span named after the report.
func traced(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "report."+name)
	defer span.End()
	if err := fn(ctx); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// GetDashboardOverview gathers every roll-up concurrently; the first error cancels the rest.
func GetDashboardOverview(ctx context.Context, dateRange DateRange) (*DashboardOverview, error) {
	ctx, span := tracer.Start(ctx, "report.dashboard_overview")
	defer span.End()

	overview := DashboardOverview{GeneratedAt: time.Now()}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return traced(gctx, "tier_distribution", func(ctx context.Context) (err error) {
			overview.TierDistribution, err = GetTierDistribution(ctx)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, "points_summary", func(ctx context.Context) (err error) {
			overview.PointsSummary, err = GetPointsSummary(ctx, dateRange)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, "benefit_redemptions", func(ctx context.Context) (err error) {
			overview.BenefitRedemption, err = GetBenefitRedemptionStats(ctx, dateRange)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, "review_summary", func(ctx context.Context) (err error) {
			overview.ReviewSummary, err = GetReviewSummary(ctx, dateRange)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, "integration_status", func(ctx context.Context) (err error) {
			overview.IntegrationStatus, err = GetIntegrationStatus(ctx)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, "branch_summary", func(ctx context.Context) (err error) {
			overview.BranchSummary, err = GetBranchSummary(ctx)
			return err
		})
	})
	g.Go(func() error {
		return traced(gctx, "pending_reviews", func(ctx context.Context) (err error) {
			page, err := models.ListTierReviews(ctx, &models.TierReviewFilter{
				Status:    models.ReviewStatusPending,
				PageInput: models.PageInput{Page: 1, PageSize: 1},
			})
			if err != nil {
				return err
			}
			overview.PendingReviews = page.Total
			return nil
		})
	})

	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	overview.TotalCustomers = overview.TierDistribution.Total
	span.SetAttributes(attribute.Int64("customers", overview.TotalCustomers))
	return &overview, nil
}
