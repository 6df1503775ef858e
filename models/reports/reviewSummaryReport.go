package reports

import (
	"context"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/shopspring/decimal"
)

type ReviewSummaryResponse struct {
	Total        int64            `json:"total"`
	ByStatus     map[string]int64 `json:"by_status"`
	Upgrades     int64            `json:"upgrades"`
	Downgrades   int64            `json:"downgrades"`
	ApprovalRate decimal.Decimal  `json:"approval_rate"`
}

type reviewCount struct {
	Status     string
	ChangeType string
	Count      int64
}

func GetReviewSummary(ctx context.Context, dateRange DateRange) (*ReviewSummaryResponse, error) {
	return cachedReport(ctx, "review_summary", dateRange.String(), func(ctx context.Context, bankId string) (*ReviewSummaryResponse, error) {
		q := config.GetDB().WithContext(ctx).Model(&models.TierReview{}).
			Select("status, change_type, COUNT(*) AS count").
			Where("bank_id = ?", bankId)
		if dateRange.From != nil {
			q = q.Where("created_at >= ?", *dateRange.From)
		}
		if end := dateRange.end(); end != nil {
			q = q.Where("created_at < ?", *end)
		}
		var counts []reviewCount
		if err := q.Group("status, change_type").Scan(&counts).Error; err != nil {
			return nil, err
		}
		return buildReviewSummary(counts), nil
	})
}

// approval rate is approved / (approved + rejected); pending reviews are not counted
func buildReviewSummary(counts []reviewCount) *ReviewSummaryResponse {
	resp := &ReviewSummaryResponse{ByStatus: map[string]int64{
		models.ReviewStatusPending:  0,
		models.ReviewStatusApproved: 0,
		models.ReviewStatusRejected: 0,
	}}
	for _, c := range counts {
		resp.Total += c.Count
		resp.ByStatus[c.Status] += c.Count
		switch c.ChangeType {
		case models.ChangeTypeUpgrade:
			resp.Upgrades += c.Count
		case models.ChangeTypeDowngrade:
			resp.Downgrades += c.Count
		}
	}
	approved := resp.ByStatus[models.ReviewStatusApproved]
	resp.ApprovalRate = utils.Percentage(approved, approved+resp.ByStatus[models.ReviewStatusRejected])
	return resp
}

func (r *ReviewSummaryResponse) sheetName() string { return "Review Summary" }

func (r *ReviewSummaryResponse) headers() []string {
	return []string{"Metric", "Value"}
}

func (r *ReviewSummaryResponse) rows() [][]interface{} {
	return [][]interface{}{
		{"Total reviews", r.Total},
		{"Pending", r.ByStatus[models.ReviewStatusPending]},
		{"Approved", r.ByStatus[models.ReviewStatusApproved]},
		{"Rejected", r.ByStatus[models.ReviewStatusRejected]},
		{"Upgrades", r.Upgrades},
		{"Downgrades", r.Downgrades},
		{"Approval rate %", r.ApprovalRate.InexactFloat64()},
	}
}
