package reports

import (
	"context"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"gorm.io/gorm"
)

type BenefitRedemptionRow struct {
	BenefitId   int    `json:"benefit_id"`
	BenefitCode string `json:"benefit_code"`
	BenefitName string `json:"benefit_name"`
	Redemptions int64  `json:"redemptions"`
	PointsUsed  int64  `json:"points_used"`
}

type TierRedemptionRow struct {
	TierCode    string `json:"tier_code"`
	Redemptions int64  `json:"redemptions"`
	PointsUsed  int64  `json:"points_used"`
}

type BenefitRedemptionResponse struct {
	TotalRedemptions int64                   `json:"total_redemptions"`
	TotalPointsUsed  int64                   `json:"total_points_used"`
	ByBenefit        []*BenefitRedemptionRow `json:"by_benefit"`
	ByTier           []*TierRedemptionRow    `json:"by_tier"`
}

func GetBenefitRedemptionStats(ctx context.Context, dateRange DateRange) (*BenefitRedemptionResponse, error) {
	return cachedReport(ctx, "benefit_redemptions", dateRange.String(), func(ctx context.Context, bankId string) (*BenefitRedemptionResponse, error) {
		base := func() *gorm.DB {
			q := config.GetDB().WithContext(ctx).Model(&models.BenefitRedemption{}).
				Where("bank_id = ? AND status = ?", bankId, models.RedemptionStatusCompleted)
			if dateRange.From != nil {
				q = q.Where("redeemed_at >= ?", *dateRange.From)
			}
			if end := dateRange.end(); end != nil {
				q = q.Where("redeemed_at < ?", *end)
			}
			return q
		}

		var resp BenefitRedemptionResponse
		if err := base().
			Select("benefit_id, COUNT(*) AS redemptions, COALESCE(SUM(points_used), 0) AS points_used").
			Group("benefit_id").Order("redemptions DESC").
			Scan(&resp.ByBenefit).Error; err != nil {
			return nil, err
		}
		if err := base().
			Select("tier_code, COUNT(*) AS redemptions, COALESCE(SUM(points_used), 0) AS points_used").
			Group("tier_code").Order("tier_code").
			Scan(&resp.ByTier).Error; err != nil {
			return nil, err
		}

		benefits, err := models.GetBenefits(ctx, nil)
		if err != nil {
			return nil, err
		}
		names := make(map[int]*models.Benefit, len(benefits))
		for _, b := range benefits {
			names[b.ID] = b
		}
		for _, row := range resp.ByBenefit {
			if b, ok := names[row.BenefitId]; ok {
				row.BenefitCode = b.Code
				row.BenefitName = b.Name
			}
			resp.TotalRedemptions += row.Redemptions
			resp.TotalPointsUsed += row.PointsUsed
		}
		return &resp, nil
	})
}

func (r *BenefitRedemptionResponse) sheetName() string { return "Benefit Redemptions" }

func (r *BenefitRedemptionResponse) headers() []string {
	return []string{"Group", "Code", "Name", "Redemptions", "Points Used"}
}

func (r *BenefitRedemptionResponse) rows() [][]interface{} {
	out := make([][]interface{}, 0, len(r.ByBenefit)+len(r.ByTier)+1)
	for _, b := range r.ByBenefit {
		out = append(out, []interface{}{"benefit", b.BenefitCode, b.BenefitName, b.Redemptions, b.PointsUsed})
	}
	for _, t := range r.ByTier {
		out = append(out, []interface{}{"tier", t.TierCode, "", t.Redemptions, t.PointsUsed})
	}
	out = append(out, []interface{}{"TOTAL", "", "", r.TotalRedemptions, r.TotalPointsUsed})
	return out
}
