package reports

import (
	"context"
	"sort"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/shopspring/decimal"
)

type TierDistributionRow struct {
	TierCode   string          `json:"tier_code"`
	TierName   string          `json:"tier_name"`
	Color      string          `json:"color"`
	Count      int64           `json:"count"`
	Percentage decimal.Decimal `json:"percentage"`
	Defined    bool            `json:"defined"`
}

type TierDistributionResponse struct {
	Total int64                  `json:"total"`
	Tiers []*TierDistributionRow `json:"tiers"`
}

type tierCount struct {
	TierCode string
	Count    int64
}

// GetTierDistribution counts customer records per tier. Every defined tier appears, even with zero
// customers; codes held by customers but missing a definition are listed after the defined tiers.
func GetTierDistribution(ctx context.Context) (*TierDistributionResponse, error) {
	return cachedReport(ctx, "tier_distribution", "", computeTierDistribution)
}

func computeTierDistribution(ctx context.Context, bankId string) (*TierDistributionResponse, error) {
	tiers, err := models.GetTierDefinitions(ctx)
	if err != nil {
		return nil, err
	}
	var counts []tierCount
	if err := config.GetDB().WithContext(ctx).Model(&models.CustomerTier{}).
		Select("current_tier_code AS tier_code, COUNT(*) AS count").
		Where("bank_id = ?", bankId).
		Group("current_tier_code").
		Scan(&counts).Error; err != nil {
		return nil, err
	}
	return buildTierDistribution(tiers, counts), nil
}

func buildTierDistribution(tiers []*models.TierDefinition, counts []tierCount) *TierDistributionResponse {
	byCode := make(map[string]int64, len(counts))
	var total int64
	for _, c := range counts {
		byCode[c.TierCode] += c.Count
		total += c.Count
	}

	resp := &TierDistributionResponse{Total: total, Tiers: make([]*TierDistributionRow, 0, len(tiers)+len(byCode))}
	seen := make(map[string]bool, len(tiers))
	for _, t := range tiers {
		seen[t.Code] = true
		resp.Tiers = append(resp.Tiers, &TierDistributionRow{
			TierCode: t.Code,
			TierName: t.Name,
			Color:    t.Color,
			Count:    byCode[t.Code],
			Defined:  true,
		})
	}
	var undefined []string
	for code := range byCode {
		if !seen[code] {
			undefined = append(undefined, code)
		}
	}
	sort.Strings(undefined)
	for _, code := range undefined {
		resp.Tiers = append(resp.Tiers, &TierDistributionRow{
			TierCode: code,
			TierName: code,
			Count:    byCode[code],
		})
	}
	for _, row := range resp.Tiers {
		row.Percentage = utils.Percentage(row.Count, total)
	}
	return resp
}

func (r *TierDistributionResponse) sheetName() string { return "Tier Distribution" }

func (r *TierDistributionResponse) headers() []string {
	return []string{"Tier Code", "Tier Name", "Customers", "Percentage"}
}

func (r *TierDistributionResponse) rows() [][]interface{} {
	out := make([][]interface{}, 0, len(r.Tiers)+1)
	for _, t := range r.Tiers {
		out = append(out, []interface{}{t.TierCode, t.TierName, t.Count, t.Percentage.InexactFloat64()})
	}
	out = append(out, []interface{}{"TOTAL", "", r.Total, 100.0})
	return out
}
