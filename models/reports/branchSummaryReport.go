package reports

import (
	"context"
	"sort"
	"strconv"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
)

type BranchSummaryRow struct {
	BranchId   int              `json:"branch_id"`
	BranchCode string           `json:"branch_code"`
	BranchName string           `json:"branch_name"`
	Region     string           `json:"region"`
	Customers  int64            `json:"customers"`
	ByTier     map[string]int64 `json:"by_tier"`
}

type BranchSummaryResponse struct {
	Branches []*BranchSummaryRow `json:"branches"`
}

type branchTierCount struct {
	BranchId int
	TierCode string
	Count    int64
}

func GetBranchSummary(ctx context.Context) (*BranchSummaryResponse, error) {
	return cachedReport(ctx, "branch_summary", "", func(ctx context.Context, bankId string) (*BranchSummaryResponse, error) {
		var counts []branchTierCount
		if err := config.GetDB().WithContext(ctx).Model(&models.CustomerTier{}).
			Select("branch_id, current_tier_code AS tier_code, COUNT(*) AS count").
			Where("bank_id = ?", bankId).
			Group("branch_id, current_tier_code").
			Scan(&counts).Error; err != nil {
			return nil, err
		}
		branches, err := models.GetBranches(ctx, "", "")
		if err != nil {
			return nil, err
		}
		return buildBranchSummary(branches, counts), nil
	})
}

// customers without a branch are reported under branch id 0
func buildBranchSummary(branches []*models.Branch, counts []branchTierCount) *BranchSummaryResponse {
	rows := make(map[int]*BranchSummaryRow, len(branches))
	for _, b := range branches {
		rows[b.ID] = &BranchSummaryRow{
			BranchId:   b.ID,
			BranchCode: b.Code,
			BranchName: b.Name,
			Region:     b.Region,
			ByTier:     map[string]int64{},
		}
	}
	for _, c := range counts {
		row, ok := rows[c.BranchId]
		if !ok {
			row = &BranchSummaryRow{BranchId: c.BranchId, BranchName: "Unassigned", ByTier: map[string]int64{}}
			rows[c.BranchId] = row
		}
		row.Customers += c.Count
		row.ByTier[c.TierCode] += c.Count
	}

	resp := &BranchSummaryResponse{Branches: make([]*BranchSummaryRow, 0, len(rows))}
	for _, row := range rows {
		resp.Branches = append(resp.Branches, row)
	}
	sort.Slice(resp.Branches, func(i, j int) bool {
		if resp.Branches[i].Customers != resp.Branches[j].Customers {
			return resp.Branches[i].Customers > resp.Branches[j].Customers
		}
		return resp.Branches[i].BranchName < resp.Branches[j].BranchName
	})
	return resp
}

func (r *BranchSummaryResponse) sheetName() string { return "Branch Summary" }

func (r *BranchSummaryResponse) headers() []string {
	return []string{"Branch Code", "Branch Name", "Region", "Customers", "Tiers"}
}

func (r *BranchSummaryResponse) rows() [][]interface{} {
	out := make([][]interface{}, 0, len(r.Branches))
	for _, b := range r.Branches {
		codes := make([]string, 0, len(b.ByTier))
		for code := range b.ByTier {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		tiers := ""
		for i, code := range codes {
			if i > 0 {
				tiers += ", "
			}
			tiers += code + "=" + strconv.FormatInt(b.ByTier[code], 10)
		}
		out = append(out, []interface{}{b.BranchCode, b.BranchName, b.Region, b.Customers, tiers})
	}
	return out
}
