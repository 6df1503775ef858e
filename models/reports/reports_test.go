package reports

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestBuildTierDistribution(t *testing.T) {
	tiers := []*models.TierDefinition{
		{Code: "BRONZE", Name: "Bronze"},
		{Code: "SILVER", Name: "Silver"},
		{Code: "GOLD", Name: "Gold"},
	}
	counts := []tierCount{
		{TierCode: "BRONZE", Count: 4},
		{TierCode: "GOLD", Count: 2},
		{TierCode: "LEGACY", Count: 2},
	}
	resp := buildTierDistribution(tiers, counts)

	assert.EqualValues(t, 8, resp.Total)
	got := make([]string, 0, len(resp.Tiers))
	var sum int64
	pct := decimal.Zero
	for _, row := range resp.Tiers {
		got = append(got, row.TierCode)
		sum += row.Count
		pct = pct.Add(row.Percentage)
	}
	// defined tiers first, in definition order, then undefined codes
	if diff := cmp.Diff([]string{"BRONZE", "SILVER", "GOLD", "LEGACY"}, got); diff != "" {
		t.Fatalf("tier order (-want +got):\n%s", diff)
	}
	assert.Equal(t, resp.Total, sum)
	assert.True(t, pct.Equal(decimal.NewFromInt(100)), pct.String())
	assert.EqualValues(t, 0, resp.Tiers[1].Count)
	assert.False(t, resp.Tiers[3].Defined)
}

func TestBuildTierDistributionEmpty(t *testing.T) {
	resp := buildTierDistribution([]*models.TierDefinition{{Code: "BRONZE"}}, nil)
	assert.EqualValues(t, 0, resp.Total)
	require.Len(t, resp.Tiers, 1)
	assert.True(t, resp.Tiers[0].Percentage.IsZero())
}

func TestBuildReviewSummary(t *testing.T) {
	resp := buildReviewSummary([]reviewCount{
		{Status: models.ReviewStatusApproved, ChangeType: models.ChangeTypeUpgrade, Count: 3},
		{Status: models.ReviewStatusRejected, ChangeType: models.ChangeTypeDowngrade, Count: 1},
		{Status: models.ReviewStatusPending, ChangeType: models.ChangeTypeUpgrade, Count: 5},
	})
	assert.EqualValues(t, 9, resp.Total)
	assert.EqualValues(t, 8, resp.Upgrades)
	assert.EqualValues(t, 1, resp.Downgrades)
	assert.True(t, resp.ApprovalRate.Equal(decimal.NewFromInt(75)), resp.ApprovalRate.String())

	empty := buildReviewSummary(nil)
	assert.True(t, empty.ApprovalRate.IsZero())
	assert.EqualValues(t, 0, empty.ByStatus[models.ReviewStatusPending])
}

func TestBuildIntegrationStatus(t *testing.T) {
	resp := buildIntegrationStatus([]*models.ApiMetric{
		{SystemName: "core", Status: models.ApiStatusHealthy, ResponseTimeMs: 100},
		{SystemName: "crm", Status: models.ApiStatusDown, ResponseTimeMs: 301},
	})
	assert.EqualValues(t, 2, resp.Total)
	assert.EqualValues(t, 1, resp.ByStatus[models.ApiStatusDown])
	assert.EqualValues(t, 0, resp.ByStatus[models.ApiStatusDegraded])
	assert.True(t, resp.AvgResponseTimeMs.Equal(decimal.RequireFromString("200.5")), resp.AvgResponseTimeMs.String())
}

func TestBuildBranchSummaryUnassigned(t *testing.T) {
	branches := []*models.Branch{{ID: 1, Code: "YGN01", Name: "Yangon Main"}, {ID: 2, Code: "MDY01", Name: "Mandalay"}}
	resp := buildBranchSummary(branches, []branchTierCount{
		{BranchId: 1, TierCode: "GOLD", Count: 2},
		{BranchId: 1, TierCode: "BRONZE", Count: 3},
		{BranchId: 0, TierCode: "BRONZE", Count: 1},
	})
	require.Len(t, resp.Branches, 3)
	assert.Equal(t, "Yangon Main", resp.Branches[0].BranchName)
	assert.EqualValues(t, 5, resp.Branches[0].Customers)
	assert.EqualValues(t, 2, resp.Branches[0].ByTier["GOLD"])
	assert.Equal(t, "Unassigned", resp.Branches[1].BranchName)
	assert.EqualValues(t, 0, resp.Branches[2].Customers)
}

func TestDateRangeEndIsExclusive(t *testing.T) {
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	r := DateRange{To: &to}
	require.NotNil(t, r.end())
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *r.end())
	assert.Equal(t, "-_2024-03-31", r.String())
}

func TestWriteExcelDashboard(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "reports.db") + "?_busy_timeout=5000&_journal_mode=WAL"
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	require.NoError(t, err)
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(nil) })

	ctx := utils.SystemContext(context.Background(), "BANK01")
	require.NoError(t, models.Migrate(ctx, db))
	_, err = models.CreateTierDefinition(ctx, &models.NewTierDefinition{Code: "BRONZE", Name: "Bronze", MaxScore: 999})
	require.NoError(t, err)
	_, err = models.CreateCustomerTier(ctx, &models.NewCustomerTier{CustomerId: "C1", CustomerName: "One", Score: 5})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteExcel(ctx, ReportDashboard, DateRange{}, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	want := []string{"Tier Distribution", "Points Summary", "Benefit Redemptions", "Review Summary", "Integration Status", "Branch Summary"}
	for _, sheet := range want {
		idx, err := f.GetSheetIndex(sheet)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, idx, 0, sheet)
	}
	total, err := f.GetCellValue("Tier Distribution", "C2")
	require.NoError(t, err)
	assert.Equal(t, "1", total)

	err = WriteExcel(ctx, "unknown", DateRange{}, &buf)
	var validationErr *utils.ValidationError
	require.ErrorAs(t, err, &validationErr)
}
