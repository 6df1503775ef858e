package reports

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/xuri/excelize/v2"
)

const XlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// report names accepted by Export
const (
	ReportTierDistribution  = "tier_distribution"
	ReportPointsSummary     = "points_summary"
	ReportBenefitRedemption = "benefit_redemptions"
	ReportReviewSummary     = "review_summary"
	ReportIntegrationStatus = "integration_status"
	ReportBranchSummary     = "branch_summary"
	ReportDashboard         = "dashboard"
)

type ExcelExporter interface {
	sheetName() string
	headers() []string
	rows() [][]interface{}
}

// ExportResult is either an xlsx body or, when uploaded, a signed download URL.
type ExportResult struct {
	Filename string `json:"filename"`
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"-"`
}

func loadExporters(ctx context.Context, report string, dateRange DateRange) ([]ExcelExporter, error) {
	switch report {
	case ReportTierDistribution:
		r, err := GetTierDistribution(ctx)
		return []ExcelExporter{r}, err
	case ReportPointsSummary:
		r, err := GetPointsSummary(ctx, dateRange)
		return []ExcelExporter{r}, err
	case ReportBenefitRedemption:
		r, err := GetBenefitRedemptionStats(ctx, dateRange)
		return []ExcelExporter{r}, err
	case ReportReviewSummary:
		r, err := GetReviewSummary(ctx, dateRange)
		return []ExcelExporter{r}, err
	case ReportIntegrationStatus:
		r, err := GetIntegrationStatus(ctx)
		return []ExcelExporter{r}, err
	case ReportBranchSummary:
		r, err := GetBranchSummary(ctx)
		return []ExcelExporter{r}, err
	case ReportDashboard:
		o, err := GetDashboardOverview(ctx, dateRange)
		if err != nil {
			return nil, err
		}
		return []ExcelExporter{
			o.TierDistribution, o.PointsSummary, o.BenefitRedemption,
			o.ReviewSummary, o.IntegrationStatus, o.BranchSummary,
		}, nil
	}
	return nil, utils.NewValidationError("report", "unknown report "+report)
}

func writeSheet(f *excelize.File, e ExcelExporter) error {
	name := e.sheetName()
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	for i, h := range e.headers() {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(name, cell, h); err != nil {
			return err
		}
		if err := f.SetCellStyle(name, cell, cell, headerStyle); err != nil {
			return err
		}
	}
	for r, row := range e.rows() {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(name, cell, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteExcel renders the named report as an xlsx workbook into w.
func WriteExcel(ctx context.Context, report string, dateRange DateRange, w io.Writer) error {
	exporters, err := loadExporters(ctx, report, dateRange)
	if err != nil {
		return err
	}
	f := excelize.NewFile()
	defer f.Close()
	for _, e := range exporters {
		if err := writeSheet(f, e); err != nil {
			return err
		}
	}
	// drop the default sheet once the report sheets exist
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func exportFilename(report string) string {
	return fmt.Sprintf("%s_%s.xlsx", report, time.Now().Format("20060102_150405"))
}

// Export renders the report and, when EXPORT_BUCKET is set, uploads it and returns a signed URL.
func Export(ctx context.Context, report string, dateRange DateRange) (*ExportResult, error) {
	bankId, ok := utils.GetBankIdFromContext(ctx)
	if !ok || bankId == "" {
		return nil, utils.ErrorBankIdRequired
	}
	var buf bytes.Buffer
	if err := WriteExcel(ctx, report, dateRange, &buf); err != nil {
		return nil, err
	}
	result := &ExportResult{Filename: exportFilename(report)}

	bucket := os.Getenv("EXPORT_BUCKET")
	if bucket == "" {
		result.Data = buf.Bytes()
		return result, nil
	}
	store, err := utils.NewObjectStorage(bucket)
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("exports/%s/%s", bankId, result.Filename)
	if _, err := store.Put(ctx, key, XlsxContentType, buf.Bytes()); err != nil {
		return nil, err
	}
	url, err := store.SignedURL(ctx, key, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	result.URL = url
	return result, nil
}
