package reports

import (
	"context"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/models"
	"github.com/shopspring/decimal"
)

type IntegrationStatusResponse struct {
	Total             int64               `json:"total"`
	ByStatus          map[string]int64    `json:"by_status"`
	AvgResponseTimeMs decimal.Decimal     `json:"avg_response_time_ms"`
	Systems           []*models.ApiMetric `json:"systems"`
}

func GetIntegrationStatus(ctx context.Context) (*IntegrationStatusResponse, error) {
	return cachedReport(ctx, "integration_status", "", func(ctx context.Context, bankId string) (*IntegrationStatusResponse, error) {
		var metrics []*models.ApiMetric
		if err := config.GetDB().WithContext(ctx).
			Where("bank_id = ?", bankId).
			Order("system_name, endpoint").
			Find(&metrics).Error; err != nil {
			return nil, err
		}
		return buildIntegrationStatus(metrics), nil
	})
}

func buildIntegrationStatus(metrics []*models.ApiMetric) *IntegrationStatusResponse {
	resp := &IntegrationStatusResponse{
		ByStatus: map[string]int64{
			models.ApiStatusHealthy:  0,
			models.ApiStatusDegraded: 0,
			models.ApiStatusDown:     0,
		},
		Systems: metrics,
	}
	var totalMs int64
	for _, m := range metrics {
		resp.Total++
		resp.ByStatus[m.Status]++
		totalMs += int64(m.ResponseTimeMs)
	}
	if resp.Total > 0 {
		resp.AvgResponseTimeMs = decimal.NewFromInt(totalMs).Div(decimal.NewFromInt(resp.Total)).Round(2)
	}
	return resp
}

func (r *IntegrationStatusResponse) sheetName() string { return "Integration Status" }

func (r *IntegrationStatusResponse) headers() []string {
	return []string{"System", "Endpoint", "Status", "Response Time (ms)", "Success Rate %", "Last Checked"}
}

func (r *IntegrationStatusResponse) rows() [][]interface{} {
	out := make([][]interface{}, 0, len(r.Systems))
	for _, m := range r.Systems {
		out = append(out, []interface{}{
			m.SystemName, m.Endpoint, m.Status, m.ResponseTimeMs, m.SuccessRate.InexactFloat64(), m.LastCheckedAt,
		})
	}
	return out
}
