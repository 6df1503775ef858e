package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	ApiStatusHealthy  = "healthy"
	ApiStatusDegraded = "degraded"
	ApiStatusDown     = "down"
)

var (
	downSuccessRate      = decimal.NewFromInt(50)
	degradedSuccessRate  = decimal.NewFromInt(95)
	degradedResponseTime = 1000
)

type ApiMetric struct {
	ID             int             `gorm:"primary_key" json:"id"`
	BankId         string          `gorm:"uniqueIndex:idx_api_metric;size:64;not null" json:"bank_id"`
	SystemName     string          `gorm:"uniqueIndex:idx_api_metric;size:100;not null" json:"system_name"`
	Endpoint       string          `gorm:"uniqueIndex:idx_api_metric;size:255;not null" json:"endpoint"`
	Status         string          `gorm:"index;size:10;not null" json:"status"`
	ResponseTimeMs int             `gorm:"not null;default:0" json:"response_time_ms"`
	SuccessRate    decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"success_rate"`
	RequestsTotal  int64           `gorm:"not null;default:0" json:"requests_total"`
	ErrorsTotal    int64           `gorm:"not null;default:0" json:"errors_total"`
	LastCheckedAt  time.Time       `gorm:"not null" json:"last_checked_at"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewApiMetric struct {
	SystemName     string           `json:"system_name" binding:"required"`
	Endpoint       string           `json:"endpoint" binding:"required"`
	Status         string           `json:"status"`
	ResponseTimeMs int              `json:"response_time_ms" binding:"min=0"`
	SuccessRate    *decimal.Decimal `json:"success_rate"`
	RequestsTotal  int64            `json:"requests_total" binding:"min=0"`
	ErrorsTotal    int64            `json:"errors_total" binding:"min=0"`
}

type ApiMetricFilter struct {
	Status     string `form:"status"`
	SystemName string `form:"system_name"`
	Search     string `form:"search"`
	PageInput
}

func (m ApiMetric) GetBankId() string {
	return m.BankId
}

// DeriveApiStatus applies the health thresholds.
func DeriveApiStatus(successRate decimal.Decimal, responseTimeMs int) string {
	if successRate.LessThan(downSuccessRate) {
		return ApiStatusDown
	}
	if successRate.LessThan(degradedSuccessRate) || responseTimeMs > degradedResponseTime {
		return ApiStatusDegraded
	}
	return ApiStatusHealthy
}

// RecordMetric upserts by system name and endpoint.
func RecordMetric(ctx context.Context, input *NewApiMetric) (*ApiMetric, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	input.SystemName = strings.TrimSpace(input.SystemName)
	input.Endpoint = strings.TrimSpace(input.Endpoint)
	if input.SystemName == "" {
		return nil, utils.NewValidationError("system_name", "is required")
	}
	if input.Endpoint == "" {
		return nil, utils.NewValidationError("endpoint", "is required")
	}
	if input.ErrorsTotal > input.RequestsTotal {
		return nil, utils.NewValidationError("errors_total", "must not exceed requests_total")
	}

	var rate decimal.Decimal
	if input.SuccessRate != nil {
		rate = input.SuccessRate.Round(2)
		if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
			return nil, utils.NewValidationError("success_rate", "must be between 0 and 100")
		}
	} else if input.RequestsTotal > 0 {
		rate = utils.Percentage(input.RequestsTotal-input.ErrorsTotal, input.RequestsTotal)
	} else {
		rate = decimal.NewFromInt(100)
	}

	status := input.Status
	switch status {
	case "":
		status = DeriveApiStatus(rate, input.ResponseTimeMs)
	case ApiStatusHealthy, ApiStatusDegraded, ApiStatusDown:
	default:
		return nil, utils.NewValidationError("status", "must be healthy, degraded or down")
	}

	metric := ApiMetric{
		BankId:         bankId,
		SystemName:     input.SystemName,
		Endpoint:       input.Endpoint,
		Status:         status,
		ResponseTimeMs: input.ResponseTimeMs,
		SuccessRate:    rate,
		RequestsTotal:  input.RequestsTotal,
		ErrorsTotal:    input.ErrorsTotal,
		LastCheckedAt:  time.Now(),
	}
	err = runInTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "bank_id"}, {Name: "system_name"}, {Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "response_time_ms", "success_rate", "requests_total", "errors_total", "last_checked_at", "updated_at",
			}),
		}).Create(&metric).Error
	})
	if err != nil {
		return nil, err
	}

	var stored ApiMetric
	if err := config.GetDB().WithContext(ctx).
		Where("bank_id = ? AND system_name = ? AND endpoint = ?", bankId, metric.SystemName, metric.Endpoint).
		First(&stored).Error; err != nil {
		return nil, notFound(err)
	}
	return &stored, nil
}

func GetApiMetric(ctx context.Context, id int) (*ApiMetric, error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[ApiMetric](ctx, bankId, id)
}

func ListApiMetrics(ctx context.Context, filter *ApiMetricFilter) (*Page[ApiMetric], error) {
	bankId, err := requireBankId(ctx)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = &ApiMetricFilter{}
	}
	dbCtx := config.GetDB().WithContext(ctx).Model(&ApiMetric{}).Where("bank_id = ?", bankId)
	if !allFilter(filter.Status) {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if !allFilter(filter.SystemName) {
		dbCtx = dbCtx.Where("system_name = ?", filter.SystemName)
	}
	if !utils.IsBlank(filter.Search) {
		pattern := likePattern(filter.Search)
		dbCtx = dbCtx.Where("LOWER(system_name) LIKE ? OR LOWER(endpoint) LIKE ?", pattern, pattern)
	}
	return paginate[ApiMetric](dbCtx, filter.PageInput, "system_name, endpoint")
}
