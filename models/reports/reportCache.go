package reports

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/loyalty_backend/config"
	"github.com/mmdatafocus/loyalty_backend/utils"
	"github.com/sirupsen/logrus"
)

func reportCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_REPORT_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func reportCacheTTL() time.Duration {
	// Env: REPORT_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("REPORT_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func reportSlowMs() int64 {
	// Env: REPORT_SLOW_MS (default 500ms)
	ms := int64(500)
	if v := strings.TrimSpace(os.Getenv("REPORT_SLOW_MS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			ms = n
		}
	}
	return ms
}

func logSlowReport(ctx context.Context, name string, started time.Time, extra map[string]any) {
	d := time.Since(started)
	if d.Milliseconds() < reportSlowMs() {
		return
	}
	bankId, _ := utils.GetBankIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"field":          "slow_report",
		"report":         name,
		"ms":             d.Milliseconds(),
		"bank_id":        bankId,
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow report")
}

func reportCacheKey(bankId string, name string, params string) string {
	return fmt.Sprintf("Report:%s:%s:%s", bankId, name, params)
}

// cachedReport serves a report from redis when ENABLE_REPORT_CACHE is set, else computes it.
func cachedReport[T any](ctx context.Context, name string, params string, compute func(ctx context.Context, bankId string) (*T, error)) (*T, error) {
	bankId, ok := utils.GetBankIdFromContext(ctx)
	if !ok || bankId == "" {
		return nil, utils.ErrorBankIdRequired
	}
	key := reportCacheKey(bankId, name, params)
	if reportCacheEnabled() {
		var cached T
		found, err := config.GetRedisObject(key, &cached)
		if err != nil {
			return nil, err
		}
		if found {
			return &cached, nil
		}
	}

	started := time.Now()
	result, err := compute(ctx, bankId)
	if err != nil {
		return nil, err
	}
	logSlowReport(ctx, name, started, map[string]any{"params": params})

	if reportCacheEnabled() {
		if err := config.SetRedisObject(key, result, reportCacheTTL()); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// InvalidateReports drops all cached reports of a bank.
func InvalidateReports(ctx context.Context, bankId string) error {
	return config.RemoveRedisPattern(ctx, fmt.Sprintf("Report:%s:*", bankId))
}

// DateRange bounds a report by created/decided date. Zero values mean unbounded.
type DateRange struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

func (r DateRange) String() string {
	f, t := "-", "-"
	if r.From != nil {
		f = r.From.Format("2006-01-02")
	}
	if r.To != nil {
		t = r.To.Format("2006-01-02")
	}
	return f + "_" + t
}

// end is exclusive: the day after To
func (r DateRange) end() *time.Time {
	if r.To == nil {
		return nil
	}
	e := r.To.AddDate(0, 0, 1)
	return &e
}
