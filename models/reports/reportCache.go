package reports

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/sirupsen/logrus"
)

/*
caches:
	Report:$name:$companyId:$args
*/

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
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.GetLogger().WithFields(logrus.Fields{
		"report":         name,
		"ms":             d.Milliseconds(),
		"company_id":     companyId,
		"correlation_id": cid,
		"extra":          extra,
	}).Warn("slow_report")
}

func reportCacheKey(name, companyId string, args ...string) string {
	return "Report:" + name + ":" + companyId + ":" + strings.Join(args, ":")
}

// cachedReport returns the cached value under key when ENABLE_REPORT_CACHE is on,
// otherwise builds and stores it. Redis errors never fail the report.
func cachedReport[T any](ctx context.Context, name string, key string, build func(context.Context) (T, error)) (T, error) {
	started := time.Now()
	defer logSlowReport(ctx, name, started, map[string]any{"key": key})

	if !config.ReportCacheEnabled() {
		return build(ctx)
	}
	var cached T
	if ok, err := config.GetRedisObject(key, &cached); err == nil && ok {
		return cached, nil
	}
	result, err := build(ctx)
	if err != nil {
		return result, err
	}
	if err := config.SetRedisObject(key, result, config.ReportCacheTTL()); err != nil {
		config.LogError(config.GetLogger(), "Reports", name, "Error caching report", key, err)
	}
	return result, nil
}

// invalidateCompanyReports drops every cached report of a company.
func invalidateCompanyReports(ctx context.Context, companyId string) error {
	return config.RemoveRedisPattern(ctx, models.CompanyReportPattern(companyId))
}
