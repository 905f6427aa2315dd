package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y" || v == "on"
}

// ReportCacheEnabled turns on redis caching of monthly summaries and reports.
//
// Set via env:
// - ENABLE_REPORT_CACHE=true
func ReportCacheEnabled() bool {
	return boolFromEnv("ENABLE_REPORT_CACHE")
}

// ReportCacheTTL defaults to 120s. REPORT_CACHE_TTL_SECONDS overrides.
func ReportCacheTTL() time.Duration {
	return time.Duration(intFromEnv("REPORT_CACHE_TTL_SECONDS", 120)) * time.Second
}

// NotificationPublishEnabled controls whether the outbox dispatcher pushes
// stored notifications to Pub/Sub. When off, notifications stay in the inbox only.
//
// Set via env:
// - ENABLE_NOTIFICATION_PUBLISH=true
func NotificationPublishEnabled() bool {
	return boolFromEnv("ENABLE_NOTIFICATION_PUBLISH")
}

// PayrollTaxRate returns PAYROLL_TAX_RATE as a fraction (0.30 = 30%).
// Invalid or out-of-range values fall back to def.
func PayrollTaxRate(def decimal.Decimal) decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("PAYROLL_TAX_RATE"))
	if raw == "" {
		return def
	}
	rate, err := decimal.NewFromString(raw)
	if err != nil || rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return def
	}
	return rate
}

// RateLimitPerMinute is the per-client request budget; 0 disables limiting.
func RateLimitPerMinute() int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv("RATE_LIMIT_PER_MINUTE")))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
