package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestPayrollTaxRate(t *testing.T) {
	def := decimal.RequireFromString("0.30")
	cases := []struct {
		env  string
		want string
	}{
		{"", "0.3"},
		{"0.25", "0.25"},
		{"abc", "0.3"},
		{"-0.1", "0.3"},
		{"1.5", "0.3"},
		{"0", "0"},
	}
	for _, tc := range cases {
		t.Setenv("PAYROLL_TAX_RATE", tc.env)
		got := PayrollTaxRate(def)
		if !got.Equal(decimal.RequireFromString(tc.want)) {
			t.Fatalf("PAYROLL_TAX_RATE=%q: got %s want %s", tc.env, got, tc.want)
		}
	}
}

func TestReportCacheFlags(t *testing.T) {
	t.Setenv("ENABLE_REPORT_CACHE", "yes")
	if !ReportCacheEnabled() {
		t.Fatalf("expected cache enabled")
	}
	t.Setenv("ENABLE_REPORT_CACHE", "off")
	if ReportCacheEnabled() {
		t.Fatalf("expected cache disabled")
	}
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "")
	if got := ReportCacheTTL(); got != 120*time.Second {
		t.Fatalf("default ttl: got %s", got)
	}
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "30")
	if got := ReportCacheTTL(); got != 30*time.Second {
		t.Fatalf("ttl override: got %s", got)
	}
}

func TestBackoffCaps(t *testing.T) {
	if got := backoff(1, 30*time.Second); got != 2*time.Second {
		t.Fatalf("attempt 1: got %s", got)
	}
	if got := backoff(10, 30*time.Second); got != 30*time.Second {
		t.Fatalf("attempt 10: got %s", got)
	}
}
