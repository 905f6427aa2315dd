package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
)

func TestReportObjectName(t *testing.T) {
	report := &models.ScheduledReport{ID: 12, CompanyId: "c1", ReportType: models.ReportTypePayroll}
	ranAt := time.Date(2024, time.April, 1, 6, 30, 0, 0, time.UTC)
	got := reportObjectName(report, ranAt)
	if got != "reports/c1/12/payroll_20240401T063000.xlsx" {
		t.Fatalf("got %q", got)
	}
}

func TestBuildReportWorkbookUnsupportedType(t *testing.T) {
	report := &models.ScheduledReport{ID: 1, CompanyId: "c1", ReportType: "cash_flow", Frequency: finance.FrequencyWeekly}
	_, err := buildReportWorkbook(context.Background(), report, time.Now())
	if err == nil || !strings.Contains(err.Error(), "unsupported report type") {
		t.Fatalf("expected unsupported report type error, got %v", err)
	}
}
