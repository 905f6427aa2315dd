package reports

import (
	"path"
	"testing"

	"bitbucket.org/mmdatafocus/fleet_backend/models"
)

// Income and expense writes evict reports through models.CompanyReportPattern,
// so every key built here has to match it for its own company only.
func TestReportCacheKeysMatchCompanyPattern(t *testing.T) {
	keys := []string{
		reportCacheKey("Overview", "c1", "2024-03"),
		reportCacheKey("SummaryTrend", "c1", "user:7", "2024-03", "6"),
		reportCacheKey("BudgetPerformance", "c1", "12", "2024-03-15"),
		reportCacheKey("Forecast", "c1", "2024-03", "3"),
		reportCacheKey("TimeAnalysis", "c1"),
	}
	for _, key := range keys {
		ok, err := path.Match(models.CompanyReportPattern("c1"), key)
		if err != nil || !ok {
			t.Fatalf("%s not matched for its company (err %v)", key, err)
		}
		if ok, _ := path.Match(models.CompanyReportPattern("c10"), key); ok {
			t.Fatalf("%s matched another company", key)
		}
	}
	if ok, _ := path.Match(models.CompanyReportPattern("c1"), "MonthlySummary:company:c1:2024-03"); ok {
		t.Fatalf("summary keys are evicted separately")
	}
}
