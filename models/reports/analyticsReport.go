package reports

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
)

const MaxTrendMonths = 24

type OverviewResponse struct {
	finance.Overview
	ActiveAlerts map[finance.AlertPriority]int64 `json:"active_alerts"`
}

// reportScope is the company for managers and owners, and the caller alone for drivers.
func reportScope(ctx context.Context) (finance.Scope, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return finance.Scope{}, utils.ErrorCompanyRequired
	}
	role, _ := utils.GetUserRoleFromContext(ctx)
	if models.UserRole(role) == models.UserRoleDriver {
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok || userId == 0 {
			return finance.Scope{}, utils.ErrorUserRequired
		}
		return finance.UserScope(userId), nil
	}
	return finance.CompanyScope(companyId), nil
}

// GetMonthlySummary summarizes one month; a zero year or month means the current one.
func GetMonthlySummary(ctx context.Context, year int, month time.Month) (finance.MonthlySummary, error) {
	scope, err := reportScope(ctx)
	if err != nil {
		return finance.MonthlySummary{}, err
	}
	if year == 0 || month == 0 {
		now := finance.PeriodOf(time.Now().UTC())
		year, month = now.Year, now.Month
	}
	return models.MonthlySummary(ctx, scope, year, month)
}

// GetOverview reports the current month of the company with vehicle and alert counts.
func GetOverview(ctx context.Context) (*OverviewResponse, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	period := finance.PeriodOf(time.Now().UTC())
	key := reportCacheKey("Overview", companyId, period.String())
	return cachedReport(ctx, "Overview", key, func(ctx context.Context) (*OverviewResponse, error) {
		summary, err := models.NewSummarizer().MonthlySummary(ctx, finance.CompanyScope(companyId), period)
		if err != nil {
			return nil, err
		}
		vehicles, err := models.CountActiveVehicles(ctx, companyId)
		if err != nil {
			return nil, err
		}
		alerts, err := models.CountActiveAlerts(ctx, companyId)
		if err != nil {
			return nil, err
		}
		return &OverviewResponse{
			Overview:     finance.NewOverview(summary, vehicles),
			ActiveAlerts: alerts,
		}, nil
	})
}

// GetSummaryTrend returns the last months summaries, ending with the current month, oldest first.
func GetSummaryTrend(ctx context.Context, months int) ([]finance.MonthlySummary, error) {
	scope, err := reportScope(ctx)
	if err != nil {
		return nil, err
	}
	if months < 1 {
		months = 6
	}
	if months > MaxTrendMonths {
		months = MaxTrendMonths
	}
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	current := finance.PeriodOf(time.Now().UTC())
	key := reportCacheKey("SummaryTrend", companyId, scope.String(), current.String(), strconv.Itoa(months))
	return cachedReport(ctx, "SummaryTrend", key, func(ctx context.Context) ([]finance.MonthlySummary, error) {
		// TrailingSummaries stops before the month passed in
		return finance.TrailingSummaries(ctx, models.NewSummarizer(), scope, current.AddMonths(1), months)
	})
}

func SummaryTrendWorkbook(ctx context.Context, months int) ([]byte, error) {
	summaries, err := GetSummaryTrend(ctx, months)
	if err != nil {
		return nil, err
	}
	return SummaryWorkbook(summaries)
}

// GetExpenseBreakdown groups expenses by category over the month of period, or the current month.
func GetExpenseBreakdown(ctx context.Context, periodStr string) ([]models.ExpenseCategoryTotal, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	period := finance.PeriodOf(time.Now().UTC())
	if periodStr != "" {
		p, err := finance.ParsePeriod(periodStr)
		if err != nil {
			return nil, err
		}
		period = p
	}
	key := reportCacheKey("ExpenseBreakdown", companyId, period.String())
	return cachedReport(ctx, "ExpenseBreakdown", key, func(ctx context.Context) ([]models.ExpenseCategoryTotal, error) {
		return models.ExpenseBreakdown(ctx, companyId, period.Start(), period.AddMonths(1).Start())
	})
}

// GetTimeAnalysis reports average income per trip and trip counts by weekday
// and by hour of day, over every income of the caller's scope.
func GetTimeAnalysis(ctx context.Context) (finance.TimeAnalysis, error) {
	scope, err := reportScope(ctx)
	if err != nil {
		return finance.TimeAnalysis{}, err
	}
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	key := reportCacheKey("TimeAnalysis", companyId, scope.String())
	return cachedReport(ctx, "TimeAnalysis", key, func(ctx context.Context) (finance.TimeAnalysis, error) {
		weekdays, hours, err := models.IncomeTimeBuckets(ctx, scope, models.CompanyLocation(ctx, companyId))
		if err != nil {
			return finance.TimeAnalysis{}, err
		}
		return finance.AnalyzeTimes(weekdays, hours), nil
	})
}

// GetPerformanceAnalysis ranks the best income days of a year and compares
// vehicles by income. A zero year means the current one.
func GetPerformanceAnalysis(ctx context.Context, year int) (finance.PerformanceAnalysis, error) {
	scope, err := reportScope(ctx)
	if err != nil {
		return finance.PerformanceAnalysis{}, err
	}
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	loc := models.CompanyLocation(ctx, companyId)
	if year == 0 {
		year = time.Now().In(loc).Year()
	}
	if year < 1 || year > 9999 {
		return finance.PerformanceAnalysis{}, fmt.Errorf("%w: year %d", models.ErrInvalidInput, year)
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	to := from.AddDate(1, 0, 0)

	key := reportCacheKey("PerformanceAnalysis", companyId, scope.String(), strconv.Itoa(year))
	return cachedReport(ctx, "PerformanceAnalysis", key, func(ctx context.Context) (finance.PerformanceAnalysis, error) {
		days, err := models.IncomeByDay(ctx, scope, from, to, loc)
		if err != nil {
			return finance.PerformanceAnalysis{}, err
		}
		vehicles, err := models.IncomeByVehicle(ctx, scope, from, to)
		if err != nil {
			return finance.PerformanceAnalysis{}, err
		}
		return finance.NewPerformanceAnalysis(year, days, vehicles), nil
	})
}
