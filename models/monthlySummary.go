package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormSummaryFetcher sums incomes and expenses straight from MySQL.
type GormSummaryFetcher struct {
	DB *gorm.DB
}

func (f GormSummaryFetcher) db(ctx context.Context) *gorm.DB {
	if f.DB != nil {
		return f.DB.WithContext(ctx)
	}
	return config.GetDB().WithContext(ctx)
}

func scoped(db *gorm.DB, scope finance.Scope) *gorm.DB {
	if scope.IsCompany() {
		return companyUsers(db, scope.CompanyId)
	}
	return db.Where("user_id = ?", scope.UserId)
}

type ledgerTotal struct {
	Total   decimal.Decimal
	Records int64
}

func (f GormSummaryFetcher) SumIncome(ctx context.Context, scope finance.Scope, from, to time.Time) (decimal.Decimal, int64, error) {
	var row ledgerTotal
	err := scoped(f.db(ctx).Model(&Income{}), scope).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS records").
		Where("date_recorded >= ? AND date_recorded < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, 0, err
	}
	return row.Total, row.Records, nil
}

func (f GormSummaryFetcher) SumExpenses(ctx context.Context, scope finance.Scope, from, to time.Time) (decimal.Decimal, error) {
	var row ledgerTotal
	err := scoped(f.db(ctx).Model(&Expense{}), scope).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS records").
		Where("date_recorded >= ? AND date_recorded < ?", from, to).
		Scan(&row).Error
	if err != nil {
		return decimal.Zero, err
	}
	return row.Total, nil
}

func (f GormSummaryFetcher) CountActiveDrivers(ctx context.Context, companyId string) (int64, error) {
	var count int64
	err := f.db(ctx).Model(&User{}).
		Where("company_id = ? AND role = ? AND is_active = ?", companyId, UserRoleDriver, true).
		Count(&count).Error
	return count, err
}

/*
caches:
	MonthlySummary:$scope:$period
*/

func summaryCacheKey(scope finance.Scope, period finance.Period) string {
	return "MonthlySummary:" + scope.String() + ":" + period.String()
}

// CachedSummarizer memoizes monthly summaries in redis when ENABLE_REPORT_CACHE is on.
// Writes to incomes and expenses evict the affected keys through RemoveLedgerCache.
type CachedSummarizer struct {
	Next finance.MonthlySummarizer
	TTL  time.Duration
}

func (c CachedSummarizer) MonthlySummary(ctx context.Context, scope finance.Scope, period finance.Period) (finance.MonthlySummary, error) {
	if !config.ReportCacheEnabled() {
		return c.Next.MonthlySummary(ctx, scope, period)
	}
	key := summaryCacheKey(scope, period)
	var cached finance.MonthlySummary
	if ok, err := config.GetRedisObject(key, &cached); err == nil && ok {
		return cached, nil
	}
	summary, err := c.Next.MonthlySummary(ctx, scope, period)
	if err != nil {
		return summary, err
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = config.ReportCacheTTL()
	}
	if err := config.SetRedisObject(key, summary, ttl); err != nil {
		config.LogError(config.GetLogger(), "MonthlySummary", "CachedSummarizer", "Error caching summary", key, err)
	}
	return summary, nil
}

// RemoveSummaryCache evicts the user and company summaries of the month containing t.
func RemoveSummaryCache(companyId string, userId int, t time.Time) error {
	period := finance.PeriodOf(t.UTC())
	return config.RemoveRedisKey(
		summaryCacheKey(finance.UserScope(userId), period),
		summaryCacheKey(finance.CompanyScope(companyId), period),
	)
}

// CompanyReportPattern matches every cached report of a company.
// Report keys are laid out as Report:$name:$companyId:$args.
func CompanyReportPattern(companyId string) string {
	return "Report:*:" + companyId + ":*"
}

// RemoveLedgerCache evicts what an income or expense write makes stale: the
// summaries of the month containing t and every cached report of the company.
func RemoveLedgerCache(ctx context.Context, companyId string, userId int, t time.Time) error {
	if err := RemoveSummaryCache(companyId, userId, t); err != nil {
		return err
	}
	return config.RemoveRedisPattern(ctx, CompanyReportPattern(companyId))
}

// NewSummarizer returns the gorm-backed, redis-cached summarizer used by reports and workflows.
func NewSummarizer() finance.MonthlySummarizer {
	return CachedSummarizer{Next: finance.Aggregator{Fetcher: GormSummaryFetcher{}}}
}

// MonthlySummary summarizes one month for the given scope.
func MonthlySummary(ctx context.Context, scope finance.Scope, year int, month time.Month) (finance.MonthlySummary, error) {
	period, err := finance.NewPeriod(year, month)
	if err != nil {
		return finance.MonthlySummary{}, err
	}
	if err := scope.Validate(); err != nil {
		return finance.MonthlySummary{}, err
	}
	return NewSummarizer().MonthlySummary(ctx, scope, period)
}
