package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// SummaryFetcher reads raw totals for a scope over [from, to).
// For a company scope, every user of the company is included.
type SummaryFetcher interface {
	SumIncome(ctx context.Context, scope Scope, from, to time.Time) (total decimal.Decimal, records int64, err error)
	SumExpenses(ctx context.Context, scope Scope, from, to time.Time) (decimal.Decimal, error)
	CountActiveDrivers(ctx context.Context, companyId string) (int64, error)
}

// MonthlySummarizer produces one month's summary. Aggregator is the direct
// implementation; callers may wrap it with a cache.
type MonthlySummarizer interface {
	MonthlySummary(ctx context.Context, scope Scope, period Period) (MonthlySummary, error)
}

// Summarize totals income and expenses of scope for one calendar month.
// An empty month yields zeros. Fetcher errors are returned unchanged.
func Summarize(ctx context.Context, f SummaryFetcher, scope Scope, year int, month time.Month) (MonthlySummary, error) {
	if err := scope.Validate(); err != nil {
		return MonthlySummary{}, err
	}
	period, err := NewPeriod(year, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	from, to := period.Start(), period.End()

	income, trips, err := f.SumIncome(ctx, scope, from, to)
	if err != nil {
		return MonthlySummary{}, err
	}
	expenses, err := f.SumExpenses(ctx, scope, from, to)
	if err != nil {
		return MonthlySummary{}, err
	}

	summary := MonthlySummary{
		Scope:         scope,
		Period:        period,
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetProfit:     income.Sub(expenses),
		TripCount:     trips,
	}
	if scope.IsCompany() {
		summary.ActiveDrivers, err = f.CountActiveDrivers(ctx, scope.CompanyId)
		if err != nil {
			return MonthlySummary{}, err
		}
	}
	return summary, nil
}

// Aggregator adapts a SummaryFetcher to MonthlySummarizer.
type Aggregator struct {
	Fetcher SummaryFetcher
}

func (a Aggregator) MonthlySummary(ctx context.Context, scope Scope, period Period) (MonthlySummary, error) {
	return Summarize(ctx, a.Fetcher, scope, period.Year, period.Month)
}

// TrailingSummaries returns the n months ending with the month before current,
// ordered oldest to newest.
func TrailingSummaries(ctx context.Context, s MonthlySummarizer, scope Scope, current Period, n int) ([]MonthlySummary, error) {
	out := make([]MonthlySummary, 0, n)
	for i := n; i >= 1; i-- {
		summary, err := s.MonthlySummary(ctx, scope, current.AddMonths(-i))
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}
