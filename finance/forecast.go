package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const historyMonths = 12

var (
	revenueGrowthCap = decimal.RequireFromString("0.5")
	expenseGrowthCap = decimal.RequireFromString("0.3")
	confidenceFloor  = decimal.RequireFromString("0.5")
	confidenceStart  = decimal.RequireFromString("0.9")
	confidenceStep   = decimal.RequireFromString("0.1")
)

type ForecastPoint struct {
	Date              time.Time       `json:"date"`
	MonthName         string          `json:"month_name"`
	PredictedRevenue  decimal.Decimal `json:"predicted_revenue"`
	PredictedExpenses decimal.Decimal `json:"predicted_expenses"`
	PredictedProfit   decimal.Decimal `json:"predicted_profit"`
	Confidence        decimal.Decimal `json:"confidence"`
	SeasonalFactor    decimal.Decimal `json:"seasonal_factor"`
	GrowthRate        decimal.Decimal `json:"growth_rate"`
}

// SeasonalFactor is the revenue multiplier for a calendar month.
func SeasonalFactor(m time.Month) decimal.Decimal {
	switch m {
	case time.June, time.July, time.August:
		return decimal.RequireFromString("1.15")
	case time.December, time.January:
		return decimal.RequireFromString("1.10")
	case time.February, time.March:
		return decimal.RequireFromString("0.90")
	}
	return one
}

// Trend is the averaged baseline and clamped growth of one series.
type Trend struct {
	RecentAvg decimal.Decimal
	Growth    decimal.Decimal
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return decimal.Sum(decimal.Zero, values...).Div(decimal.NewFromInt(int64(len(values))))
}

// SeriesTrend derives the trend of values ordered oldest to newest.
// With fewer than 3 points growth is 0 and the baseline is the mean of all points.
// The growth denominator is max(older, 1).
func SeriesTrend(values []decimal.Decimal, limit decimal.Decimal) Trend {
	n := len(values)
	if n < 3 {
		return Trend{RecentAvg: mean(values), Growth: decimal.Zero}
	}
	recent := mean(values[n-3:])
	older := recent
	if n >= 6 {
		older = mean(values[n-6 : n-3])
	}
	growth := decimal.Zero
	if older.IsPositive() {
		growth = recent.Sub(older).Div(decimal.Max(older, one))
	}
	return Trend{RecentAvg: recent, Growth: clamp(growth, limit.Neg(), limit)}
}

// TrimLeadingEmpty drops months before the first one with any activity.
func TrimLeadingEmpty(history []MonthlySummary) []MonthlySummary {
	for i, s := range history {
		if !s.IsEmpty() {
			return history[i:]
		}
	}
	return nil
}

// ProjectForecast projects monthsAhead points after last from history
// (oldest to newest). It is deterministic for identical inputs.
func ProjectForecast(history []MonthlySummary, last Period, monthsAhead int) ([]ForecastPoint, error) {
	if monthsAhead < 1 {
		return nil, ErrInvalidHorizon
	}
	revenues := make([]decimal.Decimal, len(history))
	expenses := make([]decimal.Decimal, len(history))
	for i, s := range history {
		revenues[i] = s.TotalIncome
		expenses[i] = s.TotalExpenses
	}
	rev := SeriesTrend(revenues, revenueGrowthCap)
	exp := SeriesTrend(expenses, expenseGrowthCap)

	revBase := one.Add(rev.Growth)
	expBase := one.Add(exp.Growth)
	points := make([]ForecastPoint, 0, monthsAhead)
	for i := 1; i <= monthsAhead; i++ {
		p := last.AddMonths(i)
		step := decimal.NewFromInt(int64(i))
		seasonal := SeasonalFactor(p.Month)

		predictedRevenue := rev.RecentAvg.Mul(revBase.Pow(step)).Mul(seasonal)
		predictedExpenses := exp.RecentAvg.Mul(expBase.Pow(step))
		confidence := decimal.Max(confidenceFloor, confidenceStart.Sub(confidenceStep.Mul(step)))

		points = append(points, ForecastPoint{
			Date:              p.Start(),
			MonthName:         p.Start().Format("January 2006"),
			PredictedRevenue:  predictedRevenue.Round(2),
			PredictedExpenses: predictedExpenses.Round(2),
			PredictedProfit:   predictedRevenue.Sub(predictedExpenses).Round(2),
			Confidence:        confidence.Round(2),
			SeasonalFactor:    seasonal,
			GrowthRate:        rev.Growth.Round(4),
		})
	}
	return points, nil
}

type Forecaster struct {
	Summaries MonthlySummarizer
	Now       func() time.Time
}

// Forecast projects the company's revenue and expenses monthsAhead months
// past the current month, using the trailing 12 months as history.
func (f *Forecaster) Forecast(ctx context.Context, companyId string, monthsAhead int) ([]ForecastPoint, error) {
	if monthsAhead < 1 {
		return nil, ErrInvalidHorizon
	}
	scope := CompanyScope(companyId)
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	current := PeriodOf(now().UTC())
	history, err := TrailingSummaries(ctx, f.Summaries, scope, current, historyMonths)
	if err != nil {
		return nil, err
	}
	return ProjectForecast(TrimLeadingEmpty(history), current, monthsAhead)
}
