package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type BudgetStatus string

const (
	BudgetStatusDraft     BudgetStatus = "draft"
	BudgetStatusActive    BudgetStatus = "active"
	BudgetStatusCompleted BudgetStatus = "completed"
	BudgetStatusArchived  BudgetStatus = "archived"
)

// Budget targets are fixed once set; actuals are always recomputed.
type Budget struct {
	ID             int             `json:"id"`
	CompanyId      string          `json:"company_id"`
	Name           string          `json:"name"`
	PeriodStart    time.Time       `json:"period_start"`
	PeriodEnd      time.Time       `json:"period_end"`
	TargetRevenue  decimal.Decimal `json:"target_revenue"`
	TargetExpenses decimal.Decimal `json:"target_expenses"`
	TargetProfit   decimal.Decimal `json:"target_profit"`
	TargetTrips    int64           `json:"target_trips"`
	TargetDrivers  int64           `json:"target_drivers"`
	Status         BudgetStatus    `json:"status"`
}

type BudgetPerformance struct {
	Revenue        decimal.Decimal `json:"revenue"`
	Expenses       decimal.Decimal `json:"expenses"`
	Profit         decimal.Decimal `json:"profit"`
	Trips          int64           `json:"trips"`
	PeriodProgress decimal.Decimal `json:"period_progress"`
}

// PeriodProgress is elapsed/total days of [start, end], clamped to [0, 1].
func PeriodProgress(start, end, today time.Time) decimal.Decimal {
	start, end, today = Day(start), Day(end), Day(today)
	totalDays := int64(end.Sub(start).Hours() / 24)
	if totalDays <= 0 || today.Before(start) {
		return decimal.Zero
	}
	actualEnd := end
	if today.Before(end) {
		actualEnd = today
	}
	elapsed := int64(actualEnd.Sub(start).Hours() / 24)
	progress := decimal.NewFromInt(elapsed).Div(decimal.NewFromInt(totalDays))
	return clamp(progress, decimal.Zero, one)
}

// EvaluateBudget sums the company's monthly summaries from the month of
// PeriodStart through min(PeriodEnd, today), both inclusive.
func EvaluateBudget(ctx context.Context, s MonthlySummarizer, b Budget, today time.Time) (BudgetPerformance, error) {
	scope := CompanyScope(b.CompanyId)
	if err := scope.Validate(); err != nil {
		return BudgetPerformance{}, err
	}
	actualEnd := Day(b.PeriodEnd)
	if Day(today).Before(actualEnd) {
		actualEnd = Day(today)
	}

	perf := BudgetPerformance{
		Revenue:  decimal.Zero,
		Expenses: decimal.Zero,
		Profit:   decimal.Zero,
	}
	last := PeriodOf(actualEnd)
	for p := PeriodOf(b.PeriodStart); !last.Before(p); p = p.AddMonths(1) {
		summary, err := s.MonthlySummary(ctx, scope, p)
		if err != nil {
			return BudgetPerformance{}, err
		}
		perf.Revenue = perf.Revenue.Add(summary.TotalIncome)
		perf.Expenses = perf.Expenses.Add(summary.TotalExpenses)
		perf.Trips += summary.TripCount
	}
	perf.Profit = perf.Revenue.Sub(perf.Expenses)
	perf.PeriodProgress = PeriodProgress(b.PeriodStart, b.PeriodEnd, today)
	return perf, nil
}

type VarianceLine struct {
	Target        decimal.Decimal `json:"target"`
	Actual        decimal.Decimal `json:"actual"`
	Variance      decimal.Decimal `json:"variance"`
	PercentOfGoal decimal.Decimal `json:"percent_of_goal"`
}

type BudgetVarianceReport struct {
	Revenue  VarianceLine `json:"revenue"`
	Expenses VarianceLine `json:"expenses"`
	Profit   VarianceLine `json:"profit"`
	Trips    VarianceLine `json:"trips"`
}

func varianceLine(target, actual decimal.Decimal) VarianceLine {
	line := VarianceLine{
		Target:        target,
		Actual:        actual,
		Variance:      actual.Sub(target),
		PercentOfGoal: decimal.Zero,
	}
	if !target.IsZero() {
		line.PercentOfGoal = actual.Div(target).Mul(hundred).Round(2)
	}
	return line
}

// BudgetVariance compares actuals to targets (actual - target per field).
func BudgetVariance(b Budget, perf BudgetPerformance) BudgetVarianceReport {
	return BudgetVarianceReport{
		Revenue:  varianceLine(b.TargetRevenue, perf.Revenue),
		Expenses: varianceLine(b.TargetExpenses, perf.Expenses),
		Profit:   varianceLine(b.TargetProfit, perf.Profit),
		Trips:    varianceLine(decimal.NewFromInt(b.TargetTrips), decimal.NewFromInt(perf.Trips)),
	}
}
