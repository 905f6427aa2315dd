package finance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type mapSummarizer struct {
	months map[Period]MonthlySummary
	calls  []Period
	err    error
}

func (m *mapSummarizer) MonthlySummary(ctx context.Context, s Scope, p Period) (MonthlySummary, error) {
	m.calls = append(m.calls, p)
	if m.err != nil {
		return MonthlySummary{}, m.err
	}
	if got, ok := m.months[p]; ok {
		return got, nil
	}
	return MonthlySummary{Scope: s, Period: p, TotalIncome: decimal.Zero, TotalExpenses: decimal.Zero, NetProfit: decimal.Zero}, nil
}

func month(year int, m time.Month, income, expenses string, trips int64) MonthlySummary {
	in, ex := dec(income), dec(expenses)
	return MonthlySummary{Period: Period{year, m}, TotalIncome: in, TotalExpenses: ex, NetProfit: in.Sub(ex), TripCount: trips}
}

func series(values ...string) []decimal.Decimal {
	out := make([]decimal.Decimal, len(values))
	for i, v := range values {
		out[i] = dec(v)
	}
	return out
}

func TestSeriesTrend(t *testing.T) {
	cases := []struct {
		name   string
		values []decimal.Decimal
		limit  string
		recent string
		growth string
	}{
		{"no history", nil, "0.5", "0", "0"},
		{"two months", series("1000", "2000"), "0.5", "1500", "0"},
		{"three to five months use recent as older", series("10", "20", "30", "40"), "0.5", "30", "0"},
		{"growth clamped up", series("100", "100", "100", "200", "200", "200"), "0.5", "200", "0.5"},
		{"decline clamped down", series("100", "100", "100", "50", "50", "50"), "0.3", "50", "-0.3"},
		{"moderate growth", series("100", "100", "100", "110", "110", "110"), "0.5", "110", "0.1"},
		{"older zero means no growth", series("0", "0", "0", "100", "100", "100"), "0.5", "100", "0"},
		{"small older uses denominator one", series("0.5", "0.5", "0.5", "0.6", "0.6", "0.6"), "0.5", "0.6", "0.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := SeriesTrend(tc.values, dec(tc.limit))
			if !got.RecentAvg.Equal(dec(tc.recent)) {
				t.Fatalf("recent avg: got %s want %s", got.RecentAvg, tc.recent)
			}
			if !got.Growth.Equal(dec(tc.growth)) {
				t.Fatalf("growth: got %s want %s", got.Growth, tc.growth)
			}
		})
	}
}

func TestGrowthAlwaysWithinCaps(t *testing.T) {
	inputs := [][]decimal.Decimal{
		series("1", "1", "1", "1000000", "1000000", "1000000"),
		series("1000000", "1000000", "1000000", "0", "0", "0"),
		series("-500", "-500", "-500", "100", "100", "100"),
		series("5", "0", "0", "0", "0", "0"),
	}
	for _, in := range inputs {
		rev := SeriesTrend(in, revenueGrowthCap)
		if rev.Growth.GreaterThan(dec("0.5")) || rev.Growth.LessThan(dec("-0.5")) {
			t.Fatalf("revenue growth %s out of range", rev.Growth)
		}
		exp := SeriesTrend(in, expenseGrowthCap)
		if exp.Growth.GreaterThan(dec("0.3")) || exp.Growth.LessThan(dec("-0.3")) {
			t.Fatalf("expense growth %s out of range", exp.Growth)
		}
	}
}

func TestProjectForecastCompounding(t *testing.T) {
	history := []MonthlySummary{
		month(2026, time.March, "100", "100", 1),
		month(2026, time.April, "100", "100", 1),
		month(2026, time.May, "100", "100", 1),
		month(2026, time.June, "200", "50", 1),
		month(2026, time.July, "200", "50", 1),
		month(2026, time.August, "200", "50", 1),
	}
	points, err := ProjectForecast(history, Period{2026, time.September}, 6)
	if err != nil {
		t.Fatalf("ProjectForecast: %v", err)
	}
	if len(points) != 6 {
		t.Fatalf("expected 6 points, got %d", len(points))
	}
	first := points[0]
	if first.Date != time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC) || first.MonthName != "October 2026" {
		t.Fatalf("first point date: %s %q", first.Date, first.MonthName)
	}
	if !first.PredictedRevenue.Equal(dec("300")) || !first.PredictedExpenses.Equal(dec("35")) || !first.PredictedProfit.Equal(dec("265")) {
		t.Fatalf("first point: %+v", first)
	}
	if !first.Confidence.Equal(dec("0.8")) || !first.GrowthRate.Equal(dec("0.5")) {
		t.Fatalf("first point confidence/growth: %s %s", first.Confidence, first.GrowthRate)
	}
	second := points[1]
	if !second.PredictedRevenue.Equal(dec("450")) || !second.PredictedExpenses.Equal(dec("24.5")) {
		t.Fatalf("second point: rev %s exp %s", second.PredictedRevenue, second.PredictedExpenses)
	}
	// December carries the holiday factor.
	third := points[2]
	if !third.SeasonalFactor.Equal(dec("1.10")) || !third.PredictedRevenue.Equal(dec("742.5")) {
		t.Fatalf("third point: factor %s rev %s", third.SeasonalFactor, third.PredictedRevenue)
	}
	for i, p := range points[4:] {
		if !p.Confidence.Equal(dec("0.5")) {
			t.Fatalf("point %d confidence %s, want floor 0.5", i+5, p.Confidence)
		}
	}
}

func TestForecastWithTwoMonthsOfHistory(t *testing.T) {
	s := &mapSummarizer{months: map[Period]MonthlySummary{
		{2026, time.March}: month(2026, time.March, "1000", "100", 10),
		{2026, time.April}: month(2026, time.April, "2000", "300", 20),
	}}
	f := &Forecaster{Summaries: s, Now: func() time.Time { return time.Date(2026, time.May, 10, 9, 0, 0, 0, time.UTC) }}
	points, err := f.Forecast(context.Background(), "c-1", 2)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if len(s.calls) != 12 || s.calls[0] != (Period{2025, time.May}) || s.calls[11] != (Period{2026, time.April}) {
		t.Fatalf("expected trailing 12 months, got %v", s.calls)
	}
	// June is a summer month.
	if !points[0].GrowthRate.IsZero() || !points[0].PredictedRevenue.Equal(dec("1725")) {
		t.Fatalf("june: %+v", points[0])
	}
	if !points[0].PredictedExpenses.Equal(dec("200")) {
		t.Fatalf("june expenses: %s", points[0].PredictedExpenses)
	}
}

func TestForecastWithoutHistoryIsZero(t *testing.T) {
	f := &Forecaster{Summaries: &mapSummarizer{}, Now: func() time.Time { return time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC) }}
	points, err := f.Forecast(context.Background(), "c-1", 3)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	for _, p := range points {
		if !p.PredictedRevenue.IsZero() || !p.PredictedExpenses.IsZero() {
			t.Fatalf("expected zero projection, got %+v", p)
		}
	}
}

func TestForecastIsDeterministic(t *testing.T) {
	s := &mapSummarizer{months: map[Period]MonthlySummary{}}
	for i := 1; i <= 12; i++ {
		p := Period{2025, time.Month(i)}
		s.months[p] = month(2025, time.Month(i), "1234.56", "789.01", int64(i))
	}
	f := &Forecaster{Summaries: s, Now: func() time.Time { return time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC) }}
	a, _ := f.Forecast(context.Background(), "c-1", 4)
	b, _ := f.Forecast(context.Background(), "c-1", 4)
	for i := range a {
		if !a[i].PredictedProfit.Equal(b[i].PredictedProfit) || a[i].Date != b[i].Date {
			t.Fatalf("point %d differs between runs", i)
		}
	}
}

func TestForecastErrors(t *testing.T) {
	f := &Forecaster{Summaries: &mapSummarizer{}}
	if _, err := f.Forecast(context.Background(), "c-1", 0); !errors.Is(err, ErrInvalidHorizon) {
		t.Fatalf("expected ErrInvalidHorizon, got %v", err)
	}
	if _, err := f.Forecast(context.Background(), "", 1); !errors.Is(err, ErrInvalidScope) {
		t.Fatalf("expected ErrInvalidScope, got %v", err)
	}
	boom := errors.New("timeout")
	f.Summaries = &mapSummarizer{err: boom}
	if _, err := f.Forecast(context.Background(), "c-1", 1); !errors.Is(err, boom) {
		t.Fatalf("expected summarizer error, got %v", err)
	}
}

func TestSeasonalFactor(t *testing.T) {
	want := map[time.Month]string{
		time.January: "1.10", time.February: "0.90", time.March: "0.90", time.April: "1",
		time.May: "1", time.June: "1.15", time.July: "1.15", time.August: "1.15",
		time.September: "1", time.October: "1", time.November: "1", time.December: "1.10",
	}
	for m, w := range want {
		if got := SeasonalFactor(m); !got.Equal(dec(w)) {
			t.Fatalf("%s: got %s want %s", m, got, w)
		}
	}
}
