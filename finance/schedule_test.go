package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNextRunTime(t *testing.T) {
	wed := time.Date(2026, time.May, 13, 14, 0, 0, 0, time.UTC)
	mon := time.Date(2026, time.May, 11, 9, 0, 0, 0, time.UTC)
	sun := time.Date(2026, time.May, 17, 9, 0, 0, 0, time.UTC)
	nov := time.Date(2026, time.November, 20, 8, 0, 0, 0, time.UTC)
	cases := []struct {
		name string
		f    Frequency
		now  time.Time
		want time.Time
	}{
		{"daily", FrequencyDaily, wed, wed.AddDate(0, 0, 1)},
		{"weekly from wednesday", FrequencyWeekly, wed, time.Date(2026, time.May, 18, 14, 0, 0, 0, time.UTC)},
		{"weekly from monday", FrequencyWeekly, mon, time.Date(2026, time.May, 18, 9, 0, 0, 0, time.UTC)},
		{"weekly from sunday", FrequencyWeekly, sun, time.Date(2026, time.May, 18, 9, 0, 0, 0, time.UTC)},
		{"monthly", FrequencyMonthly, wed, time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)},
		{"monthly in december", FrequencyMonthly, time.Date(2026, time.December, 31, 0, 0, 0, 0, time.UTC), time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"quarterly", FrequencyQuarterly, wed, time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{"quarterly from q4", FrequencyQuarterly, nov, time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"unknown falls back to daily", Frequency("hourly"), wed, wed.AddDate(0, 0, 1)},
	}
	for _, tc := range cases {
		if got := NextRunTime(tc.f, tc.now); !got.Equal(tc.want) {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestOverviewGuards(t *testing.T) {
	empty := NewOverview(MonthlySummary{}, 0)
	if !empty.AverageTripValue.IsZero() || !empty.ProfitMargin.IsZero() {
		t.Fatalf("empty overview: %+v", empty)
	}
	s := MonthlySummary{TotalIncome: dec("1000"), TotalExpenses: dec("750"), NetProfit: dec("250"), TripCount: 3}
	o := NewOverview(s, 4)
	if !o.AverageTripValue.Equal(dec("333.33")) || !o.ProfitMargin.Equal(dec("25")) {
		t.Fatalf("overview: avg %s margin %s", o.AverageTripValue, o.ProfitMargin)
	}
	if got := ProfitMargin(decimal.Zero, dec("-5")); !got.IsZero() {
		t.Fatalf("zero income margin: %s", got)
	}
}
