package finance

import (
	"fmt"
	"testing"
)

func TestAnalyzeTimes(t *testing.T) {
	weekdays := []IncomeBucket{
		{Slot: 5, Income: dec("300"), Trips: 4},
		{Slot: 0, Income: dec("100"), Trips: 2},
		{Slot: 5, Income: dec("60"), Trips: 2},
		{Slot: 3, Income: dec("0"), Trips: 0},
		{Slot: 9, Income: dec("999"), Trips: 1},
	}
	hours := []IncomeBucket{
		{Slot: 23, Income: dec("10"), Trips: 3},
		{Slot: 7, Income: dec("45"), Trips: 1},
		{Slot: -1, Income: dec("5"), Trips: 1},
	}
	got := AnalyzeTimes(weekdays, hours)

	if len(got.DailyPatterns) != 2 {
		t.Fatalf("daily patterns %+v", got.DailyPatterns)
	}
	sunday, friday := got.DailyPatterns[0], got.DailyPatterns[1]
	if sunday.Day != "Sunday" || sunday.Trips != 2 || !sunday.AvgIncome.Equal(dec("50")) {
		t.Fatalf("sunday %+v", sunday)
	}
	if friday.Day != "Friday" || friday.Trips != 6 || !friday.AvgIncome.Equal(dec("60")) {
		t.Fatalf("friday %+v", friday)
	}

	if len(got.HourlyPatterns) != 2 || got.HourlyPatterns[0].Hour != 7 || got.HourlyPatterns[1].Hour != 23 {
		t.Fatalf("hourly patterns %+v", got.HourlyPatterns)
	}
	if !got.HourlyPatterns[1].AvgIncome.Equal(dec("3.33")) {
		t.Fatalf("hour 23 average %s", got.HourlyPatterns[1].AvgIncome)
	}

	empty := AnalyzeTimes(nil, nil)
	if empty.DailyPatterns == nil || empty.HourlyPatterns == nil {
		t.Fatalf("empty analysis must serialise as empty lists")
	}
}

func TestBestIncomeDays(t *testing.T) {
	var days []DayIncome
	for i := 1; i <= 12; i++ {
		days = append(days, DayIncome{Date: fmt.Sprintf("2024-03-%02d", i), Income: dec("100"), Trips: 1})
	}
	days[4].Income = dec("500")
	days[8].Income = dec("250.5")

	got := BestIncomeDays(days, BestDaysLimit)
	if len(got) != BestDaysLimit {
		t.Fatalf("got %d days", len(got))
	}
	if got[0].Date != "2024-03-05" || got[1].Date != "2024-03-09" {
		t.Fatalf("top days %+v", got[:2])
	}
	// equal incomes keep calendar order
	if got[2].Date != "2024-03-01" || got[9].Date != "2024-03-10" {
		t.Fatalf("ties ordered wrongly: %+v", got)
	}
	if days[0].Date != "2024-03-01" || !days[4].Income.Equal(dec("500")) {
		t.Fatalf("input reordered")
	}
	if out := BestIncomeDays(nil, BestDaysLimit); out == nil || len(out) != 0 {
		t.Fatalf("expected empty list, got %v", out)
	}
}

func TestRankVehicles(t *testing.T) {
	got := RankVehicles([]VehicleIncome{
		{VehicleId: 4, Vehicle: "Kia Niro (B-2)", Income: dec("900"), Trips: 0},
		{VehicleId: 2, Vehicle: "Toyota Prius (A-1)", Income: dec("1200"), Trips: 8},
		{VehicleId: 1, Vehicle: "Ford Focus (C-3)", Income: dec("900"), Trips: 4},
	})
	if got[0].VehicleId != 2 || got[1].VehicleId != 1 || got[2].VehicleId != 4 {
		t.Fatalf("ranking %+v", got)
	}
	if !got[0].AverageTripValue.Equal(dec("150")) || !got[1].AverageTripValue.Equal(dec("225")) {
		t.Fatalf("averages %s %s", got[0].AverageTripValue, got[1].AverageTripValue)
	}
	if !got[2].AverageTripValue.IsZero() {
		t.Fatalf("vehicle without trips has average %s", got[2].AverageTripValue)
	}
}
