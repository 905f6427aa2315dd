package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type Overview struct {
	Summary          MonthlySummary  `json:"summary"`
	AverageTripValue decimal.Decimal `json:"average_trip_value"`
	ProfitMargin     decimal.Decimal `json:"profit_margin"`
	ActiveVehicles   int64           `json:"active_vehicles"`
}

// AverageTripValue is income per trip, 0 when there were no trips.
func AverageTripValue(income decimal.Decimal, trips int64) decimal.Decimal {
	if trips <= 0 {
		return decimal.Zero
	}
	return income.Div(decimal.NewFromInt(trips)).Round(2)
}

// ProfitMargin is profit as a percentage of income, 0 when income is not positive.
func ProfitMargin(income, profit decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return profit.Div(income).Mul(hundred).Round(2)
}

func NewOverview(s MonthlySummary, activeVehicles int64) Overview {
	return Overview{
		Summary:          s,
		AverageTripValue: AverageTripValue(s.TotalIncome, s.TripCount),
		ProfitMargin:     ProfitMargin(s.TotalIncome, s.NetProfit),
		ActiveVehicles:   activeVehicles,
	}
}

// BestDaysLimit is how many days the performance analysis ranks.
const BestDaysLimit = 10

// IncomeBucket totals the income rows of one group: a weekday (0 is Sunday) or an hour of day.
type IncomeBucket struct {
	Slot   int
	Income decimal.Decimal
	Trips  int64
}

type WeekdayPattern struct {
	Day       string          `json:"day"`
	AvgIncome decimal.Decimal `json:"avg_income"`
	Trips     int64           `json:"trips"`
}

type HourPattern struct {
	Hour      int             `json:"hour"`
	AvgIncome decimal.Decimal `json:"avg_income"`
	Trips     int64           `json:"trips"`
}

type TimeAnalysis struct {
	DailyPatterns  []WeekdayPattern `json:"daily_patterns"`
	HourlyPatterns []HourPattern    `json:"hourly_patterns"`
}

// mergeSlots folds buckets into [0, slots), dropping empty and out of range ones.
func mergeSlots(buckets []IncomeBucket, slots int) []IncomeBucket {
	merged := make([]IncomeBucket, slots)
	for _, b := range buckets {
		if b.Slot < 0 || b.Slot >= slots || b.Trips <= 0 {
			continue
		}
		m := &merged[b.Slot]
		m.Slot = b.Slot
		m.Income = m.Income.Add(b.Income)
		m.Trips += b.Trips
	}
	var out []IncomeBucket
	for _, m := range merged {
		if m.Trips > 0 {
			out = append(out, m)
		}
	}
	return out
}

// AnalyzeTimes reports the average income per trip and the trip count by
// weekday and by hour of day, in calendar order. Slots without trips are left out.
func AnalyzeTimes(weekdays, hours []IncomeBucket) TimeAnalysis {
	analysis := TimeAnalysis{
		DailyPatterns:  []WeekdayPattern{},
		HourlyPatterns: []HourPattern{},
	}
	for _, b := range mergeSlots(weekdays, 7) {
		analysis.DailyPatterns = append(analysis.DailyPatterns, WeekdayPattern{
			Day:       time.Weekday(b.Slot).String(),
			AvgIncome: AverageTripValue(b.Income, b.Trips),
			Trips:     b.Trips,
		})
	}
	for _, b := range mergeSlots(hours, 24) {
		analysis.HourlyPatterns = append(analysis.HourlyPatterns, HourPattern{
			Hour:      b.Slot,
			AvgIncome: AverageTripValue(b.Income, b.Trips),
			Trips:     b.Trips,
		})
	}
	return analysis
}

type DayIncome struct {
	Date   string          `json:"date"`
	Income decimal.Decimal `json:"income"`
	Trips  int64           `json:"trips"`
}

// BestIncomeDays returns the limit days with the highest income. Ties go to the earlier date.
func BestIncomeDays(days []DayIncome, limit int) []DayIncome {
	ranked := make([]DayIncome, len(days))
	copy(ranked, days)
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Income.Cmp(ranked[j].Income); c != 0 {
			return c > 0
		}
		return ranked[i].Date < ranked[j].Date
	})
	if limit >= 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

type VehicleIncome struct {
	VehicleId        int             `json:"vehicle_id"`
	Vehicle          string          `json:"vehicle"`
	Income           decimal.Decimal `json:"income"`
	Trips            int64           `json:"trips"`
	AverageTripValue decimal.Decimal `json:"avg_value"`
}

// RankVehicles fills in each vehicle's average trip value and orders them by
// income, highest first, then by vehicle id.
func RankVehicles(vehicles []VehicleIncome) []VehicleIncome {
	ranked := make([]VehicleIncome, len(vehicles))
	for i, v := range vehicles {
		v.AverageTripValue = AverageTripValue(v.Income, v.Trips)
		ranked[i] = v
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if c := ranked[i].Income.Cmp(ranked[j].Income); c != 0 {
			return c > 0
		}
		return ranked[i].VehicleId < ranked[j].VehicleId
	})
	return ranked
}

type PerformanceAnalysis struct {
	Year     int             `json:"year"`
	BestDays []DayIncome     `json:"best_days"`
	Vehicles []VehicleIncome `json:"vehicle_performance"`
}

func NewPerformanceAnalysis(year int, days []DayIncome, vehicles []VehicleIncome) PerformanceAnalysis {
	return PerformanceAnalysis{
		Year:     year,
		BestDays: BestIncomeDays(days, BestDaysLimit),
		Vehicles: RankVehicles(vehicles),
	}
}
