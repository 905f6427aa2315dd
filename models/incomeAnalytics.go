package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// localRecorded shifts date_recorded by the company's UTC offset so weekday,
// hour and date groups follow the company's clock. The offset is taken at
// the time of the query.
const localRecorded = "DATE_ADD(date_recorded, INTERVAL ? SECOND)"

func utcOffsetSeconds(loc *time.Location) int {
	if loc == nil {
		return 0
	}
	_, offset := time.Now().In(loc).Zone()
	return offset
}

func incomeRows(ctx context.Context, scope finance.Scope) *gorm.DB {
	return scoped(config.GetDB().WithContext(ctx).Model(&Income{}), scope)
}

// IncomeTimeBuckets groups every income row of scope by weekday (0 is Sunday)
// and by hour of day.
func IncomeTimeBuckets(ctx context.Context, scope finance.Scope, loc *time.Location) (weekdays, hours []finance.IncomeBucket, err error) {
	offset := utcOffsetSeconds(loc)
	err = incomeRows(ctx, scope).
		Select("DAYOFWEEK("+localRecorded+") - 1 AS slot, COALESCE(SUM(amount), 0) AS income, COUNT(*) AS trips", offset).
		Group("slot").
		Scan(&weekdays).Error
	if err != nil {
		return nil, nil, err
	}
	err = incomeRows(ctx, scope).
		Select("HOUR("+localRecorded+") AS slot, COALESCE(SUM(amount), 0) AS income, COUNT(*) AS trips", offset).
		Group("slot").
		Scan(&hours).Error
	if err != nil {
		return nil, nil, err
	}
	return weekdays, hours, nil
}

type dayIncomeRow struct {
	Day    time.Time
	Income decimal.Decimal
	Trips  int64
}

// IncomeByDay totals the scope's income per local calendar day in [from, to).
func IncomeByDay(ctx context.Context, scope finance.Scope, from, to time.Time, loc *time.Location) ([]finance.DayIncome, error) {
	var rows []dayIncomeRow
	err := incomeRows(ctx, scope).
		Select("DATE("+localRecorded+") AS day, COALESCE(SUM(amount), 0) AS income, COUNT(*) AS trips", utcOffsetSeconds(loc)).
		Where("date_recorded >= ? AND date_recorded < ?", from, to).
		Group("day").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	days := make([]finance.DayIncome, 0, len(rows))
	for _, r := range rows {
		days = append(days, finance.DayIncome{Date: r.Day.Format("2006-01-02"), Income: r.Income, Trips: r.Trips})
	}
	return days, nil
}

type vehicleIncomeRow struct {
	VehicleId int
	Income    decimal.Decimal
	Trips     int64
}

// IncomeByVehicle totals the scope's income per vehicle in [from, to).
// Rows without a vehicle are left out.
func IncomeByVehicle(ctx context.Context, scope finance.Scope, from, to time.Time) ([]finance.VehicleIncome, error) {
	var rows []vehicleIncomeRow
	err := incomeRows(ctx, scope).
		Select("vehicle_id, COALESCE(SUM(amount), 0) AS income, COUNT(*) AS trips").
		Where("vehicle_id IS NOT NULL").
		Where("date_recorded >= ? AND date_recorded < ?", from, to).
		Group("vehicle_id").
		Scan(&rows).Error
	if err != nil || len(rows) == 0 {
		return []finance.VehicleIncome{}, err
	}

	ids := make([]int, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.VehicleId)
	}
	var vehicles []Vehicle
	if err := config.GetDB().WithContext(ctx).Where("id IN ?", ids).Find(&vehicles).Error; err != nil {
		return nil, err
	}
	labels := make(map[int]string, len(vehicles))
	for _, v := range vehicles {
		labels[v.ID] = v.Label()
	}

	result := make([]finance.VehicleIncome, 0, len(rows))
	for _, r := range rows {
		label, ok := labels[r.VehicleId]
		if !ok {
			// vehicle of another company or deleted
			continue
		}
		result = append(result, finance.VehicleIncome{VehicleId: r.VehicleId, Vehicle: label, Income: r.Income, Trips: r.Trips})
	}
	return result, nil
}
