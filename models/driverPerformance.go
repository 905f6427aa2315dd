package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DriverPerformance struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CompanyId       string          `gorm:"size:64;index;not null" json:"company_id"`
	DriverId        int             `gorm:"not null;uniqueIndex:idx_performance_month,priority:1" json:"driver_id"`
	ContractId      int             `gorm:"not null;uniqueIndex:idx_performance_month,priority:2" json:"contract_id"`
	Year            int             `gorm:"not null;uniqueIndex:idx_performance_month,priority:3" json:"year"`
	Month           int             `gorm:"not null;uniqueIndex:idx_performance_month,priority:4" json:"month"`
	TotalRevenue    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_revenue"`
	TotalTrips      int             `gorm:"default:0" json:"total_trips"`
	TotalHours      decimal.Decimal `gorm:"type:decimal(10,2);default:0" json:"total_hours"`
	TotalDistance   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total_distance"`
	AverageRating   decimal.Decimal `gorm:"type:decimal(3,2);default:0" json:"average_rating"`
	FuelCosts       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"fuel_costs"`
	MaintenanceCost decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"maintenance_costs"`
	Deductions      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"deductions"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewDriverPerformance struct {
	ContractId      int             `json:"contract_id" binding:"required"`
	Period          string          `json:"period" binding:"required"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalTrips      int             `json:"total_trips" binding:"gte=0"`
	TotalHours      decimal.Decimal `json:"total_hours"`
	TotalDistance   decimal.Decimal `json:"total_distance"`
	AverageRating   decimal.Decimal `json:"average_rating"`
	FuelCosts       decimal.Decimal `json:"fuel_costs"`
	MaintenanceCost decimal.Decimal `json:"maintenance_costs"`
	Deductions      decimal.Decimal `json:"deductions"`
}

// RecordPerformance inserts or replaces the month's performance of a contract.
func RecordPerformance(ctx context.Context, input *NewDriverPerformance) (*DriverPerformance, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	period, err := finance.ParsePeriod(input.Period)
	if err != nil {
		return nil, err
	}
	if input.TotalRevenue.IsNegative() || input.Deductions.IsNegative() {
		return nil, fmt.Errorf("%w: revenue and deductions must not be negative", ErrInvalidInput)
	}
	contract, err := GetContract(ctx, input.ContractId)
	if err != nil {
		return nil, err
	}

	perf := DriverPerformance{
		CompanyId:       companyId,
		DriverId:        contract.DriverId,
		ContractId:      contract.ID,
		Year:            period.Year,
		Month:           int(period.Month),
		TotalRevenue:    input.TotalRevenue,
		TotalTrips:      input.TotalTrips,
		TotalHours:      input.TotalHours,
		TotalDistance:   input.TotalDistance,
		AverageRating:   input.AverageRating,
		FuelCosts:       input.FuelCosts,
		MaintenanceCost: input.MaintenanceCost,
		Deductions:      input.Deductions,
	}
	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(performanceUpsert).Create(&perf).Error; err != nil {
			return err
		}
		// the upsert leaves perf.ID unreliable when an existing month was updated
		var stored DriverPerformance
		if err := tx.Where("driver_id = ? AND contract_id = ? AND year = ? AND month = ?",
			perf.DriverId, perf.ContractId, perf.Year, perf.Month).
			Take(&stored).Error; err != nil {
			return err
		}
		perf = stored
		return SaveHistoryCreate(tx, perf.ID, &perf, "recorded performance for "+period.String())
	})
	if err != nil {
		return nil, err
	}
	return &perf, nil
}

// performanceUpsertColumns are overwritten when a month is recorded again.
// id, company_id and created_at keep their first values.
var performanceUpsertColumns = []string{
	"total_revenue",
	"total_trips",
	"total_hours",
	"total_distance",
	"average_rating",
	"fuel_costs",
	"maintenance_cost",
	"deductions",
	"updated_at",
}

var performanceUpsert = clause.OnConflict{
	Columns: []clause.Column{
		{Name: "driver_id"},
		{Name: "contract_id"},
		{Name: "year"},
		{Name: "month"},
	},
	DoUpdates: clause.AssignmentColumns(performanceUpsertColumns),
}

const (
	driverPerformanceMonths = 12
	companyPerformanceRows  = 50
)

// ListPerformance returns recorded monthly performance, newest first. Drivers
// see their own last 12 months; owners and managers see the same for driverId,
// or the company's latest 50 rows when driverId is nil.
func ListPerformance(ctx context.Context, driverId *int) ([]*DriverPerformance, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	limit := companyPerformanceRows
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)

	role, _ := utils.GetUserRoleFromContext(ctx)
	if UserRole(role) == UserRoleDriver {
		userId, ok := utils.GetUserIdFromContext(ctx)
		if !ok || userId == 0 {
			return nil, utils.ErrorUserRequired
		}
		driverId = &userId
	}
	if driverId != nil && *driverId > 0 {
		dbCtx = dbCtx.Where("driver_id = ?", *driverId)
		limit = driverPerformanceMonths
	}

	var results []*DriverPerformance
	err := dbCtx.Order("year DESC, month DESC, id DESC").Limit(limit).Find(&results).Error
	return results, err
}

// GormPerformanceSource reads DriverPerformance rows for the payroll calculator.
type GormPerformanceSource struct {
	DB *gorm.DB
}

func (s GormPerformanceSource) db() *gorm.DB {
	if s.DB != nil {
		return s.DB
	}
	return config.GetDB()
}

func (s GormPerformanceSource) Performance(ctx context.Context, contract finance.Contract, period finance.Period) (*finance.Performance, error) {
	var row DriverPerformance
	err := s.db().WithContext(ctx).
		Where("company_id = ? AND driver_id = ? AND contract_id = ? AND year = ? AND month = ?",
			contract.CompanyId, contract.DriverId, contract.ID, period.Year, int(period.Month)).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &finance.Performance{
		TotalRevenue: row.TotalRevenue,
		Deductions:   row.Deductions,
	}, nil
}
