package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MaintenanceRecord struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CompanyId       string          `gorm:"size:64;index;not null" json:"company_id"`
	VehicleId       int             `gorm:"index;not null" json:"vehicle_id"`
	MaintenanceType MaintenanceType `gorm:"size:50;not null" json:"maintenance_type"`
	Description     string          `gorm:"type:text;not null" json:"description"`
	Cost            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost"`
	Mileage         int             `json:"mileage"`
	ServiceProvider string          `gorm:"size:100" json:"service_provider"`
	ServiceDate     time.Time       `gorm:"type:date;not null" json:"service_date"`
	NextServiceDue  *time.Time      `gorm:"type:date" json:"next_service_due"`
	WarrantyExpiry  *time.Time      `gorm:"type:date" json:"warranty_expiry"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewMaintenanceRecord struct {
	VehicleId       int             `json:"vehicle_id" binding:"required"`
	MaintenanceType MaintenanceType `json:"maintenance_type" binding:"required,oneof=service repair inspection"`
	Description     string          `json:"description" binding:"required"`
	Cost            decimal.Decimal `json:"cost"`
	Mileage         int             `json:"mileage" binding:"gte=0"`
	ServiceProvider string          `json:"service_provider"`
	ServiceDate     Date            `json:"service_date" binding:"required"`
	NextServiceDue  *Date           `json:"next_service_due"`
	WarrantyExpiry  *Date           `json:"warranty_expiry"`
	Notes           string          `json:"notes"`
}

func (m MaintenanceRecord) GetCompanyId() string {
	return m.CompanyId
}

// CreateMaintenanceRecord stores the record and moves the vehicle's service dates
// forward. An open service_due alert for the vehicle is resolved when a new due date is set.
func CreateMaintenanceRecord(ctx context.Context, input *NewMaintenanceRecord) (*MaintenanceRecord, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	if input.Cost.IsNegative() {
		return nil, fmt.Errorf("%w: cost must not be negative", ErrInvalidInput)
	}
	vehicle, err := GetVehicle(ctx, input.VehicleId)
	if err != nil {
		return nil, err
	}

	record := MaintenanceRecord{
		CompanyId:       companyId,
		VehicleId:       vehicle.ID,
		MaintenanceType: input.MaintenanceType,
		Description:     input.Description,
		Cost:            input.Cost,
		Mileage:         input.Mileage,
		ServiceProvider: input.ServiceProvider,
		ServiceDate:     input.ServiceDate.Time(),
		NextServiceDue:  DatePtr(input.NextServiceDue),
		WarrantyExpiry:  DatePtr(input.WarrantyExpiry),
		Notes:           input.Notes,
	}

	vehicleUpdates := map[string]interface{}{}
	if vehicle.LastServiceDate == nil || record.ServiceDate.After(*vehicle.LastServiceDate) {
		vehicleUpdates["last_service_date"] = record.ServiceDate
	}
	if record.NextServiceDue != nil {
		vehicleUpdates["next_service_due"] = *record.NextServiceDue
	}
	if input.Mileage > vehicle.CurrentMileage {
		vehicleUpdates["current_mileage"] = input.Mileage
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&record).Error; err != nil {
			return err
		}
		if len(vehicleUpdates) > 0 {
			if err := tx.Model(&Vehicle{}).Where("company_id = ? AND id = ?", companyId, vehicle.ID).Updates(vehicleUpdates).Error; err != nil {
				return err
			}
		}
		if record.NextServiceDue != nil {
			if err := tx.Model(&ComplianceAlert{}).
				Where("company_id = ? AND alert_type = ? AND entity_type = ? AND entity_id = ? AND status = ?",
					companyId, finance.AlertTypeServiceDue, finance.EntityTypeVehicle, vehicle.ID, finance.AlertStatusActive).
				Updates(map[string]interface{}{
					"status":      finance.AlertStatusResolved,
					"active_key":  nil,
					"resolved_at": time.Now().UTC(),
				}).Error; err != nil {
				return err
			}
		}
		return SaveHistoryCreate(tx, record.ID, &record, fmt.Sprintf("%s for %s", record.MaintenanceType, vehicle.Label()))
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(*vehicle); err != nil {
		return nil, err
	}
	return &record, nil
}

func ListMaintenanceRecords(ctx context.Context, vehicleId *int) ([]*MaintenanceRecord, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if vehicleId != nil && *vehicleId > 0 {
		dbCtx = dbCtx.Where("vehicle_id = ?", *vehicleId)
	}
	var results []*MaintenanceRecord
	if err := dbCtx.Order("service_date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
