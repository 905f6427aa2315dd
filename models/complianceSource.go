package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"gorm.io/gorm"
)

// GormComplianceSource reads expiring documents of active drivers and vehicles.
type GormComplianceSource struct {
	DB *gorm.DB
}

func (s GormComplianceSource) db(ctx context.Context) *gorm.DB {
	if s.DB != nil {
		return s.DB.WithContext(ctx)
	}
	return config.GetDB().WithContext(ctx)
}

func (s GormComplianceSource) activeDrivers(ctx context.Context, companyId string) *gorm.DB {
	return s.db(ctx).Model(&User{}).
		Where("company_id = ? AND role = ? AND is_active = ?", companyId, UserRoleDriver, true)
}

func (s GormComplianceSource) activeVehicles(ctx context.Context, companyId string) *gorm.DB {
	return s.db(ctx).Model(&Vehicle{}).
		Where("company_id = ? AND is_active = ?", companyId, true)
}

func (s GormComplianceSource) DriversWithLicenseExpiringBy(ctx context.Context, companyId string, cutoff time.Time) ([]finance.DriverExpiry, error) {
	var drivers []User
	if err := s.activeDrivers(ctx, companyId).
		Where("license_expiry IS NOT NULL AND license_expiry <= ?", cutoff).
		Order("license_expiry").
		Find(&drivers).Error; err != nil {
		return nil, err
	}
	out := make([]finance.DriverExpiry, 0, len(drivers))
	for _, d := range drivers {
		out = append(out, finance.DriverExpiry{DriverId: d.ID, Name: d.FullName(), LicenseExpiry: *d.LicenseExpiry})
	}
	return out, nil
}

func (s GormComplianceSource) vehicleDates(ctx context.Context, companyId string, column string, cutoff time.Time, pick func(Vehicle) *time.Time) ([]finance.VehicleDate, error) {
	var vehicles []Vehicle
	if err := s.activeVehicles(ctx, companyId).
		Where(column+" IS NOT NULL AND "+column+" <= ?", cutoff).
		Order(column).
		Find(&vehicles).Error; err != nil {
		return nil, err
	}
	out := make([]finance.VehicleDate, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, finance.VehicleDate{VehicleId: v.ID, Label: v.Label(), Date: *pick(v)})
	}
	return out, nil
}

func (s GormComplianceSource) VehiclesWithInsuranceExpiringBy(ctx context.Context, companyId string, cutoff time.Time) ([]finance.VehicleDate, error) {
	return s.vehicleDates(ctx, companyId, "insurance_expiry", cutoff, func(v Vehicle) *time.Time { return v.InsuranceExpiry })
}

func (s GormComplianceSource) VehiclesWithServiceDueBy(ctx context.Context, companyId string, cutoff time.Time) ([]finance.VehicleDate, error) {
	return s.vehicleDates(ctx, companyId, "next_service_due", cutoff, func(v Vehicle) *time.Time { return v.NextServiceDue })
}

// ExpiryNotices lists licences, insurance and registrations expiring after today
// and no later than today+30 days.
func (s GormComplianceSource) ExpiryNotices(ctx context.Context, companyId string, today time.Time) ([]finance.ExpiryNotice, error) {
	horizon := today.AddDate(0, 0, finance.ExpiryHorizonDays)
	var notices []finance.ExpiryNotice

	var drivers []User
	if err := s.activeDrivers(ctx, companyId).
		Where("license_expiry > ? AND license_expiry <= ?", today, horizon).
		Find(&drivers).Error; err != nil {
		return nil, err
	}
	for _, d := range drivers {
		notices = append(notices, finance.ExpiryNotice{Kind: finance.ExpiryLicense, EntityId: d.ID, Label: d.FullName(), ExpiresOn: *d.LicenseExpiry})
	}

	var vehicles []Vehicle
	if err := s.activeVehicles(ctx, companyId).
		Where("(insurance_expiry > ? AND insurance_expiry <= ?) OR (registration_expiry > ? AND registration_expiry <= ?)",
			today, horizon, today, horizon).
		Find(&vehicles).Error; err != nil {
		return nil, err
	}
	inWindow := func(t *time.Time) bool {
		return t != nil && t.After(today) && !t.After(horizon)
	}
	for _, v := range vehicles {
		if inWindow(v.InsuranceExpiry) {
			notices = append(notices, finance.ExpiryNotice{Kind: finance.ExpiryInsurance, EntityId: v.ID, Label: v.Label(), ExpiresOn: *v.InsuranceExpiry})
		}
		if inWindow(v.RegistrationExpiry) {
			notices = append(notices, finance.ExpiryNotice{Kind: finance.ExpiryRegistration, EntityId: v.ID, Label: v.Label(), ExpiresOn: *v.RegistrationExpiry})
		}
	}
	return notices, nil
}
