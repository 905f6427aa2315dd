package finance

import (
	"context"
	"fmt"
	"time"
)

type AlertType string

const (
	AlertTypeLicenseExpiry    AlertType = "license_expiry"
	AlertTypeInsuranceRenewal AlertType = "insurance_renewal"
	AlertTypeServiceDue       AlertType = "service_due"
)

type AlertPriority string

const (
	PriorityLow      AlertPriority = "low"
	PriorityMedium   AlertPriority = "medium"
	PriorityHigh     AlertPriority = "high"
	PriorityCritical AlertPriority = "critical"
)

type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "active"
	AlertStatusDismissed AlertStatus = "dismissed"
	AlertStatusResolved  AlertStatus = "resolved"
)

type EntityType string

const (
	EntityTypeDriver  EntityType = "driver"
	EntityTypeVehicle EntityType = "vehicle"
)

const (
	ExpiryHorizonDays    = 30
	licenseHighDays      = 7
	insuranceCriticalDay = 3
)

// DriverExpiry is an active driver whose licence expires on LicenseExpiry.
type DriverExpiry struct {
	DriverId      int
	Name          string
	LicenseExpiry time.Time
}

// VehicleDate is an active vehicle with one relevant date (insurance expiry or service due).
type VehicleDate struct {
	VehicleId int
	Label     string
	Date      time.Time
}

// ComplianceSource lists active drivers and vehicles of one company whose date
// is on or before cutoff. Inactive entities and other companies are never returned.
type ComplianceSource interface {
	DriversWithLicenseExpiringBy(ctx context.Context, companyId string, cutoff time.Time) ([]DriverExpiry, error)
	VehiclesWithInsuranceExpiringBy(ctx context.Context, companyId string, cutoff time.Time) ([]VehicleDate, error)
	VehiclesWithServiceDueBy(ctx context.Context, companyId string, cutoff time.Time) ([]VehicleDate, error)
}

type ComplianceAlert struct {
	CompanyId   string        `json:"company_id"`
	AlertType   AlertType     `json:"alert_type"`
	EntityType  EntityType    `json:"entity_type"`
	EntityId    int           `json:"entity_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	DueDate     time.Time     `json:"due_date"`
	Priority    AlertPriority `json:"priority"`
	Status      AlertStatus   `json:"status"`
}

// AlertStore persists alerts. InsertAlert reports created=false, err=nil when a
// uniqueness constraint rejected a duplicate active alert.
type AlertStore interface {
	ActiveAlertExists(ctx context.Context, companyId string, alertType AlertType, entityType EntityType, entityId int) (bool, error)
	InsertAlert(ctx context.Context, alert ComplianceAlert) (created bool, err error)
}

func dateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// LicenseAlert builds the alert for a driver licence expiring on or before today+30.
func LicenseAlert(companyId string, today time.Time, d DriverExpiry) ComplianceAlert {
	priority := PriorityMedium
	if !Day(d.LicenseExpiry).After(today.AddDate(0, 0, licenseHighDays)) {
		priority = PriorityHigh
	}
	return ComplianceAlert{
		CompanyId:   companyId,
		AlertType:   AlertTypeLicenseExpiry,
		EntityType:  EntityTypeDriver,
		EntityId:    d.DriverId,
		Title:       "Driver License Expiring Soon",
		Description: fmt.Sprintf("%s license expires on %s", d.Name, dateString(d.LicenseExpiry)),
		DueDate:     Day(d.LicenseExpiry),
		Priority:    priority,
		Status:      AlertStatusActive,
	}
}

func InsuranceAlert(companyId string, today time.Time, v VehicleDate) ComplianceAlert {
	priority := PriorityHigh
	if !Day(v.Date).After(today.AddDate(0, 0, insuranceCriticalDay)) {
		priority = PriorityCritical
	}
	return ComplianceAlert{
		CompanyId:   companyId,
		AlertType:   AlertTypeInsuranceRenewal,
		EntityType:  EntityTypeVehicle,
		EntityId:    v.VehicleId,
		Title:       "Vehicle Insurance Expiring",
		Description: fmt.Sprintf("%s insurance expires on %s", v.Label, dateString(v.Date)),
		DueDate:     Day(v.Date),
		Priority:    priority,
		Status:      AlertStatusActive,
	}
}

func ServiceDueAlert(companyId string, v VehicleDate) ComplianceAlert {
	return ComplianceAlert{
		CompanyId:   companyId,
		AlertType:   AlertTypeServiceDue,
		EntityType:  EntityTypeVehicle,
		EntityId:    v.VehicleId,
		Title:       "Vehicle Service Due",
		Description: fmt.Sprintf("%s service was due on %s", v.Label, dateString(v.Date)),
		DueDate:     Day(v.Date),
		Priority:    PriorityMedium,
		Status:      AlertStatusActive,
	}
}

type AlertGenerator struct {
	Source ComplianceSource
	Store  AlertStore
	Now    func() time.Time
}

func (g *AlertGenerator) today() time.Time {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	return Day(now().UTC())
}

// Candidates returns every alert the company currently qualifies for,
// before deduplication.
func (g *AlertGenerator) Candidates(ctx context.Context, companyId string) ([]ComplianceAlert, error) {
	if companyId == "" {
		return nil, ErrInvalidScope
	}
	today := g.today()
	horizon := today.AddDate(0, 0, ExpiryHorizonDays)

	drivers, err := g.Source.DriversWithLicenseExpiringBy(ctx, companyId, horizon)
	if err != nil {
		return nil, err
	}
	insured, err := g.Source.VehiclesWithInsuranceExpiringBy(ctx, companyId, horizon)
	if err != nil {
		return nil, err
	}
	serviceDue, err := g.Source.VehiclesWithServiceDueBy(ctx, companyId, today)
	if err != nil {
		return nil, err
	}

	alerts := make([]ComplianceAlert, 0, len(drivers)+len(insured)+len(serviceDue))
	for _, d := range drivers {
		alerts = append(alerts, LicenseAlert(companyId, today, d))
	}
	for _, v := range insured {
		alerts = append(alerts, InsuranceAlert(companyId, today, v))
	}
	for _, v := range serviceDue {
		alerts = append(alerts, ServiceDueAlert(companyId, v))
	}
	return alerts, nil
}

// Generate inserts alerts that have no active counterpart and returns how many were created.
func (g *AlertGenerator) Generate(ctx context.Context, companyId string) (int, error) {
	candidates, err := g.Candidates(ctx, companyId)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, alert := range candidates {
		exists, err := g.Store.ActiveAlertExists(ctx, alert.CompanyId, alert.AlertType, alert.EntityType, alert.EntityId)
		if err != nil {
			return created, err
		}
		if exists {
			continue
		}
		ok, err := g.Store.InsertAlert(ctx, alert)
		if err != nil {
			return created, err
		}
		if ok {
			created++
		}
	}
	return created, nil
}
