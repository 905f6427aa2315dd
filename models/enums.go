package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
)

type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleOwner   UserRole = "owner"
	UserRoleManager UserRole = "manager"
	UserRoleDriver  UserRole = "driver"
)

// convert input to enum type
func (r *UserRole) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("user role must be string")
	}
	switch str {
	case "owner":
		*r = UserRoleOwner
	case "manager":
		*r = UserRoleManager
	case "driver":
		*r = UserRoleDriver
	default:
		return errors.New("invalid user role")
	}
	return nil
}

type Permission string

const (
	PermissionManageAll     Permission = "manage_all"
	PermissionViewAll       Permission = "view_all"
	PermissionManageDrivers Permission = "manage_drivers"
	PermissionViewReports   Permission = "view_reports"
	PermissionEditContracts Permission = "edit_contracts"
	PermissionViewFinances  Permission = "view_finances"
	PermissionViewOwn       Permission = "view_own"
)

var rolePermissions = map[UserRole][]Permission{
	UserRoleOwner:   {PermissionManageAll, PermissionViewAll, PermissionManageDrivers, PermissionViewReports, PermissionEditContracts, PermissionViewFinances},
	UserRoleManager: {PermissionManageDrivers, PermissionViewReports, PermissionEditContracts, PermissionViewFinances},
	UserRoleDriver:  {PermissionViewOwn},
}

// HasPermission reports whether role grants permission. Admin is granted everything.
func (r UserRole) HasPermission(p Permission) bool {
	if r == UserRoleAdmin {
		return true
	}
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

type VehicleStatus string

const (
	VehicleStatusActive      VehicleStatus = "active"
	VehicleStatusMaintenance VehicleStatus = "maintenance"
	VehicleStatusRetired     VehicleStatus = "retired"
)

type PaymentType string

const (
	PaymentTypeSalary        PaymentType = "salary"
	PaymentTypeCommission    PaymentType = "commission"
	PaymentTypeBonus         PaymentType = "bonus"
	PaymentTypeDepositRefund PaymentType = "deposit_refund"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

type PaymentSchedule string

const (
	PaymentScheduleWeekly  PaymentSchedule = "weekly"
	PaymentScheduleMonthly PaymentSchedule = "monthly"
)

type BudgetType string

const (
	BudgetTypeMonthly   BudgetType = "monthly"
	BudgetTypeQuarterly BudgetType = "quarterly"
	BudgetTypeAnnual    BudgetType = "annual"
)

type MaintenanceType string

const (
	MaintenanceTypeService    MaintenanceType = "service"
	MaintenanceTypeRepair     MaintenanceType = "repair"
	MaintenanceTypeInspection MaintenanceType = "inspection"
)

type ReportType string

const (
	ReportTypeFinancialSummary  ReportType = "financial_summary"
	ReportTypePayroll           ReportType = "payroll"
	ReportTypeBudgetPerformance ReportType = "budget_performance"
)

// convert input to enum type
func (t *ReportType) UnmarshalJSON(b []byte) error {
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("report type must be string")
	}
	switch ReportType(str) {
	case ReportTypeFinancialSummary, ReportTypePayroll, ReportTypeBudgetPerformance:
		*t = ReportType(str)
	default:
		return errors.New("invalid report type")
	}
	return nil
}

func parseContractType(s string) (finance.ContractType, error) {
	t := finance.ContractType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid contract type %q", s)
	}
	return t, nil
}

// Date is a calendar date carried as "2006-01-02" in JSON and as DATE in MySQL.
type Date time.Time

func (d Date) Time() time.Time {
	return time.Time(d)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if time.Time(d).IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(time.Time(d).Format("2006-01-02"))
}

// Parse the string into time.Time object
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date(time.Time{})
		return nil
	}
	str, err := strconv.Unquote(string(b))
	if err != nil {
		return errors.New("date must be string")
	}
	t, err := time.Parse("2006-01-02", str)
	if err != nil {
		return errors.New("error parsing date, expected YYYY-MM-DD")
	}
	*d = Date(t)
	return nil
}

// Value implements the driver.Valuer interface
func (d Date) Value() (driver.Value, error) {
	return time.Time(d), nil
}

// Scan implements the sql.Scanner interface
func (d *Date) Scan(value interface{}) error {
	if value == nil {
		*d = Date(time.Time{})
		return nil
	}
	switch v := value.(type) {
	case time.Time:
		*d = Date(v)
	default:
		return fmt.Errorf("cannot convert %T to Date", value)
	}
	return nil
}

// DatePtr converts an optional Date to the *time.Time stored on models.
func DatePtr(d *Date) *time.Time {
	if d == nil || time.Time(*d).IsZero() {
		return nil
	}
	t := finance.Day(time.Time(*d))
	return &t
}
