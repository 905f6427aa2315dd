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

type EmploymentContract struct {
	ID               int                    `gorm:"primary_key" json:"id"`
	CompanyId        string                 `gorm:"size:64;index;not null" json:"company_id"`
	DriverId         int                    `gorm:"index;not null" json:"driver_id"`
	ContractType     finance.ContractType   `gorm:"size:20;not null" json:"contract_type"`
	StartDate        time.Time              `gorm:"type:date;not null" json:"start_date"`
	EndDate          *time.Time             `gorm:"type:date" json:"end_date"`
	MonthlyFee       decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"monthly_fee"`
	CommissionRate   decimal.Decimal        `gorm:"type:decimal(7,4);default:0" json:"commission_rate"`
	MinimumGuarantee decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"minimum_guarantee"`
	BonusThreshold   decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"bonus_threshold"`
	BonusRate        decimal.Decimal        `gorm:"type:decimal(7,4);default:0" json:"bonus_rate"`
	SecurityDeposit  decimal.Decimal        `gorm:"type:decimal(20,4);default:0" json:"security_deposit"`
	PaymentSchedule  PaymentSchedule        `gorm:"size:20;default:monthly" json:"payment_schedule"`
	AutoRenew        *bool                  `gorm:"not null;default:false" json:"auto_renew"`
	Terms            string                 `gorm:"type:text" json:"terms"`
	SignedDate       *time.Time             `gorm:"type:date" json:"signed_date"`
	Status           finance.ContractStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	// ActiveDriverKey equals DriverId while the contract is active and NULL otherwise,
	// so the unique index allows one active contract per driver.
	ActiveDriverKey *int      `gorm:"uniqueIndex:idx_contract_active_driver" json:"-"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewContract struct {
	DriverId         int             `json:"driver_id" binding:"required"`
	ContractType     string          `json:"contract_type" binding:"required"`
	StartDate        Date            `json:"start_date" binding:"required"`
	EndDate          *Date           `json:"end_date"`
	MonthlyFee       decimal.Decimal `json:"monthly_fee"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	MinimumGuarantee decimal.Decimal `json:"minimum_guarantee"`
	BonusThreshold   decimal.Decimal `json:"bonus_threshold"`
	BonusRate        decimal.Decimal `json:"bonus_rate"`
	SecurityDeposit  decimal.Decimal `json:"security_deposit"`
	PaymentSchedule  PaymentSchedule `json:"payment_schedule"`
	AutoRenew        bool            `json:"auto_renew"`
	Terms            string          `json:"terms"`
	SignedDate       *Date           `json:"signed_date"`
}

func (c EmploymentContract) GetCompanyId() string {
	return c.CompanyId
}

// ToFinance returns the payroll terms of the contract.
func (c EmploymentContract) ToFinance() finance.Contract {
	return finance.Contract{
		ID:               c.ID,
		DriverId:         c.DriverId,
		CompanyId:        c.CompanyId,
		Type:             c.ContractType,
		MonthlyFee:       c.MonthlyFee,
		CommissionRate:   c.CommissionRate,
		MinimumGuarantee: c.MinimumGuarantee,
		BonusThreshold:   c.BonusThreshold,
		BonusRate:        c.BonusRate,
		Status:           c.Status,
	}
}

func (input *NewContract) validate(ctx context.Context, companyId string) (finance.ContractType, error) {
	contractType, err := parseContractType(input.ContractType)
	if err != nil {
		return "", err
	}
	terms := finance.Contract{
		Type:             contractType,
		MonthlyFee:       input.MonthlyFee,
		CommissionRate:   input.CommissionRate,
		MinimumGuarantee: input.MinimumGuarantee,
		BonusThreshold:   input.BonusThreshold,
		BonusRate:        input.BonusRate,
	}
	if err := terms.Validate(); err != nil {
		return "", err
	}
	if input.SecurityDeposit.IsNegative() {
		return "", fmt.Errorf("%w: security_deposit must not be negative", finance.ErrInvalidContract)
	}
	if input.EndDate != nil && input.EndDate.Time().Before(input.StartDate.Time()) {
		return "", fmt.Errorf("%w: end_date is before start_date", finance.ErrInvalidContract)
	}

	count, err := utils.ResourceCountWhere[User](ctx, companyId, "id = ? AND role = ?", input.DriverId, UserRoleDriver)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", ErrInvalidDriver
	}
	active, err := utils.ResourceCountWhere[EmploymentContract](ctx, companyId, "driver_id = ? AND status = ?", input.DriverId, finance.ContractStatusActive)
	if err != nil {
		return "", err
	}
	if active > 0 {
		return "", ErrActiveContractExists
	}
	return contractType, nil
}

func CreateContract(ctx context.Context, input *NewContract) (*EmploymentContract, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	contractType, err := input.validate(ctx, companyId)
	if err != nil {
		return nil, err
	}
	schedule := input.PaymentSchedule
	if schedule == "" {
		schedule = PaymentScheduleMonthly
	}
	driverKey := input.DriverId
	contract := EmploymentContract{
		CompanyId:        companyId,
		DriverId:         input.DriverId,
		ContractType:     contractType,
		StartDate:        input.StartDate.Time(),
		EndDate:          DatePtr(input.EndDate),
		MonthlyFee:       input.MonthlyFee,
		CommissionRate:   input.CommissionRate,
		MinimumGuarantee: input.MinimumGuarantee,
		BonusThreshold:   input.BonusThreshold,
		BonusRate:        input.BonusRate,
		SecurityDeposit:  input.SecurityDeposit,
		PaymentSchedule:  schedule,
		AutoRenew:        &input.AutoRenew,
		Terms:            input.Terms,
		SignedDate:       DatePtr(input.SignedDate),
		Status:           finance.ContractStatusActive,
		ActiveDriverKey:  &driverKey,
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&contract).Error; err != nil {
			if IsDuplicateKeyError(err) {
				return ErrActiveContractExists
			}
			return err
		}
		return SaveHistoryCreate(tx, contract.ID, &contract, fmt.Sprintf("created %s contract for driver #%d", contract.ContractType, contract.DriverId))
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

// TerminateContract ends an active contract today.
func TerminateContract(ctx context.Context, id int) (*EmploymentContract, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	var contract EmploymentContract
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("company_id = ?", companyId).First(&contract, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if contract.Status != finance.ContractStatusActive {
		return nil, ErrContractNotActive
	}
	before := contract
	today := CompanyToday(ctx, companyId, time.Now())

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// status guard keeps two concurrent terminations from both succeeding
		result := tx.Model(&contract).Where("status = ?", finance.ContractStatusActive).Updates(map[string]interface{}{
			"status":            finance.ContractStatusTerminated,
			"end_date":          today,
			"active_driver_key": gorm.Expr("NULL"),
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrContractNotActive
		}
		return SaveHistoryUpdate(tx, contract.ID, &before, fmt.Sprintf("terminated contract #%d", contract.ID))
	})
	if err != nil {
		return nil, err
	}
	contract.Status = finance.ContractStatusTerminated
	contract.EndDate = &today
	contract.ActiveDriverKey = nil
	if err := RemoveRedisBoth(contract); err != nil {
		return nil, err
	}
	return &contract, nil
}

func GetContract(ctx context.Context, id int) (*EmploymentContract, error) {
	return GetResource[EmploymentContract](ctx, id)
}

// ListContracts lists the company's contracts, optionally filtered by driver and status.
func ListContracts(ctx context.Context, driverId *int, status *finance.ContractStatus) ([]*EmploymentContract, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	var results []*EmploymentContract
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if driverId != nil && *driverId > 0 {
		dbCtx = dbCtx.Where("driver_id = ?", *driverId)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ActiveContracts returns the company's active contracts ordered by id.
func ActiveContracts(ctx context.Context, companyId string) ([]*EmploymentContract, error) {
	var results []*EmploymentContract
	err := config.GetDB().WithContext(ctx).
		Where("company_id = ? AND status = ?", companyId, finance.ContractStatusActive).
		Order("id").
		Find(&results).Error
	return results, err
}
