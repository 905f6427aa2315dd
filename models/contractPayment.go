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

// ContractPayment is one payout line of a contract. A contract has at most one
// payment per reference period and payment type.
type ContractPayment struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CompanyId       string          `gorm:"size:64;index;not null" json:"company_id"`
	ContractId      int             `gorm:"not null;uniqueIndex:idx_payment_period_type,priority:1" json:"contract_id"`
	ReferencePeriod string          `gorm:"size:7;not null;uniqueIndex:idx_payment_period_type,priority:2" json:"reference_period"`
	PaymentType     PaymentType     `gorm:"size:20;not null;uniqueIndex:idx_payment_period_type,priority:3" json:"payment_type"`
	Amount          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	GrossAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"gross_amount"`
	TaxWithheld     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_withheld"`
	Deductions      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"deductions"`
	PaymentDate     time.Time       `gorm:"type:date;not null" json:"payment_date"`
	PaidDate        *time.Time      `gorm:"type:date" json:"paid_date"`
	PaymentMethod   string          `gorm:"size:50" json:"payment_method"`
	Status          PaymentStatus   `gorm:"size:20;not null;default:pending;index" json:"status"`
	Notes           string          `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (p ContractPayment) GetCompanyId() string {
	return p.CompanyId
}

// PayrollPayment builds the pending salary payment for a payroll result.
// Payroll runs only book results with a positive net payment; tax is zeroed
// for anything else.
func PayrollPayment(companyId string, result finance.PayrollResult, paymentDate time.Time) ContractPayment {
	payment := ContractPayment{
		CompanyId:       companyId,
		ContractId:      result.ContractId,
		ReferencePeriod: result.Period.String(),
		PaymentType:     PaymentTypeSalary,
		Amount:          result.NetPayment,
		GrossAmount:     result.GrossPayment,
		Deductions:      result.OtherDeductions,
		PaymentDate:     paymentDate,
		Status:          PaymentStatusPending,
		Notes:           fmt.Sprintf("Payroll for %s", result.Period),
	}
	if result.NetPayment.IsPositive() {
		payment.TaxWithheld = result.TaxWithheld
	}
	return payment
}

// PaymentExists reports whether the contract already has a payment of paymentType for period.
func PaymentExists(ctx context.Context, contractId int, period string, paymentType PaymentType) (bool, error) {
	var count int64
	err := config.GetDB().WithContext(ctx).Model(&ContractPayment{}).
		Where("contract_id = ? AND reference_period = ? AND payment_type = ?", contractId, period, paymentType).
		Count(&count).Error
	return count > 0, err
}

// InsertPayment stores a payment inside tx; a unique violation returns ErrDuplicatePayment.
func InsertPayment(tx *gorm.DB, payment *ContractPayment) error {
	if err := tx.Create(payment).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return ErrDuplicatePayment
		}
		return err
	}
	return nil
}

func setPaymentStatus(ctx context.Context, id int, status PaymentStatus, paidDate *time.Time) (*ContractPayment, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	var payment ContractPayment
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("company_id = ?", companyId).First(&payment, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if payment.Status != PaymentStatusPending {
		return nil, ErrPaymentNotPending
	}
	before := payment

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&payment).Where("status = ?", PaymentStatusPending).Updates(map[string]interface{}{
			"status":    status,
			"paid_date": paidDate,
		})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPaymentNotPending
		}
		return SaveHistoryUpdate(tx, payment.ID, &before, fmt.Sprintf("payment #%d marked %s", payment.ID, status))
	})
	if err != nil {
		return nil, err
	}
	payment.Status = status
	payment.PaidDate = paidDate
	return &payment, nil
}

func MarkPaymentPaid(ctx context.Context, id int) (*ContractPayment, error) {
	companyId, _ := utils.GetCompanyIdFromContext(ctx)
	today := CompanyToday(ctx, companyId, time.Now())
	return setPaymentStatus(ctx, id, PaymentStatusPaid, &today)
}

func MarkPaymentFailed(ctx context.Context, id int) (*ContractPayment, error) {
	return setPaymentStatus(ctx, id, PaymentStatusFailed, nil)
}

// ListPayments lists payments of the company, newest period first.
func ListPayments(ctx context.Context, contractId *int, period *string, status *PaymentStatus) ([]*ContractPayment, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if contractId != nil && *contractId > 0 {
		dbCtx = dbCtx.Where("contract_id = ?", *contractId)
	}
	if period != nil && *period != "" {
		dbCtx = dbCtx.Where("reference_period = ?", *period)
	}
	if status != nil && *status != "" {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	var results []*ContractPayment
	if err := dbCtx.Order("reference_period DESC, id").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
