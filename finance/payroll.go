package finance

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type ContractType string

const (
	ContractTypeMonthlyRental  ContractType = "monthly_rental"
	ContractTypeCommissionOnly ContractType = "commission_only"
	ContractTypeHybrid         ContractType = "hybrid"
	ContractTypeLeaseToOwn     ContractType = "lease_to_own"
)

func (t ContractType) Valid() bool {
	_, ok := baseRules[t]
	return ok
}

type ContractStatus string

const (
	ContractStatusActive     ContractStatus = "active"
	ContractStatusExpired    ContractStatus = "expired"
	ContractStatusTerminated ContractStatus = "terminated"
	ContractStatusPending    ContractStatus = "pending"
)

// DefaultTaxRate is the flat withholding applied to positive gross pay.
// Deployments override it with PayrollCalculator.TaxRate.
var DefaultTaxRate = decimal.RequireFromString("0.30")

// Contract carries the payroll terms of an employment contract.
// Rates are percentages in [0, 100].
type Contract struct {
	ID               int             `json:"id"`
	DriverId         int             `json:"driver_id"`
	CompanyId        string          `json:"company_id"`
	Type             ContractType    `json:"contract_type"`
	MonthlyFee       decimal.Decimal `json:"monthly_fee"`
	CommissionRate   decimal.Decimal `json:"commission_rate"`
	MinimumGuarantee decimal.Decimal `json:"minimum_guarantee"`
	BonusThreshold   decimal.Decimal `json:"bonus_threshold"`
	BonusRate        decimal.Decimal `json:"bonus_rate"`
	Status           ContractStatus  `json:"status"`
}

func (c Contract) Validate() error {
	if !c.Type.Valid() {
		return fmt.Errorf("%w: unknown contract type %q", ErrInvalidContract, c.Type)
	}
	for name, rate := range map[string]decimal.Decimal{
		"commission_rate": c.CommissionRate,
		"bonus_rate":      c.BonusRate,
	} {
		if rate.IsNegative() || rate.GreaterThan(hundred) {
			return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidContract, name)
		}
	}
	for name, amount := range map[string]decimal.Decimal{
		"monthly_fee":       c.MonthlyFee,
		"minimum_guarantee": c.MinimumGuarantee,
		"bonus_threshold":   c.BonusThreshold,
	} {
		if amount.IsNegative() {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidContract, name)
		}
	}
	return nil
}

// Performance is a driver's recorded result for one contract and month.
// Only revenue and deductions feed payroll.
type Performance struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Deductions   decimal.Decimal `json:"deductions"`
}

// PerformanceSource returns nil, nil when no record exists for the period.
type PerformanceSource interface {
	Performance(ctx context.Context, contract Contract, period Period) (*Performance, error)
}

type PayrollResult struct {
	ContractId          int             `json:"contract_id"`
	DriverId            int             `json:"driver_id"`
	ContractType        ContractType    `json:"contract_type"`
	Period              Period          `json:"period"`
	TotalRevenue        decimal.Decimal `json:"total_revenue"`
	BasePayment         decimal.Decimal `json:"base_payment"`
	CommissionToCompany decimal.Decimal `json:"commission_to_company"`
	BonusEarned         decimal.Decimal `json:"bonus_earned"`
	GrossPayment        decimal.Decimal `json:"gross_payment"`
	TaxRate             decimal.Decimal `json:"tax_rate"`
	TaxWithheld         decimal.Decimal `json:"tax_withheld"`
	OtherDeductions     decimal.Decimal `json:"other_deductions"`
	TotalDeductions     decimal.Decimal `json:"total_deductions"`
	NetPayment          decimal.Decimal `json:"net_payment"`
	HasPerformance      bool            `json:"has_performance"`
}

// baseRule returns the base payment and the commission kept by the company.
type baseRule func(c Contract, revenue decimal.Decimal) (base, commission decimal.Decimal)

func rentalBase(c Contract, revenue decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return revenue.Sub(c.MonthlyFee), decimal.Zero
}

func commissionOnlyBase(c Contract, revenue decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	commission := percentOf(revenue, c.CommissionRate)
	return revenue.Sub(commission), commission
}

func hybridBase(c Contract, revenue decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	commission := percentOf(revenue, c.CommissionRate)
	return c.MonthlyFee.Add(revenue.Sub(commission)), commission
}

var baseRules = map[ContractType]baseRule{
	ContractTypeMonthlyRental:  rentalBase,
	ContractTypeLeaseToOwn:     rentalBase,
	ContractTypeCommissionOnly: commissionOnlyBase,
	ContractTypeHybrid:         hybridBase,
}

// ComputePayroll applies the contract formula to one month of performance.
// It does not validate the contract; Calculate does.
func ComputePayroll(c Contract, period Period, perf Performance, taxRate decimal.Decimal) PayrollResult {
	revenue := perf.TotalRevenue
	base, commission := baseRules[c.Type](c, revenue)

	if c.MinimumGuarantee.IsPositive() && base.LessThan(c.MinimumGuarantee) {
		base = c.MinimumGuarantee
	}

	bonus := decimal.Zero
	if c.BonusThreshold.IsPositive() && revenue.GreaterThan(c.BonusThreshold) {
		bonus = percentOf(revenue.Sub(c.BonusThreshold), c.BonusRate)
	}

	gross := base.Add(bonus)
	tax := decimal.Zero
	if gross.IsPositive() {
		tax = gross.Mul(taxRate)
	}
	totalDeductions := tax.Add(perf.Deductions)
	net := gross.Sub(totalDeductions)
	if net.IsNegative() {
		net = decimal.Zero
	}

	return PayrollResult{
		ContractId:          c.ID,
		DriverId:            c.DriverId,
		ContractType:        c.Type,
		Period:              period,
		TotalRevenue:        revenue,
		BasePayment:         base,
		CommissionToCompany: commission,
		BonusEarned:         bonus,
		GrossPayment:        gross,
		TaxRate:             taxRate,
		TaxWithheld:         tax,
		OtherDeductions:     perf.Deductions,
		TotalDeductions:     totalDeductions,
		NetPayment:          net,
	}
}

type PayrollCalculator struct {
	Source PerformanceSource
	// TaxRate overrides DefaultTaxRate when Valid.
	TaxRate decimal.NullDecimal
}

func NewPayrollCalculator(source PerformanceSource, taxRate decimal.Decimal) *PayrollCalculator {
	return &PayrollCalculator{Source: source, TaxRate: decimal.NewNullDecimal(taxRate)}
}

func (pc *PayrollCalculator) taxRate() decimal.Decimal {
	if pc.TaxRate.Valid {
		return pc.TaxRate.Decimal
	}
	return DefaultTaxRate
}

// Calculate computes the payroll breakdown of contract for period.
// A missing performance record counts as zero revenue and zero deductions.
func (pc *PayrollCalculator) Calculate(ctx context.Context, c Contract, period Period) (PayrollResult, error) {
	if err := c.Validate(); err != nil {
		return PayrollResult{}, err
	}
	perf, err := pc.Source.Performance(ctx, c, period)
	if err != nil {
		return PayrollResult{}, err
	}
	input := Performance{}
	if perf != nil {
		input = *perf
	}
	result := ComputePayroll(c, period, input, pc.taxRate())
	result.HasPerformance = perf != nil
	return result, nil
}
