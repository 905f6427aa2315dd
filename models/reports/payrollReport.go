package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("fleet_backend/reports")

const payrollLockTTL = 5 * time.Minute

// PayrollRunResult reports one payroll run. Skipped contracts already had a
// salary payment for the period; NothingToPay contracts earned nothing and got
// no payment, so a later run still picks them up.
type PayrollRunResult struct {
	Period           string                  `json:"period"`
	Processed        int                     `json:"processed"`
	Skipped          int                     `json:"skipped"`
	NothingToPay     int                     `json:"nothing_to_pay"`
	TotalNet         decimal.Decimal         `json:"total_net"`
	Results          []finance.PayrollResult `json:"results"`
	SkippedContracts []int                   `json:"skipped_contracts"`
	UnpaidContracts  []int                   `json:"unpaid_contracts"`
}

func (r *PayrollRunResult) add(result finance.PayrollResult) {
	r.Processed++
	r.TotalNet = r.TotalNet.Add(result.NetPayment)
	r.Results = append(r.Results, result)
}

func (r *PayrollRunResult) skip(contractId int) {
	r.Skipped++
	r.SkippedContracts = append(r.SkippedContracts, contractId)
}

func (r *PayrollRunResult) unpaid(contractId int) {
	r.NothingToPay++
	r.UnpaidContracts = append(r.UnpaidContracts, contractId)
}

// payable reports whether a calculated payroll result turns into a salary payment.
func payable(result finance.PayrollResult) bool {
	return result.NetPayment.IsPositive()
}

func newPayrollCalculator() *finance.PayrollCalculator {
	return finance.NewPayrollCalculator(models.GormPerformanceSource{}, config.PayrollTaxRate(finance.DefaultTaxRate))
}

// PreviewPayroll calculates every active contract of the company for period without writing anything.
func PreviewPayroll(ctx context.Context, periodStr string) ([]finance.PayrollResult, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	period, err := finance.ParsePeriod(periodStr)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "reports.PreviewPayroll", trace.WithAttributes(
		attribute.String("company_id", companyId),
		attribute.String("period", period.String()),
	))
	defer span.End()

	contracts, err := models.ActiveContracts(ctx, companyId)
	if err != nil {
		return nil, err
	}
	calc := newPayrollCalculator()
	results := make([]finance.PayrollResult, 0, len(contracts))
	for _, c := range contracts {
		result, err := calc.Calculate(ctx, c.ToFinance(), period)
		if err != nil {
			return nil, fmt.Errorf("contract %d: %w", c.ID, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// ProcessPayroll creates a pending salary payment for every active contract that
// has none for period yet and whose net payment is positive. Runs hold a
// per-company lock; contracts already paid are skipped.
func ProcessPayroll(ctx context.Context, periodStr string) (*PayrollRunResult, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	period, err := finance.ParsePeriod(periodStr)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "reports.ProcessPayroll", trace.WithAttributes(
		attribute.String("company_id", companyId),
		attribute.String("period", period.String()),
	))
	defer span.End()

	run := &PayrollRunResult{Period: period.String(), TotalNet: decimal.Zero}
	err = utils.WithCompanyLock(ctx, companyId, "PayrollRun", payrollLockTTL, "Reports", "ProcessPayroll", func(ctx context.Context) error {
		return processPayroll(ctx, companyId, period, run)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("processed", run.Processed),
		attribute.Int("skipped", run.Skipped),
		attribute.Int("nothing_to_pay", run.NothingToPay),
	)

	if err := invalidateCompanyReports(ctx, companyId); err != nil {
		config.LogError(config.GetLogger(), "Reports", "ProcessPayroll", "Error invalidating report cache", companyId, err)
	}
	return run, nil
}

func processPayroll(ctx context.Context, companyId string, period finance.Period, run *PayrollRunResult) error {
	logger := config.GetLogger()
	contracts, err := models.ActiveContracts(ctx, companyId)
	if err != nil {
		return err
	}
	calc := newPayrollCalculator()
	paymentDate := models.CompanyToday(ctx, companyId, time.Now())
	db := config.GetDB()

	for _, c := range contracts {
		exists, err := models.PaymentExists(ctx, c.ID, period.String(), models.PaymentTypeSalary)
		if err != nil {
			return err
		}
		if exists {
			run.skip(c.ID)
			continue
		}
		result, err := calc.Calculate(ctx, c.ToFinance(), period)
		if err != nil {
			return fmt.Errorf("contract %d: %w", c.ID, err)
		}
		if !payable(result) {
			run.unpaid(c.ID)
			continue
		}

		payment := models.PayrollPayment(companyId, result, paymentDate)
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := models.InsertPayment(tx, &payment); err != nil {
				return err
			}
			if err := models.SaveHistoryAction(tx, "PAYROLL", "employment_contracts", c.ID, &payment,
				fmt.Sprintf("payroll %s for contract #%d", period, c.ID)); err != nil {
				return err
			}
			emitter := models.NotificationEmitter{DB: tx}
			return emitter.Emit(ctx, finance.DriverPaymentNotification(companyId, c.DriverId, period, result.NetPayment))
		})
		if errors.Is(err, models.ErrDuplicatePayment) {
			run.skip(c.ID)
			continue
		}
		if err != nil {
			return err
		}
		run.add(result)
	}

	if run.Processed > 0 {
		emitter := models.NotificationEmitter{}
		if err := emitter.Emit(ctx, finance.PayrollNotification(companyId, period, run.Processed, run.TotalNet)); err != nil {
			return err
		}
	}

	logger.WithFields(logrus.Fields{
		"field":      "ProcessPayroll",
		"company_id": companyId,
		"period":     period.String(),
		"processed":  run.Processed,
		"skipped":    run.Skipped,
		"unpaid":     run.NothingToPay,
	}).Info("payroll run finished")
	return nil
}

// PayrollPreviewWorkbook exports the payroll preview of a period.
func PayrollPreviewWorkbook(ctx context.Context, periodStr string) ([]byte, error) {
	results, err := PreviewPayroll(ctx, periodStr)
	if err != nil {
		return nil, err
	}
	return PayrollWorkbook(results)
}
