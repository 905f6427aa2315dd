package workflow

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	complianceLockTTL          = 2 * time.Minute
	complianceNoticeHandler    = "ComplianceNotifications"
	financialAlertsHandler     = "FinancialAlerts"
	dailyIdempotencyDateLayout = "2006-01-02"
)

type ComplianceSweepResult struct {
	CompanyId         string `json:"company_id"`
	AlertsCreated     int    `json:"alerts_created"`
	NotificationsSent int    `json:"notifications_sent"`
}

// RunComplianceSweep creates missing compliance alerts for one company and,
// once per company day, emits expiry warnings.
func RunComplianceSweep(ctx context.Context, companyId string, now time.Time) (ComplianceSweepResult, error) {
	result := ComplianceSweepResult{CompanyId: companyId}
	ctx = utils.SystemContext(ctx, companyId)

	err := utils.WithCompanyLock(ctx, companyId, "ComplianceSweep", complianceLockTTL, "Workflow", "RunComplianceSweep", func(ctx context.Context) error {
		today := models.CompanyToday(ctx, companyId, now)
		source := models.GormComplianceSource{}
		gen := finance.AlertGenerator{
			Source: source,
			Store:  models.GormAlertStore{},
			Now:    func() time.Time { return today },
		}
		created, err := gen.Generate(ctx, companyId)
		result.AlertsCreated = created
		if err != nil {
			return err
		}

		sent, err := runOncePerDay(ctx, gormJobLedger{}, companyId, complianceNoticeHandler, today, func(ctx context.Context, emitter finance.Emitter) error {
			notices, err := source.ExpiryNotices(ctx, companyId, today)
			if err != nil {
				return err
			}
			_, err = finance.EmitAll(ctx, emitter, finance.ComplianceNotifications(companyId, today, notices))
			return err
		})
		result.NotificationsSent = sent
		return err
	})
	return result, err
}

// RunFinancialAlerts checks every active budget covering today and emits
// budget warnings once per company day.
func RunFinancialAlerts(ctx context.Context, companyId string, now time.Time) (int, error) {
	ctx = utils.SystemContext(ctx, companyId)
	today := models.CompanyToday(ctx, companyId, now)
	return runOncePerDay(ctx, gormJobLedger{}, companyId, financialAlertsHandler, today, func(ctx context.Context, emitter finance.Emitter) error {
		budgets, err := models.ActiveBudgetsCovering(ctx, companyId, today)
		if err != nil {
			return err
		}
		summarizer := models.NewSummarizer()
		for _, b := range budgets {
			fb := b.ToFinance()
			perf, err := finance.EvaluateBudget(ctx, summarizer, fb, today)
			if err != nil {
				return err
			}
			if _, err := finance.EmitAll(ctx, emitter, finance.BudgetNotifications(fb, perf)); err != nil {
				return err
			}
		}
		return nil
	})
}

// runOncePerDay runs fn unless the handler already succeeded for the company on
// day. Notifications fn emits are stored only when the whole run succeeds, in
// the same transaction that marks it done. Returns how many were stored.
func runOncePerDay(ctx context.Context, ledger jobLedger, companyId, handler string, day time.Time, fn func(context.Context, finance.Emitter) error) (int, error) {
	run := JobRun{CompanyId: companyId, Job: handler, RunId: day.Format(dailyIdempotencyDateLayout)}
	skip, err := ledger.Begin(ctx, run)
	if err != nil || skip {
		return 0, err
	}
	buffer := &noticeBuffer{}
	err = fn(ctx, buffer)
	if err == nil {
		err = ledger.Commit(ctx, run, buffer.notices)
	}
	if err != nil {
		if markErr := ledger.Fail(ctx, run, err); markErr != nil {
			config.LogError(config.GetLogger(), "Workflow", handler, "Error marking job run failed", companyId, markErr)
		}
		return 0, err
	}
	return len(buffer.notices), nil
}

// SweepCompanies runs the compliance sweep and financial alerts for the given
// companies, or every active company when none are given. A failing company
// is logged and does not stop the others.
func SweepCompanies(ctx context.Context, companyIds []string, now time.Time) ([]ComplianceSweepResult, error) {
	logger := config.GetLogger()
	if len(companyIds) == 0 {
		ids, err := models.ActiveCompanyIds(ctx)
		if err != nil {
			return nil, err
		}
		companyIds = ids
	}

	var (
		results []ComplianceSweepResult
		errs    []error
	)
	for _, companyId := range companyIds {
		result, err := RunComplianceSweep(ctx, companyId, now)
		if err != nil {
			config.LogError(logger, "Workflow", "SweepCompanies", "compliance sweep failed", companyId, err)
			errs = append(errs, err)
			continue
		}
		budgetAlerts, err := RunFinancialAlerts(ctx, companyId, now)
		if err != nil {
			config.LogError(logger, "Workflow", "SweepCompanies", "financial alerts failed", companyId, err)
			errs = append(errs, err)
		}
		result.NotificationsSent += budgetAlerts
		results = append(results, result)

		logger.WithFields(logrus.Fields{
			"field":              "SweepCompanies",
			"company_id":         companyId,
			"alerts_created":     result.AlertsCreated,
			"notifications_sent": result.NotificationsSent,
		}).Info("compliance sweep finished")
	}
	return results, errors.Join(errs...)
}
