package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/models/reports"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/sirupsen/logrus"
)

const (
	scheduledReportHandler = "ScheduledReport"
	xlsxContentType        = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	DefaultDueReportBatch  = 100
)

var ErrNoBudgetToReport = errors.New("no active budget to report on")

type ScheduledReportRunSummary struct {
	Due       int `json:"due"`
	Generated int `json:"generated"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// buildReportWorkbook renders the workbook of one report run. ctx is scoped to the report's company.
func buildReportWorkbook(ctx context.Context, report *models.ScheduledReport, ranAt time.Time) ([]byte, error) {
	params := report.ParameterMap()
	switch report.ReportType {
	case models.ReportTypeFinancialSummary:
		months, _ := strconv.Atoi(params["months"])
		return reports.SummaryTrendWorkbook(ctx, months)
	case models.ReportTypePayroll:
		period := params["period"]
		if period == "" {
			period = finance.PeriodOf(ranAt.UTC()).AddMonths(-1).String()
		}
		return reports.PayrollPreviewWorkbook(ctx, period)
	case models.ReportTypeBudgetPerformance:
		budgetId, _ := strconv.Atoi(params["budget_id"])
		if budgetId == 0 {
			budgets, err := models.ActiveBudgetsCovering(ctx, report.CompanyId, models.CompanyToday(ctx, report.CompanyId, ranAt))
			if err != nil {
				return nil, err
			}
			if len(budgets) == 0 {
				return nil, ErrNoBudgetToReport
			}
			budgetId = budgets[0].ID
		}
		return reports.BudgetVarianceWorkbook(ctx, budgetId)
	default:
		return nil, fmt.Errorf("unsupported report type %q", report.ReportType)
	}
}

func reportObjectName(report *models.ScheduledReport, ranAt time.Time) string {
	file := reports.ExportFileName(string(report.ReportType), ranAt.UTC().Format("20060102T150405"))
	return fmt.Sprintf("reports/%s/%d/%s", report.CompanyId, report.ID, file)
}

// runScheduledReport generates, uploads and announces one due report. A report
// that cannot be built is still rescheduled so it does not block the queue.
func runScheduledReport(ctx context.Context, report *models.ScheduledReport, ranAt time.Time) (fileUrl string, err error) {
	ctx = utils.SystemContext(ctx, report.CompanyId)
	data, buildErr := buildReportWorkbook(ctx, report, ranAt)
	if buildErr == nil && utils.StorageConfigured() {
		fileUrl, err = utils.UploadBytesToGCS(ctx, reportObjectName(report, ranAt), data, xlsxContentType)
		if err != nil {
			return "", err
		}
	}
	if buildErr == nil {
		emitter := models.NotificationEmitter{}
		req := finance.ReportReadyNotification(report.CompanyId, report.Name, report.Frequency, string(report.ReportType), fileUrl)
		if err := emitter.Emit(ctx, req); err != nil {
			return "", err
		}
	}
	if err := models.MarkReportRun(ctx, report, ranAt, fileUrl); err != nil {
		return "", err
	}
	return fileUrl, buildErr
}

// ProcessScheduledReports runs every report due at now, across companies.
func ProcessScheduledReports(ctx context.Context, now time.Time, limit int) (ScheduledReportRunSummary, error) {
	logger := config.GetLogger()
	var summary ScheduledReportRunSummary
	if limit <= 0 {
		limit = DefaultDueReportBatch
	}
	due, err := models.DueScheduledReports(ctx, now, limit)
	if err != nil {
		return summary, err
	}
	summary.Due = len(due)

	for _, report := range due {
		runKey := report.RunKey()
		run := JobRun{CompanyId: report.CompanyId, Job: scheduledReportHandler, RunId: runKey}
		db := config.GetDB().WithContext(utils.SystemContext(ctx, report.CompanyId))
		skip, err := run.Begin(db)
		if errors.Is(err, ErrIdempotencyInProgress) || skip {
			summary.Skipped++
			continue
		}
		if err != nil {
			config.LogError(logger, "Workflow", "ProcessScheduledReports", "Error starting report run", runKey, err)
			summary.Failed++
			continue
		}

		fileUrl, err := runScheduledReport(ctx, report, now)
		if err != nil {
			summary.Failed++
			config.LogError(logger, "Workflow", "ProcessScheduledReports", "Error generating report", runKey, err)
			if markErr := run.Failed(db, err); markErr != nil {
				config.LogError(logger, "Workflow", "ProcessScheduledReports", "Error marking job run failed", runKey, markErr)
			}
			continue
		}
		if err := run.Succeeded(db); err != nil {
			config.LogError(logger, "Workflow", "ProcessScheduledReports", "Error marking job run succeeded", runKey, err)
		}
		summary.Generated++

		logger.WithFields(logrus.Fields{
			"field":       "ProcessScheduledReports",
			"company_id":  report.CompanyId,
			"report_id":   report.ID,
			"report_type": report.ReportType,
			"file_url":    fileUrl,
		}).Info("scheduled report generated")
	}
	return summary, nil
}
