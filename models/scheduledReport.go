package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"gorm.io/gorm"
)

type ScheduledReport struct {
	ID          int               `gorm:"primary_key" json:"id"`
	CompanyId   string            `gorm:"size:64;index;not null" json:"company_id"`
	Name        string            `gorm:"size:100;not null" json:"name"`
	ReportType  ReportType        `gorm:"size:50;not null" json:"report_type"`
	Frequency   finance.Frequency `gorm:"size:20;not null" json:"frequency"`
	Recipients  string            `gorm:"type:text" json:"-"`
	Parameters  string            `gorm:"type:text" json:"-"`
	IsActive    *bool             `gorm:"not null;default:true;index:idx_report_due,priority:1" json:"is_active"`
	NextRun     time.Time         `gorm:"not null;index:idx_report_due,priority:2" json:"next_run"`
	LastRun     *time.Time        `json:"last_run"`
	LastFileUrl string            `gorm:"size:500" json:"last_file_url"`
	CreatedBy   int               `json:"created_by"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewScheduledReport struct {
	Name       string            `json:"name" binding:"required,max=100"`
	ReportType ReportType        `json:"report_type" binding:"required"`
	Frequency  finance.Frequency `json:"frequency" binding:"required,oneof=daily weekly monthly quarterly"`
	Recipients []string          `json:"recipients" binding:"dive,email"`
	Parameters map[string]string `json:"parameters"`
}

func (r ScheduledReport) GetCompanyId() string {
	return r.CompanyId
}

func (r ScheduledReport) RecipientList() []string {
	if r.Recipients == "" {
		return nil
	}
	return strings.Split(r.Recipients, ",")
}

func (r ScheduledReport) ParameterMap() map[string]string {
	m := map[string]string{}
	if r.Parameters != "" {
		_ = json.Unmarshal([]byte(r.Parameters), &m)
	}
	return m
}

// RunKey identifies one due run of the report, used as the idempotency message id.
func (r ScheduledReport) RunKey() string {
	return fmt.Sprintf("%d@%s", r.ID, r.NextRun.UTC().Format(time.RFC3339))
}

func CreateScheduledReport(ctx context.Context, input *NewScheduledReport) (*ScheduledReport, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	params := ""
	if len(input.Parameters) > 0 {
		b, err := json.Marshal(input.Parameters)
		if err != nil {
			return nil, err
		}
		params = string(b)
	}

	report := ScheduledReport{
		CompanyId:  companyId,
		Name:       input.Name,
		ReportType: input.ReportType,
		Frequency:  input.Frequency,
		Recipients: strings.Join(input.Recipients, ","),
		Parameters: params,
		IsActive:   utils.NewTrue(),
		NextRun:    finance.NextRunTime(input.Frequency, time.Now().UTC()),
		CreatedBy:  userId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, report.ID, &report, "scheduled report "+report.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(report); err != nil {
		return nil, err
	}
	return &report, nil
}

func ListScheduledReports(ctx context.Context) ([]*ScheduledReport, error) {
	return ListAllResource[ScheduledReport](ctx, "next_run")
}

func ToggleScheduledReport(ctx context.Context, id int, isActive bool) (*ScheduledReport, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	return ToggleActiveModel[ScheduledReport](ctx, companyId, id, isActive)
}

// DeleteScheduledReport removes a report schedule and returns the deleted row
// so the caller can clean up its last uploaded file.
func DeleteScheduledReport(ctx context.Context, id int) (*ScheduledReport, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	var report ScheduledReport
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("company_id = ?", companyId).First(&report, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&report).Error; err != nil {
			return err
		}
		return createHistory(tx, "DELETE", report.ID, "scheduled_reports", &report, nil, "deleted scheduled report "+report.Name)
	})
	if err != nil {
		return nil, err
	}
	return &report, RemoveRedisBoth(report)
}

// DueScheduledReports returns active reports of every company whose next run is at or before now.
func DueScheduledReports(ctx context.Context, now time.Time, limit int) ([]*ScheduledReport, error) {
	var results []*ScheduledReport
	err := config.GetDB().WithContext(utils.SetSkipTenantScopeInContext(ctx, true)).
		Where("is_active = ? AND next_run <= ?", true, now).
		Order("next_run, id").
		Limit(limit).
		Find(&results).Error
	return results, err
}

// MarkReportRun records a finished run and schedules the next one.
func MarkReportRun(ctx context.Context, report *ScheduledReport, ranAt time.Time, fileUrl string) error {
	next := finance.NextRunTime(report.Frequency, ranAt)
	err := config.GetDB().WithContext(ctx).Model(&ScheduledReport{}).
		Where("company_id = ? AND id = ?", report.CompanyId, report.ID).
		Updates(map[string]interface{}{
			"last_run":      ranAt,
			"next_run":      next,
			"last_file_url": fileUrl,
		}).Error
	if err != nil {
		return err
	}
	report.LastRun = &ranAt
	report.NextRun = next
	report.LastFileUrl = fileUrl
	return RemoveRedisBoth(*report)
}
