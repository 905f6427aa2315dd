package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"gorm.io/gorm"
)

type ComplianceAlert struct {
	ID          int                   `gorm:"primary_key" json:"id"`
	CompanyId   string                `gorm:"size:64;index;not null" json:"company_id"`
	AlertType   finance.AlertType     `gorm:"size:50;not null" json:"alert_type"`
	EntityType  finance.EntityType    `gorm:"size:20;not null" json:"entity_type"`
	EntityId    int                   `gorm:"not null" json:"entity_id"`
	Title       string                `gorm:"size:200;not null" json:"title"`
	Description string                `gorm:"type:text" json:"description"`
	DueDate     time.Time             `gorm:"type:date;not null" json:"due_date"`
	Priority    finance.AlertPriority `gorm:"size:20;not null;default:medium" json:"priority"`
	Status      finance.AlertStatus   `gorm:"size:20;not null;default:active;index" json:"status"`
	// ActiveKey is set only while the alert is active; the unique index keeps
	// one active alert per company, type and entity.
	ActiveKey  *string    `gorm:"size:200;uniqueIndex:idx_alert_active" json:"-"`
	ResolvedAt *time.Time `json:"resolved_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a ComplianceAlert) GetCompanyId() string {
	return a.CompanyId
}

func (a ComplianceAlert) GetId() int {
	return a.ID
}

func (a ComplianceAlert) GetCursor() string {
	return a.CreatedAt.Format(cursorTimeLayout)
}

func activeAlertKey(companyId string, alertType finance.AlertType, entityType finance.EntityType, entityId int) string {
	return fmt.Sprintf("%s|%s|%s|%d", companyId, alertType, entityType, entityId)
}

// GormAlertStore is the MySQL AlertStore.
type GormAlertStore struct {
	DB *gorm.DB
}

func (s GormAlertStore) db(ctx context.Context) *gorm.DB {
	if s.DB != nil {
		return s.DB.WithContext(ctx)
	}
	return config.GetDB().WithContext(ctx)
}

func (s GormAlertStore) ActiveAlertExists(ctx context.Context, companyId string, alertType finance.AlertType, entityType finance.EntityType, entityId int) (bool, error) {
	var count int64
	err := s.db(ctx).Model(&ComplianceAlert{}).
		Where("company_id = ? AND alert_type = ? AND entity_type = ? AND entity_id = ? AND status = ?",
			companyId, alertType, entityType, entityId, finance.AlertStatusActive).
		Count(&count).Error
	return count > 0, err
}

func (s GormAlertStore) InsertAlert(ctx context.Context, alert finance.ComplianceAlert) (bool, error) {
	key := activeAlertKey(alert.CompanyId, alert.AlertType, alert.EntityType, alert.EntityId)
	row := ComplianceAlert{
		CompanyId:   alert.CompanyId,
		AlertType:   alert.AlertType,
		EntityType:  alert.EntityType,
		EntityId:    alert.EntityId,
		Title:       alert.Title,
		Description: alert.Description,
		DueDate:     alert.DueDate,
		Priority:    alert.Priority,
		Status:      finance.AlertStatusActive,
		ActiveKey:   &key,
	}
	if err := s.db(ctx).Create(&row).Error; err != nil {
		if IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// AlertFilter narrows the alert listing.
type AlertFilter struct {
	Status    *finance.AlertStatus   `form:"status"`
	Priority  *finance.AlertPriority `form:"priority"`
	AlertType *finance.AlertType     `form:"alert_type"`
	Limit     int                    `form:"limit"`
	After     *string                `form:"after"`
}

func PaginateAlerts(ctx context.Context, filter AlertFilter) (*Connection[ComplianceAlert], error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if filter.Status != nil && *filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", *filter.Status)
	}
	if filter.Priority != nil && *filter.Priority != "" {
		dbCtx = dbCtx.Where("priority = ?", *filter.Priority)
	}
	if filter.AlertType != nil && *filter.AlertType != "" {
		dbCtx = dbCtx.Where("alert_type = ?", *filter.AlertType)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[ComplianceAlert](dbCtx, PageSize(filter.Limit), filter.After, "created_at", "<")
	if err != nil {
		return nil, err
	}
	return &Connection[ComplianceAlert]{Edges: edges, PageInfo: pageInfo}, nil
}

func closeAlert(ctx context.Context, id int, status finance.AlertStatus) (*ComplianceAlert, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	var alert ComplianceAlert
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("company_id = ?", companyId).First(&alert, id).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	if alert.Status != finance.AlertStatusActive {
		return nil, ErrAlertNotActive
	}
	before := alert
	updates := map[string]interface{}{
		"status":     status,
		"active_key": nil,
	}
	var resolvedAt *time.Time
	if status == finance.AlertStatusResolved {
		now := time.Now().UTC()
		resolvedAt = &now
		updates["resolved_at"] = now
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&alert).Where("status = ?", finance.AlertStatusActive).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlertNotActive
		}
		return SaveHistoryUpdate(tx, alert.ID, &before, fmt.Sprintf("%s alert %q", status, alert.Title))
	})
	if err != nil {
		return nil, err
	}
	alert.Status = status
	alert.ActiveKey = nil
	alert.ResolvedAt = resolvedAt
	return &alert, nil
}

func DismissAlert(ctx context.Context, id int) (*ComplianceAlert, error) {
	return closeAlert(ctx, id, finance.AlertStatusDismissed)
}

func ResolveAlert(ctx context.Context, id int) (*ComplianceAlert, error) {
	return closeAlert(ctx, id, finance.AlertStatusResolved)
}

// CountActiveAlerts counts active alerts of a company by priority.
func CountActiveAlerts(ctx context.Context, companyId string) (map[finance.AlertPriority]int64, error) {
	var rows []struct {
		Priority finance.AlertPriority
		Count    int64
	}
	err := config.GetDB().WithContext(ctx).Model(&ComplianceAlert{}).
		Select("priority, COUNT(*) AS count").
		Where("company_id = ? AND status = ?", companyId, finance.AlertStatusActive).
		Group("priority").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[finance.AlertPriority]int64, len(rows))
	for _, r := range rows {
		counts[r.Priority] = r.Count
	}
	return counts, nil
}
