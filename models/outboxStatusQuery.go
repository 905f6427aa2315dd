package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
)

func GetOutboxBacklog(ctx context.Context) (*OutboxBacklog, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}

	db := config.GetDB()
	var rows []struct {
		PublishStatus string
		Count         int64
	}
	if err := db.WithContext(ctx).Model(&Notification{}).
		Select("publish_status, COUNT(*) AS count").
		Where("company_id = ?", companyId).
		Group("publish_status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	backlog := OutboxBacklog{CompanyId: companyId, Counts: make(map[string]int64, len(rows))}
	for _, r := range rows {
		backlog.Counts[r.PublishStatus] = r.Count
	}

	var oldest struct {
		CreatedAt *time.Time
	}
	if err := db.WithContext(ctx).Model(&Notification{}).
		Select("MIN(created_at) AS created_at").
		Where("company_id = ? AND publish_status IN ?", companyId,
			[]string{OutboxPublishStatusPending, OutboxPublishStatusFailed, OutboxPublishStatusProcessing}).
		Scan(&oldest).Error; err != nil {
		return nil, err
	}
	backlog.OldestQueued = oldest.CreatedAt
	return &backlog, nil
}
