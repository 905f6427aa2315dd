package models

import (
	"context"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
)

// RequeueDeadNotifications puts the company's DEAD notifications back to PENDING
// with a fresh attempt budget.
func RequeueDeadNotifications(ctx context.Context) (int64, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return 0, utils.ErrorCompanyRequired
	}

	res := config.GetDB().WithContext(ctx).
		Model(&Notification{}).
		Where("company_id = ? AND publish_status = ?", companyId, OutboxPublishStatusDead).
		Updates(map[string]interface{}{
			"locked_at":          nil,
			"locked_by":          nil,
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    nil,
			"last_publish_error": nil,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
