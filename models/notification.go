package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"gorm.io/gorm"
)

// Notification is both an inbox entry and an outbox row: the dispatcher
// publishes PENDING rows to Pub/Sub and records the outcome on the same row.
type Notification struct {
	ID          int                      `gorm:"primary_key" json:"id"`
	CompanyId   string                   `gorm:"size:64;index:idx_notification_inbox,priority:1;not null" json:"company_id"`
	UserId      *int                     `gorm:"index:idx_notification_inbox,priority:2" json:"user_id"`
	Title       string                   `gorm:"size:200;not null" json:"title"`
	Message     string                   `gorm:"type:text;not null" json:"message"`
	Type        finance.NotificationType `gorm:"size:20;not null" json:"notification_type"`
	Category    string                   `gorm:"size:50" json:"category"`
	Priority    finance.AlertPriority    `gorm:"size:20;not null;default:medium" json:"priority"`
	ActionUrl   string                   `gorm:"size:500" json:"action_url"`
	ActionText  string                   `gorm:"size:100" json:"action_text"`
	Metadata    string                   `gorm:"type:text" json:"-"`
	IsRead      *bool                    `gorm:"not null;default:false" json:"is_read"`
	ReadAt      *time.Time               `json:"read_at"`
	IsDismissed *bool                    `gorm:"not null;default:false" json:"is_dismissed"`
	ExpiresAt   *time.Time               `gorm:"index" json:"expires_at"`

	CorrelationId    string     `gorm:"size:64" json:"-"`
	PublishStatus    string     `gorm:"size:20;not null;default:PENDING;index:idx_notification_outbox,priority:1" json:"-"`
	PublishAttempts  int        `gorm:"not null;default:0" json:"-"`
	NextAttemptAt    *time.Time `gorm:"index:idx_notification_outbox,priority:2" json:"-"`
	LockedAt         *time.Time `json:"-"`
	LockedBy         *string    `gorm:"size:64" json:"-"`
	LastPublishError *string    `gorm:"type:text" json:"-"`
	PublishedAt      *time.Time `json:"-"`
	PubSubMessageId  *string    `gorm:"size:255" json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (n Notification) GetId() int {
	return n.ID
}

func (n Notification) GetCursor() string {
	return n.CreatedAt.Format(cursorTimeLayout)
}

// MetadataMap decodes the stored metadata; malformed data yields nil.
func (n Notification) MetadataMap() map[string]string {
	if n.Metadata == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(n.Metadata), &m); err != nil {
		return nil
	}
	return m
}

// MarshalJSON exposes metadata as an object.
func (n Notification) MarshalJSON() ([]byte, error) {
	type alias Notification
	return json.Marshal(struct {
		alias
		Metadata map[string]string `json:"metadata,omitempty"`
	}{alias(n), n.MetadataMap()})
}

// NewNotificationFromRequest maps an emitted request to a storable row.
func NewNotificationFromRequest(req finance.NotificationRequest, correlationId string) (Notification, error) {
	n := Notification{
		CompanyId:     req.CompanyId,
		UserId:        req.UserId,
		Title:         req.Title,
		Message:       req.Message,
		Type:          req.Type,
		Category:      req.Category,
		Priority:      req.Priority,
		ActionUrl:     req.ActionUrl,
		ActionText:    req.ActionText,
		ExpiresAt:     req.ExpiresAt,
		IsRead:        utils.NewFalse(),
		IsDismissed:   utils.NewFalse(),
		CorrelationId: correlationId,
		PublishStatus: OutboxPublishStatusPending,
	}
	if n.Type == "" {
		n.Type = finance.NotificationInfo
	}
	if n.Category == "" {
		n.Category = finance.CategoryGeneral
	}
	if n.Priority == "" {
		n.Priority = finance.PriorityMedium
	}
	if len(req.Metadata) > 0 {
		b, err := json.Marshal(req.Metadata)
		if err != nil {
			return n, err
		}
		n.Metadata = string(b)
	}
	return n, nil
}

// ConvertToNotificationMessage builds the Pub/Sub payload of a stored row.
func ConvertToNotificationMessage(n Notification) config.NotificationMessage {
	return config.NotificationMessage{
		ID:            n.ID,
		CompanyId:     n.CompanyId,
		UserId:        n.UserId,
		Title:         n.Title,
		Message:       n.Message,
		Type:          string(n.Type),
		Category:      n.Category,
		Priority:      string(n.Priority),
		ActionUrl:     n.ActionUrl,
		ActionText:    n.ActionText,
		Metadata:      n.MetadataMap(),
		CreatedAt:     n.CreatedAt,
		CorrelationId: n.CorrelationId,
	}
}

// NotificationEmitter stores requests as notifications; publishing happens later
// through the outbox dispatcher.
type NotificationEmitter struct {
	DB *gorm.DB
}

func (e NotificationEmitter) db(ctx context.Context) *gorm.DB {
	if e.DB != nil {
		return e.DB.WithContext(ctx)
	}
	return config.GetDB().WithContext(ctx)
}

func (e NotificationEmitter) Emit(ctx context.Context, req finance.NotificationRequest) error {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)
	n, err := NewNotificationFromRequest(req, correlationId)
	if err != nil {
		return err
	}
	return e.db(ctx).Create(&n).Error
}

// visibleTo limits notifications to what a user may see: owners see everything of
// the company, others see their own plus company-wide ones. Expired and dismissed rows are hidden.
func visibleTo(dbCtx *gorm.DB, ctx context.Context, companyId string) *gorm.DB {
	dbCtx = dbCtx.Where("company_id = ? AND is_dismissed = ?", companyId, false).
		Where("(expires_at IS NULL OR expires_at > ?)", time.Now().UTC())
	role, _ := utils.GetUserRoleFromContext(ctx)
	if UserRole(role) != UserRoleOwner && UserRole(role) != UserRoleAdmin {
		userId, _ := utils.GetUserIdFromContext(ctx)
		dbCtx = dbCtx.Where("(user_id = ? OR user_id IS NULL)", userId)
	}
	return dbCtx
}

func PaginateNotifications(ctx context.Context, unreadOnly bool, category *string, limit int, after *string) (*Connection[Notification], error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	dbCtx := visibleTo(config.GetDB().WithContext(ctx).Model(&Notification{}), ctx, companyId)
	if unreadOnly {
		dbCtx = dbCtx.Where("is_read = ?", false)
	}
	if category != nil && *category != "" {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[Notification](dbCtx, PageSize(limit), after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	return &Connection[Notification]{Edges: edges, PageInfo: pageInfo}, nil
}

func UnreadNotificationCount(ctx context.Context) (int64, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return 0, utils.ErrorCompanyRequired
	}
	var count int64
	err := visibleTo(config.GetDB().WithContext(ctx).Model(&Notification{}), ctx, companyId).
		Where("is_read = ?", false).
		Count(&count).Error
	return count, err
}

func updateVisibleNotification(ctx context.Context, id int, updates map[string]interface{}) (bool, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return false, utils.ErrorCompanyRequired
	}
	result := visibleTo(config.GetDB().WithContext(ctx).Model(&Notification{}), ctx, companyId).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, utils.ErrorRecordNotFound
	}
	return true, nil
}

func MarkNotificationRead(ctx context.Context, id int) (bool, error) {
	return updateVisibleNotification(ctx, id, map[string]interface{}{
		"is_read": true,
		"read_at": time.Now().UTC(),
	})
}

func DismissNotification(ctx context.Context, id int) (bool, error) {
	return updateVisibleNotification(ctx, id, map[string]interface{}{
		"is_dismissed": true,
	})
}

// MarkAllNotificationsRead returns the number of rows changed.
func MarkAllNotificationsRead(ctx context.Context) (int64, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return 0, utils.ErrorCompanyRequired
	}
	result := visibleTo(config.GetDB().WithContext(ctx).Model(&Notification{}), ctx, companyId).
		Where("is_read = ?", false).
		Updates(map[string]interface{}{"is_read": true, "read_at": time.Now().UTC()})
	return result.RowsAffected, result.Error
}
