package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"gorm.io/gorm"
)

type History struct {
	ID            int       `gorm:"primary_key" json:"id"`
	CompanyId     string    `gorm:"size:64;index;not null" json:"company_id"`
	ActionType    string    `gorm:"size:20;not null" json:"action_type"`
	Before        string    `gorm:"type:text" json:"before"`
	After         string    `gorm:"type:text" json:"after"`
	Description   string    `gorm:"type:text;not null" json:"description"`
	ReferenceID   int       `gorm:"index" json:"reference_id"`
	ReferenceType string    `gorm:"size:255" json:"reference_type"`
	UserId        int       `gorm:"index;not null" json:"user_id"`
	UserName      string    `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (h History) GetId() int {
	return h.ID
}

func (h History) GetCursor() string {
	return h.CreatedAt.Format(cursorTimeLayout)
}

func createHistory(tx *gorm.DB,
	actionType string,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	ctx := tx.Statement.Context
	// get companyId, userId, userName from context
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return utils.ErrorCompanyRequired
	}
	userId, ok := utils.GetUserIdFromContext(ctx)
	if !ok {
		return utils.ErrorUserRequired
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	history := History{
		CompanyId:     companyId,
		ActionType:    actionType,
		Before:        string(b),
		After:         string(a),
		Description:   description,
		ReferenceID:   referenceId,
		ReferenceType: referenceType,
		UserId:        userId,
		UserName:      userName,
	}
	return tx.Create(&history).Error
}

func SaveHistoryCreate(tx *gorm.DB, id int, obj interface{}, description string) error {
	return createHistory(tx, "CREATE", id, tx.Statement.Table, nil, obj, description)
}

func SaveHistoryUpdate(tx *gorm.DB, id int, currentValue interface{}, description string) error {
	return createHistory(tx, "UPDATE", id, tx.Statement.Table, currentValue, tx.Statement.Dest, description)
}

// SaveHistoryAction records a domain action (payroll run, termination) that has no single row.
func SaveHistoryAction(tx *gorm.DB, actionType string, referenceType string, referenceId int, after interface{}, description string) error {
	return createHistory(tx, actionType, referenceId, referenceType, nil, after, description)
}

func PaginateHistory(ctx context.Context,
	limit int,
	after *string,
	referenceType *string,
	referenceID *int,
	actionType *string,
) (*Connection[History], error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}

	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if referenceType != nil && *referenceType != "" {
		dbCtx = dbCtx.Where("reference_type = ?", *referenceType)
	}
	if referenceID != nil && *referenceID > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", *referenceID)
	}
	if actionType != nil && *actionType != "" {
		dbCtx = dbCtx.Where("action_type = ?", *actionType)
	}

	edges, pageInfo, err := FetchPageCompositeCursor[History](dbCtx, PageSize(limit), after, "created_at", "<")
	if err != nil {
		return nil, err
	}
	return &Connection[History]{Edges: edges, PageInfo: pageInfo}, nil
}
