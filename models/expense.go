package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
)

type ExpenseApprovalStatus string

const (
	ExpenseApprovalPending  ExpenseApprovalStatus = "pending"
	ExpenseApprovalApproved ExpenseApprovalStatus = "approved"
	ExpenseApprovalRejected ExpenseApprovalStatus = "rejected"
)

type Expense struct {
	ID              int                   `gorm:"primary_key" json:"id"`
	UserId          int                   `gorm:"index:idx_expense_user_date,priority:1;not null" json:"user_id"`
	VehicleId       *int                  `gorm:"index" json:"vehicle_id"`
	Amount          decimal.Decimal       `gorm:"type:decimal(20,4);not null" json:"amount"`
	Category        string                `gorm:"size:50;not null" json:"category"`
	Subcategory     string                `gorm:"size:50" json:"subcategory"`
	Description     string                `gorm:"type:text" json:"description"`
	ReceiptNumber   string                `gorm:"size:100" json:"receipt_number"`
	Vendor          string                `gorm:"size:100" json:"vendor"`
	PaymentMethod   string                `gorm:"size:50" json:"payment_method"`
	IsTaxDeductible *bool                 `gorm:"not null;default:false" json:"is_tax_deductible"`
	ApprovalStatus  ExpenseApprovalStatus `gorm:"size:20;not null;default:approved" json:"approval_status"`
	DateRecorded    time.Time             `gorm:"index:idx_expense_user_date,priority:2;not null" json:"date_recorded"`
	CreatedAt       time.Time             `gorm:"autoCreateTime" json:"created_at"`
}

type NewExpense struct {
	UserId          *int            `json:"user_id"`
	VehicleId       *int            `json:"vehicle_id"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Category        string          `json:"category" binding:"required,max=50"`
	Subcategory     string          `json:"subcategory" binding:"max=50"`
	Description     string          `json:"description"`
	ReceiptNumber   string          `json:"receipt_number" binding:"max=100"`
	Vendor          string          `json:"vendor" binding:"max=100"`
	PaymentMethod   string          `json:"payment_method" binding:"max=50"`
	IsTaxDeductible bool            `json:"is_tax_deductible"`
	DateRecorded    *time.Time      `json:"date_recorded"`
}

func (e Expense) GetId() int {
	return e.ID
}

func (e Expense) GetCursor() string {
	return e.DateRecorded.Format(cursorTimeLayout)
}

func CreateExpense(ctx context.Context, input *NewExpense) (*Expense, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	if !input.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be greater than zero", ErrInvalidInput)
	}
	ownerId, err := ledgerOwner(ctx, companyId, input.UserId)
	if err != nil {
		return nil, err
	}
	if err := validateLedgerVehicle(ctx, companyId, input.VehicleId); err != nil {
		return nil, err
	}
	recorded := time.Now().UTC()
	if input.DateRecorded != nil {
		recorded = input.DateRecorded.UTC()
	}

	expense := Expense{
		UserId:          ownerId,
		VehicleId:       input.VehicleId,
		Amount:          input.Amount,
		Category:        input.Category,
		Subcategory:     input.Subcategory,
		Description:     input.Description,
		ReceiptNumber:   input.ReceiptNumber,
		Vendor:          input.Vendor,
		PaymentMethod:   input.PaymentMethod,
		IsTaxDeductible: &input.IsTaxDeductible,
		ApprovalStatus:  ExpenseApprovalApproved,
		DateRecorded:    recorded,
	}
	if err := config.GetDB().WithContext(ctx).Create(&expense).Error; err != nil {
		return nil, err
	}
	if err := RemoveLedgerCache(ctx, companyId, ownerId, recorded); err != nil {
		return nil, err
	}
	return &expense, nil
}

func PaginateExpenses(ctx context.Context, filter LedgerFilter, category *string) (*Connection[Expense], error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	dbCtx := applyLedgerFilter(config.GetDB().WithContext(ctx).Model(&Expense{}), ctx, companyId, filter)
	if category != nil && *category != "" {
		dbCtx = dbCtx.Where("category = ?", *category)
	}
	edges, pageInfo, err := FetchPageCompositeCursor[Expense](dbCtx, PageSize(filter.Limit), filter.After, "date_recorded", "<")
	if err != nil {
		return nil, err
	}
	return &Connection[Expense]{Edges: edges, PageInfo: pageInfo}, nil
}

// ExpenseCategoryTotal is one row of the category breakdown.
type ExpenseCategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int64           `json:"count"`
}

// ExpenseBreakdown groups a company's expenses in [from, to) by category.
func ExpenseBreakdown(ctx context.Context, companyId string, from, to time.Time) ([]ExpenseCategoryTotal, error) {
	var rows []ExpenseCategoryTotal
	db := config.GetDB().WithContext(ctx)
	err := companyUsers(db.Model(&Expense{}), companyId).
		Select("category, COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("date_recorded >= ? AND date_recorded < ?", from, to).
		Group("category").
		Order("total DESC").
		Scan(&rows).Error
	return rows, err
}
