package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Budget targets never change after creation; performance is recomputed on read.
type Budget struct {
	ID             int                  `gorm:"primary_key" json:"id"`
	CompanyId      string               `gorm:"size:64;index;not null" json:"company_id"`
	Name           string               `gorm:"size:100;not null" json:"name"`
	BudgetType     BudgetType           `gorm:"size:20;not null" json:"budget_type"`
	PeriodStart    time.Time            `gorm:"type:date;not null" json:"period_start"`
	PeriodEnd      time.Time            `gorm:"type:date;not null" json:"period_end"`
	TargetRevenue  decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"target_revenue"`
	TargetExpenses decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"target_expenses"`
	TargetProfit   decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"target_profit"`
	TargetTrips    int64                `gorm:"default:0" json:"target_trips"`
	TargetDrivers  int64                `gorm:"default:0" json:"target_drivers"`
	Status         finance.BudgetStatus `gorm:"size:20;not null;default:active;index" json:"status"`
	CreatedBy      int                  `json:"created_by"`
	CreatedAt      time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBudget struct {
	Name           string          `json:"name" binding:"required,max=100"`
	BudgetType     BudgetType      `json:"budget_type" binding:"required,oneof=monthly quarterly annual"`
	PeriodStart    Date            `json:"period_start" binding:"required"`
	PeriodEnd      Date            `json:"period_end" binding:"required"`
	TargetRevenue  decimal.Decimal `json:"target_revenue"`
	TargetExpenses decimal.Decimal `json:"target_expenses"`
	TargetTrips    int64           `json:"target_trips" binding:"gte=0"`
	TargetDrivers  int64           `json:"target_drivers" binding:"gte=0"`
}

func (b Budget) GetCompanyId() string {
	return b.CompanyId
}

func (b Budget) ToFinance() finance.Budget {
	return finance.Budget{
		ID:             b.ID,
		CompanyId:      b.CompanyId,
		Name:           b.Name,
		PeriodStart:    b.PeriodStart,
		PeriodEnd:      b.PeriodEnd,
		TargetRevenue:  b.TargetRevenue,
		TargetExpenses: b.TargetExpenses,
		TargetProfit:   b.TargetProfit,
		TargetTrips:    b.TargetTrips,
		TargetDrivers:  b.TargetDrivers,
		Status:         b.Status,
	}
}

func (input *NewBudget) validate() error {
	if input.PeriodEnd.Time().Before(input.PeriodStart.Time()) {
		return ErrInvalidBudgetPeriod
	}
	if input.TargetRevenue.IsNegative() || input.TargetExpenses.IsNegative() {
		return fmt.Errorf("%w: targets must not be negative", ErrInvalidInput)
	}
	return nil
}

func CreateBudget(ctx context.Context, input *NewBudget) (*Budget, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, utils.ErrorCompanyRequired
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	budget := Budget{
		CompanyId:      companyId,
		Name:           input.Name,
		BudgetType:     input.BudgetType,
		PeriodStart:    input.PeriodStart.Time(),
		PeriodEnd:      input.PeriodEnd.Time(),
		TargetRevenue:  input.TargetRevenue,
		TargetExpenses: input.TargetExpenses,
		TargetProfit:   input.TargetRevenue.Sub(input.TargetExpenses),
		TargetTrips:    input.TargetTrips,
		TargetDrivers:  input.TargetDrivers,
		Status:         finance.BudgetStatusActive,
		CreatedBy:      userId,
	}

	db := config.GetDB()
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&budget).Error; err != nil {
			return err
		}
		return SaveHistoryCreate(tx, budget.ID, &budget, "created budget "+budget.Name)
	})
	if err != nil {
		return nil, err
	}
	if err := RemoveRedisBoth(budget); err != nil {
		return nil, err
	}
	return &budget, nil
}

func GetBudget(ctx context.Context, id int) (*Budget, error) {
	return GetResource[Budget](ctx, id)
}

func ListBudgets(ctx context.Context) ([]*Budget, error) {
	return ListAllResource[Budget](ctx, "period_start DESC")
}

// ActiveBudgetsCovering returns active budgets whose period contains today.
func ActiveBudgetsCovering(ctx context.Context, companyId string, today time.Time) ([]*Budget, error) {
	var results []*Budget
	day := finance.Day(today)
	err := config.GetDB().WithContext(ctx).
		Where("company_id = ? AND status = ? AND period_start <= ? AND period_end >= ?",
			companyId, finance.BudgetStatusActive, day, day).
		Order("id").
		Find(&results).Error
	return results, err
}
