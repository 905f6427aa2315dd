package reports

import (
	"context"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
)

type BudgetPerformanceResponse struct {
	Budget      *models.Budget            `json:"budget"`
	Performance finance.BudgetPerformance `json:"performance"`
}

type BudgetVarianceResponse struct {
	Budget      *models.Budget               `json:"budget"`
	Performance finance.BudgetPerformance    `json:"performance"`
	Variance    finance.BudgetVarianceReport `json:"variance"`
}

func evaluateBudget(ctx context.Context, id int) (*models.Budget, finance.BudgetPerformance, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, finance.BudgetPerformance{}, utils.ErrorCompanyRequired
	}
	budget, err := models.GetBudget(ctx, id)
	if err != nil {
		return nil, finance.BudgetPerformance{}, err
	}
	today := models.CompanyToday(ctx, companyId, time.Now())
	key := reportCacheKey("BudgetPerformance", companyId, strconv.Itoa(id), today.Format("2006-01-02"))
	perf, err := cachedReport(ctx, "BudgetPerformance", key, func(ctx context.Context) (finance.BudgetPerformance, error) {
		return finance.EvaluateBudget(ctx, models.NewSummarizer(), budget.ToFinance(), today)
	})
	if err != nil {
		return nil, finance.BudgetPerformance{}, err
	}
	return budget, perf, nil
}

// GetBudgetPerformance measures a budget against actuals up to today.
func GetBudgetPerformance(ctx context.Context, id int) (*BudgetPerformanceResponse, error) {
	budget, perf, err := evaluateBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BudgetPerformanceResponse{Budget: budget, Performance: perf}, nil
}

func GetBudgetVariance(ctx context.Context, id int) (*BudgetVarianceResponse, error) {
	budget, perf, err := evaluateBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	return &BudgetVarianceResponse{
		Budget:      budget,
		Performance: perf,
		Variance:    finance.BudgetVariance(budget.ToFinance(), perf),
	}, nil
}

func BudgetVarianceWorkbook(ctx context.Context, id int) ([]byte, error) {
	resp, err := GetBudgetVariance(ctx, id)
	if err != nil {
		return nil, err
	}
	return BudgetWorkbook(resp.Variance)
}
