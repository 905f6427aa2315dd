package handlers

import (
	"net/http"
	"strconv"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/models/reports"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"github.com/gin-gonic/gin"
)

func listBudgets(c *gin.Context) {
	budgets, err := models.ListBudgets(c.Request.Context())
	if err != nil {
		abortWithError(c, "listBudgets", err)
		return
	}
	c.JSON(http.StatusOK, budgets)
}

func createBudget(c *gin.Context) {
	var input models.NewBudget
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	budget, err := models.CreateBudget(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createBudget", err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}

func budgetPerformance(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	resp, err := reports.GetBudgetPerformance(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "budgetPerformance", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func budgetVariance(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	resp, err := reports.GetBudgetVariance(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "budgetVariance", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func exportBudget(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	data, err := reports.BudgetVarianceWorkbook(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "exportBudget", err)
		return
	}
	sendWorkbook(c, reports.ExportFileName("budget", strconv.Itoa(id)), data)
}

func monthlySummary(c *gin.Context) {
	year, err := queryInt(c, "year", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	month, err := queryInt(c, "month", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	summary, err := reports.GetMonthlySummary(c.Request.Context(), year, time.Month(month))
	if err != nil {
		abortWithError(c, "monthlySummary", err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func overview(c *gin.Context) {
	resp, err := reports.GetOverview(c.Request.Context())
	if err != nil {
		abortWithError(c, "overview", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func timeAnalysis(c *gin.Context) {
	analysis, err := reports.GetTimeAnalysis(c.Request.Context())
	if err != nil {
		abortWithError(c, "timeAnalysis", err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func performanceAnalysis(c *gin.Context) {
	year, err := queryInt(c, "year", 0)
	if err != nil {
		badRequest(c, err)
		return
	}
	analysis, err := reports.GetPerformanceAnalysis(c.Request.Context(), year)
	if err != nil {
		abortWithError(c, "performanceAnalysis", err)
		return
	}
	c.JSON(http.StatusOK, analysis)
}

func summaryTrend(c *gin.Context) {
	months, err := queryInt(c, "months", 6)
	if err != nil {
		badRequest(c, err)
		return
	}
	trend, err := reports.GetSummaryTrend(c.Request.Context(), months)
	if err != nil {
		abortWithError(c, "summaryTrend", err)
		return
	}
	c.JSON(http.StatusOK, trend)
}

func exportSummaryTrend(c *gin.Context) {
	months, err := queryInt(c, "months", 6)
	if err != nil {
		badRequest(c, err)
		return
	}
	data, err := reports.SummaryTrendWorkbook(c.Request.Context(), months)
	if err != nil {
		abortWithError(c, "exportSummaryTrend", err)
		return
	}
	sendWorkbook(c, reports.ExportFileName("summary", time.Now().UTC().Format("2006-01-02")), data)
}

func expenseBreakdown(c *gin.Context) {
	rows, err := reports.GetExpenseBreakdown(c.Request.Context(), c.Query("period"))
	if err != nil {
		abortWithError(c, "expenseBreakdown", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func forecast(c *gin.Context) {
	months, err := queryInt(c, "months", reports.DefaultForecastMonths)
	if err != nil {
		badRequest(c, err)
		return
	}
	points, err := reports.GetForecast(c.Request.Context(), months)
	if err != nil {
		abortWithError(c, "forecast", err)
		return
	}
	c.JSON(http.StatusOK, points)
}

func listScheduledReports(c *gin.Context) {
	list, err := models.ListScheduledReports(c.Request.Context())
	if err != nil {
		abortWithError(c, "listScheduledReports", err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func createScheduledReport(c *gin.Context) {
	var input models.NewScheduledReport
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	report, err := models.CreateScheduledReport(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createScheduledReport", err)
		return
	}
	c.JSON(http.StatusCreated, report)
}

func toggleScheduledReport(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input activeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	report, err := models.ToggleScheduledReport(c.Request.Context(), id, *input.IsActive)
	if err != nil {
		abortWithError(c, "toggleScheduledReport", err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func deleteScheduledReport(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	report, err := models.DeleteScheduledReport(ctx, id)
	if err != nil {
		abortWithError(c, "deleteScheduledReport", err)
		return
	}
	if objectName, ok := utils.GCSObjectName(report.LastFileUrl); ok {
		if err := utils.DeleteObjectFromGCS(ctx, objectName); err != nil {
			config.LogError(config.GetLogger(), "handlers/planning.go", "deleteScheduledReport", "DeleteObjectFromGCS", objectName, err)
		}
	}
	c.Status(http.StatusNoContent)
}
