package handlers

import (
	"bitbucket.org/mmdatafocus/fleet_backend/middlewares"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the REST API. Session middlewares must already be installed on the engine.
func RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/auth/register", register)
	api.POST("/auth/login", login)

	authed := api.Group("", middlewares.RequireAuth())
	authed.POST("/auth/logout", logout)

	manage := middlewares.RequirePermission(models.PermissionManageDrivers)
	contracts := middlewares.RequirePermission(models.PermissionEditContracts)
	finances := middlewares.RequirePermission(models.PermissionViewFinances)
	reportsOnly := middlewares.RequirePermission(models.PermissionViewReports)
	ownOrReports := middlewares.RequirePermission(models.PermissionViewReports, models.PermissionViewOwn)
	admin := middlewares.RequirePermission(models.PermissionManageAll)

	authed.GET("/drivers", manage, listDrivers)
	authed.POST("/drivers", manage, createDriver)
	authed.PUT("/drivers/:id/license", manage, updateLicense)

	authed.GET("/vehicles", listVehicles)
	authed.POST("/vehicles", manage, createVehicle)
	authed.GET("/vehicles/:id", getVehicle)
	authed.PUT("/vehicles/:id/active", manage, toggleVehicle)
	authed.GET("/maintenance", manage, listMaintenance)
	authed.POST("/maintenance", manage, createMaintenance)

	authed.GET("/incomes", listIncomes)
	authed.POST("/incomes", createIncome)
	authed.GET("/expenses", listExpenses)
	authed.POST("/expenses", createExpense)

	authed.GET("/contracts", contracts, listContracts)
	authed.POST("/contracts", contracts, createContract)
	authed.GET("/contracts/:id", contracts, getContract)
	authed.POST("/contracts/:id/terminate", contracts, terminateContract)
	authed.GET("/performance", ownOrReports, listPerformance)
	authed.POST("/performance", contracts, recordPerformance)

	authed.GET("/payroll/preview", contracts, previewPayroll)
	authed.GET("/payroll/export", contracts, exportPayroll)
	authed.POST("/payroll/process", contracts, processPayroll)
	authed.GET("/payments", contracts, listPayments)
	authed.POST("/payments/:id/paid", contracts, markPaymentPaid)
	authed.POST("/payments/:id/failed", contracts, markPaymentFailed)

	authed.GET("/compliance/alerts", manage, listAlerts)
	authed.POST("/compliance/alerts/:id/dismiss", manage, dismissAlert)
	authed.POST("/compliance/alerts/:id/resolve", manage, resolveAlert)
	authed.POST("/compliance/sweep", manage, runComplianceSweep)

	authed.GET("/budgets", finances, listBudgets)
	authed.POST("/budgets", finances, createBudget)
	authed.GET("/budgets/:id/performance", finances, budgetPerformance)
	authed.GET("/budgets/:id/variance", finances, budgetVariance)
	authed.GET("/budgets/:id/export", finances, exportBudget)

	authed.GET("/reports/summary", ownOrReports, monthlySummary)
	authed.GET("/reports/trend", ownOrReports, summaryTrend)
	authed.GET("/reports/trend/export", ownOrReports, exportSummaryTrend)
	authed.GET("/reports/overview", reportsOnly, overview)
	authed.GET("/reports/expenses", reportsOnly, expenseBreakdown)
	authed.GET("/reports/forecast", reportsOnly, forecast)
	authed.GET("/reports/time-analysis", ownOrReports, timeAnalysis)
	authed.GET("/reports/performance", ownOrReports, performanceAnalysis)
	authed.GET("/reports/scheduled", reportsOnly, listScheduledReports)
	authed.POST("/reports/scheduled", reportsOnly, createScheduledReport)
	authed.PUT("/reports/scheduled/:id/active", reportsOnly, toggleScheduledReport)
	authed.DELETE("/reports/scheduled/:id", reportsOnly, deleteScheduledReport)

	authed.GET("/notifications", listNotifications)
	authed.GET("/notifications/unread-count", unreadCount)
	authed.POST("/notifications/read-all", markAllNotificationsRead)
	authed.POST("/notifications/:id/read", markNotificationRead)
	authed.POST("/notifications/:id/dismiss", dismissNotification)

	authed.GET("/history", admin, listHistory)
	authed.GET("/ops/outbox", admin, outboxBacklog)
	authed.POST("/ops/outbox/requeue", admin, requeueOutbox)
}
