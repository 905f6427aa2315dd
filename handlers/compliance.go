package handlers

import (
	"net/http"
	"time"

	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"bitbucket.org/mmdatafocus/fleet_backend/workflow"
	"github.com/gin-gonic/gin"
)

func listAlerts(c *gin.Context) {
	var filter models.AlertFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, err := models.PaginateAlerts(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, "listAlerts", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func dismissAlert(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	alert, err := models.DismissAlert(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "dismissAlert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

func resolveAlert(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	alert, err := models.ResolveAlert(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "resolveAlert", err)
		return
	}
	c.JSON(http.StatusOK, alert)
}

// runComplianceSweep sweeps the caller's company on demand.
func runComplianceSweep(c *gin.Context) {
	companyId, ok := utils.GetCompanyIdFromContext(c.Request.Context())
	if !ok || companyId == "" {
		abortWithError(c, "runComplianceSweep", utils.ErrorCompanyRequired)
		return
	}
	results, err := workflow.SweepCompanies(c.Request.Context(), []string{companyId}, time.Now())
	if err != nil {
		abortWithError(c, "runComplianceSweep", err)
		return
	}
	c.JSON(http.StatusOK, results[0])
}

func outboxBacklog(c *gin.Context) {
	backlog, err := models.GetOutboxBacklog(c.Request.Context())
	if err != nil {
		abortWithError(c, "outboxBacklog", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"backlog": backlog, "stuck": backlog.Stuck()})
}

func requeueOutbox(c *gin.Context) {
	n, err := models.RequeueDeadNotifications(c.Request.Context())
	if err != nil {
		abortWithError(c, "requeueOutbox", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requeued": n})
}
