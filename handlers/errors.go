package handlers

import (
	"errors"
	"net/http"

	"bitbucket.org/mmdatafocus/fleet_backend/config"
	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/utils"
	"bitbucket.org/mmdatafocus/fleet_backend/workflow"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{utils.ErrorRecordNotFound, http.StatusNotFound},
	{gorm.ErrRecordNotFound, http.StatusNotFound},
	{utils.ErrorCompanyRequired, http.StatusUnauthorized},
	{utils.ErrorUserRequired, http.StatusUnauthorized},
	{models.ErrInvalidCredentials, http.StatusUnauthorized},
	{models.ErrUserDisabled, http.StatusForbidden},
	{utils.ErrorPermissionDenied, http.StatusForbidden},
	{models.ErrActiveContractExists, http.StatusConflict},
	{models.ErrDuplicatePayment, http.StatusConflict},
	{models.ErrContractNotActive, http.StatusConflict},
	{models.ErrPaymentNotPending, http.StatusConflict},
	{models.ErrAlertNotActive, http.StatusConflict},
	{utils.ErrorLockNotObtained, http.StatusConflict},
	{workflow.ErrIdempotencyInProgress, http.StatusConflict},
	{models.ErrAlreadyExists, http.StatusConflict},
	{models.ErrInvalidInput, http.StatusBadRequest},
	{models.ErrInvalidDriver, http.StatusBadRequest},
	{models.ErrInvalidBudgetPeriod, http.StatusBadRequest},
	{finance.ErrInvalidContract, http.StatusBadRequest},
	{finance.ErrInvalidPeriod, http.StatusBadRequest},
	{finance.ErrInvalidHorizon, http.StatusBadRequest},
	{finance.ErrInvalidScope, http.StatusBadRequest},
	{workflow.ErrNoBudgetToReport, http.StatusBadRequest},
	{utils.ErrorWeakPassword, http.StatusBadRequest},
	{utils.ErrorServiceNotReady, http.StatusServiceUnavailable},
}

func statusOf(err error) int {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// abortWithError writes err as JSON. Unexpected errors are logged and hidden.
func abortWithError(c *gin.Context, funcName string, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), "Handlers", funcName, c.Request.Method+" "+c.FullPath(), cid, err)
		c.AbortWithStatusJSON(status, gin.H{"error": "internal server error", "correlation_id": cid})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}

// badRequest is used for malformed bodies and query strings.
func badRequest(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
