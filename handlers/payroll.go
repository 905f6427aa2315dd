package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/fleet_backend/finance"
	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"bitbucket.org/mmdatafocus/fleet_backend/models/reports"
	"github.com/gin-gonic/gin"
)

type periodInput struct {
	Period string `json:"period" binding:"required"`
}

func listContracts(c *gin.Context) {
	driverId, err := optionalQueryInt(c, "driver_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var status *finance.ContractStatus
	if s := optionalQuery(c, "status"); s != nil {
		cs := finance.ContractStatus(*s)
		status = &cs
	}
	contracts, err := models.ListContracts(c.Request.Context(), driverId, status)
	if err != nil {
		abortWithError(c, "listContracts", err)
		return
	}
	c.JSON(http.StatusOK, contracts)
}

func createContract(c *gin.Context) {
	var input models.NewContract
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	contract, err := models.CreateContract(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createContract", err)
		return
	}
	c.JSON(http.StatusCreated, contract)
}

func getContract(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	contract, err := models.GetContract(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "getContract", err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func terminateContract(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	contract, err := models.TerminateContract(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "terminateContract", err)
		return
	}
	c.JSON(http.StatusOK, contract)
}

func recordPerformance(c *gin.Context) {
	var input models.NewDriverPerformance
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	perf, err := models.RecordPerformance(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "recordPerformance", err)
		return
	}
	c.JSON(http.StatusOK, perf)
}

// listPerformance shows drivers their own last months; others may filter by driver_id.
func listPerformance(c *gin.Context) {
	driverId, err := optionalQueryInt(c, "driver_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	rows, err := models.ListPerformance(c.Request.Context(), driverId)
	if err != nil {
		abortWithError(c, "listPerformance", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func previewPayroll(c *gin.Context) {
	results, err := reports.PreviewPayroll(c.Request.Context(), c.Query("period"))
	if err != nil {
		abortWithError(c, "previewPayroll", err)
		return
	}
	c.JSON(http.StatusOK, results)
}

func exportPayroll(c *gin.Context) {
	period := c.Query("period")
	data, err := reports.PayrollPreviewWorkbook(c.Request.Context(), period)
	if err != nil {
		abortWithError(c, "exportPayroll", err)
		return
	}
	sendWorkbook(c, reports.ExportFileName("payroll", period), data)
}

func processPayroll(c *gin.Context) {
	var input periodInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	run, err := reports.ProcessPayroll(c.Request.Context(), input.Period)
	if err != nil {
		abortWithError(c, "processPayroll", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func listPayments(c *gin.Context) {
	contractId, err := optionalQueryInt(c, "contract_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	var status *models.PaymentStatus
	if s := optionalQuery(c, "status"); s != nil {
		ps := models.PaymentStatus(*s)
		status = &ps
	}
	payments, err := models.ListPayments(c.Request.Context(), contractId, optionalQuery(c, "period"), status)
	if err != nil {
		abortWithError(c, "listPayments", err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func markPaymentPaid(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	payment, err := models.MarkPaymentPaid(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "markPaymentPaid", err)
		return
	}
	c.JSON(http.StatusOK, payment)
}

func markPaymentFailed(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	payment, err := models.MarkPaymentFailed(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "markPaymentFailed", err)
		return
	}
	c.JSON(http.StatusOK, payment)
}
