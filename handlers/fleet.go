package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"github.com/gin-gonic/gin"
)

func listVehicles(c *gin.Context) {
	vehicles, err := models.ListVehicles(c.Request.Context())
	if err != nil {
		abortWithError(c, "listVehicles", err)
		return
	}
	c.JSON(http.StatusOK, vehicles)
}

func createVehicle(c *gin.Context) {
	var input models.NewVehicle
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	vehicle, err := models.CreateVehicle(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createVehicle", err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

func getVehicle(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	vehicle, err := models.GetVehicle(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "getVehicle", err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func toggleVehicle(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input activeInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	vehicle, err := models.ToggleVehicle(c.Request.Context(), id, *input.IsActive)
	if err != nil {
		abortWithError(c, "toggleVehicle", err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

func listMaintenance(c *gin.Context) {
	vehicleId, err := optionalQueryInt(c, "vehicle_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	records, err := models.ListMaintenanceRecords(c.Request.Context(), vehicleId)
	if err != nil {
		abortWithError(c, "listMaintenance", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func createMaintenance(c *gin.Context) {
	var input models.NewMaintenanceRecord
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	record, err := models.CreateMaintenanceRecord(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createMaintenance", err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func listIncomes(c *gin.Context) {
	var filter models.LedgerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, err := models.PaginateIncomes(c.Request.Context(), filter)
	if err != nil {
		abortWithError(c, "listIncomes", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func createIncome(c *gin.Context) {
	var input models.NewIncome
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	income, err := models.CreateIncome(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createIncome", err)
		return
	}
	c.JSON(http.StatusCreated, income)
}

func listExpenses(c *gin.Context) {
	var filter models.LedgerFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		badRequest(c, err)
		return
	}
	page, err := models.PaginateExpenses(c.Request.Context(), filter, optionalQuery(c, "category"))
	if err != nil {
		abortWithError(c, "listExpenses", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func createExpense(c *gin.Context) {
	var input models.NewExpense
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	expense, err := models.CreateExpense(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createExpense", err)
		return
	}
	c.JSON(http.StatusCreated, expense)
}
