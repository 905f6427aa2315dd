package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"github.com/gin-gonic/gin"
)

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type licenseInput struct {
	LicenseNumber string      `json:"license_number" binding:"required"`
	LicenseExpiry models.Date `json:"license_expiry" binding:"required"`
}

func register(c *gin.Context) {
	var input models.NewRegistration
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	company, user, err := models.RegisterCompany(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "register", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"company": company, "user": user})
}

func login(c *gin.Context) {
	var input loginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	info, err := models.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		abortWithError(c, "login", err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func logout(c *gin.Context) {
	ok, err := models.Logout(c.Request.Context())
	if err != nil {
		abortWithError(c, "logout", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": ok})
}

func listDrivers(c *gin.Context) {
	drivers, err := models.ListDrivers(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		abortWithError(c, "listDrivers", err)
		return
	}
	c.JSON(http.StatusOK, drivers)
}

func createDriver(c *gin.Context) {
	var input models.NewDriver
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	driver, err := models.CreateDriver(c.Request.Context(), &input)
	if err != nil {
		abortWithError(c, "createDriver", err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

func updateLicense(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	var input licenseInput
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, err)
		return
	}
	driver, err := models.UpdateLicense(c.Request.Context(), id, input.LicenseNumber, input.LicenseExpiry)
	if err != nil {
		abortWithError(c, "updateLicense", err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

func listHistory(c *gin.Context) {
	limit, err := queryInt(c, "limit", models.DefaultPageSize)
	if err != nil {
		badRequest(c, err)
		return
	}
	referenceId, err := optionalQueryInt(c, "reference_id")
	if err != nil {
		badRequest(c, err)
		return
	}
	page, err := models.PaginateHistory(c.Request.Context(), limit, optionalQuery(c, "after"),
		optionalQuery(c, "reference_type"), referenceId, optionalQuery(c, "action_type"))
	if err != nil {
		abortWithError(c, "listHistory", err)
		return
	}
	c.JSON(http.StatusOK, page)
}
