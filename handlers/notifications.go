package handlers

import (
	"net/http"

	"bitbucket.org/mmdatafocus/fleet_backend/models"
	"github.com/gin-gonic/gin"
)

func listNotifications(c *gin.Context) {
	limit, err := queryInt(c, "limit", models.DefaultPageSize)
	if err != nil {
		badRequest(c, err)
		return
	}
	page, err := models.PaginateNotifications(c.Request.Context(), c.Query("unread") == "true",
		optionalQuery(c, "category"), limit, optionalQuery(c, "after"))
	if err != nil {
		abortWithError(c, "listNotifications", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func unreadCount(c *gin.Context) {
	n, err := models.UnreadNotificationCount(c.Request.Context())
	if err != nil {
		abortWithError(c, "unreadCount", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": n})
}

func markNotificationRead(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	done, err := models.MarkNotificationRead(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "markNotificationRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": done})
}

func dismissNotification(c *gin.Context) {
	id, ok := pathId(c)
	if !ok {
		return
	}
	done, err := models.DismissNotification(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, "dismissNotification", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": done})
}

func markAllNotificationsRead(c *gin.Context) {
	n, err := models.MarkAllNotificationsRead(c.Request.Context())
	if err != nil {
		abortWithError(c, "markAllNotificationsRead", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}
