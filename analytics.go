package main

import (
	"net/http"
	"strconv"

	"github.com/Wayles-D/Lead-Driven-Ecommerce/config"
	"github.com/Wayles-D/Lead-Driven-Ecommerce/models/reports"
	"github.com/gin-gonic/gin"
)

func analyticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))

		response, err := reports.GetRevenueAnalytics(c.Request.Context(), days)
		if err != nil {
			config.LogError(config.GetLogger(), "analytics.go", "analyticsHandler", "GetRevenueAnalytics", days, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, response)
	}
}

func analyticsExportHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.GetDB() == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "db is nil"})
			return
		}

		days, _ := strconv.Atoi(c.DefaultQuery("days", "30"))
		reports.ExportRevenueExcel(c.Request.Context(), c.Writer, days)
	}
}
