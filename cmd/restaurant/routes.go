package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fz-restaurant/internal/health"
	"fz-restaurant/internal/realtime"
)

func registerHealthRoutes(r *gin.Engine, checker *health.Checker, hub *realtime.Hub) {
	r.GET("/health", healthCheckHandler(checker))
	r.GET("/health/detailed", detailedHealthCheckHandler(checker, hub))
}

func healthCheckHandler(checker *health.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		report := checker.Check(ctx)

		httpStatus := http.StatusOK
		if !report.Healthy() {
			httpStatus = http.StatusServiceUnavailable
		}

		unavailable := []string{}
		for name, comp := range report.Components {
			if comp.Status == health.StatusUnavailable {
				unavailable = append(unavailable, name)
			}
		}

		c.JSON(httpStatus, gin.H{
			"status":               report.Status,
			"message":              "Server is running",
			"unavailable_services": unavailable,
			"timestamp":            report.Timestamp,
		})
	}
}

func detailedHealthCheckHandler(checker *health.Checker, hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		report := checker.Check(ctx)

		c.JSON(http.StatusOK, gin.H{
			"overall_status":    report.Status,
			"services":          report.Components,
			"websocket_clients": hub.Clients(),
			"timestamp":         report.Timestamp,
		})
	}
}
