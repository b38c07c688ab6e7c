package handlers

import (
	"net/http"

	"pitstop/utils"

	"github.com/gin-gonic/gin"
)

// HealthCheck handles GET /health with the latest monitor snapshot.
func HealthCheck(c *gin.Context) {
	status := utils.GetHealthStatus()

	httpStatus := http.StatusOK
	if !status.CheckedAt.IsZero() && !status.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}
	c.JSON(httpStatus, status)
}
