package handlers

import (
	"net/http"

	"pitstop/middleware"
	"pitstop/services/privacy"

	"github.com/gin-gonic/gin"
)

// PrivacySvc is wired in main.
var PrivacySvc privacy.Service

// ExportData handles GET /api/privacy/export.
func ExportData(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	export, err := PrivacySvc.Export(c.Request.Context(), actor, actor.ID)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, export)
}

// RequestErasure handles POST /api/privacy/erase. The erasure runs in a
// single transaction; the response reports what was deleted or anonymized.
func RequestErasure(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	report, err := PrivacySvc.RequestErasure(c.Request.Context(), actor, actor.ID)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
