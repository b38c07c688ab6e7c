package handlers

import (
	"net/http"

	"pitstop/middleware"
	"pitstop/models"
	"pitstop/services/dispatch"

	"github.com/gin-gonic/gin"
)

// DispatchSvc is wired in main.
var DispatchSvc dispatch.Service

// GetAssignment handles GET /api/assignments/:id.
func GetAssignment(c *gin.Context) {
	if _, ok := middleware.GetActor(c); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	a, err := DispatchSvc.GetAssignment(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ClaimAssignment handles POST /api/assignments/:id/claim.
func ClaimAssignment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	a, err := DispatchSvc.Claim(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// CompleteHandover handles POST /api/assignments/:id/handover. The evidence
// photo and signature references are storage public IDs returned by the
// evidence upload endpoint.
func CompleteHandover(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var evidence models.HandoverEvidence
	if err := c.ShouldBindJSON(&evidence); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	a, err := DispatchSvc.CompleteHandover(c.Request.Context(), actor, c.Param("id"), evidence)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}
