package handlers

import (
	"net/http"

	"pitstop/middleware"
	"pitstop/services/extension"

	"github.com/gin-gonic/gin"
)

// ExtensionSvc is wired in main.
var ExtensionSvc extension.Service

// CreateExtension handles POST /api/extensions.
func CreateExtension(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var in extension.CreateExtensionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	e, err := ExtensionSvc.Create(c.Request.Context(), actor, in)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

// ResolveExtension handles POST /api/extensions/:id/resolve with an approve
// flag and an optional reason (required on decline).
func ResolveExtension(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var in struct {
		Approve bool   `json:"approve"`
		Reason  string `json:"reason,omitempty"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	var err error
	var e interface{}
	if in.Approve {
		e, err = ExtensionSvc.Approve(c.Request.Context(), actor, c.Param("id"))
	} else {
		e, err = ExtensionSvc.Decline(c.Request.Context(), actor, c.Param("id"), in.Reason)
	}
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// CaptureExtension handles POST /api/extensions/:id/capture. It retries the
// capture of an approved extension, the same path the reconciliation worker
// takes.
func CaptureExtension(c *gin.Context) {
	e, err := ExtensionSvc.Capture(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ListExtensions handles GET /api/bookings/:id/extensions.
func ListExtensions(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	list, err := ExtensionSvc.ListByBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"extensions": list})
}
