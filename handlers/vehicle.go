package handlers

import (
	"net/http"

	"pitstop/middleware"
	"pitstop/services/user"

	"github.com/gin-gonic/gin"
)

// RegisterVehicle handles POST /api/vehicles.
func RegisterVehicle(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var in user.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	v, err := UserSvc.RegisterVehicle(c.Request.Context(), actor, in)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

// ListVehicles handles GET /api/vehicles.
func ListVehicles(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	list, err := UserSvc.ListVehicles(c.Request.Context(), actor)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": list})
}

// UpdateMileage handles PUT /api/vehicles/:id/mileage.
func UpdateMileage(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var in struct {
		Mileage int `json:"mileage"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	v, err := UserSvc.UpdateMileage(c.Request.Context(), actor, c.Param("id"), in.Mileage)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}
