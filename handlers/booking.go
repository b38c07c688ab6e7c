package handlers

import (
	"net/http"
	"time"

	"pitstop/middleware"
	"pitstop/models"
	"pitstop/services/booking"
	"pitstop/utils"

	"github.com/gin-gonic/gin"
)

// BookingSvc is wired in main.
var BookingSvc booking.Service

// CreateBooking handles POST /api/bookings.
func CreateBooking(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var in booking.CreateBookingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := BookingSvc.CreateBooking(c.Request.Context(), actor, in)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GetBooking handles GET /api/bookings/:id.
func GetBooking(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	b, err := BookingSvc.GetBooking(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBookings handles GET /api/bookings.
func ListBookings(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	userID := c.Query("user_id")
	if userID == "" {
		userID = actor.ID
	}
	list, err := BookingSvc.ListBookings(c.Request.Context(), actor, userID)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

// ConfirmPayment handles POST /api/bookings/:id/confirm-payment. Payment
// webhooks deliver at least once, so concurrent duplicates are serialized
// through an idempotency claim in the cache; the service itself is also
// idempotent on the payment reference.
func ConfirmPayment(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var in struct {
		PaymentRef string `json:"payment_ref"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	bookingID := c.Param("id")
	idemKey := "confirm:" + bookingID + ":" + in.PaymentRef
	claimed, err := utils.ClaimIdempotencyKey(c.Request.Context(), idemKey, 30*time.Second)
	if err == nil && !claimed {
		c.JSON(http.StatusConflict, gin.H{"error": "a confirmation for this payment is already in flight"})
		return
	}

	b, err := BookingSvc.ConfirmPayment(c.Request.Context(), actor, bookingID, in.PaymentRef)
	if err != nil {
		_ = utils.ReleaseIdempotencyKey(c.Request.Context(), idemKey)
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// AdvanceStatus handles POST /api/bookings/:id/advance.
func AdvanceStatus(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var in struct {
		Target models.BookingStatus `json:"target"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	b, err := BookingSvc.AdvanceStatus(c.Request.Context(), actor, c.Param("id"), in.Target)
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CompleteBooking handles POST /api/bookings/:id/complete.
func CompleteBooking(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	b, err := BookingSvc.Complete(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// CancelBooking handles POST /api/bookings/:id/cancel.
func CancelBooking(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	b, err := BookingSvc.Cancel(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
