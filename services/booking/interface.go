package booking

import (
	"context"

	"pitstop/models"
)

// CreateBookingInput is the customer-supplied booking request. Prices are
// never part of the input; the pricing engine computes them server-side.
type CreateBookingInput struct {
	VehicleID      string               `json:"vehicle_id"`
	Services       []models.ServiceKind `json:"services"`
	PickupWindow   models.TimeWindow    `json:"pickup_window"`
	DeliveryWindow models.TimeWindow    `json:"delivery_window"`
	PickupAddress  string               `json:"pickup_address"`
	// DeliveryAddress is where the vehicle is returned. Blank means the
	// pickup address.
	DeliveryAddress string `json:"delivery_address,omitempty"`
	CustomerNotes   string `json:"customer_notes,omitempty"`
}

// Service drives the booking lifecycle. Every mutation validates the actor's
// role and the booking's current status, and returns a *models.WorkflowError
// naming the violated precondition on rejection.
type Service interface {
	// CreateBooking prices the requested services, snapshots the vehicle
	// descriptor and persists a new PENDING_PAYMENT booking.
	CreateBooking(ctx context.Context, actor models.Actor, in CreateBookingInput) (*models.Booking, error)
	// ConfirmPayment verifies the payment reference against the processor,
	// confirms the booking and dispatches the pickup assignment.
	ConfirmPayment(ctx context.Context, actor models.Actor, bookingID, paymentRef string) (*models.Booking, error)
	// AdvanceStatus moves a booking one step along the workshop-driven part
	// of the lifecycle. Re-sending the current status is a no-op; skipping a
	// step is rejected. Reaching READY_FOR_RETURN dispatches the return
	// assignment.
	AdvanceStatus(ctx context.Context, actor models.Actor, bookingID string, target models.BookingStatus) (*models.Booking, error)
	// Complete closes out a DELIVERED booking.
	Complete(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	// Cancel cancels a booking whose vehicle has not been picked up yet,
	// cancelling any outstanding assignment in the same transaction.
	Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	// GetBooking loads one booking, enforcing customer ownership.
	GetBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error)
	// ListBookings returns the customer's bookings.
	ListBookings(ctx context.Context, actor models.Actor, userID string) ([]models.Booking, error)
}
