package bookingRepo

import (
	"context"
	"time"

	"pitstop/models"
)

// BookingRepository defines data access for bookings. Status writes are
// compare-and-swap: they only apply when the stored status still equals the
// expected one, so a transition is always validated against the state inside
// the same write that changes it.
type BookingRepository interface {
	// Create inserts a new booking record.
	Create(ctx context.Context, booking *models.Booking) error
	// GetByID retrieves a booking by its internal ID, nil when absent.
	GetByID(ctx context.Context, id string) (*models.Booking, error)
	// ListByUser retrieves all bookings owned by a user.
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	// TransitionStatus swaps status from→to. Returns false when the stored
	// status no longer equals from (lost race or stale caller).
	TransitionStatus(ctx context.Context, id string, from, to models.BookingStatus) (bool, error)
	// ConfirmPayment swaps PENDING_PAYMENT→CONFIRMED and records the payment
	// reference and confirmation time in the same write.
	ConfirmPayment(ctx context.Context, id, paymentRef string, at time.Time) (bool, error)
	// CancelWithAssignments atomically sets CANCELLED (only while the stored
	// status is one of eligible) and cancels any outstanding assignments of
	// the booking in the same transaction.
	CancelWithAssignments(ctx context.Context, id string, eligible []models.BookingStatus) (bool, error)
}
