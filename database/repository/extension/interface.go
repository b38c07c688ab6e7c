package extensionRepo

import (
	"context"
	"time"

	"pitstop/models"
)

// ExtensionRepository defines data access for extensions. Resolution writes
// are compare-and-swap on the PENDING status; the capture write is a Mongo
// session transaction because it also increments the parent booking's total.
type ExtensionRepository interface {
	// Create inserts a new extension record.
	Create(ctx context.Context, e *models.Extension) error
	// GetByID retrieves an extension, nil when absent.
	GetByID(ctx context.Context, id string) (*models.Extension, error)
	// ListByBooking retrieves all extensions of a booking.
	ListByBooking(ctx context.Context, bookingID string) ([]models.Extension, error)
	// Approve swaps PENDING→APPROVED and records the authorization ID.
	// Returns false when the extension was not PENDING.
	Approve(ctx context.Context, id, authorizationID string, at time.Time) (bool, error)
	// Decline swaps PENDING→DECLINED with the given reason.
	Decline(ctx context.Context, id, reason string, at time.Time) (bool, error)
	// MarkCaptured atomically swaps APPROVED/CAPTURE_FAILED→CAPTURED and
	// adds the extension total to the parent booking in one transaction.
	MarkCaptured(ctx context.Context, id, bookingID string, amountCents int64, at time.Time) (bool, error)
	// MarkCaptureFailed records a failed capture attempt; the extension
	// stays approved and outstanding for follow-up.
	MarkCaptureFailed(ctx context.Context, id string) error
	// ListOutstandingCaptures returns approved extensions whose capture has
	// not succeeded yet; consumed by the reconciliation worker.
	ListOutstandingCaptures(ctx context.Context) ([]models.Extension, error)
}
