package assignmentRepo

import (
	"context"
	"errors"

	"pitstop/models"
)

// ErrDuplicateAssignment is returned by Create when an assignment of the
// same kind already exists for the booking. The dispatcher treats it as an
// idempotent no-op.
var ErrDuplicateAssignment = errors.New("assignment of this kind already exists for booking")

// AssignmentRepository defines data access for jockey assignments. The
// Mongo implementation enforces uniqueness of (booking_id, kind) with a
// unique index, so duplicate dispatch triggers cannot race past an
// application-level check.
type AssignmentRepository interface {
	// Create inserts a new assignment, or fails with
	// ErrDuplicateAssignment when one of the same kind exists.
	Create(ctx context.Context, a *models.JockeyAssignment) error
	// GetByID retrieves an assignment, nil when absent.
	GetByID(ctx context.Context, id string) (*models.JockeyAssignment, error)
	// GetByBookingAndKind retrieves the booking's assignment of a kind, nil
	// when absent.
	GetByBookingAndKind(ctx context.Context, bookingID string, kind models.AssignmentKind) (*models.JockeyAssignment, error)
	// Complete swaps ASSIGNED→COMPLETED and stores the handover evidence in
	// the same write. Returns false when the assignment was not ASSIGNED.
	Complete(ctx context.Context, id string, evidence models.HandoverEvidence) (bool, error)
	// Claim records the jockey who takes an open assignment.
	Claim(ctx context.Context, id, jockeyID string) (bool, error)
}
