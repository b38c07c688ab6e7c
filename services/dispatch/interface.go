package dispatch

import (
	"context"

	"pitstop/models"
)

// Service owns the jockey assignment lifecycle. It is the only writer of
// assignment records and the only path that moves a booking across the two
// physical handovers (JOCKEY_ASSIGNED→PICKED_UP and RETURN_ASSIGNED→DELIVERED),
// so the "status implies assignment exists" invariant has a single owner.
type Service interface {
	// DispatchPickup creates the pickup assignment for a confirmed booking.
	// Calling it again for the same booking returns the existing assignment.
	DispatchPickup(ctx context.Context, booking *models.Booking) (*models.JockeyAssignment, error)
	// DispatchReturn creates the return assignment once a booking is ready
	// for return. Requires the pickup handover to be completed.
	DispatchReturn(ctx context.Context, booking *models.Booking) (*models.JockeyAssignment, error)
	// Claim records the jockey taking an open assignment.
	Claim(ctx context.Context, actor models.Actor, assignmentID string) (*models.JockeyAssignment, error)
	// CompleteHandover records the handover evidence, completes the
	// assignment and advances the parent booking. Evidence must be complete:
	// at least one photo, a signature and a non-negative odometer reading.
	CompleteHandover(ctx context.Context, actor models.Actor, assignmentID string, evidence models.HandoverEvidence) (*models.JockeyAssignment, error)
	// GetAssignment loads one assignment.
	GetAssignment(ctx context.Context, id string) (*models.JockeyAssignment, error)
}
