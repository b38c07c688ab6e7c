package extension

import (
	"context"

	"pitstop/models"
)

// CreateExtensionInput is the workshop's proposal for extra work on a
// booking already in service. Item prices are workshop-quoted; the total is
// computed server-side and fixed at creation.
type CreateExtensionInput struct {
	BookingID    string                 `json:"booking_id"`
	Description  string                 `json:"description"`
	Items        []models.ExtensionItem `json:"items"`
	EvidenceRefs []string               `json:"evidence_refs,omitempty"`
}

// Service drives the extension approval and payment flow. A resolution
// (approve or decline) is immutable; repeated resolution attempts are
// rejected rather than overwritten.
type Service interface {
	// Create records a workshop proposal against an in-service booking and
	// notifies the customer that a decision is needed.
	Create(ctx context.Context, actor models.Actor, in CreateExtensionInput) (*models.Extension, error)
	// Approve authorizes payment for the extension amount and, on success,
	// attempts the capture. A failed capture leaves the approval standing
	// and flags the extension for reconciliation.
	Approve(ctx context.Context, actor models.Actor, extensionID string) (*models.Extension, error)
	// Decline rejects the proposal with a required reason. The parent
	// booking's total is untouched.
	Decline(ctx context.Context, actor models.Actor, extensionID, reason string) (*models.Extension, error)
	// Capture collects an authorized extension payment. Invoked inline
	// after approval and again by the reconciliation worker for
	// CAPTURE_FAILED extensions.
	Capture(ctx context.Context, extensionID string) (*models.Extension, error)
	// ListByBooking returns a booking's extensions.
	ListByBooking(ctx context.Context, actor models.Actor, bookingID string) ([]models.Extension, error)
}
