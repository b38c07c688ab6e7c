package models

import "time"

// ExtensionStatus represents the current state of an extension's approval and
// payment flow.
type ExtensionStatus string

const (
	ExtensionPending       ExtensionStatus = "PENDING"
	ExtensionApproved      ExtensionStatus = "APPROVED" // payment authorized, not yet captured
	ExtensionCaptured      ExtensionStatus = "CAPTURED"
	ExtensionCaptureFailed ExtensionStatus = "CAPTURE_FAILED" // approved but outstanding, needs follow-up
	ExtensionDeclined      ExtensionStatus = "DECLINED"
)

// ExtensionItem is one line item of proposed extra work. Items are immutable
// once the extension is created.
type ExtensionItem struct {
	Name           string `bson:"name" json:"name"`
	UnitPriceCents int64  `bson:"unit_price_cents" json:"unit_price_cents"`
	Quantity       int    `bson:"quantity" json:"quantity"`
}

// Extension is a workshop-proposed addition to an in-progress booking's scope
// of work, subject to customer approval and separate payment capture. It is
// part of the auditable service record and is never deleted.
type Extension struct {
	ID          string          `bson:"id" json:"id"`
	BookingID   string          `bson:"booking_id" json:"booking_id"`
	Description string          `bson:"description" json:"description"`
	Items       []ExtensionItem `bson:"items" json:"items"`
	TotalCents  int64           `bson:"total_cents" json:"total_cents"`
	Currency    string          `bson:"currency" json:"currency"`
	Status      ExtensionStatus `bson:"status" json:"status"`

	// Image/video evidence backing the proposal.
	EvidenceRefs []string `bson:"evidence_refs,omitempty" json:"evidence_refs,omitempty"`

	DeclineReason   string     `bson:"decline_reason,omitempty" json:"decline_reason,omitempty"`
	AuthorizationID string     `bson:"authorization_id,omitempty" json:"-"`
	ApprovedAt      *time.Time `bson:"approved_at,omitempty" json:"approved_at,omitempty"`
	DeclinedAt      *time.Time `bson:"declined_at,omitempty" json:"declined_at,omitempty"`
	CapturedAt      *time.Time `bson:"captured_at,omitempty" json:"captured_at,omitempty"`
	CaptureAttempts int        `bson:"capture_attempts" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ItemsTotalCents sums price × quantity over the line items.
func ItemsTotalCents(items []ExtensionItem) int64 {
	var total int64
	for _, it := range items {
		total += it.UnitPriceCents * int64(it.Quantity)
	}
	return total
}
