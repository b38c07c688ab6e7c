package models

import "time"

// AssignmentKind distinguishes the two physical driving tasks.
type AssignmentKind string

const (
	AssignmentPickup AssignmentKind = "PICKUP"
	AssignmentReturn AssignmentKind = "RETURN"
)

// AssignmentStatus represents the state of a jockey assignment.
type AssignmentStatus string

const (
	AssignmentAssigned  AssignmentStatus = "ASSIGNED"
	AssignmentCompleted AssignmentStatus = "COMPLETED"
	AssignmentCancelled AssignmentStatus = "CANCELLED"
	AssignmentFailed    AssignmentStatus = "FAILED"
)

// HandoverEvidence documents the physical transfer of a vehicle at pickup or
// return: photos, customer signature and odometer reading.
type HandoverEvidence struct {
	PhotoRefs    []string  `bson:"photo_refs" json:"photo_refs"`
	SignatureRef string    `bson:"signature_ref" json:"signature_ref"`
	Odometer     int       `bson:"odometer" json:"odometer"`
	RecordedAt   time.Time `bson:"recorded_at" json:"recorded_at"`
}

// JockeyAssignment is one physical driving task (pickup or return) tied to a
// booking. A booking has at most one assignment per kind, enforced by a
// unique index on (booking_id, kind).
type JockeyAssignment struct {
	ID        string           `bson:"id" json:"id"`
	BookingID string           `bson:"booking_id" json:"booking_id"`
	Kind      AssignmentKind   `bson:"kind" json:"kind"`
	JockeyID  string           `bson:"jockey_id,omitempty" json:"jockey_id,omitempty"`
	Status    AssignmentStatus `bson:"status" json:"status"`

	ScheduledWindow TimeWindow        `bson:"scheduled_window" json:"scheduled_window"`
	Address         string            `bson:"address" json:"address"`
	Evidence        *HandoverEvidence `bson:"evidence,omitempty" json:"evidence,omitempty"`

	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
}
