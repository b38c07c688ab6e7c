package models

import "time"

// BookingExport is the customer-visible projection of a booking used in the
// data export. Internal notes about other parties are deliberately absent.
type BookingExport struct {
	BookingNumber   string          `json:"booking_number"`
	Status          BookingStatus   `json:"status"`
	Services        []ServiceItem   `json:"services"`
	TotalCents      int64           `json:"total_cents"`
	Currency        string          `json:"currency"`
	Vehicle         VehicleSnapshot `json:"vehicle"`
	PickupAddress   string          `json:"pickup_address"`
	DeliveryAddress string          `json:"delivery_address"`
	CustomerNotes   string          `json:"customer_notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// DataExport is the full read-only snapshot returned for a data-subject
// access request.
type DataExport struct {
	GeneratedAt   time.Time       `json:"generated_at"`
	LegalBasis    string          `json:"legal_basis"`
	RetentionNote string          `json:"retention_note"`
	User          User            `json:"user"`
	Vehicles      []Vehicle       `json:"vehicles"`
	Bookings      []BookingExport `json:"bookings"`
	Notifications []Notification  `json:"notifications"`
}

// ErasureReport summarizes what a completed erasure did, for the audit log
// and the response to the requester.
type ErasureReport struct {
	UserID               string    `json:"user_id"`
	BookingsDeleted      int       `json:"bookings_deleted"`
	BookingsAnonymized   int       `json:"bookings_anonymized"`
	VehiclesDeleted      int       `json:"vehicles_deleted"`
	NotificationsDeleted int       `json:"notifications_deleted"`
	CompletedAt          time.Time `json:"completed_at"`
}
