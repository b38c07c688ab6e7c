package models

import "time"

// BookingStatus represents the current state of a booking in its lifecycle.
type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusConfirmed      BookingStatus = "CONFIRMED"
	StatusJockeyAssigned BookingStatus = "JOCKEY_ASSIGNED"
	StatusPickedUp       BookingStatus = "PICKED_UP"
	StatusAtWorkshop     BookingStatus = "AT_WORKSHOP"
	StatusInService      BookingStatus = "IN_SERVICE"
	StatusReadyForReturn BookingStatus = "READY_FOR_RETURN"
	StatusReturnAssigned BookingStatus = "RETURN_ASSIGNED"
	StatusDelivered      BookingStatus = "DELIVERED"
	StatusCompleted      BookingStatus = "COMPLETED"
	StatusCancelled      BookingStatus = "CANCELLED"
)

// validTransitions defines the state machine for booking status transitions.
// Cancellation is handled separately because it is additionally gated on
// "no completed pickup" rather than on the current status alone.
var validTransitions = map[BookingStatus][]BookingStatus{
	StatusPendingPayment: {StatusConfirmed, StatusCancelled},
	StatusConfirmed:      {StatusJockeyAssigned, StatusCancelled},
	StatusJockeyAssigned: {StatusPickedUp, StatusCancelled},
	StatusPickedUp:       {StatusAtWorkshop},
	StatusAtWorkshop:     {StatusInService},
	StatusInService:      {StatusReadyForReturn},
	StatusReadyForReturn: {StatusReturnAssigned},
	StatusReturnAssigned: {StatusDelivered},
	StatusDelivered:      {StatusCompleted},
	StatusCompleted:      {},
	StatusCancelled:      {},
}

// workshopSequence is the strictly sequential portion of the lifecycle a
// workshop actor may drive, one step per call.
var workshopSequence = map[BookingStatus]BookingStatus{
	StatusPickedUp:   StatusAtWorkshop,
	StatusAtWorkshop: StatusInService,
	StatusInService:  StatusReadyForReturn,
}

// IsValid returns true if the status is a recognized booking status.
func (s BookingStatus) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s BookingStatus) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// NextWorkshopStep returns the single status a workshop actor may advance to
// from this status. ok is false outside the workshop-driven sequence.
func (s BookingStatus) NextWorkshopStep() (next BookingStatus, ok bool) {
	next, ok = workshopSequence[s]
	return next, ok
}

// InService reports whether the workshop currently holds the vehicle and may
// propose extensions.
func (s BookingStatus) InService() bool {
	return s == StatusAtWorkshop || s == StatusInService
}

// ServiceItem is one requested service kind with its price snapshot taken at
// booking time. PriceSource records which step of the pricing fallback
// cascade produced the price.
type ServiceItem struct {
	Kind        ServiceKind `bson:"kind" json:"kind"`
	PriceCents  int64       `bson:"price_cents" json:"price_cents"`
	PriceSource string      `bson:"price_source" json:"price_source"`
}

// VehicleSnapshot freezes the vehicle descriptor at booking time. The live
// vehicle record can change afterwards; pricing and display always use the
// snapshot.
type VehicleSnapshot struct {
	VehicleID string `bson:"vehicle_id" json:"vehicle_id"`
	Brand     string `bson:"brand" json:"brand"`
	Model     string `bson:"model" json:"model"`
	ModelYear int    `bson:"model_year" json:"model_year"`
	Mileage   int    `bson:"mileage" json:"mileage"`
	Plate     string `bson:"plate,omitempty" json:"plate,omitempty"`
}

// TimeWindow is a scheduled pickup or delivery window.
type TimeWindow struct {
	Start time.Time `bson:"start" json:"start"`
	End   time.Time `bson:"end" json:"end"`
}

// Booking represents one maintenance-service order.
type Booking struct {
	ID            string          `bson:"id" json:"id"`
	BookingNumber string          `bson:"booking_number" json:"booking_number"` // human-readable surface identifier
	UserID        string          `bson:"user_id" json:"user_id"`
	Vehicle       VehicleSnapshot `bson:"vehicle" json:"vehicle"`
	Services      []ServiceItem   `bson:"services" json:"services"`
	TotalCents    int64           `bson:"total_cents" json:"total_cents"`
	Currency      string          `bson:"currency" json:"currency"`
	Status        BookingStatus   `bson:"status" json:"status"`

	PickupWindow    TimeWindow `bson:"pickup_window" json:"pickup_window"`
	DeliveryWindow  TimeWindow `bson:"delivery_window" json:"delivery_window"`
	PickupAddress   string     `bson:"pickup_address" json:"pickup_address"`
	DeliveryAddress string     `bson:"delivery_address" json:"delivery_address"`

	CustomerNotes string `bson:"customer_notes,omitempty" json:"customer_notes,omitempty"`
	InternalNotes string `bson:"internal_notes,omitempty" json:"-"`

	// Pricing audit trail from the engine, kept for support triage. The
	// tier and age multiplier are properties of the vehicle so they are
	// shared by every service item; the source is stored per item.
	PriceTier     string  `bson:"price_tier" json:"price_tier"`
	AgeMultiplier float64 `bson:"age_multiplier" json:"age_multiplier"`

	PaymentRef         string     `bson:"payment_ref,omitempty" json:"-"`
	PaymentConfirmedAt *time.Time `bson:"payment_confirmed_at,omitempty" json:"payment_confirmed_at,omitempty"`

	// Anonymized marks a booking retained for financial auditability after
	// its personal fields were overwritten by the erasure path.
	Anonymized bool `bson:"anonymized" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
