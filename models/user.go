package models

import "time"

// ActorRole identifies who is acting on a booking. The state machine trusts
// this value from the authenticated context and enforces role-appropriate
// transitions; it does not itself perform authentication.
type ActorRole string

const (
	RoleCustomer ActorRole = "customer"
	RoleJockey   ActorRole = "jockey"
	RoleWorkshop ActorRole = "workshop"
	RoleSystem   ActorRole = "system"
)

// Actor is the authenticated identity attached to every workflow call.
type Actor struct {
	ID   string
	Role ActorRole
}

// User represents a platform account (customer, jockey or workshop staff).
type User struct {
	ID           string    `bson:"id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"password_hash" json:"-"`
	PhoneNumber  string    `bson:"phone_number,omitempty" json:"phone_number,omitempty"`
	Address      string    `bson:"address,omitempty" json:"address,omitempty"`
	Role         ActorRole `bson:"role" json:"role"`
	FCMToken     string    `bson:"fcm_token,omitempty" json:"-"`

	// Deactivated is set by the erasure path; the record itself stays for
	// referential integrity with historical bookings.
	Deactivated bool `bson:"deactivated" json:"-"`
	Anonymized  bool `bson:"anonymized" json:"-"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Vehicle is a customer-owned vehicle. Bookings snapshot its descriptor at
// creation time and never read the live record afterwards.
type Vehicle struct {
	ID        string    `bson:"id" json:"id"`
	UserID    string    `bson:"user_id" json:"user_id"`
	Brand     string    `bson:"brand" json:"brand"`
	Model     string    `bson:"model" json:"model"`
	ModelYear int       `bson:"model_year" json:"model_year"`
	Mileage   int       `bson:"mileage" json:"mileage"`
	Plate     string    `bson:"plate,omitempty" json:"plate,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
