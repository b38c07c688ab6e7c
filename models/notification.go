package models

import "time"

// Notification is one delivered (or attempted) user notification, persisted
// so the privacy export and erasure paths can account for it.
type Notification struct {
	ID        string            `bson:"id" json:"id"`
	UserID    string            `bson:"user_id" json:"user_id"`
	Type      string            `bson:"type" json:"type"` // e.g. "booking_confirmed", "extension_created"
	Title     string            `bson:"title" json:"title"`
	Body      string            `bson:"body" json:"body"`
	Data      map[string]string `bson:"data,omitempty" json:"data,omitempty"`
	Delivered bool              `bson:"delivered" json:"delivered"`
	CreatedAt time.Time         `bson:"created_at" json:"created_at"`
}
