package notification

import (
	"context"
)

// Service delivers workflow notifications to users. Delivery is best-effort:
// workflow code calls Notify after its own state change has committed and
// ignores the returned error beyond logging, so a push outage never blocks
// or rolls back a booking transition.
type Service interface {
	Notify(ctx context.Context, userID, notifType, title, body string, data map[string]string) error
}
