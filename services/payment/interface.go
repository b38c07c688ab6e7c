package payment

import (
	"context"
	"fmt"
)

// Gateway is the payment-processor contract consumed by the booking and
// extension workflows. Implementations must distinguish a decline (terminal
// for that attempt) from the processor being unreachable (retryable).
type Gateway interface {
	// VerifyPayment checks a customer-supplied payment reference and returns
	// the amount the processor actually collected, in cents.
	VerifyPayment(ctx context.Context, paymentRef string) (amountCents int64, err error)
	// Authorize places a hold for the given amount and returns the
	// authorization ID used for a later capture.
	Authorize(ctx context.Context, amountCents int64, currency, reference string) (authorizationID string, err error)
	// Capture collects a previously authorized amount.
	Capture(ctx context.Context, authorizationID string) error
}

// Error is a typed payment failure.
type Error struct {
	// Declined is true when the processor rejected the payment itself;
	// false means the processor could not be reached and the call may be
	// retried.
	Declined bool
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	kind := "unreachable"
	if e.Declined {
		kind = "declined"
	}
	if e.Err != nil {
		return fmt.Sprintf("payment %s: %s: %v", kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("payment %s: %s", kind, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the failure was transport-level rather than a
// decline.
func (e *Error) Retryable() bool { return !e.Declined }
