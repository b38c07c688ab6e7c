package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway on Stripe PaymentIntents. Authorizations
// use manual capture so an approved extension can be captured later.
type StripeGateway struct {
	logger *zap.Logger
}

func NewStripeGateway(logger *zap.Logger) *StripeGateway {
	return &StripeGateway{logger: logger}
}

func (g *StripeGateway) VerifyPayment(ctx context.Context, paymentRef string) (int64, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(paymentRef, params)
	if err != nil {
		return 0, wrapStripeError("failed to look up payment reference", err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return 0, &Error{Declined: true, Reason: "payment reference is not in succeeded state: " + string(pi.Status)}
	}
	return pi.AmountReceived, nil
}

func (g *StripeGateway) Authorize(ctx context.Context, amountCents int64, currency, reference string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(strings.ToLower(currency)),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Description:   stripe.String(reference),
	}
	params.Context = ctx

	pi, err := paymentintent.New(params)
	if err != nil {
		return "", wrapStripeError("authorization failed", err)
	}
	g.logger.Info("payment authorized",
		zap.String("reference", reference),
		zap.String("authorizationId", pi.ID),
		zap.Int64("amountCents", amountCents))
	return pi.ID, nil
}

func (g *StripeGateway) Capture(ctx context.Context, authorizationID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx

	if _, err := paymentintent.Capture(authorizationID, params); err != nil {
		return wrapStripeError("capture failed", err)
	}
	g.logger.Info("payment captured", zap.String("authorizationId", authorizationID))
	return nil
}

// wrapStripeError maps Stripe error types onto the declined/unreachable
// split. Card and request errors are declines; anything else (network, API
// outage, rate limiting) is retryable.
func wrapStripeError(reason string, err error) error {
	var se *stripe.Error
	if errors.As(err, &se) {
		declined := se.Type == stripe.ErrorTypeCard || se.Type == stripe.ErrorTypeInvalidRequest
		return &Error{Declined: declined, Reason: reason, Err: err}
	}
	return &Error{Declined: false, Reason: reason, Err: err}
}
