package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pitstop/config"
	bookingRepo "pitstop/database/repository/booking"
	vehicleRepo "pitstop/database/repository/vehicle"
	"pitstop/models"
	"pitstop/services/dispatch"
	"pitstop/services/notification"
	"pitstop/services/payment"
	"pitstop/services/pricing"
	"pitstop/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cancellableStatuses are the states in which the vehicle has not been
// picked up yet. CancelWithAssignments re-checks them inside the write, so a
// handover landing between read and write still loses to exactly one of the
// two racing transitions.
var cancellableStatuses = []models.BookingStatus{
	models.StatusPendingPayment,
	models.StatusConfirmed,
	models.StatusJockeyAssigned,
}

// DefaultBookingService is the production implementation backed by the
// Mongo repositories, the pricing engine and the payment gateway.
type DefaultBookingService struct {
	Bookings   bookingRepo.BookingRepository
	Vehicles   vehicleRepo.VehicleRepository
	Pricing    *pricing.Engine
	Payments   payment.Gateway
	Dispatcher dispatch.Service
	Notifier   notification.Service
}

func NewDefaultBookingService(
	bookings bookingRepo.BookingRepository,
	vehicles vehicleRepo.VehicleRepository,
	pricingEngine *pricing.Engine,
	payments payment.Gateway,
	dispatcher dispatch.Service,
	notifier notification.Service,
) *DefaultBookingService {
	return &DefaultBookingService{
		Bookings:   bookings,
		Vehicles:   vehicles,
		Pricing:    pricingEngine,
		Payments:   payments,
		Dispatcher: dispatcher,
		Notifier:   notifier,
	}
}

// newBookingNumber builds the human-readable identifier customers quote on
// the phone. The internal UUID stays the primary key.
func newBookingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return fmt.Sprintf("PIT-%s-%s", now.Format("20060102"), suffix)
}

func validateWindow(name string, w models.TimeWindow) error {
	if w.Start.IsZero() || w.End.IsZero() {
		return models.NewValidationError("%s window must have a start and an end", name)
	}
	if !w.Start.Before(w.End) {
		return models.NewValidationError("%s window start must be before its end", name)
	}
	return nil
}

func (s *DefaultBookingService) CreateBooking(ctx context.Context, actor models.Actor, in CreateBookingInput) (*models.Booking, error) {
	if actor.Role != models.RoleCustomer {
		return nil, models.NewIllegalTransitionError("only a customer may create a booking")
	}
	if in.VehicleID == "" {
		return nil, models.NewValidationError("vehicle_id is required")
	}
	if len(in.Services) == 0 {
		return nil, models.NewValidationError("a booking requires at least one service")
	}
	if strings.TrimSpace(in.PickupAddress) == "" {
		return nil, models.NewValidationError("pickup address is required")
	}
	if strings.TrimSpace(in.DeliveryAddress) == "" {
		in.DeliveryAddress = in.PickupAddress
	}
	if err := validateWindow("pickup", in.PickupWindow); err != nil {
		return nil, err
	}
	if err := validateWindow("delivery", in.DeliveryWindow); err != nil {
		return nil, err
	}
	if in.DeliveryWindow.Start.Before(in.PickupWindow.End) {
		return nil, models.NewValidationError("delivery window must not start before the pickup window ends")
	}
	seen := map[models.ServiceKind]bool{}
	for _, kind := range in.Services {
		if seen[kind] {
			return nil, models.NewValidationError("service %q requested more than once", kind)
		}
		seen[kind] = true
	}

	vehicle, err := s.Vehicles.GetByID(ctx, in.VehicleID)
	if err != nil {
		return nil, models.NewExternalError("failed to load vehicle", err)
	}
	if vehicle == nil || vehicle.UserID != actor.ID {
		return nil, models.NewValidationError("vehicle %s not found", in.VehicleID)
	}

	var (
		items      []models.ServiceItem
		totalCents int64
		tier       models.MileageTier
		ageMult    float64
	)
	for _, kind := range in.Services {
		quote, err := s.Pricing.Quote(ctx, vehicle.Brand, vehicle.Model, vehicle.ModelYear, vehicle.Mileage, kind)
		if err != nil {
			return nil, err
		}
		items = append(items, models.ServiceItem{
			Kind:        kind,
			PriceCents:  quote.PriceCents,
			PriceSource: string(quote.Source),
		})
		totalCents += quote.PriceCents
		tier = quote.Tier
		ageMult = quote.AgeMultiplier
	}

	now := time.Now()
	b := &models.Booking{
		ID:            uuid.New().String(),
		BookingNumber: newBookingNumber(now),
		UserID:        actor.ID,
		Vehicle: models.VehicleSnapshot{
			VehicleID: vehicle.ID,
			Brand:     vehicle.Brand,
			Model:     vehicle.Model,
			ModelYear: vehicle.ModelYear,
			Mileage:   vehicle.Mileage,
			Plate:     vehicle.Plate,
		},
		Services:        items,
		TotalCents:      totalCents,
		Currency:        config.AppConfig.Currency,
		Status:          models.StatusPendingPayment,
		PickupWindow:    in.PickupWindow,
		DeliveryWindow:  in.DeliveryWindow,
		PickupAddress:   in.PickupAddress,
		DeliveryAddress: in.DeliveryAddress,
		CustomerNotes:   in.CustomerNotes,
		PriceTier:       string(tier),
		AgeMultiplier:   ageMult,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.Bookings.Create(ctx, b); err != nil {
		return nil, models.NewExternalError("failed to create booking", err)
	}

	s.notify(ctx, b, "booking_created", "Booking received",
		fmt.Sprintf("Booking %s is awaiting payment.", b.BookingNumber))
	return b, nil
}

func (s *DefaultBookingService) ConfirmPayment(ctx context.Context, actor models.Actor, bookingID, paymentRef string) (*models.Booking, error) {
	if paymentRef == "" {
		return nil, models.NewValidationError("payment reference is required")
	}

	b, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, models.NewTerminalStateError(b.Status)
	}

	// A processor webhook may deliver the same confirmation more than once.
	// A repeat with the recorded reference re-runs only the dispatch repair.
	if b.Status != models.StatusPendingPayment {
		if b.PaymentRef == paymentRef {
			if b.Status == models.StatusConfirmed {
				if err := s.ensurePickupDispatched(ctx, b); err != nil {
					return nil, err
				}
			}
			return b, nil
		}
		return nil, models.NewIllegalTransitionError("booking %s is %s and not awaiting payment", bookingID, b.Status)
	}

	amount, err := s.Payments.VerifyPayment(ctx, paymentRef)
	if err != nil {
		return nil, paymentWorkflowError("payment verification", err)
	}
	if amount != b.TotalCents {
		return nil, models.NewPreconditionError(
			"paid amount %d does not match booking total %d", amount, b.TotalCents)
	}

	now := time.Now()
	ok, err := s.Bookings.ConfirmPayment(ctx, bookingID, paymentRef, now)
	if err != nil {
		return nil, models.NewExternalError("failed to confirm payment", err)
	}
	if !ok {
		current, err := s.Bookings.GetByID(ctx, bookingID)
		if err != nil || current == nil {
			return nil, models.NewExternalError("failed to reload booking", err)
		}
		if current.PaymentRef == paymentRef {
			b = current
		} else {
			return nil, models.NewIllegalTransitionError("booking %s is %s and not awaiting payment", bookingID, current.Status)
		}
	} else {
		b.Status = models.StatusConfirmed
		b.PaymentRef = paymentRef
		b.PaymentConfirmedAt = &now
	}

	s.notify(ctx, b, "booking_confirmed", "Booking confirmed",
		fmt.Sprintf("Payment for booking %s is confirmed. A driver will pick up your vehicle.", b.BookingNumber))

	if b.Status == models.StatusConfirmed {
		if err := s.ensurePickupDispatched(ctx, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ensurePickupDispatched creates the pickup assignment and only then moves
// the booking to JOCKEY_ASSIGNED. A crash in between leaves a CONFIRMED
// booking with an assignment, which the next confirmation retry repairs;
// the inverse (a status claiming an assignment that does not exist) cannot
// occur.
func (s *DefaultBookingService) ensurePickupDispatched(ctx context.Context, b *models.Booking) error {
	if _, err := s.Dispatcher.DispatchPickup(ctx, b); err != nil {
		return err
	}
	moved, err := s.Bookings.TransitionStatus(ctx, b.ID, models.StatusConfirmed, models.StatusJockeyAssigned)
	if err != nil {
		return models.NewExternalError("failed to mark booking assigned", err)
	}
	if moved {
		b.Status = models.StatusJockeyAssigned
	}
	return nil
}

func (s *DefaultBookingService) AdvanceStatus(ctx context.Context, actor models.Actor, bookingID string, target models.BookingStatus) (*models.Booking, error) {
	if actor.Role != models.RoleWorkshop && actor.Role != models.RoleSystem {
		return nil, models.NewIllegalTransitionError("only the workshop may advance a booking")
	}
	if !target.IsValid() {
		return nil, models.NewValidationError("unknown booking status %q", target)
	}

	b, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, models.NewTerminalStateError(b.Status)
	}

	// Re-sending the current status is a no-op so the workshop terminal can
	// retry on timeouts. The READY_FOR_RETURN case re-runs the dispatch
	// repair in case an earlier call died between status write and dispatch.
	if target == b.Status {
		if b.Status == models.StatusReadyForReturn {
			if err := s.ensureReturnDispatched(ctx, b); err != nil {
				return nil, err
			}
		}
		return b, nil
	}

	next, ok := b.Status.NextWorkshopStep()
	if !ok {
		return nil, models.NewIllegalTransitionError("workshop cannot advance booking from %s", b.Status)
	}
	if target != next {
		return nil, models.NewIllegalTransitionError(
			"cannot move booking from %s to %s; the next step is %s", b.Status, target, next)
	}

	moved, err := s.Bookings.TransitionStatus(ctx, bookingID, b.Status, target)
	if err != nil {
		return nil, models.NewExternalError("failed to advance booking", err)
	}
	if !moved {
		current, err := s.Bookings.GetByID(ctx, bookingID)
		if err != nil || current == nil {
			return nil, models.NewExternalError("failed to reload booking", err)
		}
		if current.Status == target {
			// Lost the race to an identical call; same outcome.
			b = current
		} else {
			return nil, models.NewIllegalTransitionError(
				"cannot move booking from %s to %s; the next step is %s", current.Status, target, next)
		}
	} else {
		b.Status = target
	}

	if b.Status == models.StatusReadyForReturn {
		s.notify(ctx, b, "ready_for_return", "Service finished",
			fmt.Sprintf("Work on booking %s is done. A driver will return your vehicle.", b.BookingNumber))
		if err := s.ensureReturnDispatched(ctx, b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (s *DefaultBookingService) ensureReturnDispatched(ctx context.Context, b *models.Booking) error {
	if _, err := s.Dispatcher.DispatchReturn(ctx, b); err != nil {
		return err
	}
	moved, err := s.Bookings.TransitionStatus(ctx, b.ID, models.StatusReadyForReturn, models.StatusReturnAssigned)
	if err != nil {
		return models.NewExternalError("failed to mark return assigned", err)
	}
	if moved {
		b.Status = models.StatusReturnAssigned
	}
	return nil
}

func (s *DefaultBookingService) Complete(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	if actor.Role != models.RoleWorkshop && actor.Role != models.RoleSystem {
		return nil, models.NewIllegalTransitionError("only the workshop may complete a booking")
	}

	b, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == models.StatusCompleted {
		return b, nil
	}
	if b.Status.IsTerminal() {
		return nil, models.NewTerminalStateError(b.Status)
	}
	if b.Status != models.StatusDelivered {
		return nil, models.NewIllegalTransitionError("booking %s is %s, only a delivered booking can be completed", bookingID, b.Status)
	}

	moved, err := s.Bookings.TransitionStatus(ctx, bookingID, models.StatusDelivered, models.StatusCompleted)
	if err != nil {
		return nil, models.NewExternalError("failed to complete booking", err)
	}
	if !moved {
		current, err := s.Bookings.GetByID(ctx, bookingID)
		if err != nil || current == nil {
			return nil, models.NewExternalError("failed to reload booking", err)
		}
		if current.Status != models.StatusCompleted {
			return nil, models.NewIllegalTransitionError("booking %s is %s, only a delivered booking can be completed", bookingID, current.Status)
		}
		b = current
	} else {
		b.Status = models.StatusCompleted
	}

	s.notify(ctx, b, "booking_completed", "Booking completed",
		fmt.Sprintf("Booking %s is complete. Thank you!", b.BookingNumber))
	return b, nil
}

func (s *DefaultBookingService) Cancel(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	if actor.Role == models.RoleJockey {
		return nil, models.NewIllegalTransitionError("a jockey may not cancel a booking")
	}

	b, err := s.load(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status.IsTerminal() {
		return nil, models.NewTerminalStateError(b.Status)
	}

	ok, err := s.Bookings.CancelWithAssignments(ctx, bookingID, cancellableStatuses)
	if err != nil {
		return nil, models.NewExternalError("failed to cancel booking", err)
	}
	if !ok {
		current, getErr := s.Bookings.GetByID(ctx, bookingID)
		if getErr != nil || current == nil {
			return nil, models.NewExternalError("failed to reload booking", getErr)
		}
		if current.Status == models.StatusCancelled {
			return nil, models.NewTerminalStateError(current.Status)
		}
		return nil, models.NewPreconditionError(
			"booking %s is %s; cancellation is only possible before the vehicle is picked up", bookingID, current.Status)
	}
	b.Status = models.StatusCancelled

	s.notify(ctx, b, "booking_cancelled", "Booking cancelled",
		fmt.Sprintf("Booking %s has been cancelled.", b.BookingNumber))
	return b, nil
}

func (s *DefaultBookingService) GetBooking(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	return s.load(ctx, actor, bookingID)
}

func (s *DefaultBookingService) ListBookings(ctx context.Context, actor models.Actor, userID string) ([]models.Booking, error) {
	if actor.Role == models.RoleCustomer && actor.ID != userID {
		return nil, models.NewIllegalTransitionError("a customer may only list their own bookings")
	}
	list, err := s.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to list bookings", err)
	}
	return list, nil
}

// load fetches a booking and enforces that a customer actor owns it. A
// booking owned by someone else reads as not found.
func (s *DefaultBookingService) load(ctx context.Context, actor models.Actor, bookingID string) (*models.Booking, error) {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, models.NewExternalError("failed to load booking", err)
	}
	if b == nil {
		return nil, models.NewValidationError("booking %s not found", bookingID)
	}
	if actor.Role == models.RoleCustomer && b.UserID != actor.ID {
		return nil, models.NewValidationError("booking %s not found", bookingID)
	}
	return b, nil
}

func (s *DefaultBookingService) notify(ctx context.Context, b *models.Booking, notifType, title, body string) {
	if err := s.Notifier.Notify(ctx, b.UserID, notifType, title, body, map[string]string{
		"booking_id": b.ID,
		"status":     string(b.Status),
	}); err != nil {
		utils.GetLogger().Warn("booking: notification failed",
			zap.String("bookingID", b.ID),
			zap.String("type", notifType),
			zap.Error(err))
	}
}

// paymentWorkflowError maps a gateway failure onto the workflow taxonomy: a
// decline fails the precondition for that attempt, an unreachable processor
// is the retryable class.
func paymentWorkflowError(action string, err error) *models.WorkflowError {
	var perr *payment.Error
	if errors.As(err, &perr) && perr.Declined {
		return models.NewPreconditionError("%s declined: %s", action, perr.Reason)
	}
	return models.NewExternalError(action+" failed", err)
}
