package dispatch

import (
	"context"
	"errors"
	"time"

	assignmentRepo "pitstop/database/repository/assignment"
	bookingRepo "pitstop/database/repository/booking"
	"pitstop/models"
	"pitstop/services/notification"
	"pitstop/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultDispatchService is the production implementation backed by the
// Mongo repositories. Duplicate dispatch triggers are absorbed by the unique
// (booking_id, kind) index rather than an application-level check, so two
// racing callers cannot both create an assignment.
type DefaultDispatchService struct {
	Assignments assignmentRepo.AssignmentRepository
	Bookings    bookingRepo.BookingRepository
	Notifier    notification.Service
}

func NewDefaultDispatchService(
	assignments assignmentRepo.AssignmentRepository,
	bookings bookingRepo.BookingRepository,
	notifier notification.Service,
) *DefaultDispatchService {
	return &DefaultDispatchService{
		Assignments: assignments,
		Bookings:    bookings,
		Notifier:    notifier,
	}
}

func (s *DefaultDispatchService) DispatchPickup(ctx context.Context, booking *models.Booking) (*models.JockeyAssignment, error) {
	return s.dispatch(ctx, booking, models.AssignmentPickup, booking.PickupWindow, booking.PickupAddress)
}

func (s *DefaultDispatchService) DispatchReturn(ctx context.Context, booking *models.Booking) (*models.JockeyAssignment, error) {
	pickup, err := s.Assignments.GetByBookingAndKind(ctx, booking.ID, models.AssignmentPickup)
	if err != nil {
		return nil, models.NewExternalError("failed to load pickup assignment", err)
	}
	if pickup == nil || pickup.Status != models.AssignmentCompleted {
		return nil, models.NewPreconditionError(
			"return dispatch requires a completed pickup handover for booking %s", booking.ID)
	}
	address := booking.DeliveryAddress
	if address == "" {
		address = booking.PickupAddress
	}
	return s.dispatch(ctx, booking, models.AssignmentReturn, booking.DeliveryWindow, address)
}

func (s *DefaultDispatchService) dispatch(ctx context.Context, booking *models.Booking, kind models.AssignmentKind, window models.TimeWindow, address string) (*models.JockeyAssignment, error) {
	logger := utils.GetLogger()

	a := &models.JockeyAssignment{
		ID:              uuid.New().String(),
		BookingID:       booking.ID,
		Kind:            kind,
		Status:          models.AssignmentAssigned,
		ScheduledWindow: window,
		Address:         address,
		CreatedAt:       time.Now(),
	}

	err := s.Assignments.Create(ctx, a)
	if errors.Is(err, assignmentRepo.ErrDuplicateAssignment) {
		existing, getErr := s.Assignments.GetByBookingAndKind(ctx, booking.ID, kind)
		if getErr != nil {
			return nil, models.NewExternalError("failed to load existing assignment", getErr)
		}
		logger.Info("dispatch: assignment already exists, reusing",
			zap.String("bookingID", booking.ID),
			zap.String("kind", string(kind)),
			zap.String("assignmentID", existing.ID))
		return existing, nil
	}
	if err != nil {
		return nil, models.NewExternalError("failed to create assignment", err)
	}

	logger.Info("dispatch: assignment created",
		zap.String("bookingID", booking.ID),
		zap.String("kind", string(kind)),
		zap.String("assignmentID", a.ID))
	return a, nil
}

func (s *DefaultDispatchService) Claim(ctx context.Context, actor models.Actor, assignmentID string) (*models.JockeyAssignment, error) {
	if actor.Role != models.RoleJockey {
		return nil, models.NewIllegalTransitionError("only a jockey may claim an assignment")
	}

	a, err := s.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, models.NewExternalError("failed to load assignment", err)
	}
	if a == nil {
		return nil, models.NewValidationError("assignment %s not found", assignmentID)
	}
	if a.Status != models.AssignmentAssigned {
		return nil, models.NewIllegalTransitionError("assignment %s is %s and cannot be claimed", assignmentID, a.Status)
	}
	if a.JockeyID != "" && a.JockeyID != actor.ID {
		return nil, models.NewIllegalTransitionError("assignment %s is already claimed by another jockey", assignmentID)
	}

	if _, err := s.Assignments.Claim(ctx, assignmentID, actor.ID); err != nil {
		return nil, models.NewExternalError("failed to claim assignment", err)
	}
	a.JockeyID = actor.ID
	return a, nil
}

func (s *DefaultDispatchService) GetAssignment(ctx context.Context, id string) (*models.JockeyAssignment, error) {
	a, err := s.Assignments.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewExternalError("failed to load assignment", err)
	}
	if a == nil {
		return nil, models.NewValidationError("assignment %s not found", id)
	}
	return a, nil
}

// validateEvidence rejects any partial handover record. The message names
// the missing piece so the jockey app can surface it directly.
func validateEvidence(ev models.HandoverEvidence) error {
	if len(ev.PhotoRefs) == 0 {
		return models.NewPreconditionError("handover evidence requires at least one photo")
	}
	if ev.SignatureRef == "" {
		return models.NewPreconditionError("handover evidence requires a customer signature")
	}
	if ev.Odometer < 0 {
		return models.NewPreconditionError("handover odometer reading must be non-negative")
	}
	return nil
}

func (s *DefaultDispatchService) CompleteHandover(ctx context.Context, actor models.Actor, assignmentID string, evidence models.HandoverEvidence) (*models.JockeyAssignment, error) {
	logger := utils.GetLogger()

	if actor.Role != models.RoleJockey {
		return nil, models.NewIllegalTransitionError("only a jockey may complete a handover")
	}
	if err := validateEvidence(evidence); err != nil {
		return nil, err
	}
	if evidence.RecordedAt.IsZero() {
		evidence.RecordedAt = time.Now()
	}

	a, err := s.Assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, models.NewExternalError("failed to load assignment", err)
	}
	if a == nil {
		return nil, models.NewValidationError("assignment %s not found", assignmentID)
	}
	if a.JockeyID != "" && a.JockeyID != actor.ID {
		return nil, models.NewIllegalTransitionError("assignment %s belongs to another jockey", assignmentID)
	}

	booking, err := s.Bookings.GetByID(ctx, a.BookingID)
	if err != nil {
		return nil, models.NewExternalError("failed to load booking", err)
	}
	if booking == nil {
		return nil, models.NewValidationError("booking %s not found", a.BookingID)
	}
	if booking.Status.IsTerminal() {
		return nil, models.NewTerminalStateError(booking.Status)
	}

	var from, to models.BookingStatus
	switch a.Kind {
	case models.AssignmentPickup:
		from, to = models.StatusJockeyAssigned, models.StatusPickedUp
	case models.AssignmentReturn:
		from, to = models.StatusReturnAssigned, models.StatusDelivered
	default:
		return nil, models.NewValidationError("assignment %s has unknown kind %q", assignmentID, a.Kind)
	}

	ok, err := s.Assignments.Complete(ctx, assignmentID, evidence)
	if err != nil {
		return nil, models.NewExternalError("failed to complete assignment", err)
	}
	if !ok {
		// Lost the write. A jockey app retrying a timed-out submission is
		// the expected cause, so a completed assignment counts as success.
		current, getErr := s.Assignments.GetByID(ctx, assignmentID)
		if getErr != nil {
			return nil, models.NewExternalError("failed to reload assignment", getErr)
		}
		if current == nil {
			return nil, models.NewValidationError("assignment %s not found", assignmentID)
		}
		if current.Status == models.AssignmentCompleted {
			// The booking may still be one step behind if an earlier call
			// died between the assignment write and the booking write. The
			// CAS below is a no-op when the booking already moved.
			moved, moveErr := s.Bookings.TransitionStatus(ctx, booking.ID, from, to)
			if moveErr != nil {
				return nil, models.NewExternalError("failed to advance booking after handover", moveErr)
			}
			if moved {
				logger.Info("dispatch: repaired booking status on handover retry",
					zap.String("bookingID", booking.ID),
					zap.String("to", string(to)))
			}
			return current, nil
		}
		return nil, models.NewIllegalTransitionError("assignment %s is %s and cannot be completed", assignmentID, current.Status)
	}

	// Status follows the assignment write. If the process dies between the
	// two writes the booking stays one step behind with a completed
	// assignment, which a retry of this call repairs.
	moved, err := s.Bookings.TransitionStatus(ctx, booking.ID, from, to)
	if err != nil {
		return nil, models.NewExternalError("failed to advance booking after handover", err)
	}
	if !moved {
		logger.Warn("dispatch: booking already moved past handover status",
			zap.String("bookingID", booking.ID),
			zap.String("from", string(from)),
			zap.String("to", string(to)))
	}

	now := time.Now()
	a.Status = models.AssignmentCompleted
	a.Evidence = &evidence
	a.CompletedAt = &now

	title, body := handoverNotification(a.Kind, booking.BookingNumber)
	if err := s.Notifier.Notify(ctx, booking.UserID, "handover_completed", title, body, map[string]string{
		"booking_id": booking.ID,
		"kind":       string(a.Kind),
	}); err != nil {
		logger.Warn("dispatch: handover notification failed", zap.Error(err))
	}

	return a, nil
}

func handoverNotification(kind models.AssignmentKind, bookingNumber string) (title, body string) {
	if kind == models.AssignmentPickup {
		return "Vehicle picked up",
			"Your vehicle for booking " + bookingNumber + " is on its way to the workshop."
	}
	return "Vehicle delivered",
		"Your vehicle for booking " + bookingNumber + " has been returned to you."
}
