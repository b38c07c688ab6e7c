package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingRepo "pitstop/database/repository/booking"
	extensionRepo "pitstop/database/repository/extension"
	"pitstop/models"
	"pitstop/services/notification"
	"pitstop/services/payment"
	"pitstop/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultExtensionService is the production implementation.
type DefaultExtensionService struct {
	Extensions extensionRepo.ExtensionRepository
	Bookings   bookingRepo.BookingRepository
	Payments   payment.Gateway
	Notifier   notification.Service
}

func NewDefaultExtensionService(
	extensions extensionRepo.ExtensionRepository,
	bookings bookingRepo.BookingRepository,
	payments payment.Gateway,
	notifier notification.Service,
) *DefaultExtensionService {
	return &DefaultExtensionService{
		Extensions: extensions,
		Bookings:   bookings,
		Payments:   payments,
		Notifier:   notifier,
	}
}

func (s *DefaultExtensionService) Create(ctx context.Context, actor models.Actor, in CreateExtensionInput) (*models.Extension, error) {
	if actor.Role != models.RoleWorkshop {
		return nil, models.NewIllegalTransitionError("only the workshop may propose an extension")
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, models.NewValidationError("extension description is required")
	}
	if len(in.Items) == 0 {
		return nil, models.NewPreconditionError("an extension requires at least one line item")
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.Name) == "" {
			return nil, models.NewValidationError("item %d has no name", i)
		}
		if it.UnitPriceCents <= 0 {
			return nil, models.NewValidationError("item %q must have a positive unit price", it.Name)
		}
		if it.Quantity <= 0 {
			return nil, models.NewValidationError("item %q must have a positive quantity", it.Name)
		}
	}

	b, err := s.Bookings.GetByID(ctx, in.BookingID)
	if err != nil {
		return nil, models.NewExternalError("failed to load booking", err)
	}
	if b == nil {
		return nil, models.NewValidationError("booking %s not found", in.BookingID)
	}
	if b.Status.IsTerminal() {
		return nil, models.NewTerminalStateError(b.Status)
	}
	if !b.Status.InService() {
		return nil, models.NewPreconditionError(
			"extensions require the vehicle at the workshop; booking %s is %s", b.ID, b.Status)
	}

	now := time.Now()
	e := &models.Extension{
		ID:           uuid.New().String(),
		BookingID:    b.ID,
		Description:  in.Description,
		Items:        in.Items,
		TotalCents:   models.ItemsTotalCents(in.Items),
		Currency:     b.Currency,
		Status:       models.ExtensionPending,
		EvidenceRefs: in.EvidenceRefs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Extensions.Create(ctx, e); err != nil {
		return nil, models.NewExternalError("failed to create extension", err)
	}

	if err := s.Notifier.Notify(ctx, b.UserID, "extension_created",
		"Additional work proposed",
		fmt.Sprintf("The workshop proposes extra work on booking %s for %s. Please approve or decline.",
			b.BookingNumber, formatAmount(e.TotalCents, e.Currency)),
		map[string]string{"booking_id": b.ID, "extension_id": e.ID},
	); err != nil {
		utils.GetLogger().Warn("extension: notification failed", zap.String("extensionID", e.ID), zap.Error(err))
	}
	return e, nil
}

func (s *DefaultExtensionService) Approve(ctx context.Context, actor models.Actor, extensionID string) (*models.Extension, error) {
	e, _, err := s.loadForResolution(ctx, actor, extensionID)
	if err != nil {
		return nil, err
	}

	reference := "extension:" + e.ID
	authID, err := s.Payments.Authorize(ctx, e.TotalCents, e.Currency, reference)
	if err != nil {
		// Nothing was written: the extension stays PENDING and the customer
		// may retry once the problem is resolved.
		var perr *payment.Error
		if errors.As(err, &perr) && perr.Declined {
			return nil, models.NewPreconditionError("payment authorization declined: %s", perr.Reason)
		}
		return nil, models.NewExternalError("payment authorization failed", err)
	}

	now := time.Now()
	ok, err := s.Extensions.Approve(ctx, extensionID, authID, now)
	if err != nil {
		return nil, models.NewExternalError("failed to record approval", err)
	}
	if !ok {
		// Resolved concurrently. The uncaptured hold expires on its own at
		// the processor.
		utils.GetLogger().Warn("extension: approval lost race, authorization left to expire",
			zap.String("extensionID", extensionID),
			zap.String("authorizationID", authID))
		return nil, models.NewIllegalTransitionError("extension %s has already been resolved", extensionID)
	}
	e.Status = models.ExtensionApproved
	e.AuthorizationID = authID
	e.ApprovedAt = &now

	// Capture inline; a failure flags the extension for the reconciliation
	// worker but never reverts the approval.
	captured, capErr := s.Capture(ctx, extensionID)
	if capErr != nil {
		utils.GetLogger().Warn("extension: inline capture failed, flagged for reconciliation",
			zap.String("extensionID", extensionID),
			zap.Error(capErr))
		e.Status = models.ExtensionCaptureFailed
		return e, nil
	}
	return captured, nil
}

func (s *DefaultExtensionService) Decline(ctx context.Context, actor models.Actor, extensionID, reason string) (*models.Extension, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, models.NewValidationError("a decline requires a reason")
	}
	e, _, err := s.loadForResolution(ctx, actor, extensionID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	ok, err := s.Extensions.Decline(ctx, extensionID, reason, now)
	if err != nil {
		return nil, models.NewExternalError("failed to record decline", err)
	}
	if !ok {
		return nil, models.NewIllegalTransitionError("extension %s has already been resolved", extensionID)
	}
	e.Status = models.ExtensionDeclined
	e.DeclineReason = reason
	e.DeclinedAt = &now
	return e, nil
}

func (s *DefaultExtensionService) Capture(ctx context.Context, extensionID string) (*models.Extension, error) {
	e, err := s.Extensions.GetByID(ctx, extensionID)
	if err != nil {
		return nil, models.NewExternalError("failed to load extension", err)
	}
	if e == nil {
		return nil, models.NewValidationError("extension %s not found", extensionID)
	}
	if e.Status == models.ExtensionCaptured {
		return e, nil
	}
	if e.Status != models.ExtensionApproved && e.Status != models.ExtensionCaptureFailed {
		return nil, models.NewIllegalTransitionError("extension %s is %s and has no capturable authorization", extensionID, e.Status)
	}
	if e.AuthorizationID == "" {
		return nil, models.NewPreconditionError("extension %s has no authorization on record", extensionID)
	}

	if err := s.Payments.Capture(ctx, e.AuthorizationID); err != nil {
		if markErr := s.Extensions.MarkCaptureFailed(ctx, extensionID); markErr != nil {
			utils.GetLogger().Error("extension: failed to flag capture failure",
				zap.String("extensionID", extensionID), zap.Error(markErr))
		}
		var perr *payment.Error
		if errors.As(err, &perr) && perr.Declined {
			return nil, models.NewPreconditionError("payment capture declined: %s", perr.Reason)
		}
		return nil, models.NewExternalError("payment capture failed", err)
	}

	now := time.Now()
	ok, err := s.Extensions.MarkCaptured(ctx, extensionID, e.BookingID, e.TotalCents, now)
	if err != nil {
		return nil, models.NewExternalError("failed to record capture", err)
	}
	if !ok {
		current, getErr := s.Extensions.GetByID(ctx, extensionID)
		if getErr != nil || current == nil {
			return nil, models.NewExternalError("failed to reload extension", getErr)
		}
		return current, nil
	}
	e.Status = models.ExtensionCaptured
	e.CapturedAt = &now
	return e, nil
}

func (s *DefaultExtensionService) ListByBooking(ctx context.Context, actor models.Actor, bookingID string) ([]models.Extension, error) {
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
	list, err := s.Extensions.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, models.NewExternalError("failed to list extensions", err)
	}
	return list, nil
}

// loadForResolution enforces that the resolving actor is the customer who
// owns the parent booking and that the extension is still PENDING.
func (s *DefaultExtensionService) loadForResolution(ctx context.Context, actor models.Actor, extensionID string) (*models.Extension, *models.Booking, error) {
	if actor.Role != models.RoleCustomer {
		return nil, nil, models.NewIllegalTransitionError("only the customer may resolve an extension")
	}

	e, err := s.Extensions.GetByID(ctx, extensionID)
	if err != nil {
		return nil, nil, models.NewExternalError("failed to load extension", err)
	}
	if e == nil {
		return nil, nil, models.NewValidationError("extension %s not found", extensionID)
	}

	b, err := s.Bookings.GetByID(ctx, e.BookingID)
	if err != nil {
		return nil, nil, models.NewExternalError("failed to load booking", err)
	}
	if b == nil || b.UserID != actor.ID {
		return nil, nil, models.NewValidationError("extension %s not found", extensionID)
	}

	if e.Status != models.ExtensionPending {
		return nil, nil, models.NewIllegalTransitionError("extension %s has already been resolved", extensionID)
	}
	return e, b, nil
}

func formatAmount(cents int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", cents/100, cents%100, currency)
}
