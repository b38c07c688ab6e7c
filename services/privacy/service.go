package privacy

import (
	"context"
	"fmt"
	"time"

	"pitstop/config"
	bookingRepo "pitstop/database/repository/booking"
	notificationRepo "pitstop/database/repository/notification"
	privacyRepo "pitstop/database/repository/privacy"
	userRepo "pitstop/database/repository/user"
	vehicleRepo "pitstop/database/repository/vehicle"
	"pitstop/models"
	"pitstop/utils"

	"go.uber.org/zap"
)

const legalBasis = "GDPR Art. 15 (access) / Art. 17 (erasure); financial records retained under commercial record-keeping obligations"

// Service implements data-subject access and erasure requests. Export is a
// pure read; erasure runs as a single transaction in the repository so a
// partial erasure is never observable.
type Service interface {
	// Export assembles the read-only snapshot of everything held about the
	// user. Booking internal notes never appear in the export.
	Export(ctx context.Context, actor models.Actor, userID string) (*models.DataExport, error)
	// RequestErasure revokes the user's outstanding sessions, anonymizes
	// bookings older than the retention threshold,
	// hard-deletes newer bookings plus vehicles and notification logs, and
	// anonymizes the user record itself.
	RequestErasure(ctx context.Context, actor models.Actor, userID string) (*models.ErasureReport, error)
}

// SessionRevoker invalidates a user's outstanding auth tokens.
type SessionRevoker interface {
	RevokeUser(ctx context.Context, userID string) error
}

// CacheSessionRevoker marks the user as revoked in the auth cache, which
// the auth middleware checks on every request.
type CacheSessionRevoker struct{}

func (CacheSessionRevoker) RevokeUser(ctx context.Context, userID string) error {
	return utils.RevokeUserSessions(ctx, userID)
}

// DefaultPrivacyService is the production implementation.
type DefaultPrivacyService struct {
	Users         userRepo.UserRepository
	Vehicles      vehicleRepo.VehicleRepository
	Bookings      bookingRepo.BookingRepository
	Notifications notificationRepo.NotificationRepository
	Privacy       privacyRepo.PrivacyRepository
	Sessions      SessionRevoker
	// Now is injectable so retention-cutoff tests are deterministic.
	Now func() time.Time
}

func NewDefaultPrivacyService(
	users userRepo.UserRepository,
	vehicles vehicleRepo.VehicleRepository,
	bookings bookingRepo.BookingRepository,
	notifications notificationRepo.NotificationRepository,
	privacy privacyRepo.PrivacyRepository,
	sessions SessionRevoker,
) *DefaultPrivacyService {
	return &DefaultPrivacyService{
		Users:         users,
		Vehicles:      vehicles,
		Bookings:      bookings,
		Notifications: notifications,
		Privacy:       privacy,
		Sessions:      sessions,
		Now:           time.Now,
	}
}

// authorize allows the data subject themselves and the system role. Other
// actors read the subject as not found.
func (s *DefaultPrivacyService) authorize(ctx context.Context, actor models.Actor, userID string) (*models.User, error) {
	if actor.Role != models.RoleSystem && actor.ID != userID {
		return nil, models.NewValidationError("user %s not found", userID)
	}
	u, err := s.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to load user", err)
	}
	if u == nil {
		return nil, models.NewValidationError("user %s not found", userID)
	}
	return u, nil
}

func (s *DefaultPrivacyService) Export(ctx context.Context, actor models.Actor, userID string) (*models.DataExport, error) {
	u, err := s.authorize(ctx, actor, userID)
	if err != nil {
		return nil, err
	}

	vehicles, err := s.Vehicles.ListByUser(ctx, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to list vehicles", err)
	}
	bookings, err := s.Bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to list bookings", err)
	}
	notifications, err := s.Notifications.ListByUser(ctx, userID)
	if err != nil {
		return nil, models.NewExternalError("failed to list notifications", err)
	}

	exports := make([]models.BookingExport, 0, len(bookings))
	for _, b := range bookings {
		exports = append(exports, models.BookingExport{
			BookingNumber:   b.BookingNumber,
			Status:          b.Status,
			Services:        b.Services,
			TotalCents:      b.TotalCents,
			Currency:        b.Currency,
			Vehicle:         b.Vehicle,
			PickupAddress:   b.PickupAddress,
			DeliveryAddress: b.DeliveryAddress,
			CustomerNotes:   b.CustomerNotes,
			CreatedAt:       b.CreatedAt,
		})
	}

	return &models.DataExport{
		GeneratedAt: s.Now(),
		LegalBasis:  legalBasis,
		RetentionNote: fmt.Sprintf(
			"Bookings are retained for %d years for financial auditability; older bookings are stored in anonymized form.",
			config.AppConfig.RetentionYears),
		User:          *u,
		Vehicles:      vehicles,
		Bookings:      exports,
		Notifications: notifications,
	}, nil
}

// placeholderEmail is synthetic and keyed by the internal user ID, so the
// anonymized record stays unique under the email index without retaining
// the real address.
func placeholderEmail(userID string) string {
	return fmt.Sprintf("erased-%s@anonymized.invalid", userID)
}

func (s *DefaultPrivacyService) RequestErasure(ctx context.Context, actor models.Actor, userID string) (*models.ErasureReport, error) {
	u, err := s.authorize(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	if u.Anonymized {
		return nil, models.NewIllegalTransitionError("user %s has already been erased", userID)
	}

	// Sessions go first so an erased subject cannot keep acting through a
	// still-valid token. The revocation marker is idempotent, so a retry
	// after a failed transaction repeats it harmlessly.
	if err := s.Sessions.RevokeUser(ctx, userID); err != nil {
		return nil, models.NewExternalError("failed to revoke user sessions", err)
	}

	cutoff := s.Now().AddDate(-config.AppConfig.RetentionYears, 0, 0)
	report, err := s.Privacy.EraseUser(ctx, userID, cutoff, placeholderEmail(userID))
	if err != nil {
		return nil, models.NewExternalError("erasure transaction failed", err)
	}

	utils.GetLogger().Info("privacy: erasure completed",
		zap.String("userID", userID),
		zap.Int("bookingsAnonymized", report.BookingsAnonymized),
		zap.Int("bookingsDeleted", report.BookingsDeleted),
		zap.Int("vehiclesDeleted", report.VehiclesDeleted),
		zap.Int("notificationsDeleted", report.NotificationsDeleted))
	return report, nil
}
