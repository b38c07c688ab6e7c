package booking

import (
	"context"
	"sync"
	"time"

	assignmentRepo "pitstop/database/repository/assignment"
	"pitstop/models"
	"pitstop/services/payment"
)

var errDuplicate = assignmentRepo.ErrDuplicateAssignment

// memBookingRepo is an in-memory BookingRepository with the same
// compare-and-swap semantics as the Mongo implementation.
type memBookingRepo struct {
	mu          sync.Mutex
	bookings    map[string]*models.Booking
	assignments *memAssignmentRepo
	// transitions records every successful CAS so tests can assert a
	// contended step was applied exactly once.
	transitions []models.BookingStatus
}

func newMemBookingRepo(assignments *memAssignmentRepo) *memBookingRepo {
	return &memBookingRepo{
		bookings:    make(map[string]*models.Booking),
		assignments: assignments,
	}
}

func (r *memBookingRepo) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.bookings[b.ID] = &cp
	return nil
}

func (r *memBookingRepo) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *memBookingRepo) ListByUser(_ context.Context, userID string) ([]models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Booking
	for _, b := range r.bookings {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *memBookingRepo) TransitionStatus(_ context.Context, id string, from, to models.BookingStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	r.transitions = append(r.transitions, to)
	return true, nil
}

func (r *memBookingRepo) transitionsTo(status models.BookingStatus) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.transitions {
		if t == status {
			n++
		}
	}
	return n
}

func (r *memBookingRepo) ConfirmPayment(_ context.Context, id, paymentRef string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok || b.Status != models.StatusPendingPayment {
		return false, nil
	}
	b.Status = models.StatusConfirmed
	b.PaymentRef = paymentRef
	b.PaymentConfirmedAt = &at
	b.UpdatedAt = at
	return true, nil
}

func (r *memBookingRepo) CancelWithAssignments(_ context.Context, id string, eligible []models.BookingStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return false, nil
	}
	match := false
	for _, s := range eligible {
		if b.Status == s {
			match = true
			break
		}
	}
	if !match {
		return false, nil
	}
	b.Status = models.StatusCancelled
	b.UpdatedAt = time.Now()
	if r.assignments != nil {
		r.assignments.cancelByBooking(id)
	}
	return true, nil
}

// memAssignmentRepo is an in-memory AssignmentRepository enforcing the
// (booking_id, kind) uniqueness the Mongo index provides.
type memAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string]*models.JockeyAssignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{assignments: make(map[string]*models.JockeyAssignment)}
}

func (r *memAssignmentRepo) Create(_ context.Context, a *models.JockeyAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.assignments {
		if existing.BookingID == a.BookingID && existing.Kind == a.Kind {
			return errDuplicate
		}
	}
	cp := *a
	r.assignments[a.ID] = &cp
	return nil
}

func (r *memAssignmentRepo) GetByID(_ context.Context, id string) (*models.JockeyAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *memAssignmentRepo) GetByBookingAndKind(_ context.Context, bookingID string, kind models.AssignmentKind) (*models.JockeyAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.assignments {
		if a.BookingID == bookingID && a.Kind == kind {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memAssignmentRepo) Complete(_ context.Context, id string, evidence models.HandoverEvidence) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok || a.Status != models.AssignmentAssigned {
		return false, nil
	}
	now := time.Now()
	a.Status = models.AssignmentCompleted
	a.Evidence = &evidence
	a.CompletedAt = &now
	return true, nil
}

func (r *memAssignmentRepo) Claim(_ context.Context, id, jockeyID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assignments[id]
	if !ok || a.Status != models.AssignmentAssigned {
		return false, nil
	}
	a.JockeyID = jockeyID
	return true, nil
}

func (r *memAssignmentRepo) cancelByBooking(bookingID string) {
	for _, a := range r.assignments {
		if a.BookingID == bookingID && a.Status == models.AssignmentAssigned {
			a.Status = models.AssignmentCancelled
		}
	}
}

// memVehicleRepo is an in-memory VehicleRepository.
type memVehicleRepo struct {
	mu       sync.Mutex
	vehicles map[string]*models.Vehicle
}

func newMemVehicleRepo() *memVehicleRepo {
	return &memVehicleRepo{vehicles: make(map[string]*models.Vehicle)}
}

func (r *memVehicleRepo) GetByID(_ context.Context, id string) (*models.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vehicles[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (r *memVehicleRepo) ListByUser(_ context.Context, userID string) ([]models.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Vehicle
	for _, v := range r.vehicles {
		if v.UserID == userID {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (r *memVehicleRepo) Create(_ context.Context, v *models.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *v
	r.vehicles[v.ID] = &cp
	return nil
}

func (r *memVehicleRepo) Update(_ context.Context, v *models.Vehicle) error {
	return r.Create(context.Background(), v)
}

// stubGateway scripts payment processor behavior per test.
type stubGateway struct {
	verifyAmount int64
	verifyErr    error
	authorizeID  string
	authorizeErr error
	captureErr   error
}

func (g *stubGateway) VerifyPayment(_ context.Context, _ string) (int64, error) {
	if g.verifyErr != nil {
		return 0, g.verifyErr
	}
	return g.verifyAmount, nil
}

func (g *stubGateway) Authorize(_ context.Context, _ int64, _, _ string) (string, error) {
	if g.authorizeErr != nil {
		return "", g.authorizeErr
	}
	return g.authorizeID, nil
}

func (g *stubGateway) Capture(_ context.Context, _ string) error {
	return g.captureErr
}

var _ payment.Gateway = (*stubGateway)(nil)

// recordingNotifier records every notification for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	types []string
}

func (n *recordingNotifier) Notify(_ context.Context, _, notifType, _, _ string, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.types = append(n.types, notifType)
	return nil
}

// emptyMatrix makes the pricing engine fall through to its defaults.
type emptyMatrix struct{}

func (emptyMatrix) FindByBrand(_ context.Context, _ string) ([]models.PriceMatrixEntry, error) {
	return nil, nil
}
