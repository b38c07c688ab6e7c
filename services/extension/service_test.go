package extension

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pitstop/models"
	"pitstop/services/payment"
)

var (
	customer = models.Actor{ID: "user-1", Role: models.RoleCustomer}
	stranger = models.Actor{ID: "user-2", Role: models.RoleCustomer}
	workshop = models.Actor{ID: "shop-1", Role: models.RoleWorkshop}
)

type memBookings struct {
	mu    sync.Mutex
	items map[string]*models.Booking
}

func newMemBookings() *memBookings {
	return &memBookings{items: make(map[string]*models.Booking)}
}

func (r *memBookings) Create(_ context.Context, b *models.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *b
	r.items[b.ID] = &cp
	return nil
}

func (r *memBookings) GetByID(_ context.Context, id string) (*models.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func (r *memBookings) ListByUser(_ context.Context, _ string) ([]models.Booking, error) {
	return nil, nil
}

func (r *memBookings) TransitionStatus(_ context.Context, id string, from, to models.BookingStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.items[id]
	if !ok || b.Status != from {
		return false, nil
	}
	b.Status = to
	return true, nil
}

func (r *memBookings) ConfirmPayment(_ context.Context, _, _ string, _ time.Time) (bool, error) {
	return false, nil
}

func (r *memBookings) CancelWithAssignments(_ context.Context, _ string, _ []models.BookingStatus) (bool, error) {
	return false, nil
}

// memExtensions mirrors the CAS semantics of the Mongo repository. The
// capture write mutates the parent booking total through the shared booking
// store, matching the production transaction.
type memExtensions struct {
	mu       sync.Mutex
	items    map[string]*models.Extension
	bookings *memBookings
}

func newMemExtensions(bookings *memBookings) *memExtensions {
	return &memExtensions{items: make(map[string]*models.Extension), bookings: bookings}
}

func (r *memExtensions) Create(_ context.Context, e *models.Extension) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.items[e.ID] = &cp
	return nil
}

func (r *memExtensions) GetByID(_ context.Context, id string) (*models.Extension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r *memExtensions) ListByBooking(_ context.Context, bookingID string) ([]models.Extension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Extension
	for _, e := range r.items {
		if e.BookingID == bookingID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memExtensions) Approve(_ context.Context, id, authorizationID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok || e.Status != models.ExtensionPending {
		return false, nil
	}
	e.Status = models.ExtensionApproved
	e.AuthorizationID = authorizationID
	e.ApprovedAt = &at
	return true, nil
}

func (r *memExtensions) Decline(_ context.Context, id, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok || e.Status != models.ExtensionPending {
		return false, nil
	}
	e.Status = models.ExtensionDeclined
	e.DeclineReason = reason
	e.DeclinedAt = &at
	return true, nil
}

func (r *memExtensions) MarkCaptured(_ context.Context, id, bookingID string, amountCents int64, at time.Time) (bool, error) {
	r.mu.Lock()
	e, ok := r.items[id]
	if !ok || (e.Status != models.ExtensionApproved && e.Status != models.ExtensionCaptureFailed) {
		r.mu.Unlock()
		return false, nil
	}
	e.Status = models.ExtensionCaptured
	e.CapturedAt = &at
	r.mu.Unlock()

	r.bookings.mu.Lock()
	defer r.bookings.mu.Unlock()
	if b, ok := r.bookings.items[bookingID]; ok {
		b.TotalCents += amountCents
	}
	return true, nil
}

func (r *memExtensions) MarkCaptureFailed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.items[id]; ok {
		e.Status = models.ExtensionCaptureFailed
		e.CaptureAttempts++
	}
	return nil
}

func (r *memExtensions) ListOutstandingCaptures(_ context.Context) ([]models.Extension, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Extension
	for _, e := range r.items {
		if e.Status == models.ExtensionCaptureFailed {
			out = append(out, *e)
		}
	}
	return out, nil
}

type stubGateway struct {
	authorizeID  string
	authorizeErr error
	captureErr   error
	captures     int
}

var _ payment.Gateway = (*stubGateway)(nil)

func (g *stubGateway) VerifyPayment(_ context.Context, _ string) (int64, error) {
	return 0, errors.New("not used")
}

func (g *stubGateway) Authorize(_ context.Context, _ int64, _, _ string) (string, error) {
	if g.authorizeErr != nil {
		return "", g.authorizeErr
	}
	return g.authorizeID, nil
}

func (g *stubGateway) Capture(_ context.Context, _ string) error {
	g.captures++
	return g.captureErr
}

type silentNotifier struct{}

func (silentNotifier) Notify(_ context.Context, _, _, _, _ string, _ map[string]string) error {
	return nil
}

func newTestExtension(gw *stubGateway) (*DefaultExtensionService, *memBookings, *memExtensions) {
	bookings := newMemBookings()
	extensions := newMemExtensions(bookings)
	return NewDefaultExtensionService(extensions, bookings, gw, silentNotifier{}), bookings, extensions
}

func seedBooking(bookings *memBookings, status models.BookingStatus) *models.Booking {
	b := &models.Booking{
		ID:            "bkg-1",
		BookingNumber: "PIT-20260701-ABCDEF",
		UserID:        customer.ID,
		Status:        status,
		TotalCents:    219_00,
		Currency:      "EUR",
	}
	bookings.Create(context.Background(), b)
	return b
}

func brakePads() CreateExtensionInput {
	return CreateExtensionInput{
		BookingID:   "bkg-1",
		Description: "Front brake pads worn below 3mm",
		Items: []models.ExtensionItem{
			{Name: "Brake pads front axle", UnitPriceCents: 120_00, Quantity: 2},
		},
		EvidenceRefs: []string{"evidence/pads.jpg"},
	}
}

func mustCreate(t *testing.T, svc *DefaultExtensionService) *models.Extension {
	t.Helper()
	e, err := svc.Create(context.Background(), workshop, brakePads())
	if err != nil {
		t.Fatalf("create extension: %v", err)
	}
	return e
}

func TestCreateExtension(t *testing.T) {
	gw := &stubGateway{}
	svc, bookings, _ := newTestExtension(gw)
	seedBooking(bookings, models.StatusAtWorkshop)

	e := mustCreate(t, svc)
	if e.TotalCents != 240_00 {
		t.Errorf("TotalCents = %d, want 24000", e.TotalCents)
	}
	if e.Currency != "EUR" {
		t.Errorf("Currency = %q, want EUR", e.Currency)
	}
	if e.Status != models.ExtensionPending {
		t.Errorf("Status = %s, want PENDING", e.Status)
	}
}

func TestCreateExtensionRequiresVehicleInService(t *testing.T) {
	for _, status := range []models.BookingStatus{
		models.StatusConfirmed,
		models.StatusPickedUp,
		models.StatusReadyForReturn,
	} {
		t.Run(string(status), func(t *testing.T) {
			svc, bookings, _ := newTestExtension(&stubGateway{})
			seedBooking(bookings, status)
			if _, err := svc.Create(context.Background(), workshop, brakePads()); !models.IsPrecondition(err) {
				t.Errorf("err = %v, want precondition failure", err)
			}
		})
	}
}

func TestCreateExtensionValidation(t *testing.T) {
	svc, bookings, _ := newTestExtension(&stubGateway{})
	seedBooking(bookings, models.StatusAtWorkshop)

	noItems := brakePads()
	noItems.Items = nil
	if _, err := svc.Create(context.Background(), workshop, noItems); !models.IsPrecondition(err) {
		t.Errorf("empty items: err = %v, want precondition failure", err)
	}

	badPrice := brakePads()
	badPrice.Items[0].UnitPriceCents = 0
	if _, err := svc.Create(context.Background(), workshop, badPrice); !models.IsValidation(err) {
		t.Errorf("zero price: err = %v, want validation error", err)
	}

	if _, err := svc.Create(context.Background(), customer, brakePads()); !models.IsIllegalTransition(err) {
		t.Errorf("customer create: err = %v, want illegal transition", err)
	}
}

func TestApproveCapturesAndBillsBooking(t *testing.T) {
	gw := &stubGateway{authorizeID: "auth-1"}
	svc, bookings, _ := newTestExtension(gw)
	seedBooking(bookings, models.StatusAtWorkshop)
	e := mustCreate(t, svc)

	resolved, err := svc.Approve(context.Background(), customer, e.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if resolved.Status != models.ExtensionCaptured {
		t.Errorf("Status = %s, want CAPTURED", resolved.Status)
	}
	if gw.captures != 1 {
		t.Errorf("captures = %d, want 1", gw.captures)
	}

	b, _ := bookings.GetByID(context.Background(), "bkg-1")
	if b.TotalCents != 219_00+240_00 {
		t.Errorf("booking TotalCents = %d, want %d", b.TotalCents, 219_00+240_00)
	}

	// Resolved extensions cannot be resolved again.
	if _, err := svc.Approve(context.Background(), customer, e.ID); !models.IsIllegalTransition(err) {
		t.Errorf("second approve: err = %v, want illegal transition", err)
	}
}

func TestApproveAuthorizationFailureLeavesPending(t *testing.T) {
	tests := []struct {
		name    string
		gwErr   error
		wantErr func(error) bool
	}{
		{"declined", &payment.Error{Declined: true, Reason: "card declined"}, models.IsPrecondition},
		{"unreachable", &payment.Error{Reason: "processor timeout"}, models.IsExternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, bookings, extensions := newTestExtension(&stubGateway{authorizeErr: tt.gwErr})
			seedBooking(bookings, models.StatusAtWorkshop)
			e := mustCreate(t, svc)

			if _, err := svc.Approve(context.Background(), customer, e.ID); !tt.wantErr(err) {
				t.Fatalf("err = %v, want %s class", err, tt.name)
			}
			current, _ := extensions.GetByID(context.Background(), e.ID)
			if current.Status != models.ExtensionPending {
				t.Errorf("Status = %s, want PENDING", current.Status)
			}
		})
	}
}

func TestApproveCaptureFailureFlagsForReconciliation(t *testing.T) {
	gw := &stubGateway{
		authorizeID: "auth-1",
		captureErr:  &payment.Error{Reason: "processor timeout"},
	}
	svc, bookings, extensions := newTestExtension(gw)
	seedBooking(bookings, models.StatusAtWorkshop)
	e := mustCreate(t, svc)

	resolved, err := svc.Approve(context.Background(), customer, e.ID)
	if err != nil {
		t.Fatalf("approve with failing capture: %v", err)
	}
	if resolved.Status != models.ExtensionCaptureFailed {
		t.Errorf("Status = %s, want CAPTURE_FAILED", resolved.Status)
	}

	outstanding, _ := extensions.ListOutstandingCaptures(context.Background())
	if len(outstanding) != 1 {
		t.Fatalf("outstanding captures = %d, want 1", len(outstanding))
	}

	// The booking is only billed once the retry succeeds.
	b, _ := bookings.GetByID(context.Background(), "bkg-1")
	if b.TotalCents != 219_00 {
		t.Errorf("booking TotalCents = %d, want unchanged 21900", b.TotalCents)
	}

	gw.captureErr = nil
	retried, err := svc.Capture(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("retried capture: %v", err)
	}
	if retried.Status != models.ExtensionCaptured {
		t.Errorf("Status after retry = %s, want CAPTURED", retried.Status)
	}
	b, _ = bookings.GetByID(context.Background(), "bkg-1")
	if b.TotalCents != 219_00+240_00 {
		t.Errorf("booking TotalCents after retry = %d, want %d", b.TotalCents, 219_00+240_00)
	}

	// A captured extension makes further retries no-ops.
	if _, err := svc.Capture(context.Background(), e.ID); err != nil {
		t.Errorf("capture after success: %v", err)
	}
}

func TestDecline(t *testing.T) {
	svc, bookings, _ := newTestExtension(&stubGateway{})
	seedBooking(bookings, models.StatusAtWorkshop)
	e := mustCreate(t, svc)

	if _, err := svc.Decline(context.Background(), customer, e.ID, ""); !models.IsValidation(err) {
		t.Errorf("empty reason: err = %v, want validation error", err)
	}

	declined, err := svc.Decline(context.Background(), customer, e.ID, "too expensive")
	if err != nil {
		t.Fatalf("decline: %v", err)
	}
	if declined.Status != models.ExtensionDeclined || declined.DeclineReason != "too expensive" {
		t.Errorf("declined = %+v, want DECLINED with reason", declined)
	}

	b, _ := bookings.GetByID(context.Background(), "bkg-1")
	if b.TotalCents != 219_00 {
		t.Errorf("booking TotalCents = %d, want unchanged 21900", b.TotalCents)
	}

	if _, err := svc.Approve(context.Background(), customer, e.ID); !models.IsIllegalTransition(err) {
		t.Errorf("approve after decline: err = %v, want illegal transition", err)
	}
}

func TestResolutionOwnership(t *testing.T) {
	svc, bookings, _ := newTestExtension(&stubGateway{authorizeID: "auth-1"})
	seedBooking(bookings, models.StatusAtWorkshop)
	e := mustCreate(t, svc)

	if _, err := svc.Approve(context.Background(), stranger, e.ID); !models.IsValidation(err) {
		t.Errorf("foreign customer: err = %v, want not-found validation", err)
	}
	if _, err := svc.Approve(context.Background(), workshop, e.ID); !models.IsIllegalTransition(err) {
		t.Errorf("workshop approve: err = %v, want illegal transition", err)
	}
	if _, err := svc.ListByBooking(context.Background(), stranger, "bkg-1"); !models.IsValidation(err) {
		t.Errorf("foreign list: err = %v, want not-found validation", err)
	}

	list, err := svc.ListByBooking(context.Background(), customer, "bkg-1")
	if err != nil {
		t.Fatalf("owner list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("extensions listed = %d, want 1", len(list))
	}
}
