package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"pitstop/config"
	"pitstop/models"
	"pitstop/services/dispatch"
	"pitstop/services/payment"
	"pitstop/services/pricing"
)

var (
	customer = models.Actor{ID: "user-1", Role: models.RoleCustomer}
	stranger = models.Actor{ID: "user-2", Role: models.RoleCustomer}
	workshop = models.Actor{ID: "shop-1", Role: models.RoleWorkshop}
	jockey   = models.Actor{ID: "jockey-1", Role: models.RoleJockey}
)

// golfMatrix carries the VW Golf inspection row used by the pricing
// scenario: 2015 model at 60,000 km prices at 199 base, times 1.1 for an
// 11-year-old vehicle, rounded to 219.
type golfMatrix struct{}

func (golfMatrix) FindByBrand(_ context.Context, brand string) ([]models.PriceMatrixEntry, error) {
	if brand != "VW" {
		return nil, nil
	}
	return []models.PriceMatrixEntry{{
		Brand:    "VW",
		Model:    "Golf",
		YearFrom: 2013,
		YearTo:   2018,
		Services: map[models.ServiceKind]models.TierPrices{
			models.ServiceInspection: {Tier30kCents: 179_00, Tier60kCents: 199_00, Tier90kCents: 219_00, Tier120kPlusCents: 239_00},
		},
	}}, nil
}

type testEnv struct {
	svc         *DefaultBookingService
	bookings    *memBookingRepo
	assignments *memAssignmentRepo
	vehicles    *memVehicleRepo
	gateway     *stubGateway
	notifier    *recordingNotifier
	dispatcher  *dispatch.DefaultDispatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	config.AppConfig.Currency = "EUR"

	assignments := newMemAssignmentRepo()
	bookings := newMemBookingRepo(assignments)
	vehicles := newMemVehicleRepo()
	gateway := &stubGateway{authorizeID: "auth-1"}
	notifier := &recordingNotifier{}

	engine := &pricing.Engine{
		Matrix: golfMatrix{},
		Now:    func() time.Time { return time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	dispatcher := dispatch.NewDefaultDispatchService(assignments, bookings, notifier)

	vehicles.Create(context.Background(), &models.Vehicle{
		ID:        "veh-1",
		UserID:    customer.ID,
		Brand:     "VW",
		Model:     "Golf",
		ModelYear: 2015,
		Mileage:   60_000,
	})

	return &testEnv{
		svc:         NewDefaultBookingService(bookings, vehicles, engine, gateway, dispatcher, notifier),
		bookings:    bookings,
		assignments: assignments,
		vehicles:    vehicles,
		gateway:     gateway,
		notifier:    notifier,
		dispatcher:  dispatcher,
	}
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		VehicleID:      "veh-1",
		Services:       []models.ServiceKind{models.ServiceInspection},
		PickupWindow:   models.TimeWindow{Start: time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC), End: time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)},
		DeliveryWindow: models.TimeWindow{Start: time.Date(2026, 7, 3, 16, 0, 0, 0, time.UTC), End: time.Date(2026, 7, 3, 18, 0, 0, 0, time.UTC)},
		PickupAddress:  "Hauptstr. 1, Berlin",
	}
}

func mustCreate(t *testing.T, env *testEnv) *models.Booking {
	t.Helper()
	b, err := env.svc.CreateBooking(context.Background(), customer, validInput())
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	return b
}

// mustConfirm drives a fresh booking through payment confirmation, which
// also dispatches the pickup assignment.
func mustConfirm(t *testing.T, env *testEnv, b *models.Booking) *models.Booking {
	t.Helper()
	env.gateway.verifyAmount = b.TotalCents
	confirmed, err := env.svc.ConfirmPayment(context.Background(), customer, b.ID, "pay-1")
	if err != nil {
		t.Fatalf("ConfirmPayment: %v", err)
	}
	return confirmed
}

// completePickup finishes the pickup handover so the workshop sequence can
// start.
func completePickup(t *testing.T, env *testEnv, bookingID string) {
	t.Helper()
	a, err := env.assignments.GetByBookingAndKind(context.Background(), bookingID, models.AssignmentPickup)
	if err != nil || a == nil {
		t.Fatalf("pickup assignment missing: %v", err)
	}
	if _, err := env.dispatcher.CompleteHandover(context.Background(), jockey, a.ID, models.HandoverEvidence{
		PhotoRefs:    []string{"photo-1"},
		SignatureRef: "sig-1",
		Odometer:     60_100,
	}); err != nil {
		t.Fatalf("CompleteHandover: %v", err)
	}
}

func TestCreateBookingPricesGolfInspection(t *testing.T) {
	env := newTestEnv(t)

	b := mustCreate(t, env)

	if b.Status != models.StatusPendingPayment {
		t.Errorf("status = %s, want PENDING_PAYMENT", b.Status)
	}
	if b.TotalCents != 219_00 {
		t.Errorf("TotalCents = %d, want 21900", b.TotalCents)
	}
	if b.PriceTier != string(models.Tier60k) {
		t.Errorf("PriceTier = %s, want 60k", b.PriceTier)
	}
	if b.AgeMultiplier != 1.1 {
		t.Errorf("AgeMultiplier = %v, want 1.1", b.AgeMultiplier)
	}
	if len(b.Services) != 1 || b.Services[0].PriceSource != string(pricing.SourceExact) {
		t.Errorf("service price source = %+v, want exact", b.Services)
	}
	if b.Vehicle.Brand != "VW" || b.Vehicle.Mileage != 60_000 {
		t.Errorf("vehicle snapshot = %+v", b.Vehicle)
	}
	if b.BookingNumber == "" {
		t.Error("booking number not assigned")
	}
}

func TestCreateBookingDeliveryAddressDefaultsToPickup(t *testing.T) {
	env := newTestEnv(t)

	b := mustCreate(t, env)
	if b.DeliveryAddress != b.PickupAddress {
		t.Errorf("DeliveryAddress = %q, want the pickup address %q", b.DeliveryAddress, b.PickupAddress)
	}

	in := validInput()
	in.DeliveryAddress = "Gartenweg 12, Potsdam"
	b2, err := env.svc.CreateBooking(context.Background(), customer, in)
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if b2.DeliveryAddress != "Gartenweg 12, Potsdam" {
		t.Errorf("DeliveryAddress = %q, want the supplied address", b2.DeliveryAddress)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(*CreateBookingInput)
		actor  models.Actor
	}{
		{"no services", func(in *CreateBookingInput) { in.Services = nil }, customer},
		{"duplicate service", func(in *CreateBookingInput) {
			in.Services = []models.ServiceKind{models.ServiceInspection, models.ServiceInspection}
		}, customer},
		{"no address", func(in *CreateBookingInput) { in.PickupAddress = "  " }, customer},
		{"inverted window", func(in *CreateBookingInput) {
			in.PickupWindow.Start, in.PickupWindow.End = in.PickupWindow.End, in.PickupWindow.Start
		}, customer},
		{"delivery before pickup", func(in *CreateBookingInput) {
			in.DeliveryWindow = models.TimeWindow{Start: in.PickupWindow.Start.Add(-48 * time.Hour), End: in.PickupWindow.Start.Add(-46 * time.Hour)}
		}, customer},
		{"foreign vehicle", func(in *CreateBookingInput) {}, stranger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mutate(&in)
			_, err := env.svc.CreateBooking(context.Background(), tt.actor, in)
			if !models.IsValidation(err) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCreateBookingRequiresCustomerRole(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.svc.CreateBooking(context.Background(), workshop, validInput())
	if !models.IsIllegalTransition(err) {
		t.Fatalf("err = %v, want illegal transition", err)
	}
}

func TestConfirmPaymentHappyPath(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)

	confirmed := mustConfirm(t, env, b)

	if confirmed.Status != models.StatusJockeyAssigned {
		t.Errorf("status = %s, want JOCKEY_ASSIGNED", confirmed.Status)
	}
	a, _ := env.assignments.GetByBookingAndKind(context.Background(), b.ID, models.AssignmentPickup)
	if a == nil {
		t.Fatal("pickup assignment was not created")
	}
	if a.Status != models.AssignmentAssigned {
		t.Errorf("assignment status = %s, want ASSIGNED", a.Status)
	}
}

func TestConfirmPaymentAmountMismatch(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)

	env.gateway.verifyAmount = b.TotalCents - 100
	_, err := env.svc.ConfirmPayment(context.Background(), customer, b.ID, "pay-1")
	if !models.IsPrecondition(err) {
		t.Fatalf("err = %v, want precondition failure", err)
	}

	current, _ := env.bookings.GetByID(context.Background(), b.ID)
	if current.Status != models.StatusPendingPayment {
		t.Errorf("status = %s, want PENDING_PAYMENT untouched", current.Status)
	}
}

func TestConfirmPaymentGatewayFailures(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)

	env.gateway.verifyErr = &payment.Error{Declined: true, Reason: "card declined"}
	if _, err := env.svc.ConfirmPayment(context.Background(), customer, b.ID, "pay-1"); !models.IsPrecondition(err) {
		t.Errorf("declined: err = %v, want precondition failure", err)
	}

	env.gateway.verifyErr = &payment.Error{Declined: false, Reason: "timeout"}
	_, err := env.svc.ConfirmPayment(context.Background(), customer, b.ID, "pay-1")
	if !models.IsExternal(err) {
		t.Fatalf("unreachable: err = %v, want external dependency failure", err)
	}
	var we *models.WorkflowError
	if !asWorkflow(err, &we) || !we.Retryable() {
		t.Error("external dependency failure should be retryable")
	}
}

func TestConfirmPaymentIdempotentOnWebhookRetry(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)

	again, err := env.svc.ConfirmPayment(context.Background(), customer, b.ID, "pay-1")
	if err != nil {
		t.Fatalf("retry with same reference should succeed, got %v", err)
	}
	if again.Status != models.StatusJockeyAssigned {
		t.Errorf("status = %s, want JOCKEY_ASSIGNED", again.Status)
	}

	// Still exactly one pickup assignment.
	count := 0
	for _, a := range env.assignments.assignments {
		if a.BookingID == b.ID && a.Kind == models.AssignmentPickup {
			count++
		}
	}
	if count != 1 {
		t.Errorf("pickup assignments = %d, want 1", count)
	}

	if _, err := env.svc.ConfirmPayment(context.Background(), customer, b.ID, "pay-other"); !models.IsIllegalTransition(err) {
		t.Errorf("different reference after confirmation: err = %v, want illegal transition", err)
	}
}

func TestAdvanceStatusSequence(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)
	completePickup(t, env, b.ID)

	steps := []models.BookingStatus{
		models.StatusAtWorkshop,
		models.StatusInService,
		models.StatusReadyForReturn,
	}
	for _, target := range steps {
		if _, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, target); err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
	}

	// READY_FOR_RETURN dispatches the return task and moves on.
	current, _ := env.bookings.GetByID(context.Background(), b.ID)
	if current.Status != models.StatusReturnAssigned {
		t.Errorf("status = %s, want RETURN_ASSIGNED", current.Status)
	}
	ret, _ := env.assignments.GetByBookingAndKind(context.Background(), b.ID, models.AssignmentReturn)
	if ret == nil {
		t.Fatal("return assignment was not created")
	}
}

func TestAdvanceStatusRejectsSkips(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)
	completePickup(t, env, b.ID)

	// PICKED_UP straight to IN_SERVICE skips AT_WORKSHOP.
	_, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, models.StatusInService)
	if !models.IsIllegalTransition(err) {
		t.Fatalf("err = %v, want illegal transition", err)
	}

	if _, err := env.svc.AdvanceStatus(context.Background(), customer, b.ID, models.StatusAtWorkshop); !models.IsIllegalTransition(err) {
		t.Errorf("customer advancing: err = %v, want illegal transition", err)
	}

	if _, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, "NOT_A_STATUS"); !models.IsValidation(err) {
		t.Errorf("unknown status: err = %v, want validation error", err)
	}
}

func TestAdvanceStatusIdempotentRepeat(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)
	completePickup(t, env, b.ID)

	if _, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, models.StatusAtWorkshop); err != nil {
		t.Fatalf("first advance: %v", err)
	}
	// A retried identical call is a no-op success, not a second transition.
	again, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, models.StatusAtWorkshop)
	if err != nil {
		t.Fatalf("repeat advance: %v", err)
	}
	if again.Status != models.StatusAtWorkshop {
		t.Errorf("status = %s, want AT_WORKSHOP", again.Status)
	}
}

func TestAdvanceStatusConcurrentCalls(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)
	completePickup(t, env, b.ID)
	if _, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, models.StatusAtWorkshop); err != nil {
		t.Fatalf("advance to AT_WORKSHOP: %v", err)
	}

	// Two workshop terminals submit the same step at once. Both calls must
	// succeed, with exactly one of them applying the transition.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.svc.AdvanceStatus(context.Background(), workshop, b.ID, models.StatusInService)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("call %d: %v", i, err)
		}
	}
	current, _ := env.bookings.GetByID(context.Background(), b.ID)
	if current.Status != models.StatusInService {
		t.Errorf("status = %s, want IN_SERVICE", current.Status)
	}
	if n := env.bookings.transitionsTo(models.StatusInService); n != 1 {
		t.Errorf("IN_SERVICE was applied %d times, want exactly once", n)
	}
}

func TestCompleteBooking(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)
	completePickup(t, env, b.ID)

	for _, target := range []models.BookingStatus{models.StatusAtWorkshop, models.StatusInService, models.StatusReadyForReturn} {
		if _, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, target); err != nil {
			t.Fatalf("advance to %s: %v", target, err)
		}
	}
	ret, _ := env.assignments.GetByBookingAndKind(context.Background(), b.ID, models.AssignmentReturn)
	if _, err := env.dispatcher.CompleteHandover(context.Background(), jockey, ret.ID, models.HandoverEvidence{
		PhotoRefs:    []string{"photo-2"},
		SignatureRef: "sig-2",
		Odometer:     60_150,
	}); err != nil {
		t.Fatalf("return handover: %v", err)
	}

	done, err := env.svc.Complete(context.Background(), workshop, b.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if done.Status != models.StatusCompleted {
		t.Errorf("status = %s, want COMPLETED", done.Status)
	}

	// Completing twice is a no-op success; any other action is rejected.
	if _, err := env.svc.Complete(context.Background(), workshop, b.ID); err != nil {
		t.Errorf("repeat complete: %v", err)
	}
	if _, err := env.svc.AdvanceStatus(context.Background(), workshop, b.ID, models.StatusAtWorkshop); !models.IsTerminalState(err) {
		t.Errorf("advance after completion: err = %v, want terminal state", err)
	}
}

func TestCancelBeforePickup(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)

	cancelled, err := env.svc.Cancel(context.Background(), customer, b.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != models.StatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cancelled.Status)
	}

	// The outstanding pickup assignment is cancelled in the same write.
	a, _ := env.assignments.GetByBookingAndKind(context.Background(), b.ID, models.AssignmentPickup)
	if a.Status != models.AssignmentCancelled {
		t.Errorf("assignment status = %s, want CANCELLED", a.Status)
	}

	if _, err := env.svc.Cancel(context.Background(), customer, b.ID); !models.IsTerminalState(err) {
		t.Errorf("second cancel: err = %v, want terminal state", err)
	}
}

func TestCancelAfterPickupRejected(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)
	mustConfirm(t, env, b)
	completePickup(t, env, b.ID)

	_, err := env.svc.Cancel(context.Background(), customer, b.ID)
	if !models.IsPrecondition(err) {
		t.Fatalf("err = %v, want precondition failure", err)
	}

	if _, err := env.svc.Cancel(context.Background(), jockey, b.ID); !models.IsIllegalTransition(err) {
		t.Errorf("jockey cancel: err = %v, want illegal transition", err)
	}
}

func TestCustomerCannotSeeForeignBooking(t *testing.T) {
	env := newTestEnv(t)
	b := mustCreate(t, env)

	if _, err := env.svc.GetBooking(context.Background(), stranger, b.ID); !models.IsValidation(err) {
		t.Errorf("foreign get: err = %v, want not-found validation error", err)
	}
	if _, err := env.svc.ListBookings(context.Background(), stranger, customer.ID); !models.IsIllegalTransition(err) {
		t.Errorf("foreign list: err = %v, want illegal transition", err)
	}
	if _, err := env.svc.GetBooking(context.Background(), workshop, b.ID); err != nil {
		t.Errorf("workshop get: %v", err)
	}
}

func asWorkflow(err error, target **models.WorkflowError) bool {
	we, ok := err.(*models.WorkflowError)
	if !ok {
		return false
	}
	*target = we
	return true
}
