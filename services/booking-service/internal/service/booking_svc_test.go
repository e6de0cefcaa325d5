package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/booking-service/internal/domain"
)

// fakeStore is an in-memory BookingStore with the same serialization
// guarantee the gorm implementation provides.
type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]domain.Booking
	nextID   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{bookings: map[string]domain.Booking{}}
}

func (f *fakeStore) Create(_ context.Context, b *domain.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b.ID == "" {
		f.nextID++
		b.ID = "BK-TEST-" + string(rune('A'+f.nextID))
	}
	f.bookings[b.ID] = *b
	return nil
}

func (f *fakeStore) ByID(_ context.Context, id string) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	out := b
	return &out, nil
}

func (f *fakeStore) UpdateGuarded(_ context.Context, id string, mutate func(*domain.Booking) error) (*domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return nil, domain.ErrBookingNotFound
	}
	if err := mutate(&b); err != nil {
		return nil, err
	}
	f.bookings[id] = b
	out := b
	return &out, nil
}

func (f *fakeStore) List(_ context.Context, _, _ int32, customerID, technicianID string) ([]domain.Booking, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Booking
	for _, b := range f.bookings {
		if customerID != "" && b.CustomerID != customerID {
			continue
		}
		if technicianID != "" && b.TechnicianID != technicianID {
			continue
		}
		out = append(out, b)
	}
	return out, int64(len(out)), nil
}

type fakeRegistry struct {
	mu     sync.Mutex
	status map[string]string
	errOn  map[string]error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{status: map[string]string{}, errOn: map[string]error{}}
}

func (f *fakeRegistry) MarkBusy(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["busy"]; err != nil {
		return err
	}
	f.status[id] = "BUSY"
	return nil
}

func (f *fakeRegistry) MarkAvailable(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errOn["available"]; err != nil {
		return err
	}
	if _, ok := f.status[id]; !ok {
		return errors.New("technician_not_found")
	}
	f.status[id] = "AVAILABLE"
	return nil
}

type fakeLedger struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeLedger) GenerateIfAbsent(_ context.Context, bookingID, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, bookingID)
	return nil
}

type fakePublisher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakePublisher) published(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, k := range f.keys {
		if k == key {
			n++
		}
	}
	return n
}

func newSvc(t *testing.T) (*BookingSvc, *fakeStore, *fakeRegistry, *fakeLedger, *fakePublisher) {
	t.Helper()
	store := newFakeStore()
	reg := newFakeRegistry()
	led := &fakeLedger{}
	pub := &fakePublisher{}
	return NewBookingSvc(store, reg, led, pub, zap.NewNop()), store, reg, led, pub
}

func createRequested(t *testing.T, svc *BookingSvc) *domain.Booking {
	t.Helper()
	b, err := svc.Create(context.Background(), CreateInput{
		CustomerID:    "cust-1",
		ServiceName:   "AC Repair",
		CategoryName:  "Appliances",
		ScheduledDate: "2026-09-10",
		TimeSlot:      "09:00-11:00",
		Address:       "42 Elm Street",
		PaymentMode:   "CASH",
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusRequested, b.Status)
	return b
}

func TestCreateValidation(t *testing.T) {
	svc, _, _, _, _ := newSvc(t)

	_, err := svc.Create(context.Background(), CreateInput{ServiceName: "x", ScheduledDate: "2026-09-10"})
	assert.Error(t, err, "missing customer_id")

	_, err = svc.Create(context.Background(), CreateInput{CustomerID: "c", ServiceName: "x", ScheduledDate: "next tuesday"})
	assert.Error(t, err, "bad date")
}

func TestAssignOnlyFromRequested(t *testing.T) {
	svc, _, reg, _, _ := newSvc(t)
	b := createRequested(t, svc)

	got, err := svc.Assign(context.Background(), b.ID, "tech-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, got.Status)
	assert.Equal(t, "tech-1", got.TechnicianID)
	assert.Equal(t, "BUSY", reg.status["tech-1"])

	// second assign must fail the guard
	_, err = svc.Assign(context.Background(), b.ID, "tech-2")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	_, marked := reg.status["tech-2"]
	assert.False(t, marked, "losing assign must not leave tech-2 busy")
}

func TestAssignUnknownBooking(t *testing.T) {
	svc, _, _, _, _ := newSvc(t)
	_, err := svc.Assign(context.Background(), "BK-NOPE", "tech-1")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestAssignRegistryFailureBlocksTransition(t *testing.T) {
	svc, store, reg, _, _ := newSvc(t)
	b := createRequested(t, svc)
	reg.errOn["busy"] = errors.New("registry down")

	_, err := svc.Assign(context.Background(), b.ID, "tech-1")
	require.Error(t, err)

	cur, err := store.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequested, cur.Status, "failed busy-mark must not transition")
}

func TestCompletionSideEffects(t *testing.T) {
	svc, _, reg, led, pub := newSvc(t)
	b := createRequested(t, svc)

	_, err := svc.Assign(context.Background(), b.ID, "tech-1")
	require.NoError(t, err)

	got, err := svc.UpdateStatus(context.Background(), b.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, got.Status)
	assert.Equal(t, "AVAILABLE", reg.status["tech-1"])
	assert.Equal(t, []string{b.ID}, led.calls)
	assert.Equal(t, 1, pub.published(RKBookingCompleted))
}

func TestRecompletionFiresNoSecondSideEffect(t *testing.T) {
	// the lifecycle only fires side effects when the status actually
	// changes to COMPLETED
	svc, _, _, led, _ := newSvc(t)
	b := createRequested(t, svc)
	_, err := svc.Assign(context.Background(), b.ID, "tech-1")
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), b.ID, "COMPLETED")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), b.ID, "COMPLETED")
	require.NoError(t, err)

	assert.Len(t, led.calls, 1, "re-completing an already COMPLETED booking fires no second side effect")
}

func TestUpdateStatusOnCancelled(t *testing.T) {
	svc, _, _, _, _ := newSvc(t)
	b := createRequested(t, svc)

	_, err := svc.Cancel(context.Background(), b.ID)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), b.ID, "IN_PROGRESS")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatusUnrecognizedValue(t *testing.T) {
	svc, store, _, _, _ := newSvc(t)
	b := createRequested(t, svc)

	_, err := svc.UpdateStatus(context.Background(), b.ID, "BOGUS")
	assert.ErrorIs(t, err, domain.ErrInvalidStatusValue)

	cur, err := store.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRequested, cur.Status, "status must be unchanged")
}

func TestCancelIsIdempotent(t *testing.T) {
	svc, _, _, _, pub := newSvc(t)
	b := createRequested(t, svc)

	first, err := svc.Cancel(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, first.Booking.Status)

	second, err := svc.Cancel(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, second.Booking.Status)
	assert.Contains(t, second.Message, "already cancelled")

	assert.Equal(t, 1, pub.published(RKBookingCancelled), "no-op cancel publishes nothing")
}

func TestCancelCompletedBooking(t *testing.T) {
	svc, _, _, _, _ := newSvc(t)
	b := createRequested(t, svc)
	_, err := svc.UpdateStatus(context.Background(), b.ID, "COMPLETED")
	require.NoError(t, err)

	res, err := svc.Cancel(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, res.Booking.Status)
	assert.Contains(t, res.Message, "completed")
}

func TestRescheduleCancelledBooking(t *testing.T) {
	svc, _, _, _, _ := newSvc(t)
	b := createRequested(t, svc)
	_, err := svc.Cancel(context.Background(), b.ID)
	require.NoError(t, err)

	res, err := svc.Reschedule(context.Background(), b.ID, "2026-09-20", "14:00-16:00")
	require.NoError(t, err, "terminal reschedule is informational, not an error")
	assert.NotEqual(t, "2026-09-20", res.Booking.ScheduledDate)
	assert.Contains(t, res.Message, "cannot be rescheduled")
}

func TestReschedule(t *testing.T) {
	svc, _, _, _, _ := newSvc(t)
	b := createRequested(t, svc)

	res, err := svc.Reschedule(context.Background(), b.ID, "2026-09-20", "14:00-16:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-20", res.Booking.ScheduledDate)
	assert.Equal(t, "14:00-16:00", res.Booking.TimeSlot)
	assert.Equal(t, domain.StatusRequested, res.Booking.Status, "reschedule is not a status transition")
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc, _, _, _, pub := newSvc(t)
	pub.err = errors.New("broker gone")

	b := createRequested(t, svc)
	_, err := svc.UpdateStatus(context.Background(), b.ID, "COMPLETED")
	assert.NoError(t, err, "event delivery is best-effort")
}

// The full happy path from the operational runbook: request, assign,
// complete, and verify the converged end state.
func TestLifecycleScenario(t *testing.T) {
	svc, store, reg, led, pub := newSvc(t)

	b := createRequested(t, svc)

	assigned, err := svc.Assign(context.Background(), b.ID, "T1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAssigned, assigned.Status)
	assert.Equal(t, "BUSY", reg.status["T1"])

	_, err = svc.UpdateStatus(context.Background(), b.ID, "IN_PROGRESS")
	require.NoError(t, err)

	done, err := svc.UpdateStatus(context.Background(), b.ID, "COMPLETED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, "T1", done.TechnicianID, "technician id survives completion")
	assert.Equal(t, "AVAILABLE", reg.status["T1"])
	assert.Equal(t, []string{b.ID}, led.calls)
	assert.Equal(t, 1, pub.published(RKBookingCompleted))

	cur, err := store.ByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, cur.Status)
}

func TestParseStatus(t *testing.T) {
	for _, ok := range []string{"REQUESTED", "ASSIGNED", "IN_PROGRESS", "COMPLETED", "CANCELLED"} {
		got, err := domain.ParseStatus(ok)
		require.NoError(t, err)
		assert.Equal(t, domain.Status(ok), got)
	}
	_, err := domain.ParseStatus("completed")
	assert.ErrorIs(t, err, domain.ErrInvalidStatusValue, "status values are case-sensitive")
}
