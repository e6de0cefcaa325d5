package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/billing-service/internal/domain"
)

type fakeStore struct {
	byBooking map[string]*domain.Invoice
	failWith  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byBooking: map[string]*domain.Invoice{}}
}

func (f *fakeStore) CreateIfAbsent(_ context.Context, inv *domain.Invoice) (*domain.Invoice, bool, error) {
	if f.failWith != nil {
		return nil, false, f.failWith
	}
	if existing, ok := f.byBooking[inv.BookingID]; ok {
		return existing, false, nil
	}
	f.byBooking[inv.BookingID] = inv
	return inv, true, nil
}

func (f *fakeStore) ByBookingID(_ context.Context, bookingID string) (*domain.Invoice, error) {
	inv, ok := f.byBooking[bookingID]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	return inv, nil
}

func (f *fakeStore) MarkPaid(_ context.Context, bookingID string, at time.Time) (*domain.Invoice, error) {
	inv, ok := f.byBooking[bookingID]
	if !ok {
		return nil, domain.ErrInvoiceNotFound
	}
	inv.InvoiceStatus = domain.InvoicePaid
	inv.PaymentStatus = domain.PaymentPaid
	inv.PaidAt = &at
	return inv, nil
}

func (f *fakeStore) List(_ context.Context, _, _ int32, _ string) ([]domain.Invoice, int64, error) {
	out := make([]domain.Invoice, 0, len(f.byBooking))
	for _, inv := range f.byBooking {
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

type capturedEvent struct {
	key     string
	payload any
}

type fakePublisher struct {
	events []capturedEvent
	err    error
}

func (f *fakePublisher) PublishJSON(_ context.Context, key string, v any) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, capturedEvent{key: key, payload: v})
	return nil
}

func newSvc() (*InvoiceSvc, *fakeStore, *fakePublisher) {
	store := newFakeStore()
	pub := &fakePublisher{}
	return NewInvoiceSvc(store, pub, 499, zap.NewNop()), store, pub
}

func TestGenerateComputesTotals(t *testing.T) {
	svc, _, _ := newSvc()

	inv, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair", []LineItem{
		{Description: "Compressor gas refill", UnitPrice: 1200, Quantity: 1},
		{Description: "Filter", UnitPrice: 150, Quantity: 2},
	})
	require.NoError(t, err)

	assert.InDelta(t, 1500.0, inv.Subtotal, 1e-9)
	assert.InDelta(t, 1500.0*domain.TaxRate, inv.Tax, 1e-9)
	assert.InDelta(t, 1500.0*(1+domain.TaxRate), inv.TotalAmount, 1e-9)
	require.Len(t, inv.Items, 2)
	assert.InDelta(t, 300.0, inv.Items[1].LineTotal, 1e-9)
}

func TestGenerateDefaultLineItem(t *testing.T) {
	svc, _, _ := newSvc()

	inv, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "Plumbing", nil)
	require.NoError(t, err)

	require.Len(t, inv.Items, 1)
	assert.Equal(t, "Service charge: Plumbing", inv.Items[0].Description)
	assert.InDelta(t, 499.0, inv.Subtotal, 1e-9)
	assert.InDelta(t, 499.0*(1+domain.TaxRate), inv.TotalAmount, 1e-9)
}

func TestGenerateZeroQuantityCountsAsOne(t *testing.T) {
	svc, _, _ := newSvc()

	inv, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "", []LineItem{
		{Description: "Callout", UnitPrice: 200, Quantity: 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, inv.Items[0].Quantity)
	assert.InDelta(t, 200.0, inv.Subtotal, 1e-9)
}

func TestGenerateIsIdempotent(t *testing.T) {
	svc, _, pub := newSvc()

	first, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair", nil)
	require.NoError(t, err)

	// second call with different items must not alter the ledger
	second, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair", []LineItem{
		{Description: "Surprise fee", UnitPrice: 9999, Quantity: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, first.InvoiceNumber, second.InvoiceNumber)
	assert.Equal(t, first.TotalAmount, second.TotalAmount)

	var generated int
	for _, ev := range pub.events {
		if ev.key == RKInvoiceGenerated {
			generated++
		}
	}
	assert.Equal(t, 1, generated, "invoice.generated fires once per booking")
}

func TestGenerateRequiresBookingID(t *testing.T) {
	svc, _, _ := newSvc()
	_, err := svc.GenerateIfAbsent(context.Background(), "", "cust-1", "AC Repair", nil)
	assert.Error(t, err)
}

func TestGenerateStoreFailure(t *testing.T) {
	svc, store, pub := newSvc()
	store.failWith = errors.New("db down")

	_, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair", nil)
	assert.Error(t, err)
	assert.Empty(t, pub.events, "no event on failed persistence")
}

func TestMarkPaidPublishes(t *testing.T) {
	svc, _, pub := newSvc()
	_, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair", nil)
	require.NoError(t, err)

	inv, err := svc.MarkPaid(context.Background(), "BK-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, inv.InvoiceStatus)
	require.NotNil(t, inv.PaidAt)

	last := pub.events[len(pub.events)-1]
	assert.Equal(t, RKInvoicePaid, last.key)
}

func TestMarkPaidUnknownBooking(t *testing.T) {
	svc, _, _ := newSvc()
	_, err := svc.MarkPaid(context.Background(), "BK-GHOST")
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestPublishFailureDoesNotFailMarkPaid(t *testing.T) {
	svc, _, pub := newSvc()
	_, err := svc.GenerateIfAbsent(context.Background(), "BK-1", "cust-1", "AC Repair", nil)
	require.NoError(t, err)

	pub.err = errors.New("broker down")
	inv, err := svc.MarkPaid(context.Background(), "BK-1")
	require.NoError(t, err)
	assert.Equal(t, domain.InvoicePaid, inv.InvoiceStatus)
}

func TestPublishPaymentFailed(t *testing.T) {
	svc, _, pub := newSvc()
	svc.PublishPaymentFailed(context.Background(), "BK-1", "card declined")

	require.Len(t, pub.events, 1)
	assert.Equal(t, RKInvoicePaymentFailed, pub.events[0].key)
}
