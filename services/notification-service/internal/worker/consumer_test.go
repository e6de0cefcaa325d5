package worker

import (
	"encoding/json"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/notification-service/internal/events"
)

type recordingNotifier struct {
	subjects []string
	bodies   []string
}

func (r *recordingNotifier) Notify(subject, body string) error {
	r.subjects = append(r.subjects, subject)
	r.bodies = append(r.bodies, body)
	return nil
}

func newTestConsumer() (*Consumer, *recordingNotifier) {
	rec := &recordingNotifier{}
	return NewConsumer(Config{}, rec, zap.NewNop()), rec
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestHandleBookingCreated(t *testing.T) {
	c, rec := newTestConsumer()

	err := c.handleDelivery(amqp.Delivery{
		RoutingKey: events.RKBookingCreated,
		Body: mustJSON(t, events.BookingEvent{
			BookingID:   "BK-1",
			ServiceName: "AC Repair",
		}),
	})
	require.NoError(t, err)
	require.Len(t, rec.subjects, 1)
	assert.Equal(t, "Booking Received", rec.subjects[0])
	assert.Contains(t, rec.bodies[0], "BK-1")
	assert.Contains(t, rec.bodies[0], "AC Repair")
}

func TestHandleInvoiceGenerated(t *testing.T) {
	c, rec := newTestConsumer()

	err := c.handleDelivery(amqp.Delivery{
		RoutingKey: events.RKInvoiceGenerated,
		Body: mustJSON(t, events.InvoiceEvent{
			BookingID:     "BK-1",
			InvoiceNumber: "INV-AB12",
			TotalAmount:   588.82,
		}),
	})
	require.NoError(t, err)
	require.Len(t, rec.subjects, 1)
	assert.Equal(t, "Invoice Generated", rec.subjects[0])
	assert.Contains(t, rec.bodies[0], "INV-AB12")
	assert.Contains(t, rec.bodies[0], "588.82")
}

func TestHandlePaymentFailedIncludesReason(t *testing.T) {
	c, rec := newTestConsumer()

	err := c.handleDelivery(amqp.Delivery{
		RoutingKey: events.RKInvoicePaymentFailed,
		Body: mustJSON(t, events.InvoiceEvent{
			BookingID: "BK-1",
			Reason:    "card declined",
		}),
	})
	require.NoError(t, err)
	require.Len(t, rec.bodies, 1)
	assert.Contains(t, rec.bodies[0], "card declined")
}

func TestHandlePaymentFailedWithoutReason(t *testing.T) {
	c, rec := newTestConsumer()

	err := c.handleDelivery(amqp.Delivery{
		RoutingKey: events.RKInvoicePaymentFailed,
		Body:       mustJSON(t, events.InvoiceEvent{BookingID: "BK-1"}),
	})
	require.NoError(t, err)
	require.Len(t, rec.bodies, 1)
	assert.NotContains(t, rec.bodies[0], "Reason:")
}

func TestHandleMalformedBodyErrors(t *testing.T) {
	c, rec := newTestConsumer()

	err := c.handleDelivery(amqp.Delivery{
		RoutingKey: events.RKBookingCompleted,
		Body:       []byte("{broken"),
	})
	assert.Error(t, err)
	assert.Empty(t, rec.subjects)
}

func TestHandleUnknownKeyIsSilent(t *testing.T) {
	c, rec := newTestConsumer()

	err := c.handleDelivery(amqp.Delivery{
		RoutingKey: "booking.snoozed",
		Body:       []byte("{}"),
	})
	require.NoError(t, err)
	assert.Empty(t, rec.subjects)
}

func TestAllLifecycleKeysProduceNotifications(t *testing.T) {
	c, rec := newTestConsumer()

	bookingKeys := []string{events.RKBookingCreated, events.RKBookingCompleted, events.RKBookingCancelled}
	for _, key := range bookingKeys {
		require.NoError(t, c.handleDelivery(amqp.Delivery{
			RoutingKey: key,
			Body:       mustJSON(t, events.BookingEvent{BookingID: "BK-1"}),
		}))
	}
	invoiceKeys := []string{events.RKInvoiceGenerated, events.RKInvoicePaid, events.RKInvoicePaymentFailed}
	for _, key := range invoiceKeys {
		require.NoError(t, c.handleDelivery(amqp.Delivery{
			RoutingKey: key,
			Body:       mustJSON(t, events.InvoiceEvent{BookingID: "BK-1"}),
		}))
	}

	assert.Len(t, rec.subjects, len(bookingKeys)+len(invoiceKeys))
}
