// The billing-side listener for booking completion events. Delivery is
// at-least-once, so the handler must tolerate duplicates; it leans on the
// idempotent GenerateIfAbsent path rather than tracking seen events.
package consumer

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/pkg/mq"
	"github.com/you/fieldservice-booking/services/billing-service/internal/service"
)

const RKBookingCompleted = "booking.completed"

type BookingCompleted struct {
	BookingID   string `json:"booking_id"`
	CustomerID  string `json:"customer_id"`
	ServiceName string `json:"service_name"`
}

type BookingConsumer struct {
	svc  *service.InvoiceSvc
	cons *mq.Consumer
	log  *zap.Logger
}

func NewBookingConsumer(svc *service.InvoiceSvc, cons *mq.Consumer, log *zap.Logger) *BookingConsumer {
	return &BookingConsumer{svc: svc, cons: cons, log: log}
}

func (bc *BookingConsumer) Run(ctx context.Context) error {
	msgs, err := bc.cons.Deliveries(ctx)
	if err != nil {
		return err
	}
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				bc.handle(ctx, d)
			}
		}
	}()
	return nil
}

func (bc *BookingConsumer) handle(ctx context.Context, d amqp.Delivery) {
	if d.RoutingKey != RKBookingCompleted {
		_ = d.Ack(false)
		return
	}

	var evt BookingCompleted
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		bc.log.Error("unmarshal booking.completed", zap.Error(err))
		_ = d.Nack(false, false) // malformed; do not requeue
		return
	}
	if evt.BookingID == "" {
		bc.log.Warn("booking.completed without booking_id")
		_ = d.Ack(false)
		return
	}

	// nil items → the ledger's default line item. Redelivery lands on the
	// existing invoice and changes nothing.
	if _, err := bc.svc.GenerateIfAbsent(ctx, evt.BookingID, evt.CustomerID, evt.ServiceName, nil); err != nil {
		bc.log.Error("generate invoice from event",
			zap.String("booking_id", evt.BookingID), zap.Error(err))
		_ = d.Nack(false, true) // storage trouble; retry
		return
	}
	_ = d.Ack(false)
}
