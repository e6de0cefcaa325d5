package worker

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/notification-service/internal/events"
	"github.com/you/fieldservice-booking/services/notification-service/internal/notifier"
)

type Config struct {
	RabbitURL   string
	Exchanges   []string // one durable queue bound across all of them
	Queue       string
	Bindings    []string
	Prefetch    int
	UseDLX      bool
	DLXName     string
	DLXQueue    string
	ServiceName string
}

type Consumer struct {
	cfg      Config
	notifier notifier.Notifier
	log      *zap.Logger

	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewConsumer(cfg Config, n notifier.Notifier, log *zap.Logger) *Consumer {
	return &Consumer{cfg: cfg, notifier: n, log: log}
}

func (c *Consumer) Connect() error {
	conn, err := amqp.Dial(c.cfg.RabbitURL)
	if err != nil {
		return fmt.Errorf("rabbit dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	args := amqp.Table{}
	if c.cfg.UseDLX {
		args["x-dead-letter-exchange"] = c.cfg.DLXName
	}
	q, err := ch.QueueDeclare(c.cfg.Queue, true, false, false, false, args)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("declare queue: %w", err)
	}

	for _, ex := range c.cfg.Exchanges {
		if err := ch.ExchangeDeclare(ex, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
		for _, key := range c.cfg.Bindings {
			if err := ch.QueueBind(q.Name, key, ex, false, nil); err != nil {
				_ = ch.Close()
				_ = conn.Close()
				return fmt.Errorf("bind exchange=%s key=%s: %w", ex, key, err)
			}
		}
	}

	if c.cfg.UseDLX {
		if err := ch.ExchangeDeclare(c.cfg.DLXName, "topic", true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlx: %w", err)
		}
		if _, err := ch.QueueDeclare(c.cfg.DLXQueue, true, false, false, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("declare dlq: %w", err)
		}
		if err := ch.QueueBind(c.cfg.DLXQueue, "#", c.cfg.DLXName, false, nil); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("bind dlq: %w", err)
		}
	}

	if c.cfg.Prefetch <= 0 {
		c.cfg.Prefetch = 8
	}
	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("set qos: %w", err)
	}

	c.conn = conn
	c.ch = ch
	return nil
}

func (c *Consumer) Close() {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, c.cfg.ServiceName, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := c.handleDelivery(d); err != nil {
				c.log.Warn("handle delivery", zap.String("key", d.RoutingKey), zap.Error(err))
				_ = d.Nack(false, true)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func (c *Consumer) handleDelivery(d amqp.Delivery) error {
	switch d.RoutingKey {
	case events.RKBookingCreated:
		ev, err := events.Unmarshal[events.BookingEvent](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Booking Received",
			fmt.Sprintf("Booking %s for %s has been received.", ev.BookingID, ev.ServiceName))

	case events.RKBookingCompleted:
		ev, err := events.Unmarshal[events.BookingEvent](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Service Completed",
			fmt.Sprintf("Booking %s (%s) has been completed. Your invoice is on its way.", ev.BookingID, ev.ServiceName))

	case events.RKBookingCancelled:
		ev, err := events.Unmarshal[events.BookingEvent](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Booking Cancelled",
			fmt.Sprintf("Booking %s has been cancelled.", ev.BookingID))

	case events.RKInvoiceGenerated:
		ev, err := events.Unmarshal[events.InvoiceEvent](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Invoice Generated",
			fmt.Sprintf("Invoice %s for booking %s: %.2f due.", ev.InvoiceNumber, ev.BookingID, ev.TotalAmount))

	case events.RKInvoicePaid:
		ev, err := events.Unmarshal[events.InvoiceEvent](d.Body)
		if err != nil {
			return err
		}
		return c.notifier.Notify("Payment Received",
			fmt.Sprintf("Invoice %s for booking %s is paid. Thank you.", ev.InvoiceNumber, ev.BookingID))

	case events.RKInvoicePaymentFailed:
		ev, err := events.Unmarshal[events.InvoiceEvent](d.Body)
		if err != nil {
			return err
		}
		msg := fmt.Sprintf("Payment failed for booking %s.", ev.BookingID)
		if ev.Reason != "" {
			msg = fmt.Sprintf("%s Reason: %s", msg, ev.Reason)
		}
		return c.notifier.Notify("Payment Failed", msg)

	default:
		c.log.Debug("skip unknown routing key", zap.String("key", d.RoutingKey))
	}
	return nil
}
