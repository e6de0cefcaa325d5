// Package service owns invoice existence and uniqueness. Generation is
// idempotent on booking id; both the synchronous completion call and the
// event consumer funnel into the same GenerateIfAbsent path.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/billing-service/internal/domain"
)

type InvoiceStore interface {
	CreateIfAbsent(ctx context.Context, inv *domain.Invoice) (*domain.Invoice, bool, error)
	ByBookingID(ctx context.Context, bookingID string) (*domain.Invoice, error)
	MarkPaid(ctx context.Context, bookingID string, at time.Time) (*domain.Invoice, error)
	List(ctx context.Context, page, size int32, customerID string) ([]domain.Invoice, int64, error)
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

const (
	RKInvoiceGenerated     = "invoice.generated"
	RKInvoicePaid          = "invoice.paid"
	RKInvoicePaymentFailed = "invoice.payment_failed"
)

// LineItem is a caller-supplied invoice line. Empty input falls back to a
// single default item priced at the configured base service fee.
type LineItem struct {
	Description string  `json:"description"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

type InvoiceSvc struct {
	store   InvoiceStore
	pub     EventPublisher
	baseFee float64
	log     *zap.Logger
}

func NewInvoiceSvc(store InvoiceStore, pub EventPublisher, baseFee float64, log *zap.Logger) *InvoiceSvc {
	return &InvoiceSvc{store: store, pub: pub, baseFee: baseFee, log: log}
}

// NewInvoiceNumber returns a short human-presentable invoice number.
func NewInvoiceNumber() string {
	return "INV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// GenerateIfAbsent returns the existing invoice for the booking unchanged
// when one exists, otherwise computes totals, persists, and returns the
// new invoice. Safe to call any number of times per booking; concurrent
// callers all observe the same invoice number.
func (s *InvoiceSvc) GenerateIfAbsent(ctx context.Context, bookingID, customerID, serviceName string, items []LineItem) (*domain.Invoice, error) {
	if bookingID == "" {
		return nil, fmt.Errorf("booking_id is required")
	}
	if len(items) == 0 {
		desc := "Service charge"
		if serviceName != "" {
			desc = fmt.Sprintf("Service charge: %s", serviceName)
		}
		items = []LineItem{{Description: desc, UnitPrice: s.baseFee, Quantity: 1}}
	}

	var subtotal float64
	invItems := make([]domain.InvoiceItem, 0, len(items))
	for _, it := range items {
		qty := it.Quantity
		if qty <= 0 {
			qty = 1
		}
		line := it.UnitPrice * float64(qty)
		subtotal += line
		invItems = append(invItems, domain.InvoiceItem{
			Description: it.Description,
			UnitPrice:   it.UnitPrice,
			Quantity:    qty,
			LineTotal:   line,
		})
	}
	tax := subtotal * domain.TaxRate

	inv := &domain.Invoice{
		ID:            uuid.NewString(),
		InvoiceNumber: NewInvoiceNumber(),
		BookingID:     bookingID,
		CustomerID:    customerID,
		Items:         invItems,
		Subtotal:      subtotal,
		Tax:           tax,
		TotalAmount:   subtotal + tax,
		InvoiceStatus: domain.InvoiceGenerated,
		PaymentStatus: domain.PaymentPending,
		IssuedAt:      time.Now().UTC(),
	}

	out, created, err := s.store.CreateIfAbsent(ctx, inv)
	if err != nil {
		return nil, err
	}
	if created {
		s.log.Info("invoice generated",
			zap.String("booking_id", bookingID),
			zap.String("invoice_number", out.InvoiceNumber),
			zap.Float64("total", out.TotalAmount))
		s.publish(ctx, RKInvoiceGenerated, map[string]any{
			"booking_id":     out.BookingID,
			"customer_id":    out.CustomerID,
			"invoice_number": out.InvoiceNumber,
			"total_amount":   out.TotalAmount,
		})
	}
	return out, nil
}

func (s *InvoiceSvc) MarkPaid(ctx context.Context, bookingID string) (*domain.Invoice, error) {
	inv, err := s.store.MarkPaid(ctx, bookingID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, RKInvoicePaid, map[string]any{
		"booking_id":     inv.BookingID,
		"invoice_number": inv.InvoiceNumber,
		"total_amount":   inv.TotalAmount,
	})
	return inv, nil
}

func (s *InvoiceSvc) ByBookingID(ctx context.Context, bookingID string) (*domain.Invoice, error) {
	return s.store.ByBookingID(ctx, bookingID)
}

func (s *InvoiceSvc) List(ctx context.Context, page, size int32, customerID string) ([]domain.Invoice, int64, error) {
	return s.store.List(ctx, page, size, customerID)
}

func (s *InvoiceSvc) PublishPaymentFailed(ctx context.Context, bookingID, reason string) {
	s.publish(ctx, RKInvoicePaymentFailed, map[string]any{
		"booking_id": bookingID,
		"reason":     reason,
	})
}

func (s *InvoiceSvc) publish(ctx context.Context, key string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		s.log.Warn("publish event", zap.String("key", key), zap.Error(err))
	}
}
