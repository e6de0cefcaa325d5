// Package service implements the booking lifecycle: the status state
// machine, the technician-assignment rules, and the completion side
// effects (release technician, generate invoice, publish event).
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/services/booking-service/internal/domain"
)

// BookingStore is the persistence handle. UpdateGuarded must serialize
// concurrent writers per booking (the gorm implementation row-locks).
type BookingStore interface {
	Create(ctx context.Context, b *domain.Booking) error
	ByID(ctx context.Context, id string) (*domain.Booking, error)
	UpdateGuarded(ctx context.Context, id string, mutate func(*domain.Booking) error) (*domain.Booking, error)
	List(ctx context.Context, page, size int32, customerID, technicianID string) ([]domain.Booking, int64, error)
}

// TechnicianRegistry is the availability tracker, reached over the wire.
type TechnicianRegistry interface {
	MarkBusy(ctx context.Context, technicianID string) error
	MarkAvailable(ctx context.Context, technicianID string) error
}

// InvoiceLedger is the billing service's synchronous invoicing surface.
// GenerateIfAbsent is idempotent on bookingID; empty items means the
// ledger applies its default line item.
type InvoiceLedger interface {
	GenerateIfAbsent(ctx context.Context, bookingID, customerID, serviceName string) error
}

type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Routing keys for booking events. The billing and notification services
// bind to these.
const (
	RKBookingCreated   = "booking.created"
	RKBookingCompleted = "booking.completed"
	RKBookingCancelled = "booking.cancelled"
)

type CompletedEvent struct {
	BookingID   string `json:"booking_id"`
	CustomerID  string `json:"customer_id"`
	ServiceName string `json:"service_name"`
}

type CreateInput struct {
	CustomerID       string
	ServiceName      string
	CategoryName     string
	ScheduledDate    string // YYYY-MM-DD
	TimeSlot         string
	Address          string
	IssueDescription string
	PaymentMode      string
}

// Result is what every lifecycle operation hands back to the caller.
// Message is set for informational no-ops (idempotent cancel, reschedule
// of a terminal booking).
type Result struct {
	Booking *domain.Booking
	Message string
}

type BookingSvc struct {
	store    BookingStore
	registry TechnicianRegistry
	ledger   InvoiceLedger
	pub      EventPublisher
	log      *zap.Logger
}

func NewBookingSvc(store BookingStore, registry TechnicianRegistry, ledger InvoiceLedger, pub EventPublisher, log *zap.Logger) *BookingSvc {
	return &BookingSvc{store: store, registry: registry, ledger: ledger, pub: pub, log: log}
}

func (s *BookingSvc) Create(ctx context.Context, in CreateInput) (*domain.Booking, error) {
	if in.CustomerID == "" || in.ServiceName == "" {
		return nil, errors.New("customer_id and service_name are required")
	}
	if _, err := time.Parse("2006-01-02", in.ScheduledDate); err != nil {
		return nil, fmt.Errorf("scheduled_date must be YYYY-MM-DD: %w", err)
	}

	b := &domain.Booking{
		CustomerID:       in.CustomerID,
		ServiceName:      in.ServiceName,
		CategoryName:     in.CategoryName,
		ScheduledDate:    in.ScheduledDate,
		TimeSlot:         in.TimeSlot,
		Address:          in.Address,
		IssueDescription: in.IssueDescription,
		PaymentMode:      in.PaymentMode,
		Status:           domain.StatusRequested,
	}
	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}

	s.publish(ctx, RKBookingCreated, map[string]any{
		"booking_id": b.ID, "customer_id": b.CustomerID, "service_name": b.ServiceName,
	})
	return b, nil
}

// Assign moves a REQUESTED booking to ASSIGNED and marks the technician
// BUSY first, per the lifecycle contract. If the guarded write then loses
// a race, the busy mark is compensated best-effort.
func (s *BookingSvc) Assign(ctx context.Context, bookingID, technicianID string) (*domain.Booking, error) {
	if technicianID == "" {
		return nil, errors.New("technician_id is required")
	}
	cur, err := s.store.ByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if cur.Status != domain.StatusRequested {
		return nil, fmt.Errorf("%w: cannot assign booking in status %s", domain.ErrInvalidTransition, cur.Status)
	}

	if err := s.registry.MarkBusy(ctx, technicianID); err != nil {
		return nil, fmt.Errorf("mark technician busy: %w", err)
	}

	b, err := s.store.UpdateGuarded(ctx, bookingID, func(b *domain.Booking) error {
		if b.Status != domain.StatusRequested {
			return fmt.Errorf("%w: cannot assign booking in status %s", domain.ErrInvalidTransition, b.Status)
		}
		b.Status = domain.StatusAssigned
		b.TechnicianID = technicianID
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			if rerr := s.registry.MarkAvailable(ctx, technicianID); rerr != nil {
				s.log.Error("release technician after lost assign race",
					zap.String("technician_id", technicianID), zap.Error(rerr))
			}
		}
		return nil, err
	}
	return b, nil
}

// UpdateStatus applies a transition to any recognized status. CANCELLED
// bookings reject all transitions. A transition to COMPLETED triggers the
// completion side effects after the status write commits.
func (s *BookingSvc) UpdateStatus(ctx context.Context, bookingID, rawStatus string) (*domain.Booking, error) {
	to, err := domain.ParseStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, rawStatus)
	}

	var completing bool
	b, err := s.store.UpdateGuarded(ctx, bookingID, func(b *domain.Booking) error {
		if b.Status == domain.StatusCancelled {
			return fmt.Errorf("%w: booking is cancelled", domain.ErrInvalidTransition)
		}
		completing = to == domain.StatusCompleted && b.Status != domain.StatusCompleted
		b.Status = to
		return nil
	})
	if err != nil {
		return nil, err
	}

	if completing {
		s.onCompleted(ctx, b)
	}
	return b, nil
}

// onCompleted runs the completion side effects. The status write is the
// source of truth and has already committed; failures here are logged,
// never rolled back. Invoice generation is idempotent, so the event
// consumer converging on the same booking is harmless.
func (s *BookingSvc) onCompleted(ctx context.Context, b *domain.Booking) {
	if b.TechnicianID != "" {
		if err := s.registry.MarkAvailable(ctx, b.TechnicianID); err != nil {
			s.log.Error("release technician on completion",
				zap.String("booking_id", b.ID),
				zap.String("technician_id", b.TechnicianID),
				zap.Error(err))
		}
	}
	if err := s.ledger.GenerateIfAbsent(ctx, b.ID, b.CustomerID, b.ServiceName); err != nil {
		s.log.Error("generate invoice on completion",
			zap.String("booking_id", b.ID), zap.Error(err))
	}
	s.publish(ctx, RKBookingCompleted, CompletedEvent{
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		ServiceName: b.ServiceName,
	})
}

// Cancel is idempotent: cancelling a terminal booking is answered with an
// informational message, not an error.
func (s *BookingSvc) Cancel(ctx context.Context, bookingID string) (*Result, error) {
	var msg string
	b, err := s.store.UpdateGuarded(ctx, bookingID, func(b *domain.Booking) error {
		switch b.Status {
		case domain.StatusCancelled:
			msg = "booking is already cancelled"
			return nil
		case domain.StatusCompleted:
			msg = "booking is already completed and cannot be cancelled"
			return nil
		}
		b.Status = domain.StatusCancelled
		return nil
	})
	if err != nil {
		return nil, err
	}

	if msg == "" {
		msg = "booking cancelled"
		s.publish(ctx, RKBookingCancelled, map[string]any{
			"booking_id": b.ID, "customer_id": b.CustomerID,
		})
	}
	return &Result{Booking: b, Message: msg}, nil
}

// Reschedule changes the date and slot without touching status. Terminal
// bookings get an informational rejection.
func (s *BookingSvc) Reschedule(ctx context.Context, bookingID, newDate, newSlot string) (*Result, error) {
	if _, err := time.Parse("2006-01-02", newDate); err != nil {
		return nil, fmt.Errorf("scheduled_date must be YYYY-MM-DD: %w", err)
	}

	var msg string
	b, err := s.store.UpdateGuarded(ctx, bookingID, func(b *domain.Booking) error {
		if b.Status.Terminal() {
			msg = fmt.Sprintf("booking is %s and cannot be rescheduled", b.Status)
			return nil
		}
		b.ScheduledDate = newDate
		b.TimeSlot = newSlot
		return nil
	})
	if err != nil {
		return nil, err
	}
	if msg == "" {
		msg = "booking rescheduled"
	}
	return &Result{Booking: b, Message: msg}, nil
}

func (s *BookingSvc) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.store.ByID(ctx, id)
}

func (s *BookingSvc) List(ctx context.Context, page, size int32, customerID, technicianID string) ([]domain.Booking, int64, error) {
	return s.store.List(ctx, page, size, customerID, technicianID)
}

// publish is fire-and-forget; event delivery never fails a request.
func (s *BookingSvc) publish(ctx context.Context, key string, v any) {
	if s.pub == nil {
		return
	}
	if err := s.pub.PublishJSON(ctx, key, v); err != nil {
		s.log.Warn("publish event", zap.String("key", key), zap.Error(err))
	}
}
