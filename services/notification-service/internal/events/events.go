package events

import (
	"encoding/json"
	"fmt"
)

// Routing keys this service reacts to.
const (
	RKBookingCreated   = "booking.created"
	RKBookingCompleted = "booking.completed"
	RKBookingCancelled = "booking.cancelled"

	RKInvoiceGenerated     = "invoice.generated"
	RKInvoicePaid          = "invoice.paid"
	RKInvoicePaymentFailed = "invoice.payment_failed"
)

type BookingEvent struct {
	BookingID   string `json:"booking_id"`
	CustomerID  string `json:"customer_id"`
	ServiceName string `json:"service_name,omitempty"`
}

type InvoiceEvent struct {
	BookingID     string  `json:"booking_id"`
	CustomerID    string  `json:"customer_id,omitempty"`
	InvoiceNumber string  `json:"invoice_number,omitempty"`
	TotalAmount   float64 `json:"total_amount,omitempty"`
	Reason        string  `json:"reason,omitempty"`
}

func Unmarshal[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}
