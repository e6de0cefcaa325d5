package domain

import (
	"errors"
	"time"
)

type InvoiceStatus string

const (
	InvoiceGenerated InvoiceStatus = "GENERATED"
	InvoicePaid      InvoiceStatus = "PAID"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
)

// TaxRate is applied to every invoice subtotal at issuance. Totals are
// fixed once written and never recomputed.
const TaxRate = 0.18

var ErrInvoiceNotFound = errors.New("invoice_not_found")

// Invoice is keyed one-to-one against a booking; the unique index on
// BookingID is what makes duplicate generation impossible.
type Invoice struct {
	ID            string `gorm:"primaryKey"`
	InvoiceNumber string `gorm:"uniqueIndex"`
	BookingID     string `gorm:"uniqueIndex"`
	CustomerID    string `gorm:"index"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID"`

	Subtotal    float64
	Tax         float64
	TotalAmount float64

	InvoiceStatus InvoiceStatus `gorm:"index"`
	PaymentStatus PaymentStatus `gorm:"index"`

	IssuedAt time.Time
	PaidAt   *time.Time
}

type InvoiceItem struct {
	ID          uint   `gorm:"primaryKey"`
	InvoiceID   string `gorm:"index"`
	Description string
	UnitPrice   float64
	Quantity    int
	LineTotal   float64
}
