package domain

import (
	"errors"
	"time"
)

// Status is a booking's position in its lifecycle. Transitions are owned
// by the booking service alone; nothing else writes status.
type Status string

const (
	StatusRequested  Status = "REQUESTED"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

var (
	ErrBookingNotFound    = errors.New("booking_not_found")
	ErrInvalidTransition  = errors.New("invalid_transition")
	ErrInvalidStatusValue = errors.New("invalid_status_value")
)

// ParseStatus maps a raw string to a recognized Status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusRequested, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return Status(s), nil
	}
	return "", ErrInvalidStatusValue
}

// Terminal reports whether no further lifecycle transitions apply.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Booking struct {
	ID         string `gorm:"primaryKey"`
	CustomerID string `gorm:"index"`
	// set on assignment and never cleared afterwards, even by
	// completion or cancellation (audit history)
	TechnicianID string `gorm:"index"`

	ServiceName      string
	CategoryName     string
	ScheduledDate    string `gorm:"index"` // YYYY-MM-DD
	TimeSlot         string
	Address          string
	IssueDescription string
	PaymentMode      string

	Status    Status `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
