package domain

import (
	"errors"
	"time"
)

type Availability string

const (
	Available Availability = "AVAILABLE"
	Busy      Availability = "BUSY"
)

var ErrTechnicianNotFound = errors.New("technician_not_found")

// Technician identity comes from the caller; this service only tracks
// availability.
type Technician struct {
	ID        string       `gorm:"primaryKey"`
	Status    Availability `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
