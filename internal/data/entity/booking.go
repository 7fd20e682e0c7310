package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusDisputed  BookingStatus = "disputed"
)

type Booking struct {
	Base
	// RequestID is nil for instant-book tours.
	RequestID   *uuid.UUID    `db:"request_id"`
	ReferenceNo string        `db:"reference_no"`
	TravelerID  uuid.UUID     `db:"traveler_id"`
	GuideID     uuid.UUID     `db:"guide_id"`
	BookingDate time.Time     `db:"booking_date"`
	BookingTime string        `db:"booking_time"`
	Duration    TourDuration  `db:"duration"`
	Price       float64       `db:"price"`
	Status      BookingStatus `db:"status"`
	// Settled is the exactly-once settlement guard. It only ever flips
	// false -> true through a conditional update.
	Settled   bool `db:"settled"`
	HasReview bool `db:"has_review"`
}
