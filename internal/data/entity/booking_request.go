package entity

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "PENDING"
	RequestStatusAccepted       RequestStatus = "ACCEPTED"
	RequestStatusRejected       RequestStatus = "REJECTED"
	RequestStatusExpired        RequestStatus = "EXPIRED"
	RequestStatusPaymentPending RequestStatus = "PAYMENT_PENDING"
	RequestStatusPaid           RequestStatus = "PAID"
	RequestStatusPaymentExpired RequestStatus = "PAYMENT_EXPIRED"
	RequestStatusCancelled      RequestStatus = "CANCELLED"
)

// Terminal reports whether no further lifecycle transition is permitted.
// PAID is terminal for the request; the booking takes over from there.
func (s RequestStatus) Terminal() bool {
	switch s {
	case RequestStatusRejected, RequestStatusExpired, RequestStatusPaymentExpired,
		RequestStatusCancelled, RequestStatusPaid:
		return true
	case RequestStatusPending, RequestStatusAccepted, RequestStatusPaymentPending:
		return false
	}
	return false
}

type TourDuration string

const (
	DurationHalfDay TourDuration = "HALF_DAY"
	DurationFullDay TourDuration = "FULL_DAY"
)

type BookingRequest struct {
	Base
	TravelerID       uuid.UUID     `db:"traveler_id"`
	GuideID          uuid.UUID     `db:"guide_id"`
	BookingDate      time.Time     `db:"booking_date"`
	BookingTime      string        `db:"booking_time"`
	Duration         TourDuration  `db:"duration"`
	ParticipantCount int           `db:"participant_count"`
	Message          *string       `db:"message"`
	Status           RequestStatus `db:"status"`
	EstimatedPrice   *float64      `db:"estimated_price"`
	GuideResponse    *string       `db:"guide_response"`
	RespondedAt      *time.Time    `db:"responded_at"`
	// ExpiresAt and PaymentDeadline are immutable once set.
	ExpiresAt       time.Time  `db:"expires_at"`
	PaymentDeadline *time.Time `db:"payment_deadline"`
	BookingID       *uuid.UUID `db:"booking_id"`
}
