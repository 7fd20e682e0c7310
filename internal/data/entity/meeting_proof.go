package entity

import (
	"time"

	"github.com/google/uuid"
)

// MeetingProof records a guide-issued, single-use, location-bound QR token.
// Validity is a fixed window from IssuedAt, checked at verification time.
type MeetingProof struct {
	BaseSimple
	BookingID uuid.UUID `db:"booking_id"`
	GuideID   uuid.UUID `db:"guide_id"`
	Lat       float64   `db:"lat"`
	Lng       float64   `db:"lng"`
	IssuedAt  time.Time `db:"issued_at"`
	Used      bool      `db:"used"`
}
