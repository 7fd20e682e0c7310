package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusCancelled  PaymentStatus = "CANCELLED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED"
)

type EscrowStatus string

const (
	EscrowStatusPending  EscrowStatus = "PENDING"
	EscrowStatusHeld     EscrowStatus = "HELD"
	EscrowStatusReleased EscrowStatus = "RELEASED"
	EscrowStatusRefunded EscrowStatus = "REFUNDED"
	EscrowStatusDisputed EscrowStatus = "DISPUTED"
)

type Payment struct {
	Base
	BookingID     uuid.UUID     `db:"booking_id"`
	Amount        float64       `db:"amount"`
	Currency      string        `db:"currency"`
	PaymentMethod string        `db:"payment_method"`
	Status        PaymentStatus `db:"status"`
	// EscrowStatus only transitions HELD -> {RELEASED, REFUNDED, DISPUTED};
	// it never reverses.
	EscrowStatus EscrowStatus `db:"escrow_status"`
	// Settlement outcome, stored so repeated settle calls can return the
	// original distribution.
	GuidePayout    *float64   `db:"guide_payout"`
	TravelerRefund *float64   `db:"traveler_refund"`
	PlatformFee    *float64   `db:"platform_fee"`
	ProcessedAt    *time.Time `db:"processed_at"`
	ReleasedAt     *time.Time `db:"released_at"`
	RefundedAt     *time.Time `db:"refunded_at"`
}
