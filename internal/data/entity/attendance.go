package entity

import (
	"time"

	"github.com/google/uuid"
)

type PartyRole string

const (
	PartyGuide    PartyRole = "GUIDE"
	PartyTraveler PartyRole = "TRAVELER"
)

type AttendanceOutcome string

const (
	OutcomeUnreported AttendanceOutcome = "UNREPORTED"
	OutcomeConfirmed  AttendanceOutcome = "CONFIRMED"
	OutcomeNoShow     AttendanceOutcome = "NO_SHOW"
)

type AttendanceSource string

const (
	SourceManual AttendanceSource = "MANUAL"
	SourceProof  AttendanceSource = "PROOF"
)

// AttendanceRecord is keyed uniquely per (BookingID, Role). Writes are
// last-write-wins until the booking settles, then frozen.
type AttendanceRecord struct {
	BaseSimple
	BookingID  uuid.UUID         `db:"booking_id"`
	Role       PartyRole         `db:"role"`
	Outcome    AttendanceOutcome `db:"outcome"`
	Source     AttendanceSource  `db:"source"`
	ReportedAt time.Time         `db:"reported_at"`
}
