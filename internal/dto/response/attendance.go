package response

import (
	"time"

	"travelwithstudents/internal/data/entity"
)

type AttendanceResponse struct {
	BookingID  string                   `json:"booking_id"`
	Role       entity.PartyRole         `json:"role"`
	Outcome    entity.AttendanceOutcome `json:"outcome"`
	Source     entity.AttendanceSource  `json:"source"`
	ReportedAt time.Time                `json:"reported_at"`
}

type ReportResultResponse struct {
	Message       string `json:"message"`
	BothConfirmed bool   `json:"both_confirmed"`
}

type RefundResponse struct {
	BookingID      string              `json:"booking_id"`
	EscrowStatus   entity.EscrowStatus `json:"escrow_status"`
	TravelerRefund float64             `json:"traveler_refund"`
}

func AttendanceToResponse(record *entity.AttendanceRecord) AttendanceResponse {
	return AttendanceResponse{
		BookingID:  record.BookingID.String(),
		Role:       record.Role,
		Outcome:    record.Outcome,
		Source:     record.Source,
		ReportedAt: record.ReportedAt,
	}
}
