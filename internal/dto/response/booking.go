package response

import (
	"time"

	"travelwithstudents/internal/data/entity"
)

type BookingResponse struct {
	ID          string               `json:"id"`
	RequestID   *string              `json:"request_id,omitempty"`
	ReferenceNo string               `json:"reference_no"`
	TravelerID  string               `json:"traveler_id"`
	GuideID     string               `json:"guide_id"`
	BookingDate string               `json:"booking_date"`
	BookingTime string               `json:"booking_time"`
	Duration    entity.TourDuration  `json:"duration"`
	Price       float64              `json:"price"`
	Status      entity.BookingStatus `json:"status"`
	Settled     bool                 `json:"settled"`
	Payment     *PaymentResponse     `json:"payment,omitempty"`
	Attendance  []AttendanceResponse `json:"attendance,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

type PaymentResponse struct {
	ID             string               `json:"id"`
	BookingID      string               `json:"booking_id"`
	Amount         float64              `json:"amount"`
	Currency       string               `json:"currency"`
	PaymentMethod  string               `json:"payment_method"`
	Status         entity.PaymentStatus `json:"status"`
	EscrowStatus   entity.EscrowStatus  `json:"escrow_status"`
	GuidePayout    *float64             `json:"guide_payout,omitempty"`
	TravelerRefund *float64             `json:"traveler_refund,omitempty"`
	PlatformFee    *float64             `json:"platform_fee,omitempty"`
	ProcessedAt    *time.Time           `json:"processed_at,omitempty"`
	ReleasedAt     *time.Time           `json:"released_at,omitempty"`
	RefundedAt     *time.Time           `json:"refunded_at,omitempty"`
	CreatedAt      time.Time            `json:"created_at"`
}

type PaidBookingResponse struct {
	Booking BookingResponse        `json:"booking"`
	Request BookingRequestResponse `json:"request"`
}

func BookingToResponse(booking *entity.Booking) BookingResponse {
	resp := BookingResponse{
		ID:          booking.ID.String(),
		ReferenceNo: booking.ReferenceNo,
		TravelerID:  booking.TravelerID.String(),
		GuideID:     booking.GuideID.String(),
		BookingDate: booking.BookingDate.Format("2006-01-02"),
		BookingTime: booking.BookingTime,
		Duration:    booking.Duration,
		Price:       booking.Price,
		Status:      booking.Status,
		Settled:     booking.Settled,
		CreatedAt:   booking.CreatedAt,
	}

	if booking.RequestID != nil {
		id := booking.RequestID.String()
		resp.RequestID = &id
	}

	return resp
}

func PaymentToResponse(payment *entity.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             payment.ID.String(),
		BookingID:      payment.BookingID.String(),
		Amount:         payment.Amount,
		Currency:       payment.Currency,
		PaymentMethod:  payment.PaymentMethod,
		Status:         payment.Status,
		EscrowStatus:   payment.EscrowStatus,
		GuidePayout:    payment.GuidePayout,
		TravelerRefund: payment.TravelerRefund,
		PlatformFee:    payment.PlatformFee,
		ProcessedAt:    payment.ProcessedAt,
		ReleasedAt:     payment.ReleasedAt,
		RefundedAt:     payment.RefundedAt,
		CreatedAt:      payment.CreatedAt,
	}
}
