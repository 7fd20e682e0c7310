package response

import (
	"time"

	"travelwithstudents/internal/data/entity"
)

type BookingRequestResponse struct {
	ID               string               `json:"id"`
	TravelerID       string               `json:"traveler_id"`
	GuideID          string               `json:"guide_id"`
	BookingDate      string               `json:"booking_date"`
	BookingTime      string               `json:"booking_time"`
	Duration         entity.TourDuration  `json:"duration"`
	ParticipantCount int                  `json:"participant_count"`
	Message          *string              `json:"message,omitempty"`
	Status           entity.RequestStatus `json:"status"`
	EstimatedPrice   *float64             `json:"estimated_price,omitempty"`
	GuideResponse    *string              `json:"guide_response,omitempty"`
	RespondedAt      *time.Time           `json:"responded_at,omitempty"`
	ExpiresAt        time.Time            `json:"expires_at"`
	PaymentDeadline  *time.Time           `json:"payment_deadline,omitempty"`
	BookingID        *string              `json:"booking_id,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}

func BookingRequestToResponse(req *entity.BookingRequest) BookingRequestResponse {
	resp := BookingRequestResponse{
		ID:               req.ID.String(),
		TravelerID:       req.TravelerID.String(),
		GuideID:          req.GuideID.String(),
		BookingDate:      req.BookingDate.Format("2006-01-02"),
		BookingTime:      req.BookingTime,
		Duration:         req.Duration,
		ParticipantCount: req.ParticipantCount,
		Message:          req.Message,
		Status:           req.Status,
		EstimatedPrice:   req.EstimatedPrice,
		GuideResponse:    req.GuideResponse,
		RespondedAt:      req.RespondedAt,
		ExpiresAt:        req.ExpiresAt,
		PaymentDeadline:  req.PaymentDeadline,
		CreatedAt:        req.CreatedAt,
	}

	if req.BookingID != nil {
		id := req.BookingID.String()
		resp.BookingID = &id
	}

	return resp
}
