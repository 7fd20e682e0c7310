package request

type CreateBookingRequest struct {
	GuideID          string  `json:"guide_id" validate:"required,uuid4"`
	BookingDate      string  `json:"booking_date" validate:"required,datetime=2006-01-02"`
	BookingTime      string  `json:"booking_time" validate:"required,datetime=15:04"`
	Duration         string  `json:"duration" validate:"required,oneof=HALF_DAY FULL_DAY"`
	ParticipantCount int     `json:"participant_count,omitempty" validate:"omitempty,min=1"`
	Message          *string `json:"message,omitempty" validate:"omitempty,max=1000"`
}

type RespondRequest struct {
	Action        string  `json:"action" validate:"required,oneof=accept reject"`
	GuideResponse *string `json:"guide_response,omitempty" validate:"omitempty,max=1000"`
}

type PayRequest struct {
	PaymentMethod  string  `json:"payment_method" validate:"required,oneof=card bank_transfer wallet"`
	PaymentDetails *string `json:"payment_details,omitempty"`
}
