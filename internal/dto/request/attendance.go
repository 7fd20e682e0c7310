package request

type ReportAttendanceRequest struct {
	Status string `json:"status" validate:"required,oneof=CONFIRMED NO_SHOW"`
}

type CancelBookingRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}
