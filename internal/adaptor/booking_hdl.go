package adaptor

import (
	"encoding/json"
	"net/http"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/dto/request"
	"travelwithstudents/internal/dto/response"
	"travelwithstudents/internal/usecase"
	"travelwithstudents/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service    usecase.BookingService
	attendance usecase.AttendanceService
	log        *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, attendance usecase.AttendanceService, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:    service,
		attendance: attendance,
		log:        log.With(zap.String("handler", "booking")),
	}
}

// GetBooking handles GET /api/bookings/{id} (either party)
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", booking)
}

// GetBookings handles GET /api/bookings (either party)
func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	page := parsePagination(r)

	bookings, err := h.service.GetPartyBookings(r.Context(), userID, page)
	if err != nil {
		handleServiceError(w, h.log, err, "get bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// ReportAttendance handles POST /api/bookings/{id}/attendance (either party)
func (h *BookingHandler) ReportAttendance(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	var req request.ReportAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	bothConfirmed, err := h.attendance.ReportManual(r.Context(), userID, bookingID, entity.AttendanceOutcome(req.Status))
	if err != nil {
		handleServiceError(w, h.log, err, "report attendance")
		return
	}

	utils.ResponseSuccess(w, "success", response.ReportResultResponse{
		Message:       "Attendance recorded",
		BothConfirmed: bothConfirmed,
	})
}

// GetAttendance handles GET /api/bookings/{id}/attendance (either party)
func (h *BookingHandler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	// Party scoping happens in GetBooking; reuse it so attendance is
	// never readable by a third party.
	booking, err := h.service.GetBooking(r.Context(), userID, bookingID)
	if err != nil {
		handleServiceError(w, h.log, err, "get attendance")
		return
	}

	utils.ResponseSuccess(w, "success", booking.Attendance)
}

// Cancel handles POST /api/bookings/{id}/cancel (either party)
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	var req request.CancelBookingRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return
		}
	}

	refund, err := h.service.CancelAndRefund(r.Context(), userID, bookingID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", refund)
}

func (h *BookingHandler) parseBookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return uuid.Nil, false
	}
	return bookingID, true
}
