package adaptor

import (
	"encoding/json"
	"net/http"

	"travelwithstudents/internal/dto/request"
	"travelwithstudents/internal/usecase"
	"travelwithstudents/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RequestHandler struct {
	service usecase.RequestService
	log     *zap.Logger
}

func NewRequestHandler(service usecase.RequestService, log *zap.Logger) *RequestHandler {
	return &RequestHandler{
		service: service,
		log:     log.With(zap.String("handler", "request")),
	}
}

// CreateRequest handles POST /api/requests (traveler)
func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	created, err := h.service.CreateRequest(r.Context(), userID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create booking request")
		return
	}

	utils.ResponseCreated(w, "success", created)
}

// Respond handles POST /api/requests/{id}/respond (guide)
func (h *RequestHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	requestID, ok := h.parseRequestID(w, r)
	if !ok {
		return
	}

	var req request.RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	updated, err := h.service.Respond(r.Context(), userID, requestID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "respond to booking request")
		return
	}

	utils.ResponseSuccess(w, "success", updated)
}

// Pay handles POST /api/requests/{id}/pay (traveler)
func (h *RequestHandler) Pay(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	requestID, ok := h.parseRequestID(w, r)
	if !ok {
		return
	}

	var req request.PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	paid, err := h.service.Pay(r.Context(), userID, requestID, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "pay booking request")
		return
	}

	utils.ResponseCreated(w, "success", paid)
}

// Cancel handles POST /api/requests/{id}/cancel (either party)
func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	requestID, ok := h.parseRequestID(w, r)
	if !ok {
		return
	}

	if err := h.service.Cancel(r.Context(), userID, requestID); err != nil {
		handleServiceError(w, h.log, err, "cancel booking request")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}

// GetRequest handles GET /api/requests/{id} (either party)
func (h *RequestHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	requestID, ok := h.parseRequestID(w, r)
	if !ok {
		return
	}

	found, err := h.service.GetRequest(r.Context(), userID, requestID)
	if err != nil {
		handleServiceError(w, h.log, err, "get booking request")
		return
	}

	utils.ResponseSuccess(w, "success", found)
}

// GetTravelerRequests handles GET /api/requests/sent (traveler)
func (h *RequestHandler) GetTravelerRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	page := parsePagination(r)

	requests, err := h.service.GetTravelerRequests(r.Context(), userID, page)
	if err != nil {
		handleServiceError(w, h.log, err, "get traveler requests")
		return
	}

	utils.ResponseSuccess(w, "success", requests)
}

// GetGuideRequests handles GET /api/requests/received (guide)
func (h *RequestHandler) GetGuideRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	page := parsePagination(r)

	requests, err := h.service.GetGuideRequests(r.Context(), userID, page)
	if err != nil {
		handleServiceError(w, h.log, err, "get guide requests")
		return
	}

	utils.ResponseSuccess(w, "success", requests)
}

func (h *RequestHandler) parseRequestID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	requestID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request ID", nil)
		return uuid.Nil, false
	}
	return requestID, true
}

func parsePagination(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	return &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}
}
