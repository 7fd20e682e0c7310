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

type ProofHandler struct {
	service usecase.ProofService
	log     *zap.Logger
}

func NewProofHandler(service usecase.ProofService, log *zap.Logger) *ProofHandler {
	return &ProofHandler{
		service: service,
		log:     log.With(zap.String("handler", "proof")),
	}
}

// Generate handles POST /api/bookings/{id}/proof (guide)
func (h *ProofHandler) Generate(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	var req request.GenerateProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	proof, err := h.service.GenerateProof(r.Context(), userID, bookingID, req.Lat, req.Lng)
	if err != nil {
		handleServiceError(w, h.log, err, "generate proof")
		return
	}

	utils.ResponseCreated(w, "success", proof)
}

// Verify handles POST /api/bookings/{id}/proof/verify (traveler)
func (h *ProofHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	bookingID, ok := h.parseBookingID(w, r)
	if !ok {
		return
	}

	var req request.VerifyProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	result, err := h.service.VerifyProof(r.Context(), userID, bookingID, req.QRData, req.Lat, req.Lng)
	if err != nil {
		handleServiceError(w, h.log, err, "verify proof")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}

func (h *ProofHandler) parseBookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	bookingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid booking ID", nil)
		return uuid.Nil, false
	}
	return bookingID, true
}
