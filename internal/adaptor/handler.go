package adaptor

import (
	"net/http"

	"travelwithstudents/internal/usecase"
	"travelwithstudents/pkg/apperror"
	"travelwithstudents/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	Request *RequestHandler
	Booking *BookingHandler
	Proof   *ProofHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		Request: NewRequestHandler(service.Request, log),
		Booking: NewBookingHandler(service.Booking, service.Attendance, log),
		Proof:   NewProofHandler(service.Proof, log),
	}
}

// handleServiceError translates the error taxonomy into HTTP status
// codes. Service errors carry a stable kind, so handlers never match on
// message text.
func handleServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	kind := apperror.KindOf(err)

	switch kind {
	case apperror.KindValidation:
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseError(w, http.StatusBadRequest, string(kind), err.Error(), nil)

	case apperror.KindState, apperror.KindInvalidProof:
		log.Warn(operation+" failed - invalid state", zap.Error(err))
		utils.ResponseError(w, http.StatusBadRequest, string(kind), err.Error(), nil)

	case apperror.KindExpired:
		log.Warn(operation+" failed - expired", zap.Error(err))
		utils.ResponseError(w, http.StatusGone, string(kind), err.Error(), nil)

	case apperror.KindProofUsed, apperror.KindConflict:
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseError(w, http.StatusConflict, string(kind), err.Error(), nil)

	case apperror.KindNotFound:
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseError(w, http.StatusNotFound, string(kind), err.Error(), nil)

	case apperror.KindUnauthorized:
		log.Warn(operation+" failed - unauthorized", zap.Error(err))
		utils.ResponseError(w, http.StatusUnauthorized, string(kind), err.Error(), nil)

	case apperror.KindForbidden:
		log.Warn(operation+" failed - forbidden", zap.Error(err))
		utils.ResponseError(w, http.StatusForbidden, string(kind), err.Error(), nil)

	default:
		log.Error(operation+" failed", zap.Error(err))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
