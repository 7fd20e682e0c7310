package wire

import (
	"travelwithstudents/internal/adaptor"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/pkg/middleware"
	"travelwithstudents/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(
	r chi.Router,
	bookingHandler *adaptor.BookingHandler,
	proofHandler *adaptor.ProofHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/bookings", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		r.Get("/", bookingHandler.GetBookings)
		r.Get("/{id}", bookingHandler.GetBooking)
		r.Post("/{id}/cancel", bookingHandler.Cancel)

		r.Post("/{id}/attendance", bookingHandler.ReportAttendance)
		r.Get("/{id}/attendance", bookingHandler.GetAttendance)

		wireProof(r, proofHandler, config, log)
	})
}
