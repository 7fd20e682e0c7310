package wire

import (
	"travelwithstudents/internal/adaptor"
	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/pkg/middleware"
	"travelwithstudents/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireRequest(
	r chi.Router,
	requestHandler *adaptor.RequestHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	r.Route("/api/requests", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		// Traveler side of the request lifecycle.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(entity.RoleTraveler), log))

			r.Post("/", requestHandler.CreateRequest)
			r.Get("/sent", requestHandler.GetTravelerRequests)
			r.Post("/{id}/pay", requestHandler.Pay)
		})

		// Guide side.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(entity.RoleGuide), log))

			r.Get("/received", requestHandler.GetGuideRequests)
			r.Post("/{id}/respond", requestHandler.Respond)
		})

		// Either party.
		r.Get("/{id}", requestHandler.GetRequest)
		r.Post("/{id}/cancel", requestHandler.Cancel)
	})
}
