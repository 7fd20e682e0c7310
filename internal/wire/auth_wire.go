package wire

import (
	"travelwithstudents/internal/adaptor"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/pkg/middleware"
	"travelwithstudents/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireAuth(
	r chi.Router,
	authHandler *adaptor.AuthHandler,
	repo *repository.Repository,
	config *utils.Config,
	log *zap.Logger,
) {
	// Public auth endpoints are rate limited per client IP.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(config.RateLimit))

		r.Post("/api/auth/register", authHandler.Register)
		r.Post("/api/auth/login", authHandler.Login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		r.Post("/api/auth/logout", authHandler.Logout)
		r.Get("/api/auth/me", authHandler.GetProfile)
	})
}
