package wire

import (
	"travelwithstudents/internal/adaptor"
	"travelwithstudents/internal/data/entity"
	"travelwithstudents/pkg/middleware"
	"travelwithstudents/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// wireProof registers the meeting-proof routes inside the bookings
// subtree, so it shares the auth middleware already applied there.
func wireProof(
	r chi.Router,
	proofHandler *adaptor.ProofHandler,
	config *utils.Config,
	log *zap.Logger,
) {
	// Rate limited: each generate mints a signed token and each verify
	// burns one.
	r.Route("/{id}/proof", func(r chi.Router) {
		r.Use(middleware.RateLimit(config.RateLimit))

		r.With(middleware.RequireRole(string(entity.RoleGuide), log)).
			Post("/", proofHandler.Generate)
		r.With(middleware.RequireRole(string(entity.RoleTraveler), log)).
			Post("/verify", proofHandler.Verify)
	})
}
