package wire

import (
	"net/http"

	"travelwithstudents/internal/adaptor"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/notifier"
	"travelwithstudents/internal/scheduler"
	"travelwithstudents/internal/usecase"
	"travelwithstudents/pkg/database"
	"travelwithstudents/pkg/metrics"
	"travelwithstudents/pkg/middleware"
	"travelwithstudents/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type App struct {
	Router  *chi.Mux
	Sweeper *scheduler.Sweeper
}

// Wiring initializes all dependencies.
func Wiring(db database.PgxIface, repo *repository.Repository, config *utils.Config, logger *zap.Logger) *App {
	metrics.Register()

	notify := notifier.NewLogNotifier(logger)
	service := usecase.NewService(db, repo, config, notify, logger)
	handler := adaptor.NewHandler(service, logger)

	router := setupRouter(handler, repo, config, logger)
	sweeper := scheduler.NewSweeper(service.Request, service.Attendance, config.Booking.SweepInterval, logger)

	return &App{
		Router:  router,
		Sweeper: sweeper,
	}
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())

	wireAuth(r, handler.Auth, repo, config, logger)
	wireRequest(r, handler.Request, repo, config, logger)
	wireBooking(r, handler.Booking, handler.Proof, repo, config, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
