package usecase

import (
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/notifier"
	"travelwithstudents/pkg/database"
	"travelwithstudents/pkg/utils"

	"go.uber.org/zap"
)

// Service bundles every usecase behind one dependency root.
type Service struct {
	Auth       AuthService
	Request    RequestService
	Booking    BookingService
	Escrow     EscrowService
	Attendance AttendanceService
	Proof      ProofService
}

func NewService(db database.PgxIface, repo *repository.Repository, config *utils.Config, notify notifier.Notifier, log *zap.Logger) *Service {
	escrow := NewEscrowService(repo, log)
	attendance := NewAttendanceService(repo, escrow, notify, config, log)
	proof := NewProofService(repo, attendance, notify, config, log)

	return &Service{
		Auth:       NewAuthService(repo, config, log),
		Request:    NewRequestService(db, repo, escrow, notify, config, log),
		Booking:    NewBookingService(repo, escrow, notify, log),
		Escrow:     escrow,
		Attendance: attendance,
		Proof:      proof,
	}
}
