package repository

import (
	"travelwithstudents/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User       UserRepository
	Session    SessionRepository
	Request    RequestRepository
	Booking    BookingRepository
	Payment    PaymentRepository
	Attendance AttendanceRepository
	Proof      ProofRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:       NewUserRepository(db, log),
		Session:    NewSessionRepository(db, log),
		Request:    NewRequestRepository(db, log),
		Booking:    NewBookingRepository(db, log),
		Payment:    NewPaymentRepository(db, log),
		Attendance: NewAttendanceRepository(db, log),
		Proof:      NewProofRepository(db, log),
	}
}
