package usecase

import (
	"context"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/pkg/apperror"
	"travelwithstudents/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EscrowService owns payment records and the escrow state machine. Escrow
// status only moves HELD -> {RELEASED, REFUNDED, DISPUTED}; it never reverses.
type EscrowService interface {
	// OpenEscrow creates the HELD payment inside the caller's transaction,
	// so a booking and its escrow exist together or not at all.
	OpenEscrow(ctx context.Context, q database.Querier, bookingID uuid.UUID, amount float64, method string) (*entity.Payment, error)

	// Settle applies a settlement distribution. Idempotent: settling an
	// already-settled payment returns the stored distribution unchanged.
	Settle(ctx context.Context, bookingID uuid.UUID, dist Distribution) (*Distribution, error)

	// Refund returns the full held amount to the traveler. Valid only
	// while escrow is HELD.
	Refund(ctx context.Context, bookingID uuid.UUID, reason string) (*entity.Payment, error)

	// MarkDisputed parks a HELD escrow for manual resolution.
	MarkDisputed(ctx context.Context, bookingID uuid.UUID) error

	GetPayment(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)
}

type escrowService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewEscrowService(repo *repository.Repository, log *zap.Logger) EscrowService {
	return &escrowService{
		repo: repo,
		log:  log.With(zap.String("service", "escrow")),
	}
}

func (s *escrowService) OpenEscrow(ctx context.Context, q database.Querier, bookingID uuid.UUID, amount float64, method string) (*entity.Payment, error) {
	if amount <= 0 {
		return nil, apperror.Validation("Escrow amount must be positive")
	}

	now := time.Now()
	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:     bookingID,
		Amount:        amount,
		Currency:      "USD",
		PaymentMethod: method,
		Status:        entity.PaymentStatusCompleted,
		EscrowStatus:  entity.EscrowStatusHeld,
		ProcessedAt:   &now,
	}

	if err := s.repo.Payment.Create(ctx, q, payment); err != nil {
		return nil, err
	}

	s.log.Info("Escrow opened",
		zap.String("booking_id", bookingID.String()),
		zap.Float64("amount", amount),
		zap.String("method", method),
	)

	return payment, nil
}

func (s *escrowService) Settle(ctx context.Context, bookingID uuid.UUID, dist Distribution) (*Distribution, error) {
	var (
		ok  bool
		err error
	)

	if dist.Released {
		ok, err = s.repo.Payment.Release(ctx, bookingID, dist.GuidePayout, dist.TravelerRefund, dist.PlatformFee)
	} else {
		ok, err = s.repo.Payment.Refund(ctx, bookingID, dist.GuidePayout, dist.TravelerRefund, dist.PlatformFee)
	}
	if err != nil {
		return nil, err
	}

	if ok {
		s.log.Info("Escrow settled",
			zap.String("booking_id", bookingID.String()),
			zap.Bool("released", dist.Released),
			zap.Float64("guide_payout", dist.GuidePayout),
			zap.Float64("traveler_refund", dist.TravelerRefund),
		)
		return &dist, nil
	}

	// Escrow already left HELD. Repeat settle calls are expected under
	// at-least-once delivery; return what the first caller computed.
	payment, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.NotFound("Payment not found")
	}

	switch payment.EscrowStatus {
	case entity.EscrowStatusReleased, entity.EscrowStatusRefunded:
		return storedDistribution(payment), nil
	default:
		return nil, apperror.Newf(apperror.KindState,
			"Escrow for booking %s is %s, cannot settle", bookingID.String(), payment.EscrowStatus)
	}
}

func (s *escrowService) Refund(ctx context.Context, bookingID uuid.UUID, reason string) (*entity.Payment, error) {
	payment, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperror.NotFound("Payment not found")
	}

	if payment.EscrowStatus != entity.EscrowStatusHeld {
		return nil, apperror.Newf(apperror.KindState,
			"Escrow is %s, only held funds can be refunded", payment.EscrowStatus)
	}

	ok, err := s.repo.Payment.Refund(ctx, bookingID, 0, payment.Amount, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Conflict("Escrow state changed during refund")
	}

	s.log.Info("Escrow refunded",
		zap.String("booking_id", bookingID.String()),
		zap.Float64("amount", payment.Amount),
		zap.String("reason", reason),
	)

	return s.repo.Payment.FindByBookingID(ctx, bookingID)
}

func (s *escrowService) MarkDisputed(ctx context.Context, bookingID uuid.UUID) error {
	ok, err := s.repo.Payment.MarkDisputed(ctx, bookingID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.State("Escrow is not held, cannot dispute")
	}

	s.log.Warn("Escrow marked disputed", zap.String("booking_id", bookingID.String()))
	return nil
}

func (s *escrowService) GetPayment(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	return s.repo.Payment.FindByBookingID(ctx, bookingID)
}

func storedDistribution(payment *entity.Payment) *Distribution {
	dist := &Distribution{
		Released: payment.EscrowStatus == entity.EscrowStatusReleased,
	}
	if payment.GuidePayout != nil {
		dist.GuidePayout = *payment.GuidePayout
	}
	if payment.TravelerRefund != nil {
		dist.TravelerRefund = *payment.TravelerRefund
	}
	if payment.PlatformFee != nil {
		dist.PlatformFee = *payment.PlatformFee
	}
	return dist
}
