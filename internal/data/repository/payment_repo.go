package repository

import (
	"context"
	"fmt"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	// Create takes a Querier so the payment row joins the booking-creation
	// transaction.
	Create(ctx context.Context, q database.Querier, payment *entity.Payment) error
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error)

	// Escrow transitions are conditional on escrow_status = 'HELD'; they
	// return false when the escrow already left HELD.
	Release(ctx context.Context, bookingID uuid.UUID, guidePayout, travelerRefund, platformFee float64) (bool, error)
	Refund(ctx context.Context, bookingID uuid.UUID, guidePayout, travelerRefund, platformFee float64) (bool, error)
	MarkDisputed(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `id, booking_id, amount, currency, payment_method, status, escrow_status,
		guide_payout, traveler_refund, platform_fee, processed_at, released_at, refunded_at,
		created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, q database.Querier, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (id, booking_id, amount, currency, payment_method, status,
			escrow_status, processed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := q.Exec(ctx, query,
		payment.ID,
		payment.BookingID,
		payment.Amount,
		payment.Currency,
		payment.PaymentMethod,
		payment.Status,
		payment.EscrowStatus,
		payment.ProcessedAt,
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("booking_id", payment.BookingID.String()),
		)
		return fmt.Errorf("create payment for booking %s: %w", payment.BookingID.String(), err)
	}

	return nil
}

func (r *paymentRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE booking_id = $1`

	var payment entity.Payment
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Amount,
		&payment.Currency,
		&payment.PaymentMethod,
		&payment.Status,
		&payment.EscrowStatus,
		&payment.GuidePayout,
		&payment.TravelerRefund,
		&payment.PlatformFee,
		&payment.ProcessedAt,
		&payment.ReleasedAt,
		&payment.RefundedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment by booking ID",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find payment by booking ID %s: %w", bookingID.String(), err)
	}

	return &payment, nil
}

func (r *paymentRepository) Release(ctx context.Context, bookingID uuid.UUID, guidePayout, travelerRefund, platformFee float64) (bool, error) {
	query := `
		UPDATE payments
		SET escrow_status = 'RELEASED', guide_payout = $2, traveler_refund = $3,
		    platform_fee = $4, released_at = NOW(), updated_at = NOW()
		WHERE booking_id = $1 AND escrow_status = 'HELD'
	`

	result, err := r.db.Exec(ctx, query, bookingID, guidePayout, travelerRefund, platformFee)
	if err != nil {
		r.log.Error("Failed to release escrow",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("release escrow for booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) Refund(ctx context.Context, bookingID uuid.UUID, guidePayout, travelerRefund, platformFee float64) (bool, error) {
	query := `
		UPDATE payments
		SET escrow_status = 'REFUNDED', status = 'REFUNDED', guide_payout = $2,
		    traveler_refund = $3, platform_fee = $4, refunded_at = NOW(), updated_at = NOW()
		WHERE booking_id = $1 AND escrow_status = 'HELD'
	`

	result, err := r.db.Exec(ctx, query, bookingID, guidePayout, travelerRefund, platformFee)
	if err != nil {
		r.log.Error("Failed to refund escrow",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("refund escrow for booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *paymentRepository) MarkDisputed(ctx context.Context, bookingID uuid.UUID) (bool, error) {
	query := `
		UPDATE payments
		SET escrow_status = 'DISPUTED', updated_at = NOW()
		WHERE booking_id = $1 AND escrow_status = 'HELD'
	`

	result, err := r.db.Exec(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to mark escrow disputed",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("mark escrow disputed for booking %s: %w", bookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
