package repository

import (
	"context"
	"fmt"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	// Create takes a Querier so booking creation can share a transaction
	// with escrow opening. No booking may exist without a HELD escrow.
	Create(ctx context.Context, q database.Querier, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByPartyID(ctx context.Context, partyID uuid.UUID, limit, offset int) ([]*entity.Booking, error)
	CountByPartyID(ctx context.Context, partyID uuid.UUID) (int64, error)

	// TrySettle flips the settled flag false -> true. Exactly one caller
	// per booking observes true; everyone else lost the race.
	TrySettle(ctx context.Context, id uuid.UUID) (bool, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus) error
	// MarkCancelled only succeeds pre-settlement and while the booking is
	// still pending or confirmed.
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)
	// FindStaleUnsettled returns confirmed, unsettled bookings whose date
	// is older than the cutoff, for the attendance grace sweep.
	FindStaleUnsettled(ctx context.Context, cutoff time.Time) ([]*entity.Booking, error)
	// FindSettledWithHeldEscrow returns bookings whose settled flag won
	// the race but whose escrow write never landed. The sweep re-drives
	// settlement for these from the stored attendance outcomes.
	FindSettledWithHeldEscrow(ctx context.Context) ([]*entity.Booking, error)
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingColumns = `id, request_id, reference_no, traveler_id, guide_id, booking_date,
		booking_time, duration, price, status, settled, has_review, created_at, updated_at`

const bookingQualifiedColumns = `b.id, b.request_id, b.reference_no, b.traveler_id, b.guide_id, b.booking_date,
		b.booking_time, b.duration, b.price, b.status, b.settled, b.has_review, b.created_at, b.updated_at`

func (r *bookingRepository) Create(ctx context.Context, q database.Querier, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, request_id, reference_no, traveler_id, guide_id, booking_date,
			booking_time, duration, price, status, settled, has_review, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := q.Exec(ctx, query,
		booking.ID,
		booking.RequestID,
		booking.ReferenceNo,
		booking.TravelerID,
		booking.GuideID,
		booking.BookingDate,
		booking.BookingTime,
		booking.Duration,
		booking.Price,
		booking.Status,
		booking.Settled,
		booking.HasReview,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("reference_no", booking.ReferenceNo),
			zap.String("traveler_id", booking.TravelerID.String()),
		)
		return fmt.Errorf("create booking %s: %w", booking.ReferenceNo, err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking entity.Booking
	err := r.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.RequestID,
		&booking.ReferenceNo,
		&booking.TravelerID,
		&booking.GuideID,
		&booking.BookingDate,
		&booking.BookingTime,
		&booking.Duration,
		&booking.Price,
		&booking.Status,
		&booking.Settled,
		&booking.HasReview,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return &booking, nil
}

func (r *bookingRepository) FindByPartyID(ctx context.Context, partyID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE traveler_id = $1 OR guide_id = $1
		ORDER BY booking_date DESC
		LIMIT $2 OFFSET $3`

	return r.scanMany(ctx, query, partyID, limit, offset)
}

func (r *bookingRepository) CountByPartyID(ctx context.Context, partyID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings WHERE traveler_id = $1 OR guide_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, partyID).Scan(&count); err != nil {
		r.log.Error("Failed to count bookings by party",
			zap.Error(err),
			zap.String("party_id", partyID.String()),
		)
		return 0, fmt.Errorf("count bookings by party %s: %w", partyID.String(), err)
	}

	return count, nil
}

func (r *bookingRepository) TrySettle(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET settled = TRUE, status = 'completed', updated_at = NOW()
		WHERE id = $1 AND settled = FALSE
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to flip settled flag",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("settle booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.BookingStatus) error {
	query := `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, status)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("status", string(status)),
		)
		return fmt.Errorf("update booking %s status to %s: %w", id.String(), string(status), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("booking %s not found", id.String())
	}

	return nil
}

func (r *bookingRepository) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1 AND settled = FALSE AND status IN ('pending', 'confirmed')
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to cancel booking",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return false, fmt.Errorf("cancel booking %s: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *bookingRepository) FindStaleUnsettled(ctx context.Context, cutoff time.Time) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM bookings
		WHERE status = 'confirmed' AND settled = FALSE AND booking_date <= $1
		ORDER BY booking_date`

	return r.scanMany(ctx, query, cutoff)
}

func (r *bookingRepository) FindSettledWithHeldEscrow(ctx context.Context) ([]*entity.Booking, error) {
	query := `SELECT ` + bookingQualifiedColumns + `
		FROM bookings b
		JOIN payments p ON p.booking_id = b.id
		WHERE b.settled = TRUE AND p.escrow_status = 'HELD'
		ORDER BY b.booking_date`

	return r.scanMany(ctx, query)
}

func (r *bookingRepository) scanMany(ctx context.Context, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query bookings", zap.Error(err))
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		var booking entity.Booking
		err := rows.Scan(
			&booking.ID,
			&booking.RequestID,
			&booking.ReferenceNo,
			&booking.TravelerID,
			&booking.GuideID,
			&booking.BookingDate,
			&booking.BookingTime,
			&booking.Duration,
			&booking.Price,
			&booking.Status,
			&booking.Settled,
			&booking.HasReview,
			&booking.CreatedAt,
			&booking.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, &booking)
	}

	return bookings, nil
}
