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

type RequestRepository interface {
	Create(ctx context.Context, req *entity.BookingRequest) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingRequest, error)
	FindByTravelerID(ctx context.Context, travelerID uuid.UUID, limit, offset int) ([]*entity.BookingRequest, error)
	CountByTravelerID(ctx context.Context, travelerID uuid.UUID) (int64, error)
	FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.BookingRequest, error)
	CountByGuideID(ctx context.Context, guideID uuid.UUID) (int64, error)

	// Conditional transitions. Each returns false when the request was not
	// in the expected source status, i.e. the caller lost a race or the
	// lifecycle already moved on.
	MarkResponded(ctx context.Context, id uuid.UUID, status entity.RequestStatus,
		guideResponse *string, estimatedPrice *float64, paymentDeadline *time.Time, respondedAt time.Time) (bool, error)
	MarkPaid(ctx context.Context, q database.Querier, id, bookingID uuid.UUID) (bool, error)
	MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error)

	// Expiry sweep. Both are idempotent bulk transitions and return the
	// number of rows advanced.
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
	ExpireUnpaid(ctx context.Context, now time.Time) (int64, error)
}

type requestRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewRequestRepository(db database.PgxIface, log *zap.Logger) RequestRepository {
	return &requestRepository{
		db:  db,
		log: log.With(zap.String("repository", "request")),
	}
}

const requestColumns = `id, traveler_id, guide_id, booking_date, booking_time, duration,
		participant_count, message, status, estimated_price, guide_response,
		responded_at, expires_at, payment_deadline, booking_id, created_at, updated_at`

func (r *requestRepository) Create(ctx context.Context, req *entity.BookingRequest) error {
	query := `
		INSERT INTO booking_requests (id, traveler_id, guide_id, booking_date, booking_time,
			duration, participant_count, message, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		req.ID,
		req.TravelerID,
		req.GuideID,
		req.BookingDate,
		req.BookingTime,
		req.Duration,
		req.ParticipantCount,
		req.Message,
		req.Status,
		req.ExpiresAt,
		req.CreatedAt,
		req.UpdatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create booking request",
			zap.Error(err),
			zap.String("traveler_id", req.TravelerID.String()),
			zap.String("guide_id", req.GuideID.String()),
		)
		return fmt.Errorf("create booking request: %w", err)
	}

	return nil
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.BookingRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM booking_requests WHERE id = $1`

	var req entity.BookingRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID,
		&req.TravelerID,
		&req.GuideID,
		&req.BookingDate,
		&req.BookingTime,
		&req.Duration,
		&req.ParticipantCount,
		&req.Message,
		&req.Status,
		&req.EstimatedPrice,
		&req.GuideResponse,
		&req.RespondedAt,
		&req.ExpiresAt,
		&req.PaymentDeadline,
		&req.BookingID,
		&req.CreatedAt,
		&req.UpdatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking request",
			zap.Error(err),
			zap.String("request_id", id.String()),
		)
		return nil, fmt.Errorf("find booking request %s: %w", id.String(), err)
	}

	return &req, nil
}

func (r *requestRepository) FindByTravelerID(ctx context.Context, travelerID uuid.UUID, limit, offset int) ([]*entity.BookingRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM booking_requests
		WHERE traveler_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	return r.scanMany(ctx, query, travelerID, limit, offset)
}

func (r *requestRepository) CountByTravelerID(ctx context.Context, travelerID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM booking_requests WHERE traveler_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, travelerID).Scan(&count); err != nil {
		r.log.Error("Failed to count requests by traveler",
			zap.Error(err),
			zap.String("traveler_id", travelerID.String()),
		)
		return 0, fmt.Errorf("count requests by traveler %s: %w", travelerID.String(), err)
	}

	return count, nil
}

func (r *requestRepository) FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.BookingRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM booking_requests
		WHERE guide_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	return r.scanMany(ctx, query, guideID, limit, offset)
}

func (r *requestRepository) CountByGuideID(ctx context.Context, guideID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM booking_requests WHERE guide_id = $1`

	var count int64
	if err := r.db.QueryRow(ctx, query, guideID).Scan(&count); err != nil {
		r.log.Error("Failed to count requests by guide",
			zap.Error(err),
			zap.String("guide_id", guideID.String()),
		)
		return 0, fmt.Errorf("count requests by guide %s: %w", guideID.String(), err)
	}

	return count, nil
}

func (r *requestRepository) MarkResponded(ctx context.Context, id uuid.UUID, status entity.RequestStatus,
	guideResponse *string, estimatedPrice *float64, paymentDeadline *time.Time, respondedAt time.Time) (bool, error) {
	query := `
		UPDATE booking_requests
		SET status = $2, guide_response = $3, estimated_price = $4,
		    payment_deadline = $5, responded_at = $6, updated_at = NOW()
		WHERE id = $1 AND status = 'PENDING'
	`

	result, err := r.db.Exec(ctx, query, id, status, guideResponse, estimatedPrice, paymentDeadline, respondedAt)
	if err != nil {
		r.log.Error("Failed to mark request responded",
			zap.Error(err),
			zap.String("request_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("mark request %s responded: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *requestRepository) MarkPaid(ctx context.Context, q database.Querier, id, bookingID uuid.UUID) (bool, error) {
	query := `
		UPDATE booking_requests
		SET status = 'PAID', booking_id = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'ACCEPTED'
	`

	result, err := q.Exec(ctx, query, id, bookingID)
	if err != nil {
		r.log.Error("Failed to mark request paid",
			zap.Error(err),
			zap.String("request_id", id.String()),
			zap.String("booking_id", bookingID.String()),
		)
		return false, fmt.Errorf("mark request %s paid: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *requestRepository) MarkCancelled(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE booking_requests
		SET status = 'CANCELLED', updated_at = NOW()
		WHERE id = $1 AND status IN ('PENDING', 'ACCEPTED', 'PAYMENT_PENDING')
	`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark request cancelled",
			zap.Error(err),
			zap.String("request_id", id.String()),
		)
		return false, fmt.Errorf("mark request %s cancelled: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *requestRepository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE booking_requests
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'PENDING' AND expires_at <= $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to expire pending requests", zap.Error(err))
		return 0, fmt.Errorf("expire pending requests: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *requestRepository) ExpireUnpaid(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE booking_requests
		SET status = 'PAYMENT_EXPIRED', updated_at = NOW()
		WHERE status = 'ACCEPTED' AND payment_deadline <= $1
	`

	result, err := r.db.Exec(ctx, query, now)
	if err != nil {
		r.log.Error("Failed to expire unpaid requests", zap.Error(err))
		return 0, fmt.Errorf("expire unpaid requests: %w", err)
	}

	return result.RowsAffected(), nil
}

func (r *requestRepository) scanMany(ctx context.Context, query string, args ...any) ([]*entity.BookingRequest, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to query booking requests", zap.Error(err))
		return nil, fmt.Errorf("query booking requests: %w", err)
	}
	defer rows.Close()

	var requests []*entity.BookingRequest
	for rows.Next() {
		var req entity.BookingRequest
		err := rows.Scan(
			&req.ID,
			&req.TravelerID,
			&req.GuideID,
			&req.BookingDate,
			&req.BookingTime,
			&req.Duration,
			&req.ParticipantCount,
			&req.Message,
			&req.Status,
			&req.EstimatedPrice,
			&req.GuideResponse,
			&req.RespondedAt,
			&req.ExpiresAt,
			&req.PaymentDeadline,
			&req.BookingID,
			&req.CreatedAt,
			&req.UpdatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan booking request row", zap.Error(err))
			return nil, fmt.Errorf("scan booking request row: %w", err)
		}
		requests = append(requests, &req)
	}

	return requests, nil
}
