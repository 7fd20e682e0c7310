package repository

import (
	"context"
	"fmt"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/pkg/database"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AttendanceRepository interface {
	// Upsert writes the (booking, role) record last-write-wins, but only
	// while the booking has not settled. Returns false once reports are
	// frozen.
	Upsert(ctx context.Context, record *entity.AttendanceRecord) (bool, error)
	FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.AttendanceRecord, error)
}

type attendanceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAttendanceRepository(db database.PgxIface, log *zap.Logger) AttendanceRepository {
	return &attendanceRepository{
		db:  db,
		log: log.With(zap.String("repository", "attendance")),
	}
}

func (r *attendanceRepository) Upsert(ctx context.Context, record *entity.AttendanceRecord) (bool, error) {
	// The WHERE EXISTS guard makes the write a no-op for settled bookings,
	// so post-settlement reports cannot clobber the records settlement saw.
	query := `
		INSERT INTO attendance_records (id, booking_id, role, outcome, source, reported_at, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7
		WHERE EXISTS (SELECT 1 FROM bookings b WHERE b.id = $2 AND b.settled = FALSE)
		ON CONFLICT (booking_id, role)
		DO UPDATE SET outcome = EXCLUDED.outcome, source = EXCLUDED.source,
		              reported_at = EXCLUDED.reported_at
	`

	result, err := r.db.Exec(ctx, query,
		record.ID,
		record.BookingID,
		record.Role,
		record.Outcome,
		record.Source,
		record.ReportedAt,
		record.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to upsert attendance record",
			zap.Error(err),
			zap.String("booking_id", record.BookingID.String()),
			zap.String("role", string(record.Role)),
		)
		return false, fmt.Errorf("upsert attendance for booking %s: %w", record.BookingID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

func (r *attendanceRepository) FindByBookingID(ctx context.Context, bookingID uuid.UUID) ([]*entity.AttendanceRecord, error) {
	query := `
		SELECT id, booking_id, role, outcome, source, reported_at, created_at
		FROM attendance_records
		WHERE booking_id = $1
	`

	rows, err := r.db.Query(ctx, query, bookingID)
	if err != nil {
		r.log.Error("Failed to find attendance records",
			zap.Error(err),
			zap.String("booking_id", bookingID.String()),
		)
		return nil, fmt.Errorf("find attendance for booking %s: %w", bookingID.String(), err)
	}
	defer rows.Close()

	var records []*entity.AttendanceRecord
	for rows.Next() {
		var record entity.AttendanceRecord
		err := rows.Scan(
			&record.ID,
			&record.BookingID,
			&record.Role,
			&record.Outcome,
			&record.Source,
			&record.ReportedAt,
			&record.CreatedAt,
		)
		if err != nil {
			r.log.Error("Failed to scan attendance row", zap.Error(err))
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		records = append(records, &record)
	}

	return records, nil
}
