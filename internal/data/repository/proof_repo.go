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

type ProofRepository interface {
	Create(ctx context.Context, proof *entity.MeetingProof) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.MeetingProof, error)
	// MarkUsed consumes the single-use token. Returns false when the proof
	// was already used, i.e. a replay.
	MarkUsed(ctx context.Context, id uuid.UUID) (bool, error)
}

type proofRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewProofRepository(db database.PgxIface, log *zap.Logger) ProofRepository {
	return &proofRepository{
		db:  db,
		log: log.With(zap.String("repository", "proof")),
	}
}

func (r *proofRepository) Create(ctx context.Context, proof *entity.MeetingProof) error {
	query := `
		INSERT INTO meeting_proofs (id, booking_id, guide_id, lat, lng, issued_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		proof.ID,
		proof.BookingID,
		proof.GuideID,
		proof.Lat,
		proof.Lng,
		proof.IssuedAt,
		proof.Used,
		proof.CreatedAt,
	)

	if err != nil {
		r.log.Error("Failed to create meeting proof",
			zap.Error(err),
			zap.String("booking_id", proof.BookingID.String()),
		)
		return fmt.Errorf("create meeting proof for booking %s: %w", proof.BookingID.String(), err)
	}

	return nil
}

func (r *proofRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.MeetingProof, error) {
	query := `
		SELECT id, booking_id, guide_id, lat, lng, issued_at, used, created_at
		FROM meeting_proofs
		WHERE id = $1
	`

	var proof entity.MeetingProof
	err := r.db.QueryRow(ctx, query, id).Scan(
		&proof.ID,
		&proof.BookingID,
		&proof.GuideID,
		&proof.Lat,
		&proof.Lng,
		&proof.IssuedAt,
		&proof.Used,
		&proof.CreatedAt,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find meeting proof",
			zap.Error(err),
			zap.String("proof_id", id.String()),
		)
		return nil, fmt.Errorf("find meeting proof %s: %w", id.String(), err)
	}

	return &proof, nil
}

func (r *proofRepository) MarkUsed(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE meeting_proofs SET used = TRUE WHERE id = $1 AND used = FALSE`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		r.log.Error("Failed to mark proof used",
			zap.Error(err),
			zap.String("proof_id", id.String()),
		)
		return false, fmt.Errorf("mark proof %s used: %w", id.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
