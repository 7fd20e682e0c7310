package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/dto/response"
	"travelwithstudents/internal/notifier"
	"travelwithstudents/pkg/apperror"
	"travelwithstudents/pkg/geo"
	"travelwithstudents/pkg/metrics"
	"travelwithstudents/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProofService issues and validates the location-bound meeting proof. A
// proof is a signed single-use token the guide renders as a QR code and the
// traveler scans; verification requires both devices to be co-located.
type ProofService interface {
	GenerateProof(ctx context.Context, guideID, bookingID uuid.UUID, lat, lng float64) (*response.ProofResponse, error)
	VerifyProof(ctx context.Context, travelerID, bookingID uuid.UUID, qrData string, lat, lng float64) (*response.VerifyProofResponse, error)
}

// proofClaims is the payload embedded in the QR token. Verification trusts
// the persisted proof row; the claims only locate it and bind the booking.
type proofClaims struct {
	ProofID   string  `json:"pid"`
	BookingID string  `json:"bid"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	IssuedAt  int64   `json:"iat"`
	Role      string  `json:"role"`
}

type proofService struct {
	repo       *repository.Repository
	attendance AttendanceService
	notify     notifier.Notifier
	config     *utils.Config
	log        *zap.Logger

	now func() time.Time
}

func NewProofService(repo *repository.Repository, attendance AttendanceService, notify notifier.Notifier, config *utils.Config, log *zap.Logger) ProofService {
	return &proofService{
		repo:       repo,
		attendance: attendance,
		notify:     notify,
		config:     config,
		log:        log.With(zap.String("service", "proof")),
		now:        time.Now,
	}
}

func (s *proofService) GenerateProof(ctx context.Context, guideID, bookingID uuid.UUID, lat, lng float64) (*response.ProofResponse, error) {
	if !geo.ValidCoordinate(lat, lng) {
		return nil, apperror.Validation("Invalid coordinates")
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperror.NotFound("Booking not found")
	}

	if booking.GuideID != guideID {
		return nil, apperror.Forbidden("Only the guide of this booking may issue a meeting proof")
	}

	if booking.Settled {
		return nil, apperror.State("Booking already settled")
	}
	if booking.Status != entity.BookingStatusConfirmed {
		return nil, apperror.Newf(apperror.KindState, "Booking is %s, proof cannot be issued", booking.Status)
	}

	issuedAt := s.now()
	proof := &entity.MeetingProof{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: issuedAt,
		},
		BookingID: bookingID,
		GuideID:   guideID,
		Lat:       lat,
		Lng:       lng,
		IssuedAt:  issuedAt,
		Used:      false,
	}

	if err := s.repo.Proof.Create(ctx, proof); err != nil {
		return nil, err
	}

	qrData, err := s.encode(proofClaims{
		ProofID:   proof.ID.String(),
		BookingID: bookingID.String(),
		Lat:       lat,
		Lng:       lng,
		IssuedAt:  issuedAt.Unix(),
		Role:      string(entity.PartyGuide),
	})
	if err != nil {
		return nil, fmt.Errorf("encode proof payload: %w", err)
	}

	ttl := time.Duration(s.config.Proof.TTLMinutes) * time.Minute

	s.log.Info("Meeting proof issued",
		zap.String("booking_id", bookingID.String()),
		zap.String("proof_id", proof.ID.String()),
	)

	return &response.ProofResponse{
		BookingID: bookingID.String(),
		QRData:    qrData,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}, nil
}

func (s *proofService) VerifyProof(ctx context.Context, travelerID, bookingID uuid.UUID, qrData string, lat, lng float64) (*response.VerifyProofResponse, error) {
	if !geo.ValidCoordinate(lat, lng) {
		return nil, apperror.Validation("Invalid coordinates")
	}

	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperror.NotFound("Booking not found")
	}

	if booking.TravelerID != travelerID {
		return nil, apperror.Forbidden("Only the traveler of this booking may verify a meeting proof")
	}

	claims, err := s.decode(qrData)
	if err != nil {
		metrics.IncProofVerification("invalid_payload")
		return nil, apperror.InvalidProof("Invalid or tampered proof payload")
	}

	if claims.BookingID != bookingID.String() {
		metrics.IncProofVerification("booking_mismatch")
		return nil, apperror.InvalidProof("Proof was issued for a different booking")
	}

	proofID, err := uuid.Parse(claims.ProofID)
	if err != nil {
		metrics.IncProofVerification("invalid_payload")
		return nil, apperror.InvalidProof("Invalid or tampered proof payload")
	}

	proof, err := s.repo.Proof.FindByID(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if proof == nil || proof.BookingID != bookingID {
		metrics.IncProofVerification("unknown_proof")
		return nil, apperror.InvalidProof("Unknown proof")
	}

	// Replay always fails the same way, even inside the validity window
	// and from the original coordinates.
	if proof.Used {
		metrics.IncProofVerification("replay")
		return nil, apperror.ProofUsed("Proof already used")
	}

	ttl := time.Duration(s.config.Proof.TTLMinutes) * time.Minute
	if s.now().Sub(proof.IssuedAt) > ttl {
		metrics.IncProofVerification("expired")
		return nil, apperror.InvalidProof("Proof expired")
	}

	distance := geo.DistanceMeters(proof.Lat, proof.Lng, lat, lng)
	if distance > s.config.Proof.RadiusMeters {
		metrics.IncProofVerification("out_of_range")
		s.log.Warn("Proof verification out of range",
			zap.String("booking_id", bookingID.String()),
			zap.Float64("distance_m", distance),
			zap.Float64("radius_m", s.config.Proof.RadiusMeters),
		)
		return nil, apperror.InvalidProof("Location verification failed: parties must be within range")
	}

	used, err := s.repo.Proof.MarkUsed(ctx, proofID)
	if err != nil {
		return nil, err
	}
	if !used {
		metrics.IncProofVerification("replay")
		return nil, apperror.ProofUsed("Proof already used")
	}

	// One verified scan confirms both parties at once.
	if _, err := s.attendance.Report(ctx, bookingID, entity.PartyGuide, entity.OutcomeConfirmed, entity.SourceProof); err != nil {
		return nil, err
	}
	bothConfirmed, err := s.attendance.Report(ctx, bookingID, entity.PartyTraveler, entity.OutcomeConfirmed, entity.SourceProof)
	if err != nil {
		return nil, err
	}

	metrics.IncProofVerification("ok")

	s.log.Info("Meeting proof verified",
		zap.String("booking_id", bookingID.String()),
		zap.String("proof_id", proofID.String()),
		zap.Float64("distance_m", distance),
	)

	go s.notify.Notify(context.WithoutCancel(ctx), notifier.EventProofVerified, bookingID,
		[]uuid.UUID{booking.TravelerID, booking.GuideID})

	return &response.VerifyProofResponse{BothConfirmed: bothConfirmed}, nil
}

func (s *proofService) encode(claims proofClaims) (string, error) {
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}

	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.sign(body), nil
}

func (s *proofService) decode(qrData string) (*proofClaims, error) {
	parts := strings.Split(qrData, ".")
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed proof token")
	}

	if !hmac.Equal([]byte(s.sign(parts[0])), []byte(parts[1])) {
		return nil, fmt.Errorf("proof signature mismatch")
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, fmt.Errorf("decode proof payload: %w", err)
	}

	var claims proofClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("unmarshal proof payload: %w", err)
	}

	return &claims, nil
}

func (s *proofService) sign(body string) string {
	mac := hmac.New(sha256.New, []byte(s.config.Proof.Secret))
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
