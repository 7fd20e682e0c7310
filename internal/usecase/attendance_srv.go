package usecase

import (
	"context"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/notifier"
	"travelwithstudents/pkg/apperror"
	"travelwithstudents/pkg/metrics"
	"travelwithstudents/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttendanceService collects attendance signals from both parties and
// triggers settlement exactly once per booking.
type AttendanceService interface {
	// ReportManual records an attendance outcome on behalf of the
	// authenticated actor, who must be a party to the booking.
	ReportManual(ctx context.Context, actorID, bookingID uuid.UUID, outcome entity.AttendanceOutcome) (bool, error)

	// Report upserts the record for an explicit role. Used by the proof
	// verifier, which confirms both roles from a single scan.
	Report(ctx context.Context, bookingID uuid.UUID, role entity.PartyRole, outcome entity.AttendanceOutcome, source entity.AttendanceSource) (bool, error)

	GetRecords(ctx context.Context, bookingID uuid.UUID) ([]*entity.AttendanceRecord, error)

	// ResolveStale marks confirmed bookings past the attendance grace
	// period with incomplete reports as disputed. No default outcome is
	// ever assumed for a silent party.
	ResolveStale(ctx context.Context, now time.Time) error
}

type attendanceService struct {
	repo   *repository.Repository
	escrow EscrowService
	notify notifier.Notifier
	config *utils.Config
	log    *zap.Logger
}

func NewAttendanceService(repo *repository.Repository, escrow EscrowService, notify notifier.Notifier, config *utils.Config, log *zap.Logger) AttendanceService {
	return &attendanceService{
		repo:   repo,
		escrow: escrow,
		notify: notify,
		config: config,
		log:    log.With(zap.String("service", "attendance")),
	}
}

func (s *attendanceService) ReportManual(ctx context.Context, actorID, bookingID uuid.UUID, outcome entity.AttendanceOutcome) (bool, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking == nil {
		return false, apperror.NotFound("Booking not found")
	}

	var role entity.PartyRole
	switch actorID {
	case booking.GuideID:
		role = entity.PartyGuide
	case booking.TravelerID:
		role = entity.PartyTraveler
	default:
		return false, apperror.Forbidden("Only the traveler or guide of this booking may report attendance")
	}

	return s.report(ctx, booking, role, outcome, entity.SourceManual)
}

func (s *attendanceService) Report(ctx context.Context, bookingID uuid.UUID, role entity.PartyRole, outcome entity.AttendanceOutcome, source entity.AttendanceSource) (bool, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return false, err
	}
	if booking == nil {
		return false, apperror.NotFound("Booking not found")
	}

	return s.report(ctx, booking, role, outcome, source)
}

func (s *attendanceService) report(ctx context.Context, booking *entity.Booking, role entity.PartyRole, outcome entity.AttendanceOutcome, source entity.AttendanceSource) (bool, error) {
	if outcome != entity.OutcomeConfirmed && outcome != entity.OutcomeNoShow {
		return false, apperror.Validation("Outcome must be CONFIRMED or NO_SHOW")
	}

	if booking.Settled {
		return false, apperror.State("Booking already settled, attendance reports are frozen")
	}

	switch booking.Status {
	case entity.BookingStatusConfirmed, entity.BookingStatusCompleted:
	default:
		return false, apperror.Newf(apperror.KindState,
			"Booking is %s, attendance cannot be reported", booking.Status)
	}

	now := time.Now()
	record := &entity.AttendanceRecord{
		BaseSimple: entity.BaseSimple{
			ID:        uuid.New(),
			CreatedAt: now,
		},
		BookingID:  booking.ID,
		Role:       role,
		Outcome:    outcome,
		Source:     source,
		ReportedAt: now,
	}

	ok, err := s.repo.Attendance.Upsert(ctx, record)
	if err != nil {
		return false, err
	}
	if !ok {
		// Settlement fired between our read and the write.
		return false, apperror.State("Booking already settled, attendance reports are frozen")
	}

	s.log.Info("Attendance reported",
		zap.String("booking_id", booking.ID.String()),
		zap.String("role", string(role)),
		zap.String("outcome", string(outcome)),
		zap.String("source", string(source)),
	)

	return s.maybeSettle(ctx, booking)
}

// maybeSettle settles the booking when both outcomes are known. The settled
// flag on the booking row is the exactly-once guard: the first caller to flip
// it runs settlement, every concurrent loser is a no-op.
func (s *attendanceService) maybeSettle(ctx context.Context, booking *entity.Booking) (bool, error) {
	records, err := s.repo.Attendance.FindByBookingID(ctx, booking.ID)
	if err != nil {
		return false, err
	}

	guideOutcome, travelerOutcome := partyOutcomes(records)
	bothConfirmed := guideOutcome == entity.OutcomeConfirmed && travelerOutcome == entity.OutcomeConfirmed

	if !outcomeKnown(guideOutcome) || !outcomeKnown(travelerOutcome) {
		return bothConfirmed, nil
	}

	won, err := s.repo.Booking.TrySettle(ctx, booking.ID)
	if err != nil {
		return bothConfirmed, err
	}
	if !won {
		// Another reporter settled first.
		return bothConfirmed, nil
	}

	return bothConfirmed, s.runSettlement(ctx, booking, guideOutcome, travelerOutcome)
}

// runSettlement distributes the escrow for a booking that already won the
// settled flag. On failure the booking stays settled with escrow HELD; the
// sweep picks it up and calls this again.
func (s *attendanceService) runSettlement(ctx context.Context, booking *entity.Booking, guideOutcome, travelerOutcome entity.AttendanceOutcome) error {
	dist := Settle(guideOutcome, travelerOutcome, booking.Price, s.config.Booking.PlatformFeeRate)

	if _, err := s.escrow.Settle(ctx, booking.ID, dist); err != nil {
		s.log.Error("Settlement distribution failed",
			zap.Error(err),
			zap.String("booking_id", booking.ID.String()),
		)
		return err
	}

	result := "refunded"
	event := notifier.EventBookingRefunded
	if dist.Released {
		result = "released"
		event = notifier.EventBookingSettled
	}
	metrics.IncSettlement(result)

	s.log.Info("Booking settled",
		zap.String("booking_id", booking.ID.String()),
		zap.String("guide_outcome", string(guideOutcome)),
		zap.String("traveler_outcome", string(travelerOutcome)),
		zap.String("result", result),
	)

	go s.notify.Notify(context.WithoutCancel(ctx), event, booking.ID,
		[]uuid.UUID{booking.TravelerID, booking.GuideID})

	return nil
}

func partyOutcomes(records []*entity.AttendanceRecord) (guide, traveler entity.AttendanceOutcome) {
	for _, record := range records {
		switch record.Role {
		case entity.PartyGuide:
			guide = record.Outcome
		case entity.PartyTraveler:
			traveler = record.Outcome
		}
	}
	return guide, traveler
}

func outcomeKnown(outcome entity.AttendanceOutcome) bool {
	return outcome == entity.OutcomeConfirmed || outcome == entity.OutcomeNoShow
}

func (s *attendanceService) GetRecords(ctx context.Context, bookingID uuid.UUID) ([]*entity.AttendanceRecord, error) {
	return s.repo.Attendance.FindByBookingID(ctx, bookingID)
}

func (s *attendanceService) ResolveStale(ctx context.Context, now time.Time) error {
	if err := s.retryStrandedSettlements(ctx); err != nil {
		return err
	}

	cutoff := now.Add(-time.Duration(s.config.Booking.AttendanceGraceHours) * time.Hour)

	stale, err := s.repo.Booking.FindStaleUnsettled(ctx, cutoff)
	if err != nil {
		return err
	}

	for _, booking := range stale {
		records, err := s.repo.Attendance.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return err
		}

		// Both parties reported but the settled flag never flipped, from
		// a crash before TrySettle. Settle now instead of disputing.
		if len(records) >= 2 {
			if _, err := s.maybeSettle(ctx, booking); err != nil {
				s.log.Error("Stale settlement retry failed",
					zap.Error(err),
					zap.String("booking_id", booking.ID.String()),
				)
			}
			continue
		}

		if err := s.repo.Booking.UpdateStatus(ctx, booking.ID, entity.BookingStatusDisputed); err != nil {
			return err
		}

		if err := s.escrow.MarkDisputed(ctx, booking.ID); err != nil {
			s.log.Error("Failed to dispute escrow for stale booking",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}

		metrics.AddSweepTransitions("booking_disputed", 1)

		s.log.Warn("Stale booking marked disputed",
			zap.String("booking_id", booking.ID.String()),
			zap.Time("booking_date", booking.BookingDate),
		)

		go s.notify.Notify(context.WithoutCancel(ctx), notifier.EventBookingDisputed, booking.ID,
			[]uuid.UUID{booking.TravelerID, booking.GuideID})
	}

	return nil
}

// retryStrandedSettlements re-drives escrow distribution for bookings whose
// settled flag won but whose escrow write failed afterwards. Reports are
// frozen for these bookings, so nothing else can retry; escrow.Settle is
// idempotent, making the re-drive safe to run on every sweep.
func (s *attendanceService) retryStrandedSettlements(ctx context.Context) error {
	stranded, err := s.repo.Booking.FindSettledWithHeldEscrow(ctx)
	if err != nil {
		return err
	}

	for _, booking := range stranded {
		records, err := s.repo.Attendance.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return err
		}

		guideOutcome, travelerOutcome := partyOutcomes(records)
		if !outcomeKnown(guideOutcome) || !outcomeKnown(travelerOutcome) {
			// A settled booking always has both outcomes on record;
			// anything else is corrupt data, not a retry candidate.
			s.log.Error("Settled booking with held escrow is missing attendance outcomes",
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}

		if err := s.runSettlement(ctx, booking, guideOutcome, travelerOutcome); err != nil {
			s.log.Error("Stranded settlement retry failed",
				zap.Error(err),
				zap.String("booking_id", booking.ID.String()),
			)
			continue
		}

		metrics.AddSweepTransitions("settlement_retried", 1)
	}

	return nil
}
