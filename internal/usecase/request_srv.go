package usecase

import (
	"context"
	"fmt"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/dto/request"
	"travelwithstudents/internal/dto/response"
	"travelwithstudents/internal/notifier"
	"travelwithstudents/pkg/apperror"
	"travelwithstudents/pkg/database"
	"travelwithstudents/pkg/metrics"
	"travelwithstudents/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestService owns the booking-request lifecycle:
// PENDING -> {ACCEPTED, REJECTED, EXPIRED, CANCELLED} and
// ACCEPTED -> {PAID, PAYMENT_EXPIRED, CANCELLED}.
type RequestService interface {
	CreateRequest(ctx context.Context, travelerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingRequestResponse, error)
	Respond(ctx context.Context, guideID, requestID uuid.UUID, req *request.RespondRequest) (*response.BookingRequestResponse, error)
	Pay(ctx context.Context, travelerID, requestID uuid.UUID, req *request.PayRequest) (*response.PaidBookingResponse, error)
	Cancel(ctx context.Context, actorID, requestID uuid.UUID) error

	GetRequest(ctx context.Context, actorID, requestID uuid.UUID) (*response.BookingRequestResponse, error)
	GetTravelerRequests(ctx context.Context, travelerID uuid.UUID, page *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingRequestResponse], error)
	GetGuideRequests(ctx context.Context, guideID uuid.UUID, page *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingRequestResponse], error)

	// ExpireSweep advances all deadline-driven transitions up to now.
	// Idempotent and safe to run concurrently or redundantly.
	ExpireSweep(ctx context.Context, now time.Time) error
}

type requestService struct {
	db     database.PgxIface
	repo   *repository.Repository
	escrow EscrowService
	notify notifier.Notifier
	config *utils.Config
	log    *zap.Logger

	now func() time.Time
}

func NewRequestService(db database.PgxIface, repo *repository.Repository, escrow EscrowService, notify notifier.Notifier, config *utils.Config, log *zap.Logger) RequestService {
	return &requestService{
		db:     db,
		repo:   repo,
		escrow: escrow,
		notify: notify,
		config: config,
		log:    log.With(zap.String("service", "request")),
		now:    time.Now,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, travelerID uuid.UUID, req *request.CreateBookingRequest) (*response.BookingRequestResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create request validation failed", zap.Any("errors", errs))
		return nil, apperror.Validation(utils.FormatValidationErrors(errs))
	}

	guideID, err := uuid.Parse(req.GuideID)
	if err != nil {
		return nil, apperror.Newf(apperror.KindValidation, "Invalid guide ID format %s", req.GuideID)
	}

	guide, err := s.repo.User.FindByID(ctx, guideID)
	if err != nil {
		return nil, err
	}
	if guide == nil || guide.Role != entity.RoleGuide {
		return nil, apperror.NotFound("Guide not found")
	}
	if guideID == travelerID {
		return nil, apperror.Validation("Cannot book yourself")
	}

	bookingDate, err := time.Parse("2006-01-02", req.BookingDate)
	if err != nil {
		return nil, apperror.Validation("Invalid booking date")
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if bookingDate.Before(today) {
		return nil, apperror.Validation("Booking date cannot be in the past")
	}

	participants := req.ParticipantCount
	if participants == 0 {
		participants = 1
	}
	if participants < 1 {
		return nil, apperror.Validation("Participant count must be at least 1")
	}

	bookingRequest := &entity.BookingRequest{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TravelerID:       travelerID,
		GuideID:          guideID,
		BookingDate:      bookingDate,
		BookingTime:      req.BookingTime,
		Duration:         entity.TourDuration(req.Duration),
		ParticipantCount: participants,
		Message:          req.Message,
		Status:           entity.RequestStatusPending,
		ExpiresAt:        now.Add(time.Duration(s.config.Booking.RequestExpiryHours) * time.Hour),
	}

	if err := s.repo.Request.Create(ctx, bookingRequest); err != nil {
		return nil, err
	}

	metrics.IncRequestCreated()

	s.log.Info("Booking request created",
		zap.String("request_id", bookingRequest.ID.String()),
		zap.String("traveler_id", travelerID.String()),
		zap.String("guide_id", guideID.String()),
		zap.String("duration", req.Duration),
		zap.Time("expires_at", bookingRequest.ExpiresAt),
	)

	go s.notify.Notify(context.WithoutCancel(ctx), notifier.EventRequestCreated, bookingRequest.ID,
		[]uuid.UUID{guideID})

	resp := response.BookingRequestToResponse(bookingRequest)
	return &resp, nil
}

func (s *requestService) Respond(ctx context.Context, guideID, requestID uuid.UUID, req *request.RespondRequest) (*response.BookingRequestResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(utils.FormatValidationErrors(errs))
	}

	bookingRequest, err := s.repo.Request.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if bookingRequest == nil {
		return nil, apperror.NotFound("Booking request not found")
	}

	if bookingRequest.GuideID != guideID {
		return nil, apperror.Forbidden("Only the requested guide may respond")
	}

	if bookingRequest.Status != entity.RequestStatusPending {
		return nil, apperror.Newf(apperror.KindState,
			"Request is %s, cannot respond", bookingRequest.Status)
	}

	now := s.now()
	if !now.Before(bookingRequest.ExpiresAt) {
		// Advance the lazy transition so subsequent reads agree.
		if _, sweepErr := s.repo.Request.ExpirePending(ctx, now); sweepErr != nil {
			s.log.Error("Lazy expiry failed", zap.Error(sweepErr))
		}
		return nil, apperror.Expired("Request expired")
	}

	var (
		status          entity.RequestStatus
		estimatedPrice  *float64
		paymentDeadline *time.Time
		event           notifier.Event
	)

	switch req.Action {
	case "accept":
		guide, err := s.repo.User.FindByID(ctx, guideID)
		if err != nil {
			return nil, err
		}
		if guide == nil {
			return nil, apperror.NotFound("Guide not found")
		}

		price := guide.HourlyRate * float64(s.durationHours(bookingRequest.Duration))
		if price <= 0 {
			return nil, apperror.State("Guide has no hourly rate configured")
		}
		deadline := now.Add(time.Duration(s.config.Booking.PaymentDeadlineHours) * time.Hour)

		status = entity.RequestStatusAccepted
		estimatedPrice = &price
		paymentDeadline = &deadline
		event = notifier.EventRequestAccepted

	case "reject":
		status = entity.RequestStatusRejected
		event = notifier.EventRequestRejected

	default:
		return nil, apperror.Validation("Action must be accept or reject")
	}

	ok, err := s.repo.Request.MarkResponded(ctx, requestID, status, req.GuideResponse, estimatedPrice, paymentDeadline, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		// We read PENDING but the row moved on, e.g. a concurrent cancel.
		return nil, apperror.Conflict("Request state changed, response was not applied")
	}

	s.log.Info("Booking request responded",
		zap.String("request_id", requestID.String()),
		zap.String("action", req.Action),
	)

	go s.notify.Notify(context.WithoutCancel(ctx), event, requestID,
		[]uuid.UUID{bookingRequest.TravelerID})

	return s.fetchResponse(ctx, requestID)
}

func (s *requestService) Pay(ctx context.Context, travelerID, requestID uuid.UUID, req *request.PayRequest) (*response.PaidBookingResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, apperror.Validation(utils.FormatValidationErrors(errs))
	}

	bookingRequest, err := s.repo.Request.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if bookingRequest == nil {
		return nil, apperror.NotFound("Booking request not found")
	}

	if bookingRequest.TravelerID != travelerID {
		return nil, apperror.Forbidden("Only the requesting traveler may pay")
	}

	if bookingRequest.Status != entity.RequestStatusAccepted {
		return nil, apperror.Newf(apperror.KindState,
			"Request is %s, cannot pay", bookingRequest.Status)
	}

	now := s.now()
	if bookingRequest.PaymentDeadline == nil || !now.Before(*bookingRequest.PaymentDeadline) {
		if _, sweepErr := s.repo.Request.ExpireUnpaid(ctx, now); sweepErr != nil {
			s.log.Error("Lazy payment expiry failed", zap.Error(sweepErr))
		}
		return nil, apperror.Expired("Payment deadline passed")
	}

	if bookingRequest.EstimatedPrice == nil || *bookingRequest.EstimatedPrice <= 0 {
		return nil, apperror.State("Request has no price, cannot pay")
	}

	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		RequestID:   &bookingRequest.ID,
		ReferenceNo: utils.GenerateReferenceCode(),
		TravelerID:  bookingRequest.TravelerID,
		GuideID:     bookingRequest.GuideID,
		BookingDate: bookingRequest.BookingDate,
		BookingTime: bookingRequest.BookingTime,
		Duration:    bookingRequest.Duration,
		Price:       *bookingRequest.EstimatedPrice,
		Status:      entity.BookingStatusConfirmed,
	}

	// Booking, escrow and the PAID transition commit together or not at
	// all: no booking without a HELD escrow, no PAID request without both.
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin payment transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.Booking.Create(ctx, tx, booking); err != nil {
		return nil, err
	}

	payment, err := s.escrow.OpenEscrow(ctx, tx, booking.ID, booking.Price, req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.Request.MarkPaid(ctx, tx, requestID, booking.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// Lost against a concurrent cancel or expiry sweep.
		return nil, apperror.Conflict("Request state changed during payment")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment transaction: %w", err)
	}

	s.log.Info("Booking request paid",
		zap.String("request_id", requestID.String()),
		zap.String("booking_id", booking.ID.String()),
		zap.String("reference_no", booking.ReferenceNo),
		zap.Float64("amount", booking.Price),
	)

	go s.notify.Notify(context.WithoutCancel(ctx), notifier.EventRequestPaid, requestID,
		[]uuid.UUID{bookingRequest.TravelerID, bookingRequest.GuideID})

	requestResp, err := s.fetchResponse(ctx, requestID)
	if err != nil {
		return nil, err
	}

	bookingResp := response.BookingToResponse(booking)
	paymentResp := response.PaymentToResponse(payment)
	bookingResp.Payment = &paymentResp

	return &response.PaidBookingResponse{
		Booking: bookingResp,
		Request: *requestResp,
	}, nil
}

func (s *requestService) Cancel(ctx context.Context, actorID, requestID uuid.UUID) error {
	bookingRequest, err := s.repo.Request.FindByID(ctx, requestID)
	if err != nil {
		return err
	}
	if bookingRequest == nil {
		return apperror.NotFound("Booking request not found")
	}

	if actorID != bookingRequest.TravelerID && actorID != bookingRequest.GuideID {
		return apperror.Forbidden("Only a party to the request may cancel it")
	}

	switch bookingRequest.Status {
	case entity.RequestStatusPending, entity.RequestStatusAccepted, entity.RequestStatusPaymentPending:
	default:
		return apperror.Newf(apperror.KindState,
			"Request is %s, cannot cancel", bookingRequest.Status)
	}

	ok, err := s.repo.Request.MarkCancelled(ctx, requestID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Conflict("Request state changed, cancellation was not applied")
	}

	// A request cancelled after escrow was opened must return the funds.
	if bookingRequest.BookingID != nil {
		if _, err := s.escrow.Refund(ctx, *bookingRequest.BookingID, "request cancelled"); err != nil {
			return err
		}
		if _, err := s.repo.Booking.MarkCancelled(ctx, *bookingRequest.BookingID); err != nil {
			return err
		}
	}

	s.log.Info("Booking request cancelled",
		zap.String("request_id", requestID.String()),
		zap.String("actor_id", actorID.String()),
	)

	go s.notify.Notify(context.WithoutCancel(ctx), notifier.EventRequestCanceled, requestID,
		[]uuid.UUID{bookingRequest.TravelerID, bookingRequest.GuideID})

	return nil
}

func (s *requestService) GetRequest(ctx context.Context, actorID, requestID uuid.UUID) (*response.BookingRequestResponse, error) {
	bookingRequest, err := s.repo.Request.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if bookingRequest == nil {
		return nil, apperror.NotFound("Booking request not found")
	}

	if actorID != bookingRequest.TravelerID && actorID != bookingRequest.GuideID {
		return nil, apperror.Forbidden("Only a party to the request may view it")
	}

	// Deadlines are evaluated lazily on read so a stale sweep never shows
	// an actionable status that is already past its deadline.
	if stale := s.lazySweep(ctx, bookingRequest); stale {
		return s.fetchResponse(ctx, requestID)
	}

	resp := response.BookingRequestToResponse(bookingRequest)
	return &resp, nil
}

func (s *requestService) GetTravelerRequests(ctx context.Context, travelerID uuid.UUID, page *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingRequestResponse], error) {
	requests, err := s.repo.Request.FindByTravelerID(ctx, travelerID, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Request.CountByTravelerID(ctx, travelerID)
	if err != nil {
		return nil, err
	}

	return s.paginate(requests, page, total), nil
}

func (s *requestService) GetGuideRequests(ctx context.Context, guideID uuid.UUID, page *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingRequestResponse], error) {
	requests, err := s.repo.Request.FindByGuideID(ctx, guideID, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Request.CountByGuideID(ctx, guideID)
	if err != nil {
		return nil, err
	}

	return s.paginate(requests, page, total), nil
}

func (s *requestService) ExpireSweep(ctx context.Context, now time.Time) error {
	expired, err := s.repo.Request.ExpirePending(ctx, now)
	if err != nil {
		return err
	}

	unpaid, err := s.repo.Request.ExpireUnpaid(ctx, now)
	if err != nil {
		return err
	}

	metrics.AddSweepTransitions("request_expired", expired)
	metrics.AddSweepTransitions("payment_expired", unpaid)

	if expired > 0 || unpaid > 0 {
		s.log.Info("Expiry sweep advanced requests",
			zap.Int64("expired", expired),
			zap.Int64("payment_expired", unpaid),
		)
	}

	return nil
}

// lazySweep applies the deadline transitions relevant to one request and
// reports whether its status is stale.
func (s *requestService) lazySweep(ctx context.Context, bookingRequest *entity.BookingRequest) bool {
	now := s.now()

	switch bookingRequest.Status {
	case entity.RequestStatusPending:
		if !now.Before(bookingRequest.ExpiresAt) {
			if _, err := s.repo.Request.ExpirePending(ctx, now); err != nil {
				s.log.Error("Lazy expiry failed", zap.Error(err))
			}
			return true
		}
	case entity.RequestStatusAccepted:
		if bookingRequest.PaymentDeadline != nil && !now.Before(*bookingRequest.PaymentDeadline) {
			if _, err := s.repo.Request.ExpireUnpaid(ctx, now); err != nil {
				s.log.Error("Lazy payment expiry failed", zap.Error(err))
			}
			return true
		}
	}

	return false
}

func (s *requestService) durationHours(duration entity.TourDuration) int {
	if duration == entity.DurationFullDay {
		return s.config.Booking.FullDayHours
	}
	return s.config.Booking.HalfDayHours
}

func (s *requestService) fetchResponse(ctx context.Context, requestID uuid.UUID) (*response.BookingRequestResponse, error) {
	bookingRequest, err := s.repo.Request.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if bookingRequest == nil {
		return nil, apperror.NotFound("Booking request not found")
	}

	resp := response.BookingRequestToResponse(bookingRequest)
	return &resp, nil
}

func (s *requestService) paginate(requests []*entity.BookingRequest, page *request.PaginatedRequest, total int64) *response.PaginatedResponse[response.BookingRequestResponse] {
	items := make([]response.BookingRequestResponse, len(requests))
	for i, req := range requests {
		items[i] = response.BookingRequestToResponse(req)
	}

	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}

	return response.NewPaginatedResponse(items, pageNum, page.Limit(), total)
}
