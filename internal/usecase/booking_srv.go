package usecase

import (
	"context"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/dto/request"
	"travelwithstudents/internal/dto/response"
	"travelwithstudents/internal/notifier"
	"travelwithstudents/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingService interface {
	GetBooking(ctx context.Context, actorID, bookingID uuid.UUID) (*response.BookingResponse, error)
	GetPartyBookings(ctx context.Context, partyID uuid.UUID, page *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error)

	// CancelAndRefund cancels a confirmed unsettled booking and returns
	// the full escrow amount to the traveler.
	CancelAndRefund(ctx context.Context, actorID, bookingID uuid.UUID, req *request.CancelBookingRequest) (*response.RefundResponse, error)
}

type bookingService struct {
	repo   *repository.Repository
	escrow EscrowService
	notify notifier.Notifier
	log    *zap.Logger
}

func NewBookingService(repo *repository.Repository, escrow EscrowService, notify notifier.Notifier, log *zap.Logger) BookingService {
	return &bookingService{
		repo:   repo,
		escrow: escrow,
		notify: notify,
		log:    log.With(zap.String("service", "booking")),
	}
}

func (s *bookingService) GetBooking(ctx context.Context, actorID, bookingID uuid.UUID) (*response.BookingResponse, error) {
	booking, err := s.requireParty(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}

	resp := response.BookingToResponse(booking)

	payment, err := s.repo.Payment.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if payment != nil {
		paymentResp := response.PaymentToResponse(payment)
		resp.Payment = &paymentResp
	}

	records, err := s.repo.Attendance.FindByBookingID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		resp.Attendance = append(resp.Attendance, response.AttendanceToResponse(record))
	}

	return &resp, nil
}

func (s *bookingService) GetPartyBookings(ctx context.Context, partyID uuid.UUID, page *request.PaginatedRequest) (*response.PaginatedResponse[response.BookingResponse], error) {
	bookings, err := s.repo.Booking.FindByPartyID(ctx, partyID, page.Limit(), page.Offset())
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Booking.CountByPartyID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	items := make([]response.BookingResponse, len(bookings))
	for i, booking := range bookings {
		items[i] = response.BookingToResponse(booking)
	}

	pageNum := page.Page
	if pageNum < 1 {
		pageNum = 1
	}

	return response.NewPaginatedResponse(items, pageNum, page.Limit(), total), nil
}

func (s *bookingService) CancelAndRefund(ctx context.Context, actorID, bookingID uuid.UUID, req *request.CancelBookingRequest) (*response.RefundResponse, error) {
	booking, err := s.requireParty(ctx, actorID, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.Settled {
		return nil, apperror.State("Booking already settled, cannot cancel")
	}

	ok, err := s.repo.Booking.MarkCancelled(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.Newf(apperror.KindState,
			"Booking is %s, cannot cancel", booking.Status)
	}

	reason := "booking cancelled"
	if req != nil && req.Reason != nil {
		reason = *req.Reason
	}

	payment, err := s.escrow.Refund(ctx, bookingID, reason)
	if err != nil {
		return nil, err
	}

	s.log.Info("Booking cancelled and refunded",
		zap.String("booking_id", bookingID.String()),
		zap.String("actor_id", actorID.String()),
		zap.Float64("refund_amount", payment.Amount),
	)

	go s.notify.Notify(context.WithoutCancel(ctx), notifier.EventBookingRefunded, bookingID,
		[]uuid.UUID{booking.TravelerID, booking.GuideID})

	return &response.RefundResponse{
		BookingID:      bookingID.String(),
		EscrowStatus:   entity.EscrowStatusRefunded,
		TravelerRefund: payment.Amount,
	}, nil
}

func (s *bookingService) requireParty(ctx context.Context, actorID, bookingID uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, apperror.NotFound("Booking not found")
	}

	if actorID != booking.TravelerID && actorID != booking.GuideID {
		return nil, apperror.Forbidden("Only a party to the booking may access it")
	}

	return booking, nil
}
