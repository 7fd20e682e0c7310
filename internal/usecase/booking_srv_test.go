package usecase

import (
	"context"
	"testing"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/dto/request"
	"travelwithstudents/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBookingIncludesPaymentAndAttendance(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	booking := f.addConfirmedBooking(traveler, guide, 100)
	ctx := context.Background()

	_, err := f.service.Attendance.ReportManual(ctx, guide.ID, booking.ID, entity.OutcomeConfirmed)
	require.NoError(t, err)

	got, err := f.service.Booking.GetBooking(ctx, traveler.ID, booking.ID)
	require.NoError(t, err)

	require.NotNil(t, got.Payment)
	assert.Equal(t, entity.EscrowStatusHeld, got.Payment.EscrowStatus)
	require.Len(t, got.Attendance, 1)
	assert.Equal(t, entity.PartyGuide, got.Attendance[0].Role)
}

func TestGetBookingRejectsThirdParty(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	stranger := f.addUser(entity.RoleTraveler, 0)
	booking := f.addConfirmedBooking(traveler, guide, 100)

	_, err := f.service.Booking.GetBooking(context.Background(), stranger.ID, booking.ID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestCancelAndRefund(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	booking := f.addConfirmedBooking(traveler, guide, 100)
	ctx := context.Background()

	refund, err := f.service.Booking.CancelAndRefund(ctx, traveler.ID, booking.ID, &request.CancelBookingRequest{})
	require.NoError(t, err)

	assert.Equal(t, entity.EscrowStatusRefunded, refund.EscrowStatus)
	assert.InDelta(t, 100, refund.TravelerRefund, 1e-9)

	cancelled, err := f.bookings.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
}

func TestCancelAndRefundRejectsSettledBooking(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	booking := f.addConfirmedBooking(traveler, guide, 100)
	ctx := context.Background()

	_, err := f.service.Attendance.ReportManual(ctx, guide.ID, booking.ID, entity.OutcomeConfirmed)
	require.NoError(t, err)
	_, err = f.service.Attendance.ReportManual(ctx, traveler.ID, booking.ID, entity.OutcomeConfirmed)
	require.NoError(t, err)

	_, err = f.service.Booking.CancelAndRefund(ctx, traveler.ID, booking.ID, nil)
	assert.True(t, apperror.Is(err, apperror.KindState))
}

func TestCancelAndRefundTwice(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	booking := f.addConfirmedBooking(traveler, guide, 100)
	ctx := context.Background()

	_, err := f.service.Booking.CancelAndRefund(ctx, traveler.ID, booking.ID, nil)
	require.NoError(t, err)

	_, err = f.service.Booking.CancelAndRefund(ctx, traveler.ID, booking.ID, nil)
	assert.True(t, apperror.Is(err, apperror.KindState))
}
