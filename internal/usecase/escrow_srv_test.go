package usecase

import (
	"context"
	"testing"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEscrowRejectsNonPositiveAmount(t *testing.T) {
	f := newFixture()

	_, err := f.service.Escrow.OpenEscrow(context.Background(), nil, uuid.New(), 0, "card")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestEscrowSettleIsIdempotent(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	booking := f.addConfirmedBooking(traveler, guide, 100)
	ctx := context.Background()

	dist := Distribution{GuidePayout: 90, PlatformFee: 10, Released: true}

	first, err := f.service.Escrow.Settle(ctx, booking.ID, dist)
	require.NoError(t, err)
	assert.Equal(t, dist, *first)

	// The repeat does not touch escrow again; it returns what the first
	// call stored.
	second, err := f.service.Escrow.Settle(ctx, booking.ID, dist)
	require.NoError(t, err)
	assert.Equal(t, *first, *second)

	f.payments.mu.Lock()
	releaseCalls := f.payments.releaseCalls
	f.payments.mu.Unlock()
	assert.Equal(t, 2, releaseCalls, "second call loses the conditional update")

	payment, err := f.payments.FindByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EscrowStatusReleased, payment.EscrowStatus)
}

func TestEscrowSettleOnDisputedFails(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	booking := f.addConfirmedBooking(traveler, guide, 100)
	ctx := context.Background()

	require.NoError(t, f.service.Escrow.MarkDisputed(ctx, booking.ID))

	_, err := f.service.Escrow.Settle(ctx, booking.ID, Distribution{TravelerRefund: 100})
	assert.True(t, apperror.Is(err, apperror.KindState))
}

func TestEscrowRefundRequiresHeldFunds(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	booking := f.addConfirmedBooking(traveler, guide, 100)
	ctx := context.Background()

	refunded, err := f.service.Escrow.Refund(ctx, booking.ID, "traveler cancelled")
	require.NoError(t, err)
	assert.Equal(t, entity.EscrowStatusRefunded, refunded.EscrowStatus)
	require.NotNil(t, refunded.TravelerRefund)
	assert.InDelta(t, 100, *refunded.TravelerRefund, 1e-9)

	_, err = f.service.Escrow.Refund(ctx, booking.ID, "again")
	assert.True(t, apperror.Is(err, apperror.KindState))
}

func TestEscrowRefundUnknownBooking(t *testing.T) {
	f := newFixture()

	_, err := f.service.Escrow.Refund(context.Background(), uuid.New(), "nothing here")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}
