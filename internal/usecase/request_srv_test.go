package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/dto/request"
	"travelwithstudents/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createRequestPayload(guideID uuid.UUID) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		GuideID:     guideID.String(),
		BookingDate: time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		BookingTime: "10:00",
		Duration:    string(entity.DurationHalfDay),
	}
}

func TestCreateRequest(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	created, err := f.service.Request.CreateRequest(ctx, traveler.ID, createRequestPayload(guide.ID))
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusPending, created.Status)
	assert.Equal(t, 1, created.ParticipantCount, "participant count defaults to one")
	assert.WithinDuration(t, time.Now().Add(72*time.Hour), created.ExpiresAt, time.Minute)
	assert.Nil(t, created.EstimatedPrice, "no price before the guide accepts")
}

func TestCreateRequestRejectsUnknownGuide(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)

	_, err := f.service.Request.CreateRequest(context.Background(), traveler.ID, createRequestPayload(uuid.New()))
	assert.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestCreateRequestRejectsSelfBooking(t *testing.T) {
	f := newFixture()
	guide := f.addUser(entity.RoleGuide, 25)

	_, err := f.service.Request.CreateRequest(context.Background(), guide.ID, createRequestPayload(guide.ID))
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestCreateRequestRejectsPastDate(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)

	payload := createRequestPayload(guide.ID)
	payload.BookingDate = time.Now().AddDate(0, 0, -1).Format("2006-01-02")

	_, err := f.service.Request.CreateRequest(context.Background(), traveler.ID, payload)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

// pendingRequest creates a request and returns its parsed ID.
func pendingRequest(t *testing.T, f *fixture, traveler, guide *entity.User) uuid.UUID {
	t.Helper()
	created, err := f.service.Request.CreateRequest(context.Background(), traveler.ID, createRequestPayload(guide.ID))
	require.NoError(t, err)
	return uuid.MustParse(created.ID)
}

func acceptedRequest(t *testing.T, f *fixture, traveler, guide *entity.User) uuid.UUID {
	t.Helper()
	requestID := pendingRequest(t, f, traveler, guide)
	_, err := f.service.Request.Respond(context.Background(), guide.ID, requestID, &request.RespondRequest{Action: "accept"})
	require.NoError(t, err)
	return requestID
}

func TestRespondAcceptPricesFromHourlyRate(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	payload := createRequestPayload(guide.ID)
	payload.Duration = string(entity.DurationFullDay)
	created, err := f.service.Request.CreateRequest(ctx, traveler.ID, payload)
	require.NoError(t, err)
	requestID := uuid.MustParse(created.ID)

	accepted, err := f.service.Request.Respond(ctx, guide.ID, requestID, &request.RespondRequest{Action: "accept"})
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.EstimatedPrice)
	assert.InDelta(t, 200, *accepted.EstimatedPrice, 1e-9, "full day is eight hours at the guide's rate")
	require.NotNil(t, accepted.PaymentDeadline)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), *accepted.PaymentDeadline, time.Minute)
}

func TestRespondReject(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := pendingRequest(t, f, traveler, guide)

	rejected, err := f.service.Request.Respond(ctx, guide.ID, requestID, &request.RespondRequest{Action: "reject"})
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusRejected, rejected.Status)
	assert.Nil(t, rejected.EstimatedPrice)
}

func TestRespondOnlyRequestedGuide(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	otherGuide := f.addUser(entity.RoleGuide, 30)

	requestID := pendingRequest(t, f, traveler, guide)

	_, err := f.service.Request.Respond(context.Background(), otherGuide.ID, requestID, &request.RespondRequest{Action: "accept"})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestRespondExpiredRequest(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := pendingRequest(t, f, traveler, guide)

	svc := f.service.Request.(*requestService)
	svc.now = func() time.Time { return time.Now().Add(73 * time.Hour) }

	_, err := svc.Respond(ctx, guide.ID, requestID, &request.RespondRequest{Action: "accept"})
	assert.True(t, apperror.Is(err, apperror.KindExpired))

	// The lazy sweep must have advanced the stored status too.
	stored, err := f.requests.FindByID(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, stored.Status)
}

func TestRespondTwice(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := pendingRequest(t, f, traveler, guide)

	_, err := f.service.Request.Respond(ctx, guide.ID, requestID, &request.RespondRequest{Action: "reject"})
	require.NoError(t, err)

	_, err = f.service.Request.Respond(ctx, guide.ID, requestID, &request.RespondRequest{Action: "accept"})
	assert.True(t, apperror.Is(err, apperror.KindState))
}

func TestPayCreatesBookingWithHeldEscrow(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := acceptedRequest(t, f, traveler, guide)

	paid, err := f.service.Request.Pay(ctx, traveler.ID, requestID, &request.PayRequest{PaymentMethod: "card"})
	require.NoError(t, err)

	assert.Equal(t, entity.RequestStatusPaid, paid.Request.Status)
	require.NotNil(t, paid.Request.BookingID)
	assert.Equal(t, entity.BookingStatusConfirmed, paid.Booking.Status)
	assert.InDelta(t, 100, paid.Booking.Price, 1e-9)

	require.NotNil(t, paid.Booking.Payment)
	assert.Equal(t, entity.EscrowStatusHeld, paid.Booking.Payment.EscrowStatus)

	require.NotNil(t, f.db.lastTx)
	assert.True(t, f.db.lastTx.committed)
	assert.False(t, f.db.lastTx.rolledBack)
}

func TestPayOnlyRequestingTraveler(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	other := f.addUser(entity.RoleTraveler, 0)

	requestID := acceptedRequest(t, f, traveler, guide)

	_, err := f.service.Request.Pay(context.Background(), other.ID, requestID, &request.PayRequest{PaymentMethod: "card"})
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestPayAfterDeadline(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := acceptedRequest(t, f, traveler, guide)

	svc := f.service.Request.(*requestService)
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err := svc.Pay(ctx, traveler.ID, requestID, &request.PayRequest{PaymentMethod: "card"})
	assert.True(t, apperror.Is(err, apperror.KindExpired))

	stored, err := f.requests.FindByID(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPaymentExpired, stored.Status)
}

func TestPayRollsBackOnLostTransition(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := acceptedRequest(t, f, traveler, guide)

	// Simulate the PAID transition losing to a concurrent cancel.
	f.requests.failMarkPaid = true

	_, err := f.service.Request.Pay(ctx, traveler.ID, requestID, &request.PayRequest{PaymentMethod: "card"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))

	require.NotNil(t, f.db.lastTx)
	assert.False(t, f.db.lastTx.committed)
	assert.True(t, f.db.lastTx.rolledBack)
}

func TestCancelPendingRequest(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := pendingRequest(t, f, traveler, guide)

	require.NoError(t, f.service.Request.Cancel(ctx, traveler.ID, requestID))

	stored, err := f.requests.FindByID(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusCancelled, stored.Status)
}

func TestCancelRejectsThirdParty(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	stranger := f.addUser(entity.RoleTraveler, 0)

	requestID := pendingRequest(t, f, traveler, guide)

	err := f.service.Request.Cancel(context.Background(), stranger.ID, requestID)
	assert.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestCancelPaidRequest(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := acceptedRequest(t, f, traveler, guide)
	_, err := f.service.Request.Pay(ctx, traveler.ID, requestID, &request.PayRequest{PaymentMethod: "card"})
	require.NoError(t, err)

	err = f.service.Request.Cancel(ctx, traveler.ID, requestID)
	assert.True(t, apperror.Is(err, apperror.KindState),
		"a paid request is cancelled through its booking, not the request")
}

func TestCancelRespondRaceSingleWinner(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture()
		traveler := f.addUser(entity.RoleTraveler, 0)
		guide := f.addUser(entity.RoleGuide, 25)
		ctx := context.Background()

		requestID := pendingRequest(t, f, traveler, guide)

		var wg sync.WaitGroup
		var respondErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, respondErr = f.service.Request.Respond(ctx, guide.ID, requestID, &request.RespondRequest{Action: "accept"})
		}()
		go func() {
			defer wg.Done()
			cancelErr = f.service.Request.Cancel(ctx, traveler.ID, requestID)
		}()
		wg.Wait()

		stored, err := f.requests.FindByID(ctx, requestID)
		require.NoError(t, err)

		// Cancel is also legal after accept, so CANCELLED can follow a
		// successful respond. What can never happen: a stale PENDING status,
		// or an ACCEPTED request whose cancel reported success.
		switch stored.Status {
		case entity.RequestStatusAccepted:
			assert.NoError(t, respondErr)
			assert.Error(t, cancelErr)
		case entity.RequestStatusCancelled:
			assert.NoError(t, cancelErr)
			if respondErr != nil {
				kind := apperror.KindOf(respondErr)
				assert.Contains(t, []apperror.Kind{apperror.KindState, apperror.KindConflict}, kind)
			}
		default:
			t.Fatalf("request left in %s after the race", stored.Status)
		}
	}
}

func TestCancelMidPaymentRefundsEscrow(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	// A request parked in PAYMENT_PENDING with its escrow already held.
	booking := f.addConfirmedBooking(traveler, guide, 100)
	now := time.Now()
	deadline := now.Add(24 * time.Hour)
	price := 100.0
	req := &entity.BookingRequest{
		Base:            entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		TravelerID:      traveler.ID,
		GuideID:         guide.ID,
		BookingDate:     now.AddDate(0, 0, 7),
		BookingTime:     "10:00",
		Duration:        entity.DurationHalfDay,
		Status:          entity.RequestStatusPaymentPending,
		ExpiresAt:       now.Add(72 * time.Hour),
		PaymentDeadline: &deadline,
		EstimatedPrice:  &price,
		BookingID:       &booking.ID,
	}
	require.NoError(t, f.requests.Create(ctx, req))

	require.NoError(t, f.service.Request.Cancel(ctx, traveler.ID, req.ID))

	payment, err := f.payments.FindByBookingID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.EscrowStatusRefunded, payment.EscrowStatus)

	cancelled, err := f.bookings.FindByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, cancelled.Status)
}

func TestExpireSweepIsIdempotent(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	pendingID := pendingRequest(t, f, traveler, guide)
	acceptedID := acceptedRequest(t, f, traveler, guide)

	sweepTime := time.Now().Add(80 * time.Hour)
	require.NoError(t, f.service.Request.ExpireSweep(ctx, sweepTime))

	storedPending, err := f.requests.FindByID(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, storedPending.Status)

	storedAccepted, err := f.requests.FindByID(ctx, acceptedID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusPaymentExpired, storedAccepted.Status)

	// Running the same sweep again changes nothing.
	require.NoError(t, f.service.Request.ExpireSweep(ctx, sweepTime))

	storedPending, err = f.requests.FindByID(ctx, pendingID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, storedPending.Status)
}

func TestGetRequestLazyExpiry(t *testing.T) {
	f := newFixture()
	traveler := f.addUser(entity.RoleTraveler, 0)
	guide := f.addUser(entity.RoleGuide, 25)
	ctx := context.Background()

	requestID := pendingRequest(t, f, traveler, guide)

	svc := f.service.Request.(*requestService)
	svc.now = func() time.Time { return time.Now().Add(73 * time.Hour) }

	got, err := svc.GetRequest(ctx, traveler.ID, requestID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusExpired, got.Status)
}
