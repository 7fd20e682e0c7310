package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"travelwithstudents/internal/data/entity"
	"travelwithstudents/internal/data/repository"
	"travelwithstudents/internal/notifier"
	"travelwithstudents/pkg/database"
	"travelwithstudents/pkg/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// In-memory fakes mirroring the repository contracts, including the
// conditional-update semantics the services rely on.

type stubTx struct {
	mu         sync.Mutex
	committed  bool
	rolledBack bool
}

func (t *stubTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *stubTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *stubTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (t *stubTx) Commit(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.committed = true
	return nil
}

func (t *stubTx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

type stubDB struct {
	mu     sync.Mutex
	lastTx *stubTx
}

func (db *stubDB) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (db *stubDB) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (db *stubDB) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}
func (db *stubDB) Ping(context.Context) error { return nil }
func (db *stubDB) Close()                     {}

func (db *stubDB) Begin(context.Context) (database.Tx, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.lastTx = &stubTx{}
	return db.lastTx, nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

type fakeSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]*entity.Session
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*entity.Session)}
}

func (r *fakeSessionRepo) Create(_ context.Context, session *entity.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *session
	r.sessions[session.Token.String()] = &copied
	return nil
}

func (r *fakeSessionRepo) FindValidSession(_ context.Context, token string) (*entity.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[token]
	if !ok || session.RevokedAt != nil || !time.Now().Before(session.ExpiresAt) {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Revoke(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.sessions[token]; ok {
		now := time.Now()
		session.RevokedAt = &now
	}
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*entity.BookingRequest

	failMarkPaid bool
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]*entity.BookingRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *entity.BookingRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *req
	r.requests[req.ID] = &copied
	return nil
}

func (r *fakeRequestRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.BookingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *req
	return &copied, nil
}

func (r *fakeRequestRepo) FindByTravelerID(_ context.Context, travelerID uuid.UUID, limit, offset int) ([]*entity.BookingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.BookingRequest
	for _, req := range r.requests {
		if req.TravelerID == travelerID {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) CountByTravelerID(_ context.Context, travelerID uuid.UUID) (int64, error) {
	reqs, _ := r.FindByTravelerID(context.Background(), travelerID, 0, 0)
	return int64(len(reqs)), nil
}

func (r *fakeRequestRepo) FindByGuideID(_ context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.BookingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.BookingRequest
	for _, req := range r.requests {
		if req.GuideID == guideID {
			copied := *req
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeRequestRepo) CountByGuideID(_ context.Context, guideID uuid.UUID) (int64, error) {
	reqs, _ := r.FindByGuideID(context.Background(), guideID, 0, 0)
	return int64(len(reqs)), nil
}

func (r *fakeRequestRepo) MarkResponded(_ context.Context, id uuid.UUID, status entity.RequestStatus,
	guideResponse *string, estimatedPrice *float64, paymentDeadline *time.Time, respondedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok || req.Status != entity.RequestStatusPending {
		return false, nil
	}
	req.Status = status
	req.GuideResponse = guideResponse
	req.EstimatedPrice = estimatedPrice
	req.PaymentDeadline = paymentDeadline
	req.RespondedAt = &respondedAt
	return true, nil
}

func (r *fakeRequestRepo) MarkPaid(_ context.Context, _ database.Querier, id, bookingID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkPaid {
		return false, nil
	}
	req, ok := r.requests[id]
	if !ok || req.Status != entity.RequestStatusAccepted {
		return false, nil
	}
	req.Status = entity.RequestStatusPaid
	req.BookingID = &bookingID
	return true, nil
}

func (r *fakeRequestRepo) MarkCancelled(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return false, nil
	}
	switch req.Status {
	case entity.RequestStatusPending, entity.RequestStatusAccepted, entity.RequestStatusPaymentPending:
		req.Status = entity.RequestStatusCancelled
		return true, nil
	}
	return false, nil
}

func (r *fakeRequestRepo) ExpirePending(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, req := range r.requests {
		if req.Status == entity.RequestStatusPending && !now.Before(req.ExpiresAt) {
			req.Status = entity.RequestStatusExpired
			count++
		}
	}
	return count, nil
}

func (r *fakeRequestRepo) ExpireUnpaid(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, req := range r.requests {
		if req.Status == entity.RequestStatusAccepted &&
			req.PaymentDeadline != nil && !now.Before(*req.PaymentDeadline) {
			req.Status = entity.RequestStatusPaymentExpired
			count++
		}
	}
	return count, nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]*entity.Booking

	// payments backs FindSettledWithHeldEscrow, which joins the two
	// tables in SQL.
	payments *fakePaymentRepo
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[uuid.UUID]*entity.Booking)}
}

func (r *fakeBookingRepo) Create(_ context.Context, _ database.Querier, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *booking
	r.bookings[booking.ID] = &copied
	return nil
}

func (r *fakeBookingRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (r *fakeBookingRepo) FindByPartyID(_ context.Context, partyID uuid.UUID, limit, offset int) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Booking
	for _, booking := range r.bookings {
		if booking.TravelerID == partyID || booking.GuideID == partyID {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) CountByPartyID(_ context.Context, partyID uuid.UUID) (int64, error) {
	bookings, _ := r.FindByPartyID(context.Background(), partyID, 0, 0)
	return int64(len(bookings)), nil
}

func (r *fakeBookingRepo) TrySettle(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok || booking.Settled {
		return false, nil
	}
	booking.Settled = true
	booking.Status = entity.BookingStatusCompleted
	return true, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, id uuid.UUID, status entity.BookingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if booking, ok := r.bookings[id]; ok {
		booking.Status = status
	}
	return nil
}

func (r *fakeBookingRepo) MarkCancelled(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	booking, ok := r.bookings[id]
	if !ok || booking.Settled {
		return false, nil
	}
	switch booking.Status {
	case entity.BookingStatusPending, entity.BookingStatusConfirmed:
		booking.Status = entity.BookingStatusCancelled
		return true, nil
	}
	return false, nil
}

func (r *fakeBookingRepo) FindSettledWithHeldEscrow(ctx context.Context) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Booking
	for _, booking := range r.bookings {
		if !booking.Settled {
			continue
		}
		payment, err := r.payments.FindByBookingID(ctx, booking.ID)
		if err != nil {
			return nil, err
		}
		if payment != nil && payment.EscrowStatus == entity.EscrowStatusHeld {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeBookingRepo) FindStaleUnsettled(_ context.Context, cutoff time.Time) ([]*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Booking
	for _, booking := range r.bookings {
		if booking.Status == entity.BookingStatusConfirmed && !booking.Settled &&
			booking.BookingDate.Before(cutoff) {
			copied := *booking
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments map[uuid.UUID]*entity.Payment

	releaseCalls    int
	refundCalls     int
	failNextRelease bool
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*entity.Payment)}
}

func (r *fakePaymentRepo) Create(_ context.Context, _ database.Querier, payment *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *payment
	r.payments[payment.BookingID] = &copied
	return nil
}

func (r *fakePaymentRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[bookingID]
	if !ok {
		return nil, nil
	}
	copied := *payment
	return &copied, nil
}

func (r *fakePaymentRepo) Release(_ context.Context, bookingID uuid.UUID, guidePayout, travelerRefund, platformFee float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseCalls++
	if r.failNextRelease {
		r.failNextRelease = false
		return false, errors.New("payment provider unavailable")
	}
	payment, ok := r.payments[bookingID]
	if !ok || payment.EscrowStatus != entity.EscrowStatusHeld {
		return false, nil
	}
	now := time.Now()
	payment.EscrowStatus = entity.EscrowStatusReleased
	payment.GuidePayout = &guidePayout
	payment.TravelerRefund = &travelerRefund
	payment.PlatformFee = &platformFee
	payment.ReleasedAt = &now
	return true, nil
}

func (r *fakePaymentRepo) Refund(_ context.Context, bookingID uuid.UUID, guidePayout, travelerRefund, platformFee float64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refundCalls++
	payment, ok := r.payments[bookingID]
	if !ok || payment.EscrowStatus != entity.EscrowStatusHeld {
		return false, nil
	}
	now := time.Now()
	payment.EscrowStatus = entity.EscrowStatusRefunded
	payment.GuidePayout = &guidePayout
	payment.TravelerRefund = &travelerRefund
	payment.PlatformFee = &platformFee
	payment.RefundedAt = &now
	return true, nil
}

func (r *fakePaymentRepo) MarkDisputed(_ context.Context, bookingID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	payment, ok := r.payments[bookingID]
	if !ok || payment.EscrowStatus != entity.EscrowStatusHeld {
		return false, nil
	}
	payment.EscrowStatus = entity.EscrowStatusDisputed
	return true, nil
}

// fakeAttendanceRepo checks the settled flag of the owning booking on every
// upsert, matching the freeze guard in the SQL implementation.
type fakeAttendanceRepo struct {
	mu       sync.Mutex
	records  map[string]*entity.AttendanceRecord
	bookings *fakeBookingRepo
}

func newFakeAttendanceRepo(bookings *fakeBookingRepo) *fakeAttendanceRepo {
	return &fakeAttendanceRepo{
		records:  make(map[string]*entity.AttendanceRecord),
		bookings: bookings,
	}
}

func attendanceKey(bookingID uuid.UUID, role entity.PartyRole) string {
	return bookingID.String() + "|" + string(role)
}

func (r *fakeAttendanceRepo) Upsert(_ context.Context, record *entity.AttendanceRecord) (bool, error) {
	r.bookings.mu.Lock()
	booking, ok := r.bookings.bookings[record.BookingID]
	settled := ok && booking.Settled
	r.bookings.mu.Unlock()
	if !ok || settled {
		return false, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *record
	r.records[attendanceKey(record.BookingID, record.Role)] = &copied
	return true, nil
}

func (r *fakeAttendanceRepo) FindByBookingID(_ context.Context, bookingID uuid.UUID) ([]*entity.AttendanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.AttendanceRecord
	for _, record := range r.records {
		if record.BookingID == bookingID {
			copied := *record
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeProofRepo struct {
	mu     sync.Mutex
	proofs map[uuid.UUID]*entity.MeetingProof
}

func newFakeProofRepo() *fakeProofRepo {
	return &fakeProofRepo{proofs: make(map[uuid.UUID]*entity.MeetingProof)}
}

func (r *fakeProofRepo) Create(_ context.Context, proof *entity.MeetingProof) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *proof
	r.proofs[proof.ID] = &copied
	return nil
}

func (r *fakeProofRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.MeetingProof, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proof, ok := r.proofs[id]
	if !ok {
		return nil, nil
	}
	copied := *proof
	return &copied, nil
}

func (r *fakeProofRepo) MarkUsed(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	proof, ok := r.proofs[id]
	if !ok || proof.Used {
		return false, nil
	}
	proof.Used = true
	return true, nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notifier.Event
}

func (n *fakeNotifier) Notify(_ context.Context, event notifier.Event, _ uuid.UUID, _ []uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

// fixture wires a full Service on top of the in-memory fakes.
type fixture struct {
	db         *stubDB
	users      *fakeUserRepo
	sessions   *fakeSessionRepo
	requests   *fakeRequestRepo
	bookings   *fakeBookingRepo
	payments   *fakePaymentRepo
	attendance *fakeAttendanceRepo
	proofs     *fakeProofRepo
	notify     *fakeNotifier
	config     *utils.Config
	service    *Service
}

func newFixture() *fixture {
	f := &fixture{
		db:       &stubDB{},
		users:    newFakeUserRepo(),
		sessions: newFakeSessionRepo(),
		requests: newFakeRequestRepo(),
		bookings: newFakeBookingRepo(),
		payments: newFakePaymentRepo(),
		proofs:   newFakeProofRepo(),
		notify:   &fakeNotifier{},
		config: &utils.Config{
			Session: utils.SessionConfig{ExpiryHours: 24},
			Booking: utils.BookingConfig{
				RequestExpiryHours:   72,
				PaymentDeadlineHours: 24,
				AttendanceGraceHours: 72,
				PlatformFeeRate:      0.10,
				HalfDayHours:         4,
				FullDayHours:         8,
			},
			Proof: utils.ProofConfig{
				Secret:       "test-secret",
				TTLMinutes:   5,
				RadiusMeters: 150,
			},
		},
	}
	f.bookings.payments = f.payments
	f.attendance = newFakeAttendanceRepo(f.bookings)

	repo := &repository.Repository{
		User:       f.users,
		Session:    f.sessions,
		Request:    f.requests,
		Booking:    f.bookings,
		Payment:    f.payments,
		Attendance: f.attendance,
		Proof:      f.proofs,
	}

	f.service = NewService(f.db, repo, f.config, f.notify, zap.NewNop())
	return f
}

func (f *fixture) addUser(role entity.UserRole, hourlyRate float64) *entity.User {
	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Username:   "user-" + uuid.NewString()[:8],
		Email:      uuid.NewString()[:8] + "@example.com",
		Role:       role,
		HourlyRate: hourlyRate,
		IsActive:   true,
	}
	_ = f.users.Create(context.Background(), user)
	return user
}

func (f *fixture) addConfirmedBooking(traveler, guide *entity.User, price float64) *entity.Booking {
	now := time.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ReferenceNo: utils.GenerateReferenceCode(),
		TravelerID:  traveler.ID,
		GuideID:     guide.ID,
		BookingDate: now,
		BookingTime: "10:00",
		Duration:    entity.DurationHalfDay,
		Price:       price,
		Status:      entity.BookingStatusConfirmed,
	}
	_ = f.bookings.Create(context.Background(), nil, booking)

	payment := &entity.Payment{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:     booking.ID,
		Amount:        price,
		Currency:      "USD",
		PaymentMethod: "card",
		Status:        entity.PaymentStatusCompleted,
		EscrowStatus:  entity.EscrowStatusHeld,
		ProcessedAt:   &now,
	}
	_ = f.payments.Create(context.Background(), nil, payment)

	return booking
}
