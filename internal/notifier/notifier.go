package notifier

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names every status transition the subsystem emits.
type Event string

const (
	EventRequestCreated  Event = "request.created"
	EventRequestAccepted Event = "request.accepted"
	EventRequestRejected Event = "request.rejected"
	EventRequestExpired  Event = "request.expired"
	EventRequestPaid     Event = "request.paid"
	EventRequestCanceled Event = "request.cancelled"
	EventBookingSettled  Event = "booking.settled"
	EventBookingRefunded Event = "booking.refunded"
	EventBookingDisputed Event = "booking.disputed"
	EventProofVerified   Event = "proof.verified"
)

// Notifier is informed of status transitions fire-and-forget. Delivery
// failures never fail the triggering operation.
type Notifier interface {
	Notify(ctx context.Context, event Event, subjectID uuid.UUID, recipients []uuid.UUID)
}

type logNotifier struct {
	log *zap.Logger
}

// NewLogNotifier returns a Notifier that records transitions in the service
// log. A push/email transport can replace it behind the same interface.
func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log.With(zap.String("component", "notifier"))}
}

func (n *logNotifier) Notify(_ context.Context, event Event, subjectID uuid.UUID, recipients []uuid.UUID) {
	ids := make([]string, len(recipients))
	for i, r := range recipients {
		ids[i] = r.String()
	}

	n.log.Info("Notification dispatched",
		zap.String("event", string(event)),
		zap.String("subject_id", subjectID.String()),
		zap.Strings("recipients", ids),
	)
}
