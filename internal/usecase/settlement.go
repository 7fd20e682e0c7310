package usecase

import "travelwithstudents/internal/data/entity"

// Distribution is the payout split produced for a settled booking.
type Distribution struct {
	GuidePayout    float64
	TravelerRefund float64
	PlatformFee    float64
	// Released is true when escrow goes to the guide, false for a refund.
	Released bool
}

// Settle maps both parties' attendance outcomes to a payout split. It is a
// pure function of its inputs.
//
// A guide no-show dominates: it always forces a full refund regardless of
// what the traveler reported, so the traveler is never charged for a meeting
// the guide skipped. A traveler no-show does not shield the traveler from
// the charge when the guide showed up.
func Settle(guide, traveler entity.AttendanceOutcome, amount, platformFeeRate float64) Distribution {
	if guide == entity.OutcomeNoShow {
		return Distribution{
			TravelerRefund: amount,
			Released:       false,
		}
	}

	fee := amount * platformFeeRate
	return Distribution{
		GuidePayout: amount - fee,
		PlatformFee: fee,
		Released:    true,
	}
}
