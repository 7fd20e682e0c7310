package usecase

import (
	"testing"

	"travelwithstudents/internal/data/entity"

	"github.com/stretchr/testify/assert"
)

func TestSettle(t *testing.T) {
	const amount = 100.0
	const feeRate = 0.10

	tests := []struct {
		name     string
		guide    entity.AttendanceOutcome
		traveler entity.AttendanceOutcome
		want     Distribution
	}{
		{
			name:     "both confirmed releases to guide minus fee",
			guide:    entity.OutcomeConfirmed,
			traveler: entity.OutcomeConfirmed,
			want: Distribution{
				GuidePayout: 90,
				PlatformFee: 10,
				Released:    true,
			},
		},
		{
			name:     "guide no-show refunds traveler in full",
			guide:    entity.OutcomeNoShow,
			traveler: entity.OutcomeConfirmed,
			want: Distribution{
				TravelerRefund: 100,
				Released:       false,
			},
		},
		{
			name:     "traveler no-show still pays the guide",
			guide:    entity.OutcomeConfirmed,
			traveler: entity.OutcomeNoShow,
			want: Distribution{
				GuidePayout: 90,
				PlatformFee: 10,
				Released:    true,
			},
		},
		{
			name:     "guide no-show dominates a mutual no-show",
			guide:    entity.OutcomeNoShow,
			traveler: entity.OutcomeNoShow,
			want: Distribution{
				TravelerRefund: 100,
				Released:       false,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Settle(tt.guide, tt.traveler, amount, feeRate)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettleZeroFeeRate(t *testing.T) {
	got := Settle(entity.OutcomeConfirmed, entity.OutcomeConfirmed, 250, 0)

	assert.Equal(t, 250.0, got.GuidePayout)
	assert.Equal(t, 0.0, got.PlatformFee)
	assert.True(t, got.Released)
}

func TestSettleIsPure(t *testing.T) {
	first := Settle(entity.OutcomeConfirmed, entity.OutcomeNoShow, 80, 0.10)
	second := Settle(entity.OutcomeConfirmed, entity.OutcomeNoShow, 80, 0.10)

	assert.Equal(t, first, second)
}
