package response

import "time"

type ProofResponse struct {
	BookingID string    `json:"booking_id"`
	QRData    string    `json:"qr_data"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

type VerifyProofResponse struct {
	BothConfirmed bool `json:"both_confirmed"`
}
