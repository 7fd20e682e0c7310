package request

// Coordinates carry no required tag: zero is a valid latitude (equator) and
// longitude (prime meridian), and required rejects float zero values.
type GenerateProofRequest struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

type VerifyProofRequest struct {
	QRData string  `json:"qr_data" validate:"required"`
	Lat    float64 `json:"lat" validate:"latitude"`
	Lng    float64 `json:"lng" validate:"longitude"`
}
