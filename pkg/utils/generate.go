package utils

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

func GenerateSessionToken() uuid.UUID {
	return uuid.New()
}

// GenerateReferenceCode creates a human-readable booking reference.
// Format: TWS-YYYYMMDD-HHMMSS-RANDOM
func GenerateReferenceCode() string {
	rand.New(rand.NewSource(time.Now().UnixNano()))
	now := time.Now()

	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := fmt.Sprintf("%04d", rand.Intn(10000))

	return fmt.Sprintf("TWS-%s-%s-%s", datePart, timePart, randomPart)
}
