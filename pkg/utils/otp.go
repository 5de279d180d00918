package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"
)

const (
	OTPExpiration = 15 * time.Minute
	OTPDigits     = 6
)

var otpUpperBound = big.NewInt(1_000_000)

// GenerateOTP returns a zero-padded 6-digit code drawn uniformly from [0, 999999].
func GenerateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, otpUpperBound)
	if err != nil {
		return "", fmt.Errorf("failed to generate OTP: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}

// OTPEqual compares two codes in constant time.
func OTPEqual(provided, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(stored)) == 1
}
