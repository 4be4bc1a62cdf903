// Package secrets generates one-time codes and checks time-limited,
// single-use secrets such as password reset OTPs and verification tokens.
package secrets

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/dmitrijs2005/coursecloud/internal/common"
)

// OTPDigits is the length of a generated OTP.
const OTPDigits = 6

var otpSpace = big.NewInt(1_000_000)

// randReader is a seam for tests.
var randReader io.Reader = rand.Reader

// GenerateOTP returns a uniformly random code in 000000..999999, zero padded.
func GenerateOTP() (string, error) {
	n, err := rand.Int(randReader, otpSpace)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}

// Pending is a stored secret awaiting use. A nil Value means nothing is
// pending. A nil ExpiresAt means the secret does not expire by itself.
type Pending struct {
	Value     *string
	ExpiresAt *time.Time
}

// Check validates candidate against the pending secret at time now.
//
// It fails with common.ErrOTPNotRequested when nothing is pending,
// common.ErrOTPExpired when now is past the expiry and common.ErrOTPMismatch
// when the values differ. The comparison runs in constant time. Clearing the
// secret after a successful check is up to the caller.
func Check(p Pending, candidate string, now time.Time) error {
	if p.Value == nil || *p.Value == "" {
		return common.ErrOTPNotRequested
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return common.ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(*p.Value), []byte(candidate)) != 1 {
		return common.ErrOTPMismatch
	}
	return nil
}
