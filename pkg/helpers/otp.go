package helpers

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// OTPDigits is the length of every one-time code
const OTPDigits = 6

var otpSpace = big.NewInt(1000000)

// GenOTPCode generates a secure random 6-digit OTP code as a zero-padded string,
// drawn uniformly from 000000-999999.
func GenOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, otpSpace)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", OTPDigits, n.Int64()), nil
}
