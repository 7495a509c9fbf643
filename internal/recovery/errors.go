package recovery

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrCodeMismatch      = errors.New("code mismatch")
	ErrTooManyAttempts   = errors.New("too many failed attempts")
	ErrDeliveryFailed    = errors.New("code delivery failed")
	ErrInvalidCredential = errors.New("invalid credential")
)

// AttemptFailError reports a wrong code together with the number of
// verification attempts left on the challenge.
type AttemptFailError struct {
	AttemptsLeft int
}

func (e *AttemptFailError) Error() string {
	return fmt.Sprintf("code mismatch, %d attempts left", e.AttemptsLeft)
}

func (e *AttemptFailError) Unwrap() error {
	return ErrCodeMismatch
}

func NewAttemptFailError(attemptsLeft int) *AttemptFailError {
	return &AttemptFailError{
		AttemptsLeft: attemptsLeft,
	}
}
