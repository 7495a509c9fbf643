package recovery

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

type State int

const (
	StateNone State = iota
	StateIssued
	StateExpired
	StateLocked
)

func (s State) String() string {
	switch s {
	case StateIssued:
		return "issued"
	case StateExpired:
		return "expired"
	case StateLocked:
		return "locked"
	default:
		return "none"
	}
}

// Challenge is the pending recovery code of an account. Only the keyed hash
// of the code is kept.
type Challenge struct {
	CodeHash  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Attempts  int
}

// State reports the challenge state at now. The expiry instant itself is
// already expired.
func (ch *Challenge) State(now time.Time, maxAttempts int) State {
	if ch == nil || ch.CodeHash == "" {
		return StateNone
	}
	if !now.Before(ch.ExpiresAt) {
		return StateExpired
	}
	if maxAttempts > 0 && ch.Attempts >= maxAttempts {
		return StateLocked
	}
	return StateIssued
}

type Account struct {
	ID        uint
	Email     string
	Name      string
	Challenge *Challenge
}

func generateOTP(length int) (string, error) {
	var b strings.Builder
	b.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), nil
}
