package recovery

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/khanghh/quill/model"
	"gorm.io/gorm"
)

// Guard identifies a live challenge: CodeHash is still the stored one and
// it has not expired at Now. A positive MaxAttempts also bounds the number
// of codes tried against it.
type Guard struct {
	CodeHash    string
	Now         time.Time
	MaxAttempts int
}

// AccountStore persists recovery challenges on the account record.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	SaveChallenge(ctx context.Context, accountID uint, ch Challenge) error
	// ReserveAttempt counts one code comparison against the challenge before
	// it happens. It reports false when the guard no longer holds, otherwise
	// the attempt count including this one.
	ReserveAttempt(ctx context.Context, accountID uint, guard Guard) (int, bool, error)
	// ConsumeChallenge replaces the password and clears the challenge only
	// while the guard still holds. It reports false when another request
	// consumed or replaced the challenge first.
	ConsumeChallenge(ctx context.Context, accountID uint, guard Guard, hashedPassword string) (bool, error)
}

type accountStore struct {
	db *gorm.DB
}

func (s *accountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	var user model.User
	err := s.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	account := &Account{ID: user.ID, Email: user.Email, Name: user.Name}
	if user.OTP != nil && user.OTPExpiresAt != nil {
		account.Challenge = &Challenge{
			CodeHash:  *user.OTP,
			ExpiresAt: *user.OTPExpiresAt,
			Attempts:  user.OTPAttempts,
		}
		if user.OTPIssuedAt != nil {
			account.Challenge.IssuedAt = *user.OTPIssuedAt
		}
	}
	return account, nil
}

func (s *accountStore) SaveChallenge(ctx context.Context, accountID uint, ch Challenge) error {
	return s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{
			"otp":            ch.CodeHash,
			"otp_issued_at":  ch.IssuedAt,
			"otp_expires_at": ch.ExpiresAt,
			"otp_attempts":   0,
		}).Error
}

// liveChallenge scopes a user query to the challenge selected by guard.
// attemptsCmp compares otp_attempts against guard.MaxAttempts.
func liveChallenge(accountID uint, guard Guard, attemptsCmp string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("id = ? AND otp = ? AND otp_expires_at > ?", accountID, guard.CodeHash, guard.Now)
		if guard.MaxAttempts > 0 {
			db = db.Where("otp_attempts "+attemptsCmp+" ?", guard.MaxAttempts)
		}
		return db
	}
}

func (s *accountStore) ReserveAttempt(ctx context.Context, accountID uint, guard Guard) (int, bool, error) {
	var attempts []int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ret := tx.Model(&model.User{}).
			Scopes(liveChallenge(accountID, guard, "<")).
			UpdateColumn("otp_attempts", gorm.Expr("otp_attempts + 1"))
		if ret.Error != nil || ret.RowsAffected == 0 {
			return ret.Error
		}
		return tx.Model(&model.User{}).Where("id = ?", accountID).Pluck("otp_attempts", &attempts).Error
	})
	if err != nil || len(attempts) == 0 {
		return 0, false, err
	}
	return attempts[0], true, nil
}

func (s *accountStore) ConsumeChallenge(ctx context.Context, accountID uint, guard Guard, hashedPassword string) (bool, error) {
	ret := s.db.WithContext(ctx).Model(&model.User{}).
		Scopes(liveChallenge(accountID, guard, "<=")).
		Updates(map[string]interface{}{
			"password":       hashedPassword,
			"otp":            nil,
			"otp_issued_at":  nil,
			"otp_expires_at": nil,
			"otp_attempts":   0,
		})
	if ret.Error != nil {
		return false, ret.Error
	}
	return ret.RowsAffected > 0, nil
}

func NewAccountStore(db *gorm.DB) AccountStore {
	return &accountStore{db: db}
}
