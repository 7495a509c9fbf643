package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/khanghh/quill/internal/clock"
	"github.com/khanghh/quill/internal/common"
	"github.com/khanghh/quill/params"
	"golang.org/x/crypto/bcrypt"
)

// Mailer delivers a recovery code to the account owner.
type Mailer interface {
	SendOTP(ctx context.Context, toEmail string, name string, code string, expiresIn time.Duration) error
}

// Service drives the password recovery challenge of each account through
// NONE -> ISSUED -> CONSUMED or EXPIRED. Issuing always replaces the
// previous challenge.
type Service struct {
	masterKey   string
	store       AccountStore
	mailer      Mailer
	clock       clock.Clock
	logger      *slog.Logger
	codeLength  int
	expiration  time.Duration
	maxAttempts int
	generate    func(length int) (string, error)
}

type Option func(s *Service)

func WithClock(clk clock.Clock) Option {
	return func(s *Service) { s.clock = clk }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithMaxAttempts sets the number of wrong codes accepted per challenge.
// Zero disables the limit.
func WithMaxAttempts(n int) Option {
	return func(s *Service) { s.maxAttempts = n }
}

func WithCodeGenerator(generate func(length int) (string, error)) Option {
	return func(s *Service) { s.generate = generate }
}

func (s *Service) codeHash(accountID uint, code string) string {
	return common.CalculateHash(s.masterKey, accountID, code)
}

// Issue creates a new challenge for the account registered with email and
// mails the code to it. When mailing fails ErrDeliveryFailed is returned
// and the stored challenge stays authoritative.
func (s *Service) Issue(ctx context.Context, email string) (*Account, error) {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	code, err := s.generate(s.codeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	now := s.clock.Now()
	ch := Challenge{
		CodeHash:  s.codeHash(account.ID, code),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.expiration),
	}
	if err := s.store.SaveChallenge(ctx, account.ID, ch); err != nil {
		return nil, err
	}
	account.Challenge = &ch

	if err := s.mailer.SendOTP(ctx, account.Email, account.Name, code, s.expiration); err != nil {
		s.logger.Error("Failed to deliver recovery code", "accountId", account.ID, "error", err)
		return account, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return account, nil
}

// Verify consumes the challenge of the account registered with email if
// code matches, replacing the account password with newPassword.
func (s *Service) Verify(ctx context.Context, email string, code string, newPassword string) (*Account, error) {
	if newPassword == "" {
		return nil, ErrInvalidCredential
	}
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	ch := account.Challenge
	now := s.clock.Now()
	if err := stateError(ch.State(now, s.maxAttempts)); err != nil {
		return account, err
	}

	guard := Guard{CodeHash: ch.CodeHash, Now: now, MaxAttempts: s.maxAttempts}
	attempts, ok, err := s.store.ReserveAttempt(ctx, account.ID, guard)
	if err != nil {
		return account, err
	}
	if !ok {
		return account, s.rejection(ctx, email, ch.CodeHash)
	}

	if !common.HashEqual(ch.CodeHash, s.codeHash(account.ID, code)) {
		attemptsLeft := -1
		if s.maxAttempts > 0 {
			attemptsLeft = max(s.maxAttempts-attempts, 0)
		}
		return account, NewAttemptFailError(attemptsLeft)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return account, ErrInvalidCredential
		}
		return account, err
	}
	guard.Now = s.clock.Now()
	consumed, err := s.store.ConsumeChallenge(ctx, account.ID, guard, string(hashed))
	if err != nil {
		return account, err
	}
	if !consumed {
		return account, s.rejection(ctx, email, ch.CodeHash)
	}
	account.Challenge = nil
	return account, nil
}

func stateError(state State) error {
	switch state {
	case StateNone:
		return ErrChallengeNotFound
	case StateExpired:
		return ErrChallengeExpired
	case StateLocked:
		return ErrTooManyAttempts
	}
	return nil
}

// rejection explains why a guarded store update for codeHash matched
// nothing, based on the challenge as it is stored now.
func (s *Service) rejection(ctx context.Context, email string, codeHash string) error {
	account, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	ch := account.Challenge
	if ch == nil || ch.CodeHash != codeHash {
		return ErrChallengeNotFound
	}
	if err := stateError(ch.State(s.clock.Now(), s.maxAttempts)); err != nil {
		return err
	}
	return ErrChallengeNotFound
}

func NewService(masterKey string, store AccountStore, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		masterKey:   masterKey,
		store:       store,
		mailer:      mailer,
		clock:       clock.Real,
		logger:      slog.Default(),
		codeLength:  params.OTPLength,
		expiration:  params.OTPExpiration,
		maxAttempts: params.OTPMaxVerifyAttempts,
		generate:    generateOTP,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
