package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/khanghh/quill/internal/clock"
	"github.com/khanghh/quill/internal/store"
)

type TokenClaims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// RevokedToken marks a token id that must no longer be accepted.
type RevokedToken struct {
	UserID    uint  `json:"uid"       redis:"uid"`
	RevokedAt int64 `json:"revokedAt" redis:"revoked_at"`
}

// TokenService issues and verifies HS256 bearer tokens. Revoked token ids
// are kept until the token would have expired anyway.
type TokenService struct {
	secret       []byte
	expiration   time.Duration
	clock        clock.Clock
	revokedStore store.Store[RevokedToken]
}

func (s *TokenService) Issue(userID uint, email string) (string, *TokenClaims, error) {
	now := s.clock.Now()
	claims := &TokenClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

func (s *TokenService) Verify(ctx context.Context, tokenStr string) (*TokenClaims, error) {
	var claims TokenClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrTokenExpired
	}
	if err != nil || !token.Valid || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	revoked, err := s.revokedStore.Exists(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return &claims, nil
}

func (s *TokenService) Revoke(ctx context.Context, claims *TokenClaims) error {
	if claims == nil || claims.ID == "" {
		return ErrTokenInvalid
	}
	now := s.clock.Now()
	ttl := time.Second
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(now); remaining > ttl {
			ttl = remaining
		}
	}
	return s.revokedStore.Set(ctx, claims.ID, RevokedToken{UserID: claims.UserID, RevokedAt: now.Unix()}, ttl)
}

func NewTokenService(secret string, expiration time.Duration, storage store.Storage, keyPrefix string, clk clock.Clock) *TokenService {
	if clk == nil {
		clk = clock.Real
	}
	return &TokenService{
		secret:       []byte(secret),
		expiration:   expiration,
		clock:        clk,
		revokedStore: store.New[RevokedToken](storage, keyPrefix),
	}
}
