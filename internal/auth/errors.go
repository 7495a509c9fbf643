package auth

import "errors"

var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token is expired")
	ErrTokenRevoked = errors.New("token has been revoked")
)
