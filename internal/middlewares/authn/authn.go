package authn

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/auth"
)

const (
	identityKey  = "authn.identity"
	bearerScheme = "Bearer "
)

type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.TokenClaims, error)
}

// AdminChecker decides whether an email belongs to an administrator.
type AdminChecker interface {
	IsAdmin(email string) bool
}

func Identity(c *fiber.Ctx) *auth.TokenClaims {
	claims, _ := c.Locals(identityKey).(*auth.TokenClaims)
	return claims
}

// AccountID returns the id of the authenticated account, 0 if none.
func AccountID(c *fiber.Ctx) uint {
	if claims := Identity(c); claims != nil {
		return claims.UserID
	}
	return 0
}

func unauthorized(message string) error {
	return fiber.NewError(fiber.StatusUnauthorized, message)
}

// Bearer requires a valid bearer token and exposes its claims via Identity.
func Bearer(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if len(header) <= len(bearerScheme) || !strings.EqualFold(header[:len(bearerScheme)], bearerScheme) {
			return unauthorized("Missing bearer token")
		}
		claims, err := verifier.Verify(c.UserContext(), strings.TrimSpace(header[len(bearerScheme):]))
		switch {
		case errors.Is(err, auth.ErrTokenExpired):
			return unauthorized("Token expired")
		case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrTokenInvalid):
			return unauthorized("Invalid token")
		case err != nil:
			return err
		}
		c.Locals(identityKey, claims)
		return c.Next()
	}
}

// AdminOnly must run after Bearer.
func AdminOnly(checker AdminChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := Identity(c)
		if claims == nil {
			return unauthorized("Missing bearer token")
		}
		if !checker.IsAdmin(claims.Email) {
			return fiber.NewError(fiber.StatusForbidden, "Admin access required")
		}
		return c.Next()
	}
}
