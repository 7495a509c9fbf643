package captcha

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrInvalidCaptcha = errors.New("invalid captcha")
)

const (
	HeaderCaptchaToken = "X-Captcha-Token"
	FormCaptchaToken   = "cf-turnstile-response"
)

type CaptchaVerifier interface {
	Verify(ctx *fiber.Ctx) error
}

func tokenFromRequest(ctx *fiber.Ctx) string {
	if token := ctx.Get(HeaderCaptchaToken); token != "" {
		return token
	}
	return ctx.FormValue(FormCaptchaToken)
}

type CaptchaError struct {
	message string
}

func (e *CaptchaError) Error() string {
	return e.message
}

func (e *CaptchaError) Is(target error) bool {
	if target == ErrInvalidCaptcha {
		return true
	}
	_, ok := target.(*CaptchaError)
	return ok
}

type NullVerifier struct{}

func (v *NullVerifier) Verify(ctx *fiber.Ctx) error {
	return nil
}

func NewNullVerifier() *NullVerifier {
	return &NullVerifier{}
}

// Middleware rejects requests whose captcha token does not verify.
func Middleware(verifier CaptchaVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := verifier.Verify(c); err != nil {
			if errors.Is(err, ErrInvalidCaptcha) {
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			}
			return err
		}
		return c.Next()
	}
}
