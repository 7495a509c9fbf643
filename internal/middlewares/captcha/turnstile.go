package captcha

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

const TurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"

type turnstileResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// TurnstileVerifier checks tokens against Cloudflare Turnstile.
type TurnstileVerifier struct {
	secretKey string
	verifyURL string
	timeout   time.Duration
}

func (v *TurnstileVerifier) Verify(ctx *fiber.Ctx) error {
	token := tokenFromRequest(ctx)
	if token == "" {
		return &CaptchaError{message: "captcha token is required"}
	}

	args := fiber.AcquireArgs()
	defer fiber.ReleaseArgs(args)
	args.Set("secret", v.secretKey)
	args.Set("response", token)
	args.Set("remoteip", ctx.IP())

	agent := fiber.Post(v.verifyURL).Form(args).Timeout(v.timeout)
	var resp turnstileResponse
	code, _, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return fmt.Errorf("turnstile verify: %w", errs[0])
	}
	if code != fiber.StatusOK {
		return fmt.Errorf("turnstile verify: unexpected status %d", code)
	}
	if !resp.Success {
		return &CaptchaError{message: "captcha verification failed"}
	}
	return nil
}

func NewTurnstileVerifier(secretKey string) *TurnstileVerifier {
	return &TurnstileVerifier{
		secretKey: secretKey,
		verifyURL: TurnstileVerifyURL,
		timeout:   5 * time.Second,
	}
}
