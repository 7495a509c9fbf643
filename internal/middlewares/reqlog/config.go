package reqlog

import (
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/clock"
	"github.com/khanghh/quill/params"
)

// Config defines the config for the request/response capture middleware.
type Config struct {
	// Sink receives one sealed record per request. Required.
	Sink audit.Sink

	// Next defines a function to skip this middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// MaxBodySize bounds the bytes retained per request and per response
	// body. Bytes beyond it are counted and the record is marked truncated.
	MaxBodySize int

	// RedactHeaders are request header names whose values are replaced.
	RedactHeaders []string

	// RedactFields are JSON and form field names whose values are replaced
	// in captured request bodies.
	RedactFields []string

	// AccountID resolves the authenticated account of the request, 0 if none.
	AccountID func(c *fiber.Ctx) uint

	Clock  clock.Clock
	Logger *slog.Logger
}

const redacted = "[REDACTED]"

var ConfigDefault = Config{
	MaxBodySize:   params.CaptureMaxBodySize,
	RedactHeaders: []string{fiber.HeaderAuthorization, fiber.HeaderCookie, fiber.HeaderSetCookie},
	RedactFields:  []string{"password", "newPassword", "currentPassword", "otp", "code", "token"},
}

func configDefault(cfg Config) Config {
	if cfg.MaxBodySize <= 0 {
		cfg.MaxBodySize = ConfigDefault.MaxBodySize
	}
	if cfg.RedactHeaders == nil {
		cfg.RedactHeaders = ConfigDefault.RedactHeaders
	}
	if cfg.RedactFields == nil {
		cfg.RedactFields = ConfigDefault.RedactFields
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}

func lowerSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[strings.ToLower(name)] = struct{}{}
	}
	return set
}
