package reqlog

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/khanghh/quill/internal/audit"
)

const captureKey = "reqlog.capture"

// New creates a middleware that records every request/response exchange
// passing through it as an audit.RequestRecord. The client-visible response
// is never altered.
func New(config Config) fiber.Handler {
	cfg := configDefault(config)
	if cfg.Sink == nil {
		panic("reqlog: Sink is required")
	}
	redactHeaders := lowerSet(cfg.RedactHeaders)
	redactFields := lowerSet(cfg.RedactFields)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		rec := &audit.RequestRecord{
			Method:         utils.CopyString(c.Method()),
			URL:            utils.CopyString(c.OriginalURL()),
			RequestHeaders: captureHeaders(c.GetReqHeaders(), redactHeaders),
		}
		reqBody := redactBody(string(c.Request().Header.ContentType()), c.Request().Body(), redactFields)
		if len(reqBody) > cfg.MaxBodySize {
			reqBody = reqBody[:cfg.MaxBodySize]
			rec.Truncated = true
		}
		if len(reqBody) > 0 {
			rec.RequestBody = append(audit.Body(nil), reqBody...)
		}

		cp := newCapture(rec, &cfg)
		rec.Timestamp = cp.start
		c.Locals(captureKey, cp)

		defer func() {
			if r := recover(); r != nil {
				seal(c, cp, &cfg)
				cp.rec.ResponseStatus = fiber.StatusInternalServerError
				cp.abort()
				cp.done()
				panic(r)
			}
		}()

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		seal(c, cp, &cfg)
		resp := c.Response()
		if !resp.IsBodyStream() {
			_, _ = cp.body.Write(resp.Body())
		} else if !cp.streaming.Load() {
			cfg.Logger.Debug("Response body stream not captured", "method", rec.Method, "url", rec.URL)
		}
		cp.done()
		return nil
	}
}

// seal copies the response metadata known once the handler chain returned.
func seal(c *fiber.Ctx, cp *capture, cfg *Config) {
	cp.rec.ResponseStatus = c.Response().StatusCode()
	cp.rec.RequestID = utils.CopyString(c.GetRespHeader(fiber.HeaderXRequestID))
	if cfg.AccountID != nil {
		cp.rec.AccountID = cfg.AccountID(c)
	}
}
