package middlewares

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/handlers/api"
)

// ErrorHandler replies with the JSON error envelope. Errors that are not a
// *fiber.Error are logged and reported as 500 without their message.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := api.MsgInternalServerError
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	if code >= fiber.StatusInternalServerError {
		slog.Error("Unhandled error", "method", ctx.Method(), "path", ctx.Path(), "code", code, "error", err)
	}
	ctx.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	return ctx.Status(code).JSON(api.NewErrorResponse(code, message))
}
