package api

import (
	"github.com/gofiber/fiber/v2"
)

func NewDataResponse(data any) APIResponse {
	return APIResponse{
		APIVersion: APIVersion,
		Data:       data,
	}
}

func NewErrorResponse(code int, message string, details ...APIErrorDetail) APIResponse {
	return APIResponse{
		APIVersion: APIVersion,
		Error: &APIErrorInfo{
			Code:    code,
			Message: message,
			Errors:  details,
		},
	}
}

func sendData(ctx *fiber.Ctx, status int, data any) error {
	return ctx.Status(status).JSON(NewDataResponse(data))
}

func sendError(ctx *fiber.Ctx, status int, message string, details ...APIErrorDetail) error {
	return ctx.Status(status).JSON(NewErrorResponse(status, message, details...))
}
