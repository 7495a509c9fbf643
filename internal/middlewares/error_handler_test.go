package middlewares

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/handlers/api"
)

func TestErrorHandler(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("database is on fire")
	})

	tests := []struct {
		path    string
		code    int
		message string
	}{
		{"/teapot", fiber.StatusTeapot, "short and stout"},
		{"/boom", fiber.StatusInternalServerError, api.MsgInternalServerError},
		{"/missing", fiber.StatusNotFound, "Cannot GET /missing"},
	}
	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, tt.path, nil))
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if resp.StatusCode != tt.code {
			t.Errorf("%s: status = %d, want %d", tt.path, resp.StatusCode, tt.code)
		}
		var body api.APIResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", tt.path, err)
		}
		resp.Body.Close()
		if body.Error == nil || body.Error.Code != tt.code || body.Error.Message != tt.message {
			t.Errorf("%s: error = %+v, want code %d message %q", tt.path, body.Error, tt.code, tt.message)
		}
		if body.APIVersion != api.APIVersion {
			t.Errorf("%s: apiVersion = %q", tt.path, body.APIVersion)
		}
	}
}
