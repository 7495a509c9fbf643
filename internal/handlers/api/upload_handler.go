package api

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/uploads"
)

const formFieldImage = "image"

type UploadHandler struct {
	uploader ImageUploader
}

func (h *UploadHandler) PostUploadImage(ctx *fiber.Ctx) error {
	header, err := ctx.FormFile(formFieldImage)
	if err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgNoFileUploaded)
	}
	file, err := header.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	url, err := h.uploader.Upload(ctx.UserContext(), uploads.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Size:        header.Size,
		Body:        file,
	})
	switch {
	case errors.Is(err, uploads.ErrEmptyFile):
		return sendError(ctx, fiber.StatusBadRequest, MsgNoFileUploaded)
	case errors.Is(err, uploads.ErrUnsupportedType):
		return sendError(ctx, fiber.StatusBadRequest, MsgUnsupportedImageType)
	case err != nil:
		slog.Error("Image upload failed", "filename", header.Filename, "error", err)
		return sendError(ctx, fiber.StatusBadGateway, MsgImageUploadFailed)
	}
	return sendData(ctx, fiber.StatusOK, uploadResponse{ImageURL: url})
}

func NewUploadHandler(uploader ImageUploader) *UploadHandler {
	return &UploadHandler{uploader: uploader}
}
