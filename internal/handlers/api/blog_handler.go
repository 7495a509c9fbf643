package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/blogs"
	"github.com/khanghh/quill/internal/middlewares/authn"
	"github.com/khanghh/quill/internal/middlewares/reqlog"
	"github.com/khanghh/quill/model"
)

const (
	exportBatchSize = 100
	exportTimeout   = 5 * time.Minute
	mimeNDJSON      = "application/x-ndjson"
)

type BlogHandler struct {
	blogService BlogService
	userService UserService
	logger      *slog.Logger
}

func (h *BlogHandler) blogOptions(ctx *fiber.Ctx) (blogs.BlogOptions, error) {
	var req blogRequest
	if err := ctx.BodyParser(&req); err != nil {
		return blogs.BlogOptions{}, err
	}
	return blogs.BlogOptions{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Image:   req.Image,
	}, nil
}

func (h *BlogHandler) sendBlogError(ctx *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, blogs.ErrBlogNotFound):
		return sendError(ctx, fiber.StatusNotFound, MsgBlogNotFound)
	case errors.Is(err, blogs.ErrTitleTaken):
		return sendError(ctx, fiber.StatusConflict, MsgBlogTitleTaken)
	case errors.Is(err, blogs.ErrTitleRequired), errors.Is(err, blogs.ErrInvalidDocument):
		return sendError(ctx, fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func (h *BlogHandler) PostCreateBlog(ctx *fiber.Ctx) error {
	opts, err := h.blogOptions(ctx)
	if err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	}
	user, err := h.userService.GetUserByID(ctx.UserContext(), authn.AccountID(ctx))
	if err != nil {
		return err
	}

	blog, err := h.blogService.CreateBlog(ctx.UserContext(), blogs.Author{ID: user.ID, Name: user.Name}, opts)
	if err != nil {
		return h.sendBlogError(ctx, err)
	}
	return sendData(ctx, fiber.StatusCreated, blogResponse{Message: MsgBlogCreated, Blog: blog})
}

func (h *BlogHandler) PutUpdateBlog(ctx *fiber.Ctx) error {
	blogID, ok := parseID(ctx, "id")
	if !ok {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidBlogID)
	}
	opts, err := h.blogOptions(ctx)
	if err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	}

	blog, err := h.blogService.UpdateBlog(ctx.UserContext(), authn.AccountID(ctx), blogID, opts)
	if err != nil {
		return h.sendBlogError(ctx, err)
	}
	return sendData(ctx, fiber.StatusOK, blogResponse{Message: MsgBlogUpdated, Blog: blog})
}

func (h *BlogHandler) DeleteBlog(ctx *fiber.Ctx) error {
	blogID, ok := parseID(ctx, "id")
	if !ok {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidBlogID)
	}
	if err := h.blogService.DeleteBlog(ctx.UserContext(), authn.AccountID(ctx), blogID); err != nil {
		return h.sendBlogError(ctx, err)
	}
	return sendData(ctx, fiber.StatusOK, MessageResponse{Message: MsgBlogDeleted})
}

func (h *BlogHandler) GetBlogs(ctx *fiber.Ctx) error {
	page := parsePagination(ctx)
	list, total, err := h.blogService.ListBlogs(ctx.UserContext(), page.Offset(), page.Limit)
	if err != nil {
		return err
	}
	return sendData(ctx, fiber.StatusOK, blogListResponse{
		Blogs:      list,
		Total:      total,
		Page:       page.Page,
		TotalPages: page.TotalPages(total),
	})
}

func (h *BlogHandler) GetBlog(ctx *fiber.Ctx) error {
	blogID, ok := parseID(ctx, "id")
	if !ok {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidBlogID)
	}
	blog, err := h.blogService.GetBlog(ctx.UserContext(), blogID)
	if err != nil {
		return h.sendBlogError(ctx, err)
	}
	return sendData(ctx, fiber.StatusOK, blog)
}

func (h *BlogHandler) PostToggleLike(ctx *fiber.Ctx) error {
	blogID, ok := parseID(ctx, "id")
	if !ok {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidBlogID)
	}
	liked, likes, err := h.blogService.ToggleLike(ctx.UserContext(), blogID, authn.AccountID(ctx))
	if err != nil {
		return h.sendBlogError(ctx, err)
	}
	message := MsgBlogUnliked
	if liked {
		message = MsgBlogLiked
	}
	return sendData(ctx, fiber.StatusOK, likeResponse{Message: message, Liked: liked, Likes: likes})
}

// GetExportBlogs streams every blog as one JSON document per line. The
// stream runs after the handler returns, so it must not touch ctx.
func (h *BlogHandler) GetExportBlogs(ctx *fiber.Ctx) error {
	ctx.Set(fiber.HeaderContentType, mimeNDJSON)
	ctx.Set(fiber.HeaderContentDisposition, `attachment; filename="blogs.ndjson"`)
	reqlog.StreamWriter(ctx, func(w *bufio.Writer) {
		exportCtx, cancel := context.WithTimeout(context.Background(), exportTimeout)
		defer cancel()

		enc := json.NewEncoder(w)
		err := h.blogService.ExportBlogs(exportCtx, exportBatchSize, func(batch []model.Blog) error {
			for i := range batch {
				if err := enc.Encode(&batch[i]); err != nil {
					return err
				}
			}
			return w.Flush()
		})
		if err != nil {
			h.logger.Error("Blog export interrupted", "error", err)
		}
	})
	return nil
}

func NewBlogHandler(blogService BlogService, userService UserService, logger *slog.Logger) *BlogHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BlogHandler{
		blogService: blogService,
		userService: userService,
		logger:      logger,
	}
}
