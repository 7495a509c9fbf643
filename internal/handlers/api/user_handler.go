package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/middlewares/authn"
	"github.com/khanghh/quill/internal/users"
)

type UserHandler struct {
	userService  UserService
	tokenService TokenService
	events       EventRecorder
}

func (h *UserHandler) PostSignup(ctx *fiber.Ctx) error {
	var req signupRequest
	if err := ctx.BodyParser(&req); err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	}

	user, err := h.userService.CreateUser(ctx.UserContext(), users.CreateUserOptions{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Mobile:   req.Mobile,
		Image:    req.Image,
	})
	switch {
	case errors.Is(err, users.ErrEmailRegistered):
		return sendError(ctx, fiber.StatusConflict, MsgEmailRegistered)
	case errors.Is(err, users.ErrNameRequired), errors.Is(err, users.ErrInvalidEmail), errors.Is(err, users.ErrInvalidPassword):
		return sendError(ctx, fiber.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}

	return sendData(ctx, fiber.StatusCreated, signupResponse{
		Message:   MsgUserRegistered,
		UserID:    user.ID,
		UserAdmin: h.userService.IsAdmin(user.Email),
	})
}

func (h *UserHandler) PostLogin(ctx *fiber.Ctx) error {
	var req loginRequest
	if err := ctx.BodyParser(&req); err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	}

	user, err := h.userService.Authenticate(ctx.UserContext(), req.Email, req.Password)
	if errors.Is(err, users.ErrInvalidCredentials) {
		h.events.RecordLogin(ctx.UserContext(), audit.LoginRecord{
			Email:     req.Email,
			IP:        ctx.IP(),
			UserAgent: ctx.Get(fiber.HeaderUserAgent),
			Reason:    err.Error(),
		})
		return sendError(ctx, fiber.StatusUnauthorized, MsgInvalidCredentials)
	}
	if err != nil {
		return err
	}

	token, _, err := h.tokenService.Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	h.events.RecordLogin(ctx.UserContext(), audit.LoginRecord{
		UserID:    user.ID,
		Email:     user.Email,
		IP:        ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
		Success:   true,
	})

	return sendData(ctx, fiber.StatusOK, loginResponse{
		Message:   MsgLoginSuccessful,
		Token:     token,
		UserAdmin: h.userService.IsAdmin(user.Email),
	})
}

func (h *UserHandler) PostLogout(ctx *fiber.Ctx) error {
	claims := authn.Identity(ctx)
	if err := h.tokenService.Revoke(ctx.UserContext(), claims); err != nil {
		return err
	}
	h.events.RecordLogout(ctx.UserContext(), claims.UserID, claims.Email, ctx.IP(), ctx.Get(fiber.HeaderUserAgent))
	return sendData(ctx, fiber.StatusOK, MessageResponse{Message: MsgLogoutSuccessful})
}

func (h *UserHandler) PostUpdateProfile(ctx *fiber.Ctx) error {
	var req updateProfileRequest
	if err := ctx.BodyParser(&req); err != nil {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	}

	user, err := h.userService.UpdateProfile(ctx.UserContext(), authn.AccountID(ctx), users.UpdateProfileOptions{
		Name:   req.Name,
		Mobile: req.Mobile,
		Image:  req.Image,
	})
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		return sendError(ctx, fiber.StatusNotFound, MsgUserNotFound)
	case errors.Is(err, users.ErrNameRequired):
		return sendError(ctx, fiber.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return sendData(ctx, fiber.StatusOK, userResponse{Message: MsgProfileUpdated, User: user})
}

func (h *UserHandler) GetUsers(ctx *fiber.Ctx) error {
	page := parsePagination(ctx)
	list, total, err := h.userService.ListUsers(ctx.UserContext(), page.Offset(), page.Limit)
	if err != nil {
		return err
	}
	return sendData(ctx, fiber.StatusOK, userListResponse{
		Message:    MsgUsersFetched,
		Users:      list,
		Total:      total,
		Page:       page.Page,
		TotalPages: page.TotalPages(total),
	})
}

func NewUserHandler(userService UserService, tokenService TokenService, events EventRecorder) *UserHandler {
	return &UserHandler{
		userService:  userService,
		tokenService: tokenService,
		events:       events,
	}
}
