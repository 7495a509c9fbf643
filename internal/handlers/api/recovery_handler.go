package api

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/recovery"
)

type RecoveryHandler struct {
	recoveryService RecoveryService
	events          EventRecorder
}

func (h *RecoveryHandler) recordOTP(ctx *fiber.Ctx, account *recovery.Account, email string, eventType string, reason error) {
	record := audit.OTPRecord{
		Email:     email,
		EventType: eventType,
		IP:        ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
	}
	if account != nil {
		record.UserID = account.ID
		record.Email = account.Email
	}
	if reason != nil {
		record.Reason = reason.Error()
	}
	h.events.RecordOTP(ctx.UserContext(), record)
}

func (h *RecoveryHandler) PostForgotPassword(ctx *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := ctx.BodyParser(&req); err != nil || req.Email == "" {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	}

	account, err := h.recoveryService.Issue(ctx.UserContext(), req.Email)
	switch {
	case errors.Is(err, recovery.ErrAccountNotFound):
		return sendError(ctx, fiber.StatusNotFound, MsgNoSuchAccount)
	case errors.Is(err, recovery.ErrDeliveryFailed):
		h.recordOTP(ctx, account, req.Email, audit.EventTypeOTPIssued, err)
		return sendError(ctx, fiber.StatusBadGateway, MsgOTPDeliveryFailed)
	case err != nil:
		return err
	}

	h.recordOTP(ctx, account, req.Email, audit.EventTypeOTPIssued, nil)
	return sendData(ctx, fiber.StatusOK, MessageResponse{Message: MsgOTPSent})
}

func (h *RecoveryHandler) PostResetPassword(ctx *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := ctx.BodyParser(&req); err != nil || req.Email == "" || req.OTP == "" {
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	}

	account, err := h.recoveryService.Verify(ctx.UserContext(), req.Email, req.OTP, req.Password)
	if err == nil {
		h.recordOTP(ctx, account, req.Email, audit.EventTypeOTPVerified, nil)
		return sendData(ctx, fiber.StatusOK, MessageResponse{Message: MsgPasswordReset})
	}

	var attemptErr *recovery.AttemptFailError
	switch {
	case errors.Is(err, recovery.ErrAccountNotFound):
		return sendError(ctx, fiber.StatusNotFound, MsgUserNotFound)
	case errors.Is(err, recovery.ErrInvalidCredential):
		return sendError(ctx, fiber.StatusBadRequest, MsgInvalidRequestBody)
	case errors.Is(err, recovery.ErrChallengeNotFound):
		h.recordOTP(ctx, account, req.Email, audit.EventTypeOTPFailed, err)
		return sendError(ctx, fiber.StatusNotFound, MsgNoActiveOTP)
	case errors.Is(err, recovery.ErrChallengeExpired):
		h.recordOTP(ctx, account, req.Email, audit.EventTypeOTPFailed, err)
		return sendError(ctx, fiber.StatusBadRequest, MsgOTPExpired)
	case errors.Is(err, recovery.ErrTooManyAttempts):
		h.recordOTP(ctx, account, req.Email, audit.EventTypeOTPFailed, err)
		return sendError(ctx, fiber.StatusTooManyRequests, MsgOTPTooManyAttempts)
	case errors.As(err, &attemptErr):
		h.recordOTP(ctx, account, req.Email, audit.EventTypeOTPFailed, err)
		if attemptErr.AttemptsLeft < 0 {
			return sendError(ctx, fiber.StatusBadRequest, MsgOTPMismatch)
		}
		return sendError(ctx, fiber.StatusBadRequest, MsgOTPMismatch, APIErrorDetail{
			Domain:       "recovery",
			Reason:       "codeMismatch",
			Message:      fmt.Sprintf("%d attempts left", attemptErr.AttemptsLeft),
			AttemptsLeft: &attemptErr.AttemptsLeft,
		})
	default:
		return err
	}
}

func NewRecoveryHandler(recoveryService RecoveryService, events EventRecorder) *RecoveryHandler {
	return &RecoveryHandler{
		recoveryService: recoveryService,
		events:          events,
	}
}
