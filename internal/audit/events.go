package audit

import (
	"context"
	"log/slog"

	"github.com/khanghh/quill/model"
	"gorm.io/gorm"
)

const (
	EventTypeLoginSuccess = "login_success"
	EventTypeLoginFailure = "login_failure"
	EventTypeLogout       = "logout"
	EventTypeOTPIssued    = "otp_issued"
	EventTypeOTPVerified  = "otp_verified"
	EventTypeOTPFailed    = "otp_failed"
)

type AuditEventRepository interface {
	RecordEvent(ctx context.Context, event *model.AuditEvent) error
}

type auditEventRepository struct {
	db *gorm.DB
}

func (r *auditEventRepository) RecordEvent(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func NewAuditEventRepository(db *gorm.DB) AuditEventRepository {
	return &auditEventRepository{db: db}
}

type LoginRecord struct {
	UserID    uint
	Email     string
	IP        string
	UserAgent string
	Success   bool
	Reason    string
}

type OTPRecord struct {
	UserID    uint
	Email     string
	EventType string
	IP        string
	UserAgent string
	Reason    string
}

// EventRecorder persists security relevant events. Failures are logged and
// never returned, an event that could not be stored must not fail the
// request that produced it.
type EventRecorder struct {
	repo   AuditEventRepository
	logger *slog.Logger
}

func (r *EventRecorder) record(ctx context.Context, event *model.AuditEvent) {
	if r == nil || r.repo == nil {
		return
	}
	if err := r.repo.RecordEvent(ctx, event); err != nil {
		r.logger.Error("Failed to record audit event", "eventType", event.EventType, "email", event.Email, "error", err)
	}
}

func (r *EventRecorder) RecordLogin(ctx context.Context, record LoginRecord) {
	eventType := EventTypeLoginFailure
	if record.Success {
		eventType = EventTypeLoginSuccess
	}
	r.record(ctx, &model.AuditEvent{
		UserID:    record.UserID,
		Email:     record.Email,
		EventType: eventType,
		IP:        record.IP,
		UserAgent: record.UserAgent,
		Reason:    record.Reason,
	})
}

func (r *EventRecorder) RecordLogout(ctx context.Context, userID uint, email, ip, userAgent string) {
	r.record(ctx, &model.AuditEvent{
		UserID:    userID,
		Email:     email,
		EventType: EventTypeLogout,
		IP:        ip,
		UserAgent: userAgent,
	})
}

func (r *EventRecorder) RecordOTP(ctx context.Context, record OTPRecord) {
	r.record(ctx, &model.AuditEvent{
		UserID:    record.UserID,
		Email:     record.Email,
		EventType: record.EventType,
		IP:        record.IP,
		UserAgent: record.UserAgent,
		Reason:    record.Reason,
	})
}

func NewEventRecorder(repo AuditEventRepository, logger *slog.Logger) *EventRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventRecorder{repo: repo, logger: logger}
}
