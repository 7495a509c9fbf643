package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/khanghh/quill/model"
	"gorm.io/gorm"
)

type RequestLogRepository interface {
	Create(ctx context.Context, log *model.RequestLog) error
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

type requestLogRepository struct {
	db *gorm.DB
}

func (r *requestLogRepository) Create(ctx context.Context, log *model.RequestLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *requestLogRepository) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	ret := r.db.WithContext(ctx).Where("timestamp < ?", before).Delete(&model.RequestLog{})
	return ret.RowsAffected, ret.Error
}

func NewRequestLogRepository(db *gorm.DB) RequestLogRepository {
	return &requestLogRepository{db: db}
}

// DBAppender stores records in the request_log table.
type DBAppender struct {
	repo RequestLogRepository
}

func (a *DBAppender) Append(ctx context.Context, rec *RequestRecord) error {
	if rec == nil {
		return nil
	}
	headers, err := json.Marshal(rec.RequestHeaders)
	if err != nil {
		return err
	}
	url, truncated := rec.URL, rec.Truncated
	if len(url) > model.MaxRequestLogURLLength {
		url, truncated = url[:model.MaxRequestLogURLLength], true
	}
	return a.repo.Create(ctx, &model.RequestLog{
		RequestID:      rec.RequestID,
		Timestamp:      rec.Timestamp,
		Method:         rec.Method,
		URL:            url,
		AccountID:      rec.AccountID,
		RequestHeaders: headers,
		RequestBody:    string(rec.RequestBody),
		ResponseStatus: rec.ResponseStatus,
		ResponseTimeMs: rec.ResponseTime.Milliseconds(),
		ResponseBody:   string(rec.ResponseBody),
		ResponseBytes:  rec.ResponseBytes,
		Truncated:      truncated,
		Aborted:        rec.Aborted,
	})
}

func (a *DBAppender) Close() error {
	return nil
}

func NewDBAppender(repo RequestLogRepository) *DBAppender {
	return &DBAppender{repo: repo}
}
