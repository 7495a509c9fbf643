package audit

import "errors"

var (
	ErrSinkUnavailable = errors.New("audit sink unavailable")
	ErrSinkClosed      = errors.New("audit sink closed")
)
