package audit

import (
	"context"
	"errors"
)

// MultiAppender writes every record to all of its targets.
type MultiAppender []Appender

func (m MultiAppender) Append(ctx context.Context, rec *RequestRecord) error {
	var errs []error
	for _, a := range m {
		if err := a.Append(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiAppender) Sync() error {
	var errs []error
	for _, a := range m {
		if sc, ok := a.(syncer); ok {
			if err := sc.Sync(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m MultiAppender) Close() error {
	var errs []error
	for _, a := range m {
		if err := a.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
