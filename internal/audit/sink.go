package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Sink accepts sealed request records. Write must never block the caller
// nor report failures back to it.
type Sink interface {
	Write(rec *RequestRecord)
}

// Appender is a durable append target. Each Append call must persist the
// record as a single unit.
type Appender interface {
	Append(ctx context.Context, rec *RequestRecord) error
	Close() error
}

// syncer is implemented by appenders that buffer writes to stable storage.
type syncer interface {
	Sync() error
}

// AsyncSink queues records and appends them from a single writer goroutine,
// so appends never interleave and request completion never waits on them.
type AsyncSink struct {
	target    Appender
	logger    *slog.Logger
	queue     chan *RequestRecord
	done      chan struct{}
	stopped   chan struct{}
	once      sync.Once
	closeOnce sync.Once
	closeErr  error
	dropped   atomic.Int64
	written   atomic.Int64
}

func (s *AsyncSink) Write(rec *RequestRecord) {
	if rec == nil {
		return
	}
	select {
	case <-s.done:
		s.drop(rec, ErrSinkClosed)
		return
	default:
	}
	select {
	case s.queue <- rec:
	default:
		s.drop(rec, ErrSinkUnavailable)
	}
}

func (s *AsyncSink) drop(rec *RequestRecord, reason error) {
	total := s.dropped.Add(1)
	s.logger.Warn("Audit record dropped",
		"method", rec.Method,
		"url", rec.URL,
		"requestId", rec.RequestID,
		"dropped", total,
		"error", reason,
	)
}

func (s *AsyncSink) append(rec *RequestRecord) {
	if err := s.target.Append(context.Background(), rec); err != nil {
		s.dropped.Add(1)
		s.logger.Error("Failed to append audit record",
			"method", rec.Method,
			"url", rec.URL,
			"requestId", rec.RequestID,
			"error", errors.Join(ErrSinkUnavailable, err),
		)
		return
	}
	s.written.Add(1)
}

func (s *AsyncSink) sync() {
	if sc, ok := s.target.(syncer); ok {
		if err := sc.Sync(); err != nil {
			s.logger.Error("Failed to sync audit target", "error", err)
		}
	}
}

func (s *AsyncSink) run() {
	defer close(s.stopped)
	for {
		select {
		case rec := <-s.queue:
			s.append(rec)
			if len(s.queue) == 0 {
				s.sync()
			}
		case <-s.done:
			for {
				select {
				case rec := <-s.queue:
					s.append(rec)
				default:
					s.sync()
					return
				}
			}
		}
	}
}

// Dropped returns the number of records that were not persisted.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Written returns the number of records persisted so far.
func (s *AsyncSink) Written() int64 {
	return s.written.Load()
}

// Close stops accepting records, drains the queue and closes the target.
func (s *AsyncSink) Close(ctx context.Context) error {
	s.once.Do(func() {
		close(s.done)
	})
	select {
	case <-s.stopped:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.closeOnce.Do(func() {
		s.closeErr = s.target.Close()
	})
	return s.closeErr
}

func NewAsyncSink(target Appender, queueSize int, logger *slog.Logger) *AsyncSink {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	s := &AsyncSink{
		target:  target,
		logger:  logger,
		queue:   make(chan *RequestRecord, queueSize),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}
