package reqlog

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/khanghh/quill/internal/audit"
	"github.com/khanghh/quill/internal/clock"
	"github.com/valyala/bytebufferpool"
)

// bodyBuffer keeps the first limit bytes written to it and counts the rest.
type bodyBuffer struct {
	mu        sync.Mutex
	buf       *bytebufferpool.ByteBuffer
	limit     int
	total     int64
	truncated bool
}

func (b *bodyBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total += int64(len(p))
	if b.buf == nil {
		return len(p), nil
	}
	room := b.limit - b.buf.Len()
	if room < len(p) {
		b.truncated = true
		if room > 0 {
			b.buf.Write(p[:room])
		}
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

// release copies out the retained bytes and returns the pooled buffer.
func (b *bodyBuffer) release() (data []byte, total int64, truncated bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf != nil {
		if b.buf.Len() > 0 {
			data = append([]byte(nil), b.buf.B...)
		}
		bytebufferpool.Put(b.buf)
		b.buf = nil
	}
	return data, b.total, b.truncated
}

func newBodyBuffer(limit int) *bodyBuffer {
	return &bodyBuffer{buf: bytebufferpool.Get(), limit: limit}
}

// capture is the per-request interception state. It is finalized exactly
// once, after both the handler chain and the response stream, if any, are
// done with it.
type capture struct {
	rec       *audit.RequestRecord
	start     time.Time
	clock     clock.Clock
	sink      audit.Sink
	body      *bodyBuffer
	logger    *slog.Logger
	pending   atomic.Int32
	streaming atomic.Bool
	aborted   atomic.Bool
	once      sync.Once
}

func (c *capture) beginStream() {
	c.streaming.Store(true)
	c.pending.Add(1)
}

func (c *capture) abort() {
	c.aborted.Store(true)
}

// done releases one party holding the capture. The last one to leave
// seals the record and hands it to the sink.
func (c *capture) done() {
	if c.pending.Add(-1) > 0 {
		return
	}
	c.once.Do(c.finalize)
}

func (c *capture) finalize() {
	data, total, truncated := c.body.release()
	c.rec.ResponseTime = c.clock.Since(c.start)
	c.rec.ResponseBody = data
	c.rec.ResponseBytes = total
	c.rec.Truncated = c.rec.Truncated || truncated
	c.rec.Aborted = c.aborted.Load()
	c.sink.Write(c.rec)
}

func newCapture(rec *audit.RequestRecord, cfg *Config) *capture {
	c := &capture{
		rec:    rec,
		start:  cfg.Clock.Now(),
		clock:  cfg.Clock,
		sink:   cfg.Sink,
		body:   newBodyBuffer(cfg.MaxBodySize),
		logger: cfg.Logger,
	}
	c.pending.Store(1)
	return c
}
