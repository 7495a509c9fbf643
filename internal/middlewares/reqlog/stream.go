package reqlog

import (
	"bufio"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

// teeWriter forwards every chunk to the connection writer and records the
// chunks that were flushed to the client.
type teeWriter struct {
	dst *bufio.Writer
	cp  *capture
	err error
}

func (t *teeWriter) Write(p []byte) (int, error) {
	if t.err != nil {
		return 0, t.err
	}
	n, err := t.dst.Write(p)
	if err == nil {
		err = t.dst.Flush()
	}
	if err != nil {
		t.err = err
		return n, err
	}
	_, _ = t.cp.body.Write(p[:n])
	return n, nil
}

// StreamWriter sets fn as the response body writer of c. When the request
// passes through the capture middleware, every chunk fn flushes is recorded
// and the audit record is sealed only once fn has returned.
func StreamWriter(c *fiber.Ctx, fn func(w *bufio.Writer)) {
	cp, ok := c.Locals(captureKey).(*capture)
	if !ok || cp == nil {
		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(fn))
		return
	}
	cp.beginStream()
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		tee := &teeWriter{dst: w, cp: cp}
		bw := bufio.NewWriter(tee)
		defer func() {
			if r := recover(); r != nil {
				cp.logger.Error("Response stream writer panicked", "url", cp.rec.URL, "panic", r)
				cp.abort()
			}
			cp.done()
		}()
		fn(bw)
		if err := bw.Flush(); err != nil || tee.err != nil {
			cp.abort()
		}
	})
}
