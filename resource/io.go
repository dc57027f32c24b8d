package resource

import (
	"context"
	"io"
)

// LimitedReader wraps r so that reads pass through the controller's I/O
// limiter. With a nil controller it is a plain pass-through.
func (c *Controller) LimitedReader(ctx context.Context, r io.Reader) io.Reader {
	return &limitedReader{ctx: ctx, c: c, r: r}
}

// LimitedWriter wraps w so that writes pass through the controller's I/O
// limiter.
func (c *Controller) LimitedWriter(ctx context.Context, w io.Writer) io.Writer {
	return &limitedWriter{ctx: ctx, c: c, w: w}
}

type limitedReader struct {
	ctx context.Context
	c   *Controller
	r   io.Reader
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	n, err := lr.r.Read(p)
	if n > 0 {
		if werr := lr.c.AcquireIO(lr.ctx, n); werr != nil {
			return n, werr
		}
	}
	return n, err
}

type limitedWriter struct {
	ctx context.Context
	c   *Controller
	w   io.Writer
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	if err := lw.c.AcquireIO(lw.ctx, len(p)); err != nil {
		return 0, err
	}
	return lw.w.Write(p)
}
