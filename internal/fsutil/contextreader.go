package fsutil

import (
	"context"
	"io"
)

// ctxReader wraps an io.Reader so that Read returns ctx.Err() once ctx is
// done, instead of blocking on a subprocess pipe the scheduler has already
// decided to abandon.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

// newContextReader returns an io.Reader that aborts with ctx.Err() once ctx
// is cancelled, used when draining compiler/linker stdout/stderr pipes so a
// cancelled build doesn't block on subprocess output forever.
func newContextReader(ctx context.Context, r io.Reader) io.Reader {
	return &ctxReader{ctx: ctx, r: r}
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	if err != nil {
		return n, err
	}
	if cerr := c.ctx.Err(); cerr != nil {
		return n, cerr
	}
	return n, nil
}
