package llm

import (
	"context"
	"time"
)

type timeoutClient struct {
	inner Client
	d     time.Duration
}

// WithTimeout bounds every completion call. Provider calls are the only
// operations allowed to block appreciably, and never indefinitely.
func WithTimeout(c Client, d time.Duration) Client {
	if c == nil || d <= 0 {
		return c
	}
	return &timeoutClient{inner: c, d: d}
}

func (t *timeoutClient) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.inner.Complete(ctx, system, user)
}
