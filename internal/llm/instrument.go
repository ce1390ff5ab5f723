package llm

import (
	"context"
	"time"
)

// CallRecorder observes provider round-trip latency.
type CallRecorder interface {
	RecordProviderCall(provider string, duration time.Duration)
}

type timedClient struct {
	inner    Client
	provider string
	rec      CallRecorder
}

// WithCallTiming records the duration of every completion, failed ones
// included. Wrap it around WithTimeout so the observation covers the
// full bounded call.
func WithCallTiming(c Client, provider string, rec CallRecorder) Client {
	if c == nil || rec == nil {
		return c
	}
	return &timedClient{inner: c, provider: provider, rec: rec}
}

func (t *timedClient) Complete(ctx context.Context, system, user string) (string, error) {
	start := time.Now()
	text, err := t.inner.Complete(ctx, system, user)
	t.rec.RecordProviderCall(t.provider, time.Since(start))
	return text, err
}
