package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"conversation-ingress-service/internal/observability/logging"
	"conversation-ingress-service/internal/observability/metrics"
)

// RetryPolicy bounds the reconnect behavior of a Reconnecting adapter.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

// DefaultRetryPolicy returns the reconnect budget used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BaseBackoff: 500 * time.Millisecond,
	}
}

// Reconnecting wraps an Adapter factory and transparently re-establishes the
// provider stream on transient failures, up to a bounded retry count with
// exponential backoff. When the budget is exhausted it surfaces
// ErrProviderUnavailable instead of silently dropping audio.
type Reconnecting struct {
	factory  func(ctx context.Context) (Adapter, error)
	policy   RetryPolicy
	provider string

	mu     sync.Mutex
	active Adapter
	cb     Callback
	closed bool
}

// NewReconnecting builds a Reconnecting wrapper around the given adapter factory.
func NewReconnecting(provider string, policy RetryPolicy, factory func(ctx context.Context) (Adapter, error)) *Reconnecting {
	if policy.MaxRetries <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Reconnecting{
		factory:  factory,
		policy:   policy,
		provider: provider,
	}
}

// Start establishes the initial provider stream.
func (r *Reconnecting) Start(ctx context.Context, cb Callback) error {
	r.mu.Lock()
	r.cb = cb
	r.mu.Unlock()
	return r.connect(ctx)
}

// SendAudio forwards audio to the active stream, reconnecting on transient
// failures. A non-transient failure, or exhaustion of the reconnect budget,
// returns ErrProviderUnavailable.
func (r *Reconnecting) SendAudio(ctx context.Context, audio []byte) error {
	r.mu.Lock()
	adapter := r.active
	closed := r.closed
	r.mu.Unlock()

	if closed {
		return nil
	}
	if adapter == nil {
		return fmt.Errorf("%w: no active stream", ErrProviderUnavailable)
	}

	err := adapter.SendAudio(ctx, audio)
	if err == nil {
		return nil
	}
	if !Transient(err) {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	metrics.DefaultMetrics.STTReconnects.WithLabelValues(r.provider).Inc()
	if rerr := r.connect(ctx); rerr != nil {
		return rerr
	}

	r.mu.Lock()
	adapter = r.active
	r.mu.Unlock()
	if err := adapter.SendAudio(ctx, audio); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil
}

// Close ends the active stream.
func (r *Reconnecting) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	if r.active != nil {
		return r.active.Close()
	}
	return nil
}

// connect dials the provider with exponential backoff until the retry
// budget is exhausted.
func (r *Reconnecting) connect(ctx context.Context) error {
	log := logging.WithComponent("stt").With().Str("provider", r.provider).Logger()

	var lastErr error
	backoff := r.policy.BaseBackoff

	for attempt := 0; attempt <= r.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
			log.Warn().Int("attempt", attempt).Err(lastErr).Msg("Reconnecting to STT provider")
		}

		adapter, err := r.factory(ctx)
		if err != nil {
			lastErr = err
			continue
		}

		r.mu.Lock()
		cb := r.cb
		r.mu.Unlock()

		if err := adapter.Start(ctx, cb); err != nil {
			lastErr = err
			_ = adapter.Close()
			continue
		}

		r.mu.Lock()
		if r.closed {
			// Close won the race while we were dialing; don't leak the
			// fresh stream by installing it after shutdown.
			r.mu.Unlock()
			_ = adapter.Close()
			return fmt.Errorf("%w: closed", ErrProviderUnavailable)
		}
		if r.active != nil {
			_ = r.active.Close()
		}
		r.active = adapter
		r.mu.Unlock()
		return nil
	}

	log.Error().Err(lastErr).Int("retries", r.policy.MaxRetries).Msg("STT provider unreachable, retries exhausted")
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, lastErr)
}

// Transient reports whether err is worth a reconnect attempt. gRPC stream
// resets and transport-level errors qualify; everything else does not.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if st, ok := status.FromError(err); ok {
		switch st.Code() {
		case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted, codes.Internal:
			return true
		}
	}
	return false
}
