package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/observability/metrics"
)

// ErrWriteFailed is returned when every write attempt has been exhausted.
// Callers treat it as a degraded completion, never as data loss they can
// recover from here.
var ErrWriteFailed = errors.New("conversation write failed after retries")

// RetryPolicy bounds persistence retries.
type RetryPolicy struct {
	MaxRetries  int
	BaseBackoff time.Duration
}

// DefaultRetryPolicy matches the session finalization budget: 3 retries with
// exponential backoff keeps the worst case under a few seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:  3,
		BaseBackoff: 200 * time.Millisecond,
	}
}

// RetryingWriter wraps a ConversationWriter with bounded retries.
type RetryingWriter struct {
	inner   ConversationWriter
	policy  RetryPolicy
	metrics *metrics.Metrics
}

// NewRetryingWriter wraps the given writer.
func NewRetryingWriter(inner ConversationWriter, policy RetryPolicy) *RetryingWriter {
	if policy.MaxRetries <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &RetryingWriter{
		inner:   inner,
		policy:  policy,
		metrics: metrics.DefaultMetrics,
	}
}

// SaveConversation attempts the write up to MaxRetries+1 times with
// exponential backoff between attempts. Context cancellation aborts the loop.
func (w *RetryingWriter) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	var lastErr error
	for attempt := 0; attempt <= w.policy.MaxRetries; attempt++ {
		if attempt > 0 {
			w.metrics.PersistenceRetries.Inc()
			backoff := w.policy.BaseBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrWriteFailed, ctx.Err())
			}
			log.Warn().
				Err(lastErr).
				Str("conversationID", conv.ID).
				Int("attempt", attempt).
				Msg("Retrying conversation write")
		}

		if lastErr = w.inner.SaveConversation(ctx, conv); lastErr == nil {
			return nil
		}
	}

	w.metrics.PersistenceFailures.Inc()
	log.Error().
		Err(lastErr).
		Str("conversationID", conv.ID).
		Int("attempts", w.policy.MaxRetries+1).
		Msg("Conversation write exhausted retries")
	return fmt.Errorf("%w: %v", ErrWriteFailed, lastErr)
}
