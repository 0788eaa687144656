package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conversation-ingress-service/internal/models"
)

// flakyWriter fails the first failures calls, then succeeds.
type flakyWriter struct {
	failures int
	calls    int
	saved    []*models.Conversation
}

func (w *flakyWriter) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	w.calls++
	if w.calls <= w.failures {
		return errors.New("connection refused")
	}
	w.saved = append(w.saved, conv)
	return nil
}

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseBackoff: time.Millisecond}
}

func TestRetryingWriter_SucceedsFirstTry(t *testing.T) {
	inner := &flakyWriter{}
	w := NewRetryingWriter(inner, fastPolicy())

	err := w.SaveConversation(context.Background(), &models.Conversation{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryingWriter_RecoversAfterFailures(t *testing.T) {
	inner := &flakyWriter{failures: 2}
	w := NewRetryingWriter(inner, fastPolicy())

	err := w.SaveConversation(context.Background(), &models.Conversation{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
	require.Len(t, inner.saved, 1)
}

func TestRetryingWriter_ExhaustsRetries(t *testing.T) {
	inner := &flakyWriter{failures: 100}
	w := NewRetryingWriter(inner, fastPolicy())

	err := w.SaveConversation(context.Background(), &models.Conversation{ID: "c1"})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Equal(t, 4, inner.calls, "initial attempt plus MaxRetries")
}

func TestRetryingWriter_ContextCancelAbortsBackoff(t *testing.T) {
	inner := &flakyWriter{failures: 100}
	w := NewRetryingWriter(inner, RetryPolicy{MaxRetries: 3, BaseBackoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := w.SaveConversation(ctx, &models.Conversation{ID: "c1"})
	assert.ErrorIs(t, err, ErrWriteFailed)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, inner.calls)
}
