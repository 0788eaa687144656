package stt

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/observability/metrics"
)

type nopCallback struct{}

func (nopCallback) OnSegment(models.TranscriptSegment) {}
func (nopCallback) OnError(error)                      {}

// flakyAdapter fails SendAudio a fixed number of times across instances.
type flakyAdapter struct {
	mu        *sync.Mutex
	sendFails *int
	sent      *int
}

func (f *flakyAdapter) Start(context.Context, Callback) error { return nil }

func (f *flakyAdapter) SendAudio(context.Context, []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if *f.sendFails > 0 {
		*f.sendFails--
		return io.EOF
	}
	*f.sent++
	return nil
}

func (f *flakyAdapter) Close() error { return nil }

func fastPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseBackoff: time.Millisecond}
}

func TestReconnecting_RecoversFromTransientSendFailure(t *testing.T) {
	var mu sync.Mutex
	sendFails := 1
	sent := 0

	r := NewReconnecting("flaky", fastPolicy(), func(context.Context) (Adapter, error) {
		return &flakyAdapter{mu: &mu, sendFails: &sendFails, sent: &sent}, nil
	})

	reconnects := func() float64 {
		return testutil.ToFloat64(metrics.DefaultMetrics.STTReconnects.WithLabelValues("flaky"))
	}
	before := reconnects()

	ctx := context.Background()
	if err := r.Start(ctx, nopCallback{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := r.SendAudio(ctx, []byte("audio")); err != nil {
		t.Fatalf("SendAudio should recover via reconnect: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if sent != 1 {
		t.Errorf("expected 1 delivered frame, got %d", sent)
	}
	if got := reconnects() - before; got < 1 {
		t.Errorf("expected the reconnect counter to advance, delta %v", got)
	}
}

func TestReconnecting_ExhaustedRetriesSurfaceProviderUnavailable(t *testing.T) {
	dialErr := errors.New("dial refused")
	attempts := 0

	r := NewReconnecting("test", fastPolicy(), func(context.Context) (Adapter, error) {
		attempts++
		return nil, dialErr
	})

	err := r.Start(context.Background(), nopCallback{})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if attempts != 4 { // initial attempt + 3 retries
		t.Errorf("expected 4 dial attempts, got %d", attempts)
	}
}

func TestReconnecting_NonTransientSendErrorIsFatal(t *testing.T) {
	fatal := status.Error(codes.InvalidArgument, "bad encoding")
	dials := 0

	r := NewReconnecting("test", fastPolicy(), func(context.Context) (Adapter, error) {
		dials++
		return &staticErrAdapter{err: fatal}, nil
	})

	ctx := context.Background()
	if err := r.Start(ctx, nopCallback{}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	err := r.SendAudio(ctx, []byte("audio"))
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
	if dials != 1 {
		t.Errorf("non-transient error must not trigger reconnect, got %d dials", dials)
	}
}

type trackingAdapter struct {
	mu     sync.Mutex
	closed bool
}

func (a *trackingAdapter) Start(context.Context, Callback) error   { return nil }
func (a *trackingAdapter) SendAudio(context.Context, []byte) error { return nil }

func (a *trackingAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *trackingAdapter) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func TestReconnecting_CloseDuringDialDoesNotLeakStream(t *testing.T) {
	fresh := &trackingAdapter{}
	var r *Reconnecting
	r = NewReconnecting("test", fastPolicy(), func(context.Context) (Adapter, error) {
		// Shutdown races the dial: Close lands before the fresh stream
		// can be installed.
		_ = r.Close()
		return fresh, nil
	})

	err := r.Start(context.Background(), nopCallback{})
	if !errors.Is(err, ErrProviderUnavailable) {
		t.Fatalf("dial completing after Close must not report success, got %v", err)
	}
	if !fresh.isClosed() {
		t.Error("stream dialed after Close must be closed, not leaked")
	}

	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active != nil {
		t.Error("no stream may be installed after Close")
	}
}

type staticErrAdapter struct{ err error }

func (s *staticErrAdapter) Start(context.Context, Callback) error     { return nil }
func (s *staticErrAdapter) SendAudio(context.Context, []byte) error   { return s.err }
func (s *staticErrAdapter) Close() error                              { return nil }

func TestTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"eof", io.EOF, true},
		{"unavailable", status.Error(codes.Unavailable, "down"), true},
		{"deadline", status.Error(codes.DeadlineExceeded, "slow"), true},
		{"invalid argument", status.Error(codes.InvalidArgument, "bad"), false},
		{"plain", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Transient(tt.err); got != tt.expected {
				t.Errorf("Transient(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}
