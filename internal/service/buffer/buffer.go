// Package buffer provides the per-session realtime segment buffer.
package buffer

import (
	"sync"

	"conversation-ingress-service/internal/models"
)

// Buffer accumulates normalized segments between flush ticks. One instance
// per active session; safe for concurrent use by the receive path and the
// flush timer.
type Buffer struct {
	mu       sync.Mutex
	pending  []models.TranscriptSegment
	enqueued uint64
	drained  uint64
}

// New creates an empty buffer.
func New() *Buffer {
	return &Buffer{}
}

// Enqueue appends a segment to the pending list. Non-blocking.
func (b *Buffer) Enqueue(seg models.TranscriptSegment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending = append(b.pending, seg)
	b.enqueued++
}

// Drain atomically removes and returns all pending segments in arrival
// order. Returns nil when the buffer is empty; an empty drain is always safe.
func (b *Buffer) Drain() []models.TranscriptSegment {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.pending) == 0 {
		return nil
	}
	batch := b.pending
	b.pending = nil
	b.drained += uint64(len(batch))
	return batch
}

// Len returns the number of pending segments.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}

// Counts returns the lifetime enqueued and drained totals. Used to verify
// that no segment is dropped or duplicated across flush boundaries.
func (b *Buffer) Counts() (enqueued, drained uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enqueued, b.drained
}
