package conversation

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"conversation-ingress-service/internal/models"
)

// Record is the in-memory aggregate for one conversation session.
// Thread-safe for concurrent access from exactly two callers: the message
// loop (appends via the buffer flush) and the session timer (flush and
// finalization triggers).
//
// State transitions:
//
//	RECORDING → PROCESSING → COMPLETED
//	                       → DISCARDED
//
// BeginFinalize is a single-assignment guard: concurrent finalization
// triggers (socket close racing the idle timeout) are coalesced so the
// finalization sequence runs exactly once.
type Record struct {
	mu    sync.Mutex
	state State
	conv  models.Conversation

	finalizing atomic.Bool
}

// New creates a Record in RECORDING state. The conversation id is assigned
// here; started-at is the moment the session produced its first segment
// candidate, which for this pipeline is session start.
func New(userID, source, language string) *Record {
	now := time.Now().UTC()
	return &Record{
		state: StateRecording,
		conv: models.Conversation{
			ID:        uuid.New().String(),
			UserID:    userID,
			Status:    models.StatusRecording,
			CreatedAt: now,
			StartedAt: now,
			Language:  language,
			Source:    source,
		},
	}
}

// ID returns the conversation id.
func (r *Record) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conv.ID
}

// State returns the current lifecycle state.
func (r *Record) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Append adds a flushed batch to the conversation's segment list, preserving
// batch order. Appends after recording has ended are rejected so the
// finalized transcript can never silently diverge from the segment list.
func (r *Record) Append(segs []models.TranscriptSegment) error {
	if len(segs) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return ErrNotRecording
	}
	r.conv.Segments = append(r.conv.Segments, segs...)
	return nil
}

// SegmentCount returns the number of segments appended so far.
func (r *Record) SegmentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conv.Segments)
}

// Segments returns a copy of the segment list in append order.
func (r *Record) Segments() []models.TranscriptSegment {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.TranscriptSegment, len(r.conv.Segments))
	copy(out, r.conv.Segments)
	return out
}

// BeginFinalize claims the finalization sequence. Exactly one caller ever
// receives true; every concurrent or later trigger receives false.
func (r *Record) BeginFinalize() bool {
	return r.finalizing.CompareAndSwap(false, true)
}

// MarkProcessing transitions RECORDING → PROCESSING and (re)derives the
// transcript text from the ordered segment list. Must run after the final
// buffer flush and before any enrichment call: a conversation must never be
// persisted as completed with non-empty segments and an empty transcript.
func (r *Record) MarkProcessing() (transcript string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRecording {
		return "", ErrNotRecording
	}
	r.state = StateProcessing
	r.conv.Status = models.StatusProcessing
	r.conv.Transcript = models.DeriveTranscript(r.conv.Segments)
	return r.conv.Transcript, nil
}

// Complete transitions PROCESSING → COMPLETED and attaches the enrichment
// results. The summary is required (the fallback generator guarantees one);
// memories may be empty.
func (r *Record) Complete(summary *models.StructuredSummary, memories []models.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.IsTerminal() {
		return ErrTerminal
	}
	if r.state != StateProcessing {
		return ErrNotProcessing
	}
	r.state = StateCompleted
	r.conv.Status = models.StatusCompleted
	r.conv.Summary = summary
	r.conv.Memories = memories
	r.conv.FinishedAt = time.Now().UTC()
	return nil
}

// Discard marks the conversation discarded. Terminal; only explicit external
// action calls this, never the pipeline itself.
func (r *Record) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.IsTerminal() {
		return ErrTerminal
	}
	r.state = StateDiscarded
	r.conv.Status = models.StatusDiscarded
	r.conv.Discarded = true
	r.conv.FinishedAt = time.Now().UTC()
	return nil
}

// Snapshot returns a deep-enough copy of the conversation for persistence
// and event publishing.
func (r *Record) Snapshot() models.Conversation {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.conv
	out.Segments = make([]models.TranscriptSegment, len(r.conv.Segments))
	copy(out.Segments, r.conv.Segments)
	if r.conv.Summary != nil {
		s := *r.conv.Summary
		out.Summary = &s
	}
	out.Memories = make([]models.Memory, len(r.conv.Memories))
	copy(out.Memories, r.conv.Memories)
	return out
}
