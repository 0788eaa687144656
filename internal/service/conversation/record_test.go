package conversation

import (
	"strings"
	"sync"
	"testing"

	"conversation-ingress-service/internal/models"
)

func newTestRecord() *Record {
	return New("user-1", models.SourceEdge, "en")
}

func TestRecord_InitialState(t *testing.T) {
	r := newTestRecord()

	if r.State() != StateRecording {
		t.Errorf("expected RECORDING, got %s", r.State())
	}
	if r.ID() == "" {
		t.Error("expected a conversation id")
	}
	if r.SegmentCount() != 0 {
		t.Errorf("expected 0 segments, got %d", r.SegmentCount())
	}
}

func TestRecord_AppendWhileRecording(t *testing.T) {
	r := newTestRecord()

	err := r.Append([]models.TranscriptSegment{
		{Text: "one", Start: 0, End: 1},
		{Text: "two", Start: 1, End: 2},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if r.SegmentCount() != 2 {
		t.Errorf("expected 2 segments, got %d", r.SegmentCount())
	}

	// Empty append is a no-op.
	if err := r.Append(nil); err != nil {
		t.Errorf("empty append should succeed: %v", err)
	}
}

func TestRecord_AppendAfterProcessingRejected(t *testing.T) {
	r := newTestRecord()
	if _, err := r.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	err := r.Append([]models.TranscriptSegment{{Text: "late"}})
	if err != ErrNotRecording {
		t.Errorf("expected ErrNotRecording, got %v", err)
	}
}

func TestRecord_MarkProcessingDerivesTranscript(t *testing.T) {
	r := newTestRecord()

	// Arrival order differs from temporal order.
	_ = r.Append([]models.TranscriptSegment{
		{Text: "second utterance", Speaker: "SPEAKER_1", SpeakerIndex: 1, Start: 5.0, End: 7.0},
		{Text: "first utterance", IsUser: true, Start: 1.0, End: 3.0},
	})

	transcript, err := r.MarkProcessing()
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}

	lines := strings.Split(transcript, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), transcript)
	}
	if lines[0] != "User: first utterance" {
		t.Errorf("expected temporal ordering, got first line %q", lines[0])
	}
	if lines[1] != "Speaker 1: second utterance" {
		t.Errorf("expected 'Speaker 1: second utterance', got %q", lines[1])
	}
}

func TestRecord_NonEmptySegmentsNeverYieldEmptyTranscript(t *testing.T) {
	r := newTestRecord()
	_ = r.Append([]models.TranscriptSegment{{Text: "Hello there", Start: 0, End: 1}})

	transcript, err := r.MarkProcessing()
	if err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if transcript == "" {
		t.Fatal("transcript must be non-empty when segments exist")
	}

	summary := &models.StructuredSummary{Title: "t", Category: models.CategoryOther}
	if err := r.Complete(summary, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	snap := r.Snapshot()
	if snap.Status == models.StatusCompleted && len(snap.Segments) > 0 && snap.Transcript == "" {
		t.Fatal("completed conversation has segments but empty transcript")
	}
}

func TestRecord_CompleteRequiresProcessing(t *testing.T) {
	r := newTestRecord()

	err := r.Complete(&models.StructuredSummary{}, nil)
	if err != ErrNotProcessing {
		t.Errorf("expected ErrNotProcessing, got %v", err)
	}

	if _, err := r.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := r.Complete(&models.StructuredSummary{}, nil); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	// Terminal: a second completion is rejected.
	if err := r.Complete(&models.StructuredSummary{}, nil); err != ErrTerminal {
		t.Errorf("expected ErrTerminal, got %v", err)
	}
}

func TestRecord_BeginFinalizeExactlyOnce(t *testing.T) {
	r := newTestRecord()

	const triggers = 16
	var wg sync.WaitGroup
	wins := make(chan bool, triggers)

	// Socket close and idle timeout racing, many times over.
	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wins <- r.BeginFinalize()
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for w := range wins {
		if w {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one finalization claim, got %d", won)
	}
}

func TestRecord_Discard(t *testing.T) {
	r := newTestRecord()

	if err := r.Discard(); err != nil {
		t.Fatalf("Discard failed: %v", err)
	}
	if r.State() != StateDiscarded {
		t.Errorf("expected DISCARDED, got %s", r.State())
	}
	if !r.Snapshot().Discarded {
		t.Error("expected discarded flag set")
	}
	if err := r.Discard(); err != ErrTerminal {
		t.Errorf("expected ErrTerminal on double discard, got %v", err)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{StateRecording, "RECORDING"},
		{StateProcessing, "PROCESSING"},
		{StateCompleted, "COMPLETED"},
		{StateDiscarded, "DISCARDED"},
		{State(99), "UNKNOWN(99)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.expected {
			t.Errorf("State(%d).String() = %q, want %q", int(tt.state), got, tt.expected)
		}
	}
}

func TestDeriveTranscript_Empty(t *testing.T) {
	if got := models.DeriveTranscript(nil); got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
}
