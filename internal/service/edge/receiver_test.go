package edge

import (
	"testing"

	"conversation-ingress-service/internal/models"
)

func TestDecodeText_ValidSegment(t *testing.T) {
	in := DecodeText([]byte(`{"type":"transcript_segment","text":"Hello there","speaker":"SPEAKER_1","start":1.5,"end":3.2,"asr_provider":"whisper-tiny"}`))

	seg, ok := in.(Segment)
	if !ok {
		t.Fatalf("expected Segment, got %T", in)
	}
	if seg.Segment.Text != "Hello there" {
		t.Errorf("expected text 'Hello there', got %q", seg.Segment.Text)
	}
	if seg.Segment.Speaker != "SPEAKER_1" {
		t.Errorf("expected speaker 'SPEAKER_1', got %q", seg.Segment.Speaker)
	}
	if seg.Segment.Start != 1.5 || seg.Segment.End != 3.2 {
		t.Errorf("expected offsets 1.5/3.2, got %v/%v", seg.Segment.Start, seg.Segment.End)
	}
	if seg.Segment.Source != models.SourceEdge {
		t.Errorf("expected source edge, got %q", seg.Segment.Source)
	}
	if seg.Segment.ASREngine != "whisper-tiny" {
		t.Errorf("expected asr engine 'whisper-tiny', got %q", seg.Segment.ASREngine)
	}
	if seg.Segment.ID == "" {
		t.Error("expected non-empty segment id")
	}
}

func TestDecodeText_Defaults(t *testing.T) {
	in := DecodeText([]byte(`{"type":"transcript_segment","text":"Hello there"}`))

	seg, ok := in.(Segment)
	if !ok {
		t.Fatalf("expected Segment, got %T", in)
	}
	if seg.Segment.Speaker != models.DefaultSpeaker {
		t.Errorf("expected default speaker, got %q", seg.Segment.Speaker)
	}
	if seg.Segment.Start != 0 || seg.Segment.End != 0 {
		t.Errorf("expected zero offsets, got %v/%v", seg.Segment.Start, seg.Segment.End)
	}
	if seg.Segment.IsUser {
		t.Error("expected is_user to default to false")
	}
}

func TestDecodeText_Ignored(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		reason string
	}{
		{"empty text", `{"type":"transcript_segment","text":""}`, "empty_text"},
		{"whitespace text", `{"type":"transcript_segment","text":"   \t "}`, "empty_text"},
		{"missing type", `{"text":"hello"}`, "unknown_type"},
		{"unknown type", `{"type":"ping","text":"hello"}`, "unknown_type"},
		{"malformed json", `{"type":`, "malformed"},
		{"not json", `hello world`, "malformed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := DecodeText([]byte(tt.data))
			ignored, ok := in.(Ignored)
			if !ok {
				t.Fatalf("expected Ignored, got %T", in)
			}
			if ignored.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, ignored.Reason)
			}
		})
	}
}

func TestDecodeText_EndBeforeStartClamped(t *testing.T) {
	in := DecodeText([]byte(`{"type":"transcript_segment","text":"hi","start":5,"end":2}`))

	seg, ok := in.(Segment)
	if !ok {
		t.Fatalf("expected Segment, got %T", in)
	}
	if seg.Segment.End < seg.Segment.Start {
		t.Errorf("expected end clamped to start, got %v/%v", seg.Segment.Start, seg.Segment.End)
	}
}
