// Package models defines the data structures for conversations and transcript segments.
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Status represents the lifecycle status of a conversation.
type Status string

const (
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusDiscarded  Status = "discarded"
)

// Segment sources.
const (
	SourceEdge     = "edge"
	SourceGoogle   = "google"
	SourceDeepgram = "deepgram"
)

// DefaultSpeaker is assigned to segments that arrive without a speaker label.
const DefaultSpeaker = "SPEAKER_0"

// TranscriptSegment is one timed utterance attributed to a speaker.
// Segments are immutable once created.
type TranscriptSegment struct {
	ID           string  `json:"id"`
	Text         string  `json:"text"`
	Speaker      string  `json:"speaker"`
	SpeakerIndex int     `json:"speaker_index"`
	IsUser       bool    `json:"is_user"`
	PersonID     string  `json:"person_id,omitempty"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
	Source       string  `json:"source"`
	// ASREngine identifies the on-device engine for edge segments.
	// Analytics only, free-form.
	ASREngine string `json:"asr_engine,omitempty"`
}

// SpeakerLabel returns the display label used in transcript text.
func (s TranscriptSegment) SpeakerLabel() string {
	if s.IsUser {
		return "User"
	}
	return fmt.Sprintf("Speaker %d", s.SpeakerIndex)
}

// Conversation is the aggregate a session produces.
type Conversation struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Status     Status              `json:"status"`
	CreatedAt  time.Time           `json:"created_at"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Language   string              `json:"language"`
	Segments   []TranscriptSegment `json:"segments"`
	Transcript string              `json:"transcript"`
	Summary    *StructuredSummary  `json:"summary,omitempty"`
	Memories   []Memory            `json:"memories,omitempty"`
	// Source tags the session mode for analytics: edge or the cloud provider name.
	Source    string `json:"source"`
	Discarded bool   `json:"discarded"`
}

// DeriveTranscript builds the transcript text from a segment list.
// Segments are ordered by start offset (stable, so arrival order is
// preserved for equal offsets) and rendered one line per utterance.
func DeriveTranscript(segments []TranscriptSegment) string {
	if len(segments) == 0 {
		return ""
	}

	ordered := make([]TranscriptSegment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	var sb strings.Builder
	for _, seg := range ordered {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", seg.SpeakerLabel(), text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
