// Package edge parses structured text messages sent by on-device
// speech-to-text, bypassing cloud transcription.
package edge

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"conversation-ingress-service/internal/models"
)

// MessageType is the discriminator for valid inbound text messages.
const MessageType = "transcript_segment"

// Inbound is the decoded form of one inbound frame. Exactly one of
// AudioFrame, Segment, or Ignored.
type Inbound interface {
	isInbound()
}

// AudioFrame is a binary audio frame destined for the provider adapter.
type AudioFrame struct {
	Data []byte
}

// Segment is a validated edge transcript segment.
type Segment struct {
	Segment models.TranscriptSegment
}

// Ignored is a frame that failed validation. Not an error: the connection
// stays open and the frame is dropped.
type Ignored struct {
	Reason string
}

func (AudioFrame) isInbound() {}
func (Segment) isInbound()    {}
func (Ignored) isInbound()    {}

// wireMessage mirrors the client's JSON schema for text frames.
type wireMessage struct {
	Type        string  `json:"type"`
	Text        string  `json:"text"`
	Speaker     string  `json:"speaker"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	ASRProvider string  `json:"asr_provider"`
}

// DecodeText decodes one inbound text frame. Messages with a missing or
// unrecognized type, malformed JSON, or empty/whitespace-only text are
// silently ignored. Missing optional fields receive defaults. The client is
// responsible for sending only finalized utterances; no partial-vs-final
// deduplication happens here.
func DecodeText(data []byte) Inbound {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Ignored{Reason: "malformed"}
	}
	if msg.Type != MessageType {
		return Ignored{Reason: "unknown_type"}
	}

	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return Ignored{Reason: "empty_text"}
	}

	seg := models.TranscriptSegment{
		ID:        uuid.New().String(),
		Text:      text,
		Speaker:   msg.Speaker,
		Start:     msg.Start,
		End:       msg.End,
		Source:    models.SourceEdge,
		ASREngine: msg.ASRProvider,
	}
	if seg.Speaker == "" {
		seg.Speaker = models.DefaultSpeaker
	}
	if seg.End < seg.Start {
		seg.End = seg.Start
	}

	return Segment{Segment: seg}
}
