// Package session owns one live client connection: the inbound message
// loop, the periodic flush timer, and the finalization sequence.
package session

import (
	"errors"
	"net/url"
	"strconv"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/service/stt"
)

// Session modes. Edge sessions carry pre-transcribed text; audio sessions
// stream encoded frames through a cloud provider adapter.
const (
	ModeAudio = "audio"
	ModeEdge  = "edge"
)

// Final status values reported to the client.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusError    = "error"
)

// ErrMissingUserID is returned when a connection omits the uid parameter.
var ErrMissingUserID = errors.New("missing uid parameter")

// Params are the connection parameters negotiated via query string.
type Params struct {
	UserID   string
	Mode     string
	Language string
	// Provider is the configured cloud STT provider name; set by the
	// gateway, not the client. Empty in edge mode.
	Provider string
	Audio    stt.Config
}

// ParseParams extracts session parameters from the request query. A session
// is an audio session when it negotiates an audio format; `codec=edge` or a
// query with no audio format params selects edge mode. Omitted audio format
// fields fall back to the adapter defaults.
func ParseParams(q url.Values) (Params, error) {
	uid := q.Get("uid")
	if uid == "" {
		return Params{}, ErrMissingUserID
	}

	p := Params{
		UserID:   uid,
		Mode:     ModeAudio,
		Language: q.Get("language"),
		Audio:    stt.DefaultConfig(),
	}
	codec := q.Get("codec")
	if codec == ModeEdge || (codec == "" && q.Get("sample_rate") == "" && q.Get("channels") == "") {
		p.Mode = ModeEdge
	}
	if p.Language == "" {
		p.Language = "en-US"
	}
	p.Audio.LanguageCode = p.Language

	if v := q.Get("sample_rate"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Audio.SampleRateHz = n
		}
	}
	if codec != "" && codec != ModeEdge {
		p.Audio.Encoding = codec
	}
	if v := q.Get("channels"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Audio.Channels = n
		}
	}
	return p, nil
}

// SegmentUpdate is pushed to the client on every non-empty flush.
type SegmentUpdate struct {
	Type           string                     `json:"type"`
	ConversationID string                     `json:"conversation_id"`
	Segments       []models.TranscriptSegment `json:"segments"`
}

// FinalStatus is the last message a session sends before the connection
// closes: ok when everything succeeded, degraded when the conversation
// completed but the summary came from the local fallback or persistence
// exhausted retries, error when the session ended without a usable
// conversation.
type FinalStatus struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
}

// NewSegmentUpdate builds an outbound segment update frame.
func NewSegmentUpdate(conversationID string, segments []models.TranscriptSegment) SegmentUpdate {
	return SegmentUpdate{
		Type:           "segment_update",
		ConversationID: conversationID,
		Segments:       segments,
	}
}

// NewFinalStatus builds the outbound final status frame.
func NewFinalStatus(conversationID, status, reason string) FinalStatus {
	return FinalStatus{
		Type:           "final_status",
		ConversationID: conversationID,
		Status:         status,
		Reason:         reason,
	}
}
