// Package stt defines the interface for Speech-to-Text adapters.
package stt

import (
	"context"
	"errors"

	"conversation-ingress-service/internal/models"
)

// ErrProviderUnavailable is returned once an adapter has exhausted its
// reconnect budget. Session-fatal for audio mode; the gateway decides
// whether to end the session.
var ErrProviderUnavailable = errors.New("stt provider unavailable")

// Callback receives normalized transcript segments from the STT provider.
type Callback interface {
	// OnSegment is called for every finalized utterance. Segments carry
	// conversation-relative start/end offsets and a provider source tag.
	OnSegment(seg models.TranscriptSegment)

	// OnError is called when an error occurs during transcription.
	OnError(err error)
}

// Config holds the per-session audio parameters negotiated at connect time.
type Config struct {
	LanguageCode string
	SampleRateHz int
	Encoding     string
	Channels     int
	Diarize      bool
}

// DefaultConfig returns the audio parameters assumed when the client
// does not negotiate its own.
func DefaultConfig() Config {
	return Config{
		LanguageCode: "en-US",
		SampleRateHz: 16000,
		Encoding:     "LINEAR16",
		Channels:     1,
		Diarize:      true,
	}
}

// Adapter defines the interface for STT providers (Google, Deepgram, mock).
type Adapter interface {
	// Start begins a streaming transcription session.
	Start(ctx context.Context, cb Callback) error

	// SendAudio sends raw encoded audio bytes to the STT provider.
	SendAudio(ctx context.Context, audio []byte) error

	// Close ends the session and releases resources.
	Close() error
}
