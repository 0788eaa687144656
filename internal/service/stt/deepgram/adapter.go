// Package deepgram provides a Deepgram streaming Speech-to-Text adapter.
package deepgram

import (
	"context"
	"fmt"
	"strings"

	msginterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/api/listen/v1/websocket/interfaces"
	clientinterfaces "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/interfaces"
	listen "github.com/deepgram/deepgram-go-sdk/v3/pkg/client/listen"
	"github.com/google/uuid"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/service/stt"
)

// Adapter implements stt.Adapter using the Deepgram live transcription API.
type Adapter struct {
	apiKey string
	cfg    stt.Config
	client *listen.WSCallback
	cb     stt.Callback
}

// New creates a new Deepgram adapter. The API key comes from configuration.
func New(apiKey string, cfg stt.Config) *Adapter {
	return &Adapter{apiKey: apiKey, cfg: cfg}
}

// Start opens the Deepgram WebSocket with diarization and smart formatting
// enabled. Only is_final results become segments.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	a.cb = cb

	tOptions := &clientinterfaces.LiveTranscriptionOptions{
		Model:          "nova-2",
		Language:       a.cfg.LanguageCode,
		Encoding:       deepgramEncoding(a.cfg.Encoding),
		SampleRate:     a.cfg.SampleRateHz,
		Channels:       a.cfg.Channels,
		Punctuate:      true,
		SmartFormat:    true,
		Diarize:        a.cfg.Diarize,
		InterimResults: false,
	}

	client, err := listen.NewWSUsingCallback(ctx, a.apiKey, &clientinterfaces.ClientOptions{}, tOptions, &handler{cb: cb})
	if err != nil {
		return err
	}
	if ok := client.Connect(); !ok {
		return fmt.Errorf("deepgram: websocket connect failed")
	}
	a.client = client
	return nil
}

// SendAudio forwards raw audio bytes over the live transcription socket.
func (a *Adapter) SendAudio(_ context.Context, audio []byte) error {
	if a.client == nil {
		return fmt.Errorf("deepgram: stream not started")
	}
	return a.client.WriteBinary(audio)
}

// Close tears down the live transcription socket.
func (a *Adapter) Close() error {
	if a.client != nil {
		a.client.Stop()
	}
	return nil
}

// handler receives Deepgram live messages and normalizes finals into segments.
type handler struct {
	cb stt.Callback
}

func (h *handler) Open(_ *msginterfaces.OpenResponse) error { return nil }

func (h *handler) Message(mr *msginterfaces.MessageResponse) error {
	if mr == nil || !mr.IsFinal || len(mr.Channel.Alternatives) == 0 {
		return nil
	}
	alt := mr.Channel.Alternatives[0]
	text := strings.TrimSpace(alt.Transcript)
	if text == "" {
		return nil
	}

	seg := models.TranscriptSegment{
		ID:      uuid.New().String(),
		Text:    text,
		Speaker: models.DefaultSpeaker,
		Start:   mr.Start,
		End:     mr.Start + mr.Duration,
		Source:  models.SourceDeepgram,
	}
	if len(alt.Words) > 0 {
		first := alt.Words[0]
		last := alt.Words[len(alt.Words)-1]
		seg.Start = first.Start
		seg.End = last.End
		if first.Speaker != nil {
			seg.SpeakerIndex = *first.Speaker
		}
		seg.Speaker = seg.SpeakerLabel()
	}
	if seg.End < seg.Start {
		seg.End = seg.Start
	}

	h.cb.OnSegment(seg)
	return nil
}

func (h *handler) Metadata(_ *msginterfaces.MetadataResponse) error      { return nil }
func (h *handler) SpeechStarted(_ *msginterfaces.SpeechStartedResponse) error { return nil }
func (h *handler) UtteranceEnd(_ *msginterfaces.UtteranceEndResponse) error   { return nil }
func (h *handler) Close(_ *msginterfaces.CloseResponse) error            { return nil }

func (h *handler) Error(er *msginterfaces.ErrorResponse) error {
	h.cb.OnError(fmt.Errorf("deepgram: %s: %s", er.Type, er.Description))
	return nil
}

func (h *handler) UnhandledEvent(_ []byte) error { return nil }

// deepgramEncoding maps the negotiated codec string to Deepgram's encoding
// names. Unknown values fall back to linear16.
func deepgramEncoding(enc string) string {
	switch enc {
	case "LINEAR16":
		return "linear16"
	case "MULAW":
		return "mulaw"
	case "FLAC":
		return "flac"
	case "OGG_OPUS", "WEBM_OPUS":
		return "opus"
	default:
		return "linear16"
	}
}
