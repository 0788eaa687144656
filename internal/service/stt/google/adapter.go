// Package google provides a Google Cloud Speech-to-Text adapter.
package google

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/google/uuid"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/service/stt"
)

// Adapter implements stt.Adapter using Google Cloud Speech-to-Text.
type Adapter struct {
	client *speech.Client
	stream speechpb.Speech_StreamingRecognizeClient
	cfg    stt.Config
	cb     stt.Callback
}

// New creates a new Google STT adapter.
// Requires GOOGLE_APPLICATION_CREDENTIALS environment variable to be set.
func New(ctx context.Context, cfg stt.Config) (*Adapter, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &Adapter{client: c, cfg: cfg}, nil
}

// Start begins a streaming recognition session and sends the initial config.
// Interim results are suppressed at the adapter boundary: only final results
// become segments, so downstream consumers never see partial text.
func (a *Adapter) Start(ctx context.Context, cb stt.Callback) error {
	stream, err := a.client.StreamingRecognize(ctx)
	if err != nil {
		return err
	}
	a.stream = stream
	a.cb = cb

	recognition := &speechpb.RecognitionConfig{
		Encoding:                   parseAudioEncoding(a.cfg.Encoding),
		SampleRateHertz:            int32(a.cfg.SampleRateHz),
		AudioChannelCount:          int32(a.cfg.Channels),
		LanguageCode:               a.cfg.LanguageCode,
		EnableWordTimeOffsets:      true,
		EnableAutomaticPunctuation: true,
	}
	if a.cfg.Diarize {
		recognition.DiarizationConfig = &speechpb.SpeakerDiarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          1,
			MaxSpeakerCount:          4,
		}
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config:         recognition,
				InterimResults: false,
			},
		},
	}); err != nil {
		return err
	}

	go a.listen()
	return nil
}

// SendAudio sends audio bytes to Google Speech-to-Text.
func (a *Adapter) SendAudio(ctx context.Context, audio []byte) error {
	return a.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: audio,
		},
	})
}

// Close ends the streaming session.
func (a *Adapter) Close() error {
	if a.stream != nil {
		return a.stream.CloseSend()
	}
	return nil
}

// listen receives recognition responses and converts final results into
// normalized segments.
func (a *Adapter) listen() {
	for {
		resp, err := a.stream.Recv()
		if err != nil {
			a.cb.OnError(err)
			return
		}

		for _, r := range resp.Results {
			if !r.IsFinal || len(r.Alternatives) == 0 {
				continue
			}
			a.cb.OnSegment(toSegment(r))
		}
	}
}

// toSegment normalizes one final recognition result. Start/end offsets come
// from word timings; the speaker index comes from the first word's diarization
// tag when present.
func toSegment(r *speechpb.StreamingRecognitionResult) models.TranscriptSegment {
	alt := r.Alternatives[0]

	seg := models.TranscriptSegment{
		ID:      uuid.New().String(),
		Text:    alt.Transcript,
		Speaker: models.DefaultSpeaker,
		Source:  models.SourceGoogle,
	}

	if len(alt.Words) > 0 {
		first := alt.Words[0]
		last := alt.Words[len(alt.Words)-1]
		if first.StartTime != nil {
			seg.Start = first.StartTime.AsDuration().Seconds()
		}
		if last.EndTime != nil {
			seg.End = last.EndTime.AsDuration().Seconds()
		}
		if first.SpeakerTag > 0 {
			seg.SpeakerIndex = int(first.SpeakerTag)
			seg.Speaker = seg.SpeakerLabel()
		}
	} else if r.ResultEndTime != nil {
		seg.End = r.ResultEndTime.AsDuration().Seconds()
	}
	if seg.End < seg.Start {
		seg.End = seg.Start
	}

	return seg
}

// parseAudioEncoding maps the negotiated codec string to the Speech API enum.
// Unknown values fall back to LINEAR16.
func parseAudioEncoding(enc string) speechpb.RecognitionConfig_AudioEncoding {
	switch enc {
	case "LINEAR16":
		return speechpb.RecognitionConfig_LINEAR16
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC
	case "AMR":
		return speechpb.RecognitionConfig_AMR
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "SPEEX_WITH_HEADER_BYTE":
		return speechpb.RecognitionConfig_SPEEX_WITH_HEADER_BYTE
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_LINEAR16
	}
}
