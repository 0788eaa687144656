// Package mock provides a mock STT adapter for testing without cloud
// credentials. It emits one scripted segment per audio frame received,
// simulating a provider that finalizes utterances as audio arrives.
package mock

import (
	"context"
	"fmt"
	"sync"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/service/stt"
)

// ScriptedSegment is one utterance the adapter will emit.
type ScriptedSegment struct {
	Text         string
	SpeakerIndex int
	IsUser       bool
	Start        float64
	End          float64
}

// DefaultScript provides sample utterances for simulation.
var DefaultScript = []ScriptedSegment{
	{Text: "Hey, did you get a chance to look at the numbers?", SpeakerIndex: 0, IsUser: true, Start: 0.4, End: 3.1},
	{Text: "I did, revenue is up twelve percent this quarter.", SpeakerIndex: 1, Start: 3.6, End: 6.9},
	{Text: "Great, let's schedule a review on Friday.", SpeakerIndex: 0, IsUser: true, Start: 7.2, End: 9.8},
}

// Adapter implements stt.Adapter with scripted responses.
type Adapter struct {
	mu      sync.Mutex
	script  []ScriptedSegment
	next    int
	cb      stt.Callback
	started bool
	closed  bool

	// FailSendAfter, when > 0, makes SendAudio return failErr once that many
	// frames have been accepted. Used to exercise provider failure paths.
	FailSendAfter int
	FailErr       error

	frames int
}

// New creates a mock adapter that plays back the default script.
func New() *Adapter {
	return NewScripted(DefaultScript)
}

// NewScripted creates a mock adapter that plays back the given script.
func NewScripted(script []ScriptedSegment) *Adapter {
	return &Adapter{script: script}
}

// Start begins a mock transcription session.
func (a *Adapter) Start(_ context.Context, cb stt.Callback) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
	a.started = true
	return nil
}

// SendAudio consumes one audio frame and emits the next scripted segment,
// if any remain.
func (a *Adapter) SendAudio(_ context.Context, _ []byte) error {
	a.mu.Lock()

	if a.closed || a.cb == nil {
		a.mu.Unlock()
		return nil
	}

	a.frames++
	if a.FailSendAfter > 0 && a.frames > a.FailSendAfter {
		err := a.FailErr
		a.mu.Unlock()
		if err == nil {
			err = stt.ErrProviderUnavailable
		}
		return err
	}

	if a.next >= len(a.script) {
		a.mu.Unlock()
		return nil
	}
	scripted := a.script[a.next]
	a.next++
	cb := a.cb
	id := fmt.Sprintf("mock-seg-%d", a.next)
	a.mu.Unlock()

	seg := models.TranscriptSegment{
		ID:           id,
		Text:         scripted.Text,
		SpeakerIndex: scripted.SpeakerIndex,
		IsUser:       scripted.IsUser,
		Start:        scripted.Start,
		End:          scripted.End,
		Source:       "mock",
	}
	seg.Speaker = seg.SpeakerLabel()

	cb.OnSegment(seg)
	return nil
}

// Close ends the mock session.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

// Started reports whether Start was called.
func (a *Adapter) Started() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.started
}

// Closed reports whether Close was called.
func (a *Adapter) Closed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// Emitted returns how many scripted segments have been emitted so far.
func (a *Adapter) Emitted() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.next
}
