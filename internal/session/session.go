package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"conversation-ingress-service/internal/events"
	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/observability/logging"
	"conversation-ingress-service/internal/observability/metrics"
	"conversation-ingress-service/internal/service/buffer"
	"conversation-ingress-service/internal/service/conversation"
	"conversation-ingress-service/internal/service/edge"
	"conversation-ingress-service/internal/service/enrichment"
	"conversation-ingress-service/internal/service/stt"
	"conversation-ingress-service/internal/store"
)

// Conn is the subset of the WebSocket connection the session uses.
// *websocket.Conn satisfies it; tests substitute scripted connections.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteJSON(v any) error
	Close() error
}

// Config holds the per-session timing knobs.
type Config struct {
	FlushInterval time.Duration
	IdleTimeout   time.Duration
	PersistBudget time.Duration
}

// DefaultConfig returns the production timing: 600 ms flush cadence,
// 120 s idle timeout.
func DefaultConfig() Config {
	return Config{
		FlushInterval: 600 * time.Millisecond,
		IdleTimeout:   120 * time.Second,
		PersistBudget: 30 * time.Second,
	}
}

// Deps are the shared collaborators a session is wired with. All of them are
// safe for concurrent use across sessions.
type Deps struct {
	Enricher  *enrichment.Dispatcher
	Writer    store.ConversationWriter
	Publisher *events.Publisher
}

// Session drives one live connection. Two goroutines share it: the inbound
// message loop (audio frames and edge segments) and the timer loop (flush
// cadence and idle check). They share only the buffer and the conversation
// record, both concurrency-safe. Finalization may be triggered by either
// goroutine and by the provider error callback; conversation.BeginFinalize
// coalesces the triggers so the sequence runs exactly once.
type Session struct {
	id      string
	params  Params
	cfg     Config
	conn    Conn
	adapter stt.Adapter
	record  *conversation.Record
	buf     *buffer.Buffer
	deps    Deps
	metrics *metrics.Metrics
	log     zerolog.Logger

	// flushMu serializes timer flushes against the final flush so no
	// batch can land after the transcript has been derived.
	flushMu sync.Mutex

	lastActivity atomic.Int64
	startedAt    time.Time
	stopTimer    chan struct{}
	finalDone    chan struct{}
	finalStatus  string
}

// New builds a session around an upgraded connection. The adapter is nil in
// edge mode.
func New(conn Conn, params Params, adapter stt.Adapter, deps Deps, cfg Config) *Session {
	if cfg.FlushInterval <= 0 {
		cfg = DefaultConfig()
	}
	s := &Session{
		id:        uuid.New().String(),
		params:    params,
		cfg:       cfg,
		conn:      conn,
		adapter:   adapter,
		record:    conversation.New(params.UserID, sourceTag(params), params.Language),
		buf:       buffer.New(),
		deps:      deps,
		metrics:   metrics.DefaultMetrics,
		startedAt: time.Now(),
		stopTimer: make(chan struct{}),
		finalDone: make(chan struct{}),
	}
	s.log = logging.WithSession(s.id, params.UserID).With().
		Str("conversationId", s.record.ID()).
		Str("mode", params.Mode).
		Logger()
	s.touch()
	return s
}

func sourceTag(p Params) string {
	if p.Mode == ModeEdge {
		return models.SourceEdge
	}
	if p.Provider != "" {
		return p.Provider
	}
	return p.Mode
}

// ConversationID returns the id of the conversation this session produces.
func (s *Session) ConversationID() string {
	return s.record.ID()
}

// FinalStatusValue reports the status sent in the final frame. Valid only
// after Run returns.
func (s *Session) FinalStatusValue() string {
	return s.finalStatus
}

// Run executes the session until the connection closes, the idle timeout
// fires, or the provider becomes unavailable. It returns after the
// finalization sequence has completed.
func (s *Session) Run(ctx context.Context) {
	s.metrics.RecordSessionStart()
	s.log.Info().Msg("Session started")

	if s.adapter != nil {
		if err := s.adapter.Start(ctx, s); err != nil {
			s.log.Error().Err(err).Msg("Provider start failed")
			s.finalize(ctx, "provider_unavailable")
			<-s.finalDone
			return
		}
	}

	go s.timerLoop(ctx)
	s.readLoop(ctx)
	<-s.finalDone
}

// readLoop consumes inbound frames until the connection errors out.
func (s *Session) readLoop(ctx context.Context) {
	for {
		messageType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.Debug().Err(err).Msg("Connection closed")
			s.finalize(ctx, "disconnect")
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			s.handleAudio(ctx, data)
		case websocket.TextMessage:
			s.handleText(data)
		}
	}
}

func (s *Session) handleAudio(ctx context.Context, data []byte) {
	if s.adapter == nil {
		// Edge sessions have no provider; binary frames are dropped.
		return
	}
	s.metrics.RecordAudioReceived(len(data))
	if err := s.adapter.SendAudio(ctx, data); err != nil {
		if errors.Is(err, stt.ErrProviderUnavailable) {
			s.log.Error().Err(err).Msg("Provider unavailable, ending session")
			s.finalize(ctx, "provider_unavailable")
			return
		}
		s.log.Warn().Err(err).Msg("Audio frame dropped")
	}
}

func (s *Session) handleText(data []byte) {
	switch in := edge.DecodeText(data).(type) {
	case edge.Segment:
		s.buf.Enqueue(in.Segment)
		s.touch()
		s.metrics.RecordSegment(in.Segment.Source)
	case edge.Ignored:
		s.log.Debug().Str("reason", in.Reason).Msg("Inbound text frame ignored")
	}
}

// OnSegment implements stt.Callback: provider segments enter the same buffer
// as edge segments.
func (s *Session) OnSegment(seg models.TranscriptSegment) {
	s.buf.Enqueue(seg)
	s.touch()
	s.metrics.RecordSegment(seg.Source)
}

// OnError implements stt.Callback.
func (s *Session) OnError(err error) {
	if errors.Is(err, stt.ErrProviderUnavailable) {
		go s.finalize(context.Background(), "provider_unavailable")
		return
	}
	s.log.Warn().Err(err).Msg("Provider stream error")
	s.metrics.RecordSTTError(s.params.Provider, "stream")
}

func (s *Session) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

func (s *Session) idleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// timerLoop drives the flush cadence and the idle check.
func (s *Session) timerLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush(ctx)
			if s.idleFor() >= s.cfg.IdleTimeout {
				s.log.Info().Dur("idle", s.idleFor()).Msg("Idle timeout reached")
				s.finalize(ctx, "idle_timeout")
				return
			}
		case <-s.stopTimer:
			return
		case <-ctx.Done():
			s.finalize(context.Background(), "shutdown")
			return
		}
	}
}

// flush drains the buffer into the conversation, pushes the batch to the
// client, publishes segment events, and fires the urgency scan. Empty drains
// are no-ops.
func (s *Session) flush(ctx context.Context) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	segs := s.buf.Drain()
	if len(segs) == 0 {
		return
	}

	if err := s.record.Append(segs); err != nil {
		// Finalization won the race; the final flush already ran.
		s.log.Warn().Err(err).Int("segments", len(segs)).Msg("Flush after finalization dropped")
		return
	}
	s.metrics.RecordFlush(len(segs))

	if err := s.conn.WriteJSON(NewSegmentUpdate(s.record.ID(), segs)); err != nil {
		s.log.Debug().Err(err).Msg("Transcript update push failed")
	}

	for _, seg := range segs {
		event := models.SegmentEvent{
			ConversationID: s.record.ID(),
			UserID:         s.params.UserID,
			Timestamp:      time.Now().UnixMilli(),
			Segment:        seg,
		}
		if err := s.deps.Publisher.PublishSegment(ctx, event); err != nil {
			s.log.Warn().Err(err).Msg("Segment event publish failed")
		}
	}

	s.deps.Enricher.ScanAsync(s.record.ID(), s.params.UserID, segs)
}

// finalize runs the end-of-session sequence exactly once: stop the timer,
// force a final flush, derive the transcript, enrich with fallback bounds,
// persist with bounded retry, report the final status, publish the completed
// event. Safe to call from any goroutine; losers of the race return
// immediately.
func (s *Session) finalize(ctx context.Context, reason string) {
	if !s.record.BeginFinalize() {
		return
	}
	defer close(s.finalDone)

	s.log.Info().Str("reason", reason).Msg("Finalizing session")
	close(s.stopTimer)

	if s.adapter != nil {
		if err := s.adapter.Close(); err != nil {
			s.log.Warn().Err(err).Msg("Provider close failed")
		}
	}

	// Final synchronous flush: nothing enqueued before this point may be
	// lost between the last tick and session end.
	s.flush(ctx)

	transcript, err := s.record.MarkProcessing()
	if err != nil {
		s.log.Error().Err(err).Msg("Processing transition failed")
	}

	// Enrichment carries its own deadlines and never fails: it yields the
	// agent's result or the local fallback.
	enrichCtx := context.Background()
	summary, summaryFallback := s.deps.Enricher.Summarize(enrichCtx, s.record.ID(), s.params.UserID, transcript, s.params.Language)
	memories := s.deps.Enricher.ExtractMemories(enrichCtx, s.record.ID(), s.params.UserID, transcript, s.params.Language)

	if err := s.record.Complete(summary, memories); err != nil {
		s.log.Error().Err(err).Msg("Completion transition failed")
	}

	// A fallback summary is a degraded completion: the conversation is
	// intact but the enrichment the client expects came from the local
	// generator instead of the agent.
	status := StatusOK
	if summaryFallback {
		status = StatusDegraded
	}
	if reason == "provider_unavailable" {
		status = StatusError
	}

	snapshot := s.record.Snapshot()
	persistCtx, cancel := context.WithTimeout(context.Background(), s.cfg.PersistBudget)
	defer cancel()
	persistErr := s.deps.Writer.SaveConversation(persistCtx, &snapshot)
	if persistErr != nil {
		s.log.Error().Err(persistErr).Msg("Conversation persistence failed")
		if status == StatusOK {
			status = StatusDegraded
		}
	}

	if err := s.conn.WriteJSON(NewFinalStatus(s.record.ID(), status, reason)); err != nil {
		s.log.Debug().Err(err).Msg("Final status push failed")
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug().Err(err).Msg("Connection close failed")
	}

	completed := models.CompletedEvent{
		ConversationID: snapshot.ID,
		UserID:         snapshot.UserID,
		Timestamp:      time.Now().UnixMilli(),
		Status:         string(snapshot.Status),
		Source:         snapshot.Source,
		SegmentCount:   len(snapshot.Segments),
		DurationSec:    int64(time.Since(s.startedAt).Seconds()),
		Degraded:       persistErr != nil || summaryFallback,
	}
	if err := s.deps.Publisher.PublishCompleted(context.Background(), completed); err != nil {
		s.log.Warn().Err(err).Msg("Completed event publish failed")
	}

	s.finalStatus = status
	s.metrics.RecordSessionEnd(status, time.Since(s.startedAt).Seconds())
	s.log.Info().
		Str("status", status).
		Int("segments", len(snapshot.Segments)).
		Msg("Session finalized")
}
