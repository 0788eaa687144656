package enrichment

import (
	"context"
	"time"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/observability/logging"
	"conversation-ingress-service/internal/observability/metrics"
)

// Timeouts holds the per-call deadlines for agent calls.
type Timeouts struct {
	Scan    time.Duration
	Summary time.Duration
	Memory  time.Duration
}

// DefaultTimeouts returns the deadlines used when none are configured.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Scan:    1 * time.Second,
		Summary: 30 * time.Second,
		Memory:  30 * time.Second,
	}
}

// Dispatcher wraps the agent client with timeouts and fallback so callers
// never observe enrichment failures: they get either the agent's structured
// result or the fallback's, both satisfying the same schema.
type Dispatcher struct {
	client   *Client
	timeouts Timeouts
	metrics  *metrics.Metrics
}

// NewDispatcher creates a Dispatcher around the given client.
func NewDispatcher(client *Client, timeouts Timeouts) *Dispatcher {
	if timeouts.Summary <= 0 {
		timeouts = DefaultTimeouts()
	}
	return &Dispatcher{
		client:   client,
		timeouts: timeouts,
		metrics:  metrics.DefaultMetrics,
	}
}

// ScanAsync fires an urgency scan without blocking the flush path. Failures
// are logged and otherwise ignored; never retried.
func (d *Dispatcher) ScanAsync(conversationID, userID string, segments []models.TranscriptSegment) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeouts.Scan)
		defer cancel()

		start := time.Now()
		if err := d.client.Scan(ctx, conversationID, userID, segments); err != nil {
			d.metrics.RecordEnrichment("scan", "error", time.Since(start).Seconds())
			l := logging.WithConversation(conversationID, userID)
			l.Debug().Err(err).Msg("Urgency scan failed, ignoring")
			return
		}
		d.metrics.RecordEnrichment("scan", "agent", time.Since(start).Seconds())
	}()
}

// Summarize produces the conversation's StructuredSummary: the agent's when
// it answers in time with a valid body, the local fallback's otherwise.
// The returned summary is never nil; the second return reports whether the
// fallback was used, which callers surface as a degraded completion.
func (d *Dispatcher) Summarize(ctx context.Context, conversationID, userID, transcript, language string) (*models.StructuredSummary, bool) {
	callCtx, cancel := context.WithTimeout(ctx, d.timeouts.Summary)
	defer cancel()

	start := time.Now()
	summary, err := d.client.Summarize(callCtx, conversationID, userID, transcript, language)
	if err != nil {
		d.metrics.RecordEnrichment("summary", "fallback", time.Since(start).Seconds())
		l := logging.WithConversation(conversationID, userID)
		l.Warn().Err(err).Msg("Summary agent unavailable, using local fallback")
		return FallbackSummary(transcript), true
	}
	d.metrics.RecordEnrichment("summary", "agent", time.Since(start).Seconds())
	summary.Category = models.NormalizeCategory(summary.Category)
	return summary, false
}

// ExtractMemories produces the conversation's memories with the same
// timeout/fallback pattern as Summarize. Zero memories is a legitimate
// outcome.
func (d *Dispatcher) ExtractMemories(ctx context.Context, conversationID, userID, transcript, language string) []models.Memory {
	callCtx, cancel := context.WithTimeout(ctx, d.timeouts.Memory)
	defer cancel()

	start := time.Now()
	memories, err := d.client.ExtractMemories(callCtx, conversationID, userID, transcript, language)
	if err != nil {
		d.metrics.RecordEnrichment("memory", "fallback", time.Since(start).Seconds())
		l := logging.WithConversation(conversationID, userID)
		l.Warn().Err(err).Msg("Memory agent unavailable, using local fallback")
		return FallbackMemories()
	}
	d.metrics.RecordEnrichment("memory", "agent", time.Since(start).Seconds())
	return memories
}
