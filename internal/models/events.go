package models

// SegmentEvent is published to the analytics stream for every flushed segment.
type SegmentEvent struct {
	EventType      string            `json:"eventType"`
	ConversationID string            `json:"conversationId"`
	UserID         string            `json:"userId"`
	Timestamp      int64             `json:"timestamp"`
	Segment        TranscriptSegment `json:"segment"`
}

// CompletedEvent is published once when a conversation finalizes.
// Carries no transcript content; analytics only.
type CompletedEvent struct {
	EventType      string `json:"eventType"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Timestamp      int64  `json:"timestamp"`
	Status         string `json:"status"`
	Source         string `json:"source"`
	SegmentCount   int    `json:"segmentCount"`
	DurationSec    int64  `json:"durationSec"`
	Degraded       bool   `json:"degraded"`
}
