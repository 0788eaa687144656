// Package conversation owns the lifecycle of a single conversation session.
package conversation

import (
	"errors"
	"fmt"

	"conversation-ingress-service/internal/models"
)

// State represents the lifecycle state of a conversation.
type State int

const (
	// StateRecording - segments are being appended, the session is live.
	StateRecording State = iota
	// StateProcessing - finalization has begun; the transcript has been
	// derived and enrichment is in flight.
	StateProcessing
	// StateCompleted - enrichment attempted (agent or fallback), terminal.
	StateCompleted
	// StateDiscarded - discarded by explicit external action, terminal.
	StateDiscarded
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateRecording:
		return "RECORDING"
	case StateProcessing:
		return "PROCESSING"
	case StateCompleted:
		return "COMPLETED"
	case StateDiscarded:
		return "DISCARDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// IsTerminal returns true if the state is terminal.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateDiscarded
}

// Status maps the state to its persisted status value.
func (s State) Status() models.Status {
	switch s {
	case StateRecording:
		return models.StatusRecording
	case StateProcessing:
		return models.StatusProcessing
	case StateCompleted:
		return models.StatusCompleted
	case StateDiscarded:
		return models.StatusDiscarded
	default:
		return models.StatusRecording
	}
}

// Errors for invalid state transitions.
var (
	ErrNotRecording  = errors.New("conversation is no longer recording")
	ErrNotProcessing = errors.New("conversation is not processing")
	ErrTerminal      = errors.New("conversation is in a terminal state")
)
