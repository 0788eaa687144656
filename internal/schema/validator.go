// Package schema validates enrichment-agent responses against the structured
// summary and memory schemas. A response that fails validation is treated the
// same as a timeout: the caller falls back to local generation.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"conversation-ingress-service/internal/models"
)

var (
	ErrMissingTitle    = errors.New("summary missing title")
	ErrBadCategory     = errors.New("summary category outside closed set")
	ErrEmptyMemory     = errors.New("memory missing content")
	ErrBadMemoryFields = errors.New("memory category or visibility outside closed set")
)

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateSummary checks an agent-produced summary against the schema.
func (v *Validator) ValidateSummary(s *models.StructuredSummary) error {
	if s == nil {
		return errors.New("nil summary")
	}
	if strings.TrimSpace(s.Title) == "" {
		return ErrMissingTitle
	}
	if !models.ValidCategory(s.Category) {
		return fmt.Errorf("%w: %q", ErrBadCategory, s.Category)
	}
	for i, item := range s.ActionItems {
		if strings.TrimSpace(item.Description) == "" {
			return fmt.Errorf("action item %d missing description", i)
		}
	}
	for i, ev := range s.Events {
		if strings.TrimSpace(ev.Title) == "" {
			return fmt.Errorf("event %d missing title", i)
		}
		if ev.Duration < 0 {
			return fmt.Errorf("event %d has negative duration", i)
		}
	}
	return nil
}

// ValidateMemories checks agent-produced memories against the schema.
func (v *Validator) ValidateMemories(memories []models.Memory) error {
	for i, m := range memories {
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w (index %d)", ErrEmptyMemory, i)
		}
		if !models.ValidMemoryCategory(m.Category) {
			return fmt.Errorf("%w: category %q (index %d)", ErrBadMemoryFields, m.Category, i)
		}
		if m.Visibility != models.VisibilityPrivate && m.Visibility != models.VisibilityPublic {
			return fmt.Errorf("%w: visibility %q (index %d)", ErrBadMemoryFields, m.Visibility, i)
		}
	}
	return nil
}
