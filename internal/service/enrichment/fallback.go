package enrichment

import (
	"strings"

	"conversation-ingress-service/internal/models"
)

const (
	fallbackEmoji    = "🧠"
	fallbackTitle    = "Untitled Conversation"
	titleMaxWords    = 8
	overviewMaxRunes = 280
)

// FallbackSummary deterministically generates a schema-valid summary from a
// transcript. Always available; used whenever the agent times out, errors,
// or returns a body that fails validation. An empty transcript still yields
// a minimal valid summary.
func FallbackSummary(transcript string) *models.StructuredSummary {
	title := fallbackTitle
	overview := ""

	if line := firstUtterance(transcript); line != "" {
		words := strings.Fields(line)
		if len(words) > titleMaxWords {
			words = words[:titleMaxWords]
		}
		title = strings.Join(words, " ")
		overview = truncateRunes(flatten(transcript), overviewMaxRunes)
	}

	return &models.StructuredSummary{
		Title:       title,
		Overview:    overview,
		Emoji:       fallbackEmoji,
		Category:    models.CategoryOther,
		ActionItems: []models.ActionItem{},
		Events:      []models.CalendarEvent{},
	}
}

// FallbackMemories is the local substitute for memory extraction. Memory
// extraction has no deterministic local equivalent, so the fallback is an
// empty set; a conversation may legitimately complete with zero memories.
func FallbackMemories() []models.Memory {
	return nil
}

// firstUtterance returns the text of the first transcript line, with the
// speaker label stripped.
func firstUtterance(transcript string) string {
	for _, line := range strings.Split(transcript, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.Index(line, ": "); idx >= 0 {
			line = line[idx+2:]
		}
		if line != "" {
			return line
		}
	}
	return ""
}

func flatten(transcript string) string {
	return strings.Join(strings.Fields(transcript), " ")
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
