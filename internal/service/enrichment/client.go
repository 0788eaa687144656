// Package enrichment dispatches finished conversations to the external
// enrichment agent with bounded timeouts and deterministic local fallback.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"conversation-ingress-service/internal/models"
	"conversation-ingress-service/internal/schema"
)

// Client talks to the enrichment-agent collaborator over HTTP.
type Client struct {
	baseURL   string
	http      *http.Client
	validator *schema.Validator
}

// NewClient creates an agent client. The http.Client carries no timeout of
// its own; every call gets its deadline from the caller's context so a
// timed-out call is cancelled, not merely ignored.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL:   baseURL,
		http:      httpClient,
		validator: schema.New(),
	}
}

// scanRequest carries accumulated realtime segments for urgency scanning.
type scanRequest struct {
	ConversationID string                     `json:"conversation_id"`
	UserID         string                     `json:"user_id"`
	Segments       []models.TranscriptSegment `json:"segments"`
}

// enrichRequest carries the finished transcript for summary/memory calls.
type enrichRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Transcript     string `json:"transcript"`
	Language       string `json:"language,omitempty"`
}

type memoriesResponse struct {
	Memories []models.Memory `json:"memories"`
}

// Scan submits accumulated segments for urgency scanning. The response body
// is discarded; scanning is advisory and the agent pushes anything urgent
// through its own channel.
func (c *Client) Scan(ctx context.Context, conversationID, userID string, segments []models.TranscriptSegment) error {
	req := scanRequest{ConversationID: conversationID, UserID: userID, Segments: segments}
	return c.post(ctx, "/v1/conversations/scan", req, nil)
}

// Summarize asks the agent for a structured summary of the transcript.
// Non-2xx responses and schema-invalid bodies are errors; the dispatcher
// maps every error to the local fallback.
func (c *Client) Summarize(ctx context.Context, conversationID, userID, transcript, language string) (*models.StructuredSummary, error) {
	req := enrichRequest{ConversationID: conversationID, UserID: userID, Transcript: transcript, Language: language}

	var summary models.StructuredSummary
	if err := c.post(ctx, "/v1/conversations/summary", req, &summary); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateSummary(&summary); err != nil {
		return nil, fmt.Errorf("summary response invalid: %w", err)
	}
	return &summary, nil
}

// ExtractMemories asks the agent for memories extracted from the transcript.
func (c *Client) ExtractMemories(ctx context.Context, conversationID, userID, transcript, language string) ([]models.Memory, error) {
	req := enrichRequest{ConversationID: conversationID, UserID: userID, Transcript: transcript, Language: language}

	var resp memoriesResponse
	if err := c.post(ctx, "/v1/conversations/memories", req, &resp); err != nil {
		return nil, err
	}
	if err := c.validator.ValidateMemories(resp.Memories); err != nil {
		return nil, fmt.Errorf("memories response invalid: %w", err)
	}
	return resp.Memories, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("agent call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("agent returned status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
