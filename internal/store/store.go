// Package store persists finalized conversations to Postgres with the
// segment and transcript payloads encrypted at rest.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"conversation-ingress-service/internal/models"
)

// ConversationWriter is the persistence surface the session gateway depends
// on. The concrete Store implements it; tests substitute in-memory writers.
type ConversationWriter interface {
	SaveConversation(ctx context.Context, conv *models.Conversation) error
}

// Store is a pgx-backed ConversationWriter.
type Store struct {
	pool   *pgxpool.Pool
	cipher *Cipher
}

// New connects to Postgres and verifies the connection.
func New(ctx context.Context, databaseURL string, cipher *Cipher) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool, cipher: cipher}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SaveConversation upserts a conversation row keyed (user_id, conversation_id).
// Segments and transcript are encrypted before they touch the wire; summary
// and memories are stored as plain JSON for querying.
func (s *Store) SaveConversation(ctx context.Context, conv *models.Conversation) error {
	segmentsJSON, err := json.Marshal(conv.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	encSegments, err := s.cipher.Encrypt(segmentsJSON)
	if err != nil {
		return fmt.Errorf("encrypt segments: %w", err)
	}
	encTranscript, err := s.cipher.Encrypt([]byte(conv.Transcript))
	if err != nil {
		return fmt.Errorf("encrypt transcript: %w", err)
	}

	var summaryJSON []byte
	if conv.Summary != nil {
		if summaryJSON, err = json.Marshal(conv.Summary); err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
	}
	memoriesJSON, err := json.Marshal(conv.Memories)
	if err != nil {
		return fmt.Errorf("marshal memories: %w", err)
	}

	query := `
		INSERT INTO conversations (
			conversation_id, user_id, status, created_at, started_at, finished_at,
			language, source, discarded, segments_enc, transcript_enc, summary, memories
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (user_id, conversation_id) DO UPDATE SET
			status = EXCLUDED.status,
			finished_at = EXCLUDED.finished_at,
			discarded = EXCLUDED.discarded,
			segments_enc = EXCLUDED.segments_enc,
			transcript_enc = EXCLUDED.transcript_enc,
			summary = EXCLUDED.summary,
			memories = EXCLUDED.memories,
			updated_at = now()
	`
	_, err = s.pool.Exec(ctx, query,
		conv.ID, conv.UserID, string(conv.Status), conv.CreatedAt, conv.StartedAt,
		conv.FinishedAt, conv.Language, conv.Source, conv.Discarded,
		encSegments, encTranscript, summaryJSON, memoriesJSON,
	)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	log.Debug().
		Str("conversationID", conv.ID).
		Str("userID", conv.UserID).
		Int("segments", len(conv.Segments)).
		Msg("Conversation persisted")
	return nil
}

// GetConversation reads a conversation back, decrypting segments and
// transcript transparently.
func (s *Store) GetConversation(ctx context.Context, userID, conversationID string) (*models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT conversation_id, user_id, status, created_at, started_at, finished_at,
		       language, source, discarded, segments_enc, transcript_enc, summary, memories
		FROM conversations
		WHERE user_id = $1 AND conversation_id = $2
	`, userID, conversationID)

	var (
		conv                       models.Conversation
		status                     string
		encSegments, encTranscript []byte
		summaryJSON, memoriesJSON  []byte
	)
	if err := row.Scan(
		&conv.ID, &conv.UserID, &status, &conv.CreatedAt, &conv.StartedAt,
		&conv.FinishedAt, &conv.Language, &conv.Source, &conv.Discarded,
		&encSegments, &encTranscript, &summaryJSON, &memoriesJSON,
	); err != nil {
		return nil, err
	}
	conv.Status = models.Status(status)

	segmentsJSON, err := s.cipher.Decrypt(encSegments)
	if err != nil {
		return nil, fmt.Errorf("decrypt segments: %w", err)
	}
	if err := json.Unmarshal(segmentsJSON, &conv.Segments); err != nil {
		return nil, fmt.Errorf("unmarshal segments: %w", err)
	}

	transcript, err := s.cipher.Decrypt(encTranscript)
	if err != nil {
		return nil, fmt.Errorf("decrypt transcript: %w", err)
	}
	conv.Transcript = string(transcript)

	if len(summaryJSON) > 0 {
		conv.Summary = &models.StructuredSummary{}
		if err := json.Unmarshal(summaryJSON, conv.Summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
	}
	if len(memoriesJSON) > 0 {
		if err := json.Unmarshal(memoriesJSON, &conv.Memories); err != nil {
			return nil, fmt.Errorf("unmarshal memories: %w", err)
		}
	}
	return &conv, nil
}
