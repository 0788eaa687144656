// Package app wires the service's components together.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"conversation-ingress-service/internal/config"
	"conversation-ingress-service/internal/events"
	"conversation-ingress-service/internal/observability/logging"
	"conversation-ingress-service/internal/service/enrichment"
	"conversation-ingress-service/internal/service/stt"
	"conversation-ingress-service/internal/session"
	"conversation-ingress-service/internal/store"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Cfg         *config.Config
	Gateway     *session.Gateway

	store     *store.Store
	publisher *events.Publisher
}

// New constructs the Application: logger, store, publisher, enrichment
// client, and the session gateway.
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	cipher, err := store.NewCipher(cfg.Database.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	st, err := store.New(ctx, cfg.Database.URL, cipher)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}

	publisher := events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicSegments:  cfg.Kafka.TopicSegments,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		Principal:      cfg.Service.Principal,
	})

	enricher := enrichment.NewDispatcher(
		enrichment.NewClient(cfg.Enrichment.AgentBaseURL, nil),
		enrichment.Timeouts{
			Scan:    cfg.Enrichment.ScanTimeout,
			Summary: cfg.Enrichment.SummaryTimeout,
			Memory:  cfg.Enrichment.MemoryTimeout,
		},
	)

	writer := store.NewRetryingWriter(st, store.RetryPolicy{
		MaxRetries:  cfg.Database.MaxRetries,
		BaseBackoff: cfg.Database.RetryBackoff,
	})

	gateway := session.NewGateway(
		session.GatewayConfig{
			Provider:       cfg.STT.Provider,
			DeepgramAPIKey: cfg.STT.DeepgramAPIKey,
			Session: session.Config{
				FlushInterval: cfg.Session.FlushInterval,
				IdleTimeout:   cfg.Session.IdleTimeout,
				PersistBudget: cfg.Session.PersistBudget,
			},
			Retry: stt.RetryPolicy{
				MaxRetries:  cfg.STT.MaxReconnects,
				BaseBackoff: cfg.STT.ReconnectBase,
			},
		},
		session.Deps{
			Enricher:  enricher,
			Writer:    writer,
			Publisher: publisher,
		},
	)

	a := &Application{
		StartupTime: time.Now().UTC(),
		Cfg:         cfg,
		Gateway:     gateway,
		store:       st,
		publisher:   publisher,
	}
	log.Info().
		Str("provider", cfg.STT.Provider).
		Str("principal", cfg.Service.Principal).
		Msg("Conversation ingress application created")
	return a, nil
}

// HandleListen exposes the gateway's streaming endpoint for the router.
func (a *Application) HandleListen(w http.ResponseWriter, r *http.Request) {
	a.Gateway.HandleListen(w, r)
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown() {
	log.Info().Msg("Conversation ingress service shutting down")
	if err := a.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("Publisher close failed")
	}
	a.store.Close()
}
