package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"conversation-ingress-service/internal/app"
	"conversation-ingress-service/internal/config"
	ingresshttp "conversation-ingress-service/internal/http"
	"conversation-ingress-service/internal/observability"
)

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	application, err := app.New(ctx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Application startup failed")
	}

	server := &http.Server{
		Addr:    ":" + cfg.Service.HTTPPort,
		Handler: ingresshttp.NewRouter(application),
		// No write timeout: sessions are long-lived streaming connections.
		ReadHeaderTimeout: 5 * time.Second,
	}

	obsServer := observability.NewServer(":" + cfg.Observability.HTTPPort)
	obsServer.Start()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("Conversation ingress service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")

	// Closing the listener ends the session read loops; each session then
	// runs its finalization sequence. Give them time to drain.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}
	application.Shutdown()
}
