package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"conversation-ingress-service/internal/service/stt"
	"conversation-ingress-service/internal/service/stt/deepgram"
	"conversation-ingress-service/internal/service/stt/google"
	"conversation-ingress-service/internal/service/stt/mock"
)

// GatewayConfig selects the cloud provider and session timing.
type GatewayConfig struct {
	Provider       string // google, deepgram, mock
	DeepgramAPIKey string
	Session        Config
	Retry          stt.RetryPolicy
}

// Gateway accepts streaming connections and wires a Session around each one.
type Gateway struct {
	cfg      GatewayConfig
	deps     Deps
	upgrader websocket.Upgrader
}

// NewGateway creates the connection gateway.
func NewGateway(cfg GatewayConfig, deps Deps) *Gateway {
	return &Gateway{
		cfg:  cfg,
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			// Token auth happens upstream; the gateway accepts any origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleListen is the streaming endpoint. Query parameters select edge or
// audio mode and the audio format; the connection then carries binary audio
// frames or edge transcript messages until it closes.
func (g *Gateway) HandleListen(w http.ResponseWriter, r *http.Request) {
	params, err := ParseParams(r.URL.Query())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if params.Mode != ModeEdge {
		params.Provider = g.cfg.Provider
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	var adapter stt.Adapter
	if params.Mode != ModeEdge {
		adapter = g.newAdapter(params)
	}

	sess := New(conn, params, adapter, g.deps, g.cfg.Session)
	sess.Run(r.Context())
}

// newAdapter builds the provider adapter for an audio session, wrapped with
// bounded reconnects.
func (g *Gateway) newAdapter(params Params) stt.Adapter {
	factory := func(ctx context.Context) (stt.Adapter, error) {
		switch g.cfg.Provider {
		case "google":
			return google.New(ctx, params.Audio)
		case "deepgram":
			return deepgram.New(g.cfg.DeepgramAPIKey, params.Audio), nil
		case "mock":
			return mock.New(), nil
		default:
			return nil, fmt.Errorf("unknown stt provider %q", g.cfg.Provider)
		}
	}
	return stt.NewReconnecting(g.cfg.Provider, g.cfg.Retry, factory)
}
