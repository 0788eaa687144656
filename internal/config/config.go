// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full service configuration, grouped by concern.
type Config struct {
	Service       ServiceConfig
	STT           STTConfig
	Session       SessionConfig
	Enrichment    EnrichmentConfig
	Database      DatabaseConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service and its listeners.
type ServiceConfig struct {
	Principal string
	HTTPPort  string
}

// STTConfig selects and parameterizes the cloud transcription provider.
type STTConfig struct {
	Provider       string // google, deepgram, mock
	DeepgramAPIKey string
	LanguageCode   string
	SampleRateHz   int
	AudioEncoding  string
	Channels       int
	Diarize        bool
	MaxReconnects  int
	ReconnectBase  time.Duration
}

// SessionConfig holds per-session timing.
type SessionConfig struct {
	FlushInterval time.Duration
	IdleTimeout   time.Duration
	PersistBudget time.Duration
}

// EnrichmentConfig points at the enrichment agent.
type EnrichmentConfig struct {
	AgentBaseURL   string
	ScanTimeout    time.Duration
	SummaryTimeout time.Duration
	MemoryTimeout  time.Duration
}

// DatabaseConfig holds Postgres and encryption settings.
type DatabaseConfig struct {
	URL           string
	EncryptionKey string // hex-encoded 32 bytes
	MaxRetries    int
	RetryBackoff  time.Duration
}

// KafkaConfig holds analytics event stream settings.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicSegments  string
	TopicCompleted string
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
	HTTPPort  string
}

// Load reads configuration from the environment, falling back to defaults
// for anything unset or unparsable.
func Load() *Config {
	return &Config{
		Service: ServiceConfig{
			Principal: envOrDefault("SERVICE_PRINCIPAL", "svc-conversation-ingress"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		STT: STTConfig{
			Provider:       envOrDefault("STT_PROVIDER", "mock"),
			DeepgramAPIKey: envOrDefault("DEEPGRAM_API_KEY", ""),
			LanguageCode:   envOrDefault("STT_LANGUAGE_CODE", "en-US"),
			SampleRateHz:   envOrDefaultInt("STT_SAMPLE_RATE_HZ", 16000),
			AudioEncoding:  envOrDefault("STT_AUDIO_ENCODING", "LINEAR16"),
			Channels:       envOrDefaultInt("STT_CHANNELS", 1),
			Diarize:        envOrDefaultBool("STT_DIARIZE", true),
			MaxReconnects:  envOrDefaultInt("STT_MAX_RECONNECTS", 3),
			ReconnectBase:  envOrDefaultDuration("STT_RECONNECT_BASE", 500*time.Millisecond),
		},
		Session: SessionConfig{
			FlushInterval: envOrDefaultDuration("SESSION_FLUSH_INTERVAL", 600*time.Millisecond),
			IdleTimeout:   envOrDefaultDuration("SESSION_IDLE_TIMEOUT", 120*time.Second),
			PersistBudget: envOrDefaultDuration("SESSION_PERSIST_BUDGET", 30*time.Second),
		},
		Enrichment: EnrichmentConfig{
			AgentBaseURL:   envOrDefault("ENRICHMENT_AGENT_URL", "http://localhost:8090"),
			ScanTimeout:    envOrDefaultDuration("ENRICHMENT_SCAN_TIMEOUT", 1*time.Second),
			SummaryTimeout: envOrDefaultDuration("ENRICHMENT_SUMMARY_TIMEOUT", 30*time.Second),
			MemoryTimeout:  envOrDefaultDuration("ENRICHMENT_MEMORY_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:           envOrDefault("DATABASE_URL", "postgres://localhost:5432/conversations"),
			EncryptionKey: envOrDefault("CONVERSATION_ENCRYPTION_KEY", ""),
			MaxRetries:    envOrDefaultInt("DB_MAX_RETRIES", 3),
			RetryBackoff:  envOrDefaultDuration("DB_RETRY_BACKOFF", 200*time.Millisecond),
		},
		Kafka: KafkaConfig{
			Enabled:        envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:        envOrDefaultStrings("KAFKA_BROKERS", nil),
			TopicSegments:  envOrDefault("KAFKA_TOPIC_SEGMENTS", "conversation.segments"),
			TopicCompleted: envOrDefault("KAFKA_TOPIC_COMPLETED", "conversation.completed"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
			HTTPPort:  envOrDefault("METRICS_PORT", "9090"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envOrDefaultStrings(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
