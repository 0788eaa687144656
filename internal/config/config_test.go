package config

import (
	"os"
	"testing"
	"time"
)

var allEnvVars = []string{
	"SERVICE_PRINCIPAL", "HTTP_PORT", "LOG_LEVEL", "LOG_FORMAT", "METRICS_PORT",
	"STT_PROVIDER", "DEEPGRAM_API_KEY", "STT_LANGUAGE_CODE", "STT_SAMPLE_RATE_HZ",
	"STT_AUDIO_ENCODING", "STT_CHANNELS", "STT_DIARIZE", "STT_MAX_RECONNECTS",
	"STT_RECONNECT_BASE",
	"SESSION_FLUSH_INTERVAL", "SESSION_IDLE_TIMEOUT", "SESSION_PERSIST_BUDGET",
	"ENRICHMENT_AGENT_URL", "ENRICHMENT_SCAN_TIMEOUT", "ENRICHMENT_SUMMARY_TIMEOUT",
	"ENRICHMENT_MEMORY_TIMEOUT",
	"DATABASE_URL", "CONVERSATION_ENCRYPTION_KEY", "DB_MAX_RETRIES", "DB_RETRY_BACKOFF",
	"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_SEGMENTS", "KAFKA_TOPIC_COMPLETED",
}

func clearEnv() {
	for _, v := range allEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "svc-conversation-ingress" {
		t.Errorf("expected default principal 'svc-conversation-ingress', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "8080" {
		t.Errorf("expected default port '8080', got %s", cfg.Service.HTTPPort)
	}

	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.LanguageCode != "en-US" {
		t.Errorf("expected default language 'en-US', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}
	if !cfg.STT.Diarize {
		t.Error("expected diarization enabled by default")
	}
	if cfg.STT.MaxReconnects != 3 {
		t.Errorf("expected default max reconnects 3, got %d", cfg.STT.MaxReconnects)
	}

	if cfg.Session.FlushInterval != 600*time.Millisecond {
		t.Errorf("expected default flush interval 600ms, got %v", cfg.Session.FlushInterval)
	}
	if cfg.Session.IdleTimeout != 120*time.Second {
		t.Errorf("expected default idle timeout 120s, got %v", cfg.Session.IdleTimeout)
	}

	if cfg.Enrichment.ScanTimeout != time.Second {
		t.Errorf("expected default scan timeout 1s, got %v", cfg.Enrichment.ScanTimeout)
	}
	if cfg.Enrichment.SummaryTimeout != 30*time.Second {
		t.Errorf("expected default summary timeout 30s, got %v", cfg.Enrichment.SummaryTimeout)
	}

	if cfg.Database.MaxRetries != 3 {
		t.Errorf("expected default db retries 3, got %d", cfg.Database.MaxRetries)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicSegments != "conversation.segments" {
		t.Errorf("expected default segments topic, got %s", cfg.Kafka.TopicSegments)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("HTTP_PORT", "9999")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("STT_PROVIDER", "deepgram")
	os.Setenv("DEEPGRAM_API_KEY", "dg-key")
	os.Setenv("STT_LANGUAGE_CODE", "es-ES")
	os.Setenv("STT_SAMPLE_RATE_HZ", "44100")
	os.Setenv("SESSION_FLUSH_INTERVAL", "250ms")
	os.Setenv("SESSION_IDLE_TIMEOUT", "1m")
	os.Setenv("ENRICHMENT_AGENT_URL", "http://agent:9000")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	defer clearEnv()

	cfg := Load()

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.HTTPPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.HTTPPort)
	}
	if cfg.STT.Provider != "deepgram" {
		t.Errorf("expected STT provider 'deepgram', got %s", cfg.STT.Provider)
	}
	if cfg.STT.DeepgramAPIKey != "dg-key" {
		t.Errorf("expected deepgram key 'dg-key', got %s", cfg.STT.DeepgramAPIKey)
	}
	if cfg.STT.LanguageCode != "es-ES" {
		t.Errorf("expected language 'es-ES', got %s", cfg.STT.LanguageCode)
	}
	if cfg.STT.SampleRateHz != 44100 {
		t.Errorf("expected sample rate 44100, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.Session.FlushInterval != 250*time.Millisecond {
		t.Errorf("expected flush interval 250ms, got %v", cfg.Session.FlushInterval)
	}
	if cfg.Session.IdleTimeout != time.Minute {
		t.Errorf("expected idle timeout 1m, got %v", cfg.Session.IdleTimeout)
	}
	if cfg.Enrichment.AgentBaseURL != "http://agent:9000" {
		t.Errorf("expected agent url 'http://agent:9000', got %s", cfg.Enrichment.AgentBaseURL)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker1:9092" || cfg.Kafka.Brokers[1] != "broker2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv()
	os.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("STT_DIARIZE", "invalid")
	os.Setenv("SESSION_FLUSH_INTERVAL", "invalid")
	os.Setenv("DB_MAX_RETRIES", "invalid")
	os.Setenv("KAFKA_BROKERS", " , ,")
	defer clearEnv()

	cfg := Load()

	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected fallback sample rate 16000, got %d", cfg.STT.SampleRateHz)
	}
	if !cfg.STT.Diarize {
		t.Error("expected fallback diarize true")
	}
	if cfg.Session.FlushInterval != 600*time.Millisecond {
		t.Errorf("expected fallback flush interval 600ms, got %v", cfg.Session.FlushInterval)
	}
	if cfg.Database.MaxRetries != 3 {
		t.Errorf("expected fallback db retries 3, got %d", cfg.Database.MaxRetries)
	}
	if cfg.Kafka.Brokers != nil {
		t.Errorf("expected nil brokers for blank list, got %v", cfg.Kafka.Brokers)
	}
}
