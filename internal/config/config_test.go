package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"CONFIG_FILE", "SERVICE_PRINCIPAL", "GRPC_PORT", "HTTP_PORT", "LOG_LEVEL",
	"GROQ_API_KEY", "STT_PROVIDER", "STT_LANGUAGE", "STT_SAMPLE_RATE_HZ",
	"CORRECTION_PROVIDER", "CORRECTION_STRATEGY", "CORRECTION_BATCH_SIZE",
	"CORRECTION_PARALLELISM", "CORRECTION_JOB_TIMEOUT", "SEARCH_FUZZY_THRESHOLD",
	"SESSION_TTL", "KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_PRINCIPAL", "CHAT_ENABLED",
}

func clearEnv() {
	for _, v := range configEnvVars {
		os.Unsetenv(v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Service defaults
	if cfg.Service.Principal != "svc-transcript-search" {
		t.Errorf("expected default principal 'svc-transcript-search', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "50051" {
		t.Errorf("expected default port '50051', got %s", cfg.Service.GRPCPort)
	}
	if cfg.HTTP.Port != "8080" {
		t.Errorf("expected default HTTP port '8080', got %s", cfg.HTTP.Port)
	}

	// STT defaults
	if cfg.STT.Provider != "mock" {
		t.Errorf("expected default STT provider 'mock', got %s", cfg.STT.Provider)
	}
	if cfg.STT.Language != "es" {
		t.Errorf("expected default language 'es', got %s", cfg.STT.Language)
	}

	// Correction defaults
	if cfg.Correction.Strategy != "batched" {
		t.Errorf("expected default strategy 'batched', got %s", cfg.Correction.Strategy)
	}
	if cfg.Correction.BatchSize != 10 || cfg.Correction.Separator != "|||" {
		t.Errorf("unexpected batch defaults: size=%d sep=%q", cfg.Correction.BatchSize, cfg.Correction.Separator)
	}

	// Search defaults
	if cfg.Search.ContextWindow != 1 || cfg.Search.FuzzyThreshold != 0.7 {
		t.Errorf("unexpected search defaults: %+v", cfg.Search)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
	if cfg.ChatAvailable() {
		t.Error("chat must be unavailable without an API key")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "custom-principal")
	os.Setenv("GRPC_PORT", "9999")
	os.Setenv("LOG_LEVEL", "DEBUG")
	os.Setenv("GROQ_API_KEY", "gsk_test")
	os.Setenv("STT_PROVIDER", "groq")
	os.Setenv("CORRECTION_PROVIDER", "llm")
	os.Setenv("CORRECTION_STRATEGY", "wordcount")
	os.Setenv("CORRECTION_PARALLELISM", "4")
	os.Setenv("CORRECTION_JOB_TIMEOUT", "90s")
	os.Setenv("SEARCH_FUZZY_THRESHOLD", "0.5")
	os.Setenv("KAFKA_ENABLED", "true")
	os.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Service.Principal != "custom-principal" {
		t.Errorf("expected principal 'custom-principal', got %s", cfg.Service.Principal)
	}
	if cfg.Service.GRPCPort != "9999" {
		t.Errorf("expected port '9999', got %s", cfg.Service.GRPCPort)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.Observability.LogLevel)
	}
	if cfg.STT.Provider != "groq" || cfg.Correction.Provider != "llm" {
		t.Errorf("unexpected providers: stt=%s correction=%s", cfg.STT.Provider, cfg.Correction.Provider)
	}
	if cfg.Correction.Strategy != "wordcount" || cfg.Correction.Parallelism != 4 {
		t.Errorf("unexpected correction config: %+v", cfg.Correction)
	}
	if cfg.Correction.JobTimeout != 90*time.Second {
		t.Errorf("expected job timeout 90s, got %v", cfg.Correction.JobTimeout)
	}
	if cfg.Search.FuzzyThreshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.Search.FuzzyThreshold)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if !cfg.ChatAvailable() {
		t.Error("chat should be available with an API key")
	}
}

func TestLoad_InvalidValues_FallbackToDefaults(t *testing.T) {
	clearEnv()
	os.Setenv("STT_SAMPLE_RATE_HZ", "not-a-number")
	os.Setenv("CORRECTION_BATCH_SIZE", "invalid")
	os.Setenv("SESSION_TTL", "invalid")
	os.Setenv("KAFKA_ENABLED", "invalid")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Should fall back to defaults on parse errors
	if cfg.STT.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate on invalid input, got %d", cfg.STT.SampleRateHz)
	}
	if cfg.Correction.BatchSize != 10 {
		t.Errorf("expected default batch size on invalid input, got %d", cfg.Correction.BatchSize)
	}
	if cfg.Sessions.TTL != time.Hour {
		t.Errorf("expected default TTL on invalid input, got %v", cfg.Sessions.TTL)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled on invalid input")
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown strategy", map[string]string{"CORRECTION_STRATEGY": "magic"}, "Strategy"},
		{"threshold out of range", map[string]string{"SEARCH_FUZZY_THRESHOLD": "1.5"}, "FuzzyThreshold"},
		{"kafka without brokers", map[string]string{"KAFKA_ENABLED": "true"}, "Brokers"},
		{"groq without key", map[string]string{"STT_PROVIDER": "groq"}, "GROQ_API_KEY"},
		{"llm without key", map[string]string{"CORRECTION_PROVIDER": "llm"}, "GROQ_API_KEY"},
		{"unknown provider", map[string]string{"STT_PROVIDER": "vosk"}, "Provider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			defer clearEnv()

			_, err := Load()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv()
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
http:
  port: "8181"
correction:
  batch_size: 5
  separator: "◆◆◆"
sessions:
  ttl: 15m
kafka:
  brokers: ["kafka:9092"]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	os.Setenv("CONFIG_FILE", path)
	os.Setenv("CORRECTION_BATCH_SIZE", "7")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Port != "8181" {
		t.Errorf("expected port from file, got %s", cfg.HTTP.Port)
	}
	if cfg.Correction.Separator != "◆◆◆" {
		t.Errorf("expected separator from file, got %q", cfg.Correction.Separator)
	}
	if cfg.Correction.BatchSize != 7 {
		t.Errorf("env must win over file, got batch size %d", cfg.Correction.BatchSize)
	}
	if cfg.Sessions.TTL != 15*time.Minute {
		t.Errorf("expected TTL 15m from file, got %v", cfg.Sessions.TTL)
	}
	// Untouched fields keep defaults.
	if cfg.Correction.Strategy != "batched" {
		t.Errorf("expected default strategy, got %s", cfg.Correction.Strategy)
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv()
	os.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	defer clearEnv()

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoad_KafkaPrincipal_FallsBackToServicePrincipal(t *testing.T) {
	clearEnv()
	os.Setenv("SERVICE_PRINCIPAL", "my-service")
	defer clearEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Kafka.Principal != "my-service" {
		t.Errorf("expected Kafka principal to fall back to service principal, got %s", cfg.Kafka.Principal)
	}
}

func TestEnvOrDefaultBool(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		def      bool
		expected bool
	}{
		{"true string", "true", false, true},
		{"false string", "false", true, false},
		{"1", "1", false, true},
		{"0", "0", true, false},
		{"TRUE uppercase", "TRUE", false, true},
		{"invalid", "invalid", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VAR"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
			} else {
				os.Unsetenv(key)
			}
			defer os.Unsetenv(key)

			got := envOrDefaultBool(key, tt.def)
			if got != tt.expected {
				t.Errorf("envOrDefaultBool(%s, %v) = %v, want %v", tt.envValue, tt.def, got, tt.expected)
			}
		})
	}
}

func TestEnvOrDefaultList(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		expected []string
	}{
		{"single", "a:9092", []string{"a:9092"}},
		{"trims spaces", " a:9092 , b:9092 ", []string{"a:9092", "b:9092"}},
		{"only commas", ",,", []string{"def"}},
		{"empty", "", []string{"def"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_LIST_VAR"
			os.Setenv(key, tt.envValue)
			defer os.Unsetenv(key)

			got := envOrDefaultList(key, []string{"def"})
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("envOrDefaultList(%q) = %v, want %v", tt.envValue, got, tt.expected)
			}
		})
	}
}
