// Package config loads service configuration from an optional YAML file
// and environment variables. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Configuration holds the resolved service configuration.
type Configuration struct {
	Service       ServiceConfig       `yaml:"service"`
	HTTP          HTTPConfig          `yaml:"http"`
	Groq          GroqConfig          `yaml:"groq"`
	STT           STTConfig           `yaml:"stt"`
	Correction    CorrectionConfig    `yaml:"correction"`
	Search        SearchConfig        `yaml:"search"`
	Chat          ChatConfig          `yaml:"chat"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServiceConfig holds service identity settings.
type ServiceConfig struct {
	Name      string `yaml:"name" validate:"required"`
	Principal string `yaml:"principal" validate:"required"`
	Env       string `yaml:"env"`
	GRPCPort  string `yaml:"grpc_port" validate:"required,numeric"`
}

// HTTPConfig holds REST API settings.
type HTTPConfig struct {
	Port           string        `yaml:"port" validate:"required,numeric"`
	ReadTimeout    time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout   time.Duration `yaml:"write_timeout" validate:"gte=0"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes" validate:"gt=0"`
}

// GroqConfig holds settings for the OpenAI-compatible API used for Whisper,
// correction and chat.
type GroqConfig struct {
	APIKey     string        `yaml:"api_key"`
	BaseURL    string        `yaml:"base_url" validate:"required,url"`
	Timeout    time.Duration `yaml:"timeout" validate:"gt=0"`
	RetryCount int           `yaml:"retry_count" validate:"gte=0,lte=10"`
}

// STTConfig holds Speech-to-Text provider settings.
type STTConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=mock groq google"`
	Model       string  `yaml:"model"`
	Language    string  `yaml:"language"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=1"`

	// Google Cloud Speech only.
	LanguageCode  string `yaml:"language_code"`
	SampleRateHz  int    `yaml:"sample_rate_hz" validate:"gt=0"`
	AudioEncoding string `yaml:"audio_encoding"`
}

// CorrectionConfig holds correction job settings.
type CorrectionConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=mock llm"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int           `yaml:"max_tokens" validate:"gt=0"`
	Strategy    string        `yaml:"strategy" validate:"oneof=wordcount batched"`
	BatchSize   int           `yaml:"batch_size" validate:"gt=0,lte=200"`
	Separator   string        `yaml:"separator" validate:"required"`
	Parallelism int           `yaml:"parallelism" validate:"gt=0,lte=32"`
	CallTimeout time.Duration `yaml:"call_timeout" validate:"gte=0"`
	JobTimeout  time.Duration `yaml:"job_timeout" validate:"gte=0"`
}

// SearchConfig holds default search options.
type SearchConfig struct {
	ContextWindow  int     `yaml:"context_window" validate:"gte=0"`
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" validate:"gte=0,lte=1"`
}

// ChatConfig holds transcript chat settings.
type ChatConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Model        string  `yaml:"model"`
	Temperature  float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens    int     `yaml:"max_tokens" validate:"gte=0"`
	HistoryTurns int     `yaml:"history_turns" validate:"gte=0"`
}

// SessionsConfig holds session store settings.
type SessionsConfig struct {
	TTL           time.Duration `yaml:"ttl" validate:"gte=0"`
	MaxSessions   int           `yaml:"max_sessions" validate:"gte=0"`
	SweepSchedule string        `yaml:"sweep_schedule" validate:"required"`
}

// KafkaConfig holds Kafka publisher settings.
type KafkaConfig struct {
	Enabled        bool     `yaml:"enabled"`
	Brokers        []string `yaml:"brokers" validate:"required_if=Enabled true"`
	TopicSession   string   `yaml:"topic_session"`
	TopicBatch     string   `yaml:"topic_batch"`
	TopicCompleted string   `yaml:"topic_completed"`
	Principal      string   `yaml:"principal"`
}

// ObservabilityConfig holds logging and metrics settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level" validate:"oneof=trace debug info warn error"`
	LogFormat   string `yaml:"log_format" validate:"oneof=json console"`
	LogOutput   string `yaml:"log_output" validate:"oneof=stdout stderr"`
	MetricsPort string `yaml:"metrics_port" validate:"required,numeric"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Name:      "transcript-search-service",
			Principal: "svc-transcript-search",
			GRPCPort:  "50051",
		},
		HTTP: HTTPConfig{
			Port:           "8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   0, // chat streams stay open
			MaxUploadBytes: 25 * 1024 * 1024,
		},
		Groq: GroqConfig{
			BaseURL:    "https://api.groq.com/openai/v1",
			Timeout:    2 * time.Minute,
			RetryCount: 2,
		},
		STT: STTConfig{
			Provider:      "mock",
			Model:         "whisper-large-v3",
			Language:      "es",
			LanguageCode:  "es-ES",
			SampleRateHz:  16000,
			AudioEncoding: "LINEAR16",
		},
		Correction: CorrectionConfig{
			Provider:    "mock",
			Model:       "llama-3.1-8b-instant",
			Temperature: 0.1,
			MaxTokens:   8000,
			Strategy:    "batched",
			BatchSize:   10,
			Separator:   "|||",
			Parallelism: 1,
			CallTimeout: time.Minute,
			JobTimeout:  10 * time.Minute,
		},
		Search: SearchConfig{
			ContextWindow:  1,
			FuzzyThreshold: 0.7,
		},
		Chat: ChatConfig{
			Enabled:      true,
			Model:        "llama-3.1-8b-instant",
			HistoryTurns: 6,
		},
		Sessions: SessionsConfig{
			TTL:           time.Hour,
			MaxSessions:   1000,
			SweepSchedule: "@every 1m",
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			LogOutput:   "stdout",
			MetricsPort: "9090",
		},
	}
}

// Load builds the configuration from defaults, the YAML file named by
// CONFIG_FILE (if set) and environment variables, then validates it.
func Load() (*Configuration, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Configuration) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c *Configuration) applyEnv() {
	c.Service.Name = envOrDefault("SERVICE_NAME", c.Service.Name)
	c.Service.Principal = envOrDefault("SERVICE_PRINCIPAL", c.Service.Principal)
	c.Service.Env = envOrDefault("ENV", c.Service.Env)
	c.Service.GRPCPort = envOrDefault("GRPC_PORT", c.Service.GRPCPort)

	c.HTTP.Port = envOrDefault("HTTP_PORT", c.HTTP.Port)
	c.HTTP.ReadTimeout = envOrDefaultDuration("HTTP_READ_TIMEOUT", c.HTTP.ReadTimeout)
	c.HTTP.WriteTimeout = envOrDefaultDuration("HTTP_WRITE_TIMEOUT", c.HTTP.WriteTimeout)
	c.HTTP.MaxUploadBytes = envOrDefaultInt64("HTTP_MAX_UPLOAD_BYTES", c.HTTP.MaxUploadBytes)

	c.Groq.APIKey = envOrDefault("GROQ_API_KEY", c.Groq.APIKey)
	c.Groq.BaseURL = envOrDefault("GROQ_BASE_URL", c.Groq.BaseURL)
	c.Groq.Timeout = envOrDefaultDuration("GROQ_TIMEOUT", c.Groq.Timeout)
	c.Groq.RetryCount = envOrDefaultInt("GROQ_RETRY_COUNT", c.Groq.RetryCount)

	c.STT.Provider = envOrDefault("STT_PROVIDER", c.STT.Provider)
	c.STT.Model = envOrDefault("STT_MODEL", c.STT.Model)
	c.STT.Language = envOrDefault("STT_LANGUAGE", c.STT.Language)
	c.STT.Temperature = envOrDefaultFloat("STT_TEMPERATURE", c.STT.Temperature)
	c.STT.LanguageCode = envOrDefault("STT_LANGUAGE_CODE", c.STT.LanguageCode)
	c.STT.SampleRateHz = envOrDefaultInt("STT_SAMPLE_RATE_HZ", c.STT.SampleRateHz)
	c.STT.AudioEncoding = envOrDefault("STT_AUDIO_ENCODING", c.STT.AudioEncoding)

	c.Correction.Provider = envOrDefault("CORRECTION_PROVIDER", c.Correction.Provider)
	c.Correction.Model = envOrDefault("CORRECTION_MODEL", c.Correction.Model)
	c.Correction.Temperature = envOrDefaultFloat("CORRECTION_TEMPERATURE", c.Correction.Temperature)
	c.Correction.MaxTokens = envOrDefaultInt("CORRECTION_MAX_TOKENS", c.Correction.MaxTokens)
	c.Correction.Strategy = envOrDefault("CORRECTION_STRATEGY", c.Correction.Strategy)
	c.Correction.BatchSize = envOrDefaultInt("CORRECTION_BATCH_SIZE", c.Correction.BatchSize)
	c.Correction.Separator = envOrDefault("CORRECTION_SEPARATOR", c.Correction.Separator)
	c.Correction.Parallelism = envOrDefaultInt("CORRECTION_PARALLELISM", c.Correction.Parallelism)
	c.Correction.CallTimeout = envOrDefaultDuration("CORRECTION_CALL_TIMEOUT", c.Correction.CallTimeout)
	c.Correction.JobTimeout = envOrDefaultDuration("CORRECTION_JOB_TIMEOUT", c.Correction.JobTimeout)

	c.Search.ContextWindow = envOrDefaultInt("SEARCH_CONTEXT_WINDOW", c.Search.ContextWindow)
	c.Search.FuzzyThreshold = envOrDefaultFloat("SEARCH_FUZZY_THRESHOLD", c.Search.FuzzyThreshold)

	c.Chat.Enabled = envOrDefaultBool("CHAT_ENABLED", c.Chat.Enabled)
	c.Chat.Model = envOrDefault("CHAT_MODEL", c.Chat.Model)
	c.Chat.Temperature = envOrDefaultFloat("CHAT_TEMPERATURE", c.Chat.Temperature)
	c.Chat.MaxTokens = envOrDefaultInt("CHAT_MAX_TOKENS", c.Chat.MaxTokens)
	c.Chat.HistoryTurns = envOrDefaultInt("CHAT_HISTORY_TURNS", c.Chat.HistoryTurns)

	c.Sessions.TTL = envOrDefaultDuration("SESSION_TTL", c.Sessions.TTL)
	c.Sessions.MaxSessions = envOrDefaultInt("SESSION_MAX", c.Sessions.MaxSessions)
	c.Sessions.SweepSchedule = envOrDefault("SESSION_SWEEP_SCHEDULE", c.Sessions.SweepSchedule)

	c.Kafka.Enabled = envOrDefaultBool("KAFKA_ENABLED", c.Kafka.Enabled)
	c.Kafka.Brokers = envOrDefaultList("KAFKA_BROKERS", c.Kafka.Brokers)
	c.Kafka.TopicSession = envOrDefault("KAFKA_TOPIC_SESSION", c.Kafka.TopicSession)
	c.Kafka.TopicBatch = envOrDefault("KAFKA_TOPIC_BATCH", c.Kafka.TopicBatch)
	c.Kafka.TopicCompleted = envOrDefault("KAFKA_TOPIC_COMPLETED", c.Kafka.TopicCompleted)
	c.Kafka.Principal = envOrDefault("KAFKA_PRINCIPAL", c.Kafka.Principal)
	if c.Kafka.Principal == "" {
		c.Kafka.Principal = c.Service.Principal
	}

	c.Observability.LogLevel = strings.ToLower(envOrDefault("LOG_LEVEL", c.Observability.LogLevel))
	c.Observability.LogFormat = envOrDefault("LOG_FORMAT", c.Observability.LogFormat)
	c.Observability.LogOutput = strings.ToLower(envOrDefault("LOG_OUTPUT", c.Observability.LogOutput))
	c.Observability.MetricsPort = envOrDefault("METRICS_PORT", c.Observability.MetricsPort)
}

// Validate checks field constraints and provider requirements.
func (c *Configuration) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.Groq.APIKey == "" {
		if c.STT.Provider == "groq" {
			return errors.New("invalid configuration: STT provider groq requires GROQ_API_KEY")
		}
		if c.Correction.Provider == "llm" {
			return errors.New("invalid configuration: correction provider llm requires GROQ_API_KEY")
		}
	}
	return nil
}

// ChatAvailable reports whether the chat endpoint can be served.
func (c *Configuration) ChatAvailable() bool {
	return c.Chat.Enabled && c.Groq.APIKey != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
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

func envOrDefaultList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
