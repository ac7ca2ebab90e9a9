// Package app assembles the service: configuration, logger, collaborators
// and the session pipeline shared by the HTTP, gRPC and MCP surfaces.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"transcript-search-service/internal/config"
	"transcript-search-service/internal/events"
	"transcript-search-service/internal/observability/logging"
	"transcript-search-service/internal/observability/metrics"
	"transcript-search-service/internal/schema"
	"transcript-search-service/internal/service/chat"
	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/correction/llm"
	corrmock "transcript-search-service/internal/service/correction/mock"
	"transcript-search-service/internal/service/groqapi"
	"transcript-search-service/internal/service/search"
	"transcript-search-service/internal/service/session"
	"transcript-search-service/internal/service/stt"
	"transcript-search-service/internal/service/stt/google"
	"transcript-search-service/internal/service/stt/groq"
	sttmock "transcript-search-service/internal/service/stt/mock"
)

// Application holds process-wide state for the service.
type Application struct {
	StartupTime time.Time
	Logger      zerolog.Logger
	Cfg         *config.Configuration

	Store     *session.Store
	Pipeline  *session.Pipeline
	Publisher *events.Publisher
	Validator *schema.Validator
	Metrics   *metrics.Metrics

	closers []func() error
	started atomic.Bool
}

// New constructs a new Application from the provided configuration.
func New(cfg *config.Configuration) *Application {
	a := &Application{
		Cfg:       cfg,
		Validator: schema.New(),
		Metrics:   metrics.DefaultMetrics,
	}
	a.setupLogger()

	appLogger := a.Logger.With().
		Str("component", "application").
		Str("method", "New").
		Logger()

	appLogger.Info().Msg("Transcript search service application created")
	return a
}

// setupLogger configures zerolog for the service.
func (a *Application) setupLogger() {
	obs := a.Cfg.Observability
	if envLevel := os.Getenv("ZEROLOG_LOG_LEVEL"); envLevel != "" {
		obs.LogLevel = strings.ToLower(envLevel)
	}
	format := obs.LogFormat
	if a.Cfg.Service.Env == "dev" {
		format = "console"
	}

	var out io.Writer = os.Stdout
	if obs.LogOutput == "stderr" {
		out = os.Stderr
	}
	logging.Init(logging.Config{
		Level:      obs.LogLevel,
		Format:     format,
		TimeFormat: time.RFC3339,
		Output:     out,
	})

	a.Logger = log.With().
		Str("service", a.Cfg.Service.Name).
		Str("component", "application").
		Logger()

	a.Logger.Info().
		Str("logLevel", zerolog.GlobalLevel().String()).
		Str("environment", a.Cfg.Service.Env).
		Msg("Logger setup completed")
}

// Wire builds the collaborators selected by the configuration.
func (a *Application) Wire(ctx context.Context) error {
	cfg := a.Cfg
	wireLogger := a.Logger.With().Str("method", "Wire").Logger()

	var groqClient *groqapi.Client
	if cfg.Groq.APIKey != "" {
		c, err := groqapi.New(groqapi.Config{
			BaseURL:    cfg.Groq.BaseURL,
			APIKey:     cfg.Groq.APIKey,
			Timeout:    cfg.Groq.Timeout,
			RetryCount: cfg.Groq.RetryCount,
		})
		if err != nil {
			return fmt.Errorf("groq client: %w", err)
		}
		groqClient = c
	}

	transcriber, err := a.newTranscriber(ctx, groqClient)
	if err != nil {
		return err
	}
	corrector, err := a.newCorrector(groqClient)
	if err != nil {
		return err
	}

	var chatSvc *chat.Service
	if cfg.ChatAvailable() {
		chatSvc = chat.New(groqClient, chat.Config{
			Model:        cfg.Chat.Model,
			Temperature:  cfg.Chat.Temperature,
			MaxTokens:    cfg.Chat.MaxTokens,
			HistoryTurns: cfg.Chat.HistoryTurns,
		}, a.Metrics)
	}

	a.Publisher = events.New(&events.Config{
		Enabled:        cfg.Kafka.Enabled,
		Brokers:        cfg.Kafka.Brokers,
		TopicSession:   cfg.Kafka.TopicSession,
		TopicBatch:     cfg.Kafka.TopicBatch,
		TopicCompleted: cfg.Kafka.TopicCompleted,
		Principal:      cfg.Kafka.Principal,
	})
	a.closers = append(a.closers, a.Publisher.Close)

	strategy, err := correction.ParseStrategy(cfg.Correction.Strategy)
	if err != nil {
		return err
	}

	a.Store = session.NewStore(session.StoreConfig{
		TTL:         cfg.Sessions.TTL,
		MaxSessions: cfg.Sessions.MaxSessions,
	}, a.Metrics)
	a.Pipeline = session.NewPipeline(session.PipelineConfig{
		Transcriber: transcriber,
		Aligner:     correction.NewAligner(corrector, a.Metrics),
		Engine:      search.New(),
		Chat:        chatSvc,
		Publisher:   a.Publisher,
		Metrics:     a.Metrics,
		Correct: session.CorrectOptions{
			Strategy:    strategy,
			BatchSize:   cfg.Correction.BatchSize,
			Separator:   cfg.Correction.Separator,
			Parallelism: cfg.Correction.Parallelism,
		},
		Search: search.Options{
			ContextWindow:  cfg.Search.ContextWindow,
			FuzzyThreshold: cfg.Search.FuzzyThreshold,
		},
		JobTimeout: cfg.Correction.JobTimeout,
	})

	wireLogger.Info().
		Str("sttProvider", transcriber.Name()).
		Str("correctionProvider", cfg.Correction.Provider).
		Str("strategy", string(strategy)).
		Bool("chat", chatSvc != nil).
		Bool("kafka", a.Publisher.Enabled()).
		Msg("Collaborators wired")
	return nil
}

func (a *Application) newTranscriber(ctx context.Context, client *groqapi.Client) (stt.Transcriber, error) {
	cfg := a.Cfg.STT
	switch cfg.Provider {
	case "groq":
		if client == nil {
			return nil, errors.New("stt provider groq requires an API key")
		}
		return groq.New(client, groq.Config{
			Model:       cfg.Model,
			Language:    cfg.Language,
			Temperature: cfg.Temperature,
		}, a.Metrics), nil
	case "google":
		gcfg := google.DefaultConfig()
		gcfg.LanguageCode = cfg.LanguageCode
		gcfg.SampleRateHz = cfg.SampleRateHz
		gcfg.AudioEncoding = cfg.AudioEncoding
		adapter, err := google.New(ctx, gcfg, a.Metrics)
		if err != nil {
			return nil, fmt.Errorf("google speech client: %w", err)
		}
		a.closers = append(a.closers, adapter.Close)
		return adapter, nil
	default:
		return sttmock.New(), nil
	}
}

func (a *Application) newCorrector(client *groqapi.Client) (correction.Corrector, error) {
	cfg := a.Cfg.Correction
	if cfg.Provider != "llm" {
		return corrmock.New(), nil
	}
	if client == nil {
		return nil, errors.New("correction provider llm requires an API key")
	}
	return llm.New(client, llm.Config{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.CallTimeout,
	}, a.Metrics), nil
}

// Start performs any startup work required before serving traffic.
func (a *Application) Start() error {
	startLogger := a.Logger.With().
		Str("method", "Start").
		Logger()

	if a.Store == nil || a.Pipeline == nil {
		return errors.New("application not wired")
	}
	if err := a.Store.StartJanitor(a.Cfg.Sessions.SweepSchedule); err != nil {
		return fmt.Errorf("session janitor: %w", err)
	}

	a.StartupTime = time.Now().UTC()
	a.started.Store(true)
	startLogger.Info().
		Time("startupTime", a.StartupTime).
		Str("sweepSchedule", a.Cfg.Sessions.SweepSchedule).
		Msg("Transcript search service starting")

	return nil
}

// Ready reports whether the service can take traffic.
func (a *Application) Ready() error {
	if !a.started.Load() {
		return errors.New("not started")
	}
	return nil
}

// Shutdown performs a best-effort cleanup before process exit.
func (a *Application) Shutdown(ctx context.Context) {
	shutdownLogger := a.Logger.With().
		Str("method", "Shutdown").
		Logger()

	shutdownLogger.Info().Msg("Transcript search service shutting down")
	a.started.Store(false)
	if a.Store != nil {
		a.Store.Stop(ctx)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			shutdownLogger.Warn().Err(err).Msg("Close failed")
		}
	}
	a.closers = nil
}
