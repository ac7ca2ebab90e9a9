// Package llm implements correction.Corrector over a chat-completions model.
package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"transcript-search-service/internal/observability/metrics"
	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/groqapi"
)

// Model defaults.
const (
	DefaultModel       = "llama-3.1-8b-instant"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 8000
)

// SystemPrompt instructs the model to fix form only.
const SystemPrompt = "Eres un editor experto. Tu única tarea es corregir tildes, ortografía " +
	"y palabras cortadas fonéticamente en el siguiente texto en español. " +
	"REGLAS: NO resumas. NO cambies estilo. NO agregues introducciones ni conclusiones. " +
	"Mantén el contenido exacto, solo arregla la forma."

const separatorRule = " El texto contiene %d fragmentos separados por \"%s\". " +
	"Conserva cada separador \"%s\" exactamente donde está: la respuesta debe tener " +
	"exactamente %d separadores y %d fragmentos, en el mismo orden."

// ChatClient is the subset of groqapi.Client used here.
type ChatClient interface {
	Chat(ctx context.Context, req groqapi.ChatRequest) (*groqapi.ChatResponse, error)
}

// Config holds corrector configuration.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds a single call. Zero leaves it to the client.
	Timeout time.Duration
}

// Corrector calls a chat model to fix spelling and accents.
type Corrector struct {
	client  ChatClient
	cfg     Config
	metrics *metrics.Metrics
}

// New creates an LLM corrector. Zero config values fall back to defaults.
func New(client ChatClient, cfg Config, m *metrics.Metrics) *Corrector {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Corrector{client: client, cfg: cfg, metrics: m}
}

// Prompt returns the system prompt for a request.
func Prompt(req correction.Request) string {
	if req.Separator == "" || req.Pieces < 2 {
		return SystemPrompt
	}
	return SystemPrompt + fmt.Sprintf(separatorRule,
		req.Pieces, req.Separator, req.Separator, req.Pieces-1, req.Pieces)
}

// Correct implements correction.Corrector.
func (c *Corrector) Correct(ctx context.Context, req correction.Request) (string, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.client.Chat(ctx, groqapi.ChatRequest{
		Model:       c.cfg.Model,
		Temperature: groqapi.Temperature(c.cfg.Temperature),
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []groqapi.Message{
			{Role: groqapi.RoleSystem, Content: Prompt(req)},
			{Role: groqapi.RoleUser, Content: req.Text},
		},
	})
	c.metrics.RecordCollaborator("correction", c.cfg.Model, err, time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("llm correction: %w", err)
	}
	return strings.TrimSpace(resp.Content()), nil
}
