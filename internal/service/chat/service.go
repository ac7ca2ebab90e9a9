// Package chat answers questions about a transcript through a streamed
// chat-completions model.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"transcript-search-service/internal/observability/logging"
	"transcript-search-service/internal/observability/metrics"
	"transcript-search-service/internal/service/groqapi"
)

// Errors returned by Ask.
var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNoContext     = errors.New("no transcript to chat about")
)

// Model defaults.
const (
	DefaultModel        = "llama-3.1-8b-instant"
	DefaultHistoryTurns = 6
)

// systemPrompt restricts answers to the transcript.
const systemPrompt = "Eres un asistente útil. Responde basándote ÚNICAMENTE en el siguiente texto. " +
	"Si no lo sabes, dilo. Sé conciso.\n\nCONTEXTO:\n%s"

// Streamer is the subset of groqapi.Client used here.
type Streamer interface {
	ChatStream(ctx context.Context, req groqapi.ChatRequest, onDelta func(string) error) (string, error)
}

// Config holds chat configuration.
type Config struct {
	Model       string
	Temperature float64
	MaxTokens   int
	// HistoryTurns is the number of previous messages sent along with the
	// question. Zero sends none.
	HistoryTurns int
}

// Request is one question about a transcript.
type Request struct {
	Transcript string
	History    []groqapi.Message
	Question   string
}

// Service streams answers grounded on a transcript.
type Service struct {
	client  Streamer
	cfg     Config
	metrics *metrics.Metrics
}

// New creates a chat service.
func New(client Streamer, cfg Config, m *metrics.Metrics) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.HistoryTurns < 0 {
		cfg.HistoryTurns = 0
	}
	if m == nil {
		m = metrics.DefaultMetrics
	}
	return &Service{client: client, cfg: cfg, metrics: m}
}

// Messages builds the chat-completions message list for a request.
func (s *Service) Messages(req Request) []groqapi.Message {
	history := lo.Filter(req.History, func(m groqapi.Message, _ int) bool {
		return m.Role == groqapi.RoleUser || m.Role == groqapi.RoleAssistant
	})
	if len(history) > s.cfg.HistoryTurns {
		history = history[len(history)-s.cfg.HistoryTurns:]
	}

	msgs := make([]groqapi.Message, 0, len(history)+2)
	msgs = append(msgs, groqapi.Message{Role: groqapi.RoleSystem, Content: fmt.Sprintf(systemPrompt, req.Transcript)})
	msgs = append(msgs, history...)
	msgs = append(msgs, groqapi.Message{Role: groqapi.RoleUser, Content: req.Question})
	return msgs
}

// Ask streams the answer to req.Question, calling onDelta for every chunk,
// and returns the full answer.
func (s *Service) Ask(ctx context.Context, req Request, onDelta func(string) error) (string, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return "", ErrEmptyQuestion
	}
	if strings.TrimSpace(req.Transcript) == "" {
		return "", ErrNoContext
	}

	chatReq := groqapi.ChatRequest{
		Model:     s.cfg.Model,
		Messages:  s.Messages(req),
		MaxTokens: s.cfg.MaxTokens,
	}
	if s.cfg.Temperature > 0 {
		chatReq.Temperature = groqapi.Temperature(s.cfg.Temperature)
	}

	start := time.Now()
	answer, err := s.client.ChatStream(ctx, chatReq, onDelta)
	s.metrics.RecordCollaborator("chat", s.cfg.Model, err, time.Since(start).Seconds())
	s.metrics.RecordChatStream(err == nil)
	if err != nil {
		logger := logging.WithComponent("chat")
		logger.Warn().Err(err).Msg("Chat stream failed")
		return "", fmt.Errorf("chat stream: %w", err)
	}
	return answer, nil
}
