// Package groqapi is a small client for the OpenAI-compatible Groq endpoints
// used by the service: chat completions (plain and streamed) and audio
// transcriptions.
package groqapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"transcript-search-service/internal/observability/logging"
)

// DefaultBaseURL is the Groq OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("groq api key is not set")

// Config holds client configuration.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	RetryCount int
}

// Client wraps a resty client configured for the Groq API.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger
}

// APIError is the error body returned by the API.
type APIError struct {
	Status int `json:"-"`
	Body   struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

func (e *APIError) Error() string {
	if e.Body.Message == "" {
		return fmt.Sprintf("groq api: status %d", e.Status)
	}
	return fmt.Sprintf("groq api: status %d: %s", e.Status, e.Body.Message)
}

// New creates a Groq API client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}

	c := &Client{logger: logging.WithComponent("groqapi")}

	c.http = resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r != nil && (r.StatusCode() == 429 || r.StatusCode() >= 500)
		}).
		SetJSONMarshaler(sonic.Marshal).
		SetJSONUnmarshaler(sonic.Unmarshal)

	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.Header.Set("X-Request-Id", uuid.NewString())
		return nil
	})
	c.http.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.IsError() {
			c.logger.Warn().
				Int("status", resp.StatusCode()).
				Str("url", resp.Request.URL).
				Str("requestId", resp.Request.Header.Get("X-Request-Id")).
				Dur("latency", resp.Time()).
				Msg("Groq API returned an error")
		}
		return nil
	})

	return c, nil
}

func apiError(resp *resty.Response) error {
	e := &APIError{Status: resp.StatusCode()}
	if body := resp.Body(); len(body) > 0 {
		_ = sonic.Unmarshal(body, e)
	}
	return e
}
