package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"transcript-search-service/internal/service/correction"
	"transcript-search-service/internal/service/groqapi"
)

// testClient implements ChatClient for testing.
type testClient struct {
	reply    string
	err      error
	requests []groqapi.ChatRequest
	deadline bool
}

func (c *testClient) Chat(ctx context.Context, req groqapi.ChatRequest) (*groqapi.ChatResponse, error) {
	c.requests = append(c.requests, req)
	_, c.deadline = ctx.Deadline()
	if c.err != nil {
		return nil, c.err
	}
	return &groqapi.ChatResponse{
		Choices: []groqapi.Choice{{Message: groqapi.Message{Role: groqapi.RoleAssistant, Content: c.reply}}},
	}, nil
}

func TestCorrector_Defaults(t *testing.T) {
	client := &testClient{reply: "  Buenos días  "}
	c := New(client, Config{}, nil)

	got, err := c.Correct(context.Background(), correction.Request{Text: "buenos dias"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Buenos días" {
		t.Errorf("expected trimmed reply, got %q", got)
	}

	req := client.requests[0]
	if req.Model != DefaultModel || req.MaxTokens != DefaultMaxTokens || *req.Temperature != DefaultTemperature {
		t.Errorf("unexpected request %+v", req)
	}
	if req.Messages[0].Role != groqapi.RoleSystem || req.Messages[0].Content != SystemPrompt {
		t.Errorf("unexpected system message %+v", req.Messages[0])
	}
	if req.Messages[1].Content != "buenos dias" {
		t.Errorf("unexpected user message %+v", req.Messages[1])
	}
	if client.deadline {
		t.Error("no deadline expected without a timeout")
	}
}

func TestCorrector_SeparatorPrompt(t *testing.T) {
	client := &testClient{reply: "A ||| B ||| C"}
	c := New(client, Config{}, nil)

	_, err := c.Correct(context.Background(), correction.Request{Text: "a ||| b ||| c", Separator: "|||", Pieces: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := client.requests[0].Messages[0].Content
	if !strings.HasPrefix(prompt, SystemPrompt) {
		t.Error("separator prompt must extend the base prompt")
	}
	if !strings.Contains(prompt, "exactamente 2 separadores y 3 fragmentos") {
		t.Errorf("prompt should state the separator count: %s", prompt)
	}
}

func TestPrompt_SinglePieceHasNoSeparatorRule(t *testing.T) {
	if got := Prompt(correction.Request{Text: "a", Separator: "|||", Pieces: 1}); got != SystemPrompt {
		t.Errorf("expected base prompt, got %q", got)
	}
}

func TestCorrector_Error(t *testing.T) {
	boom := errors.New("503 service unavailable")
	c := New(&testClient{err: boom}, Config{}, nil)

	if _, err := c.Correct(context.Background(), correction.Request{Text: "x"}); !errors.Is(err, boom) {
		t.Errorf("expected wrapped collaborator error, got %v", err)
	}
}

func TestCorrector_Timeout(t *testing.T) {
	client := &testClient{reply: "ok"}
	c := New(client, Config{Timeout: time.Second}, nil)

	c.Correct(context.Background(), correction.Request{Text: "x"})
	if !client.deadline {
		t.Error("expected a deadline on the call context")
	}
}
