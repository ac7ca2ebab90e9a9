package logging

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestNew_JSONCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "json")

	logger.Info().Str("sessionId", "s-1").Msg("session created")

	out := buf.String()
	for _, want := range []string{`"sessionId":"s-1"`, `"message":"session created"`, `"level":"info"`} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in %s", want, out)
		}
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "console")

	logger.Info().Msg("hello")

	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console output should not be JSON: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected message in output: %s", buf.String())
	}
}

func TestInit_UsesOutput(t *testing.T) {
	prev := log.Logger
	prevLevel := zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prev
		zerolog.SetGlobalLevel(prevLevel)
	})

	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", TimeFormat: time.RFC3339, Output: &buf})

	log.Info().Msg("dropped")
	logger := WithComponent("mcp")
	logger.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info line should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"mcp"`) || !strings.Contains(out, "kept") {
		t.Errorf("expected component warn line in %s", out)
	}
}
