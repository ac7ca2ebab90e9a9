package mcpserver

import (
	"os"
	"path/filepath"
	"testing"
)

func writeAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.wav")
	if err := os.WriteFile(path, []byte("RIFF"), 0o600); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}
