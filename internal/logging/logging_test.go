package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	for _, level := range []string{"", "debug", "INFO", "warning", "error"} {
		if _, err := parseLevel(level); err != nil {
			t.Fatalf("level %q rejected: %v", level, err)
		}
	}
	if _, err := parseLevel("loud"); err == nil {
		t.Fatalf("expected unknown level error")
	}
}

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "client.log")
	logger, err := New("debug", path)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	logger.Info("turn submitted")
	_ = logger.Sync()

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(contents), "turn submitted") {
		t.Fatalf("log line missing: %q", string(contents))
	}
}
