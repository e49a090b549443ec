package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/example/lifebank/internal/config"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Debug().Str("request", "1").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %v (%s)", err, buf.String())
	}
	if line["message"] != "hello" || line["level"] != "debug" || line["time"] == nil {
		t.Errorf("log line = %v", line)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(config.LogConfig{Level: "WARN", Format: "console"}, &buf)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	logger.Info().Msg("dropped")
	logger.Warn().Msg("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") || !strings.Contains(out, "kept") {
		t.Errorf("console output = %q", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(config.LogConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("New() with invalid level succeeded, want error")
	}
}
