package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/bluora/isbnplus-go/pkg/config"
	"github.com/rs/zerolog"
)

func TestFromConfig(t *testing.T) {
	buf := &bytes.Buffer{}

	tests := []struct {
		name       string
		in         config.LoggingConfig
		out        *bytes.Buffer
		wantLevel  LogLevel
		wantPretty bool
	}{
		{name: "loaded settings", in: config.LoggingConfig{Level: "debug", Pretty: true}, out: buf, wantLevel: LevelDebug, wantPretty: true},
		{name: "empty level keeps default", in: config.LoggingConfig{}, out: buf, wantLevel: LevelInfo},
		{name: "nil writer", in: config.LoggingConfig{Level: "warn"}, wantLevel: LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			if tt.out != nil {
				cfg = FromConfig(tt.in, tt.out)
				if cfg.Output != tt.out {
					t.Error("Output should be the given writer")
				}
			} else {
				cfg = FromConfig(tt.in, nil)
				if cfg.Output != os.Stderr {
					t.Error("Output should default to stderr")
				}
			}

			if cfg.Level != tt.wantLevel {
				t.Errorf("Level = %q, want %q", cfg.Level, tt.wantLevel)
			}
			if cfg.Pretty != tt.wantPretty {
				t.Errorf("Pretty = %v, want %v", cfg.Pretty, tt.wantPretty)
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelError, zerolog.ErrorLevel},
		{"WARNING", zerolog.WarnLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(FromConfig(config.LoggingConfig{Level: "debug"}, buf))

	logger := NewLogger("isbnplus-cursor")
	logger.Debug().Int("page", 3).Msg("Cursor rolled over to next page")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "isbnplus-cursor" {
		t.Errorf("component = %v, want isbnplus-cursor", entry["component"])
	}
	if entry["page"] != float64(3) {
		t.Errorf("page = %v, want 3", entry["page"])
	}
	if entry["level"] != "debug" {
		t.Errorf("level = %v, want debug", entry["level"])
	}
}

func TestSetup_FiltersBelowLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(FromConfig(config.LoggingConfig{Level: "warn"}, buf))

	logger := NewLogger("isbnplus-fetcher")
	logger.Info().Msg("Page fetched")
	logger.Warn().Msg("Page request rejected")

	output := buf.String()
	if strings.Contains(output, "Page fetched") {
		t.Error("Info message should be filtered out at warn level")
	}
	if !strings.Contains(output, "Page request rejected") {
		t.Error("Warn message should be written at warn level")
	}
}

func TestSetup_Pretty(t *testing.T) {
	buf := &bytes.Buffer{}
	Setup(FromConfig(config.LoggingConfig{Level: "info", Pretty: true}, buf))

	logger := NewLogger("isbnplus-server")
	logger.Info().Msg("Starting search server")

	output := buf.String()
	if !strings.Contains(output, "Starting search server") {
		t.Errorf("Expected the message in console output, got %q", output)
	}
	if strings.HasPrefix(strings.TrimSpace(output), "{") {
		t.Errorf("Expected console format, got JSON: %q", output)
	}
}
