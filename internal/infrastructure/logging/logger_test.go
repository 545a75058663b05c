package logging

import (
	"log/slog"
	"testing"

	"github.com/nerrad567/homelink/internal/infrastructure/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewDoesNotPanic(t *testing.T) {
	cfgs := []config.LoggingConfig{
		{Level: "debug", Format: "text", Output: "stderr"},
		{Level: "info", Format: "json", Output: "stdout"},
		{Level: "", Format: "", Output: ""},
	}

	for _, cfg := range cfgs {
		log := New(cfg, "test")
		if log == nil {
			t.Fatal("New() returned nil")
		}
		log.Debug("debug message", "key", "value")
		log.Info("info message")
	}
}

func TestWithAddsAttributes(t *testing.T) {
	log := Default()
	sub := log.With("component", "test")
	if sub == nil {
		t.Fatal("With() returned nil")
	}
	// The sub-logger must be usable independently of the parent.
	sub.Info("message from sub-logger")
}
