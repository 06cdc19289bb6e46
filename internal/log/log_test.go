package log

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{" warning ", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitSetsDefault(t *testing.T) {
	Init("warn")

	if L() == nil {
		t.Fatal("L() returned nil")
	}
	if slog.Default() != L() {
		t.Error("Init should install the slog default")
	}
	if L().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn")
	}

	SetLevel("debug")
	if !L().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("SetLevel should enable debug")
	}
}
